// Package parallel runs small batches of independent work, such as the
// per-layer resampling of a multi-layer image, across a fixed set of
// goroutines.
package parallel
