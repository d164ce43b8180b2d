// Package scenario loads size-negotiation scenarios from TOML and runs
// them against imgport ports, recording what every step did.
package scenario
