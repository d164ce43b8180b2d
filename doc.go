// Package imgport negotiates image sizes between the producers and
// consumers of a dataflow graph and serves each consumer an image at the
// size it asked for.
//
// # Overview
//
// A producer publishes its canonical image on an Outport. Consumers read it
// through an Inport (one connection) or a MultiInport (fan-in). Every inport
// records the size it wants from each outport it is connected to and
// announces it with a ResizeEvent. What a consumer then reads depends on two
// switches:
//
//   - the outport's resize handling: when enabled, an outport that owns its
//     image resizes it to the componentwise maximum of all requests;
//   - the inport's outport-determines-size flag and the outport's
//     SizingAuthority: the consumer reads either the canonical image
//     verbatim or a view resampled to its own request.
//
// Resampled views are memoized per outport in a ResizeCache keyed by size
// and dropped whenever the canonical image changes.
//
// # Quick Start
//
//	out := imgport.NewOutport("render.outport")
//	img, _ := imgport.NewImage(imgport.Size{Width: 256, Height: 256})
//	out.SetData(img, true)
//
//	a := imgport.NewInport("a.inport", imgport.WithDefaultSize(imgport.Size{Width: 512, Height: 256}))
//	b := imgport.NewInport("b.inport", imgport.WithDefaultSize(imgport.Size{Width: 256, Height: 512}))
//	_ = a.ConnectTo(out)
//	_ = b.ConnectTo(out)
//
//	out.Dimensions()  // 512x512
//	view, _ := a.Data() // 512x256 view served from the resize cache
//
// # Images
//
// An Image holds one or more color layers plus optional depth and picking
// layers. Published images are immutable: SetDimensions and resize requests
// replace the canonical image with a resized copy, so readers may keep and
// read any image they were handed without locking. Depth and picking layers
// are always resampled nearest-neighbour.
//
// # Resampling
//
// Resampler is pluggable. DrawResampler wraps golang.org/x/image/draw
// interpolators (bilinear by default), FilterResampler wraps the filters of
// github.com/nfnt/resize. ResamplerByName maps configuration names to both.
//
// # Concurrency
//
// Connecting, publishing and propagating events belong to the graph
// evaluation goroutine. Reads (Data, VectorData, ResizedImageData) are safe
// from any goroutine. Resize listeners run on the goroutine that changed
// the size, after the outport's lock has been released.
//
// # Logging
//
// The package is silent by default. Use SetLogger to route its log/slog
// output to a handler of your choice.
package imgport
