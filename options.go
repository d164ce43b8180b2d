package imgport

// OutportOption configures an Outport during creation.
//
// Example:
//
//	out := imgport.NewOutport("outport",
//	    imgport.WithSizingAuthority(imgport.ConsumerOwnsSize),
//	    imgport.WithResampler(imgport.NewLanczosResampler()))
type OutportOption func(*outportOptions)

// outportOptions holds optional configuration for Outport creation.
type outportOptions struct {
	handleResizeEvents bool
	authority          SizingAuthority
	resampler          Resampler
	cacheLimit         int
}

func defaultOutportOptions() outportOptions {
	return outportOptions{
		handleResizeEvents: true,
		authority:          ProducerOwnsSize,
		resampler:          nil, // DefaultResampler
		cacheLimit:         0,
	}
}

// WithHandleResizeEvents sets whether the outport resizes its owned image
// to the largest size its inports request. Enabled by default.
func WithHandleResizeEvents(handle bool) OutportOption {
	return func(o *outportOptions) {
		o.handleResizeEvents = handle
	}
}

// WithSizingAuthority sets whose size readers see. ProducerOwnsSize by default.
func WithSizingAuthority(a SizingAuthority) OutportOption {
	return func(o *outportOptions) {
		o.authority = a
	}
}

// WithResampler sets the resampler used for resized views and for
// SetDimensions. A nil resampler selects DefaultResampler.
func WithResampler(r Resampler) OutportOption {
	return func(o *outportOptions) {
		o.resampler = r
	}
}

// WithCacheLimit bounds the number of resized views kept per outport.
// 0 (the default) keeps one view per distinct requested size until the
// data changes.
func WithCacheLimit(n int) OutportOption {
	return func(o *outportOptions) {
		o.cacheLimit = n
	}
}

// InportOption configures an Inport or MultiInport during creation.
type InportOption func(*inportOptions)

// inportOptions holds optional configuration for inport creation.
type inportOptions struct {
	outportDeterminesSize bool
	defaultSize           *Size
	maxConnections        int
}

// WithOutportDeterminesSize makes the inport read outport images verbatim.
// Disabled by default: the inport reads views at its own requested size.
func WithOutportDeterminesSize(yes bool) InportOption {
	return func(o *inportOptions) {
		o.outportDeterminesSize = yes
	}
}

// WithDefaultSize sets the size requested from outports the inport has no
// recorded request for.
func WithDefaultSize(s Size) InportOption {
	return func(o *inportOptions) {
		o.defaultSize = &s
	}
}

// WithMaxConnections caps a MultiInport's connections; 0 means unbounded.
// Ignored by Inport, which always accepts exactly one connection.
func WithMaxConnections(n int) InportOption {
	return func(o *inportOptions) {
		o.maxConnections = max(n, 0)
	}
}
