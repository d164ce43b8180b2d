package scenario

import (
	"fmt"
	"image"
	"image/color"
	"sync/atomic"

	"golang.org/x/image/draw"

	"github.com/gogpu/imgport"
	"github.com/gogpu/imgport/cache"
)

// Step is one observable state change of the producer.
type Step struct {
	Action       string
	ProducerSize imgport.Size
}

// View is what one consumer read.
type View struct {
	Consumer string
	Request  imgport.Size
	Image    *imgport.Image
	// Canonical reports whether the consumer got the producer's image itself.
	Canonical bool
}

// Report is the outcome of Run.
type Report struct {
	Steps     []Step
	Views     []View
	Resamples int64
	Cache     cache.Stats
	Producer  imgport.PortInfo
	Consumers []imgport.PortInfo
}

// Run builds the producer and consumers described by cfg, connects them in
// order, reads every consumer twice and applies the requested disconnects.
func Run(cfg *Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	size, _ := cfg.Producer.size()
	authority, _ := imgport.ParseSizingAuthority(cfg.Producer.Authority)
	base, _ := imgport.ResamplerByName(cfg.Producer.Resampler)

	counter := &countingResampler{next: base}
	out := imgport.NewOutport("producer",
		imgport.WithSizingAuthority(authority),
		imgport.WithHandleResizeEvents(cfg.Producer.handleResize()),
		imgport.WithResampler(counter),
		imgport.WithCacheLimit(cfg.Producer.CacheLimit),
	)

	img, err := canvas(size, cfg.Producer)
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	out.SetData(img, cfg.Producer.owning())

	rep := &Report{}
	out.AddResizeListener(func(e *imgport.ResizeEvent) {
		imgport.Logger().Debug("scenario: producer resized", "from", e.PreviousSize(), "to", e.Size())
	})
	rep.step("initial", out)

	ports := make([]*imgport.Inport, len(cfg.Consumers))
	for i, cc := range cfg.Consumers {
		req, _ := cc.size()
		opts := []imgport.InportOption{imgport.WithOutportDeterminesSize(cc.OutportDeterminesSize)}
		if !req.IsZero() {
			opts = append(opts, imgport.WithDefaultSize(req))
		}
		ports[i] = imgport.NewInport(cc.Name, opts...)
		if err := ports[i].ConnectTo(out); err != nil {
			return nil, fmt.Errorf("scenario: connect %q: %w", cc.Name, err)
		}
		rep.step("connect "+cc.Name, out)
	}

	for pass := range 2 {
		for _, in := range ports {
			view, err := in.Data()
			if err != nil {
				return nil, fmt.Errorf("scenario: read %q: %w", in.Identifier(), err)
			}
			if pass > 0 || view == nil {
				continue
			}
			rep.Views = append(rep.Views, View{
				Consumer:  in.Identifier(),
				Request:   in.RequestedDimensions(out),
				Image:     view,
				Canonical: view == out.Data(),
			})
		}
	}

	for i, cc := range cfg.Consumers {
		if cc.Disconnect {
			ports[i].DisconnectFrom(out)
			rep.step("disconnect "+cc.Name, out)
		}
	}

	rep.Resamples = counter.calls.Load()
	rep.Cache = out.CacheStats()
	rep.Producer = out.Info()
	for _, in := range ports {
		rep.Consumers = append(rep.Consumers, in.Info())
	}
	return rep, nil
}

func (r *Report) step(action string, out *imgport.Outport) {
	s := Step{Action: action, ProducerSize: out.Dimensions()}
	imgport.Logger().Info("scenario: step", "action", s.Action, "producer", s.ProducerSize)
	r.Steps = append(r.Steps, s)
}

// canvas builds the producer image: a diagonal gradient on the color layers
// so resampled views are recognizable, plus zeroed depth and picking layers.
func canvas(size imgport.Size, p ProducerConfig) (*imgport.Image, error) {
	opts := []imgport.ImageOption{imgport.WithColorLayers(max(p.ColorLayers, 1))}
	if p.Depth {
		opts = append(opts, imgport.WithDepthLayer())
	}
	if p.Picking {
		opts = append(opts, imgport.WithPickingLayer())
	}
	img, err := imgport.NewImage(size, opts...)
	if err != nil {
		return nil, err
	}

	grad := image.NewRGBA(size.Rect())
	for y := range size.Height {
		for x := range size.Width {
			grad.SetRGBA(x, y, color.RGBA{
				R: uint8(255 * x / max(size.Width-1, 1)),  //nolint:gosec // < 256
				G: uint8(255 * y / max(size.Height-1, 1)), //nolint:gosec // < 256
				B: 128,
				A: 255,
			})
		}
	}
	for i := range img.ColorLayerCount() {
		dst := img.ColorLayer(i).Pixels()
		draw.Copy(dst, image.Point{}, grad, grad.Bounds(), draw.Src, nil)
	}
	return img, nil
}

// countingResampler counts layer resamples delegated to next. Layers of
// one image are resampled concurrently.
type countingResampler struct {
	next  imgport.Resampler
	calls atomic.Int64
}

func (c *countingResampler) Resample(dst draw.Image, src image.Image, t imgport.LayerType) error {
	c.calls.Add(1)
	return c.next.Resample(dst, src, t)
}
