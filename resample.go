package imgport

import (
	"errors"
	"fmt"
	"image"
	"slices"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// Resampler scales src into the whole of dst.
//
// Implementations must not modify src and must honor t: layers whose type
// does not interpolate (depth, picking) are sampled nearest-neighbour.
type Resampler interface {
	Resample(dst draw.Image, src image.Image, t LayerType) error
}

// ResamplerFunc adapts a function to the Resampler interface.
type ResamplerFunc func(dst draw.Image, src image.Image, t LayerType) error

// Resample calls f(dst, src, t).
func (f ResamplerFunc) Resample(dst draw.Image, src image.Image, t LayerType) error {
	return f(dst, src, t)
}

var errEmptyImage = errors.New("imgport: resample: empty image")

// DrawResampler resamples with an x/image/draw interpolator.
// A nil Interpolator means draw.BiLinear.
type DrawResampler struct {
	Interpolator draw.Interpolator
}

// Resample implements Resampler.
func (r DrawResampler) Resample(dst draw.Image, src image.Image, t LayerType) error {
	if dst == nil || src == nil || dst.Bounds().Empty() || src.Bounds().Empty() {
		return errEmptyImage
	}
	sr, dr := src.Bounds(), dst.Bounds()
	if sr.Size() == dr.Size() {
		draw.Copy(dst, dr.Min, src, sr, draw.Src, nil)
		return nil
	}

	interp := r.Interpolator
	switch {
	case !t.Interpolates():
		interp = draw.NearestNeighbor
	case interp == nil:
		interp = draw.BiLinear
	}
	interp.Scale(dst, dr, src, sr, draw.Src, nil)
	return nil
}

// FilterResampler resamples with one of github.com/nfnt/resize's filters.
// The zero value uses resize.NearestNeighbor; see NewLanczosResampler.
type FilterResampler struct {
	Filter resize.InterpolationFunction
}

// NewLanczosResampler returns a FilterResampler using Lanczos3.
func NewLanczosResampler() FilterResampler {
	return FilterResampler{Filter: resize.Lanczos3}
}

// Resample implements Resampler.
func (r FilterResampler) Resample(dst draw.Image, src image.Image, t LayerType) error {
	if dst == nil || src == nil || dst.Bounds().Empty() || src.Bounds().Empty() {
		return errEmptyImage
	}
	// resize.NearestNeighbor averages the covered pixels when shrinking,
	// which would blend picking ids and depths.
	if !t.Interpolates() {
		return DrawResampler{Interpolator: draw.NearestNeighbor}.Resample(dst, src, t)
	}
	dr := dst.Bounds()
	out := resize.Resize(uint(dr.Dx()), uint(dr.Dy()), src, r.Filter) //nolint:gosec // non-empty bounds
	draw.Copy(dst, dr.Min, out, out.Bounds(), draw.Src, nil)
	return nil
}

// DefaultResampler returns the resampler ports use unless configured
// otherwise: bilinear filtering through x/image/draw.
func DefaultResampler() Resampler {
	return DrawResampler{Interpolator: draw.BiLinear}
}

var namedResamplers = map[string]func() Resampler{
	"nearest":         func() Resampler { return DrawResampler{Interpolator: draw.NearestNeighbor} },
	"approx-bilinear": func() Resampler { return DrawResampler{Interpolator: draw.ApproxBiLinear} },
	"bilinear":        func() Resampler { return DrawResampler{Interpolator: draw.BiLinear} },
	"catmull-rom":     func() Resampler { return DrawResampler{Interpolator: draw.CatmullRom} },
	"bicubic":         func() Resampler { return FilterResampler{Filter: resize.Bicubic} },
	"mitchell":        func() Resampler { return FilterResampler{Filter: resize.MitchellNetravali} },
	"lanczos2":        func() Resampler { return FilterResampler{Filter: resize.Lanczos2} },
	"lanczos3":        func() Resampler { return NewLanczosResampler() },
}

// ResamplerByName returns a resampler by its configuration name.
// An empty name selects DefaultResampler. See ResamplerNames.
func ResamplerByName(name string) (Resampler, error) {
	if name == "" {
		return DefaultResampler(), nil
	}
	mk, ok := namedResamplers[name]
	if !ok {
		return nil, fmt.Errorf("imgport: unknown resampler %q (known: %v)", name, ResamplerNames())
	}
	return mk(), nil
}

// ResamplerNames lists the names accepted by ResamplerByName, sorted.
func ResamplerNames() []string {
	names := make([]string, 0, len(namedResamplers))
	for name := range namedResamplers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
