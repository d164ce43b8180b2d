package imgport

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"
)

// LayerType identifies what a layer stores.
type LayerType uint8

const (
	// LayerColor holds rendered color. Resampled with the configured filter.
	LayerColor LayerType = iota

	// LayerDepth holds per-pixel depth. Always resampled nearest-neighbour.
	LayerDepth

	// LayerPicking holds picking ids encoded as colors. Always resampled
	// nearest-neighbour so ids are never blended.
	LayerPicking
)

// String returns a string representation of the layer type.
func (t LayerType) String() string {
	switch t {
	case LayerColor:
		return "Color"
	case LayerDepth:
		return "Depth"
	case LayerPicking:
		return "Picking"
	default:
		return "Unknown"
	}
}

// DefaultFormat returns the texture format a layer of this type is
// uploaded with.
func (t LayerType) DefaultFormat() gputypes.TextureFormat {
	switch t {
	case LayerDepth:
		return gputypes.TextureFormatDepth16Unorm
	case LayerPicking:
		return gputypes.TextureFormatRGBA8Uint
	default:
		return gputypes.TextureFormatRGBA8Unorm
	}
}

// Interpolates reports whether resampling may blend neighbouring pixels.
func (t LayerType) Interpolates() bool {
	return t == LayerColor
}

// Layer is one pixel plane of an Image.
//
// A layer reachable from a published Image must not be modified; resizing
// always produces new pixels.
type Layer struct {
	typ    LayerType
	format gputypes.TextureFormat
	pix    draw.Image
}

// NewLayer allocates a zeroed layer. Color and picking layers are backed by
// *image.RGBA, depth layers by *image.Gray16.
func NewLayer(t LayerType, size Size) (*Layer, error) {
	if !size.IsValid() {
		return nil, fmt.Errorf("%w: layer %s", ErrInvalidSize, size)
	}
	return &Layer{typ: t, format: t.DefaultFormat(), pix: newPixels(t, nil, size)}, nil
}

// NewLayerFrom wraps existing pixels without copying. The layer takes over
// pix; callers must not modify it afterwards.
func NewLayerFrom(t LayerType, pix draw.Image) (*Layer, error) {
	if pix == nil || pix.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty layer pixels", ErrInvalidSize)
	}
	return &Layer{typ: t, format: t.DefaultFormat(), pix: pix}, nil
}

// Type returns what the layer stores.
func (l *Layer) Type() LayerType { return l.typ }

// Format returns the texture format used to upload the layer.
func (l *Layer) Format() gputypes.TextureFormat { return l.format }

// Size returns the layer size.
func (l *Layer) Size() Size { return SizeOf(l.pix.Bounds()) }

// Extent returns the texture extent used to upload the layer.
func (l *Layer) Extent() gputypes.Extent3D { return l.Size().Extent() }

// Pixels returns the backing pixels. Read-only once the owning image has
// been published.
func (l *Layer) Pixels() draw.Image { return l.pix }

// Clone returns a deep copy of the layer.
func (l *Layer) Clone() *Layer {
	size := l.Size()
	dst := newPixels(l.typ, l.pix, size)
	draw.Copy(dst, image.Point{}, l.pix, l.pix.Bounds(), draw.Src, nil)
	return &Layer{typ: l.typ, format: l.format, pix: dst}
}

// resampled returns a new layer of the given size resampled from l.
func (l *Layer) resampled(size Size, r Resampler) (*Layer, error) {
	dst := newPixels(l.typ, l.pix, size)
	if err := r.Resample(dst, l.pix, l.typ); err != nil {
		return nil, fmt.Errorf("%s layer %s -> %s: %w", l.typ, l.Size(), size, err)
	}
	return &Layer{typ: l.typ, format: l.format, pix: dst}, nil
}

// copyInto writes l into dst's pixels, resampling when the sizes differ.
func (l *Layer) copyInto(dst *Layer, r Resampler) error {
	if l.typ != dst.typ {
		return fmt.Errorf("%w: %s layer into %s layer", ErrLayerMismatch, l.typ, dst.typ)
	}
	if l.Size() == dst.Size() {
		draw.Copy(dst.pix, dst.pix.Bounds().Min, l.pix, l.pix.Bounds(), draw.Src, nil)
		return nil
	}
	if err := r.Resample(dst.pix, l.pix, l.typ); err != nil {
		return fmt.Errorf("%s layer %s -> %s: %w", l.typ, l.Size(), dst.Size(), err)
	}
	return nil
}

// newPixels allocates size pixels of the same concrete type as like when
// that type is known, otherwise the default storage for t.
func newPixels(t LayerType, like image.Image, size Size) draw.Image {
	r := size.Rect()
	switch like.(type) {
	case *image.RGBA:
		return image.NewRGBA(r)
	case *image.NRGBA:
		return image.NewNRGBA(r)
	case *image.RGBA64:
		return image.NewRGBA64(r)
	case *image.NRGBA64:
		return image.NewNRGBA64(r)
	case *image.Gray:
		return image.NewGray(r)
	case *image.Gray16:
		return image.NewGray16(r)
	}
	if t == LayerDepth {
		return image.NewGray16(r)
	}
	return image.NewRGBA(r)
}
