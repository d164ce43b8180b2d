package imgport

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/gogpu/imgport/internal/parallel"
)

// Image is the sized artifact exchanged between ports: one or more color
// layers plus optional depth and picking layers, all of the same size.
//
// An Image is immutable once published through an Outport. Resizing never
// happens in place; Resized returns a new Image and readers holding the old
// one keep a consistent view. Published images may therefore be read from
// any goroutine without locking.
type Image struct {
	size    Size
	color   []*Layer
	depth   *Layer
	picking *Layer
}

// ImageOption configures NewImage.
type ImageOption func(*imageConfig)

type imageConfig struct {
	colorLayers int
	depth       bool
	picking     bool
}

// WithColorLayers sets the number of color layers (default 1, minimum 1).
func WithColorLayers(n int) ImageOption {
	return func(c *imageConfig) {
		c.colorLayers = max(n, 1)
	}
}

// WithDepthLayer adds a depth layer.
func WithDepthLayer() ImageOption {
	return func(c *imageConfig) {
		c.depth = true
	}
}

// WithPickingLayer adds a picking layer.
func WithPickingLayer() ImageOption {
	return func(c *imageConfig) {
		c.picking = true
	}
}

// NewImage allocates a zeroed image of the given size.
func NewImage(size Size, opts ...ImageOption) (*Image, error) {
	if !size.IsValid() {
		return nil, fmt.Errorf("%w: image %s", ErrInvalidSize, size)
	}
	cfg := imageConfig{colorLayers: 1}
	for _, opt := range opts {
		opt(&cfg)
	}

	img := &Image{size: size, color: make([]*Layer, cfg.colorLayers)}
	for i := range img.color {
		img.color[i], _ = NewLayer(LayerColor, size)
	}
	if cfg.depth {
		img.depth, _ = NewLayer(LayerDepth, size)
	}
	if cfg.picking {
		img.picking, _ = NewLayer(LayerPicking, size)
	}
	return img, nil
}

// NewImageFromLayers assembles an image from existing layers. All layers
// must share one size and carry the matching LayerType; depth and picking
// may be nil.
func NewImageFromLayers(color []*Layer, depth, picking *Layer) (*Image, error) {
	if len(color) == 0 || color[0] == nil {
		return nil, ErrNoLayers
	}
	size := color[0].Size()
	check := func(l *Layer, want LayerType) error {
		if l.typ != want {
			return fmt.Errorf("%w: %s layer in %s slot", ErrLayerMismatch, l.typ, want)
		}
		if l.Size() != size {
			return fmt.Errorf("%w: %s layer is %s, image is %s", ErrLayerMismatch, l.typ, l.Size(), size)
		}
		return nil
	}
	for _, l := range color {
		if l == nil {
			return nil, ErrNoLayers
		}
		if err := check(l, LayerColor); err != nil {
			return nil, err
		}
	}
	if depth != nil {
		if err := check(depth, LayerDepth); err != nil {
			return nil, err
		}
	}
	if picking != nil {
		if err := check(picking, LayerPicking); err != nil {
			return nil, err
		}
	}
	return &Image{size: size, color: append([]*Layer(nil), color...), depth: depth, picking: picking}, nil
}

// FromImage copies src into a new single-color-layer image.
func FromImage(src image.Image) (*Image, error) {
	if src == nil || src.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty source image", ErrInvalidSize)
	}
	size := SizeOf(src.Bounds())
	pix := image.NewRGBA(size.Rect())
	draw.Copy(pix, image.Point{}, src, src.Bounds(), draw.Src, nil)
	layer, err := NewLayerFrom(LayerColor, pix)
	if err != nil {
		return nil, err
	}
	return &Image{size: size, color: []*Layer{layer}}, nil
}

// Size returns the image size.
func (img *Image) Size() Size { return img.size }

// ColorLayerCount returns the number of color layers (at least 1).
func (img *Image) ColorLayerCount() int { return len(img.color) }

// ColorLayer returns color layer i, or nil if out of range.
func (img *Image) ColorLayer(i int) *Layer {
	if i < 0 || i >= len(img.color) {
		return nil
	}
	return img.color[i]
}

// DepthLayer returns the depth layer, or nil.
func (img *Image) DepthLayer() *Layer { return img.depth }

// PickingLayer returns the picking layer, or nil.
func (img *Image) PickingLayer() *Layer { return img.picking }

// Layers returns every layer: color layers first, then depth, then picking.
func (img *Image) Layers() []*Layer {
	layers := make([]*Layer, 0, len(img.color)+2)
	layers = append(layers, img.color...)
	if img.depth != nil {
		layers = append(layers, img.depth)
	}
	if img.picking != nil {
		layers = append(layers, img.picking)
	}
	return layers
}

// Clone returns a deep copy.
func (img *Image) Clone() *Image {
	out := &Image{size: img.size, color: make([]*Layer, len(img.color))}
	for i, l := range img.color {
		out.color[i] = l.Clone()
	}
	if img.depth != nil {
		out.depth = img.depth.Clone()
	}
	if img.picking != nil {
		out.picking = img.picking.Clone()
	}
	return out
}

// Resized returns a new image of the given size resampled from img with r
// (DefaultResampler if nil). Layers are resampled in parallel. img is left
// untouched, also on error.
func (img *Image) Resized(size Size, r Resampler) (*Image, error) {
	if !size.IsValid() {
		return nil, fmt.Errorf("%w: resize to %s", ErrInvalidSize, size)
	}
	if size == img.size {
		return img.Clone(), nil
	}
	if r == nil {
		r = DefaultResampler()
	}

	src := img.Layers()
	dst := make([]*Layer, len(src))
	tasks := make([]func() error, len(src))
	for i, l := range src {
		tasks[i] = func() error {
			out, err := l.resampled(size, r)
			dst[i] = out
			return err
		}
	}
	if err := parallel.Default().Run(tasks); err != nil {
		return nil, fmt.Errorf("imgport: resize %s -> %s: %w", img.size, size, err)
	}

	out := &Image{size: size, color: dst[:len(img.color)]}
	rest := dst[len(img.color):]
	if img.depth != nil {
		out.depth, rest = rest[0], rest[1:]
	}
	if img.picking != nil {
		out.picking = rest[0]
	}
	return out, nil
}

// CopyRepresentationsTo writes img's layers into dst's layers in place,
// resampling with r (DefaultResampler if nil) when sizes differ. Color
// layers are paired by index up to the shorter list; depth and picking are
// copied when both images have them. dst must not be published yet.
func (img *Image) CopyRepresentationsTo(dst *Image, r Resampler) error {
	if dst == nil {
		return fmt.Errorf("%w: nil destination", ErrLayerMismatch)
	}
	if dst == img {
		return nil
	}
	if r == nil {
		r = DefaultResampler()
	}

	n := min(len(img.color), len(dst.color))
	for i := 0; i < n; i++ {
		if err := img.color[i].copyInto(dst.color[i], r); err != nil {
			return err
		}
	}
	if img.depth != nil && dst.depth != nil {
		if err := img.depth.copyInto(dst.depth, r); err != nil {
			return err
		}
	}
	if img.picking != nil && dst.picking != nil {
		if err := img.picking.copyInto(dst.picking, r); err != nil {
			return err
		}
	}
	return nil
}
