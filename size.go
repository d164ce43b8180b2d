package imgport

import (
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/gogpu/gputypes"
)

// Size is a pixel extent. The zero Size means "nothing requested".
type Size struct {
	Width  int
	Height int
}

// SizeOf returns the size of a rectangle.
func SizeOf(r image.Rectangle) Size {
	return Size{Width: r.Dx(), Height: r.Dy()}
}

// IsZero reports whether both sides are zero.
func (s Size) IsZero() bool {
	return s.Width == 0 && s.Height == 0
}

// IsValid reports whether both sides are positive.
func (s Size) IsValid() bool {
	return s.Width > 0 && s.Height > 0
}

// Max returns the componentwise maximum of s and o.
func (s Size) Max(o Size) Size {
	return Size{Width: max(s.Width, o.Width), Height: max(s.Height, o.Height)}
}

// Area returns Width*Height.
func (s Size) Area() int {
	return s.Width * s.Height
}

// Rect returns the rectangle with origin (0,0) and this size.
func (s Size) Rect() image.Rectangle {
	return image.Rect(0, 0, s.Width, s.Height)
}

// Extent returns the 2D texture extent used when uploading a layer of this
// size to the GPU.
func (s Size) Extent() gputypes.Extent3D {
	return gputypes.NewExtent2D(uint32(max(s.Width, 0)), uint32(max(s.Height, 0))) //nolint:gosec // clamped to >= 0
}

// String formats the size as "WxH".
func (s Size) String() string {
	return strconv.Itoa(s.Width) + "x" + strconv.Itoa(s.Height)
}

// MaxSize returns the componentwise maximum of sizes, or the zero Size.
func MaxSize(sizes ...Size) Size {
	var m Size
	for _, s := range sizes {
		m = m.Max(s)
	}
	return m
}

// ParseSize parses "WxH" (also accepting "W,H"). Sides must be >= 0.
func ParseSize(s string) (Size, error) {
	w, h, ok := strings.Cut(strings.TrimSpace(s), "x")
	if !ok {
		w, h, ok = strings.Cut(strings.TrimSpace(s), ",")
	}
	if !ok {
		return Size{}, fmt.Errorf("%w: %q is not WxH", ErrInvalidSize, s)
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return Size{}, fmt.Errorf("%w: width in %q: %v", ErrInvalidSize, s, err)
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return Size{}, fmt.Errorf("%w: height in %q: %v", ErrInvalidSize, s, err)
	}
	if width < 0 || height < 0 {
		return Size{}, fmt.Errorf("%w: negative side in %q", ErrInvalidSize, s)
	}
	return Size{Width: width, Height: height}, nil
}
