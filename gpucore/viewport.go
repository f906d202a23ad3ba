package gpucore

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Viewport maps normalized device coordinates to render-target pixels.
type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

// NewViewport returns a viewport covering width x height with depth [0, 1].
func NewViewport(width, height float32) Viewport {
	return Viewport{Width: width, Height: height, MaxDepth: 1}
}

// Validate reports an error for non-finite values, negative extents or a
// depth range outside [0, 1].
func (v Viewport) Validate() error {
	for _, f := range [...]float32{v.X, v.Y, v.Width, v.Height, v.MinDepth, v.MaxDepth} {
		if math32.IsNaN(f) || math32.IsInf(f, 0) {
			return fmt.Errorf("%w: non-finite value in %+v", ErrInvalidViewport, v)
		}
	}
	if v.Width < 0 || v.Height < 0 {
		return fmt.Errorf("%w: negative extent %gx%g", ErrInvalidViewport, v.Width, v.Height)
	}
	if v.MinDepth < 0 || v.MaxDepth > 1 || v.MinDepth > v.MaxDepth {
		return fmt.Errorf("%w: depth range [%g, %g]", ErrInvalidViewport, v.MinDepth, v.MaxDepth)
	}
	return nil
}

// Empty reports whether the viewport covers no pixels.
func (v Viewport) Empty() bool {
	return v.Width == 0 || v.Height == 0
}

// Round returns the viewport snapped to whole pixels.
func (v Viewport) Round() Viewport {
	v.X = math32.Round(v.X)
	v.Y = math32.Round(v.Y)
	v.Width = math32.Round(v.Width)
	v.Height = math32.Round(v.Height)
	return v
}
