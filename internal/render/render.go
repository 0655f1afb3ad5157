// Package render draws a laid-out image onto a drawing surface.
package render

import (
	"errors"

	"github.com/treykane/pixview/internal/layout"
	"github.com/treykane/pixview/internal/raster"
)

// ErrLengthMismatch is returned when rects and colors differ in length.
var ErrLengthMismatch = errors.New("render: rects and colors differ in length")

// Surface is the drawing target provided by a graphics backend.
type Surface interface {
	SetDrawColor(c raster.Color)
	// FillRect fills r with the current draw color; nil fills the whole surface.
	FillRect(r *layout.PixelRect)
	// Present makes everything drawn since the previous Present visible at once.
	Present()
}

// Draw clears s to bg, fills rects[i] with colors[i] in index order and
// presents the frame. Nothing is drawn when the slices differ in length.
func Draw(s Surface, bg raster.Color, rects []layout.PixelRect, colors []raster.Color) error {
	if len(rects) != len(colors) {
		return ErrLengthMismatch
	}

	s.SetDrawColor(bg)
	s.FillRect(nil)

	for i := range rects {
		s.SetDrawColor(colors[i])
		s.FillRect(&rects[i])
	}

	s.Present()
	return nil
}
