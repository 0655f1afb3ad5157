package termui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/treykane/pixview/internal/layout"
	"github.com/treykane/pixview/internal/raster"
)

// halfBlock paints the upper half of a cell in the foreground color and the
// lower half in the background color, giving two pixels per cell.
const halfBlock = "▀"

// cellSurface rasterizes fills into a pixel grid and composes it into
// half-block terminal rows on Present. Each terminal row covers two pixel
// rows, so the grid height is twice the number of image rows on screen.
type cellSurface struct {
	width  int
	height int
	pix    []raster.Color
	color  raster.Color
	styles map[[2]raster.Color]lipgloss.Style

	// present receives every composed frame. It must not block for long;
	// the window hands frames to the UI goroutine.
	present func(frame string)
	closed  bool
}

func newCellSurface(width, height int, present func(string)) *cellSurface {
	s := &cellSurface{
		styles:  map[[2]raster.Color]lipgloss.Style{},
		present: present,
	}
	s.resize(width, height)
	return s
}

func (s *cellSurface) resize(width, height int) {
	s.width, s.height = max(0, width), max(0, height)
	s.pix = make([]raster.Color, s.width*s.height)
}

func (s *cellSurface) SetDrawColor(c raster.Color) { s.color = c }

// FillRect fills every pixel whose top-left corner lies inside r after
// rounding its edges to the grid. Parts outside the surface are clipped.
func (s *cellSurface) FillRect(r *layout.PixelRect) {
	if s.closed {
		return
	}
	if r == nil {
		for i := range s.pix {
			s.pix[i] = s.color
		}
		return
	}
	x0, x1 := s.span(r.X, r.W, s.width)
	y0, y1 := s.span(r.Y, r.H, s.height)
	for y := y0; y < y1; y++ {
		row := s.pix[y*s.width : (y+1)*s.width]
		for x := x0; x < x1; x++ {
			row[x] = s.color
		}
	}
}

func (s *cellSurface) span(start, size float64, limit int) (int, int) {
	lo := clamp(int(math.Round(start)), 0, limit)
	hi := clamp(int(math.Round(start+size)), 0, limit)
	return lo, hi
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// Present composes the grid and hands it off as a single string.
func (s *cellSurface) Present() {
	if s.closed || s.present == nil {
		return
	}
	s.present(s.compose())
}

func (s *cellSurface) compose() string {
	if s.width == 0 || s.height == 0 {
		return ""
	}
	rows := (s.height + 1) / 2
	lines := make([]string, 0, rows)
	var line strings.Builder
	for cy := 0; cy < rows; cy++ {
		line.Reset()
		top := s.pix[2*cy*s.width : (2*cy+1)*s.width]
		bottom := top
		if 2*cy+1 < s.height {
			bottom = s.pix[(2*cy+1)*s.width : (2*cy+2)*s.width]
		}
		// Neighbouring cells with identical colors share one styled run.
		for x := 0; x < s.width; {
			pair := [2]raster.Color{top[x], bottom[x]}
			run := 1
			for x+run < s.width && top[x+run] == pair[0] && bottom[x+run] == pair[1] {
				run++
			}
			line.WriteString(s.style(pair).Render(strings.Repeat(halfBlock, run)))
			x += run
		}
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

func (s *cellSurface) style(pair [2]raster.Color) lipgloss.Style {
	if st, ok := s.styles[pair]; ok {
		return st
	}
	st := lipgloss.NewStyle().
		Foreground(lipgloss.Color(pair[0].Hex())).
		Background(lipgloss.Color(pair[1].Hex()))
	s.styles[pair] = st
	return st
}

func (s *cellSurface) Close() error {
	s.closed = true
	s.pix = nil
	s.styles = nil
	return nil
}
