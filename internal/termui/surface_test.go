package termui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"

	"github.com/treykane/pixview/internal/layout"
	"github.com/treykane/pixview/internal/raster"
	"github.com/treykane/pixview/internal/render"
)

func TestSurfaceRasterizesLayout(t *testing.T) {
	var frames []string
	s := newCellSurface(4, 4, func(f string) { frames = append(frames, f) })
	red, green, blue, white := raster.RGB(0xff0000), raster.RGB(0x00ff00), raster.RGB(0x0000ff), raster.RGB(0xffffff)

	rects := layout.Compute(4, 4, 2, 2)
	if err := render.Draw(s, raster.RGB(0x000000), rects, []raster.Color{red, green, blue, white}); err != nil {
		t.Fatalf("draw: %v", err)
	}

	want := []raster.Color{
		red, red, green, green,
		red, red, green, green,
		blue, blue, white, white,
		blue, blue, white, white,
	}
	for i := range want {
		if s.pix[i] != want[i] {
			t.Fatalf("pixel %d: expected %s, got %s", i, want[i].Hex(), s.pix[i].Hex())
		}
	}
	if len(frames) != 1 {
		t.Fatalf("expected one presented frame, got %d", len(frames))
	}
}

func TestSurfaceLetterboxKeepsBackground(t *testing.T) {
	s := newCellSurface(6, 2, nil)
	bg := raster.RGB(0x282c34)
	fg := raster.RGB(0xabcdef)

	if err := render.Draw(s, bg, layout.Compute(6, 2, 1, 1), []raster.Color{fg}); err != nil {
		t.Fatalf("draw: %v", err)
	}

	row := s.pix[:6]
	for x, c := range row {
		inside := x >= 2 && x < 4
		if inside && c != fg {
			t.Fatalf("pixel %d: expected image color, got %s", x, c.Hex())
		}
		if !inside && c != bg {
			t.Fatalf("pixel %d: expected background, got %s", x, c.Hex())
		}
	}
}

func TestSurfaceClipsRectsOutsideGrid(t *testing.T) {
	s := newCellSurface(3, 3, nil)
	s.SetDrawColor(raster.RGB(0x112233))

	s.FillRect(&layout.PixelRect{X: -2, Y: 1.6, W: 10, H: 10})
	s.FillRect(&layout.PixelRect{X: 50, Y: 50, W: 5, H: 5})

	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			got := s.pix[y*3+x]
			filled := y >= 2
			if filled != (got == raster.RGB(0x112233)) {
				t.Fatalf("pixel %d,%d: unexpected color %s", x, y, got.Hex())
			}
		}
	}
}

func TestComposeUsesHalfBlocksPerCell(t *testing.T) {
	var frame string
	s := newCellSurface(5, 6, func(f string) { frame = f })
	s.SetDrawColor(raster.RGB(0x808080))
	s.FillRect(nil)
	s.Present()

	lines := strings.Split(ansi.Strip(frame), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 terminal rows for 6 pixel rows, got %d", len(lines))
	}
	for i, line := range lines {
		if line != strings.Repeat(halfBlock, 5) {
			t.Fatalf("row %d: expected 5 half blocks, got %q", i, line)
		}
	}
}

func TestComposeOddHeightRepeatsLastRow(t *testing.T) {
	var frame string
	s := newCellSurface(2, 3, func(f string) { frame = f })
	s.FillRect(nil)
	s.Present()

	if lines := strings.Split(ansi.Strip(frame), "\n"); len(lines) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(lines))
	}
}

func TestSurfaceResizeAndClose(t *testing.T) {
	presented := 0
	s := newCellSurface(2, 2, func(string) { presented++ })

	s.resize(8, 4)
	if len(s.pix) != 32 {
		t.Fatalf("expected 32 pixels after resize, got %d", len(s.pix))
	}
	s.resize(-1, 4)
	if s.width != 0 || len(s.pix) != 0 {
		t.Fatalf("expected negative width clamped, got %d", s.width)
	}
	s.Present()
	if presented != 1 {
		t.Fatalf("expected empty frame presented, got %d", presented)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	s.FillRect(nil)
	s.Present()
	if presented != 1 {
		t.Fatal("expected closed surface to stop presenting")
	}
}
