// Package raster holds the decoded pixel buffer displayed by the viewer and
// the PPM codec that produces it.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"
)

// MaxPixels bounds width*height so a corrupt header cannot request an
// absurd allocation.
const MaxPixels = 1 << 28

// Color is an opaque 8-bit RGB value.
type Color struct {
	R, G, B uint8
}

// RGB builds a Color from a 0xRRGGBB literal.
func RGB(hex uint32) Color {
	return Color{R: uint8(hex >> 16), G: uint8(hex >> 8), B: uint8(hex)}
}

// Hex formats the color as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}.RGBA()
}

// ParseColor accepts "#rrggbb", "rrggbb" or "#rgb".
func ParseColor(value string) (Color, error) {
	s := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return Color{}, fmt.Errorf("invalid color %q", value)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", value, err)
	}
	return RGB(uint32(v)), nil
}

// Image is a row-major RGB pixel buffer. Width and Height are always > 0 for
// images returned by this package.
type Image struct {
	Width  int
	Height int
	Pix    []Color
}

// New allocates a black image.
func New(width, height int) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", width, height)
	}
	if width > MaxPixels/height {
		return nil, fmt.Errorf("dimensions %dx%d exceed %d pixels", width, height, MaxPixels)
	}
	return &Image{Width: width, Height: height, Pix: make([]Color, width*height)}, nil
}

// NumPixels returns Width*Height.
func (m *Image) NumPixels() int {
	return m.Width * m.Height
}

// RGBAt returns the pixel at (x, y). Out of range coordinates yield black.
func (m *Image) RGBAt(x, y int) Color {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return Color{}
	}
	return m.Pix[y*m.Width+x]
}

// SetRGB stores c at (x, y); out of range writes are ignored.
func (m *Image) SetRGB(x, y int, c Color) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Pix[y*m.Width+x] = c
}

// ColorModel, Bounds and At let an Image be used wherever the standard
// library expects an image.Image.
func (m *Image) ColorModel() color.Model { return color.RGBAModel }

func (m *Image) Bounds() image.Rectangle { return image.Rect(0, 0, m.Width, m.Height) }

func (m *Image) At(x, y int) color.Color { return m.RGBAt(x, y) }

// DecodeError reports why a file could not be turned into an Image.
type DecodeError struct {
	Path   string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	var b strings.Builder
	if e.Path != "" {
		b.WriteString("decode ")
		b.WriteString(strconv.Quote(e.Path))
		b.WriteString(": ")
	}
	b.WriteString(e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecodeError reports whether err carries a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
