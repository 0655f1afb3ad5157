// Package layout maps image pixels onto window coordinates.
//
// The image is scaled by the largest uniform factor that keeps it entirely
// inside the window and is then centered (letterboxing). Every image pixel
// becomes one PixelRect of side scale; rects are returned in the same
// row-major order as the image's pixel buffer.
package layout

// PixelRect is the destination of one image pixel in window coordinates.
type PixelRect struct {
	X, Y, W, H float64
}

// Scale returns the aspect-fit scale factor. A window with a non-positive
// dimension has scale 0; image dimensions must be positive.
func Scale(windowW, windowH, imageW, imageH int) float64 {
	if windowW <= 0 || windowH <= 0 || imageW <= 0 || imageH <= 0 {
		return 0
	}
	return min(float64(windowH)/float64(imageH), float64(windowW)/float64(imageW))
}

// Offset returns the top-left corner of the scaled image inside the window.
func Offset(windowW, windowH, imageW, imageH int) (x, y float64) {
	scale := Scale(windowW, windowH, imageW, imageH)
	x = (float64(windowW) - scale*float64(imageW)) / 2
	y = (float64(windowH) - scale*float64(imageH)) / 2
	return x, y
}

// Compute returns imageW*imageH rects for an image drawn aspect-fit into a
// windowW x windowH window. It returns nil when the image has no pixels.
func Compute(windowW, windowH, imageW, imageH int) []PixelRect {
	if imageW <= 0 || imageH <= 0 {
		return nil
	}
	scale := Scale(windowW, windowH, imageW, imageH)
	offsetX, offsetY := Offset(windowW, windowH, imageW, imageH)

	rects := make([]PixelRect, imageW*imageH)
	for y := 0; y < imageH; y++ {
		row := rects[y*imageW : (y+1)*imageW]
		for x := range row {
			row[x] = PixelRect{
				X: offsetX + float64(x)*scale,
				Y: offsetY + float64(y)*scale,
				W: scale,
				H: scale,
			}
		}
	}
	return rects
}
