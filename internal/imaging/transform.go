package imaging

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// CanvasSize is the square edge length both images of a pair are letterboxed
// onto before feature extraction.
const CanvasSize = 256

// Letterbox scales src onto a white size×size canvas, preserving aspect ratio
// and centering the result.
func Letterbox(src *image.RGBA, size int) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return canvas
	}

	scaledW, scaledH := size, size
	if w >= h {
		scaledH = max(1, h*size/w)
	} else {
		scaledW = max(1, w*size/h)
	}

	offsetX := (size - scaledW) / 2
	offsetY := (size - scaledH) / 2
	target := image.Rect(offsetX, offsetY, offsetX+scaledW, offsetY+scaledH)
	xdraw.ApproxBiLinear.Scale(canvas, target, src, b, xdraw.Over, nil)
	return canvas
}

// CenterCrop returns a centered crop covering ratio of each dimension.
// Ratio 1.0 returns a copy of the full image.
func CenterCrop(src *image.RGBA, ratio float64) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	cw := max(1, int(float64(w)*ratio))
	ch := max(1, int(float64(h)*ratio))
	left := b.Min.X + max(0, (w-cw)/2)
	top := b.Min.Y + max(0, (h-ch)/2)

	out := image.NewRGBA(image.Rect(0, 0, cw, ch))
	draw.Draw(out, out.Bounds(), src, image.Pt(left, top), draw.Src)
	return out
}

// RotateQuarters rotates src counter-clockwise by quarters×90 degrees,
// expanding the canvas as needed.
func RotateQuarters(src *image.RGBA, quarters int) *image.RGBA {
	quarters = ((quarters % 4) + 4) % 4
	if quarters == 0 {
		return src
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	var out *image.RGBA
	switch quarters {
	case 1:
		out = image.NewRGBA(image.Rect(0, 0, h, w))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.SetRGBA(y, w-1-x, src.RGBAAt(b.Min.X+x, b.Min.Y+y))
			}
		}
	case 2:
		out = image.NewRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.SetRGBA(w-1-x, h-1-y, src.RGBAAt(b.Min.X+x, b.Min.Y+y))
			}
		}
	case 3:
		out = image.NewRGBA(image.Rect(0, 0, h, w))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.SetRGBA(h-1-y, x, src.RGBAAt(b.Min.X+x, b.Min.Y+y))
			}
		}
	}
	return out
}
