package imaging

import (
	"bytes"
	"image"
	"image/draw"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"pillcheck/internal/services"
)

// Decode parses image bytes into an RGBA buffer, correcting JPEG EXIF
// orientation. Unreadable bytes are a fatal condition for the candidate
// being scored.
func Decode(data []byte) (*image.RGBA, error) {
	if len(data) == 0 {
		return nil, services.Wrap(services.ErrDecode, "imaging", "decode", "empty image data", nil)
	}
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, services.Wrap(services.ErrDecode, "imaging", "decode", "invalid image data", err)
	}

	rgba := toRGBA(src)
	if format == "jpeg" {
		rgba = applyOrientation(rgba, Orientation(data))
	}
	return rgba, nil
}

func toRGBA(src image.Image) *image.RGBA {
	if rgba, ok := src.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	bounds := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, bounds.Min, draw.Src)
	return rgba
}

// applyOrientation maps EXIF orientation values 2-8 onto the flip/rotation that
// restores upright pixels. Value 1 and anything out of range are passthrough.
func applyOrientation(img *image.RGBA, orientation int) *image.RGBA {
	switch orientation {
	case 2:
		return flipHorizontal(img)
	case 3:
		return RotateQuarters(img, 2)
	case 4:
		return flipVertical(img)
	case 5:
		return flipHorizontal(RotateQuarters(img, 3))
	case 6:
		return RotateQuarters(img, 3)
	case 7:
		return flipHorizontal(RotateQuarters(img, 1))
	case 8:
		return RotateQuarters(img, 1)
	default:
		return img
	}
}

func flipHorizontal(img *image.RGBA) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.SetRGBA(b.Dx()-1-x, y, img.RGBAAt(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}

func flipVertical(img *image.RGBA) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.SetRGBA(x, b.Dy()-1-y, img.RGBAAt(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}
