package imaging

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"pillcheck/internal/services"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// exifJPEG encodes img as JPEG and splices in an APP1 segment carrying the
// supplied EXIF orientation.
func exifJPEG(t *testing.T, img image.Image, orientation uint16) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	encoded := buf.Bytes()

	tiff := make([]byte, 0, 26)
	tiff = append(tiff, 'I', 'I')
	tiff = binary.LittleEndian.AppendUint16(tiff, 42)
	tiff = binary.LittleEndian.AppendUint32(tiff, 8)
	tiff = binary.LittleEndian.AppendUint16(tiff, 1) // one IFD entry
	tiff = binary.LittleEndian.AppendUint16(tiff, 0x0112)
	tiff = binary.LittleEndian.AppendUint16(tiff, 3) // SHORT
	tiff = binary.LittleEndian.AppendUint32(tiff, 1)
	tiff = binary.LittleEndian.AppendUint16(tiff, orientation)
	tiff = append(tiff, 0, 0) // value field padding
	tiff = binary.LittleEndian.AppendUint32(tiff, 0)

	payload := append([]byte("Exif\x00\x00"), tiff...)
	app1 := []byte{0xFF, 0xE1}
	app1 = binary.BigEndian.AppendUint16(app1, uint16(len(payload)+2))
	app1 = append(app1, payload...)

	out := make([]byte, 0, len(encoded)+len(app1))
	out = append(out, encoded[:2]...)
	out = append(out, app1...)
	out = append(out, encoded[2:]...)
	return out
}

func TestDecodeRejectsInvalidBytes(t *testing.T) {
	if _, err := Decode([]byte("not an image")); !errors.Is(err, services.ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if _, err := Decode(nil); !errors.Is(err, services.ErrDecode) {
		t.Fatalf("expected ErrDecode for empty input, got %v", err)
	}
}

func TestDecodePNG(t *testing.T) {
	data := encodePNG(t, solidImage(10, 6, color.RGBA{R: 200, A: 255}))
	img, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if img.Bounds().Dx() != 10 || img.Bounds().Dy() != 6 {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}
}

func TestOrientationParsing(t *testing.T) {
	base := solidImage(8, 4, color.RGBA{R: 255, A: 255})
	for _, want := range []uint16{1, 3, 6, 8} {
		data := exifJPEG(t, base, want)
		if got := Orientation(data); got != int(want) {
			t.Errorf("orientation %d: parsed %d", want, got)
		}
	}
	if got := Orientation(encodePNG(t, base)); got != 1 {
		t.Errorf("expected default orientation for PNG bytes, got %d", got)
	}
}

func TestDecodeAppliesOrientation(t *testing.T) {
	// Orientation 6 stores the image rotated; decoding must swap dimensions back.
	data := exifJPEG(t, solidImage(8, 4, color.RGBA{G: 255, A: 255}), 6)
	img, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 8 {
		t.Fatalf("expected rotated bounds 4x8, got %v", img.Bounds())
	}
}

func TestLetterboxPreservesAspect(t *testing.T) {
	img := solidImage(100, 50, color.RGBA{B: 255, A: 255})
	boxed := Letterbox(img, CanvasSize)
	if boxed.Bounds().Dx() != CanvasSize || boxed.Bounds().Dy() != CanvasSize {
		t.Fatalf("unexpected canvas bounds %v", boxed.Bounds())
	}
	// Top rows are padding and must stay white.
	top := boxed.RGBAAt(CanvasSize/2, 0)
	if top.R != 255 || top.G != 255 || top.B != 255 {
		t.Fatalf("expected white padding, got %v", top)
	}
	center := boxed.RGBAAt(CanvasSize/2, CanvasSize/2)
	if center.B < 200 {
		t.Fatalf("expected source pixels at center, got %v", center)
	}
}

func TestCenterCropRatios(t *testing.T) {
	img := solidImage(100, 100, color.RGBA{R: 10, A: 255})
	crop := CenterCrop(img, 0.75)
	if crop.Bounds().Dx() != 75 || crop.Bounds().Dy() != 75 {
		t.Fatalf("unexpected crop bounds %v", crop.Bounds())
	}
	full := CenterCrop(img, 1.0)
	if full.Bounds() != img.Bounds() {
		t.Fatalf("expected identical bounds for ratio 1.0, got %v", full.Bounds())
	}
}

func TestRotateQuartersRoundTrip(t *testing.T) {
	img := solidImage(6, 3, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	img.SetRGBA(0, 0, color.RGBA{R: 99, A: 255})

	rotated := img
	for i := 0; i < 4; i++ {
		rotated = RotateQuarters(rotated, 1)
	}
	if rotated.Bounds() != img.Bounds() {
		t.Fatalf("expected original bounds after four rotations, got %v", rotated.Bounds())
	}
	if rotated.RGBAAt(0, 0).R != 99 {
		t.Fatal("expected corner pixel restored after four rotations")
	}
}

func TestVariantCounts(t *testing.T) {
	img := solidImage(40, 40, color.RGBA{R: 50, A: 255})
	if got := len(ReferenceVariants(img)); got != 3 {
		t.Fatalf("expected 3 reference variants, got %d", got)
	}
	if got := len(TestVariants(img)); got != 12 {
		t.Fatalf("expected 12 test variants, got %d", got)
	}
}
