package imaging

import "image"

// cropRatios simulate minor framing variance between the reference photo and
// the verification photo.
var cropRatios = []float64{1.00, 0.90, 0.75}

// ReferenceVariants returns the center crops evaluated for the reference image.
func ReferenceVariants(img *image.RGBA) []*image.RGBA {
	variants := make([]*image.RGBA, 0, len(cropRatios))
	for _, ratio := range cropRatios {
		variants = append(variants, CenterCrop(img, ratio))
	}
	return variants
}

// TestVariants returns every crop×rotation combination evaluated for the test
// image. Rotations apply to the test image only: the search is deliberately
// asymmetric in its two arguments.
func TestVariants(img *image.RGBA) []*image.RGBA {
	variants := make([]*image.RGBA, 0, len(cropRatios)*4)
	for _, ratio := range cropRatios {
		crop := CenterCrop(img, ratio)
		for quarters := 0; quarters < 4; quarters++ {
			variants = append(variants, RotateQuarters(crop, quarters))
		}
	}
	return variants
}
