package features

import (
	"image"
	"math"
	"math/bits"

	"gonum.org/v1/gonum/stat"
)

// ScoreSet holds the four per-pair feature scores, each in [0,1].
type ScoreSet struct {
	Pixel     float64
	Histogram float64
	Edge      float64
	Hash      float64
}

// Extract computes all four feature scores for a same-sized image pair.
func Extract(ref, test *image.RGBA) ScoreSet {
	refGray := NewGray(ref)
	testGray := NewGray(test)
	return ScoreSet{
		Pixel:     PixelSimilarity(ref, test),
		Histogram: HistogramSimilarity(refGray, testGray),
		Edge:      EdgeSimilarity(refGray, testGray),
		Hash:      HashSimilarity(AverageHash(refGray), AverageHash(testGray)),
	}
}

// PixelSimilarity inverts the mean absolute per-channel difference over all
// RGB pixels, normalized by the maximum channel value.
func PixelSimilarity(ref, test *image.RGBA) float64 {
	rb, tb := ref.Bounds(), test.Bounds()
	w := min(rb.Dx(), tb.Dx())
	h := min(rb.Dy(), tb.Dy())
	if w == 0 || h == 0 {
		return 0
	}
	diffs := make([]float64, 0, w*h*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			rp := ref.RGBAAt(rb.Min.X+x, rb.Min.Y+y)
			tp := test.RGBAAt(tb.Min.X+x, tb.Min.Y+y)
			diffs = append(diffs,
				math.Abs(float64(rp.R)-float64(tp.R)),
				math.Abs(float64(rp.G)-float64(tp.G)),
				math.Abs(float64(rp.B)-float64(tp.B)),
			)
		}
	}
	return clamp01(1 - stat.Mean(diffs, nil)/255)
}

// HistogramSimilarity computes the intersection of the two 256-bin grayscale
// intensity histograms divided by the total histogram mass.
func HistogramSimilarity(refGray, testGray *Gray) float64 {
	var refHist, testHist [256]float64
	for _, v := range refGray.pix {
		refHist[v]++
	}
	for _, v := range testGray.pix {
		testHist[v]++
	}
	var overlap, total float64
	for i := 0; i < 256; i++ {
		overlap += min(refHist[i], testHist[i])
		total += refHist[i]
	}
	if total == 0 {
		return 0
	}
	return clamp01(overlap / total)
}

// EdgeSimilarity applies a 3×3 edge filter to both grayscale images and
// inverts the mean absolute difference of the edge maps.
func EdgeSimilarity(refGray, testGray *Gray) float64 {
	refEdges := edgeMap(refGray)
	testEdges := edgeMap(testGray)
	n := min(len(refEdges.pix), len(testEdges.pix))
	if n == 0 {
		return 0
	}
	diffs := make([]float64, n)
	for i := 0; i < n; i++ {
		diffs[i] = math.Abs(float64(refEdges.pix[i]) - float64(testEdges.pix[i]))
	}
	return clamp01(1 - stat.Mean(diffs, nil)/255)
}

// AverageHash downsamples the grayscale image to 8×8 cells and binarizes each
// cell against the image mean, producing a 64-bit fingerprint.
func AverageHash(gray *Gray) uint64 {
	const cells = 8
	if gray.w == 0 || gray.h == 0 {
		return 0
	}

	var sums [cells * cells]float64
	var counts [cells * cells]float64
	for y := 0; y < gray.h; y++ {
		cy := y * cells / gray.h
		for x := 0; x < gray.w; x++ {
			cx := x * cells / gray.w
			idx := cy*cells + cx
			sums[idx] += float64(gray.pix[y*gray.w+x])
			counts[idx]++
		}
	}

	var mean float64
	cellValues := make([]float64, cells*cells)
	for i := range sums {
		if counts[i] > 0 {
			cellValues[i] = sums[i] / counts[i]
		}
		mean += cellValues[i]
	}
	mean /= cells * cells

	var hash uint64
	for i, v := range cellValues {
		if v >= mean {
			hash |= 1 << uint(i)
		}
	}
	return hash
}

// HashSimilarity converts the Hamming distance between two 64-bit fingerprints
// into a similarity score.
func HashSimilarity(a, b uint64) float64 {
	distance := bits.OnesCount64(a ^ b)
	return clamp01(1 - float64(distance)/64)
}

// Gray is a packed 8-bit luminance buffer.
type Gray struct {
	w, h int
	pix  []uint8
}

// NewGray converts an RGBA buffer to luminance.
func NewGray(img *image.RGBA) *Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := &Gray{w: w, h: h, pix: make([]uint8, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := img.RGBAAt(b.Min.X+x, b.Min.Y+y)
			lum := 0.299*float64(p.R) + 0.587*float64(p.G) + 0.114*float64(p.B)
			out.pix[y*w+x] = uint8(math.Round(lum))
		}
	}
	return out
}

// edgeMap convolves a Laplacian kernel over the luminance buffer, clamping to
// the 8-bit range. Border pixels are left at zero.
func edgeMap(gray *Gray) *Gray {
	out := &Gray{w: gray.w, h: gray.h, pix: make([]uint8, len(gray.pix))}
	for y := 1; y < gray.h-1; y++ {
		for x := 1; x < gray.w-1; x++ {
			center := 8 * int(gray.pix[y*gray.w+x])
			neighbors := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					neighbors += int(gray.pix[(y+dy)*gray.w+(x+dx)])
				}
			}
			value := center - neighbors
			if value < 0 {
				value = 0
			}
			if value > 255 {
				value = 255
			}
			out.pix[y*gray.w+x] = uint8(value)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
