package features

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func checkerboard(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.SetRGBA(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
			} else {
				img.SetRGBA(x, y, color.RGBA{A: 255})
			}
		}
	}
	return img
}

func TestExtractIdenticalImages(t *testing.T) {
	img := checkerboard(64, 64)
	scores := Extract(img, img)
	for name, score := range map[string]float64{
		"pixel":     scores.Pixel,
		"histogram": scores.Histogram,
		"edge":      scores.Edge,
		"hash":      scores.Hash,
	} {
		if score != 1.0 {
			t.Errorf("%s similarity for identical images = %v, want 1.0", name, score)
		}
	}
}

func TestExtractScoresInRange(t *testing.T) {
	pairs := [][2]*image.RGBA{
		{solid(64, 64, color.RGBA{R: 255, A: 255}), solid(64, 64, color.RGBA{B: 255, A: 255})},
		{checkerboard(64, 64), solid(64, 64, color.RGBA{R: 128, G: 128, B: 128, A: 255})},
		{solid(64, 64, color.RGBA{A: 255}), solid(64, 64, color.RGBA{R: 255, G: 255, B: 255, A: 255})},
	}
	for i, pair := range pairs {
		scores := Extract(pair[0], pair[1])
		for name, score := range map[string]float64{
			"pixel":     scores.Pixel,
			"histogram": scores.Histogram,
			"edge":      scores.Edge,
			"hash":      scores.Hash,
		} {
			if score < 0 || score > 1 {
				t.Errorf("pair %d: %s similarity out of range: %v", i, name, score)
			}
		}
	}
}

func TestPixelSimilarityOppositeExtremes(t *testing.T) {
	black := solid(32, 32, color.RGBA{A: 255})
	white := solid(32, 32, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	if got := PixelSimilarity(black, white); got != 0 {
		t.Fatalf("expected 0 for black vs white, got %v", got)
	}
}

func TestHashSimilarityBoundaries(t *testing.T) {
	if got := HashSimilarity(0xDEADBEEF, 0xDEADBEEF); got != 1.0 {
		t.Fatalf("zero Hamming distance must yield 1.0, got %v", got)
	}
	if got := HashSimilarity(0, ^uint64(0)); got != 0.0 {
		t.Fatalf("Hamming distance 64 must yield 0.0, got %v", got)
	}
	// One differing bit.
	want := 1 - 1.0/64
	if got := HashSimilarity(0, 1); math.Abs(got-want) > 1e-12 {
		t.Fatalf("expected %v for one-bit difference, got %v", want, got)
	}
}

func TestAverageHashBinarizesAgainstMean(t *testing.T) {
	// Left half black, right half white: cells split cleanly at the mean.
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if x < 32 {
				img.SetRGBA(x, y, color.RGBA{A: 255})
			} else {
				img.SetRGBA(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
			}
		}
	}
	hash := AverageHash(NewGray(img))
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			bit := hash>>(uint(row*8+col))&1 == 1
			if col < 4 && bit {
				t.Fatalf("cell (%d,%d) below mean should be 0", row, col)
			}
			if col >= 4 && !bit {
				t.Fatalf("cell (%d,%d) above mean should be 1", row, col)
			}
		}
	}
}

func TestBlendWeights(t *testing.T) {
	scores := ScoreSet{Pixel: 0.4, Histogram: 0.4, Edge: 0.4, Hash: 0.4}
	want := 0.35*0.4 + 0.25*0.4 + 0.20*0.4 + 0.20*0.4
	if got := scores.Blend(); math.Abs(got-want) > 1e-12 {
		t.Fatalf("Blend = %v, want %v", got, want)
	}
}

func TestBlendBoost(t *testing.T) {
	// Above the confidence floor: boost applies.
	above := ScoreSet{Pixel: 0.86, Histogram: 0.86, Edge: 0.86, Hash: 0.86}
	if got := above.Blend(); math.Abs(got-0.94) > 1e-9 {
		t.Fatalf("expected boosted score 0.94, got %v", got)
	}
	// Below the floor: no boost.
	below := ScoreSet{Pixel: 0.84, Histogram: 0.84, Edge: 0.84, Hash: 0.84}
	if got := below.Blend(); math.Abs(got-0.84) > 1e-9 {
		t.Fatalf("expected unboosted score 0.84, got %v", got)
	}
	// Boosted value never exceeds 1.0.
	high := ScoreSet{Pixel: 1, Histogram: 1, Edge: 1, Hash: 1}
	if got := high.Blend(); got != 1.0 {
		t.Fatalf("expected clamp to 1.0, got %v", got)
	}
}
