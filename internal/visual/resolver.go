package visual

import (
	"crypto/sha256"

	"pillcheck/internal/features"
	"pillcheck/internal/imaging"
)

// Resolver computes the visual similarity score for raw image byte pairs.
type Resolver struct {
	canvasSize int
}

// NewResolver constructs a resolver using the standard letterbox canvas.
func NewResolver() *Resolver {
	return &Resolver{canvasSize: imaging.CanvasSize}
}

// Score returns the maximum blended feature score over every crop×rotation
// variant pair, in [0,1]. Identical byte content scores 1.0 without running
// the variant search. Decode failures are fatal for the candidate.
func (r *Resolver) Score(referenceBytes, testBytes []byte) (float64, error) {
	if sha256.Sum256(referenceBytes) == sha256.Sum256(testBytes) {
		return 1.0, nil
	}

	reference, err := imaging.Decode(referenceBytes)
	if err != nil {
		return 0, err
	}
	test, err := imaging.Decode(testBytes)
	if err != nil {
		return 0, err
	}

	best := 0.0
	for _, refVariant := range imaging.ReferenceVariants(reference) {
		refCanvas := imaging.Letterbox(refVariant, r.canvasSize)
		for _, testVariant := range imaging.TestVariants(test) {
			testCanvas := imaging.Letterbox(testVariant, r.canvasSize)
			if score := features.Extract(refCanvas, testCanvas).Blend(); score > best {
				best = score
			}
		}
	}
	if best > 1 {
		best = 1
	}
	return best, nil
}
