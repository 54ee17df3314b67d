package features

// Blend weights for the four feature scores. The four signals are individually
// noisy; pixel difference carries the most weight because it is the hardest to
// satisfy by accident on the letterboxed canvas.
const (
	pixelWeight     = 0.35
	histogramWeight = 0.25
	edgeWeight      = 0.20
	hashWeight      = 0.20

	// confidenceFloor is the blended score at which agreement across all four
	// signals is treated as corroborating evidence worth a boost. Boosting
	// below the floor would reward borderline matches.
	confidenceFloor = 0.85
	confidenceBoost = 0.08
)

// Blend fuses the four feature scores into a single pair score, applying the
// high-confidence boost and clamping to [0,1].
func (s ScoreSet) Blend() float64 {
	blended := pixelWeight*s.Pixel +
		histogramWeight*s.Histogram +
		edgeWeight*s.Edge +
		hashWeight*s.Hash
	if blended >= confidenceFloor {
		blended += confidenceBoost
	}
	return clamp01(blended)
}
