package verify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pillcheck/internal/composition"
	"pillcheck/internal/ledger"
	"pillcheck/internal/logging"
	"pillcheck/internal/services"
	"pillcheck/internal/services/vlm"
	"pillcheck/internal/visual"
)

// strongImageGate is the image similarity above which a weak text signal is
// forgiven.
const strongImageGate = 0.9

// Thresholds are the fusion and gating parameters for a run.
type Thresholds struct {
	ApprovalScore     float64
	TextScoreMin      float64
	CompositionWeight float64
	MaxAttempts       int
}

// ReferenceResolver yields the stored reference URLs for a patient/medicine
// pair, best first.
type ReferenceResolver interface {
	Resolve(ctx context.Context, patientID, medicineID string) []string
}

// ImageFetcher downloads image bytes from a URL.
type ImageFetcher interface {
	Fetch(ctx context.Context, imageURL string) ([]byte, error)
}

// EmbeddingProvider reports an embedding similarity signal. The boolean is
// false when the signal is absent.
type EmbeddingProvider interface {
	Similarity(ctx context.Context, referenceBytes, testBytes []byte) (float64, bool)
}

// ModelJudge submits an image pair to the vision-language model.
type ModelJudge interface {
	Judge(ctx context.Context, referenceBytes, testBytes []byte, medicineID string) (vlm.Judgment, error)
}

// AttemptLedger persists and counts verification attempts.
type AttemptLedger interface {
	CountAttempts(ctx context.Context, patientID, medicineID, dateKey string) (int, error)
	RecordAttempt(ctx context.Context, attempt *ledger.Attempt) error
}

// Params wires an Engine. Visual defaults to a fresh resolver; References,
// Embedding, Judge, and Ledger may be nil when the corresponding backend is
// not configured.
type Params struct {
	Thresholds Thresholds
	Visual     *visual.Resolver
	Fetcher    ImageFetcher
	References ReferenceResolver
	Embedding  EmbeddingProvider
	Judge      ModelJudge
	Ledger     AttemptLedger
	Hints      composition.Hints
	Logger     *slog.Logger
	Now        func() time.Time
}

// Engine runs verification requests.
type Engine struct {
	thresholds Thresholds
	visual     *visual.Resolver
	fetcher    ImageFetcher
	references ReferenceResolver
	embedding  EmbeddingProvider
	judge      ModelJudge
	ledger     AttemptLedger
	hints      composition.Hints
	logger     *slog.Logger
	now        func() time.Time
}

// NewEngine constructs an engine from the supplied collaborators.
func NewEngine(params Params) *Engine {
	engine := &Engine{
		thresholds: params.Thresholds,
		visual:     params.Visual,
		fetcher:    params.Fetcher,
		references: params.References,
		embedding:  params.Embedding,
		judge:      params.Judge,
		ledger:     params.Ledger,
		hints:      params.Hints,
		logger:     params.Logger,
		now:        params.Now,
	}
	if engine.visual == nil {
		engine.visual = visual.NewResolver()
	}
	if engine.logger == nil {
		engine.logger = logging.NewNop()
	}
	if engine.now == nil {
		engine.now = time.Now
	}
	return engine
}

// Verify runs the full pipeline for one request. The only error condition is
// an empty candidate list; everything else resolves to a scored or zeroed
// Result.
func (e *Engine) Verify(ctx context.Context, req Request) (*Result, error) {
	dateKey := ledger.DateKey(e.now())
	used := e.countAttempts(ctx, req, dateKey)
	remaining := max(0, e.thresholds.MaxAttempts-used)
	if remaining == 0 {
		e.logger.Info("attempt quota exhausted",
			logging.String(logging.FieldPatientID, req.PatientID),
			logging.String(logging.FieldMedicineID, req.MedicineID),
			logging.Int("attempts_used", used))
		return &Result{
			AttemptsUsed:      used,
			AttemptsRemaining: 0,
			Reason:            "daily attempt limit reached",
		}, nil
	}

	candidates := e.candidateURLs(ctx, req)
	if len(candidates) == 0 {
		return nil, services.Wrap(services.ErrNoReference, "verify", "resolve",
			"no reference image found for this medicine", nil)
	}

	result := &Result{ReferenceImageURL: candidates[0]}
	testBytes, err := e.fetcher.Fetch(ctx, req.TestImageURL)
	if err != nil {
		e.logger.Error("test image download failed",
			logging.String(logging.FieldCandidateURL, req.TestImageURL),
			logging.Error(err))
		result.Reason = "test image could not be downloaded"
	} else if best, bestURL, ok := e.scoreCandidates(ctx, req, candidates, testBytes); ok {
		result.ReferenceImageURL = bestURL
		result.SimilarityScore = best.image
		result.TextSimilarityScore = best.text
		result.FinalSimilarityScore = best.final
		result.Reason = best.reason

		scoreGate := best.final >= e.thresholds.ApprovalScore
		textGate := best.image >= strongImageGate ||
			best.text == nil ||
			*best.text >= e.thresholds.TextScoreMin
		result.Match = scoreGate && textGate
		result.Approved = result.Match
	} else {
		result.Reason = "no candidate produced a comparison result"
	}

	e.recordAttempt(ctx, req, result, dateKey)
	result.AttemptsUsed = used + 1
	result.AttemptsRemaining = max(0, e.thresholds.MaxAttempts-result.AttemptsUsed)
	return result, nil
}

func (e *Engine) countAttempts(ctx context.Context, req Request, dateKey string) int {
	if e.ledger == nil {
		return 0
	}
	used, err := e.ledger.CountAttempts(ctx, req.PatientID, req.MedicineID, dateKey)
	if err != nil {
		e.logger.Error("attempt count failed", logging.Error(err))
		return 0
	}
	return used
}

// candidateURLs merges the caller-supplied reference with the stored ones,
// preserving order while removing duplicates.
func (e *Engine) candidateURLs(ctx context.Context, req Request) []string {
	var merged []string
	if req.ReferenceImageURL != "" {
		merged = append(merged, req.ReferenceImageURL)
	}
	if e.references != nil {
		merged = append(merged, e.references.Resolve(ctx, req.PatientID, req.MedicineID)...)
	}

	seen := make(map[string]struct{}, len(merged))
	candidates := merged[:0]
	for _, candidate := range merged {
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}
		candidates = append(candidates, candidate)
	}
	return candidates
}

// scoreCandidates compares every candidate against the test image and keeps
// the strictly best final score; the first candidate wins ties. Candidates
// whose bytes cannot be fetched or decoded are skipped.
func (e *Engine) scoreCandidates(ctx context.Context, req Request, candidates []string, testBytes []byte) (candidateScore, string, bool) {
	var (
		best     candidateScore
		bestURL  string
		bestSeen bool
	)
	for _, candidateURL := range candidates {
		score, err := e.scoreCandidate(ctx, req, candidateURL, testBytes)
		if err != nil {
			e.logger.Warn("candidate comparison failed",
				logging.String(logging.FieldCandidateURL, candidateURL),
				logging.Error(err))
			continue
		}
		if !bestSeen || score.final > best.final {
			best = score
			bestURL = candidateURL
			bestSeen = true
		}
	}
	return best, bestURL, bestSeen
}

func (e *Engine) scoreCandidate(ctx context.Context, req Request, candidateURL string, testBytes []byte) (candidateScore, error) {
	referenceBytes, err := e.fetcher.Fetch(ctx, candidateURL)
	if err != nil {
		return candidateScore{}, err
	}

	visualScore, err := e.visual.Score(referenceBytes, testBytes)
	if err != nil {
		return candidateScore{}, err
	}

	if e.embedding != nil {
		if similarity, ok := e.embedding.Similarity(ctx, referenceBytes, testBytes); ok {
			visualScore = clamp01(max(visualScore, similarity))
		}
	}

	if e.judge == nil {
		return degradedScore(visualScore, "model disabled"), nil
	}
	judgment, err := e.judge.Judge(ctx, referenceBytes, testBytes, req.MedicineID)
	if err != nil {
		e.logger.Warn("model judgment unavailable, using visual score",
			logging.String(logging.FieldCandidateURL, candidateURL),
			logging.Error(err))
		return degradedScore(visualScore, "model judgment unavailable"), nil
	}
	return e.fuse(judgment, visualScore, req.MedicineID), nil
}

// degradedScore is the visual-only fallback used whenever the model signal
// is absent. No text or composition signal applies.
func degradedScore(visualScore float64, cause string) candidateScore {
	return candidateScore{
		image:  visualScore,
		final:  visualScore,
		reason: fmt.Sprintf("visual similarity fallback (%s)", cause),
	}
}

// fuse combines the model judgment with the visual score and the
// composition consistency lift.
func (e *Engine) fuse(judgment vlm.Judgment, visualScore float64, medicineID string) candidateScore {
	image := visualScore
	if judgment.ImageSimilarity != nil {
		image = clamp01(*judgment.ImageSimilarity)
	}

	tokenScore := composition.Jaccard(judgment.DetectedTextReference, judgment.DetectedTextTest)
	var text *float64
	if judgment.TextSimilarity == nil {
		if tokenScore > 0 {
			text = &tokenScore
		}
	} else {
		merged := clamp01(max(*judgment.TextSimilarity, tokenScore))
		text = &merged
	}

	var modelFinal float64
	switch {
	case judgment.FinalScore != nil:
		modelFinal = clamp01(*judgment.FinalScore)
	case text == nil:
		modelFinal = image
	default:
		modelFinal = clamp01((image + *text) / 2)
	}

	consistency := composition.Consistency(composition.Evidence{
		MedicineID:            medicineID,
		ActiveIngredient:      judgment.ActiveIngredient,
		Strength:              judgment.Strength,
		DetectedTextReference: judgment.DetectedTextReference,
		DetectedTextTest:      judgment.DetectedTextTest,
	}, e.hints)

	base := clamp01(max(modelFinal, visualScore))
	reason := judgment.Reason
	if reason == "" {
		reason = "model, visual, and composition signals combined"
	}
	return candidateScore{
		image:  clamp01(max(image, visualScore)),
		text:   text,
		final:  clamp01(base + e.thresholds.CompositionWeight*consistency),
		reason: reason,
	}
}

func (e *Engine) recordAttempt(ctx context.Context, req Request, result *Result, dateKey string) {
	if e.ledger == nil {
		return
	}
	attempt := &ledger.Attempt{
		PatientID:            req.PatientID,
		MedicineID:           req.MedicineID,
		ReferenceImageURL:    result.ReferenceImageURL,
		TestImageURL:         req.TestImageURL,
		SimilarityScore:      result.SimilarityScore,
		TextSimilarityScore:  result.TextSimilarityScore,
		FinalSimilarityScore: result.FinalSimilarityScore,
		Match:                result.Match,
		Approved:             result.Approved,
		AttemptDate:          dateKey,
		CreatedAt:            e.now().UTC(),
	}
	if err := e.ledger.RecordAttempt(ctx, attempt); err != nil {
		e.logger.Error("failed to record verification attempt", logging.Error(err))
	}
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
