package verify

// Request identifies one verification run.
type Request struct {
	// ReferenceImageURL optionally pins a caller-supplied reference that is
	// tried before any stored references.
	ReferenceImageURL string
	TestImageURL      string
	PatientID         string
	MedicineID        string
}

// Result is the outcome of one verification run. All score fields are in
// [0,1]; TextSimilarityScore is nil when no text signal was available.
type Result struct {
	SimilarityScore      float64
	TextSimilarityScore  *float64
	FinalSimilarityScore float64
	Match                bool
	Approved             bool
	AttemptsUsed         int
	AttemptsRemaining    int
	Reason               string
	ReferenceImageURL    string
}

// candidateScore is the fused score for one reference candidate.
type candidateScore struct {
	image  float64
	text   *float64
	final  float64
	reason string
}
