package vlm

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"pillcheck/internal/services"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var payload any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return payload
}

func TestParseJudgmentDirectObject(t *testing.T) {
	payload := decode(t, `{
		"image_similarity": 0.92,
		"text_similarity": null,
		"final_score": 0.88,
		"match": true,
		"detected_text_reference": "PARACETAMOL 500",
		"detected_text_test": "paracetamol 500",
		"active_ingredient": "paracetamol",
		"strength": "500mg",
		"reason": "shapes and imprints agree"
	}`)

	judgment, err := ParseJudgment(payload)
	if err != nil {
		t.Fatalf("ParseJudgment: %v", err)
	}
	if judgment.ImageSimilarity == nil || *judgment.ImageSimilarity != 0.92 {
		t.Errorf("unexpected image similarity %v", judgment.ImageSimilarity)
	}
	if judgment.TextSimilarity != nil {
		t.Errorf("null text similarity must stay nil, got %v", *judgment.TextSimilarity)
	}
	if judgment.FinalScore == nil || *judgment.FinalScore != 0.88 {
		t.Errorf("unexpected final score %v", judgment.FinalScore)
	}
	if judgment.Match == nil || !*judgment.Match {
		t.Error("expected match true")
	}
	if judgment.ActiveIngredient != "paracetamol" || judgment.Strength != "500mg" {
		t.Errorf("unexpected composition fields %q %q", judgment.ActiveIngredient, judgment.Strength)
	}
}

func TestParseJudgmentLegacyKeys(t *testing.T) {
	payload := decode(t, `{"similarity_score": 0.7, "final_similarity_score": 0.75, "match": false}`)
	judgment, err := ParseJudgment(payload)
	if err != nil {
		t.Fatalf("ParseJudgment: %v", err)
	}
	if judgment.ImageSimilarity == nil || *judgment.ImageSimilarity != 0.7 {
		t.Errorf("similarity_score alias not honored: %v", judgment.ImageSimilarity)
	}
	if judgment.FinalScore == nil || *judgment.FinalScore != 0.75 {
		t.Errorf("final_similarity_score alias not honored: %v", judgment.FinalScore)
	}
}

func TestParseJudgmentGeneratedText(t *testing.T) {
	payload := decode(t, `{"generated_text": "Sure, here is the result:\n{\"image_similarity\": 0.5, \"match\": false}\nDone."}`)
	judgment, err := ParseJudgment(payload)
	if err != nil {
		t.Fatalf("ParseJudgment: %v", err)
	}
	if judgment.ImageSimilarity == nil || *judgment.ImageSimilarity != 0.5 {
		t.Errorf("unexpected image similarity %v", judgment.ImageSimilarity)
	}
}

func TestParseJudgmentListShapes(t *testing.T) {
	wrapped := decode(t, `[{"generated_text": "{\"final_score\": 0.66}"}]`)
	judgment, err := ParseJudgment(wrapped)
	if err != nil {
		t.Fatalf("list of generated_text: %v", err)
	}
	if judgment.FinalScore == nil || *judgment.FinalScore != 0.66 {
		t.Errorf("unexpected final score %v", judgment.FinalScore)
	}

	direct := decode(t, `[{"image_similarity": 0.4, "match": false}]`)
	judgment, err = ParseJudgment(direct)
	if err != nil {
		t.Fatalf("list of judgment objects: %v", err)
	}
	if judgment.ImageSimilarity == nil || *judgment.ImageSimilarity != 0.4 {
		t.Errorf("unexpected image similarity %v", judgment.ImageSimilarity)
	}
}

func TestParseJudgmentErrorField(t *testing.T) {
	payload := decode(t, `{"error": "model is loading"}`)
	_, err := ParseJudgment(payload)
	if !errors.Is(err, services.ErrExternalSignal) {
		t.Fatalf("expected ErrExternalSignal, got %v", err)
	}
	if !strings.Contains(err.Error(), "model is loading") {
		t.Errorf("error should carry the endpoint message, got %v", err)
	}
}

func TestParseJudgmentRejectsUnknownShapes(t *testing.T) {
	for _, raw := range []string{`"plain string"`, `[]`, `[1, 2]`, `{"unrelated": 1}`, `{"generated_text": "no json here"}`} {
		if _, err := ParseJudgment(decode(t, raw)); !errors.Is(err, services.ErrExternalSignal) {
			t.Errorf("payload %s: expected ErrExternalSignal, got %v", raw, err)
		}
	}
}

func TestClampScoreTolerance(t *testing.T) {
	payload := decode(t, `{"image_similarity": "0.8", "final_score": 3.5, "text_similarity": -1}`)
	judgment, err := ParseJudgment(payload)
	if err != nil {
		t.Fatalf("ParseJudgment: %v", err)
	}
	if *judgment.ImageSimilarity != 0.8 {
		t.Errorf("numeric string not parsed: %v", *judgment.ImageSimilarity)
	}
	if *judgment.FinalScore != 1.0 {
		t.Errorf("out-of-range score not clamped high: %v", *judgment.FinalScore)
	}
	if *judgment.TextSimilarity != 0.0 {
		t.Errorf("out-of-range score not clamped low: %v", *judgment.TextSimilarity)
	}
}
