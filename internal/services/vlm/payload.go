package vlm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"pillcheck/internal/services"
)

// Judgment is the model's structured verdict on one image pair. Score
// pointers are nil when the model omitted the field.
type Judgment struct {
	ImageSimilarity       *float64
	TextSimilarity        *float64
	FinalScore            *float64
	Match                 *bool
	DetectedTextReference string
	DetectedTextTest      string
	ActiveIngredient      string
	Strength              string
	Reason                string
}

var scoreKeys = []string{"image_similarity", "text_similarity", "final_score", "match"}

// ParseJudgment normalizes the inference API's response shapes into a
// Judgment. Accepted shapes: a judgment object, an object carrying
// generated_text with an embedded JSON object, or a single-element list of
// either. An object with an "error" field is reported as a service error.
func ParseJudgment(payload any) (Judgment, error) {
	object, err := judgmentObject(payload)
	if err != nil {
		return Judgment{}, err
	}
	judgment := Judgment{
		ImageSimilarity:       scoreField(object, "image_similarity", "similarity_score"),
		TextSimilarity:        scoreField(object, "text_similarity"),
		FinalScore:            scoreField(object, "final_score", "final_similarity_score"),
		DetectedTextReference: stringField(object, "detected_text_reference"),
		DetectedTextTest:      stringField(object, "detected_text_test"),
		ActiveIngredient:      stringField(object, "active_ingredient"),
		Strength:              stringField(object, "strength"),
		Reason:                stringField(object, "reason"),
	}
	if value, ok := object["match"].(bool); ok {
		judgment.Match = &value
	}
	return judgment, nil
}

func judgmentObject(payload any) (map[string]any, error) {
	switch typed := payload.(type) {
	case map[string]any:
		if message, ok := typed["error"]; ok {
			return nil, services.Wrap(services.ErrExternalSignal, "vlm", "parse",
				fmt.Sprintf("endpoint error: %v", message), nil)
		}
		if hasAnyKey(typed, scoreKeys) {
			return typed, nil
		}
		if generated, ok := typed["generated_text"].(string); ok {
			return extractJSONObject(generated)
		}
	case []any:
		if len(typed) == 0 {
			break
		}
		first, ok := typed[0].(map[string]any)
		if !ok {
			break
		}
		if generated, ok := first["generated_text"].(string); ok {
			return extractJSONObject(generated)
		}
		if hasAnyKey(first, scoreKeys) {
			return first, nil
		}
	}
	return nil, services.Wrap(services.ErrExternalSignal, "vlm", "parse", "unexpected model response format", nil)
}

// extractJSONObject pulls the outermost {...} span from free-form model text
// and decodes it.
func extractJSONObject(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, services.Wrap(services.ErrExternalSignal, "vlm", "parse", "model returned empty text", nil)
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return nil, services.Wrap(services.ErrExternalSignal, "vlm", "parse", "model response did not contain JSON", nil)
	}
	var object map[string]any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &object); err != nil {
		return nil, services.Wrap(services.ErrExternalSignal, "vlm", "parse", "invalid JSON from model", err)
	}
	return object, nil
}

func hasAnyKey(object map[string]any, keys []string) bool {
	for _, key := range keys {
		if _, ok := object[key]; ok {
			return true
		}
	}
	return false
}

// scoreField reads the first present key as a clamped score. Numeric strings
// are tolerated; anything unparseable reads as 0.
func scoreField(object map[string]any, keys ...string) *float64 {
	for _, key := range keys {
		raw, ok := object[key]
		if !ok || raw == nil {
			continue
		}
		value := clampScore(raw)
		return &value
	}
	return nil
}

func stringField(object map[string]any, key string) string {
	value, _ := object[key].(string)
	return value
}

func clampScore(raw any) float64 {
	var parsed float64
	switch typed := raw.(type) {
	case float64:
		parsed = typed
	case string:
		parsed, _ = strconv.ParseFloat(strings.TrimSpace(typed), 64)
	case bool:
		if typed {
			parsed = 1
		}
	}
	if parsed < 0 {
		return 0
	}
	if parsed > 1 {
		return 1
	}
	return parsed
}
