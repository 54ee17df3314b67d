package composition

import "strings"

// Evidence carries the textual signals available for one comparison.
type Evidence struct {
	MedicineID            string
	ActiveIngredient      string
	Strength              string
	DetectedTextReference string
	DetectedTextTest      string
}

// Consistency measures how much of the expected term set was observed in the
// detected text. Expected terms come from the medicine identifier, the
// model-reported ingredient and strength, and any configured hints. Returns 0
// when no expectation exists.
func Consistency(evidence Evidence, hints Hints) float64 {
	expected := Tokenize(evidence.MedicineID)
	addTokens(expected, Tokenize(evidence.ActiveIngredient))
	addTokens(expected, Tokenize(evidence.Strength))
	addTokens(expected, Tokenize(strings.Join(hints.Terms(evidence.MedicineID), " ")))
	if len(expected) == 0 {
		return 0
	}

	detected := Tokenize(evidence.DetectedTextReference)
	addTokens(detected, Tokenize(evidence.DetectedTextTest))
	addTokens(detected, Tokenize(evidence.ActiveIngredient))
	addTokens(detected, Tokenize(evidence.Strength))

	matched := 0
	for token := range expected {
		if _, ok := detected[token]; ok {
			matched++
		}
	}
	return clamp01(float64(matched) / float64(len(expected)))
}

func addTokens(dst, src map[string]struct{}) {
	for token := range src {
		dst[token] = struct{}{}
	}
}
