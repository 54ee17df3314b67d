package composition

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// minTokenLength filters out noise tokens such as "mg" fragments and
// single-letter OCR artifacts.
const minTokenLength = 3

// Tokenize lowercases and NFKC-normalizes the input, splits it into
// alphanumeric runs, and keeps tokens of length >= 3.
func Tokenize(value string) map[string]struct{} {
	tokens := make(map[string]struct{})
	normalized := strings.ToLower(norm.NFKC.String(value))
	var builder strings.Builder
	flush := func() {
		if builder.Len() >= minTokenLength {
			tokens[builder.String()] = struct{}{}
		}
		builder.Reset()
	}
	for _, r := range normalized {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return tokens
}

// Jaccard computes the token-overlap similarity of two strings: shared tokens
// divided by total distinct tokens. Two empty token sets score 0, not 1 —
// absent text carries no signal.
func Jaccard(left, right string) float64 {
	leftTokens := Tokenize(left)
	rightTokens := Tokenize(right)
	if len(leftTokens) == 0 && len(rightTokens) == 0 {
		return 0
	}

	union := make(map[string]struct{}, len(leftTokens)+len(rightTokens))
	shared := 0
	for token := range leftTokens {
		union[token] = struct{}{}
	}
	for token := range rightTokens {
		if _, ok := leftTokens[token]; ok {
			shared++
		}
		union[token] = struct{}{}
	}
	if len(union) == 0 {
		return 0
	}
	return clamp01(float64(shared) / float64(len(union)))
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
