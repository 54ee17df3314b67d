package composition

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Hints maps a normalized medicine identifier to its expected terms. Loaded
// once at process start and read-only afterwards, so concurrent reads are safe.
type Hints map[string][]string

// Terms returns the configured terms for a medicine identifier, matching
// case-insensitively on the trimmed identifier.
func (h Hints) Terms(medicineID string) []string {
	if len(h) == 0 {
		return nil
	}
	return h[normalizeKey(medicineID)]
}

// LoadHints builds the hint table from an optional JSON file and an inline
// table, the inline entries taking precedence. Keys are normalized; blank
// terms are dropped.
func LoadHints(path string, inline map[string][]string) (Hints, error) {
	merged := Hints{}
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read composition hints: %w", err)
		}
		var parsed map[string][]string
		if err := json.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("parse composition hints: %w", err)
		}
		merged.merge(parsed)
	}
	merged.merge(inline)
	return merged, nil
}

func (h Hints) merge(src map[string][]string) {
	for key, terms := range src {
		normalized := normalizeKey(key)
		if normalized == "" {
			continue
		}
		cleaned := make([]string, 0, len(terms))
		for _, term := range terms {
			if trimmed := strings.TrimSpace(term); trimmed != "" {
				cleaned = append(cleaned, strings.ToLower(trimmed))
			}
		}
		if len(cleaned) > 0 {
			h[normalized] = cleaned
		}
	}
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
