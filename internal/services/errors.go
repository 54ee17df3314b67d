package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDecode marks unreadable image bytes. Fatal for the candidate being scored.
	ErrDecode = errors.New("image decode error")
	// ErrDownload marks a network failure fetching an image. Fatal for the candidate.
	ErrDownload = errors.New("image download error")
	// ErrNoReference marks an empty resolved reference list.
	ErrNoReference = errors.New("no reference image available")
	// ErrExternalSignal marks an embedding or vision-language failure. Recovered
	// locally by falling back to visual-only scoring, never surfaced to callers.
	ErrExternalSignal = errors.New("external signal unavailable")
	// ErrConfiguration marks unusable configuration.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalSignal
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsCandidateFatal reports whether the error aborts scoring for one candidate
// reference image rather than degrading to visual-only.
func IsCandidateFatal(err error) bool {
	return errors.Is(err, ErrDecode) || errors.Is(err, ErrDownload)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
