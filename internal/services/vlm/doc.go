// Package vlm queries a vision-language inference endpoint with a reference
// and test image pair and parses the model's structured judgment. The
// endpoint answers in several shapes; payload.go normalizes all of them into
// a single Judgment value.
package vlm
