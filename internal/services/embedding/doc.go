// Package embedding queries a remote feature-extraction endpoint for image
// embeddings and derives a cosine similarity signal from them. The signal is
// advisory: every failure mode resolves to "signal absent" rather than an
// error the caller must handle.
package embedding
