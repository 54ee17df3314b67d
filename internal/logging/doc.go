// Package logging assembles the structured slog loggers used across pillcheck
// services.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes Attr helpers plus a no-op logger for tests and wiring code that
// cannot fail. Prefer these constructors over hand-rolled slog setup so every
// component emits data with the same shape.
package logging
