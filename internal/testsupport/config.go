package testsupport

import (
	"path/filepath"
	"testing"

	"pillcheck/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.DatabasePath = filepath.Join(base, "attempts.db")
	cfg.Paths.APIBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithMaxAttempts sets the daily attempt quota on the test config.
func WithMaxAttempts(limit int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Scoring.MaxAttempts = limit
	}
}

// WithHintsPath points the test config at a composition hints file.
func WithHintsPath(path string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Composition.HintsPath = path
	}
}
