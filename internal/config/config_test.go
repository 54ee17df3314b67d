package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pillcheck/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %q, got %q", path, resolved)
	}
	if cfg.Scoring.ApprovalScoreThreshold != 0.65 {
		t.Fatalf("unexpected approval threshold %v", cfg.Scoring.ApprovalScoreThreshold)
	}
	if cfg.Scoring.MaxAttempts != 10 {
		t.Fatalf("unexpected max attempts %d", cfg.Scoring.MaxAttempts)
	}
	if cfg.References.Bucket != "medicine-images" {
		t.Fatalf("unexpected bucket %q", cfg.References.Bucket)
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := writeConfig(t, `
[scoring]
approval_score_threshold = 0.8
max_attempts = 3

[references]
base_url = "https://storage.example.test/"
service_key = "svc-key"
max_images = 2

[logging]
format = "json"
`)
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.Scoring.ApprovalScoreThreshold != 0.8 {
		t.Fatalf("unexpected approval threshold %v", cfg.Scoring.ApprovalScoreThreshold)
	}
	if cfg.Scoring.MaxAttempts != 3 {
		t.Fatalf("unexpected max attempts %d", cfg.Scoring.MaxAttempts)
	}
	if cfg.References.BaseURL != "https://storage.example.test" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.References.BaseURL)
	}
	if !cfg.ReferencesEnabled() {
		t.Fatal("expected references enabled")
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("unexpected log format %q", cfg.Logging.Format)
	}
}

func TestLoadRejectsOutOfRangeThreshold(t *testing.T) {
	path := writeConfig(t, `
[scoring]
approval_score_threshold = 1.5
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error")
	} else if !strings.Contains(err.Error(), "approval_score_threshold") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsLoneServiceKey(t *testing.T) {
	path := writeConfig(t, `
[references]
service_key = "svc-key"
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error for service key without base url")
	}
}

func TestEmbeddingKeyFromEnvironment(t *testing.T) {
	t.Setenv("HF_API_KEY", "env-key")
	path := filepath.Join(t.TempDir(), "missing.toml")
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Embedding.APIKey != "env-key" {
		t.Fatalf("expected env fallback, got %q", cfg.Embedding.APIKey)
	}
	if !cfg.EmbeddingEnabled() || !cfg.VLMEnabled() {
		t.Fatal("expected inference endpoints enabled via env key")
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load of sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Scoring.MatchThreshold != 0.6 {
		t.Fatalf("unexpected match threshold %v", cfg.Scoring.MatchThreshold)
	}
}
