package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory, database, and bind address configuration.
type Paths struct {
	LogDir       string `toml:"log_dir"`
	DatabasePath string `toml:"database_path"`
	APIBind      string `toml:"api_bind"`
}

// Scoring contains the thresholds and weights of the match gate.
type Scoring struct {
	// ApprovalScoreThreshold is the final-score floor for a match (inclusive).
	ApprovalScoreThreshold float64 `toml:"approval_score_threshold"`
	// TextScoreMinThreshold is the corroboration floor applied when text
	// similarity is present and the visual score is below 0.9.
	TextScoreMinThreshold float64 `toml:"text_score_min_threshold"`
	// MatchThreshold is the visual-only floor used when external signals are
	// unavailable and the engine degrades to pixel evidence alone.
	MatchThreshold    float64 `toml:"match_threshold"`
	CompositionWeight float64 `toml:"composition_weight"`
	MaxAttempts       int     `toml:"max_attempts"`
}

// References contains configuration for the reference-image storage service.
type References struct {
	BaseURL             string `toml:"base_url"`
	ServiceKey          string `toml:"service_key"`
	Bucket              string `toml:"bucket"`
	MaxImages           int    `toml:"max_images"`
	SignedURLTTLSeconds int    `toml:"signed_url_ttl_seconds"`
	TimeoutSeconds      int    `toml:"timeout_seconds"`
}

// Embedding contains configuration for the remote embedding endpoint.
type Embedding struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// VLM contains configuration for the vision-language inference endpoint.
type VLM struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Composition contains the expected-term hints per medicine identifier.
type Composition struct {
	// HintsPath points at a JSON file mapping medicine id to expected terms.
	HintsPath string `toml:"hints_path"`
	// Hints holds inline expected terms and is merged over the file contents.
	Hints map[string][]string `toml:"hints"`
}

// Server contains HTTP surface settings.
type Server struct {
	CORSOrigins []string `toml:"cors_origins"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for pillcheck.
//
// Configuration sections by subsystem:
//   - Paths: log directory, ledger database, and API bind address
//   - Scoring: match-gate thresholds, fusion weights, attempt limits
//   - References: reference-image storage service and signed URL issuance
//   - Embedding: remote feature-extraction endpoint
//   - VLM: remote vision-language inference endpoint
//   - Composition: expected-term hints per medicine
//   - Server: CORS allow-list for the HTTP surface
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Scoring     Scoring     `toml:"scoring"`
	References  References  `toml:"references"`
	Embedding   Embedding   `toml:"embedding"`
	VLM         VLM         `toml:"vlm"`
	Composition Composition `toml:"composition"`
	Server      Server      `toml:"server"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/pillcheck/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("pillcheck.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir}
	if dbDir := filepath.Dir(c.Paths.DatabasePath); dbDir != "." && dbDir != "" {
		dirs = append(dirs, dbDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ReferencesEnabled reports whether the storage service can be queried.
func (c *Config) ReferencesEnabled() bool {
	return strings.TrimSpace(c.References.BaseURL) != "" && strings.TrimSpace(c.References.ServiceKey) != ""
}

// EmbeddingEnabled reports whether the embedding endpoint can be queried.
func (c *Config) EmbeddingEnabled() bool {
	return strings.TrimSpace(c.Embedding.APIKey) != ""
}

// VLMEnabled reports whether the vision-language endpoint can be queried.
func (c *Config) VLMEnabled() bool {
	return strings.TrimSpace(c.VLM.APIKey) != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
