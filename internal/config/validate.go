package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateScoring(); err != nil {
		return err
	}
	if err := c.validateReferences(); err != nil {
		return err
	}
	if err := c.validateEndpoints(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateScoring() error {
	thresholds := map[string]float64{
		"scoring.approval_score_threshold": c.Scoring.ApprovalScoreThreshold,
		"scoring.text_score_min_threshold": c.Scoring.TextScoreMinThreshold,
		"scoring.match_threshold":          c.Scoring.MatchThreshold,
		"scoring.composition_weight":       c.Scoring.CompositionWeight,
	}
	for name, value := range thresholds {
		if value < 0 || value > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	if c.Scoring.MaxAttempts <= 0 {
		return errors.New("scoring.max_attempts must be positive")
	}
	return nil
}

func (c *Config) validateReferences() error {
	hasURL := strings.TrimSpace(c.References.BaseURL) != ""
	hasKey := strings.TrimSpace(c.References.ServiceKey) != ""
	if hasURL != hasKey {
		return errors.New("references.base_url and references.service_key must be set together")
	}
	if c.References.MaxImages <= 0 {
		return errors.New("references.max_images must be positive")
	}
	if c.References.SignedURLTTLSeconds <= 0 {
		return errors.New("references.signed_url_ttl_seconds must be positive")
	}
	return nil
}

func (c *Config) validateEndpoints() error {
	if strings.TrimSpace(c.Embedding.BaseURL) == "" {
		return errors.New("embedding.base_url must be set")
	}
	if strings.TrimSpace(c.VLM.BaseURL) == "" {
		return errors.New("vlm.base_url must be set")
	}
	if c.Embedding.TimeoutSeconds <= 0 {
		return errors.New("embedding.timeout_seconds must be positive")
	}
	if c.VLM.TimeoutSeconds <= 0 {
		return errors.New("vlm.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
