package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeReferences(); err != nil {
		return err
	}
	c.normalizeEmbedding()
	c.normalizeVLM()
	if err := c.normalizeComposition(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.DatabasePath, err = expandPath(c.Paths.DatabasePath); err != nil {
		return fmt.Errorf("paths.database_path: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeReferences() error {
	c.References.BaseURL = strings.TrimRight(strings.TrimSpace(c.References.BaseURL), "/")
	if c.References.BaseURL == "" {
		if value, ok := os.LookupEnv("SUPABASE_URL"); ok {
			c.References.BaseURL = strings.TrimRight(strings.TrimSpace(value), "/")
		}
	}
	c.References.ServiceKey = strings.TrimSpace(c.References.ServiceKey)
	if c.References.ServiceKey == "" {
		if value, ok := os.LookupEnv("SUPABASE_SERVICE_ROLE_KEY"); ok {
			c.References.ServiceKey = strings.TrimSpace(value)
		}
	}
	c.References.Bucket = strings.TrimSpace(c.References.Bucket)
	if c.References.Bucket == "" {
		c.References.Bucket = defaultReferenceBucket
	}
	if c.References.MaxImages <= 0 {
		c.References.MaxImages = defaultMaxReferenceImages
	}
	if c.References.SignedURLTTLSeconds <= 0 {
		c.References.SignedURLTTLSeconds = defaultSignedURLTTL
	}
	if c.References.TimeoutSeconds <= 0 {
		c.References.TimeoutSeconds = defaultRequestTimeout
	}
	return nil
}

func (c *Config) normalizeEmbedding() {
	c.Embedding.BaseURL = strings.TrimSpace(c.Embedding.BaseURL)
	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = defaultEmbeddingBaseURL
	}
	c.Embedding.APIKey = strings.TrimSpace(c.Embedding.APIKey)
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = inferenceKeyFromEnv()
	}
	if c.Embedding.TimeoutSeconds <= 0 {
		c.Embedding.TimeoutSeconds = defaultRequestTimeout
	}
}

func (c *Config) normalizeVLM() {
	c.VLM.BaseURL = strings.TrimSpace(c.VLM.BaseURL)
	if c.VLM.BaseURL == "" {
		c.VLM.BaseURL = defaultVLMBaseURL
	}
	c.VLM.APIKey = strings.TrimSpace(c.VLM.APIKey)
	if c.VLM.APIKey == "" {
		c.VLM.APIKey = inferenceKeyFromEnv()
	}
	if c.VLM.TimeoutSeconds <= 0 {
		c.VLM.TimeoutSeconds = defaultRequestTimeout
	}
}

func (c *Config) normalizeComposition() error {
	var err error
	if strings.TrimSpace(c.Composition.HintsPath) != "" {
		if c.Composition.HintsPath, err = expandPath(c.Composition.HintsPath); err != nil {
			return fmt.Errorf("composition.hints_path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func inferenceKeyFromEnv() string {
	if value, ok := os.LookupEnv("HF_API_KEY"); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("HF_TOKEN"); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return ""
}
