package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"

	"pillcheck/internal/services"
)

const defaultHTTPTimeout = 60 * time.Second

// Config captures the runtime settings required to talk to the embedding
// endpoint.
type Config struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
}

// Client wraps the feature-extraction inference API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs an embedding client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			APIKey:         strings.TrimSpace(cfg.APIKey),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Vector fetches the feature vector for one image. The endpoint may nest the
// vector arbitrarily; the first numeric leaf sequence is used.
func (c *Client) Vector(ctx context.Context, imageBytes []byte) ([]float64, error) {
	if c.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrExternalSignal, "embedding", "vector", "api key missing", nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(imageBytes))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalSignal, "embedding", "vector", "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalSignal, "embedding", "vector",
			fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrExternalSignal, "embedding", "vector",
			fmt.Sprintf("endpoint returned %d (latency=%v)", resp.StatusCode, latency), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalSignal, "embedding", "vector", "read body", err)
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, services.Wrap(services.ErrExternalSignal, "embedding", "vector", "decode response", err)
	}
	return Flatten(payload), nil
}

// Similarity fetches embeddings for both images and reports their cosine
// similarity remapped onto [0,1]. The boolean is false when the signal is
// absent for any reason.
func (c *Client) Similarity(ctx context.Context, referenceBytes, testBytes []byte) (float64, bool) {
	reference, err := c.Vector(ctx, referenceBytes)
	if err != nil {
		return 0, false
	}
	test, err := c.Vector(ctx, testBytes)
	if err != nil {
		return 0, false
	}
	return Cosine(reference, test)
}

// Flatten extracts a flat numeric vector from a possibly nested JSON payload.
// Nested lists descend into their first element; non-numeric entries are
// skipped, matching the tolerant shape handling of the inference API.
func Flatten(payload any) []float64 {
	list, ok := payload.([]any)
	if !ok || len(list) == 0 {
		return nil
	}
	if _, nested := list[0].([]any); nested {
		return Flatten(list[0])
	}
	values := make([]float64, 0, len(list))
	for _, item := range list {
		if number, ok := item.(float64); ok {
			values = append(values, number)
		}
	}
	return values
}

// Cosine computes cosine similarity over the common-length prefix of the two
// vectors, remapped from [-1,1] to [0,1]. The boolean is false when either
// vector is empty or has zero norm.
func Cosine(left, right []float64) (float64, bool) {
	size := min(len(left), len(right))
	if size == 0 {
		return 0, false
	}
	l := left[:size]
	r := right[:size]

	leftNorm := floats.Norm(l, 2)
	rightNorm := floats.Norm(r, 2)
	if leftNorm == 0 || rightNorm == 0 {
		return 0, false
	}
	cosine := floats.Dot(l, r) / (leftNorm * rightNorm)
	return clamp01((cosine + 1) / 2), true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
