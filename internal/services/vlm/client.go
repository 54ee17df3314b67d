package vlm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pillcheck/internal/services"
)

const defaultHTTPTimeout = 60 * time.Second

// Config captures the runtime settings required to talk to the
// vision-language endpoint.
type Config struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
}

// Client wraps the vision-language inference API.
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

// NewClient constructs a vision-language client using the supplied
// configuration.
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

type requestImage struct {
	Image string `json:"image"`
}

type requestInputs struct {
	Images []requestImage `json:"images"`
	Text   string         `json:"text"`
}

type requestBody struct {
	Inputs requestInputs `json:"inputs"`
}

// Judge submits the image pair for comparison and parses the model's
// structured verdict. Every failure wraps ErrExternalSignal so the caller
// can degrade to the visual-only path.
func (c *Client) Judge(ctx context.Context, referenceBytes, testBytes []byte, medicineID string) (Judgment, error) {
	if c.cfg.APIKey == "" {
		return Judgment{}, services.Wrap(services.ErrExternalSignal, "vlm", "judge", "api key missing", nil)
	}

	body, err := json.Marshal(requestBody{
		Inputs: requestInputs{
			Images: []requestImage{
				{Image: base64.StdEncoding.EncodeToString(referenceBytes)},
				{Image: base64.StdEncoding.EncodeToString(testBytes)},
			},
			Text: Prompt(medicineID),
		},
	})
	if err != nil {
		return Judgment{}, services.Wrap(services.ErrExternalSignal, "vlm", "judge", "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return Judgment{}, services.Wrap(services.ErrExternalSignal, "vlm", "judge", "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return Judgment{}, services.Wrap(services.ErrExternalSignal, "vlm", "judge",
			fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Judgment{}, services.Wrap(services.ErrExternalSignal, "vlm", "judge",
			fmt.Sprintf("endpoint returned %d (latency=%v)", resp.StatusCode, latency), nil)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Judgment{}, services.Wrap(services.ErrExternalSignal, "vlm", "judge", "read body", err)
	}

	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Judgment{}, services.Wrap(services.ErrExternalSignal, "vlm", "judge", "model response was not JSON", err)
	}
	return ParseJudgment(payload)
}
