package references

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"pillcheck/internal/logging"
	"pillcheck/internal/services"
)

const defaultHTTPTimeout = 60 * time.Second

// Config captures the runtime settings for the reference store.
type Config struct {
	BaseURL             string
	ServiceKey          string
	Bucket              string
	MaxImages           int
	SignedURLTTLSeconds int
	TimeoutSeconds      int
}

// Client resolves reference image URLs from the configured storage backend.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
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

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs a reference store client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	if cfg.MaxImages < 1 {
		cfg.MaxImages = 1
	}
	if cfg.SignedURLTTLSeconds <= 0 {
		cfg.SignedURLTTLSeconds = 60
	}
	client := &Client{
		cfg: Config{
			BaseURL:             strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			ServiceKey:          strings.TrimSpace(cfg.ServiceKey),
			Bucket:              strings.TrimSpace(cfg.Bucket),
			MaxImages:           cfg.MaxImages,
			SignedURLTTLSeconds: cfg.SignedURLTTLSeconds,
			TimeoutSeconds:      cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Resolve returns signed URLs for the stored reference images of one
// patient/medicine pair, most recently updated first, capped at the
// configured maximum. Backend failures resolve to an empty list: missing
// references are a lookup outcome, not a pipeline error.
func (c *Client) Resolve(ctx context.Context, patientID, medicineID string) []string {
	caregiverID := c.caregiverID(ctx, patientID)
	if caregiverID == "" {
		return nil
	}

	prefix := fmt.Sprintf("caregiver/%s/%s/%s/reference", caregiverID, patientID, medicineID)
	objects := c.listObjects(ctx, prefix)
	if len(objects) == 0 {
		return nil
	}

	sort.SliceStable(objects, func(i, j int) bool {
		return objects[i].sortKey() > objects[j].sortKey()
	})
	if len(objects) > c.cfg.MaxImages {
		objects = objects[:c.cfg.MaxImages]
	}

	urls := make([]string, 0, len(objects))
	for _, object := range objects {
		if object.Name == "" {
			continue
		}
		signed, err := c.signObject(ctx, prefix+"/"+object.Name)
		if err != nil {
			c.logger.Warn("failed to sign reference object",
				logging.String("object", object.Name),
				logging.Error(err))
			continue
		}
		urls = append(urls, signed)
	}
	return urls
}

type storedObject struct {
	Name      string `json:"name"`
	UpdatedAt string `json:"updated_at"`
	CreatedAt string `json:"created_at"`
}

func (o storedObject) sortKey() string {
	if o.UpdatedAt != "" {
		return o.UpdatedAt
	}
	return o.CreatedAt
}

// caregiverID looks up the caregiver that owns the patient's reference
// folder. Empty on any failure.
func (c *Client) caregiverID(ctx context.Context, patientID string) string {
	endpoint := fmt.Sprintf("%s/rest/v1/patients?select=caregiver_id&id=eq.%s",
		c.cfg.BaseURL, url.QueryEscape(patientID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ""
	}
	c.authorize(req)

	body, err := c.do(req, "caregiver lookup")
	if err != nil {
		c.logger.Warn("caregiver lookup failed",
			logging.String(logging.FieldPatientID, patientID),
			logging.Error(err))
		return ""
	}

	var rows []struct {
		CaregiverID string `json:"caregiver_id"`
	}
	if err := json.Unmarshal(body, &rows); err != nil || len(rows) == 0 {
		return ""
	}
	return rows[0].CaregiverID
}

func (c *Client) listObjects(ctx context.Context, prefix string) []storedObject {
	endpoint := fmt.Sprintf("%s/storage/v1/object/list/%s", c.cfg.BaseURL, c.cfg.Bucket)
	payload, err := json.Marshal(map[string]any{"prefix": prefix, "limit": 100})
	if err != nil {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req, "list objects")
	if err != nil {
		c.logger.Warn("reference listing failed",
			logging.String("prefix", prefix),
			logging.Error(err))
		return nil
	}

	var objects []storedObject
	if err := json.Unmarshal(body, &objects); err != nil {
		return nil
	}
	return objects
}

// signObject issues a time-limited URL for one stored object. The backend
// has spelled the response key three ways across versions.
func (c *Client) signObject(ctx context.Context, objectPath string) (string, error) {
	endpoint := fmt.Sprintf("%s/storage/v1/object/sign/%s/%s", c.cfg.BaseURL, c.cfg.Bucket, objectPath)
	payload, err := json.Marshal(map[string]any{"expiresIn": c.cfg.SignedURLTTLSeconds})
	if err != nil {
		return "", services.Wrap(services.ErrExternalSignal, "references", "sign", "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", services.Wrap(services.ErrExternalSignal, "references", "sign", "build request", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req, "sign object")
	if err != nil {
		return "", err
	}

	var signed struct {
		SignedURL      string `json:"signedURL"`
		SignedURLAlt   string `json:"signedUrl"`
		SignedURLSnake string `json:"signed_url"`
	}
	if err := json.Unmarshal(body, &signed); err != nil {
		return "", services.Wrap(services.ErrExternalSignal, "references", "sign", "decode response", err)
	}
	value := signed.SignedURL
	if value == "" {
		value = signed.SignedURLAlt
	}
	if value == "" {
		value = signed.SignedURLSnake
	}
	if value == "" {
		return "", services.Wrap(services.ErrExternalSignal, "references", "sign", "response carried no signed url", nil)
	}
	if strings.HasPrefix(value, "/") {
		value = c.cfg.BaseURL + "/storage/v1" + value
	}
	return value, nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("apikey", c.cfg.ServiceKey)
	req.Header.Set("Authorization", "Bearer "+c.cfg.ServiceKey)
}

func (c *Client) do(req *http.Request, operation string) ([]byte, error) {
	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalSignal, "references", operation,
			fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrExternalSignal, "references", operation,
			fmt.Sprintf("backend returned %d (latency=%v)", resp.StatusCode, latency), nil)
	}
	return io.ReadAll(resp.Body)
}
