package references

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"pillcheck/internal/services"
)

// Downloader fetches image bytes from signed or caller-supplied URLs.
type Downloader struct {
	httpClient *http.Client
}

// NewDownloader constructs a downloader with the given request timeout.
func NewDownloader(timeoutSeconds int) *Downloader {
	timeout := defaultHTTPTimeout
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	return &Downloader{httpClient: &http.Client{Timeout: timeout}}
}

// Fetch downloads the image at the given URL. Failures wrap ErrDownload,
// which is fatal for the candidate being compared.
func (d *Downloader) Fetch(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrDownload, "references", "fetch", "build request", err)
	}

	requestStart := time.Now()
	resp, err := d.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, services.Wrap(services.ErrDownload, "references", "fetch",
			fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrDownload, "references", "fetch",
			fmt.Sprintf("server returned %d (latency=%v)", resp.StatusCode, latency), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrDownload, "references", "fetch", "read body", err)
	}
	return body, nil
}
