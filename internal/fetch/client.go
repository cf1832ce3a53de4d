// Package fetch retrieves payer-published files: index documents, in-network
// rate files, and size probes for batch ordering.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

const userAgent = "ticrates/0.1"

// Client wraps a retrying HTTP client for payer file retrieval.
type Client struct {
	http *retryablehttp.Client
}

// NewClient builds a Client with retry/backoff defaults sized for large MRF
// downloads.
func NewClient(log zerolog.Logger) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 1 * time.Second
	rc.RetryWaitMax = 30 * time.Second
	rc.HTTPClient.Timeout = 30 * time.Minute
	rc.Logger = leveledLogger{log}
	return &Client{http: rc}
}

// Get fetches the full body at url.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body %s: %w", url, err)
	}
	return body, nil
}

// ContentLength issues a HEAD request and returns the advertised size in
// bytes, or 0 when the server does not report one.
func (c *Client) ContentLength(ctx context.Context, url string) (int64, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("head %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("head %s: status %d", url, resp.StatusCode)
	}
	if resp.ContentLength < 0 {
		return 0, nil
	}
	return resp.ContentLength, nil
}

// leveledLogger adapts zerolog to retryablehttp's LeveledLogger interface.
type leveledLogger struct {
	log zerolog.Logger
}

func (l leveledLogger) Error(msg string, kv ...any) { l.log.Error().Fields(kv).Msg(msg) }
func (l leveledLogger) Warn(msg string, kv ...any)  { l.log.Warn().Fields(kv).Msg(msg) }
func (l leveledLogger) Info(msg string, kv ...any)  { l.log.Debug().Fields(kv).Msg(msg) }
func (l leveledLogger) Debug(msg string, kv ...any) { l.log.Debug().Fields(kv).Msg(msg) }
