package gtfsrt

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"
)

// Retry policy for feed downloads. Network errors, 5xx and 429 are
// retried with exponential backoff plus jitter; other 4xx fail fast.
const (
	retryAttempts  = 3
	retryBaseDelay = 1 * time.Second
	retryMaxDelay  = 10 * time.Second
)

// Client fetches binary GTFS-RT payloads over HTTP.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a feed client with the given request timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

type httpStatusError struct {
	url  string
	code int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.code, e.url)
}

func retryable(err error) bool {
	if se, ok := err.(*httpStatusError); ok {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	// Transport-level failures (timeouts, resets) are always retryable.
	return true
}

// Fetch downloads a feed, retrying transient failures. Returns nil bytes
// for an empty URL so optional feeds can stay unconfigured.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, nil
	}
	var lastErr error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoffDelay(attempt)):
			}
		}
		data, err := c.fetchOnce(ctx, url)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if ctx.Err() != nil || !retryable(err) {
			break
		}
	}
	return nil, lastErr
}

func (c *Client) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &httpStatusError{url: url, code: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

// backoffDelay returns the sleep before the given retry attempt:
// base*2^(attempt-1), capped, with up to 50% random jitter added.
func backoffDelay(attempt int) time.Duration {
	d := retryBaseDelay << (attempt - 1)
	if d > retryMaxDelay {
		d = retryMaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(d) / 2))
	d += jitter
	if d > retryMaxDelay {
		d = retryMaxDelay
	}
	return d
}
