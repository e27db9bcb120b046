// Package bgg implements a client for the BoardGameGeek XML API v2.
//
// The API throttles aggressively: queued collection exports return HTTP 202
// until the export is generated server-side, and rate limiting returns HTTP
// 429 with an optional Retry-After header. A short fixed delay between
// attempts has proven sufficient in practice; exponential backoff only
// prolongs large downloads without reducing throttling.
package bgg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/bggsnap/bggsnap/iox"
	"github.com/bggsnap/bggsnap/metrics"
)

// DefaultBaseURL is the BGG XML API v2 endpoint.
const DefaultBaseURL = "https://boardgamegeek.com/xmlapi2"

// DefaultTimeout is the per-request timeout.
const DefaultTimeout = 3 * time.Second

// DefaultRetries is the number of retry attempts for retriable responses.
const DefaultRetries = 10

// DefaultDelay is the fixed delay between attempts.
const DefaultDelay = 5 * time.Second

// StatusError is returned for terminal non-2xx HTTP responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Config configures the API client.
type Config struct {
	// BaseURL is the API endpoint (default: DefaultBaseURL).
	BaseURL string
	// Timeout is the per-request timeout (default 3s).
	Timeout time.Duration
	// Retries is the number of retry attempts (default 10).
	Retries int
	// Delay is the fixed wait between attempts (default 5s).
	Delay time.Duration
}

// Client fetches raw XML payloads from the BGG XML API v2.
type Client struct {
	config    Config
	client    *http.Client
	collector *metrics.Collector
}

// New creates a client from the given config.
// The collector is optional; pass nil to skip metrics.
func New(cfg Config, collector *metrics.Collector) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = DefaultRetries
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}

	return &Client{
		config:    cfg,
		client:    &http.Client{Timeout: cfg.Timeout},
		collector: collector,
	}
}

// Get fetches the given query path and returns the response body.
//
// Retriable conditions, each consuming one attempt:
//   - read timeout
//   - HTTP 202 (collection export queued server-side)
//   - HTTP 429 (waits Retry-After seconds when the header is present)
//
// Any other non-200 status is terminal and returned as a StatusError.
func (c *Client) Get(ctx context.Context, queryPath string) ([]byte, error) {
	url := c.config.BaseURL + queryPath

	var lastErr error
	// attempts = 1 initial + retries
	attempts := 1 + c.config.Retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("bgg: context canceled: %w", err)
		}

		if i > 0 {
			c.collector.IncAPIRetry()
		}

		body, retryAfter, err := c.doRequest(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		// Terminal statuses fail immediately
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !retriableStatus(statusErr.Code) {
			return nil, fmt.Errorf("bgg: %s: %w", queryPath, err)
		}
		if !retriableError(err) {
			return nil, fmt.Errorf("bgg: %s: %w", queryPath, err)
		}

		// Wait before the next attempt, honoring Retry-After when given
		wait := c.config.Delay
		if retryAfter > 0 {
			wait = retryAfter
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("bgg: context canceled during delay: %w", ctx.Err())
		case <-time.After(wait):
		}
	}

	return nil, fmt.Errorf("bgg: %s: exhausted %d attempts: %w", queryPath, attempts, lastErr)
}

// doRequest performs a single GET. Returns the body on 200, or an error and
// the server-requested wait (429 Retry-After, zero otherwise).
func (c *Client) doRequest(ctx context.Context, url string) ([]byte, time.Duration, error) {
	c.collector.IncAPIRequest()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		// Drain to allow connection reuse
		_, _ = io.Copy(io.Discard, resp.Body)

		var retryAfter time.Duration
		if resp.StatusCode == http.StatusTooManyRequests {
			if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		return nil, retryAfter, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read body: %w", err)
	}

	return body, 0, nil
}

// retriableStatus reports whether an HTTP status consumes a retry attempt.
func retriableStatus(code int) bool {
	return code == http.StatusAccepted || code == http.StatusTooManyRequests
}

// retriableError reports whether a transport error consumes a retry attempt.
// Only read timeouts retry; other transport failures are terminal.
func retriableError(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return retriableStatus(statusErr.Code)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
