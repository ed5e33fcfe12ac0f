// internal/adapter/httpclient/client.go

package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"trendcatch/internal/logger"
)

const maxResponseBytes = 16 << 20

// StatusError is returned for responses outside the 2xx range
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d: %s", e.StatusCode, e.Body)
}

// RequestFunc builds a fresh request for every attempt, since request bodies
// cannot be replayed
type RequestFunc func(ctx context.Context) (*http.Request, error)

// Client performs HTTP requests with exponential backoff on network errors,
// rate limiting and server errors
type Client struct {
	client          *http.Client
	initialInterval time.Duration
	maxInterval     time.Duration
	maxElapsedTime  time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithBackoff overrides the retry intervals
func WithBackoff(initial, max, maxElapsed time.Duration) Option {
	return func(c *Client) {
		c.initialInterval = initial
		c.maxInterval = max
		c.maxElapsedTime = maxElapsed
	}
}

// New creates a new retrying client
func New(timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		client: &http.Client{
			Timeout: timeout,
		},
		initialInterval: 2 * time.Second,
		maxInterval:     30 * time.Second,
		maxElapsedTime:  1 * time.Minute,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Do executes the request built by newRequest until it succeeds, fails
// permanently or the retry budget is spent, and returns the response body
func (c *Client) Do(ctx context.Context, newRequest RequestFunc) ([]byte, error) {
	var respBody []byte

	operation := func() error {
		req, err := newRequest(ctx)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}

		resp, err := c.client.Do(req)
		if err != nil {
			// Network errors are retryable
			return fmt.Errorf("failed to perform request: %w", err)
		}
		defer func() {
			if err := resp.Body.Close(); err != nil {
				logger.Warn("failed to close response body", zap.Error(err), zap.String("host", req.URL.Host))
			}
		}()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			logger.Warn("rate limited, retrying with backoff", zap.String("host", req.URL.Host))
			return statusErr
		case resp.StatusCode >= 500:
			return statusErr
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return backoff.Permanent(statusErr)
		}

		respBody = body
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialInterval
	b.MaxInterval = c.maxInterval
	b.MaxElapsedTime = c.maxElapsedTime
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.5

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("request failed after retries: %w", err)
	}

	return respBody, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
