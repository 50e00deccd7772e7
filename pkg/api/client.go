package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultTimeout       = 10 * time.Second
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = 1 * time.Second
)

// APIError is the normalized failure surfaced after all retry attempts are
// exhausted. Status and StatusText carry the last HTTP status seen; a pure
// transport failure reports status 0 with StatusText "Network Error".
type APIError struct {
	Message    string
	Status     int
	StatusText string
}

func (e *APIError) Error() string {
	return e.Message
}

// httpError marks an attempt that reached the server but got a non-2xx reply
type httpError struct {
	status     int
	statusText string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.status, e.statusText)
}

// Client wraps HTTP GET requests with a per-attempt timeout and
// retry-with-linear-backoff. It does no caching.
type Client struct {
	baseURL       string
	timeout       time.Duration
	retryAttempts int
	retryDelay    time.Duration
	httpClient    *http.Client
	logger        *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the per-attempt timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRetry sets the attempt count and the backoff base delay.
// The delay before attempt k is delay*(k-1).
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.retryAttempts = attempts
		}
		c.retryDelay = delay
	}
}

// WithLogger sets the logger used for retry diagnostics
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// NewClient creates a client for the given base URL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:       baseURL,
		timeout:       DefaultTimeout,
		retryAttempts: DefaultRetryAttempts,
		retryDelay:    DefaultRetryDelay,
		httpClient:    &http.Client{},
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON fetches baseURL+endpoint and decodes the JSON body into out.
// Each attempt gets its own timeout; a timed-out attempt is aborted and
// counted as failed while the retry sequence keeps going. After the last
// attempt fails the error is returned as an *APIError.
func (c *Client) GetJSON(ctx context.Context, endpoint string, out any) error {
	url := c.baseURL + endpoint

	var lastErr error
	for attempt := 1; attempt <= c.retryAttempts; attempt++ {
		if attempt > 1 {
			delay := c.retryDelay * time.Duration(attempt-1)
			c.logger.Warn("request failed, retrying",
				zap.String("url", url),
				zap.Int("attempt", attempt-1),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return normalize(ctx.Err())
			case <-time.After(delay):
			}
		}

		err := c.do(ctx, url, out)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	c.logger.Warn("request failed, attempts exhausted",
		zap.String("url", url),
		zap.Int("attempts", c.retryAttempts),
		zap.Error(lastErr))
	return normalize(lastErr)
}

// do performs a single attempt under the per-attempt timeout
func (c *Client) do(ctx context.Context, url string, out any) error {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused across attempts
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return &httpError{
			status:     resp.StatusCode,
			statusText: http.StatusText(resp.StatusCode),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// normalize converts the last attempt's failure into an *APIError
func normalize(err error) *APIError {
	if err == nil {
		return nil
	}
	var he *httpError
	if errors.As(err, &he) {
		return &APIError{
			Message:    he.Error(),
			Status:     he.status,
			StatusText: he.statusText,
		}
	}
	return &APIError{
		Message:    err.Error(),
		Status:     0,
		StatusText: "Network Error",
	}
}
