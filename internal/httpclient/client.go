// Package httpclient provides the HTTP client used to read the upstream reference API.
// Requests are retried with exponential backoff and guarded by a circuit breaker so a
// failing upstream is not hammered by every worker.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker/v2"

	"github.com/pokemnky/catalog-sync/internal/config"
)

const (
	// DefaultTimeout is the default request timeout
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the largest response body accepted (100MB)
	MaxResponseSize = 100 * 1024 * 1024

	// DefaultUserAgent is sent when no user agent is configured
	DefaultUserAgent = "catalog-sync/1.0"

	breakerName = "upstream"
)

// Client is the interface for reading the upstream API
//
//go:generate mockgen -destination=mocks/mock_client.go -package=mocks github.com/pokemnky/catalog-sync/internal/httpclient Client
type Client interface {
	// Get fetches url and returns the response body of a 2xx response
	Get(ctx context.Context, url string) ([]byte, error)
	// Available reports whether the circuit breaker currently lets requests through
	Available() bool
}

// DefaultClient implements Client on top of net/http
type DefaultClient struct {
	client    *http.Client
	userAgent string
	maxTries  uint
	baseDelay time.Duration
	breaker   *gobreaker.CircuitBreaker[[]byte]
}

// Option configures a DefaultClient
type Option func(*DefaultClient)

// WithUserAgent sets the User-Agent header sent with every request
func WithUserAgent(ua string) Option {
	return func(c *DefaultClient) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithRetries sets the total number of tries per request and the initial backoff delay.
// A value below 2 disables retries.
func WithRetries(tries int, baseDelay time.Duration) Option {
	return func(c *DefaultClient) {
		c.maxTries = uint(max(tries, 1)) //nolint:gosec // bounded below
		if baseDelay > 0 {
			c.baseDelay = baseDelay
		}
	}
}

// WithBreaker opens the circuit after consecutiveFailures failed requests in a row and
// keeps it open for openTimeout before letting a probe request through
func WithBreaker(consecutiveFailures uint32, openTimeout time.Duration) Option {
	return func(c *DefaultClient) {
		c.breaker = newBreaker(consecutiveFailures, openTimeout)
	}
}

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *DefaultClient) {
		if hc != nil {
			c.client = hc
		}
	}
}

// NewDefaultClient creates a client with the given timeout, no retries and no circuit breaker.
// If timeout is 0, DefaultTimeout is used.
func NewDefaultClient(timeout time.Duration, opts ...Option) *DefaultClient {
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	c := &DefaultClient{
		client:    &http.Client{Timeout: timeout},
		userAgent: DefaultUserAgent,
		maxTries:  1,
		baseDelay: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig creates a client with the retry and breaker policy of the upstream configuration
func NewFromConfig(cfg config.UpstreamConfig) *DefaultClient {
	return NewDefaultClient(cfg.GetTimeout(),
		WithUserAgent(cfg.GetUserAgent()),
		WithRetries(cfg.GetMaxRetries(), cfg.GetRetryBaseDelay()),
		WithBreaker(cfg.GetBreakerFailures(), cfg.GetBreakerOpenTimeout()),
	)
}

// Available reports whether the circuit breaker is not open
func (c *DefaultClient) Available() bool {
	return c.breaker == nil || c.breaker.State() != gobreaker.StateOpen
}

// Get performs an HTTP GET request and returns the response body.
// Retryable failures are retried with exponential backoff; 404 and other client errors are returned at once.
func (c *DefaultClient) Get(ctx context.Context, url string) ([]byte, error) {
	if c.breaker == nil {
		return c.getWithRetry(ctx, url)
	}

	data, err := c.breaker.Execute(func() ([]byte, error) {
		return c.getWithRetry(ctx, url)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	return data, err
}

func (c *DefaultClient) getWithRetry(ctx context.Context, url string) ([]byte, error) {
	if c.maxTries <= 1 {
		return c.get(ctx, url)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.baseDelay

	attempt := 0
	operation := func() ([]byte, error) {
		attempt++
		data, err := c.get(ctx, url)
		if err == nil {
			return data, nil
		}
		if !IsRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		slog.Debug("Retrying upstream request", "url", url, "attempt", attempt, "error", err)
		return nil, err
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(c.maxTries),
	)
}

func (c *DefaultClient) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, NewHTTPError(resp.StatusCode, url, string(msg))
	}

	if resp.ContentLength > MaxResponseSize {
		return nil, fmt.Errorf("response size (%d bytes) exceeds maximum allowed size of %.2f MB",
			resp.ContentLength, float64(MaxResponseSize)/(1024*1024))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("response body exceeds maximum allowed size of %.2f MB",
			float64(MaxResponseSize)/(1024*1024))
	}

	return body, nil
}

func newBreaker(consecutiveFailures uint32, openTimeout time.Duration) *gobreaker.CircuitBreaker[[]byte] {
	if consecutiveFailures == 0 {
		consecutiveFailures = 5
	}
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutiveFailures
		},
		// A client error means the upstream answered; only server and transport failures count.
		IsSuccessful: func(err error) bool {
			return err == nil || !IsRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
