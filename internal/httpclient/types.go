package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUpstreamUnavailable is returned while the circuit breaker rejects requests
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// HTTPError represents an HTTP error response from the upstream API
type HTTPError struct {
	StatusCode int
	URL        string
	Message    string
}

// Error implements the error interface
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Message)
}

// NewHTTPError creates a new HTTPError
func NewHTTPError(statusCode int, url, message string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		URL:        url,
		Message:    message,
	}
}

// IsNotFound reports whether err carries an HTTP 404 response
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not an HTTPError
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// IsRetryable reports whether a request that failed with err may succeed when repeated.
// Server errors, throttling and transport failures are retryable; other client errors are not.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, ErrUpstreamUnavailable) {
		return false
	}
	code := StatusCode(err)
	if code == 0 {
		return !isContextError(err)
	}
	return code >= http.StatusInternalServerError || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

// IsUnreachable reports whether err means the request never got an answer from the
// upstream: the circuit breaker rejected it or the transport failed. HTTP error
// responses and context cancellation are not unreachability.
func IsUnreachable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUpstreamUnavailable) {
		return true
	}
	return StatusCode(err) == 0 && !isContextError(err)
}
