package retry

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
)

// The classifier and delay resolver read a caught failure through these
// optional accessor shapes, probed with errors.As. An error may implement any
// subset of them; all may be absent.

// statusCoder carries an HTTP status code.
type statusCoder interface {
	StatusCode() int
}

// networkCoder carries a transport-level error code such as "ECONNREFUSED".
type networkCoder interface {
	NetworkCode() string
}

// retryAfterProvider carries a server-supplied retry hint directly. An empty
// string means no hint.
type retryAfterProvider interface {
	RetryAfter() string
}

// headerProvider carries a flat header map. The retry hint key is matched
// case-insensitively.
type headerProvider interface {
	Headers() map[string]string
}

// responseProvider carries a nested HTTP response whose headers may hold a
// retry hint.
type responseProvider interface {
	Response() *http.Response
}

// StatusError is a ready-made failure shape for HTTP-backed operations: a
// status code plus the response headers, so both the classifier and the
// Retry-After resolver can read it.
type StatusError struct {
	// Status is the HTTP status code.
	Status int
	// Header holds the response headers. May be nil.
	Header http.Header
	// Reason is an optional human-readable message, e.g. the status line.
	Reason string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}

	return fmt.Sprintf("unexpected status %d", e.Status)
}

// StatusCode returns the HTTP status code.
func (e *StatusError) StatusCode() int {
	return e.Status
}

// RetryAfter returns the Retry-After header value, or "" when absent.
func (e *StatusError) RetryAfter() string {
	return e.Header.Get("Retry-After")
}

// NetworkError is a ready-made failure shape for transport-level errors
// reported by code string rather than by a wrapped errno.
type NetworkError struct {
	// Code is the transport error code, e.g. "ECONNREFUSED".
	Code string
	// Reason is an optional human-readable message.
	Reason string
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	if e.Reason != "" {
		return e.Code + ": " + e.Reason
	}

	return e.Code
}

// NetworkCode returns the transport error code.
func (e *NetworkError) NetworkCode() string {
	return e.Code
}

// parseSeconds parses a retry hint as a finite, non-negative number of
// seconds. Fractional values are allowed. Anything else (HTTP-date strings
// included) reports false.
func parseSeconds(hint string) (float64, bool) {
	seconds, err := strconv.ParseFloat(strings.TrimSpace(hint), 64)
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return 0, false
	}

	return seconds, true
}
