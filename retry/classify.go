package retry

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// Classifier decides whether a caught failure is retryable. The verdict must
// be a pure function of the error's shape.
type Classifier interface {
	Retryable(err error) bool
}

// ClassifierFunc adapts a plain function to the Classifier interface.
type ClassifierFunc func(err error) bool

// Retryable implements Classifier.
func (f ClassifierFunc) Retryable(err error) bool {
	return f(err)
}

// retryableNetworkCodes are the transport-level error codes treated as
// transient.
var retryableNetworkCodes = map[string]bool{ //nolint:gochecknoglobals // Static lookup table
	"ECONNREFUSED": true,
	"ECONNRESET":   true,
	"ETIMEDOUT":    true,
}

// DefaultClassifier implements the standard taxonomy:
//
//  1. Transient network indicators (connection refused, connection reset,
//     timed out) are retryable. These are matched from wrapped syscall errnos,
//     net.Error timeouts, context deadline expiry, and errors exposing a
//     NetworkCode() string accessor.
//  2. Otherwise, an error exposing StatusCode() int is retryable for 429 and
//     any 5xx, and terminal for any other 4xx.
//  3. Anything else is terminal. Defaulting to non-retryable avoids masking
//     programming errors as transient faults; callers can override a single
//     error with Transient or a whole runner with WithClassifier.
type DefaultClassifier struct{}

// Retryable implements Classifier.
func (DefaultClassifier) Retryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}

	// A deadline expiry is a timeout whether it came from the caller's
	// context or from WithTimeout.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var nc networkCoder
	if errors.As(err, &nc) && retryableNetworkCodes[nc.NetworkCode()] {
		return true
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		return retryableStatus(sc.StatusCode())
	}

	return false
}

func retryableStatus(status int) bool {
	if status == 429 {
		return true
	}

	return status >= 500 && status <= 599
}
