package retry

import (
	"context"
	"time"
)

// Attempt is one record of the per-call history: one entry per invocation of
// the wrapped operation, appended in order whether or not the failure was
// retryable.
type Attempt struct {
	// Number is the 1-indexed ordinal of this invocation (not of retries).
	Number uint `json:"attempt"`
	// Message is the failure message at this attempt.
	Message string `json:"error"`
	// Timestamp is when the failure was recorded.
	Timestamp time.Time `json:"timestamp"`
	// Retryable is the classifier's verdict for this specific failure.
	Retryable bool `json:"retryable"`
}

// ctxKey is the type for context keys used internally to avoid collisions.
type ctxKey string

// attemptKey is the context key holding the current attempt number.
const attemptKey ctxKey = "attempt"

// withAttempt adds the 1-indexed attempt number to the context so the wrapped
// operation can know which invocation it is.
func withAttempt(ctx context.Context, attempt uint) context.Context {
	return context.WithValue(ctx, attemptKey, attempt)
}

// AttemptNumber retrieves the current 1-indexed attempt number from the
// context. Returns 0 outside of a retry loop.
//
// Example:
//
//	err := retry.Do(ctx, func(ctx context.Context) error {
//	    if retry.AttemptNumber(ctx) > 1 {
//	        req.Header.Set("X-Retry", "true")
//	    }
//	    return makeAPICall(req)
//	})
func AttemptNumber(ctx context.Context) uint {
	i := ctx.Value(attemptKey)
	if i == nil {
		return 0
	}

	attempt, ok := i.(uint)
	if !ok {
		return 0
	}

	return attempt
}
