package retry

import "errors"

// ErrBudgetExhausted is returned when a shared retry budget rejects an attempt.
var ErrBudgetExhausted = errors.New("retry budget exhausted")

// Error is the terminal failure propagated to the caller when the retry loop
// ends without success. Its message is the last underlying failure's message;
// the diagnostic fields ride alongside as typed data rather than dynamically
// attached properties, so callers pattern-match with errors.As:
//
//	var terminal *retry.Error
//	if errors.As(err, &terminal) {
//	    log.Printf("gave up after %d retries: %s", terminal.RetryAttempts, terminal.Suggestion)
//	}
type Error struct {
	cause error

	// CallID correlates this failure with the call's log lines and span.
	CallID string
	// History is the ordered sequence of attempt records, one per invocation
	// actually made. Its length never exceeds maxRetries+1.
	History []Attempt
	// RetryAttempts is the number of retries actually performed: zero when the
	// very first attempt failed terminally.
	RetryAttempts uint
	// Recovery holds ordered remediation steps. Present only when the policy
	// named a service and the failure matched a known guidance category.
	Recovery []string
	// Suggestion is a single human-readable remediation sentence, present
	// under the same conditions as Recovery.
	Suggestion string
}

func newError(cause error, callID string, history []Attempt) *Error {
	var retries uint
	if len(history) > 0 {
		retries = uint(len(history)) - 1
	}

	return &Error{
		cause:         cause,
		CallID:        callID,
		History:       history,
		RetryAttempts: retries,
	}
}

// Error implements the error interface, returning the last underlying
// failure's message.
func (e *Error) Error() string {
	return e.cause.Error()
}

// Unwrap returns the last underlying failure for error chain unwrapping.
func (e *Error) Unwrap() error {
	return e.cause
}

// TemporaryError marks errors that decide their own retryability, bypassing
// the configured classifier. Operations can return errors implementing this
// interface to control retry behavior directly.
type TemporaryError interface {
	// Temporary returns true if the operation should be retried and false if
	// retries should stop immediately.
	Temporary() bool
	error
}

// permanentError wraps an error to mark it as terminal.
type permanentError struct {
	error
}

// Temporary returns false to indicate this error should not be retried.
func (e *permanentError) Temporary() bool { return false }

// Unwrap returns the underlying error for error chain unwrapping.
func (e *permanentError) Unwrap() error {
	return e.error
}

// Abort wraps an error to mark it as terminal, ending the retry loop
// immediately regardless of what the classifier would say.
//
// Example:
//
//	if err := validateInput(data); err != nil {
//	    return retry.Abort(err) // Don't retry validation errors
//	}
func Abort(err error) TemporaryError {
	return &permanentError{err}
}

// transientError wraps an error to mark it as retryable.
type transientError struct {
	error
}

// Temporary returns true to indicate this error should be retried.
func (e *transientError) Temporary() bool { return true }

// Unwrap returns the underlying error for error chain unwrapping.
func (e *transientError) Unwrap() error {
	return e.error
}

// Transient wraps an error to mark it as retryable, overriding the
// classifier's default-terminal verdict for error shapes it does not
// recognize.
func Transient(err error) TemporaryError {
	return &transientError{err}
}
