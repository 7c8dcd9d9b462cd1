// Package retry re-invokes fallible operations on transient failure. It
// applies exponential backoff with jitter between attempts, honors
// server-supplied Retry-After hints, distinguishes retryable from terminal
// failures, records a full per-call attempt history, and enriches terminal
// failures with service-specific remediation guidance.
//
// The package offers both simple one-shot functions (Do, DoValue) and reusable
// Runner interfaces for operations that need consistent retry behavior.
//
// Basic usage:
//
//	err := retry.Do(ctx, func(ctx context.Context) error {
//	    return makeAPICall()
//	})
//
// With a policy:
//
//	err := retry.Do(ctx, operation,
//	    retry.WithMaxRetries(5),
//	    retry.WithBaseDelay(100*time.Millisecond),
//	    retry.WithService("jira"),
//	)
//
// For operations that return values:
//
//	result, err := retry.DoValue(ctx, func(ctx context.Context) (string, error) {
//	    return fetchData()
//	})
//
// On terminal failure the returned error is a *retry.Error carrying the
// ordered attempt history and, when a service is configured, recovery steps
// and a suggestion for the operator.
package retry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
)

const (
	defaultBaseDelay  = 1 * time.Second
	defaultMaxDelay   = 30 * time.Second
	defaultMaxRetries = 3
)

// Runner is an interface for executing operations with retry logic.
// It handles errors and automatically retries based on the configured policy.
type Runner interface {
	Do(ctx context.Context, f func(ctx context.Context) error) error
}

// ValueRunner is a generic interface for executing operations that return a
// value with retry logic, returning the successful result or a *Error.
type ValueRunner[T any] interface {
	Do(ctx context.Context, f func(ctx context.Context) (T, error)) (T, error)
}

// NewRunner creates a new Runner with the specified policy options.
// If no options are provided, it uses the defaults:
//   - 3 retries beyond the initial attempt
//   - Exponential backoff: 1s base, 30s max, doubling per retry
//   - Additive jitter in [0, base/2)
//   - The default classifier (network codes and HTTP status codes)
//
// Example:
//
//	runner := retry.NewRunner(
//	    retry.WithMaxRetries(5),
//	    retry.WithService("slack"),
//	)
//	err := runner.Do(ctx, operation)
func NewRunner(opts ...Option) Runner {
	return &runnerImpl{
		opts: newOptions(opts...),
	}
}

// NewValueRunner creates a new ValueRunner for operations that return a value.
// It applies the same defaults as NewRunner.
func NewValueRunner[T any](opts ...Option) ValueRunner[T] {
	return &valueRunnerImpl[T]{
		opts: newOptions(opts...),
	}
}

// runnerImpl is the concrete implementation of the Runner interface.
type runnerImpl struct {
	opts *options
}

// Do executes the provided function with retry logic according to the runner's policy.
func (r *runnerImpl) Do(ctx context.Context, f func(ctx context.Context) error) error {
	return do(ctx, r.opts, f)
}

// valueRunnerImpl is the concrete implementation of the ValueRunner interface.
type valueRunnerImpl[T any] struct {
	opts *options
}

// Do executes the provided function with retry logic according to the runner's
// policy. If the loop ends without success, it returns the zero value of T and
// the terminal *Error.
func (v valueRunnerImpl[T]) Do(ctx context.Context, f func(ctx context.Context) (T, error)) (T, error) {
	var out T

	err := do(ctx, v.opts, func(ctx context.Context) error {
		var err error

		out, err = f(ctx)

		return err
	})
	if err != nil {
		var zeroVal T

		return zeroVal, err
	}

	return out, nil
}

// do is the core retry loop. It drives the state machine:
// invoke -> on success return the value unchanged; on failure classify and
// record an attempt -> non-retryable ends the loop immediately -> retryable
// with budget remaining resolves a delay (Retry-After hint first, computed
// backoff otherwise), fires the on-retry hook, sleeps, and re-enters.
// Every terminal outcome is returned as a *Error carrying the full history.
//
// Cancellation of ctx aborts both an in-flight attempt wait and the backoff
// sleep; it is a distinct terminal outcome, never classified or retried.
func do(ctx context.Context, opts *options, operation func(ctx context.Context) error) error {
	callID := uuid.New().String()
	ctx, span := startCallSpan(ctx, opts.service, callID)

	defer span.End()

	history := make([]Attempt, 0, opts.maxRetries+1)

	var mut sync.Mutex

	running := atomic.NewBool(true)
	defer running.Store(false)

	for attempt := uint(1); ; attempt++ {
		ctx := withAttempt(ctx, attempt)

		// The shared budget rejects retries (never initial calls) when the
		// system-wide retry ratio is too high.
		if !opts.budget.sendOK(attempt != 1) {
			return fail(span, opts, callID, ErrBudgetExhausted, history, outcomeBudget)
		}

		// A fresh channel per attempt avoids races with goroutines left over
		// from timed-out attempts.
		errChan := make(chan error, 1)

		go func(ctx context.Context) {
			defer close(errChan)

			if opts.timeout != 0 {
				errChan <- callWithTimeout(ctx, operation, opts.timeout, &mut, running)
			} else {
				mut.Lock()
				defer mut.Unlock()

				if !running.Load() {
					return
				}

				errChan <- operation(ctx)
			}
		}(ctx)

		var err error

		select {
		case <-ctx.Done():
			return fail(span, opts, callID, ctx.Err(), history, outcomeCanceled)
		case err = <-errChan:
			if err == nil {
				succeed(span, opts, attempt)

				return nil
			}
		}

		retryable := classify(opts, err)
		history = append(history, Attempt{
			Number:    attempt,
			Message:   err.Error(),
			Timestamp: time.Now(),
			Retryable: retryable,
		})

		attemptsTotal.WithLabelValues(serviceLabel(opts.service), "failure").Inc()
		recordAttemptEvent(span, attempt, err, retryable)

		// Non-retryable failures end the loop immediately; the budget for
		// further attempts is irrelevant.
		if !retryable {
			return fail(span, opts, callID, err, history, outcomeNonRetryable)
		}

		if attempt-1 >= opts.maxRetries {
			return fail(span, opts, callID, err, history, outcomeExhausted)
		}

		delay, hinted := resolveDelay(err, attempt-1, opts)

		if opts.onRetry != nil {
			opts.onRetry(attempt, err, delay)
		}

		reason := "backoff"
		if hinted {
			reason = "hint"
		}

		scheduledTotal.WithLabelValues(serviceLabel(opts.service), reason).Inc()

		opts.log().DebugContext(ctx, "retry scheduled",
			"call_id", callID,
			"service", opts.service,
			"retry", attempt,
			"delay", delay,
			"hinted", hinted,
			"error", err.Error(),
		)

		if serr := sleepCtx(ctx, delay); serr != nil {
			return fail(span, opts, callID, serr, history, outcomeCanceled)
		}
	}
}

// classify decides whether a failure is retryable. An explicit marker
// (Abort/Transient or any error implementing TemporaryError) takes precedence
// over the configured classifier.
func classify(opts *options, err error) bool {
	var marked TemporaryError
	if errors.As(err, &marked) {
		return marked.Temporary()
	}

	return opts.classifier.Retryable(err)
}

// fail builds the terminal *Error for a finished loop: history, retry count,
// and (when a service is configured) remediation guidance.
func fail(span callSpan, opts *options, callID string, cause error, history []Attempt, outcome string) error {
	terminal := newError(cause, callID, history)
	opts.enrich(terminal)

	terminalTotal.WithLabelValues(serviceLabel(opts.service), outcome).Inc()
	markSpanFailure(span, cause, outcome, len(history))

	opts.log().Warn("operation failed terminally",
		"call_id", callID,
		"service", opts.service,
		"outcome", outcome,
		"attempts", len(history),
		"error", cause.Error(),
	)

	return terminal
}

// succeed records the success-side telemetry. Success carries no history
// artifacts; the caller gets the operation's value unchanged.
func succeed(span callSpan, opts *options, attempt uint) {
	attemptsTotal.WithLabelValues(serviceLabel(opts.service), "success").Inc()
	markSpanSuccess(span, int(attempt))
}

// sleepCtx waits for the delay, returning early with ctx.Err() on cancellation.
func sleepCtx(ctx context.Context, dur time.Duration) error {
	if dur <= 0 {
		return nil
	}

	timer := time.NewTimer(dur)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// callWithTimeout wraps a single attempt with a deadline. If the attempt does
// not complete in time it returns context.DeadlineExceeded, which the default
// classifier treats as a retryable timeout.
func callWithTimeout(
	ctx context.Context,
	callback func(context.Context) error,
	timeout Timeout,
	mut *sync.Mutex,
	running *atomic.Bool,
) error {
	// Brief lock/unlock provides a memory barrier to ensure visibility of running flag
	mut.Lock()
	mut.Unlock() //nolint:staticcheck

	if !running.Load() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeout))
	defer cancel()

	errChan := make(chan error, 1)

	go func(ctx context.Context) {
		defer close(errChan)

		mut.Lock()
		defer mut.Unlock()

		if !running.Load() {
			return
		}

		errChan <- callback(ctx)
	}(ctx)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}

// Do is a convenience function that creates a Runner and executes the provided
// function with retry logic in a single call.
//
// Example:
//
//	err := retry.Do(ctx, func(ctx context.Context) error {
//	    return makeAPICall()
//	}, retry.WithMaxRetries(5))
func Do(ctx context.Context, f func(ctx context.Context) error, opts ...Option) error {
	return NewRunner(opts...).Do(ctx, f)
}

// DoValue is a convenience function that creates a ValueRunner and executes the
// provided function with retry logic in a single call.
//
// Example:
//
//	result, err := retry.DoValue(ctx, func(ctx context.Context) (string, error) {
//	    return fetchData()
//	}, retry.WithMaxRetries(5))
func DoValue[T any](ctx context.Context, f func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	return NewValueRunner[T](opts...).Do(ctx, f)
}
