// Package httpretry wraps an http.RoundTripper so whole requests are driven
// through the retry engine. Throttling (429) and server-error (5xx) responses
// are surfaced to the engine as *retry.StatusError, which makes the classifier
// retry them and lets the delay resolver honor Retry-After headers; transport
// errors pass through untouched for network classification.
package httpretry

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/amp-labs/amp-resilient/retry"
)

// drainLimit bounds how much of a discarded response body is read before
// closing, enough to let the connection be reused without buffering huge
// error pages.
const drainLimit = 4 << 10

// NewTransport wraps base (http.DefaultTransport when nil) with retry logic
// configured by opts.
//
// Responses with status 429 or 5xx are converted to *retry.StatusError and
// retried per policy; their bodies are drained and closed. All other
// responses, including non-retryable error statuses like 404, are returned
// unchanged so ordinary http.Client semantics hold. When retries are
// exhausted the returned error is a *retry.Error wrapping the last
// *retry.StatusError, with the full attempt history attached.
//
// Requests whose bodies cannot be replayed (Body set but GetBody nil) are
// passed straight to the base transport and never retried.
//
// Example:
//
//	client := &http.Client{
//	    Transport: httpretry.NewTransport(nil,
//	        retry.WithMaxRetries(3),
//	        retry.WithService("jira"),
//	    ),
//	}
func NewTransport(base http.RoundTripper, opts ...retry.Option) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	return &transport{
		base:   base,
		runner: retry.NewValueRunner[*http.Response](opts...),
	}
}

// transport is the retrying http.RoundTripper implementation.
type transport struct {
	base   http.RoundTripper
	runner retry.ValueRunner[*http.Response]
}

// Compile-time check to ensure transport implements http.RoundTripper.
var _ http.RoundTripper = (*transport)(nil)

// RoundTrip executes the request through the retry engine.
func (t *transport) RoundTrip(request *http.Request) (*http.Response, error) {
	if request.Body != nil && request.GetBody == nil {
		// The body can only be read once, so a retry would replay a
		// truncated request. Give up on retrying entirely.
		return t.base.RoundTrip(request)
	}

	return t.runner.Do(request.Context(), func(ctx context.Context) (*http.Response, error) {
		attempt, err := t.prepare(request)
		if err != nil {
			return nil, retry.Abort(err)
		}

		response, err := t.base.RoundTrip(attempt.WithContext(ctx))
		if err != nil {
			return nil, err
		}

		if !retryableResponse(response.StatusCode) {
			return response, nil
		}

		return nil, statusFailure(attempt, response)
	})
}

// prepare clones the request and rewinds its body for one attempt.
func (t *transport) prepare(request *http.Request) (*http.Request, error) {
	attempt := request.Clone(request.Context())

	if request.GetBody != nil {
		body, err := request.GetBody()
		if err != nil {
			return nil, fmt.Errorf("rewinding request body: %w", err)
		}

		attempt.Body = body
	}

	return attempt, nil
}

func retryableResponse(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// statusFailure converts a retryable response into the engine's failure shape,
// draining and closing the body so the underlying connection can be reused.
func statusFailure(request *http.Request, response *http.Response) *retry.StatusError {
	if response.Body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, drainLimit))
		_ = response.Body.Close()
	}

	return &retry.StatusError{
		Status: response.StatusCode,
		Header: response.Header.Clone(),
		Reason: fmt.Sprintf("%s %s: %s", request.Method, request.URL.Redacted(), response.Status),
	}
}
