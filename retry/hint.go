package retry

import (
	"errors"
	"strings"
	"time"
)

const retryAfterKey = "retry-after"

// resolveDelay computes how long to wait before the next retry. A
// server-supplied Retry-After hint on the failure is authoritative: it is
// interpreted as seconds, converted verbatim, and NOT capped by the policy's
// max delay. Without a usable hint the delay falls back to the computed
// backoff for the given zero-indexed attempt. The boolean reports whether a
// hint was used.
func resolveDelay(err error, attempt uint, opts *options) (time.Duration, bool) {
	if hint, ok := retryHint(err); ok {
		if seconds, ok := parseSeconds(hint); ok {
			return time.Duration(seconds * float64(time.Second)), true
		}
		// An unparseable hint (e.g. an HTTP-date) is ignored, not an error.
	}

	return opts.backoffFor().Delay(attempt), false
}

// retryHint extracts the first retry hint present on the error, checking in
// order: a direct accessor, a flat header map (case-insensitive key), and a
// nested response's headers. The first source that is present wins, even if
// its value turns out to be unparseable.
func retryHint(err error) (string, bool) {
	var direct retryAfterProvider
	if errors.As(err, &direct) {
		if hint := direct.RetryAfter(); hint != "" {
			return hint, true
		}
	}

	var flat headerProvider
	if errors.As(err, &flat) {
		if hint, ok := lookupFold(flat.Headers(), retryAfterKey); ok {
			return hint, true
		}
	}

	var nested responseProvider
	if errors.As(err, &nested) {
		if resp := nested.Response(); resp != nil {
			if hint := resp.Header.Get(retryAfterKey); hint != "" {
				return hint, true
			}
		}
	}

	return "", false
}

// lookupFold finds a map entry by case-insensitive key.
func lookupFold(headers map[string]string, key string) (string, bool) {
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}

	return "", false
}
