package httpretry

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotConfigured is returned by a NewCustom transport built without a
// round-trip function.
var ErrNotConfigured = errors.New("no round trip function configured")

// NewCustom creates an http.RoundTripper backed by a plain function. It pairs
// with NewTransport in tests to script upstream behavior per attempt without
// standing up a server.
//
// If roundTrip is nil, the transport fails every request with
// ErrNotConfigured, which is useful for detecting unintended HTTP calls.
//
// Example:
//
//	calls := 0
//	base := httpretry.NewCustom(func(req *http.Request) (*http.Response, error) {
//	    calls++
//	    if calls == 1 {
//	        return &http.Response{StatusCode: 503, Status: "503 Service Unavailable"}, nil
//	    }
//	    return &http.Response{StatusCode: 200, Status: "200 OK"}, nil
//	})
//	client := &http.Client{Transport: httpretry.NewTransport(base)}
func NewCustom(roundTrip func(req *http.Request) (*http.Response, error)) http.RoundTripper {
	if roundTrip == nil {
		roundTrip = func(req *http.Request) (*http.Response, error) {
			return nil, fmt.Errorf("%w: RoundTrip", ErrNotConfigured)
		}
	}

	return &customTransport{
		roundTrip: roundTrip,
	}
}

// customTransport delegates every round trip to a function.
type customTransport struct {
	roundTrip func(req *http.Request) (*http.Response, error)
}

// Compile-time check to ensure customTransport implements http.RoundTripper.
var _ http.RoundTripper = (*customTransport)(nil)

// RoundTrip executes the custom function for the given HTTP request. Standard
// http.RoundTripper semantics apply: the caller closes any returned body.
func (c *customTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	return c.roundTrip(request)
}
