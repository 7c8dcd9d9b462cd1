package httpretry_test

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amp-labs/amp-resilient/httpretry"
	"github.com/amp-labs/amp-resilient/retry"
)

// fastOptions keep test retries quick and deterministic.
func fastOptions(extra ...retry.Option) []retry.Option {
	opts := []retry.Option{
		retry.WithBaseDelay(5 * time.Millisecond),
		retry.WithJitter(retry.WithoutJitter),
	}

	return append(opts, extra...)
}

func newRequest(t *testing.T, method, url string, body io.Reader) *http.Request {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), method, url, body)
	require.NoError(t, err)

	return req
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestRoundTrip_SuccessAfterServerError(t *testing.T) {
	t.Parallel()

	calls := 0
	base := httpretry.NewCustom(func(req *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return response(http.StatusServiceUnavailable, "try later"), nil
		}

		return response(http.StatusOK, "hello"), nil
	})

	transport := httpretry.NewTransport(base, fastOptions()...)

	resp, err := transport.RoundTrip(newRequest(t, http.MethodGet, "https://api.example.com/things", nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, calls)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestRoundTrip_ExhaustionReturnsHistory(t *testing.T) {
	t.Parallel()

	calls := 0
	base := httpretry.NewCustom(func(req *http.Request) (*http.Response, error) {
		calls++

		resp := response(http.StatusTooManyRequests, "slow down")
		resp.Header.Set("Retry-After", "0.05")

		return resp, nil
	})

	transport := httpretry.NewTransport(base, fastOptions(retry.WithMaxRetries(1))...)

	start := time.Now()
	resp, err := transport.RoundTrip(newRequest(t, http.MethodGet, "https://api.example.com/things", nil))
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, 2, calls)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond, "the Retry-After hint sets the delay")
	assert.Less(t, elapsed, time.Second)

	var terminal *retry.Error
	require.ErrorAs(t, err, &terminal)
	assert.Len(t, terminal.History, 2)
	assert.Equal(t, uint(1), terminal.RetryAttempts)

	var statusErr *retry.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.Status)
	assert.Contains(t, statusErr.Reason, "GET https://api.example.com/things")
}

func TestRoundTrip_NonRetryableStatusPassesThrough(t *testing.T) {
	t.Parallel()

	calls := 0
	base := httpretry.NewCustom(func(req *http.Request) (*http.Response, error) {
		calls++

		return response(http.StatusNotFound, "no such thing"), nil
	})

	transport := httpretry.NewTransport(base, fastOptions(retry.WithMaxRetries(5))...)

	resp, err := transport.RoundTrip(newRequest(t, http.MethodGet, "https://api.example.com/things/42", nil))

	require.NoError(t, err, "client status handling is the caller's business")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 1, calls)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "no such thing", string(body), "pass-through responses keep their bodies")
}

func TestRoundTrip_TransportErrorsRetried(t *testing.T) {
	t.Parallel()

	calls := 0
	base := httpretry.NewCustom(func(req *http.Request) (*http.Response, error) {
		calls++
		if calls < 3 {
			return nil, fmt.Errorf("dial tcp 10.0.0.1:443: %w", syscall.ECONNREFUSED)
		}

		return response(http.StatusOK, "recovered"), nil
	})

	transport := httpretry.NewTransport(base, fastOptions(retry.WithMaxRetries(3))...)

	resp, err := transport.RoundTrip(newRequest(t, http.MethodGet, "https://api.example.com/things", nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, calls)
}

func TestRoundTrip_BodyReplayedPerAttempt(t *testing.T) {
	t.Parallel()

	var bodies []string

	base := httpretry.NewCustom(func(req *http.Request) (*http.Response, error) {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}

		bodies = append(bodies, string(body))
		if len(bodies) < 2 {
			return response(http.StatusBadGateway, ""), nil
		}

		return response(http.StatusOK, ""), nil
	})

	transport := httpretry.NewTransport(base, fastOptions()...)

	req := newRequest(t, http.MethodPost, "https://api.example.com/things",
		bytes.NewReader([]byte(`{"name":"thing"}`)))
	require.NotNil(t, req.GetBody, "bytes.Reader bodies are replayable")

	resp, err := transport.RoundTrip(req)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{`{"name":"thing"}`, `{"name":"thing"}`}, bodies,
		"every attempt sees the full body")
}

func TestRoundTrip_NonReplayableBodyNeverRetried(t *testing.T) {
	t.Parallel()

	calls := 0
	base := httpretry.NewCustom(func(req *http.Request) (*http.Response, error) {
		calls++

		return response(http.StatusServiceUnavailable, ""), nil
	})

	transport := httpretry.NewTransport(base, fastOptions(retry.WithMaxRetries(5))...)

	req := newRequest(t, http.MethodPost, "https://api.example.com/things", nil)
	req.Body = io.NopCloser(strings.NewReader("one-shot stream"))
	req.GetBody = nil

	resp, err := transport.RoundTrip(req)

	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode,
		"an unreplayable request goes straight to the base transport")
	assert.Equal(t, 1, calls)
}

func TestRoundTrip_WorksWithHTTPClient(t *testing.T) {
	t.Parallel()

	calls := 0
	base := httpretry.NewCustom(func(req *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return response(http.StatusInternalServerError, ""), nil
		}

		return response(http.StatusOK, `{"ok":true}`), nil
	})

	client := &http.Client{Transport: httpretry.NewTransport(base, fastOptions()...)}

	resp, err := client.Do(newRequest(t, http.MethodGet, "https://api.example.com/health", nil))
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, calls)
}

func TestNewCustom_NilFunc(t *testing.T) {
	t.Parallel()

	base := httpretry.NewCustom(nil)

	resp, err := base.RoundTrip(newRequest(t, http.MethodGet, "https://api.example.com", nil))

	require.ErrorIs(t, err, httpretry.ErrNotConfigured)
	assert.Nil(t, resp)
}
