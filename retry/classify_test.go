package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultClassifier_NetworkCodes(t *testing.T) {
	t.Parallel()

	classifier := DefaultClassifier{}

	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"connection refused code", &NetworkError{Code: "ECONNREFUSED"}, true},
		{"connection reset code", &NetworkError{Code: "ECONNRESET"}, true},
		{"timed out code", &NetworkError{Code: "ETIMEDOUT"}, true},
		{"unknown network code", &NetworkError{Code: "EHOSTUNREACH"}, false},
		{"wrapped refused errno", fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED), true},
		{"wrapped reset errno", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"wrapped timeout errno", fmt.Errorf("write: %w", syscall.ETIMEDOUT), true},
		{"context deadline", context.DeadlineExceeded, true},
		{"net timeout", &net.DNSError{IsTimeout: true}, true},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.retryable, classifier.Retryable(tt.err))
		})
	}
}

func TestDefaultClassifier_StatusCodes(t *testing.T) {
	t.Parallel()

	classifier := DefaultClassifier{}

	tests := []struct {
		status    int
		retryable bool
	}{
		{429, true},
		{500, true},
		{502, true},
		{503, true},
		{504, true},
		{599, true},
		{400, false},
		{401, false},
		{403, false},
		{404, false},
		{409, false},
		{422, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			t.Parallel()

			err := &StatusError{Status: tt.status}
			assert.Equal(t, tt.retryable, classifier.Retryable(err))
		})
	}
}

func TestDefaultClassifier_NetworkPrecedesStatus(t *testing.T) {
	t.Parallel()

	// An error carrying both a transient network code and a terminal status
	// classifies by the network indicator first.
	err := &shapedError{code: "ECONNRESET", status: 400}

	assert.True(t, DefaultClassifier{}.Retryable(err))
}

func TestDefaultClassifier_UnknownShapeIsTerminal(t *testing.T) {
	t.Parallel()

	err := errors.New("something unexpected") //nolint:err113 // Test error

	assert.False(t, DefaultClassifier{}.Retryable(err),
		"errors with no recognized shape must not be treated as transient")
}

func TestClassifierFunc(t *testing.T) {
	t.Parallel()

	always := ClassifierFunc(func(err error) bool { return true })

	assert.True(t, always.Retryable(errors.New("anything"))) //nolint:err113 // Test error
}

func TestClassify_MarkerBeatsClassifier(t *testing.T) {
	t.Parallel()

	opts := newOptions()

	// 503 is retryable by default but Abort overrides.
	assert.False(t, classify(opts, Abort(&StatusError{Status: 503})))

	// An unknown shape is terminal by default but Transient overrides.
	assert.True(t, classify(opts, Transient(errors.New("unknown")))) //nolint:err113 // Test error
}

// shapedError implements both the network-code and status-code accessors.
type shapedError struct {
	code   string
	status int
}

func (e *shapedError) Error() string       { return e.code }
func (e *shapedError) NetworkCode() string { return e.code }
func (e *shapedError) StatusCode() int     { return e.status }

// Compile-time interface checks for the exported failure shapes.
var (
	_ statusCoder        = (*StatusError)(nil)
	_ retryAfterProvider = (*StatusError)(nil)
	_ networkCoder       = (*NetworkError)(nil)
)
