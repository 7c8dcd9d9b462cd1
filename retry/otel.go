package retry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/amp-labs/amp-resilient/retry"

// callSpan aliases trace.Span so the loop in retry.go stays free of direct
// otel plumbing.
type callSpan = trace.Span

// startCallSpan opens one span covering the whole retry loop. Uses the global
// tracer provider; with the default no-op provider this costs nothing.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller
func startCallSpan(ctx context.Context, service, callID string) (context.Context, callSpan) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "retry.do")
	span.SetAttributes(
		attribute.String("retry.call_id", callID),
		attribute.String("retry.service", serviceLabel(service)),
	)

	return ctx, span
}

// recordAttemptEvent appends one event per failed invocation, so the span
// timeline mirrors the attempt history.
func recordAttemptEvent(span callSpan, attempt uint, err error, retryable bool) {
	span.AddEvent("attempt failed", trace.WithAttributes(
		attribute.Int("retry.attempt", int(attempt)), //nolint:gosec // Attempt counts stay far below MaxInt
		attribute.String("retry.error", err.Error()),
		attribute.Bool("retry.retryable", retryable),
	))
}

func markSpanSuccess(span callSpan, attempts int) {
	span.SetAttributes(
		attribute.String("retry.outcome", "success"),
		attribute.Int("retry.attempts", attempts),
	)
	span.SetStatus(codes.Ok, "")
}

func markSpanFailure(span callSpan, cause error, outcome string, attempts int) {
	span.RecordError(cause)
	span.SetAttributes(
		attribute.String("retry.outcome", outcome),
		attribute.Int("retry.attempts", attempts),
	)
	span.SetStatus(codes.Error, outcome)
}
