package retry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Terminal outcome labels.
const (
	outcomeNonRetryable = "non_retryable"
	outcomeExhausted    = "retries_exhausted"
	outcomeCanceled     = "canceled"
	outcomeBudget       = "budget_exhausted"
)

// Metric definitions with appropriate labels.
var (
	// attemptsTotal counts individual invocations of wrapped operations.
	attemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retry_attempts_total",
		Help: "Total invocations of retried operations by service and outcome (success or failure)",
	}, []string{"service", "outcome"})

	// scheduledTotal counts scheduled retries by delay source.
	scheduledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retry_scheduled_total",
		Help: "Total retries scheduled by service and delay source (hint or backoff)",
	}, []string{"service", "reason"})

	// terminalTotal counts calls that ended in a terminal failure.
	terminalTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retry_terminal_failures_total",
		Help: "Total terminal failures by service and outcome classification",
	}, []string{"service", "outcome"})
)

// serviceLabel keeps the label space bounded when no service is configured.
func serviceLabel(service string) string {
	if service == "" {
		return "none"
	}

	return service
}
