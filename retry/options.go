package retry

import (
	"log/slog"
	"time"

	"github.com/amp-labs/amp-resilient/guidance"
)

// Option configures a Runner or ValueRunner. Options follow the functional
// options pattern and together form the retry policy for a runner; the policy
// is immutable for the duration of each call.
type Option func(*options)

// options holds the internal retry policy.
type options struct {
	baseDelay  time.Duration  // Seed for exponential backoff
	maxDelay   time.Duration  // Cap on computed (non-hinted) delays
	maxRetries uint           // Retries permitted beyond the first attempt
	service    string         // Guidance-table key for terminal enrichment
	onRetry    OnRetry        // Observability hook, once per scheduled retry
	classifier Classifier     // Retryable-vs-terminal verdict
	backoff    Backoff        // Optional override of the computed backoff
	jitter     Jitter         // Additive jitter bound as a fraction of baseDelay
	timeout    Timeout        // Per-attempt timeout (0 = none)
	budget     *Budget        // Optional shared retry budget
	guide      guidance.Guide // Remediation lookup for terminal failures
	logger     *slog.Logger   // Destination for retry/terminal logs
}

// OnRetry is invoked once per scheduled retry with the retry ordinal (starting
// at 1), the failure that triggered it, and the resolved delay. It never fires
// for the first attempt or for the terminal failure itself.
type OnRetry func(retry uint, err error, delay time.Duration)

func newOptions(opts ...Option) *options {
	intOpts := &options{
		baseDelay:  defaultBaseDelay,
		maxDelay:   defaultMaxDelay,
		maxRetries: defaultMaxRetries,
		classifier: DefaultClassifier{},
		jitter:     HalfJitter,
	}

	for _, option := range opts {
		option(intOpts)
	}

	return intOpts
}

// backoffFor returns the configured backoff override, or an ExpBackoff built
// from the policy's delay fields.
func (o *options) backoffFor() Backoff {
	if o.backoff != nil {
		return o.backoff
	}

	return ExpBackoff{
		Base:   o.baseDelay,
		Max:    o.maxDelay,
		Jitter: o.jitter,
	}
}

// enrich attaches remediation guidance to a terminal error when the policy
// names a service and the failure maps to a known category. A lookup miss
// leaves the error untouched; that is not an error condition.
func (o *options) enrich(terminal *Error) {
	if o.service == "" {
		return
	}

	guide := o.guide
	if guide == nil {
		guide = guidance.DefaultTable()
	}

	advice, ok := guide.Lookup(o.service, guidance.Categorize(terminal.Unwrap()))
	if !ok {
		return
	}

	terminal.Recovery = advice.Recovery
	terminal.Suggestion = advice.Suggestion
}

func (o *options) log() *slog.Logger {
	if o.logger != nil {
		return o.logger
	}

	return slog.Default()
}

// WithBaseDelay configures the seed of the exponential backoff. The computed
// delay before retry n is min(maxDelay, baseDelay*2^(n-1) + jitter).
func WithBaseDelay(d time.Duration) Option {
	return func(o *options) {
		o.baseDelay = d
	}
}

// WithMaxDelay configures the ceiling for computed delays. A server-supplied
// Retry-After hint is authoritative and is not capped by this value.
func WithMaxDelay(d time.Duration) Option {
	return func(o *options) {
		o.maxDelay = d
	}
}

// WithMaxRetries configures the number of retries permitted beyond the first
// attempt. Zero means exactly one invocation, ever: any failure, retryable or
// not, is terminal after the first attempt and the on-retry hook never fires.
func WithMaxRetries(n uint) Option {
	return func(o *options) {
		o.maxRetries = n
	}
}

// WithService selects the remediation-guidance table entry used to enrich
// terminal failures. Unset means no enrichment.
//
// Example:
//
//	err := retry.Do(ctx, op, retry.WithService("jira"))
func WithService(service string) Option {
	return func(o *options) {
		o.service = service
	}
}

// WithOnRetry registers a hook fired once per scheduled retry.
func WithOnRetry(hook OnRetry) Option {
	return func(o *options) {
		o.onRetry = hook
	}
}

// WithClassifier replaces the default retryable-vs-terminal classifier.
// Explicit Abort/Transient markers still take precedence.
func WithClassifier(c Classifier) Option {
	return func(o *options) {
		o.classifier = c
	}
}

// WithBackoff replaces the computed backoff wholesale. WithBaseDelay,
// WithMaxDelay, and WithJitter have no effect on a custom backoff.
func WithBackoff(b Backoff) Option {
	return func(o *options) {
		o.backoff = b
	}
}

// WithJitter configures the additive jitter applied to computed delays.
//
// Example:
//
//	runner := retry.NewRunner(retry.WithJitter(retry.WithoutJitter))
func WithJitter(j Jitter) Option {
	return func(o *options) {
		o.jitter = j
	}
}

// WithTimeout configures a deadline for each individual attempt. An attempt
// exceeding it fails with context.DeadlineExceeded, which classifies as a
// retryable timeout.
func WithTimeout(t Timeout) Option {
	return func(o *options) {
		o.timeout = t
	}
}

// WithBudget attaches a shared retry budget. Budgets are meant to be shared
// across runners hitting the same dependency to prevent retry storms.
//
// Example:
//
//	budget := &retry.Budget{
//	    Rate:  10.0, // Enforce only above 10 initial calls/sec
//	    Ratio: 0.1,  // Allow up to 10% retries
//	}
//	runner := retry.NewRunner(retry.WithBudget(budget))
func WithBudget(budget *Budget) Option {
	return func(o *options) {
		o.budget = budget
	}
}

// WithGuide replaces the built-in remediation table.
func WithGuide(g guidance.Guide) Option {
	return func(o *options) {
		o.guide = g
	}
}

// WithLogger sets the logger for retry scheduling and terminal-failure logs.
// When unset, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}
