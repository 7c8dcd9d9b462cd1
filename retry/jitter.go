package retry

import (
	"math/rand"
	"time"
)

// Jitter is an additive jitter strategy for computed retry delays. Jitter
// desynchronizes clients that fail at the same moment, so their retries do not
// arrive as a thundering herd.
//
// The value is the upper bound of the random addition, expressed as a fraction
// of the backoff base delay:
//   - 0.5: add a uniform random duration in [0, base/2)
//   - 1.0: add a uniform random duration in [0, base)
//   - 0 or negative: no jitter (deterministic delays)
type Jitter float64

// HalfJitter adds a uniform random duration in [0, base/2) to each computed
// delay. This is the default.
const HalfJitter Jitter = 0.5

// FullJitter adds a uniform random duration in [0, base).
const FullJitter Jitter = 1.0

// WithoutJitter disables jitter entirely, using the exact computed delay.
// Useful for tests and for callers that need deterministic retry timing.
const WithoutJitter Jitter = -1.0

// amount draws the random addition for one delay computation.
func (j Jitter) amount(base time.Duration) float64 {
	if j <= 0.0 {
		return 0.0
	}

	//nolint:gosec // G404: math/rand is sufficient for jitter; crypto/rand is unnecessary overhead
	return rand.Float64() * float64(j) * float64(base)
}
