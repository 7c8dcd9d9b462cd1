package retry

import (
	"math"
	"time"
)

// Backoff calculates the delay between retry attempts. A Retry-After hint on
// the failure always takes precedence over the configured Backoff.
type Backoff interface {
	// Delay calculates the duration to wait before the next retry attempt.
	// The attempt parameter is zero-indexed (0 for the delay preceding the
	// first retry).
	Delay(attempt uint) time.Duration
}

// ExpBackoff implements exponential backoff with additive jitter:
//
//	delay = min(Max, Base * 2^attempt + jitter)
//
// where jitter is drawn by the Jitter strategy from [0, Jitter*Base). The
// expected delay grows monotonically even though individual jittered samples
// may not.
//
// Example:
//
//	backoff := retry.ExpBackoff{
//	    Base:   1 * time.Second,
//	    Max:    30 * time.Second,
//	    Jitter: retry.HalfJitter,
//	}
//	// Expected delays: ~1s, ~2s, ~4s, ~8s, ~16s, 30s, 30s, ...
type ExpBackoff struct {
	// Base is the initial delay duration and the jitter seed.
	Base time.Duration
	// Max is the maximum delay duration (cap). Zero means uncapped.
	Max time.Duration
	// Jitter is the additive jitter strategy applied before capping.
	Jitter Jitter
}

// Delay calculates the jittered exponential backoff delay for the given attempt.
func (b ExpBackoff) Delay(attempt uint) time.Duration {
	f := float64(b.Base) * math.Pow(2, float64(attempt))
	f += b.Jitter.amount(b.Base)

	d := time.Duration(f)
	if b.Max > 0 && d > b.Max {
		return b.Max
	}

	return d
}
