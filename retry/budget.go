package retry

import (
	"sync"
	"time"
)

// budgetWindow is the sliding window over which call rates are measured.
const budgetWindow = 60

// Budget is a shared retry budget in the SRE sense: it tracks the rate of
// initial calls and of retries across every runner it is attached to, and
// rejects retries when retries make up too large a share of traffic. This
// keeps a struggling dependency from being buried under its own retry storm.
//
// Enforcement only starts once initial traffic exceeds Rate; a quiet system
// may retry freely.
//
// Example:
//
//	budget := &retry.Budget{
//	    Rate:  10.0, // Enforce only above 10 initial calls/sec
//	    Ratio: 0.1,  // Allow up to 10% of traffic to be retries
//	}
type Budget struct {
	// Rate is the minimum initial call rate (calls/sec) before enforcement begins.
	Rate float64
	// Ratio is the maximum allowed ratio of retries to initial calls.
	Ratio float64

	mu      sync.Mutex
	initial rateWindow
	retries rateWindow
}

// sendOK reports whether the attempt may proceed. Initial calls are always
// allowed and count toward the budget; retries are allowed unless the initial
// rate exceeds Rate and the retry ratio exceeds Ratio. A nil budget allows
// everything.
func (b *Budget) sendOK(isRetry bool) bool {
	if b == nil {
		return true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()

	if !isRetry {
		b.initial.add(now)

		return true
	}

	initialRate := b.initial.rate(now)
	retriedRate := b.retries.rate(now)

	if initialRate > b.Rate && retriedRate/initialRate > b.Ratio {
		return false
	}

	b.retries.add(now)

	return true
}

// rateWindow counts events in one-second buckets over a fixed sliding window.
// Buckets are addressed by unix second modulo the window length; advancing
// time clears the buckets that fell out of the window.
type rateWindow struct {
	buckets [budgetWindow]int
	lastSec int64
	started int64 // unix second of the first event, for young windows
	total   int
}

func (w *rateWindow) add(now time.Time) {
	w.advance(now)
	w.buckets[now.Unix()%budgetWindow]++
	w.total++
}

// rate returns events per second over the window. Windows younger than the
// full length are measured over their actual age so early rates are not
// diluted.
func (w *rateWindow) rate(now time.Time) float64 {
	if w.started == 0 {
		return 0
	}

	w.advance(now)

	span := now.Unix() - w.started + 1
	if span > budgetWindow {
		span = budgetWindow
	}

	return float64(w.total) / float64(span)
}

func (w *rateWindow) advance(now time.Time) {
	sec := now.Unix()

	if w.started == 0 {
		w.started = sec
		w.lastSec = sec

		return
	}

	if sec <= w.lastSec {
		return
	}

	steps := sec - w.lastSec
	if steps > budgetWindow {
		steps = budgetWindow
	}

	for s := sec - steps + 1; s <= sec; s++ {
		idx := s % budgetWindow
		w.total -= w.buckets[idx]
		w.buckets[idx] = 0
	}

	w.lastSec = sec
}
