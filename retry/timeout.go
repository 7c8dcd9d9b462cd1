package retry

import "time"

// Timeout is the maximum duration for a single attempt. An attempt exceeding
// it is canceled, fails with context.DeadlineExceeded, and counts as a
// retryable timeout.
//
// A zero Timeout means no per-attempt deadline.
//
// Example:
//
//	runner := retry.NewRunner(
//	    retry.WithTimeout(retry.Timeout(30 * time.Second)),
//	)
type Timeout time.Duration
