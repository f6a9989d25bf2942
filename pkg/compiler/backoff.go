package compiler

import "time"

// Backoff is the reconnect policy: up to MaxAttempts tries, waiting Initial
// after the first failure and doubling up to Max.
type Backoff struct {
	MaxAttempts int
	Initial     time.Duration
	Max         time.Duration
}

// DefaultBackoff is used when Options leaves the policy zero.
var DefaultBackoff = Backoff{MaxAttempts: 5, Initial: 200 * time.Millisecond, Max: 5 * time.Second}

// Delay returns the wait after failed attempt n (1-based).
func (b Backoff) Delay(n int) time.Duration {
	d := b.Initial
	for i := 1; i < n; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			return b.Max
		}
	}
	return d
}

func (b Backoff) attempts() int { return max(b.MaxAttempts, 1) }
