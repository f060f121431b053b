package stream

import (
	"math"
	"time"
)

// ReconnectPolicy decides whether and when to redial after a dropped
// connection. attempt starts at 1 for the first retry after a drop.
type ReconnectPolicy interface {
	Next(attempt int) (delay time.Duration, ok bool)
}

type noReconnect struct{}

func (noReconnect) Next(int) (time.Duration, bool) { return 0, false }

// NoReconnect never retries. A dropped connection leaves the store stale.
var NoReconnect ReconnectPolicy = noReconnect{}

// Backoff defaults.
const (
	DefaultInitialBackoff = time.Second
	DefaultMaxBackoff     = 30 * time.Second
	DefaultMultiplier     = 2.0
)

// Backoff retries with exponentially growing delays:
// Initial, Initial*Multiplier, Initial*Multiplier², ... capped at Max.
// MaxAttempts of zero retries forever.
type Backoff struct {
	Initial     time.Duration
	Max         time.Duration
	Multiplier  float64
	MaxAttempts int
}

// Next implements ReconnectPolicy.
func (b Backoff) Next(attempt int) (time.Duration, bool) {
	if attempt < 1 {
		attempt = 1
	}
	if b.MaxAttempts > 0 && attempt > b.MaxAttempts {
		return 0, false
	}

	initial := b.Initial
	if initial <= 0 {
		initial = DefaultInitialBackoff
	}
	maxDelay := b.Max
	if maxDelay <= 0 {
		maxDelay = DefaultMaxBackoff
	}
	mult := b.Multiplier
	if mult < 1 {
		mult = DefaultMultiplier
	}

	d := float64(initial) * math.Pow(mult, float64(attempt-1))
	if d > float64(maxDelay) || math.IsInf(d, 0) {
		return maxDelay, true
	}
	return time.Duration(d), true
}
