// Package retry provides a small, data-only retry policy shared by the lock
// manager's acquire loop and the hold-expiry sweeper.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Policy describes bounded retries with exponential backoff. The zero value
// is not usable; start from DefaultPolicy.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
	Jitter      bool
}

// DefaultPolicy matches the lock manager's needs: short waits, a handful of
// attempts, jitter on to avoid thundering herds.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   25 * time.Millisecond,
		Multiplier:  2.0,
		MaxDelay:    500 * time.Millisecond,
		Jitter:      true,
	}
}

// Delay returns the backoff before the given attempt (0-based). The first
// attempt has no delay.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	d := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= p.Multiplier
	}
	delay := time.Duration(d)
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if p.Jitter && delay > 0 {
		// Full jitter: uniform in [delay/2, delay].
		half := delay / 2
		delay = half + time.Duration(rand.Int63n(int64(half)+1))
	}
	return delay
}

// Do runs fn up to MaxAttempts times, sleeping between attempts per the
// policy and honoring ctx cancellation. retryable decides whether an error
// is worth another attempt; a nil retryable retries every error. The last
// error is returned when attempts are exhausted.
func (p Policy) Do(ctx context.Context, fn func() error, retryable func(error) bool) error {
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if delay := p.Delay(attempt); delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
