// Package retry provides the bounded retry-with-backoff policy applied at
// the market-data and correlation provider boundaries. The policy is a value
// injected into clients so that retry behavior stays out of decision logic.
package retry

import (
	"context"
	"time"
)

// Policy describes a bounded exponential backoff.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

// DefaultPolicy is 3 attempts with a 1s base delay, doubling per attempt.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Second, Multiplier: 2.0}
}

// Do runs fn until it succeeds, the attempts are exhausted, or the context is
// cancelled. The last error is returned; a cancelled context returns ctx.Err().
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	delay := p.BaseDelay
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt == attempts-1 {
			break
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay = time.Duration(float64(delay) * p.Multiplier)
	}

	return lastErr
}
