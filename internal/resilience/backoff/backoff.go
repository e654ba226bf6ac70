// Package backoff computes inter-retry delays. Delay is a pure function of
// (attempt, policy) unless jitter is enabled.
package backoff

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// jitterSpread is the width of the uniform jitter factor [1.0, 1.0+jitterSpread).
const jitterSpread = 0.3

// RetryPolicy defines retry behavior.
type RetryPolicy struct {
	MaxRetries            int
	InitialDelay          time.Duration
	MaxDelay              time.Duration
	UseExponentialBackoff bool
	UseJitter             bool
	BackoffMultiplier     float64
}

// DefaultPolicy provides sensible defaults: 500ms, 1s, 2s ... capped at 30s.
var DefaultPolicy = RetryPolicy{
	MaxRetries:            3,
	InitialDelay:          500 * time.Millisecond,
	MaxDelay:              30 * time.Second,
	UseExponentialBackoff: true,
	UseJitter:             true,
	BackoffMultiplier:     2.0,
}

// Delay returns the delay before the given retry attempt (1-indexed).
//
// Linear mode returns InitialDelay for every attempt. Exponential mode
// returns InitialDelay * BackoffMultiplier^(attempt-1), capped at MaxDelay.
// Jitter multiplies the result by a uniform factor in [1.0, 1.3), so the
// output never drops below the un-jittered base.
func Delay(attempt int, p RetryPolicy) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	base := p.InitialDelay
	if p.UseExponentialBackoff {
		raw := float64(p.InitialDelay) * math.Pow(p.BackoffMultiplier, float64(attempt-1))
		if raw > float64(p.MaxDelay) {
			raw = float64(p.MaxDelay)
		}
		base = time.Duration(raw)
	}

	if p.UseJitter {
		factor := 1.0 + rand.Float64()*jitterSpread
		return time.Duration(float64(base) * factor)
	}

	return base
}

// Sleep waits for d or until ctx is cancelled, whichever comes first.
// A cancelled wait returns ctx.Err() so callers can abort the whole
// operation instead of burning the remaining attempts.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// WorstCaseTotal returns the sum of capped delays for a full retry budget.
// Used by configuration validation to bound total execution time.
func WorstCaseTotal(p RetryPolicy) time.Duration {
	var total time.Duration
	for attempt := 1; attempt <= p.MaxRetries; attempt++ {
		d := Delay(attempt, RetryPolicy{
			InitialDelay:          p.InitialDelay,
			MaxDelay:              p.MaxDelay,
			UseExponentialBackoff: p.UseExponentialBackoff,
			BackoffMultiplier:     p.BackoffMultiplier,
		})
		// Jitter can stretch each delay by up to 30%.
		if p.UseJitter {
			d = time.Duration(float64(d) * (1.0 + jitterSpread))
		}
		total += d
	}
	return total
}
