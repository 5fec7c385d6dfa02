// Package resilience shields storage operations behind error
// classification, retry-with-backoff and a circuit breaker.
package resilience

import (
	"math/rand"
	"time"
)

// RetryConfig tunes the retry loop of an Executor.
type RetryConfig struct {
	// MaxAttempts is the total number of invocations, first try included.
	MaxAttempts int
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps the backoff growth.
	MaxDelay time.Duration
	// ExponentialBackoff doubles the delay per attempt when set;
	// otherwise every retry waits BaseDelay.
	ExponentialBackoff bool
	// Jitter randomizes each delay by up to ±10%.
	Jitter bool
}

// DefaultRetryConfig returns the retry tuning used when none is supplied.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:        3,
		BaseDelay:          100 * time.Millisecond,
		MaxDelay:           5 * time.Second,
		ExponentialBackoff: true,
		Jitter:             true,
	}
}

// Delay computes the wait before the retry following the given attempt.
// Attempts are 1-based: Delay(1) is the wait after the first failure.
func (c RetryConfig) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := c.BaseDelay
	if c.ExponentialBackoff {
		for i := 1; i < attempt; i++ {
			d *= 2
			if c.MaxDelay > 0 && d >= c.MaxDelay {
				d = c.MaxDelay
				break
			}
		}
	}
	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	if c.Jitter && d > 0 {
		// ±10% around the computed delay.
		f := 0.9 + 0.2*rand.Float64()
		d = time.Duration(float64(d) * f)
	}
	return d
}
