package resilience

import (
	"sync"
	"time"

	"github.com/tomymaritano/viny-sub001/pkg/core"
)

// BreakerState is the circuit breaker's current position.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half-open"
)

// ErrCircuitOpen is wrapped into the coded error returned while the breaker
// rejects calls.
var ErrCircuitOpen = &core.Error{
	Code:    core.CodeStorageNotAvailable,
	Message: "circuit breaker is open",
}

// BreakerConfig tunes a CircuitBreaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that trips
	// the breaker open.
	FailureThreshold int
	// ResetTimeout is the cool-down before a single half-open probe is
	// allowed.
	ResetTimeout time.Duration
}

// DefaultBreakerConfig returns the breaker tuning used when none is supplied.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 5, ResetTimeout: 30 * time.Second}
}

// CircuitBreaker is a three-state guard over a repeatedly-failing backend.
// Every failure counts toward the threshold regardless of its retry
// classification: a chronically-permanently-failing backend must still trip
// the breaker. In half-open exactly one probe is admitted; its outcome
// decides between closed and open.
type CircuitBreaker struct {
	mu     sync.Mutex
	cfg    BreakerConfig
	state  BreakerState
	fails  int
	lastAt time.Time
	now    func() time.Time
}

// NewCircuitBreaker builds a closed breaker.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = DefaultBreakerConfig().ResetTimeout
	}
	return &CircuitBreaker{cfg: cfg, state: BreakerClosed, now: time.Now}
}

// Allow reports whether a call may proceed. While open it rejects without
// invoking anything; once the cool-down has elapsed it admits exactly one
// probe and moves to half-open.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return true
	case BreakerHalfOpen:
		// A probe is already in flight.
		return false
	case BreakerOpen:
		if b.now().Sub(b.lastAt) >= b.cfg.ResetTimeout {
			b.state = BreakerHalfOpen
			return true
		}
		return false
	}
	return false
}

// Success records a successful call. A half-open probe success resets the
// consecutive-failure counter and closes the breaker.
func (b *CircuitBreaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BreakerClosed
	b.fails = 0
}

// Failure records a failed call. A half-open probe failure re-opens the
// breaker and restarts the cool-down timer.
func (b *CircuitBreaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fails++
	b.lastAt = b.now()
	if b.state == BreakerHalfOpen || b.fails >= b.cfg.FailureThreshold {
		b.state = BreakerOpen
	}
}

// State returns a snapshot of the breaker for observability.
func (b *CircuitBreaker) State() (state BreakerState, consecutiveFailures int, lastFailureAt time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state, b.fails, b.lastAt
}
