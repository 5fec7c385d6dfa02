package resilience

import (
	"testing"
	"time"
)

// fakeClock lets tests step the breaker's notion of time.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int, reset time.Duration) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	b := NewCircuitBreaker(BreakerConfig{FailureThreshold: threshold, ResetTimeout: reset})
	b.now = clock.now
	return b, clock
}

func TestBreakerTripsAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	for i := 0; i < 2; i++ {
		if !b.Allow() {
			t.Fatalf("breaker should be closed after %d failures", i)
		}
		b.Failure()
	}
	if state, _, _ := b.State(); state != BreakerClosed {
		t.Fatalf("state = %s, want closed below threshold", state)
	}

	b.Allow()
	b.Failure()
	if state, _, _ := b.State(); state != BreakerOpen {
		t.Fatalf("state = %s, want open at threshold", state)
	}
	if b.Allow() {
		t.Error("open breaker should reject calls")
	}
}

func TestBreakerHalfOpenProbeSuccess(t *testing.T) {
	b, clock := newTestBreaker(1, time.Minute)

	b.Allow()
	b.Failure()
	if b.Allow() {
		t.Fatal("breaker should reject before cool-down")
	}

	clock.advance(time.Minute)
	if !b.Allow() {
		t.Fatal("breaker should admit one probe after cool-down")
	}
	if b.Allow() {
		t.Error("only one probe may be in flight")
	}

	b.Success()
	if state, fails, _ := b.State(); state != BreakerClosed || fails != 0 {
		t.Errorf("after probe success: state = %s fails = %d, want closed/0", state, fails)
	}
	if !b.Allow() {
		t.Error("closed breaker should admit calls")
	}
}

func TestBreakerHalfOpenProbeFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(1, time.Minute)

	b.Allow()
	b.Failure()
	clock.advance(time.Minute)
	if !b.Allow() {
		t.Fatal("expected probe admission")
	}
	b.Failure()

	if state, _, _ := b.State(); state != BreakerOpen {
		t.Fatalf("state = %s, want open after probe failure", state)
	}
	// Cool-down restarts from the probe failure.
	clock.advance(30 * time.Second)
	if b.Allow() {
		t.Error("breaker should stay open until a fresh cool-down elapses")
	}
	clock.advance(30 * time.Second)
	if !b.Allow() {
		t.Error("breaker should admit a new probe after the restarted cool-down")
	}
}

func TestBreakerCountsNonRetryableFailuresToo(t *testing.T) {
	// Failure() has no notion of retryability; the executor feeds it every
	// failure. Two arbitrary failures must trip a threshold-2 breaker.
	b, _ := newTestBreaker(2, time.Minute)
	b.Allow()
	b.Failure()
	b.Allow()
	b.Failure()
	if state, _, _ := b.State(); state != BreakerOpen {
		t.Errorf("state = %s, want open", state)
	}
}
