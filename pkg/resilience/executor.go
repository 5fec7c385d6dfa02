package resilience

import (
	"context"
	"log/slog"
	"time"

	"github.com/tomymaritano/viny-sub001/pkg/core"
)

// Executor wraps any single storage operation with error classification,
// retry-with-backoff and a circuit breaker. Breaker and retry state are
// per-instance; the composition root decides whether one executor is shared
// across repositories.
type Executor struct {
	retry   RetryConfig
	breaker *CircuitBreaker
	// timeout bounds each attempt independently. The attempt context is
	// passed into the operation so the backend call itself observes
	// cancellation, not just the wait for it.
	timeout time.Duration
	logger  *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithRetryConfig overrides the retry tuning.
func WithRetryConfig(cfg RetryConfig) ExecutorOption {
	return func(e *Executor) { e.retry = cfg }
}

// WithBreaker installs a (possibly shared) circuit breaker.
func WithBreaker(b *CircuitBreaker) ExecutorOption {
	return func(e *Executor) { e.breaker = b }
}

// WithAttemptTimeout bounds each attempt. Zero disables the per-attempt
// timeout.
func WithAttemptTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = d }
}

// WithLogger sets the logger for retry and breaker events.
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = logger }
}

// withSleep replaces the retry wait, for tests.
func withSleep(fn func(ctx context.Context, d time.Duration) error) ExecutorOption {
	return func(e *Executor) { e.sleep = fn }
}

// NewExecutor builds an executor with default retry tuning and a fresh
// breaker unless overridden.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		retry:   DefaultRetryConfig(),
		timeout: 10 * time.Second,
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.breaker == nil {
		e.breaker = NewCircuitBreaker(DefaultBreakerConfig())
	}
	return e
}

// Breaker exposes the executor's circuit breaker for state inspection.
func (e *Executor) Breaker() *CircuitBreaker { return e.breaker }

// Do runs op under the executor's full policy and returns a normalized
// *core.Error on failure. The flow is breaker gate, then retry loop, then
// per-attempt timeout; every raw failure is classified exactly once and
// both retry eligibility and breaker counting derive from that single
// classification.
func (e *Executor) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	_, err := Execute(ctx, e, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Execute is the typed variant of Do.
func Execute[T any](ctx context.Context, e *Executor, name string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	attempts := e.retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var last *core.Error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, core.Classify(name, err)
		}
		if !e.breaker.Allow() {
			// ErrCircuitOpen rides along as the cause so callers can tell a
			// breaker rejection from a genuine backend failure via errors.Is.
			return zero, core.E(ErrCircuitOpen.Code, name, ErrCircuitOpen.Message, ErrCircuitOpen)
		}

		v, err := runAttempt(ctx, e, op)
		if err == nil {
			e.breaker.Success()
			return v, nil
		}

		// Single normalization point: breaker counting and retry
		// eligibility both derive from this classification. The breaker
		// counts every failure, retryable or not.
		last = core.Classify(name, err)
		e.breaker.Failure()

		if e.logger != nil {
			e.logger.Debug("operation failed",
				"op", name, "attempt", attempt, "code", string(last.Code), "retryable", last.Retryable())
		}

		if !last.Retryable() || attempt == attempts {
			break
		}
		if err := e.sleep(ctx, e.retry.Delay(attempt)); err != nil {
			return zero, core.Classify(name, err)
		}
	}

	return zero, last
}

func runAttempt[T any](ctx context.Context, e *Executor, op func(ctx context.Context) (T, error)) (T, error) {
	if e.timeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return op(attemptCtx)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
