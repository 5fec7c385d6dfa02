package viny

import (
	"log/slog"
	"time"

	"github.com/tomymaritano/viny-sub001/pkg/core"
	"github.com/tomymaritano/viny-sub001/pkg/resilience"
	"github.com/tomymaritano/viny-sub001/pkg/sync"
)

// options holds the internal configuration for the store.
type options struct {
	logger          *slog.Logger
	backend         core.Backend
	retry           resilience.RetryConfig
	breaker         resilience.BreakerConfig
	attemptTimeout  time.Duration
	defaultStrategy sync.Strategy
	clock           func() time.Time
}

// Option defines a functional option for configuring the store.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		logger:          slog.Default(),
		retry:           resilience.DefaultRetryConfig(),
		breaker:         resilience.DefaultBreakerConfig(),
		attemptTimeout:  10 * time.Second,
		defaultStrategy: sync.StrategyMerge,
		clock:           time.Now,
	}
}

// WithLogger sets the logger for the store and everything it wires up.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithBackend injects a custom storage backend (e.g. a mock). If provided,
// the backend named in the config is skipped.
func WithBackend(b core.Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithRetryConfig tunes the retry policy applied to backend operations.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(o *options) {
		o.retry = cfg
	}
}

// WithBreakerConfig tunes the circuit breaker shared by all operations.
func WithBreakerConfig(cfg resilience.BreakerConfig) Option {
	return func(o *options) {
		o.breaker = cfg
	}
}

// WithAttemptTimeout bounds each individual backend attempt.
func WithAttemptTimeout(d time.Duration) Option {
	return func(o *options) {
		o.attemptTimeout = d
	}
}

// WithDefaultStrategy sets the conflict strategy used during sync.
func WithDefaultStrategy(s sync.Strategy) Option {
	return func(o *options) {
		o.defaultStrategy = s
	}
}

// WithClock overrides the time source (useful for testing).
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}
