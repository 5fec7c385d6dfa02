package viny

import (
	"context"
	"log/slog"
	"time"

	"github.com/tomymaritano/viny-sub001/pkg/core"
	"github.com/tomymaritano/viny-sub001/pkg/resilience"
	"github.com/tomymaritano/viny-sub001/pkg/sync"
	store "github.com/tomymaritano/viny-sub001/pkg/viny"
)

// Version exposes the version of the library.
const Version = "0.3.0"

// --- Types ---

// Note is the primary document: markdown content plus structured fields.
type Note = core.Note

// Notebook groups notes into an optionally nested hierarchy.
type Notebook = core.Notebook

// Store is the assembled note store.
type Store = store.Store

// Config selects and configures the storage backend.
type Config = store.Config

// BackendKind names a storage backend.
type BackendKind = store.BackendKind

const (
	BackendMemory = store.BackendMemory
	BackendFile   = store.BackendFile
	BackendSQLite = store.BackendSQLite
	BackendCouch  = store.BackendCouch
)

// Conflict is a detected divergence between two replicas.
type Conflict = sync.Conflict

// Strategy selects how conflicts are resolved during sync.
type Strategy = sync.Strategy

const (
	StrategyUseLocal   = sync.StrategyUseLocal
	StrategyUseRemote  = sync.StrategyUseRemote
	StrategyMerge      = sync.StrategyMerge
	StrategyCreateBoth = sync.StrategyCreateBoth
	StrategyManual     = sync.StrategyManual
)

// --- Configuration ---

// Option defines a functional option for configuring the store.
type Option = store.Option

// WithLogger sets the logger for the store and everything it wires up.
func WithLogger(logger *slog.Logger) Option {
	return store.WithLogger(logger)
}

// WithBackend injects a custom storage backend.
func WithBackend(b core.Backend) Option {
	return store.WithBackend(b)
}

// WithRetryConfig tunes the retry policy applied to backend operations.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return store.WithRetryConfig(cfg)
}

// WithBreakerConfig tunes the circuit breaker shared by all operations.
func WithBreakerConfig(cfg resilience.BreakerConfig) Option {
	return store.WithBreakerConfig(cfg)
}

// WithAttemptTimeout bounds each individual backend attempt.
func WithAttemptTimeout(d time.Duration) Option {
	return store.WithAttemptTimeout(d)
}

// WithDefaultStrategy sets the conflict strategy used during sync.
func WithDefaultStrategy(s Strategy) Option {
	return store.WithDefaultStrategy(s)
}

// --- Factory ---

// New wires a store from the given config.
func New(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	return store.New(ctx, cfg, opts...)
}
