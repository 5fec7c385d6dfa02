package viny

import (
	"context"
	"fmt"

	"github.com/tomymaritano/viny-sub001/pkg/adapters/couch"
	"github.com/tomymaritano/viny-sub001/pkg/adapters/file"
	"github.com/tomymaritano/viny-sub001/pkg/adapters/memory"
	"github.com/tomymaritano/viny-sub001/pkg/adapters/sqlite"
	"github.com/tomymaritano/viny-sub001/pkg/core"
	"github.com/tomymaritano/viny-sub001/pkg/resilience"
	"github.com/tomymaritano/viny-sub001/pkg/sync"
)

// BackendKind names a storage backend. The kind is always chosen explicitly
// through configuration; the store never probes the environment to guess one.
type BackendKind string

const (
	BackendMemory BackendKind = "memory"
	BackendFile   BackendKind = "file"
	BackendSQLite BackendKind = "sqlite"
	BackendCouch  BackendKind = "couch"
)

// Config selects and configures the storage backend.
type Config struct {
	// Backend picks the adapter. Required unless WithBackend injects one.
	Backend BackendKind

	// Path is the data location for the file and sqlite backends.
	Path string

	// CouchURL and CouchDatabase configure the couch backend.
	CouchURL      string
	CouchDatabase string

	// MaxEntries bounds the memory backend. Zero means unbounded.
	MaxEntries int
}

// New wires a store from the given config: it builds the selected backend,
// initializes it, and wraps every operation in the resilience executor.
//
//	store, err := viny.New(ctx, viny.Config{Backend: viny.BackendFile, Path: dir})
func New(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	backend := o.backend
	if backend == nil {
		var err error
		backend, err = buildBackend(cfg, o)
		if err != nil {
			return nil, err
		}
	}

	if err := backend.Initialize(ctx); err != nil {
		return nil, core.Classify("initialize", err)
	}

	exec := resilience.NewExecutor(
		resilience.WithRetryConfig(o.retry),
		resilience.WithBreaker(resilience.NewCircuitBreaker(o.breaker)),
		resilience.WithAttemptTimeout(o.attemptTimeout),
		resilience.WithLogger(o.logger),
	)

	engine := sync.NewEngine(
		sync.WithDefaultStrategy(o.defaultStrategy),
		sync.WithLogger(o.logger),
		sync.WithClock(o.clock),
	)

	return &Store{
		backend: backend,
		exec:    exec,
		engine:  engine,
		logger:  o.logger,
		clock:   o.clock,
	}, nil
}

func buildBackend(cfg Config, o *options) (core.Backend, error) {
	switch cfg.Backend {
	case BackendMemory:
		return memory.New(memory.Config{MaxEntries: cfg.MaxEntries}), nil
	case BackendFile:
		if cfg.Path == "" {
			return nil, core.E(core.CodeInitialization, "new", "file backend requires a path", nil)
		}
		return file.New(file.Config{Path: cfg.Path, Logger: o.logger}), nil
	case BackendSQLite:
		if cfg.Path == "" {
			return nil, core.E(core.CodeInitialization, "new", "sqlite backend requires a path", nil)
		}
		return sqlite.New(sqlite.Config{Path: cfg.Path}), nil
	case BackendCouch:
		if cfg.CouchURL == "" || cfg.CouchDatabase == "" {
			return nil, core.E(core.CodeInitialization, "new", "couch backend requires a url and database", nil)
		}
		return couch.New(couch.Config{URL: cfg.CouchURL, Database: cfg.CouchDatabase}), nil
	case "":
		return nil, core.E(core.CodeInitialization, "new", "no backend configured", nil)
	}
	return nil, core.E(core.CodeInitialization, "new", fmt.Sprintf("unknown backend %q", cfg.Backend), nil)
}
