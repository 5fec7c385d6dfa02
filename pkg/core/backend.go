package core

import "context"

// Backend defines the contract for a storage medium. Adhering to this
// interface keeps the repository façade and the sync engine independent of
// the underlying store (embedded sqlite, plain files, CouchDB, memory).
//
// Save must be idempotent by id. Backends that enforce optimistic
// concurrency return *ConflictError carrying the latest known revision when
// the supplied revision token is stale; backends without concurrency
// control perform last-write-wins. Missing records surface as
// CodeNotFound errors, never as zero values.
type Backend interface {
	// Initialize ensures the underlying storage is ready
	// (create directories, open the database, run the schema migration).
	Initialize(ctx context.Context) error

	// Close releases any resources held by the backend.
	Close() error

	ListNotes(ctx context.Context) ([]Note, error)
	GetNote(ctx context.Context, id string) (Note, error)
	SaveNote(ctx context.Context, n Note) (Note, error)
	DeleteNote(ctx context.Context, id string) error

	// SearchNotes matches the query against title, content and tags.
	// Backends may additionally support glob patterns on note ids.
	SearchNotes(ctx context.Context, query string) ([]Note, error)

	ListNotebooks(ctx context.Context) ([]Notebook, error)
	GetNotebook(ctx context.Context, id string) (Notebook, error)
	SaveNotebook(ctx context.Context, b Notebook) (Notebook, error)
	DeleteNotebook(ctx context.Context, id string) error

	// Generic key-value surface consumed by the settings and plugin
	// collaborators. Keys are namespaced by category.
	GetValue(ctx context.Context, category, key string) (string, error)
	SetValue(ctx context.Context, category, key, value string) error
	DeleteValue(ctx context.Context, category, key string) error
}

// Watchable is implemented by backends that can emit change notifications.
type Watchable interface {
	// Watch emits an event per changed note until ctx is canceled.
	Watch(ctx context.Context) (<-chan Event, error)
}

// EventType represents the type of change observed in a backend.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change in the underlying store.
type Event struct {
	Type EventType
	ID   string
}
