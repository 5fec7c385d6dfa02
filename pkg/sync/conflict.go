// Package sync compares two replicas of the same note collection, detects
// divergence, resolves it and merges. It depends only on the data model,
// never on a specific backend; the remote replica arrives as an
// already-fetched collection.
package sync

import (
	"errors"
	"time"

	"github.com/tomymaritano/viny-sub001/pkg/core"
)

// Strategy selects how a conflict is resolved.
type Strategy string

const (
	// StrategyUseLocal keeps the local version verbatim.
	StrategyUseLocal Strategy = "use_local"
	// StrategyUseRemote keeps the remote version verbatim.
	StrategyUseRemote Strategy = "use_remote"
	// StrategyMerge combines both sides field by field.
	StrategyMerge Strategy = "merge"
	// StrategyCreateBoth keeps the local version; duplicating the remote
	// side under a new id is the caller's responsibility.
	StrategyCreateBoth Strategy = "create_both"
	// StrategyManual defers every conflict to explicit resolution.
	StrategyManual Strategy = "manual"
)

var (
	// ErrSyncInProgress gates re-entrant Start calls.
	ErrSyncInProgress = errors.New("sync already in progress")
	// ErrConflictNotFound is returned by manual resolution for unknown ids.
	ErrConflictNotFound = errors.New("conflict not found")
	// ErrAlreadyResolved rejects double resolution of the same conflict.
	ErrAlreadyResolved = errors.New("conflict already resolved")
)

// Resolution records how a conflict was settled. ResolvedItem holds the
// winning core.Note or core.Notebook and is required for every strategy
// except manual deferral.
type Resolution struct {
	Strategy     Strategy  `json:"strategy"`
	ResolvedItem any       `json:"resolvedItem,omitempty"`
	AppliedAt    time.Time `json:"appliedAt"`
}

// Conflict is a detected divergence between the two replicas' versions of
// one entity that is not explainable by timestamp alone. It stays in sync
// state until explicitly resolved or cleared.
type Conflict struct {
	ID         string        `json:"id"`
	Kind       core.ItemKind `json:"type"`
	ItemID     string        `json:"itemId"`
	Local      any           `json:"localVersion"`
	Remote     any           `json:"remoteVersion"`
	DetectedAt time.Time     `json:"detectedAt"`
	Resolved   bool          `json:"resolved"`
	Resolution *Resolution   `json:"resolution,omitempty"`

	// Diff is a compact unified preview of the content divergence,
	// populated for note conflicts only. Purely informative.
	Diff string `json:"diff,omitempty"`
}

// Notes returns both sides as notes. ok is false for notebook conflicts.
func (c Conflict) Notes() (local, remote core.Note, ok bool) {
	l, okL := c.Local.(core.Note)
	r, okR := c.Remote.(core.Note)
	return l, r, okL && okR
}

// Notebooks returns both sides as notebooks. ok is false for note conflicts.
func (c Conflict) Notebooks() (local, remote core.Notebook, ok bool) {
	l, okL := c.Local.(core.Notebook)
	r, okR := c.Remote.(core.Notebook)
	return l, r, okL && okR
}

// Item is the minimal contract shared by notes and notebooks that the
// id-keyed merge operates on.
type Item interface {
	ItemID() string
	ModifiedAt() time.Time
}
