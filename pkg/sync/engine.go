package sync

import (
	"fmt"
	"log/slog"
	"strings"
	gosync "sync"
	"time"

	"github.com/tomymaritano/viny-sub001/pkg/core"
)

// Status is the engine's position in the sync state machine:
// Idle → Syncing → {Success | Conflict | Error} → Idle (explicit reset).
type Status string

const (
	StatusIdle     Status = "idle"
	StatusSyncing  Status = "syncing"
	StatusSuccess  Status = "success"
	StatusConflict Status = "conflict"
	StatusError    Status = "error"
)

// State is the engine's observable snapshot. Conflicts persist here until
// explicitly resolved or cleared.
type State struct {
	Status      Status     `json:"status"`
	LastSyncAt  time.Time  `json:"lastSyncAt"`
	Conflicts   []Conflict `json:"conflicts,omitempty"`
	Errors      []string   `json:"errors,omitempty"`
	Progress    int        `json:"progress"`
	TotalItems  int        `json:"totalItems"`
	SyncedItems int        `json:"syncedItems"`
}

// Result is the outcome of a successful sync pass.
type Result struct {
	Notes     []core.Note
	Notebooks []core.Notebook
	Conflicts []Conflict
}

// Engine holds exactly one shared sync state per instance. A second Start
// while a pass is running is rejected, never interleaved.
type Engine struct {
	mu      gosync.Mutex
	state   State
	subs    map[int]func(State)
	nextSub int

	defaultStrategy Strategy
	logger          *slog.Logger
	now             func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithDefaultStrategy sets the auto-resolution strategy used by Start.
func WithDefaultStrategy(s Strategy) EngineOption {
	return func(e *Engine) { e.defaultStrategy = s }
}

// WithLogger sets the logger for sync passes.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine builds an idle engine. The default strategy is merge.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		state:           State{Status: StatusIdle},
		subs:            make(map[int]func(State)),
		defaultStrategy: StrategyMerge,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns a snapshot of the current sync state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Subscribe registers a callback invoked synchronously on every state
// change. The returned function unsubscribes.
func (e *Engine) Subscribe(fn func(State)) (unsubscribe func()) {
	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

// Start runs one full sync pass over both collections. It transitions to
// Syncing, detects conflicts, auto-resolves them with the default strategy,
// merges both collections and transitions to Success.
//
// With a manual default strategy any detected conflict parks the engine in
// the Conflict state and no merge happens; callers resolve via
// ResolveManually and run another pass. If an auto-resolution fails the
// engine transitions to Error listing the failing ids and aborts before
// merging.
func (e *Engine) Start(localNotes []core.Note, localNotebooks []core.Notebook, remoteNotes []core.Note, remoteNotebooks []core.Notebook) (Result, error) {
	total := len(localNotes) + len(localNotebooks) + len(remoteNotes) + len(remoteNotebooks)

	e.mu.Lock()
	if e.state.Status == StatusSyncing {
		e.mu.Unlock()
		return Result{}, ErrSyncInProgress
	}
	e.state.Status = StatusSyncing
	e.state.Errors = nil
	e.state.Progress = 0
	e.state.TotalItems = total
	e.state.SyncedItems = 0
	e.publishLocked()

	now := e.now()
	conflicts := DetectNoteConflicts(localNotes, remoteNotes, now)
	conflicts = append(conflicts, DetectNotebookConflicts(localNotebooks, remoteNotebooks, now)...)

	if e.logger != nil {
		e.logger.Debug("conflict detection finished", "items", total, "conflicts", len(conflicts))
	}

	if len(conflicts) > 0 && e.defaultStrategy == StrategyManual {
		e.state.Status = StatusConflict
		e.state.Conflicts = append(e.state.Conflicts, conflicts...)
		e.state.Progress = 50
		e.publishLocked()
		e.mu.Unlock()
		return Result{Conflicts: conflicts}, nil
	}

	resolved, failed := ResolveConflicts(conflicts, e.defaultStrategy, now)
	if len(failed) > 0 {
		ids := make([]string, len(failed))
		for i, c := range failed {
			ids[i] = c.ItemID
		}
		e.state.Status = StatusError
		e.state.Conflicts = append(e.state.Conflicts, failed...)
		e.state.Errors = append(e.state.Errors,
			fmt.Sprintf("unresolved conflicts: %s", strings.Join(ids, ", ")))
		e.publishLocked()
		e.mu.Unlock()
		return Result{Conflicts: failed}, fmt.Errorf("auto-resolution failed for %d item(s): %s",
			len(failed), strings.Join(ids, ", "))
	}

	mergedNotes := MergeArrays(localNotes, remoteNotes)
	mergedBooks := MergeArrays(localNotebooks, remoteNotebooks)

	// Resolutions are applied after the id-keyed union: the strategy's
	// chosen version stands even when the losing side carries a later
	// updatedAt, which the union would otherwise prefer.
	for _, c := range resolved {
		switch item := c.Resolution.ResolvedItem.(type) {
		case core.Note:
			replaceNote(mergedNotes, item)
		case core.Notebook:
			replaceNotebook(mergedBooks, item)
		}
	}

	mergedBooks, repairedIDs := core.RepairNotebookTree(mergedBooks)
	if len(repairedIDs) > 0 && e.logger != nil {
		e.logger.Warn("repaired notebook tree during merge", "notebooks", repairedIDs)
	}

	e.state.Status = StatusSuccess
	e.state.Conflicts = append(e.state.Conflicts, resolved...)
	e.state.LastSyncAt = now
	e.state.Progress = 100
	e.state.SyncedItems = len(mergedNotes) + len(mergedBooks)
	e.publishLocked()
	e.mu.Unlock()

	return Result{Notes: mergedNotes, Notebooks: mergedBooks, Conflicts: resolved}, nil
}

// ResolveManually marks a pending conflict resolved and stores the supplied
// resolution. Unknown ids fail with ErrConflictNotFound; a conflict is
// resolved at most once.
func (e *Engine) ResolveManually(conflictID string, res Resolution) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.state.Conflicts {
		if e.state.Conflicts[i].ID != conflictID {
			continue
		}
		if e.state.Conflicts[i].Resolved {
			return ErrAlreadyResolved
		}
		if res.AppliedAt.IsZero() {
			res.AppliedAt = e.now()
		}
		e.state.Conflicts[i].Resolved = true
		e.state.Conflicts[i].Resolution = &res
		e.publishLocked()
		return nil
	}
	return ErrConflictNotFound
}

// ClearResolvedConflicts drops resolved conflicts from the state.
func (e *Engine) ClearResolvedConflicts() {
	e.mu.Lock()
	defer e.mu.Unlock()

	kept := e.state.Conflicts[:0]
	for _, c := range e.state.Conflicts {
		if !c.Resolved {
			kept = append(kept, c)
		}
	}
	e.state.Conflicts = kept
	e.publishLocked()
}

// Reset returns the engine to Idle and clears all sync state.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = State{Status: StatusIdle}
	e.publishLocked()
}

// snapshotLocked deep-copies the conflict slice so callers cannot mutate
// engine state through the snapshot.
func (e *Engine) snapshotLocked() State {
	s := e.state
	if len(e.state.Conflicts) > 0 {
		s.Conflicts = append([]Conflict(nil), e.state.Conflicts...)
	}
	if len(e.state.Errors) > 0 {
		s.Errors = append([]string(nil), e.state.Errors...)
	}
	return s
}

// publishLocked notifies every subscriber synchronously. Callbacks run
// while the engine lock is held; subscribers must not call back into the
// engine.
func (e *Engine) publishLocked() {
	if len(e.subs) == 0 {
		return
	}
	snap := e.snapshotLocked()
	for _, fn := range e.subs {
		fn(snap)
	}
}

func replaceNote(notes []core.Note, n core.Note) {
	for i := range notes {
		if notes[i].ID == n.ID {
			notes[i] = n
			return
		}
	}
}

func replaceNotebook(books []core.Notebook, b core.Notebook) {
	for i := range books {
		if books[i].ID == b.ID {
			books[i] = b
			return
		}
	}
}
