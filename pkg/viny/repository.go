package viny

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tomymaritano/viny-sub001/pkg/core"
	"github.com/tomymaritano/viny-sub001/pkg/resilience"
	"github.com/tomymaritano/viny-sub001/pkg/sync"
)

// Store is the composition root: a storage backend wrapped in the resilience
// executor, plus the sync engine. All methods are safe for concurrent use if
// the underlying backend is.
type Store struct {
	backend core.Backend
	exec    *resilience.Executor
	engine  *sync.Engine
	logger  *slog.Logger
	clock   func() time.Time
}

// Backend exposes the underlying backend, mainly for tests.
func (s *Store) Backend() core.Backend { return s.backend }

// Engine exposes the sync engine for state subscriptions and manual
// conflict resolution.
func (s *Store) Engine() *sync.Engine { return s.engine }

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// SaveNote validates and persists a note. A note without an ID is created
// with a generated one; CreatedAt is set once and UpdatedAt always advances.
// If the backend reports a stale revision, the save is retried once against
// the latest stored revision; a second conflict is returned unresolved.
func (s *Store) SaveNote(ctx context.Context, n core.Note) (core.Note, error) {
	now := s.clock().UTC()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now
	n.Tags = core.NormalizeTags(n.Tags)

	if err := core.ValidateNote(n); err != nil {
		return core.Note{}, err
	}

	saved, err := resilience.Execute(ctx, s.exec, "saveNote", func(ctx context.Context) (core.Note, error) {
		return s.backend.SaveNote(ctx, n)
	})
	if err == nil {
		return saved, nil
	}

	var conflict *core.ConflictError
	if !errors.As(err, &conflict) {
		return core.Note{}, err
	}

	// Bounded optimistic retry: rebase the caller's fields onto the latest
	// stored revision and try exactly once more.
	latest, ok := conflict.CurrentNote()
	if !ok {
		fetched, getErr := resilience.Execute(ctx, s.exec, "saveNote", func(ctx context.Context) (core.Note, error) {
			return s.backend.GetNote(ctx, n.ID)
		})
		if getErr != nil {
			return core.Note{}, &core.UnresolvedConflictError{Kind: core.KindNote, ID: n.ID, Intended: n}
		}
		latest = fetched
	}

	rebased := n
	rebased.Revision = latest.Revision
	rebased.CreatedAt = latest.CreatedAt

	s.logger.Debug("retrying save after revision conflict", "id", n.ID, "revision", latest.Revision)

	saved, err = resilience.Execute(ctx, s.exec, "saveNote", func(ctx context.Context) (core.Note, error) {
		return s.backend.SaveNote(ctx, rebased)
	})
	if err != nil {
		if errors.As(err, &conflict) {
			return core.Note{}, &core.UnresolvedConflictError{
				Kind: core.KindNote, ID: n.ID, Intended: n, Latest: conflict.Current,
			}
		}
		return core.Note{}, err
	}
	return saved, nil
}

// GetNote loads a note by id.
func (s *Store) GetNote(ctx context.Context, id string) (core.Note, error) {
	return resilience.Execute(ctx, s.exec, "getNote", func(ctx context.Context) (core.Note, error) {
		return s.backend.GetNote(ctx, id)
	})
}

// ListNotes returns all notes, trashed ones included.
func (s *Store) ListNotes(ctx context.Context) ([]core.Note, error) {
	return resilience.Execute(ctx, s.exec, "listNotes", func(ctx context.Context) ([]core.Note, error) {
		return s.backend.ListNotes(ctx)
	})
}

// SearchNotes matches notes against a substring or glob query.
func (s *Store) SearchNotes(ctx context.Context, query string) ([]core.Note, error) {
	return resilience.Execute(ctx, s.exec, "searchNotes", func(ctx context.Context) ([]core.Note, error) {
		return s.backend.SearchNotes(ctx, query)
	})
}

// TrashNote marks a note as trashed without removing it.
func (s *Store) TrashNote(ctx context.Context, id string) (core.Note, error) {
	return s.setTrashed(ctx, id, true)
}

// RestoreNote brings a trashed note back.
func (s *Store) RestoreNote(ctx context.Context, id string) (core.Note, error) {
	return s.setTrashed(ctx, id, false)
}

func (s *Store) setTrashed(ctx context.Context, id string, trashed bool) (core.Note, error) {
	n, err := s.GetNote(ctx, id)
	if err != nil {
		return core.Note{}, err
	}
	if n.IsTrashed == trashed {
		return n, nil
	}
	n.IsTrashed = trashed
	return s.SaveNote(ctx, n)
}

// DeleteNote permanently removes a note.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	return s.exec.Do(ctx, "deleteNote", func(ctx context.Context) error {
		return s.backend.DeleteNote(ctx, id)
	})
}

// SaveNotebook validates and persists a notebook, with the same id and
// timestamp lifecycle and bounded conflict retry as SaveNote.
func (s *Store) SaveNotebook(ctx context.Context, nb core.Notebook) (core.Notebook, error) {
	now := s.clock().UTC()
	if nb.ID == "" {
		nb.ID = uuid.NewString()
	}
	if nb.CreatedAt.IsZero() {
		nb.CreatedAt = now
	}
	nb.UpdatedAt = now

	if err := core.ValidateNotebook(nb); err != nil {
		return core.Notebook{}, err
	}

	saved, err := resilience.Execute(ctx, s.exec, "saveNotebook", func(ctx context.Context) (core.Notebook, error) {
		return s.backend.SaveNotebook(ctx, nb)
	})
	if err == nil {
		return saved, nil
	}

	var conflict *core.ConflictError
	if !errors.As(err, &conflict) {
		return core.Notebook{}, err
	}

	latest, ok := conflict.CurrentNotebook()
	if !ok {
		fetched, getErr := resilience.Execute(ctx, s.exec, "saveNotebook", func(ctx context.Context) (core.Notebook, error) {
			return s.backend.GetNotebook(ctx, nb.ID)
		})
		if getErr != nil {
			return core.Notebook{}, &core.UnresolvedConflictError{Kind: core.KindNotebook, ID: nb.ID, Intended: nb}
		}
		latest = fetched
	}

	rebased := nb
	rebased.Revision = latest.Revision
	rebased.CreatedAt = latest.CreatedAt

	saved, err = resilience.Execute(ctx, s.exec, "saveNotebook", func(ctx context.Context) (core.Notebook, error) {
		return s.backend.SaveNotebook(ctx, rebased)
	})
	if err != nil {
		if errors.As(err, &conflict) {
			return core.Notebook{}, &core.UnresolvedConflictError{
				Kind: core.KindNotebook, ID: nb.ID, Intended: nb, Latest: conflict.Current,
			}
		}
		return core.Notebook{}, err
	}
	return saved, nil
}

// GetNotebook loads a notebook by id.
func (s *Store) GetNotebook(ctx context.Context, id string) (core.Notebook, error) {
	return resilience.Execute(ctx, s.exec, "getNotebook", func(ctx context.Context) (core.Notebook, error) {
		return s.backend.GetNotebook(ctx, id)
	})
}

// ListNotebooks returns all notebooks after repairing the parent tree:
// dangling parents, self-parenting and cycles are detached to the root.
func (s *Store) ListNotebooks(ctx context.Context) ([]core.Notebook, error) {
	books, err := resilience.Execute(ctx, s.exec, "listNotebooks", func(ctx context.Context) ([]core.Notebook, error) {
		return s.backend.ListNotebooks(ctx)
	})
	if err != nil {
		return nil, err
	}
	repaired, fixes := core.RepairNotebookTree(books)
	for _, fix := range fixes {
		s.logger.Warn("repaired notebook tree", "fix", fix)
	}
	return repaired, nil
}

// DeleteNotebook permanently removes a notebook. Notes that pointed at it
// keep their notebook id; readers treat a dangling id as unfiled.
func (s *Store) DeleteNotebook(ctx context.Context, id string) error {
	return s.exec.Do(ctx, "deleteNotebook", func(ctx context.Context) error {
		return s.backend.DeleteNotebook(ctx, id)
	})
}

// GetSetting reads a value from the namespaced key-value area.
func (s *Store) GetSetting(ctx context.Context, category, key string) (string, error) {
	return resilience.Execute(ctx, s.exec, "getSetting", func(ctx context.Context) (string, error) {
		return s.backend.GetValue(ctx, category, key)
	})
}

// SetSetting writes a value to the namespaced key-value area.
func (s *Store) SetSetting(ctx context.Context, category, key, value string) error {
	return s.exec.Do(ctx, "setSetting", func(ctx context.Context) error {
		return s.backend.SetValue(ctx, category, key, value)
	})
}

// DeleteSetting removes a value from the namespaced key-value area.
func (s *Store) DeleteSetting(ctx context.Context, category, key string) error {
	return s.exec.Do(ctx, "deleteSetting", func(ctx context.Context) error {
		return s.backend.DeleteValue(ctx, category, key)
	})
}

// Watch streams change events if the backend supports watching.
func (s *Store) Watch(ctx context.Context) (<-chan core.Event, error) {
	w, ok := s.backend.(core.Watchable)
	if !ok {
		return nil, core.E(core.CodeValidation, "watch", "backend does not support watching", nil)
	}
	return w.Watch(ctx)
}

// SyncWith reconciles local state against an already-fetched remote replica
// and persists the outcome. Conflicts follow the engine's default strategy;
// when that strategy is manual, the engine parks and nothing is written.
func (s *Store) SyncWith(ctx context.Context, remoteNotes []core.Note, remoteNotebooks []core.Notebook) (sync.Result, error) {
	localNotes, err := s.ListNotes(ctx)
	if err != nil {
		return sync.Result{}, err
	}
	localBooks, err := s.ListNotebooks(ctx)
	if err != nil {
		return sync.Result{}, err
	}

	result, err := s.engine.Start(localNotes, localBooks, remoteNotes, remoteNotebooks)
	if err != nil {
		return result, err
	}

	if err := s.persistSyncResult(ctx, result, localNotes, localBooks); err != nil {
		return result, err
	}
	return result, nil
}

// persistSyncResult writes merged items back, refreshing each item's
// revision from the store first so the save does not trip the optimistic
// check on items the merge rebuilt from the remote side.
func (s *Store) persistSyncResult(ctx context.Context, result sync.Result, localNotes []core.Note, localBooks []core.Notebook) error {
	noteRevs := make(map[string]string, len(localNotes))
	for _, n := range localNotes {
		noteRevs[n.ID] = n.Revision
	}
	bookRevs := make(map[string]string, len(localBooks))
	for _, b := range localBooks {
		bookRevs[b.ID] = b.Revision
	}

	for _, n := range result.Notes {
		n.Revision = noteRevs[n.ID]
		if _, err := resilience.Execute(ctx, s.exec, "syncSaveNote", func(ctx context.Context) (core.Note, error) {
			return s.backend.SaveNote(ctx, n)
		}); err != nil {
			return err
		}
	}
	for _, b := range result.Notebooks {
		b.Revision = bookRevs[b.ID]
		if _, err := resilience.Execute(ctx, s.exec, "syncSaveNotebook", func(ctx context.Context) (core.Notebook, error) {
			return s.backend.SaveNotebook(ctx, b)
		}); err != nil {
			return err
		}
	}
	return nil
}
