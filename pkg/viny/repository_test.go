package viny

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomymaritano/viny-sub001/pkg/adapters/memory"
	"github.com/tomymaritano/viny-sub001/pkg/core"
	"github.com/tomymaritano/viny-sub001/pkg/resilience"
)

func newMemoryStore(t *testing.T, opts ...Option) (*Store, *memory.Backend) {
	t.Helper()
	backend := memory.New(memory.Config{})
	base := []Option{
		WithBackend(backend),
		WithRetryConfig(resilience.RetryConfig{MaxAttempts: 1}),
	}
	store, err := New(context.Background(), Config{}, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, backend
}

func TestSaveNoteLifecycle(t *testing.T) {
	store, _ := newMemoryStore(t)
	ctx := context.Background()

	created, err := store.SaveNote(ctx, core.Note{Title: "first"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID, "id should be generated")
	assert.False(t, created.CreatedAt.IsZero())
	assert.False(t, created.UpdatedAt.IsZero())
	assert.NotEmpty(t, created.Revision)

	time.Sleep(time.Millisecond)
	created.Content = "updated body"
	updated, err := store.SaveNote(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt, "createdAt is set once")
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt), "updatedAt advances")
}

func TestSaveNoteValidation(t *testing.T) {
	store, _ := newMemoryStore(t)

	_, err := store.SaveNote(context.Background(), core.Note{Content: "no title"})
	require.Error(t, err)
	assert.True(t, core.IsCode(err, core.CodeValidation))
}

func TestSaveNoteConflictRetriedOnce(t *testing.T) {
	store, backend := newMemoryStore(t)
	ctx := context.Background()

	saved, err := store.SaveNote(ctx, core.Note{Title: "shared"})
	require.NoError(t, err)

	// A concurrent writer bumps the revision behind our back.
	other, err := backend.GetNote(ctx, saved.ID)
	require.NoError(t, err)
	other.Content = "concurrent write"
	_, err = backend.SaveNote(ctx, other)
	require.NoError(t, err)

	// Our stale save transparently rebases onto the new revision.
	saved.Content = "our write"
	final, err := store.SaveNote(ctx, saved)
	require.NoError(t, err)
	assert.Equal(t, "our write", final.Content)

	stored, err := backend.GetNote(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "our write", stored.Content)
}

func TestSaveNoteUnresolvedAfterRetry(t *testing.T) {
	store, backend := newMemoryStore(t)
	ctx := context.Background()

	saved, err := store.SaveNote(ctx, core.Note{Title: "contested"})
	require.NoError(t, err)

	// Another writer wins between every attempt: fail the save twice by
	// bumping the revision from the hook before each saveNote call.
	bump := func() {
		cur, err := backend.GetNote(ctx, saved.ID)
		require.NoError(t, err)
		cur.Content += "."
		_, err = backend.SaveNote(ctx, cur)
		require.NoError(t, err)
	}

	inHook := false
	backend.Hook = func(op string) error {
		if op == "saveNote" && !inHook {
			inHook = true
			bump()
			inHook = false
		}
		return nil
	}

	saved.Content = "ours"
	_, err = store.SaveNote(ctx, saved)
	var unresolved *core.UnresolvedConflictError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, core.KindNote, unresolved.Kind)
	assert.Equal(t, saved.ID, unresolved.ID)
}

func TestTrashRestoreDelete(t *testing.T) {
	store, _ := newMemoryStore(t)
	ctx := context.Background()

	n, err := store.SaveNote(ctx, core.Note{Title: "temp"})
	require.NoError(t, err)

	trashed, err := store.TrashNote(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, trashed.IsTrashed)

	// Trashed notes stay readable.
	got, err := store.GetNote(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, got.IsTrashed)

	restored, err := store.RestoreNote(ctx, n.ID)
	require.NoError(t, err)
	assert.False(t, restored.IsTrashed)

	require.NoError(t, store.DeleteNote(ctx, n.ID))
	_, err = store.GetNote(ctx, n.ID)
	assert.True(t, core.IsCode(err, core.CodeNotFound))
}

func TestSaveNotebookAndTreeRepairOnList(t *testing.T) {
	store, backend := newMemoryStore(t)
	ctx := context.Background()

	parent, err := store.SaveNotebook(ctx, core.Notebook{Name: "Parent"})
	require.NoError(t, err)
	_, err = store.SaveNotebook(ctx, core.Notebook{Name: "Child", ParentID: parent.ID})
	require.NoError(t, err)

	// Seed a dangling parent directly in the backend.
	_, err = backend.SaveNotebook(ctx, core.Notebook{ID: "orphan", Name: "Orphan", ParentID: "ghost"})
	require.NoError(t, err)

	books, err := store.ListNotebooks(ctx)
	require.NoError(t, err)
	for _, b := range books {
		if b.ID == "orphan" {
			assert.Empty(t, b.ParentID, "dangling parent should be repaired")
		}
	}
}

func TestRetriesGoThroughExecutor(t *testing.T) {
	backend := memory.New(memory.Config{})
	store, err := New(context.Background(), Config{},
		WithBackend(backend),
		WithRetryConfig(resilience.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond}),
	)
	require.NoError(t, err)
	defer store.Close()

	calls := 0
	backend.Hook = func(op string) error {
		if op == "listNotes" {
			calls++
			if calls < 3 {
				return core.E(core.CodeNetwork, "", "flaky", nil)
			}
		}
		return nil
	}

	_, err = store.ListNotes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, calls, "transient failures should be retried")
}

func TestBreakerSharedAcrossOperations(t *testing.T) {
	backend := memory.New(memory.Config{})
	store, err := New(context.Background(), Config{},
		WithBackend(backend),
		WithRetryConfig(resilience.RetryConfig{MaxAttempts: 1}),
		WithBreakerConfig(resilience.BreakerConfig{FailureThreshold: 2, ResetTimeout: time.Hour}),
	)
	require.NoError(t, err)
	defer store.Close()

	backend.Hook = func(op string) error {
		if op == "listNotes" {
			return core.E(core.CodeStorageNotAvailable, "", "down", nil)
		}
		return nil
	}

	ctx := context.Background()
	_, _ = store.ListNotes(ctx)
	_, _ = store.ListNotes(ctx)

	// The breaker is shared: a different operation is rejected too.
	_, err = store.GetNote(ctx, "any")
	assert.True(t, core.IsCode(err, core.CodeStorageNotAvailable))

	// The backend itself was never asked.
	_, direct := backend.GetNote(ctx, "any")
	assert.True(t, core.IsCode(direct, core.CodeNotFound))
}

func TestSettings(t *testing.T) {
	store, _ := newMemoryStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetSetting(ctx, "app", "theme", "dark"))
	got, err := store.GetSetting(ctx, "app", "theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", got)

	require.NoError(t, store.DeleteSetting(ctx, "app", "theme"))
	_, err = store.GetSetting(ctx, "app", "theme")
	assert.True(t, core.IsCode(err, core.CodeNotFound))
}

func TestWatchUnsupportedBackend(t *testing.T) {
	store, _ := newMemoryStore(t)
	_, err := store.Watch(context.Background())
	require.Error(t, err)
}

func TestSyncWithPersistsMergedState(t *testing.T) {
	store, _ := newMemoryStore(t)
	ctx := context.Background()

	local, err := store.SaveNote(ctx, core.Note{Title: "local note", Content: "local body"})
	require.NoError(t, err)

	remote := []core.Note{
		{ID: local.ID, Title: "local note", Content: "remote body",
			CreatedAt: local.CreatedAt, UpdatedAt: local.UpdatedAt},
		{ID: "remote-only", Title: "new from remote",
			CreatedAt: time.Now(), UpdatedAt: time.Now()},
	}

	result, err := store.SyncWith(ctx, remote, nil)
	require.NoError(t, err)
	assert.Len(t, result.Conflicts, 1, "bodies diverged")

	// The merged outcome is persisted, conflicts and all.
	merged, err := store.GetNote(ctx, local.ID)
	require.NoError(t, err)
	assert.Contains(t, merged.Content, "local body")
	assert.Contains(t, merged.Content, "remote body")

	added, err := store.GetNote(ctx, "remote-only")
	require.NoError(t, err)
	assert.Equal(t, "new from remote", added.Title)
}

func TestSyncWithManualStrategyWritesNothing(t *testing.T) {
	store, _ := newMemoryStore(t, WithDefaultStrategy("manual"))
	ctx := context.Background()

	local, err := store.SaveNote(ctx, core.Note{Title: "t", Content: "local"})
	require.NoError(t, err)

	remote := []core.Note{{ID: local.ID, Title: "t", Content: "remote",
		CreatedAt: local.CreatedAt, UpdatedAt: local.UpdatedAt}}

	result, err := store.SyncWith(ctx, remote, nil)
	require.NoError(t, err)
	assert.Len(t, result.Conflicts, 1)
	assert.Empty(t, result.Notes)

	got, err := store.GetNote(ctx, local.ID)
	require.NoError(t, err)
	assert.Equal(t, "local", got.Content, "manual strategy must not modify the store")

	assert.NotEmpty(t, store.Engine().State().Conflicts)
}

func TestClassifiedErrorFromBackend(t *testing.T) {
	store, backend := newMemoryStore(t)
	backend.Hook = func(op string) error {
		if op == "getNote" {
			return errors.New("raw unclassified failure")
		}
		return nil
	}

	_, err := store.GetNote(context.Background(), "x")
	var coded *core.Error
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, core.CodeUnknown, coded.Code)
	assert.Equal(t, "getNote", coded.Op)
}
