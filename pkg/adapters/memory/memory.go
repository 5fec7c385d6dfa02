// Package memory provides a map-backed Backend with CouchDB-style revision
// tokens. It is the reference implementation of the optimistic-concurrency
// contract and the default store in tests.
package memory

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"sync"

	"github.com/tomymaritano/viny-sub001/pkg/core"
)

// Config tunes the in-memory backend.
type Config struct {
	// MaxEntries bounds the combined number of notes and notebooks.
	// Zero means unbounded. Exceeding it fails with STORAGE_FULL.
	MaxEntries int
}

// Backend is an in-memory core.Backend. Save enforces optimistic
// concurrency: updating an existing record requires the caller to present
// the record's current revision token.
type Backend struct {
	mu     sync.RWMutex
	cfg    Config
	notes  map[string]core.Note
	books  map[string]core.Notebook
	values map[string]map[string]string

	// Hook, when set, runs before every operation and may inject a
	// failure. Used by resilience and repository tests.
	Hook func(op string) error
}

var _ core.Backend = (*Backend)(nil)

// New builds an empty in-memory backend.
func New(cfg Config) *Backend {
	return &Backend{
		cfg:    cfg,
		notes:  make(map[string]core.Note),
		books:  make(map[string]core.Notebook),
		values: make(map[string]map[string]string),
	}
}

// Initialize is a no-op for the in-memory store.
func (b *Backend) Initialize(ctx context.Context) error { return b.hook("initialize") }

// Close is a no-op for the in-memory store.
func (b *Backend) Close() error { return nil }

func (b *Backend) hook(op string) error {
	if b.Hook != nil {
		return b.Hook(op)
	}
	return nil
}

// nextRevision bumps a "N-hash" token. The hash part makes concurrent
// histories distinguishable even at the same generation.
func nextRevision(current string, payload string) string {
	gen := 0
	if current != "" {
		if i := strings.IndexByte(current, '-'); i > 0 {
			gen, _ = strconv.Atoi(current[:i])
		}
	}
	h := fnv.New32a()
	h.Write([]byte(payload))
	return fmt.Sprintf("%d-%08x", gen+1, h.Sum32())
}

func (b *Backend) ListNotes(ctx context.Context) ([]core.Note, error) {
	if err := b.hook("listNotes"); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]core.Note, 0, len(b.notes))
	for _, n := range b.notes {
		out = append(out, n.Clone())
	}
	return out, nil
}

func (b *Backend) GetNote(ctx context.Context, id string) (core.Note, error) {
	if err := b.hook("getNote"); err != nil {
		return core.Note{}, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	n, ok := b.notes[id]
	if !ok {
		return core.Note{}, core.E(core.CodeNotFound, "", fmt.Sprintf("note %q not found", id), nil)
	}
	return n.Clone(), nil
}

func (b *Backend) SaveNote(ctx context.Context, n core.Note) (core.Note, error) {
	if err := b.hook("saveNote"); err != nil {
		return core.Note{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	existing, exists := b.notes[n.ID]
	if exists && n.Revision != existing.Revision {
		return core.Note{}, &core.ConflictError{
			Kind:            core.KindNote,
			ID:              n.ID,
			CurrentRevision: existing.Revision,
			Current:         existing.Clone(),
		}
	}
	if !exists && b.cfg.MaxEntries > 0 && len(b.notes)+len(b.books) >= b.cfg.MaxEntries {
		return core.Note{}, core.E(core.CodeStorageFull, "", "entry quota exhausted", nil)
	}

	stored := n.Clone()
	stored.Revision = nextRevision(existing.Revision, n.ID+n.Content+n.UpdatedAt.String())
	b.notes[n.ID] = stored
	return stored.Clone(), nil
}

func (b *Backend) DeleteNote(ctx context.Context, id string) error {
	if err := b.hook("deleteNote"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.notes[id]; !ok {
		return core.E(core.CodeNotFound, "", fmt.Sprintf("note %q not found", id), nil)
	}
	delete(b.notes, id)
	return nil
}

func (b *Backend) SearchNotes(ctx context.Context, query string) ([]core.Note, error) {
	if err := b.hook("searchNotes"); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	q := strings.ToLower(query)
	var out []core.Note
	for _, n := range b.notes {
		if noteMatches(n, q) {
			out = append(out, n.Clone())
		}
	}
	return out, nil
}

func noteMatches(n core.Note, q string) bool {
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(n.Title), q) || strings.Contains(strings.ToLower(n.Content), q) {
		return true
	}
	for _, t := range n.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

func (b *Backend) ListNotebooks(ctx context.Context) ([]core.Notebook, error) {
	if err := b.hook("listNotebooks"); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]core.Notebook, 0, len(b.books))
	for _, nb := range b.books {
		out = append(out, nb)
	}
	return out, nil
}

func (b *Backend) GetNotebook(ctx context.Context, id string) (core.Notebook, error) {
	if err := b.hook("getNotebook"); err != nil {
		return core.Notebook{}, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	nb, ok := b.books[id]
	if !ok {
		return core.Notebook{}, core.E(core.CodeNotFound, "", fmt.Sprintf("notebook %q not found", id), nil)
	}
	return nb, nil
}

func (b *Backend) SaveNotebook(ctx context.Context, nb core.Notebook) (core.Notebook, error) {
	if err := b.hook("saveNotebook"); err != nil {
		return core.Notebook{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	existing, exists := b.books[nb.ID]
	if exists && nb.Revision != existing.Revision {
		return core.Notebook{}, &core.ConflictError{
			Kind:            core.KindNotebook,
			ID:              nb.ID,
			CurrentRevision: existing.Revision,
			Current:         existing,
		}
	}
	if !exists && b.cfg.MaxEntries > 0 && len(b.notes)+len(b.books) >= b.cfg.MaxEntries {
		return core.Notebook{}, core.E(core.CodeStorageFull, "", "entry quota exhausted", nil)
	}

	nb.Revision = nextRevision(existing.Revision, nb.ID+nb.Name+nb.UpdatedAt.String())
	b.books[nb.ID] = nb
	return nb, nil
}

func (b *Backend) DeleteNotebook(ctx context.Context, id string) error {
	if err := b.hook("deleteNotebook"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.books[id]; !ok {
		return core.E(core.CodeNotFound, "", fmt.Sprintf("notebook %q not found", id), nil)
	}
	delete(b.books, id)
	return nil
}

func (b *Backend) GetValue(ctx context.Context, category, key string) (string, error) {
	if err := b.hook("getValue"); err != nil {
		return "", err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if v, ok := b.values[category][key]; ok {
		return v, nil
	}
	return "", core.E(core.CodeNotFound, "", fmt.Sprintf("value %s/%s not found", category, key), nil)
}

func (b *Backend) SetValue(ctx context.Context, category, key, value string) error {
	if err := b.hook("setValue"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.values[category] == nil {
		b.values[category] = make(map[string]string)
	}
	b.values[category][key] = value
	return nil
}

func (b *Backend) DeleteValue(ctx context.Context, category, key string) error {
	if err := b.hook("deleteValue"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.values[category], key)
	return nil
}
