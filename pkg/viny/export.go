package viny

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/tomymaritano/viny-sub001/pkg/core"
	"github.com/tomymaritano/viny-sub001/pkg/sync"
)

// envelopeVersion is bumped when the export format changes shape.
const envelopeVersion = 1

// Envelope is the portable JSON snapshot of a store. An exported envelope
// from one backend can be imported into any other, which also makes it
// usable as the remote replica for SyncWith.
type Envelope struct {
	Version    int             `json:"version"`
	ExportedAt time.Time       `json:"exportedAt"`
	Notes      []core.Note     `json:"notes"`
	Notebooks  []core.Notebook `json:"notebooks"`
}

// Export writes the full store contents as a JSON envelope.
func (s *Store) Export(ctx context.Context, w io.Writer) error {
	notes, err := s.ListNotes(ctx)
	if err != nil {
		return err
	}
	books, err := s.ListNotebooks(ctx)
	if err != nil {
		return err
	}

	env := Envelope{
		Version:    envelopeVersion,
		ExportedAt: s.clock().UTC(),
		Notes:      notes,
		Notebooks:  books,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(env); err != nil {
		return core.E(core.CodeSchema, "export", "failed to encode envelope", err)
	}
	return nil
}

// ImportMode controls how an imported envelope combines with existing data.
type ImportMode string

const (
	// ImportMerge reconciles the envelope with existing data through the
	// sync engine, resolving conflicts with the engine's default strategy.
	ImportMerge ImportMode = "merge"
	// ImportReplace overwrites items that share an id with the envelope
	// and leaves everything else untouched.
	ImportReplace ImportMode = "replace"
)

// Import reads a JSON envelope and applies it to the store.
func (s *Store) Import(ctx context.Context, r io.Reader, mode ImportMode) (sync.Result, error) {
	var env Envelope
	dec := json.NewDecoder(r)
	if err := dec.Decode(&env); err != nil {
		return sync.Result{}, core.E(core.CodeSchema, "import", "failed to decode envelope", err)
	}
	if env.Version > envelopeVersion {
		return sync.Result{}, core.E(core.CodeSchema, "import", "envelope version is newer than this build supports", nil)
	}

	switch mode {
	case ImportMerge:
		return s.SyncWith(ctx, env.Notes, env.Notebooks)
	case ImportReplace:
		return s.importReplace(ctx, env)
	}
	return sync.Result{}, core.E(core.CodeValidation, "import", "unknown import mode "+string(mode), nil)
}

func (s *Store) importReplace(ctx context.Context, env Envelope) (sync.Result, error) {
	for _, n := range env.Notes {
		current, err := s.GetNote(ctx, n.ID)
		switch {
		case err == nil:
			n.Revision = current.Revision
		case core.IsCode(err, core.CodeNotFound):
			n.Revision = ""
		default:
			return sync.Result{}, err
		}
		if _, err := s.SaveNote(ctx, n); err != nil {
			return sync.Result{}, err
		}
	}
	for _, b := range env.Notebooks {
		current, err := s.GetNotebook(ctx, b.ID)
		switch {
		case err == nil:
			b.Revision = current.Revision
		case core.IsCode(err, core.CodeNotFound):
			b.Revision = ""
		default:
			return sync.Result{}, err
		}
		if _, err := s.SaveNotebook(ctx, b); err != nil {
			return sync.Result{}, err
		}
	}
	notes, err := s.ListNotes(ctx)
	if err != nil {
		return sync.Result{}, err
	}
	books, err := s.ListNotebooks(ctx)
	if err != nil {
		return sync.Result{}, err
	}
	return sync.Result{Notes: notes, Notebooks: books}, nil
}
