package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomymaritano/viny-sub001/pkg/core"
)

func newVault(t *testing.T) *Backend {
	t.Helper()
	b := New(Config{Path: t.TempDir()})
	if err := b.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestSaveAndGetNoteRoundTrip(t *testing.T) {
	b := newVault(t)
	ctx := context.Background()

	in := core.Note{
		ID:         "daily/2025-05-01",
		Title:      "Daily log",
		Content:    "# Today\n\ndid things",
		Tags:       []string{"log", "daily"},
		NotebookID: "journal",
		CreatedAt:  time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC),
		UpdatedAt:  time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
		IsPinned:   true,
	}
	if _, err := b.SaveNote(ctx, in); err != nil {
		t.Fatal(err)
	}

	got, err := b.GetNote(ctx, "daily/2025-05-01")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != in.Title || got.Content != in.Content || got.NotebookID != in.NotebookID {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if !core.TagsEqual(got.Tags, in.Tags) || !got.IsPinned {
		t.Errorf("tags/pinned lost: %+v", got)
	}
	if !got.UpdatedAt.Equal(in.UpdatedAt) {
		t.Errorf("updatedAt = %v, want %v", got.UpdatedAt, in.UpdatedAt)
	}

	// Nested ids map to subdirectories.
	if _, err := os.Stat(filepath.Join(b.path, "notes", "daily", "2025-05-01.md")); err != nil {
		t.Errorf("note file not at expected path: %v", err)
	}
}

func TestGetNoteNotFound(t *testing.T) {
	b := newVault(t)
	_, err := b.GetNote(context.Background(), "ghost")
	if !core.IsCode(err, core.CodeNotFound) {
		t.Errorf("missing note = %s, want NOT_FOUND", core.CodeOf(err))
	}
}

func TestGetNoteCorrupt(t *testing.T) {
	b := newVault(t)
	path := filepath.Join(b.path, "notes", "broken.md")
	if err := os.WriteFile(path, []byte("---\ntitle: unclosed\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := b.GetNote(context.Background(), "broken")
	if !core.IsCode(err, core.CodeStorageCorrupt) {
		t.Errorf("unparseable note = %s, want STORAGE_CORRUPT", core.CodeOf(err))
	}
}

func TestPlainMarkdownLoadsAsContentOnly(t *testing.T) {
	b := newVault(t)
	path := filepath.Join(b.path, "notes", "plain.md")
	if err := os.WriteFile(path, []byte("just markdown, no frontmatter"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := b.GetNote(context.Background(), "plain")
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != "just markdown, no frontmatter" || got.Title != "" {
		t.Errorf("content-only note mismatch: %+v", got)
	}
}

func TestListNotesSkipsUnparseable(t *testing.T) {
	b := newVault(t)
	ctx := context.Background()

	if _, err := b.SaveNote(ctx, core.Note{ID: "good", Title: "ok"}); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(b.path, "notes", "bad.md")
	if err := os.WriteFile(bad, []byte("---\nbroken"), 0644); err != nil {
		t.Fatal(err)
	}

	notes, err := b.ListNotes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 || notes[0].ID != "good" {
		t.Errorf("list = %+v, want only the parseable note", notes)
	}
}

func TestDeleteNote(t *testing.T) {
	b := newVault(t)
	ctx := context.Background()

	if _, err := b.SaveNote(ctx, core.Note{ID: "gone", Title: "bye"}); err != nil {
		t.Fatal(err)
	}
	if err := b.DeleteNote(ctx, "gone"); err != nil {
		t.Fatal(err)
	}
	if _, err := b.GetNote(ctx, "gone"); !core.IsCode(err, core.CodeNotFound) {
		t.Error("deleted note should be gone")
	}
	if err := b.DeleteNote(ctx, "gone"); !core.IsCode(err, core.CodeNotFound) {
		t.Errorf("double delete = %s, want NOT_FOUND", core.CodeOf(err))
	}
}

func TestSearchNotesSubstringAndGlob(t *testing.T) {
	b := newVault(t)
	ctx := context.Background()

	seed := []core.Note{
		{ID: "work/standup", Title: "Standup notes", Content: "deploy tomorrow"},
		{ID: "work/retro", Title: "Retro", Content: "what went well", Tags: []string{"team"}},
		{ID: "home/groceries", Title: "Groceries", Content: "milk"},
	}
	for _, n := range seed {
		if _, err := b.SaveNote(ctx, n); err != nil {
			t.Fatal(err)
		}
	}

	got, err := b.SearchNotes(ctx, "deploy")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "work/standup" {
		t.Errorf("substring search = %+v", got)
	}

	got, err = b.SearchNotes(ctx, "work/**")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("glob search matched %d notes, want 2", len(got))
	}

	if _, err := b.SearchNotes(ctx, "work/["); !core.IsCode(err, core.CodeValidation) {
		t.Errorf("invalid glob = %s, want VALIDATION_ERROR", core.CodeOf(err))
	}
}

func TestNotebooksSidecar(t *testing.T) {
	b := newVault(t)
	ctx := context.Background()

	nb := core.Notebook{ID: "journal", Name: "Journal", Color: "#00ff00"}
	if _, err := b.SaveNotebook(ctx, nb); err != nil {
		t.Fatal(err)
	}
	nb2 := core.Notebook{ID: "work", Name: "Work", ParentID: "journal"}
	if _, err := b.SaveNotebook(ctx, nb2); err != nil {
		t.Fatal(err)
	}

	books, err := b.ListNotebooks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(books) != 2 {
		t.Fatalf("listed %d notebooks, want 2", len(books))
	}

	// Update replaces in place instead of appending.
	nb.Name = "Journal renamed"
	if _, err := b.SaveNotebook(ctx, nb); err != nil {
		t.Fatal(err)
	}
	got, err := b.GetNotebook(ctx, "journal")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Journal renamed" {
		t.Errorf("name = %q after update", got.Name)
	}

	if err := b.DeleteNotebook(ctx, "journal"); err != nil {
		t.Fatal(err)
	}
	if err := b.DeleteNotebook(ctx, "journal"); !core.IsCode(err, core.CodeNotFound) {
		t.Errorf("double delete = %s, want NOT_FOUND", core.CodeOf(err))
	}
}

func TestValuesSidecar(t *testing.T) {
	b := newVault(t)
	ctx := context.Background()

	if err := b.SetValue(ctx, "settings", "theme", "solarized"); err != nil {
		t.Fatal(err)
	}
	got, err := b.GetValue(ctx, "settings", "theme")
	if err != nil || got != "solarized" {
		t.Fatalf("GetValue = %q, %v", got, err)
	}
	if err := b.DeleteValue(ctx, "settings", "theme"); err != nil {
		t.Fatal(err)
	}
	if _, err := b.GetValue(ctx, "settings", "theme"); !core.IsCode(err, core.CodeNotFound) {
		t.Error("deleted value should be NOT_FOUND")
	}
}

func TestSecondProcessLockRejected(t *testing.T) {
	dir := t.TempDir()

	first := New(Config{Path: dir})
	if err := first.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer first.Close()

	second := New(Config{Path: dir})
	err := second.Initialize(context.Background())
	if !core.IsCode(err, core.CodeStorageNotAvailable) {
		t.Errorf("second lock = %s, want STORAGE_NOT_AVAILABLE", core.CodeOf(err))
	}
}

func TestMustExist(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	b := New(Config{Path: missing, MustExist: true})
	err := b.Initialize(context.Background())
	if !core.IsCode(err, core.CodeInitialization) {
		t.Errorf("missing vault = %s, want INITIALIZATION_ERROR", core.CodeOf(err))
	}
}

func TestSaveNoteClearsRevision(t *testing.T) {
	b := newVault(t)
	saved, err := b.SaveNote(context.Background(), core.Note{ID: "n", Title: "t", Revision: "3-stale"})
	if err != nil {
		t.Fatal(err)
	}
	if saved.Revision != "" {
		t.Errorf("file backend is last-write-wins, revision should be empty, got %q", saved.Revision)
	}
}
