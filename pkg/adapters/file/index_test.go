package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomymaritano/viny-sub001/pkg/core"
)

var mtime = time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)

func TestIndexGetValidatesMtime(t *testing.T) {
	x := newIndex(filepath.Join(t.TempDir(), "index.json"), 10)
	x.Set("a", core.Note{ID: "a", Title: "A"}, mtime)

	if _, hit := x.Get("a", mtime); !hit {
		t.Error("matching mtime should hit")
	}
	if _, hit := x.Get("a", mtime.Add(time.Second)); hit {
		t.Error("changed mtime should miss")
	}
	if _, hit := x.Get("missing", mtime); hit {
		t.Error("unknown id should miss")
	}
}

func TestIndexEvictsLeastRecentlyUsed(t *testing.T) {
	x := newIndex(filepath.Join(t.TempDir(), "index.json"), 2)

	x.Set("a", core.Note{ID: "a"}, mtime)
	x.Set("b", core.Note{ID: "b"}, mtime)

	// Touch "a" so "b" becomes the eviction candidate.
	x.Get("a", mtime)
	x.Set("c", core.Note{ID: "c"}, mtime)

	if _, hit := x.Get("b", mtime); hit {
		t.Error("least recently used entry should have been evicted")
	}
	if _, hit := x.Get("a", mtime); !hit {
		t.Error("recently used entry should survive")
	}
	if x.Len() != 2 {
		t.Errorf("len = %d, want capacity 2", x.Len())
	}
}

func TestIndexSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")

	x := newIndex(path, 10)
	x.Set("a", core.Note{ID: "a", Title: "A", Tags: []string{"x"}}, mtime)
	if err := x.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	x2 := newIndex(path, 10)
	if err := x2.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	got, hit := x2.Get("a", mtime)
	if !hit {
		t.Fatal("expected hit after reload")
	}
	if got.Title != "A" || !core.TagsEqual(got.Tags, []string{"x"}) {
		t.Errorf("reloaded note mismatch: %+v", got)
	}
}

func TestIndexLoadSelfHealsOnCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	x := newIndex(path, 10)
	if err := x.Load(); err != nil {
		t.Fatalf("corrupted index should load empty, got %v", err)
	}
	if x.Len() != 0 {
		t.Errorf("len = %d, want 0", x.Len())
	}
}

func TestIndexPrune(t *testing.T) {
	x := newIndex(filepath.Join(t.TempDir(), "index.json"), 10)
	x.Set("keep", core.Note{ID: "keep"}, mtime)
	x.Set("drop", core.Note{ID: "drop"}, mtime)

	x.Prune(map[string]bool{"keep": true})

	if _, hit := x.Get("drop", mtime); hit {
		t.Error("pruned entry should miss")
	}
	if _, hit := x.Get("keep", mtime); !hit {
		t.Error("kept entry should hit")
	}
}

func TestIndexSaveSkipsWhenClean(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	x := newIndex(path, 10)

	if err := x.Save(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("clean index should not touch disk")
	}
}
