// Package file implements a desktop-native core.Backend: one markdown file
// with YAML frontmatter per note, notebooks and settings in YAML sidecars.
// The adapter is last-write-wins; it exposes no revision tokens.
package file

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/tomymaritano/viny-sub001/pkg/core"
)

const (
	notesDir      = "notes"
	systemDir     = ".viny"
	notebooksFile = "notebooks.yaml"
	valuesFile    = "kv.yaml"
	lockFile      = "lock"
)

// Config holds the configuration for the file backend.
type Config struct {
	// Path is the vault root directory.
	Path string
	// MustExist refuses to create the vault directory when set.
	MustExist bool
	// IndexSize bounds the parsed-note index. Zero uses the default.
	IndexSize int
	Logger    *slog.Logger
}

// Backend is a filesystem-backed core.Backend.
type Backend struct {
	path   string
	cfg    Config
	index  *index
	lock   *flock.Flock
	logger *slog.Logger
}

var (
	_ core.Backend   = (*Backend)(nil)
	_ core.Watchable = (*Backend)(nil)
)

// New builds a file backend rooted at cfg.Path.
func New(cfg Config) *Backend {
	return &Backend{
		path:   cfg.Path,
		cfg:    cfg,
		index:  newIndex(filepath.Join(cfg.Path, systemDir, "index.json"), cfg.IndexSize),
		lock:   flock.New(filepath.Join(cfg.Path, systemDir, lockFile)),
		logger: cfg.Logger,
	}
}

// Initialize creates the vault layout and takes the cross-process lock.
// A vault already locked by another process fails with
// STORAGE_NOT_AVAILABLE.
func (b *Backend) Initialize(ctx context.Context) error {
	if b.cfg.MustExist {
		info, err := os.Stat(b.path)
		if os.IsNotExist(err) {
			return core.E(core.CodeInitialization, "initialize", fmt.Sprintf("vault path does not exist: %s", b.path), err)
		}
		if err == nil && !info.IsDir() {
			return core.E(core.CodeInitialization, "initialize", fmt.Sprintf("vault path is not a directory: %s", b.path), nil)
		}
	}
	for _, dir := range []string{b.path, filepath.Join(b.path, notesDir), filepath.Join(b.path, systemDir)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return core.E(core.CodeInitialization, "initialize", "failed to create vault directory", err)
		}
	}

	locked, err := b.lock.TryLock()
	if err != nil {
		return core.E(core.CodeStorageNotAvailable, "initialize", "failed to acquire vault lock", err)
	}
	if !locked {
		return core.E(core.CodeStorageNotAvailable, "initialize", "vault is locked by another process", nil)
	}

	if err := b.index.Load(); err != nil && b.logger != nil {
		b.logger.Debug("index load failed, starting fresh", "error", err)
	}
	return nil
}

// Close releases the vault lock and persists the index.
func (b *Backend) Close() error {
	if err := b.index.Save(); err != nil && b.logger != nil {
		b.logger.Debug("index save failed", "error", err)
	}
	return b.lock.Unlock()
}

func (b *Backend) notePath(id string) string {
	return filepath.Join(b.path, notesDir, id+".md")
}

func (b *Backend) ListNotes(ctx context.Context) ([]core.Note, error) {
	var notes []core.Note
	seen := make(map[string]bool)

	root := filepath.Join(b.path, notesDir)
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == systemDir {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(d.Name()) != ".md" {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		id := strings.TrimSuffix(filepath.ToSlash(rel), ".md")
		seen[id] = true

		info, err := d.Info()
		if err != nil {
			return nil
		}

		if n, hit := b.index.Get(id, info.ModTime()); hit {
			notes = append(notes, n)
			return nil
		}

		n, err := b.readNote(id)
		if err != nil {
			// Skip unparseable files; they are surfaced by Get.
			if b.logger != nil {
				b.logger.Debug("skipping unparseable note", "id", id, "error", err)
			}
			return nil
		}
		b.index.Set(id, n, info.ModTime())
		notes = append(notes, n)
		return nil
	})
	if err != nil {
		return nil, core.E(core.CodeStorageNotAvailable, "listNotes", "failed to walk vault", err)
	}

	b.index.Prune(seen)
	if err := b.index.Save(); err != nil && b.logger != nil {
		b.logger.Debug("index save failed", "error", err)
	}
	return notes, nil
}

func (b *Backend) readNote(id string) (core.Note, error) {
	data, err := os.ReadFile(b.notePath(id))
	if err != nil {
		return core.Note{}, err
	}
	n, err := parseNote(data)
	if err != nil {
		return core.Note{}, err
	}
	n.ID = id
	return n, nil
}

func (b *Backend) GetNote(ctx context.Context, id string) (core.Note, error) {
	n, err := b.readNote(id)
	if os.IsNotExist(err) {
		return core.Note{}, core.E(core.CodeNotFound, "getNote", fmt.Sprintf("note %q not found", id), err)
	}
	if err != nil {
		return core.Note{}, core.E(core.CodeStorageCorrupt, "getNote", fmt.Sprintf("failed to parse note %q", id), err)
	}
	return n, nil
}

func (b *Backend) SaveNote(ctx context.Context, n core.Note) (core.Note, error) {
	if n.ID == "" {
		return core.Note{}, core.E(core.CodeValidation, "saveNote", "note has no id", nil)
	}

	data, err := serializeNote(n)
	if err != nil {
		return core.Note{}, core.E(core.CodeSchema, "saveNote", "failed to serialize note", err)
	}

	path := b.notePath(n.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return core.Note{}, core.E(core.CodeStorageNotAvailable, "saveNote", "failed to create directories", err)
	}
	if err := writeFileAtomic(path, data, 0644); err != nil {
		return core.Note{}, classifyWrite("saveNote", err)
	}

	// Last-write-wins store: no revision token.
	n.Revision = ""
	if info, err := os.Stat(path); err == nil {
		b.index.Set(n.ID, n, info.ModTime())
	}
	return n, nil
}

func (b *Backend) DeleteNote(ctx context.Context, id string) error {
	path := b.notePath(id)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return core.E(core.CodeNotFound, "deleteNote", fmt.Sprintf("note %q not found", id), err)
	}
	if err := os.Remove(path); err != nil {
		return classifyWrite("deleteNote", err)
	}
	b.index.Delete(id)
	return nil
}

// SearchNotes matches the query against title, content and tags. Queries
// containing glob metacharacters are matched against note ids instead
// (e.g. "work/**" selects a subtree).
func (b *Backend) SearchNotes(ctx context.Context, query string) ([]core.Note, error) {
	notes, err := b.ListNotes(ctx)
	if err != nil {
		return nil, err
	}
	if query == "" {
		return notes, nil
	}

	if strings.ContainsAny(query, "*?[{") {
		var out []core.Note
		for _, n := range notes {
			ok, err := doublestar.Match(query, n.ID)
			if err != nil {
				return nil, core.E(core.CodeValidation, "searchNotes", fmt.Sprintf("invalid glob %q", query), err)
			}
			if ok {
				out = append(out, n)
			}
		}
		return out, nil
	}

	q := strings.ToLower(query)
	var out []core.Note
	for _, n := range notes {
		if strings.Contains(strings.ToLower(n.Title), q) ||
			strings.Contains(strings.ToLower(n.Content), q) ||
			tagMatches(n.Tags, q) {
			out = append(out, n)
		}
	}
	return out, nil
}

func tagMatches(tags []string, q string) bool {
	for _, t := range tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

func (b *Backend) notebooksPath() string { return filepath.Join(b.path, notebooksFile) }

func (b *Backend) loadNotebooks() ([]core.Notebook, error) {
	data, err := os.ReadFile(b.notebooksPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, core.E(core.CodeStorageNotAvailable, "", "failed to read notebooks", err)
	}
	var books []core.Notebook
	if err := yaml.Unmarshal(data, &books); err != nil {
		return nil, core.E(core.CodeStorageCorrupt, "", "failed to parse notebooks", err)
	}
	return books, nil
}

func (b *Backend) storeNotebooks(books []core.Notebook) error {
	data, err := yaml.Marshal(books)
	if err != nil {
		return core.E(core.CodeSchema, "", "failed to serialize notebooks", err)
	}
	return writeFileAtomic(b.notebooksPath(), data, 0644)
}

func (b *Backend) ListNotebooks(ctx context.Context) ([]core.Notebook, error) {
	return b.loadNotebooks()
}

func (b *Backend) GetNotebook(ctx context.Context, id string) (core.Notebook, error) {
	books, err := b.loadNotebooks()
	if err != nil {
		return core.Notebook{}, err
	}
	for _, nb := range books {
		if nb.ID == id {
			return nb, nil
		}
	}
	return core.Notebook{}, core.E(core.CodeNotFound, "getNotebook", fmt.Sprintf("notebook %q not found", id), nil)
}

func (b *Backend) SaveNotebook(ctx context.Context, nb core.Notebook) (core.Notebook, error) {
	books, err := b.loadNotebooks()
	if err != nil {
		return core.Notebook{}, err
	}
	nb.Revision = ""
	replaced := false
	for i := range books {
		if books[i].ID == nb.ID {
			books[i] = nb
			replaced = true
			break
		}
	}
	if !replaced {
		books = append(books, nb)
	}
	if err := b.storeNotebooks(books); err != nil {
		return core.Notebook{}, classifyWrite("saveNotebook", err)
	}
	return nb, nil
}

func (b *Backend) DeleteNotebook(ctx context.Context, id string) error {
	books, err := b.loadNotebooks()
	if err != nil {
		return err
	}
	kept := books[:0]
	found := false
	for _, nb := range books {
		if nb.ID == id {
			found = true
			continue
		}
		kept = append(kept, nb)
	}
	if !found {
		return core.E(core.CodeNotFound, "deleteNotebook", fmt.Sprintf("notebook %q not found", id), nil)
	}
	if err := b.storeNotebooks(kept); err != nil {
		return classifyWrite("deleteNotebook", err)
	}
	return nil
}

func (b *Backend) valuesPath() string { return filepath.Join(b.path, systemDir, valuesFile) }

func (b *Backend) loadValues() (map[string]map[string]string, error) {
	data, err := os.ReadFile(b.valuesPath())
	if os.IsNotExist(err) {
		return map[string]map[string]string{}, nil
	}
	if err != nil {
		return nil, core.E(core.CodeStorageNotAvailable, "", "failed to read values", err)
	}
	out := map[string]map[string]string{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, core.E(core.CodeStorageCorrupt, "", "failed to parse values", err)
	}
	return out, nil
}

func (b *Backend) storeValues(values map[string]map[string]string) error {
	data, err := yaml.Marshal(values)
	if err != nil {
		return core.E(core.CodeSchema, "", "failed to serialize values", err)
	}
	return writeFileAtomic(b.valuesPath(), data, 0644)
}

func (b *Backend) GetValue(ctx context.Context, category, key string) (string, error) {
	values, err := b.loadValues()
	if err != nil {
		return "", err
	}
	if v, ok := values[category][key]; ok {
		return v, nil
	}
	return "", core.E(core.CodeNotFound, "getValue", fmt.Sprintf("value %s/%s not found", category, key), nil)
}

func (b *Backend) SetValue(ctx context.Context, category, key, value string) error {
	values, err := b.loadValues()
	if err != nil {
		return err
	}
	if values[category] == nil {
		values[category] = map[string]string{}
	}
	values[category][key] = value
	if err := b.storeValues(values); err != nil {
		return classifyWrite("setValue", err)
	}
	return nil
}

func (b *Backend) DeleteValue(ctx context.Context, category, key string) error {
	values, err := b.loadValues()
	if err != nil {
		return err
	}
	delete(values[category], key)
	if err := b.storeValues(values); err != nil {
		return classifyWrite("deleteValue", err)
	}
	return nil
}

// classifyWrite maps filesystem write failures onto the error taxonomy.
func classifyWrite(op string, err error) *core.Error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case os.IsPermission(err):
		return core.E(core.CodePermissionDenied, op, "permission denied", err)
	case strings.Contains(msg, "no space left") || strings.Contains(msg, "disk full"):
		return core.E(core.CodeStorageFull, op, "storage quota exhausted", err)
	}
	return core.E(core.CodeStorageNotAvailable, op, "storage write failed", err)
}
