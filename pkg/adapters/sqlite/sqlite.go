// Package sqlite implements core.Backend on an embedded SQLite database.
// The database runs with WAL enabled for concurrent reads, and every row
// carries an integer revision used for optimistic concurrency: a save that
// presents a stale revision fails with a conflict carrying the current row.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/tomymaritano/viny-sub001/pkg/core"
)

// Config holds the configuration for the sqlite backend.
type Config struct {
	// Path is the database file location.
	Path string
}

// Backend is a sqlite-backed core.Backend.
type Backend struct {
	cfg  Config
	conn *sql.DB
}

var _ core.Backend = (*Backend)(nil)

// New builds a sqlite backend. The connection opens during Initialize.
func New(cfg Config) *Backend {
	return &Backend{cfg: cfg}
}

// Initialize opens the database, enables WAL and runs the schema migration.
func (b *Backend) Initialize(ctx context.Context) error {
	dir := filepath.Dir(b.cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return core.E(core.CodeInitialization, "initialize", "failed to create database directory", err)
	}

	// _txlock=immediate takes the write lock at BEGIN so the revision
	// check inside SaveNote cannot race a snapshot upgrade.
	conn, err := sql.Open("sqlite3", "file:"+b.cfg.Path+"?_txlock=immediate")
	if err != nil {
		return core.E(core.CodeInitialization, "initialize", "failed to open database", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return core.E(core.CodeStorageNotAvailable, "initialize", "failed to ping database", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			_ = conn.Close()
			return core.E(core.CodeInitialization, "initialize", "failed to apply "+pragma, err)
		}
	}

	if _, err := conn.ExecContext(ctx, schema); err != nil {
		_ = conn.Close()
		return core.E(core.CodeSchema, "initialize", "failed to run schema migration", err)
	}

	b.conn = conn
	return nil
}

// Close closes the database connection.
func (b *Backend) Close() error {
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	b.conn = nil
	return err
}

const noteColumns = "id, title, content, tags, notebook_id, created_at, updated_at, pinned, trashed, metadata, revision"

func scanNote(row interface{ Scan(dest ...any) error }) (core.Note, error) {
	var n core.Note
	var tags, metadata string
	var created, updated int64
	var revision int64
	err := row.Scan(&n.ID, &n.Title, &n.Content, &tags, &n.NotebookID,
		&created, &updated, &n.IsPinned, &n.IsTrashed, &metadata, &revision)
	if err != nil {
		return core.Note{}, err
	}
	n.CreatedAt = time.UnixMilli(created).UTC()
	n.UpdatedAt = time.UnixMilli(updated).UTC()
	n.Revision = strconv.FormatInt(revision, 10)
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &n.Tags); err != nil {
			return core.Note{}, fmt.Errorf("corrupt tags column for %s: %w", n.ID, err)
		}
	}
	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &n.Metadata); err != nil {
			return core.Note{}, fmt.Errorf("corrupt metadata column for %s: %w", n.ID, err)
		}
	}
	return n, nil
}

func (b *Backend) ListNotes(ctx context.Context) ([]core.Note, error) {
	rows, err := b.conn.QueryContext(ctx, "SELECT "+noteColumns+" FROM notes")
	if err != nil {
		return nil, classify("listNotes", err)
	}
	defer rows.Close()

	var notes []core.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, core.E(core.CodeStorageCorrupt, "listNotes", "failed to scan note row", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("listNotes", err)
	}
	return notes, nil
}

func (b *Backend) GetNote(ctx context.Context, id string) (core.Note, error) {
	row := b.conn.QueryRowContext(ctx, "SELECT "+noteColumns+" FROM notes WHERE id = ?", id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Note{}, core.E(core.CodeNotFound, "getNote", fmt.Sprintf("note %q not found", id), err)
	}
	if err != nil {
		return core.Note{}, classify("getNote", err)
	}
	return n, nil
}

func (b *Backend) SaveNote(ctx context.Context, n core.Note) (core.Note, error) {
	tags, err := json.Marshal(core.NormalizeTags(n.Tags))
	if err != nil {
		return core.Note{}, core.E(core.CodeSchema, "saveNote", "failed to serialize tags", err)
	}
	var metadata []byte
	if n.Metadata != nil {
		metadata, err = json.Marshal(n.Metadata)
		if err != nil {
			return core.Note{}, core.E(core.CodeSchema, "saveNote", "failed to serialize metadata", err)
		}
	}

	// The connection opens with _txlock=immediate, so this transaction
	// holds the write lock from BEGIN and the revision check and the
	// write are atomic.
	tx, err := b.conn.BeginTx(ctx, nil)
	if err != nil {
		return core.Note{}, classify("saveNote", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, "SELECT "+noteColumns+" FROM notes WHERE id = ?", n.ID)
	current, err := scanNote(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			`INSERT INTO notes (`+noteColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
			n.ID, n.Title, n.Content, string(tags), n.NotebookID,
			n.CreatedAt.UnixMilli(), n.UpdatedAt.UnixMilli(), n.IsPinned, n.IsTrashed, string(metadata))
		if err != nil {
			return core.Note{}, classify("saveNote", err)
		}
		n.Revision = "1"
	case err != nil:
		return core.Note{}, classify("saveNote", err)
	default:
		if n.Revision != current.Revision {
			return core.Note{}, &core.ConflictError{
				Kind:            core.KindNote,
				ID:              n.ID,
				CurrentRevision: current.Revision,
				Current:         current,
			}
		}
		rev, _ := strconv.ParseInt(current.Revision, 10, 64)
		_, err = tx.ExecContext(ctx,
			`UPDATE notes SET title = ?, content = ?, tags = ?, notebook_id = ?,
			 created_at = ?, updated_at = ?, pinned = ?, trashed = ?, metadata = ?, revision = ?
			 WHERE id = ?`,
			n.Title, n.Content, string(tags), n.NotebookID,
			n.CreatedAt.UnixMilli(), n.UpdatedAt.UnixMilli(), n.IsPinned, n.IsTrashed, string(metadata),
			rev+1, n.ID)
		if err != nil {
			return core.Note{}, classify("saveNote", err)
		}
		n.Revision = strconv.FormatInt(rev+1, 10)
	}

	if err := tx.Commit(); err != nil {
		return core.Note{}, classify("saveNote", err)
	}
	return n, nil
}

func (b *Backend) DeleteNote(ctx context.Context, id string) error {
	res, err := b.conn.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id)
	if err != nil {
		return classify("deleteNote", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return core.E(core.CodeNotFound, "deleteNote", fmt.Sprintf("note %q not found", id), nil)
	}
	return nil
}

func (b *Backend) SearchNotes(ctx context.Context, query string) ([]core.Note, error) {
	like := "%" + strings.ReplaceAll(strings.ReplaceAll(query, "%", `\%`), "_", `\_`) + "%"
	rows, err := b.conn.QueryContext(ctx,
		`SELECT `+noteColumns+` FROM notes
		 WHERE title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\' OR tags LIKE ? ESCAPE '\'`,
		like, like, like)
	if err != nil {
		return nil, classify("searchNotes", err)
	}
	defer rows.Close()

	var notes []core.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, core.E(core.CodeStorageCorrupt, "searchNotes", "failed to scan note row", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

const notebookColumns = "id, name, description, color, parent_id, created_at, updated_at, trashed, revision"

func scanNotebook(row interface{ Scan(dest ...any) error }) (core.Notebook, error) {
	var nb core.Notebook
	var created, updated, revision int64
	err := row.Scan(&nb.ID, &nb.Name, &nb.Description, &nb.Color, &nb.ParentID,
		&created, &updated, &nb.IsTrashed, &revision)
	if err != nil {
		return core.Notebook{}, err
	}
	nb.CreatedAt = time.UnixMilli(created).UTC()
	nb.UpdatedAt = time.UnixMilli(updated).UTC()
	nb.Revision = strconv.FormatInt(revision, 10)
	return nb, nil
}

func (b *Backend) ListNotebooks(ctx context.Context) ([]core.Notebook, error) {
	rows, err := b.conn.QueryContext(ctx, "SELECT "+notebookColumns+" FROM notebooks")
	if err != nil {
		return nil, classify("listNotebooks", err)
	}
	defer rows.Close()

	var books []core.Notebook
	for rows.Next() {
		nb, err := scanNotebook(rows)
		if err != nil {
			return nil, core.E(core.CodeStorageCorrupt, "listNotebooks", "failed to scan notebook row", err)
		}
		books = append(books, nb)
	}
	return books, rows.Err()
}

func (b *Backend) GetNotebook(ctx context.Context, id string) (core.Notebook, error) {
	row := b.conn.QueryRowContext(ctx, "SELECT "+notebookColumns+" FROM notebooks WHERE id = ?", id)
	nb, err := scanNotebook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Notebook{}, core.E(core.CodeNotFound, "getNotebook", fmt.Sprintf("notebook %q not found", id), err)
	}
	if err != nil {
		return core.Notebook{}, classify("getNotebook", err)
	}
	return nb, nil
}

func (b *Backend) SaveNotebook(ctx context.Context, nb core.Notebook) (core.Notebook, error) {
	tx, err := b.conn.BeginTx(ctx, nil)
	if err != nil {
		return core.Notebook{}, classify("saveNotebook", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, "SELECT "+notebookColumns+" FROM notebooks WHERE id = ?", nb.ID)
	current, err := scanNotebook(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			`INSERT INTO notebooks (`+notebookColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)`,
			nb.ID, nb.Name, nb.Description, nb.Color, nb.ParentID,
			nb.CreatedAt.UnixMilli(), nb.UpdatedAt.UnixMilli(), nb.IsTrashed)
		if err != nil {
			return core.Notebook{}, classify("saveNotebook", err)
		}
		nb.Revision = "1"
	case err != nil:
		return core.Notebook{}, classify("saveNotebook", err)
	default:
		if nb.Revision != current.Revision {
			return core.Notebook{}, &core.ConflictError{
				Kind:            core.KindNotebook,
				ID:              nb.ID,
				CurrentRevision: current.Revision,
				Current:         current,
			}
		}
		rev, _ := strconv.ParseInt(current.Revision, 10, 64)
		_, err = tx.ExecContext(ctx,
			`UPDATE notebooks SET name = ?, description = ?, color = ?, parent_id = ?,
			 created_at = ?, updated_at = ?, trashed = ?, revision = ? WHERE id = ?`,
			nb.Name, nb.Description, nb.Color, nb.ParentID,
			nb.CreatedAt.UnixMilli(), nb.UpdatedAt.UnixMilli(), nb.IsTrashed, rev+1, nb.ID)
		if err != nil {
			return core.Notebook{}, classify("saveNotebook", err)
		}
		nb.Revision = strconv.FormatInt(rev+1, 10)
	}

	if err := tx.Commit(); err != nil {
		return core.Notebook{}, classify("saveNotebook", err)
	}
	return nb, nil
}

func (b *Backend) DeleteNotebook(ctx context.Context, id string) error {
	res, err := b.conn.ExecContext(ctx, "DELETE FROM notebooks WHERE id = ?", id)
	if err != nil {
		return classify("deleteNotebook", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return core.E(core.CodeNotFound, "deleteNotebook", fmt.Sprintf("notebook %q not found", id), nil)
	}
	return nil
}

func (b *Backend) GetValue(ctx context.Context, category, key string) (string, error) {
	var value string
	err := b.conn.QueryRowContext(ctx,
		"SELECT value FROM kv WHERE category = ? AND key = ?", category, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", core.E(core.CodeNotFound, "getValue", fmt.Sprintf("value %s/%s not found", category, key), err)
	}
	if err != nil {
		return "", classify("getValue", err)
	}
	return value, nil
}

func (b *Backend) SetValue(ctx context.Context, category, key, value string) error {
	_, err := b.conn.ExecContext(ctx,
		`INSERT INTO kv (category, key, value) VALUES (?, ?, ?)
		 ON CONFLICT (category, key) DO UPDATE SET value = excluded.value`,
		category, key, value)
	if err != nil {
		return classify("setValue", err)
	}
	return nil
}

func (b *Backend) DeleteValue(ctx context.Context, category, key string) error {
	_, err := b.conn.ExecContext(ctx,
		"DELETE FROM kv WHERE category = ? AND key = ?", category, key)
	if err != nil {
		return classify("deleteValue", err)
	}
	return nil
}

// classify maps sqlite failures onto the error taxonomy.
func classify(op string, err error) *core.Error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "database or disk is full"):
		return core.E(core.CodeStorageFull, op, "database is full", err)
	case strings.Contains(msg, "database disk image is malformed"):
		return core.E(core.CodeStorageCorrupt, op, "database is corrupt", err)
	case strings.Contains(msg, "unable to open database"):
		return core.E(core.CodeStorageNotAvailable, op, "database unavailable", err)
	case strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy"):
		return core.E(core.CodeTimeout, op, "database is busy", err)
	}
	return core.E(core.CodeUnknown, op, "database operation failed", err)
}
