package viny

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomymaritano/viny-sub001/pkg/core"
)

func TestNewMemoryBackend(t *testing.T) {
	store, err := New(context.Background(), Config{Backend: BackendMemory})
	require.NoError(t, err)
	defer store.Close()

	n, err := store.SaveNote(context.Background(), core.Note{Title: "hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
}

func TestNewFileBackend(t *testing.T) {
	dir := t.TempDir()
	store, err := New(context.Background(), Config{Backend: BackendFile, Path: dir})
	require.NoError(t, err)
	defer store.Close()

	_, err = store.SaveNote(context.Background(), core.Note{Title: "on disk"})
	require.NoError(t, err)
}

func TestNewSQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viny.db")
	store, err := New(context.Background(), Config{Backend: BackendSQLite, Path: path})
	require.NoError(t, err)
	defer store.Close()

	n, err := store.SaveNote(context.Background(), core.Note{Title: "in sqlite"})
	require.NoError(t, err)

	got, err := store.GetNote(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, "in sqlite", got.Title)
}

func TestNewRejectsBadConfigs(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		cfg  Config
	}{
		{"no backend", Config{}},
		{"unknown backend", Config{Backend: "tape-drive"}},
		{"file without path", Config{Backend: BackendFile}},
		{"sqlite without path", Config{Backend: BackendSQLite}},
		{"couch without url", Config{Backend: BackendCouch}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(ctx, tt.cfg)
			require.Error(t, err)
			assert.True(t, core.IsCode(err, core.CodeInitialization), "got %v", err)
		})
	}
}
