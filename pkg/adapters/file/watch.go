package file

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tomymaritano/viny-sub001/pkg/core"
)

// debounceWindow suppresses duplicate events produced by editors that
// write-then-rename.
const debounceWindow = 50 * time.Millisecond

// Watch emits one event per changed note file until ctx is canceled.
func (b *Backend) Watch(ctx context.Context) (<-chan core.Event, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, core.E(core.CodeInitialization, "watch", "failed to create watcher", err)
	}

	root := filepath.Join(b.path, notesDir)
	if err := watcher.Add(root); err != nil {
		_ = watcher.Close()
		return nil, core.E(core.CodeStorageNotAvailable, "watch", "failed to watch notes directory", err)
	}

	events := make(chan core.Event)
	go func() {
		defer close(events)
		defer watcher.Close()

		last := make(map[string]time.Time)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Ext(ev.Name) != ".md" || strings.HasPrefix(filepath.Base(ev.Name), tempFilePrefix) {
					continue
				}

				rel, err := filepath.Rel(root, ev.Name)
				if err != nil {
					continue
				}
				id := strings.TrimSuffix(filepath.ToSlash(rel), ".md")

				var typ core.EventType
				switch {
				case ev.Has(fsnotify.Create):
					typ = core.EventCreate
				case ev.Has(fsnotify.Write):
					typ = core.EventModify
				case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
					typ = core.EventDelete
					b.index.Delete(id)
				default:
					continue
				}

				key := string(typ) + ":" + id
				now := time.Now()
				if at, seen := last[key]; seen && now.Sub(at) < debounceWindow {
					continue
				}
				last[key] = now

				select {
				case events <- core.Event{Type: typ, ID: id}:
				case <-ctx.Done():
					return
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return events, nil
}
