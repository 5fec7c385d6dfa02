package file

import (
	"container/list"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tomymaritano/viny-sub001/pkg/core"
)

// defaultIndexSize bounds the parsed-note index when no size is configured.
const defaultIndexSize = 1024

// indexEntry is one cached parsed note keyed by id, validated by mtime.
type indexEntry struct {
	ID           string    `json:"id"`
	Note         core.Note `json:"note"`
	LastModified time.Time `json:"lastModified"`
}

// index is a bounded LRU over parsed notes, persisted under the system
// directory. Eviction is explicit: least-recently-used entries fall off
// once the capacity is reached, rather than relying on map iteration order
// for "oldest".
type index struct {
	mu       sync.Mutex
	path     string
	capacity int
	order    *list.List               // front = most recent; holds *indexEntry
	byID     map[string]*list.Element // id -> element in order
	dirty    bool
}

func newIndex(path string, capacity int) *index {
	if capacity <= 0 {
		capacity = defaultIndexSize
	}
	return &index{
		path:     path,
		capacity: capacity,
		order:    list.New(),
		byID:     make(map[string]*list.Element),
	}
}

// persistedIndex is the on-disk shape, most recent first.
type persistedIndex struct {
	Version int           `json:"version"`
	Entries []*indexEntry `json:"entries"`
}

// Load reads the index from disk. A missing or corrupted file starts an
// empty index without error; the cache self-heals on the next Save.
func (x *index) Load() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	data, err := os.ReadFile(x.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}

	var p persistedIndex
	if err := json.Unmarshal(data, &p); err != nil {
		x.order.Init()
		x.byID = make(map[string]*list.Element)
		return nil
	}

	for _, e := range p.Entries {
		if _, dup := x.byID[e.ID]; dup || x.order.Len() >= x.capacity {
			continue
		}
		x.byID[e.ID] = x.order.PushBack(e)
	}
	x.dirty = false
	return nil
}

// Save persists the index if it changed since the last load or save.
func (x *index) Save() error {
	x.mu.Lock()
	if !x.dirty {
		x.mu.Unlock()
		return nil
	}
	p := persistedIndex{Version: 1, Entries: make([]*indexEntry, 0, x.order.Len())}
	for el := x.order.Front(); el != nil; el = el.Next() {
		p.Entries = append(p.Entries, el.Value.(*indexEntry))
	}
	data, err := json.MarshalIndent(p, "", "  ")
	x.mu.Unlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(x.path), 0755); err != nil {
		return err
	}
	if err := writeFileAtomic(x.path, data, 0644); err != nil {
		return err
	}

	x.mu.Lock()
	x.dirty = false
	x.mu.Unlock()
	return nil
}

// Get returns the cached note if present and fresh, promoting it to most
// recently used.
func (x *index) Get(id string, currentMtime time.Time) (core.Note, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	el, ok := x.byID[id]
	if !ok {
		return core.Note{}, false
	}
	entry := el.Value.(*indexEntry)
	if !entry.LastModified.Equal(currentMtime) {
		return core.Note{}, false
	}
	x.order.MoveToFront(el)
	return entry.Note.Clone(), true
}

// Set stores or refreshes an entry, evicting the least recently used entry
// when the index is full.
func (x *index) Set(id string, n core.Note, mtime time.Time) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if el, ok := x.byID[id]; ok {
		entry := el.Value.(*indexEntry)
		entry.Note = n.Clone()
		entry.LastModified = mtime
		x.order.MoveToFront(el)
		x.dirty = true
		return
	}

	for x.order.Len() >= x.capacity {
		oldest := x.order.Back()
		x.order.Remove(oldest)
		delete(x.byID, oldest.Value.(*indexEntry).ID)
	}

	x.byID[id] = x.order.PushFront(&indexEntry{ID: id, Note: n.Clone(), LastModified: mtime})
	x.dirty = true
}

// Delete removes a single entry.
func (x *index) Delete(id string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if el, ok := x.byID[id]; ok {
		x.order.Remove(el)
		delete(x.byID, id)
		x.dirty = true
	}
}

// Prune removes entries whose ids are not in the keep set.
func (x *index) Prune(keep map[string]bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	var next *list.Element
	for el := x.order.Front(); el != nil; el = next {
		next = el.Next()
		id := el.Value.(*indexEntry).ID
		if !keep[id] {
			x.order.Remove(el)
			delete(x.byID, id)
			x.dirty = true
		}
	}
}

// Len returns the number of cached entries.
func (x *index) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.order.Len()
}
