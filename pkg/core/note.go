package core

import (
	"sort"
	"strings"
	"time"
)

// Metadata represents the flexible key-value pairs associated with an entity.
type Metadata map[string]any

// Clone returns a shallow copy of the metadata map.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ItemKind identifies which entity type a conflict or backend record refers to.
type ItemKind string

const (
	KindNote     ItemKind = "note"
	KindNotebook ItemKind = "notebook"
)

// Note is the central entity of the domain.
// Revision is a backend-specific optimistic-concurrency token; backends
// without concurrency control leave it empty.
type Note struct {
	ID         string    `json:"id" yaml:"id"`
	Title      string    `json:"title" yaml:"title" validate:"required"`
	Content    string    `json:"content" yaml:"content"`
	Tags       []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	NotebookID string    `json:"notebookId,omitempty" yaml:"notebook,omitempty"`
	CreatedAt  time.Time `json:"createdAt" yaml:"created"`
	UpdatedAt  time.Time `json:"updatedAt" yaml:"updated"`
	IsPinned   bool      `json:"isPinned,omitempty" yaml:"pinned,omitempty"`
	IsTrashed  bool      `json:"isTrashed,omitempty" yaml:"trashed,omitempty"`
	Revision   string    `json:"revision,omitempty" yaml:"-"`
	Metadata   Metadata  `json:"metadata,omitempty" yaml:"meta,omitempty"`
}

// ItemID implements the sync item contract.
func (n Note) ItemID() string { return n.ID }

// ModifiedAt implements the sync item contract.
func (n Note) ModifiedAt() time.Time { return n.UpdatedAt }

// Clone returns a deep copy of the note (tags and metadata included).
func (n Note) Clone() Note {
	out := n
	if n.Tags != nil {
		out.Tags = append([]string(nil), n.Tags...)
	}
	out.Metadata = n.Metadata.Clone()
	return out
}

// Notebook groups notes into a tree via ParentID.
type Notebook struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name" validate:"required"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Color       string    `json:"color,omitempty" yaml:"color,omitempty" validate:"omitempty,hexcolor"`
	ParentID    string    `json:"parentId,omitempty" yaml:"parent,omitempty"`
	CreatedAt   time.Time `json:"createdAt" yaml:"created"`
	UpdatedAt   time.Time `json:"updatedAt" yaml:"updated"`
	IsTrashed   bool      `json:"isTrashed,omitempty" yaml:"trashed,omitempty"`
	Revision    string    `json:"revision,omitempty" yaml:"-"`
}

// ItemID implements the sync item contract.
func (b Notebook) ItemID() string { return b.ID }

// ModifiedAt implements the sync item contract.
func (b Notebook) ModifiedAt() time.Time { return b.UpdatedAt }

// NormalizeTags returns a deduplicated, sorted copy of tags.
// Blank tags are dropped. Display order is the caller's concern; this form
// is the canonical one used for equality and merging.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

// TagsEqual reports whether two tag lists contain the same set of tags,
// ignoring order and duplicates.
func TagsEqual(a, b []string) bool {
	na, nb := NormalizeTags(a), NormalizeTags(b)
	if len(na) != len(nb) {
		return false
	}
	for i := range na {
		if na[i] != nb[i] {
			return false
		}
	}
	return true
}
