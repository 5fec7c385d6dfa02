package file

import (
	"bytes"
	"errors"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tomymaritano/viny-sub001/pkg/core"
)

// noteDoc is the frontmatter shape of a note file on disk. The note id is
// the path relative to the notes directory, not a frontmatter field.
type noteDoc struct {
	Title   string         `yaml:"title"`
	Tags    []string       `yaml:"tags,omitempty"`
	Book    string         `yaml:"notebook,omitempty"`
	Created time.Time      `yaml:"created,omitempty"`
	Updated time.Time      `yaml:"updated,omitempty"`
	Pinned  bool           `yaml:"pinned,omitempty"`
	Trashed bool           `yaml:"trashed,omitempty"`
	Meta    map[string]any `yaml:"meta,omitempty"`
}

// serializeNote renders the note as YAML frontmatter followed by content.
func serializeNote(n core.Note) ([]byte, error) {
	doc := noteDoc{
		Title:   n.Title,
		Tags:    n.Tags,
		Book:    n.NotebookID,
		Created: n.CreatedAt,
		Updated: n.UpdatedAt,
		Pinned:  n.IsPinned,
		Trashed: n.IsTrashed,
		Meta:    n.Metadata,
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	buf.WriteString("---\n")
	buf.WriteString(n.Content)
	return buf.Bytes(), nil
}

// parseNote is the inverse of serializeNote. Files without frontmatter are
// accepted as content-only notes so hand-written markdown still loads.
func parseNote(data []byte) (core.Note, error) {
	if !bytes.HasPrefix(data, []byte("---\n")) && !bytes.HasPrefix(data, []byte("---\r\n")) {
		return core.Note{Content: string(data)}, nil
	}

	rest := data[3:]
	parts := bytes.SplitN(rest, []byte("---"), 2)
	if len(parts) == 1 {
		return core.Note{}, errors.New("frontmatter started but no closing delimiter found")
	}

	var doc noteDoc
	if err := yaml.Unmarshal(parts[0], &doc); err != nil {
		return core.Note{}, err
	}

	content := strings.TrimPrefix(string(parts[1]), "\n")
	content = strings.TrimPrefix(content, "\r\n")

	return core.Note{
		Title:      doc.Title,
		Content:    content,
		Tags:       doc.Tags,
		NotebookID: doc.Book,
		CreatedAt:  doc.Created,
		UpdatedAt:  doc.Updated,
		IsPinned:   doc.Pinned,
		IsTrashed:  doc.Trashed,
		Metadata:   doc.Meta,
	}, nil
}
