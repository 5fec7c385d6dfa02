package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/tomymaritano/viny-sub001/pkg/core"
)

// mergeSeparator joins both contents when neither side can win. Lossy but
// conflict-preserving: no data is silently dropped.
const mergeSeparator = "\n\n--- merged remote version ---\n\n"

// diffCleanupThreshold is the minimum number of diffs before running the
// semantic cleanup pass. Below this count the diffs are simple enough that
// cleanup would not improve the result.
const diffCleanupThreshold = 2

// maxDiffPreview caps the stored diff preview length.
const maxDiffPreview = 400

// DetectNoteConflicts compares local and remote notes and returns one
// unresolved conflict per id whose semantic fields (content, title, tags)
// diverge. A difference in updatedAt alone is never a conflict.
func DetectNoteConflicts(local, remote []core.Note, now time.Time) []Conflict {
	remoteByID := make(map[string]core.Note, len(remote))
	for _, r := range remote {
		remoteByID[r.ID] = r
	}

	var out []Conflict
	for _, l := range local {
		r, ok := remoteByID[l.ID]
		if !ok {
			continue
		}
		if !noteDiverges(l, r) {
			continue
		}
		out = append(out, Conflict{
			ID:         uuid.New().String(),
			Kind:       core.KindNote,
			ItemID:     l.ID,
			Local:      l.Clone(),
			Remote:     r.Clone(),
			DetectedAt: now,
			Diff:       diffPreview(l.Content, r.Content),
		})
	}
	return out
}

// DetectNotebookConflicts is the notebook counterpart; the semantic fields
// are name, color and description.
func DetectNotebookConflicts(local, remote []core.Notebook, now time.Time) []Conflict {
	remoteByID := make(map[string]core.Notebook, len(remote))
	for _, r := range remote {
		remoteByID[r.ID] = r
	}

	var out []Conflict
	for _, l := range local {
		r, ok := remoteByID[l.ID]
		if !ok {
			continue
		}
		if !notebookDiverges(l, r) {
			continue
		}
		out = append(out, Conflict{
			ID:         uuid.New().String(),
			Kind:       core.KindNotebook,
			ItemID:     l.ID,
			Local:      l,
			Remote:     r,
			DetectedAt: now,
		})
	}
	return out
}

func noteDiverges(l, r core.Note) bool {
	return l.Content != r.Content || l.Title != r.Title || !core.TagsEqual(l.Tags, r.Tags)
}

func notebookDiverges(l, r core.Notebook) bool {
	return l.Name != r.Name || l.Color != r.Color || l.Description != r.Description
}

// ResolveConflict produces a Resolution for a single conflict.
//
// use_local, use_remote and create_both return the chosen side verbatim;
// for create_both the engine deliberately does not synthesize the duplicate
// remote-side record, that is the caller's responsibility. merge combines
// both sides field by field (see mergeNotes/mergeNotebooks). manual cannot
// be applied automatically and fails.
func ResolveConflict(c Conflict, strategy Strategy, now time.Time) (Resolution, error) {
	res := Resolution{Strategy: strategy, AppliedAt: now}

	switch strategy {
	case StrategyUseLocal, StrategyCreateBoth:
		res.ResolvedItem = c.Local
	case StrategyUseRemote:
		res.ResolvedItem = c.Remote
	case StrategyMerge:
		switch c.Kind {
		case core.KindNote:
			l, r, ok := c.Notes()
			if !ok {
				return Resolution{}, fmt.Errorf("conflict %s: malformed note versions", c.ID)
			}
			res.ResolvedItem = mergeNotes(l, r, now)
		case core.KindNotebook:
			l, r, ok := c.Notebooks()
			if !ok {
				return Resolution{}, fmt.Errorf("conflict %s: malformed notebook versions", c.ID)
			}
			res.ResolvedItem = mergeNotebooks(l, r)
		default:
			return Resolution{}, fmt.Errorf("conflict %s: unknown item kind %q", c.ID, c.Kind)
		}
	case StrategyManual:
		return Resolution{}, fmt.Errorf("conflict %s: manual strategy requires explicit resolution", c.ID)
	default:
		return Resolution{}, fmt.Errorf("conflict %s: unknown strategy %q", c.ID, strategy)
	}

	return res, nil
}

// ResolveConflicts applies the default strategy to every conflict,
// partitioning into resolved and failed. A conflict whose resolution fails
// is reported in failed, never silently skipped.
func ResolveConflicts(conflicts []Conflict, def Strategy, now time.Time) (resolved, failed []Conflict) {
	for _, c := range conflicts {
		res, err := ResolveConflict(c, def, now)
		if err != nil {
			failed = append(failed, c)
			continue
		}
		c.Resolved = true
		c.Resolution = &res
		resolved = append(resolved, c)
	}
	return resolved, failed
}

// MergeArrays performs an id-keyed union of two collections. A remote entry
// replaces the local entry only if its updatedAt is strictly later; remote
// entries unknown locally are appended.
func MergeArrays[T Item](local, remote []T) []T {
	index := make(map[string]int, len(local))
	out := make([]T, len(local))
	copy(out, local)
	for i, l := range out {
		index[l.ItemID()] = i
	}

	for _, r := range remote {
		i, ok := index[r.ItemID()]
		if !ok {
			index[r.ItemID()] = len(out)
			out = append(out, r)
			continue
		}
		if r.ModifiedAt().After(out[i].ModifiedAt()) {
			out[i] = r
		}
	}
	return out
}

// mergeNotes combines both sides of a diverged note.
//
// Contents that are byte-equal stay as-is; a side that is empty or
// whitespace loses to the other; otherwise local-then-remote are joined
// with a visible separator. Scalar fields follow the side with the strictly
// later updatedAt. Tags become a deduplicated sorted union and the sticky
// booleans OR together. The result is stamped with a resolution marker.
func mergeNotes(local, remote core.Note, now time.Time) core.Note {
	later := local
	if remote.UpdatedAt.After(local.UpdatedAt) {
		later = remote
	}

	out := later.Clone()
	out.ID = local.ID
	out.Content = mergeContent(local.Content, remote.Content)
	out.Tags = core.NormalizeTags(append(append([]string(nil), local.Tags...), remote.Tags...))
	out.IsPinned = local.IsPinned || remote.IsPinned
	out.IsTrashed = local.IsTrashed || remote.IsTrashed
	out.CreatedAt = earlier(local.CreatedAt, remote.CreatedAt)
	out.UpdatedAt = laterOf(local.UpdatedAt, remote.UpdatedAt)
	out.Revision = local.Revision

	if out.Metadata == nil {
		out.Metadata = core.Metadata{}
	}
	out.Metadata["syncResolution"] = string(StrategyMerge)
	out.Metadata["syncResolvedAt"] = now.UTC().Format(time.RFC3339)

	return out
}

func mergeNotebooks(local, remote core.Notebook) core.Notebook {
	out := local
	if remote.UpdatedAt.After(local.UpdatedAt) {
		out = remote
	}
	out.ID = local.ID
	out.IsTrashed = local.IsTrashed || remote.IsTrashed
	out.CreatedAt = earlier(local.CreatedAt, remote.CreatedAt)
	out.UpdatedAt = laterOf(local.UpdatedAt, remote.UpdatedAt)
	out.Revision = local.Revision
	return out
}

func mergeContent(local, remote string) string {
	if local == remote {
		return local
	}
	if strings.TrimSpace(local) == "" {
		return remote
	}
	if strings.TrimSpace(remote) == "" {
		return local
	}
	return local + mergeSeparator + remote
}

func earlier(a, b time.Time) time.Time {
	if b.Before(a) && !b.IsZero() {
		return b
	}
	if a.IsZero() {
		return b
	}
	return a
}

func laterOf(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

// diffPreview builds a compact textual preview of the content divergence.
func diffPreview(local, remote string) string {
	if local == remote {
		return ""
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(local, remote, false)
	if len(diffs) > diffCleanupThreshold {
		diffs = dmp.DiffCleanupSemantic(diffs)
	}

	var b strings.Builder
	for _, d := range diffs {
		if b.Len() >= maxDiffPreview {
			b.WriteString("…")
			break
		}
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			b.WriteString("-[")
			b.WriteString(clip(d.Text, 80))
			b.WriteString("]")
		case diffmatchpatch.DiffInsert:
			b.WriteString("+[")
			b.WriteString(clip(d.Text, 80))
			b.WriteString("]")
		case diffmatchpatch.DiffEqual:
			b.WriteString("…")
		}
	}
	return b.String()
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
