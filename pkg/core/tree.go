package core

// RepairNotebookTree validates the parent edges of a notebook collection and
// repairs the problems it finds:
//
//   - a ParentID pointing at a notebook that does not exist is cleared
//   - a cycle (a notebook reachable from itself via parent edges) is broken
//     by detaching the first notebook on the cycle to the root
//   - a notebook that is its own parent is detached to the root
//
// It returns the repaired collection and the ids of every notebook it
// touched. The input slice is not modified.
func RepairNotebookTree(books []Notebook) ([]Notebook, []string) {
	byID := make(map[string]int, len(books))
	out := make([]Notebook, len(books))
	copy(out, books)
	for i, b := range out {
		byID[b.ID] = i
	}

	var repaired []string
	detach := func(i int) {
		out[i].ParentID = ""
		repaired = append(repaired, out[i].ID)
	}

	for i := range out {
		if out[i].ParentID == "" {
			continue
		}
		if out[i].ParentID == out[i].ID {
			detach(i)
			continue
		}
		if _, ok := byID[out[i].ParentID]; !ok {
			detach(i)
		}
	}

	// Cycle detection. Walking up from every node visits at most len(out)
	// edges before a repeat proves a cycle.
	for i := range out {
		seen := map[string]bool{out[i].ID: true}
		cur := out[i].ParentID
		for cur != "" {
			if seen[cur] {
				detach(i)
				break
			}
			seen[cur] = true
			j, ok := byID[cur]
			if !ok {
				break
			}
			cur = out[j].ParentID
		}
	}

	return out, repaired
}
