package query

import (
	"log/slog"

	"github.com/spf13/cast"
)

// HierarchyFields names the record fields that form a parent/child tree.
type HierarchyFields struct {
	ID          string // e.g. "Id"
	ParentID    string // raw parent link, dropped after resolution
	Label       string // human-readable identifier, e.g. "AccountNumber"
	ParentLabel string // output field, e.g. "ParentNumber"
}

// ResolveParents copies each parent's label into its children and removes
// the raw parent link from every record.
func ResolveParents(records []Record, f HierarchyFields) {
	byID := make(map[string]Record, len(records))
	for _, r := range records {
		if id, ok := r[f.ID]; ok && id != nil {
			byID[cast.ToString(id)] = r
		}
	}

	for _, r := range records {
		if pid, ok := r[f.ParentID]; ok && pid != nil {
			if parent, found := byID[cast.ToString(pid)]; found {
				if label, ok := parent[f.Label]; ok {
					r[f.ParentLabel] = label
				}
			}
		}
		delete(r, f.ParentID)
	}
}

// Descendants returns the ids of the record labelled start and of every
// record below it. See DescendantsOf.
func Descendants(records []Record, f HierarchyFields, start string, logger *slog.Logger) ([]string, error) {
	for _, r := range records {
		if cast.ToString(r[f.Label]) == start {
			return DescendantsOf(records, f, r, logger), nil
		}
	}
	return nil, Errorf(UserErr, ErrInvalidValue, "no record with %s %q", f.Label, start)
}

// DescendantsOf returns the id of root and of every record below it, in
// breadth-first order. A child is linked to its parent either through
// ParentLabel or, while the raw link is still present, through ParentID.
// Cycles are cut by a visited set over record ids.
func DescendantsOf(records []Record, f HierarchyFields, root Record, logger *slog.Logger) []string {
	byLabel := make(map[string][]Record)
	byParent := make(map[string][]Record)
	for _, r := range records {
		if p := cast.ToString(r[f.ParentLabel]); p != "" {
			byLabel[p] = append(byLabel[p], r)
		}
		if f.ParentID != "" {
			if p := cast.ToString(r[f.ParentID]); p != "" {
				byParent[p] = append(byParent[p], r)
			}
		}
	}

	rootID := cast.ToString(root[f.ID])
	visited := map[string]bool{rootID: true}
	ids := []string{rootID}
	queue := []Record{root}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		children := byParent[cast.ToString(current[f.ID])]
		if label := cast.ToString(current[f.Label]); label != "" {
			children = append(children[:len(children):len(children)], byLabel[label]...)
		}
		seen := make(map[string]bool, len(children))
		for _, child := range children {
			id := cast.ToString(child[f.ID])
			if seen[id] {
				continue
			}
			seen[id] = true
			if visited[id] {
				if logger != nil {
					logger.Warn("cycle in parent chain", "id", id, "parent", cast.ToString(current[f.ID]))
				}
				continue
			}
			visited[id] = true
			ids = append(ids, id)
			queue = append(queue, child)
		}
	}
	return ids
}
