package version

import "reflect"

// Change ops reported by Diff.
const (
	OpAdded   = "added"
	OpRemoved = "removed"
	OpChanged = "changed"
)

// Change describes how a single field differs between two snapshots.
// From is set for removed/changed, To for added/changed.
type Change struct {
	Op   string `json:"op"`
	From any    `json:"from,omitempty"`
	To   any    `json:"to,omitempty"`
}

// Diff maps field names to their change between two snapshots. Unchanged
// fields are omitted.
type Diff map[string]Change

// Compare computes the key-wise diff between two snapshot maps. A key only
// in to is added, only in from is removed, in both with different values is
// changed. Compare(a, b) and Compare(b, a) cover the same field set with
// from/to swapped.
func Compare(from, to map[string]any) Diff {
	d := Diff{}
	for k, fv := range from {
		tv, ok := to[k]
		if !ok {
			d[k] = Change{Op: OpRemoved, From: fv}
			continue
		}
		if !reflect.DeepEqual(fv, tv) {
			d[k] = Change{Op: OpChanged, From: fv, To: tv}
		}
	}
	for k, tv := range to {
		if _, ok := from[k]; !ok {
			d[k] = Change{Op: OpAdded, To: tv}
		}
	}
	return d
}

// ChangedFields returns the field names Compare reports, in no particular
// order. Used to decide whether a mutation touched anything significant.
func ChangedFields(from, to map[string]any) []string {
	d := Compare(from, to)
	fields := make([]string, 0, len(d))
	for k := range d {
		fields = append(fields, k)
	}
	return fields
}
