// Package rewrite turns a set of textual replacements into new source while
// keeping comments that the replacements would otherwise drop.
package rewrite

import (
	"sort"

	jerrors "github.com/sambeau/streamline/pkg/java/errors"
)

// Edit replaces src[Start:End] with Text. Start == End is an insertion.
type Edit struct {
	Start int
	End   int
	Text  string
}

func (e Edit) overlaps(o Edit) bool {
	if e.Start == e.End || o.Start == o.End {
		// insertions only collide when strictly inside the other range
		return (e.Start == e.End && o.Start < e.Start && e.Start < o.End) ||
			(o.Start == o.End && e.Start < o.Start && o.Start < e.End)
	}
	return e.Start < o.End && o.Start < e.End
}

// Set collects the edits belonging to one change.
type Set struct {
	edits []Edit
}

// Replace records a replacement of src[start:end].
func (s *Set) Replace(start, end int, text string) {
	s.edits = append(s.edits, Edit{Start: start, End: end, Text: text})
}

// Insert records an insertion before pos.
func (s *Set) Insert(pos int, text string) {
	s.edits = append(s.edits, Edit{Start: pos, End: pos, Text: text})
}

// Delete records a removal of src[start:end].
func (s *Set) Delete(start, end int) {
	s.edits = append(s.edits, Edit{Start: start, End: end})
}

// Len returns the number of recorded edits.
func (s *Set) Len() int { return len(s.edits) }

// Edits returns the recorded edits in insertion order.
func (s *Set) Edits() []Edit { return s.edits }

// Overlaps reports whether any edit of s collides with any edit of o.
func (s *Set) Overlaps(o *Set) bool {
	for _, a := range s.edits {
		for _, b := range o.edits {
			if a.overlaps(b) {
				return true
			}
		}
	}
	return false
}

// Merge appends the edits of o to s.
func (s *Set) Merge(o *Set) {
	s.edits = append(s.edits, o.edits...)
}

// Apply returns src with all edits applied. Insertions at the same offset
// keep their recording order. Overlapping edits are an error.
func Apply(src string, edits []Edit) (string, error) {
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		// insertions before replacements starting at the same offset
		return sorted[i].End == sorted[i].Start && sorted[j].End != sorted[j].Start
	})

	var out []byte
	last := 0
	for i, e := range sorted {
		if e.Start < last || e.End > len(src) || e.End < e.Start {
			return "", jerrors.New("REWRITE-0001", map[string]any{"Offset": e.Start})
		}
		if i > 0 && sorted[i-1].overlaps(e) {
			return "", jerrors.New("REWRITE-0001", map[string]any{"Offset": e.Start})
		}
		out = append(out, src[last:e.Start]...)
		out = append(out, e.Text...)
		last = e.End
	}
	out = append(out, src[last:]...)
	return string(out), nil
}

// ApplySet applies the edits of s to src.
func ApplySet(src string, s *Set) (string, error) {
	return Apply(src, s.edits)
}
