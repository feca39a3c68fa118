package rewrite

import (
	"strings"

	"github.com/sambeau/streamline/pkg/java/ast"
	"github.com/sambeau/streamline/pkg/java/format"
	"github.com/sambeau/streamline/pkg/java/lexer"
)

type span struct{ start, end int }

// Tracker hands out source text for nodes that survive a rewrite and
// remembers which ranges were reused, so that comments outside them can be
// restored next to the replacement.
type Tracker struct {
	src      string
	comments []lexer.Comment
	kept     []span
}

// NewTracker creates a tracker over src and the comments found in it.
func NewTracker(src string, comments []lexer.Comment) *Tracker {
	return &Tracker{src: src, comments: comments}
}

// Src returns the tracked source.
func (t *Tracker) Src() string { return t.src }

// Text returns the source text of n and marks it as kept.
func (t *Tracker) Text(n ast.Node) string {
	t.kept = append(t.kept, span{n.Pos(), n.End()})
	return t.src[n.Pos():n.End()]
}

// Peek returns the source text of n without marking it.
func (t *Tracker) Peek(n ast.Node) string {
	return t.src[n.Pos():n.End()]
}

func (t *Tracker) isKept(c lexer.Comment) bool {
	for _, k := range t.kept {
		if k.start <= c.Pos && c.End <= k.end {
			return true
		}
	}
	return false
}

// Lost returns the comments lying in [start, end) that no kept text covers.
func (t *Tracker) Lost(start, end int) []lexer.Comment {
	var out []lexer.Comment
	for _, c := range t.comments {
		if c.Pos >= start && c.End <= end && !t.isKept(c) {
			out = append(out, c)
		}
	}
	return out
}

// lostPrefix renders the lost comments of [start, end) one per line, each
// followed by a newline and indent.
func (t *Tracker) lostPrefix(start, end int, indent string) string {
	var sb strings.Builder
	for _, c := range t.Lost(start, end) {
		sb.WriteString(format.Reindent(c.Text, format.LineIndent(t.src, c.Pos), indent))
		sb.WriteString("\n")
		sb.WriteString(indent)
	}
	return sb.String()
}

// ReplaceNode replaces n with text in s, restoring lost comments from n's
// range on their own lines in front of the replacement.
func (t *Tracker) ReplaceNode(s *Set, n ast.Node, text string) {
	indent := format.LineIndent(t.src, n.Pos())
	s.Replace(n.Pos(), n.End(), t.lostPrefix(n.Pos(), n.End(), indent)+text)
}

// DeleteStatement removes stmt from s. A statement alone on its lines is
// removed with its lines; any comment inside it that nothing kept is left in
// its place.
func (t *Tracker) DeleteStatement(s *Set, stmt ast.Node) {
	start, end := stmt.Pos(), stmt.End()
	indent := format.LineIndent(t.src, start)
	lost := t.lostPrefix(start, end, indent)
	if lost != "" {
		s.Replace(start, end, strings.TrimSuffix(lost, "\n"+indent))
		return
	}
	if format.IsAloneOnLines(t.src, start, end) {
		ls := format.LineStart(t.src, start)
		le := format.LineEnd(t.src, end)
		if le < len(t.src) {
			le++
		}
		s.Delete(ls, le)
		return
	}
	for end < len(t.src) && (t.src[end] == ' ' || t.src[end] == '\t') {
		end++
	}
	s.Delete(start, end)
}
