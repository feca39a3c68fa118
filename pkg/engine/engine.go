// Package engine recognises Java loops whose bodies amount to a stream
// pipeline and rewrites them into java.util.stream calls.
//
// Recognition works on a TerminalBlock: the operations peeled off the loop
// body so far plus the statements that remain. Extraction repeatedly peels
// filters, maps, flat-maps, take-whiles and limits; terminal strategies then
// try, in a fixed order, to turn what remains into a terminal call. Nothing
// is edited until a Migration is applied, and then only through a
// rewrite.Set over the original source text.
package engine

import (
	"strings"

	"github.com/sambeau/streamline/pkg/java/analysis"
	"github.com/sambeau/streamline/pkg/java/ast"
	"github.com/sambeau/streamline/pkg/java/format"
	"github.com/sambeau/streamline/pkg/java/lexer"
	"github.com/sambeau/streamline/pkg/java/rewrite"
	"github.com/sambeau/streamline/pkg/logger"
)

// Options tune which loops are reported and how replacements are written.
type Options struct {
	SuggestForEach        bool     // report loops that only become forEach()
	ReplaceTrivialForEach bool     // report loops whose replacement is barely shorter
	LanguageLevel         int      // Java feature level of the analysed code
	Disabled              []string // strategy names to skip
	QualifyNames          bool     // write java.util.stream.Collectors instead of importing it
}

// DefaultOptions returns the options used when no configuration is given.
func DefaultOptions() Options {
	return Options{LanguageLevel: 11}
}

func (o Options) disabled(name string) bool {
	for _, d := range o.Disabled {
		if d == name {
			return true
		}
	}
	return false
}

// Engine finds and applies migrations within one parsed tree.
type Engine struct {
	info     *analysis.Info
	cu       *ast.CompilationUnit // nil for statement snippets
	comments []lexer.Comment
	opts     Options
	log      *logger.Logger
	unit     string
}

// New creates an engine over a resolved tree. cu is nil when the tree is a
// statement snippet; generated code then uses fully qualified names.
func New(info *analysis.Info, cu *ast.CompilationUnit, comments []lexer.Comment, opts Options, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	if opts.LanguageLevel == 0 {
		opts.LanguageLevel = DefaultOptions().LanguageLevel
	}
	return &Engine{
		info:     info,
		cu:       cu,
		comments: comments,
		opts:     opts,
		log:      log.WithComponent("engine"),
		unit:     format.DetectIndentUnit(info.Src),
	}
}

// Info returns the resolved tree the engine works on.
func (e *Engine) Info() *analysis.Info { return e.info }

// Loops returns every for, for-each and while statement in the tree in
// source order.
func (e *Engine) Loops() []ast.Statement {
	var out []ast.Statement
	ast.Inspect(e.info.Root, func(n ast.Node) bool {
		switch l := n.(type) {
		case *ast.ForStmt, *ast.ForEachStmt, *ast.WhileStmt:
			out = append(out, l.(ast.Statement))
		}
		return true
	})
	return out
}

func (e *Engine) line(n ast.Node) int {
	return strings.Count(e.info.Src[:n.Pos()], "\n") + 1
}

// writer accumulates the edits of one migration.
type writer struct {
	e     *Engine
	t     *rewrite.Tracker
	im    *rewrite.Imports
	s     *rewrite.Set
	names map[string]bool // lambda parameters handed out so far
}

func (e *Engine) newWriter() *writer {
	return &writer{
		e:     e,
		t:     rewrite.NewTracker(e.info.Src, e.comments),
		im:    rewrite.NewImports(e.cu, e.opts.QualifyNames),
		s:     &rewrite.Set{},
		names: make(map[string]bool),
	}
}

// freshName returns a name free in the method around near and not yet
// handed out by this writer.
func (w *writer) freshName(near ast.Node, base string) string {
	return w.e.info.FreshName(near, base, w.names)
}

// text returns the source of n, keeping its comments.
func (w *writer) text(n ast.Node) string {
	if x, ok := n.(ast.Expression); ok {
		n = ast.Unparen(x)
	}
	return w.t.Text(n)
}

// class returns the name to write for a JDK class, recording an import.
func (w *writer) class(qualified string) string { return w.im.Need(qualified) }

func (w *writer) collectors() string { return w.class("java.util.stream.Collectors") }

// textReplacing returns the source of n with the given sub-nodes replaced.
func (w *writer) textReplacing(n ast.Node, repl map[ast.Node]string) string {
	src := w.t.Text(n)
	var edits []rewrite.Edit
	for sub, text := range repl {
		if !ast.Contains(n, sub) {
			continue
		}
		edits = append(edits, rewrite.Edit{Start: sub.Pos() - n.Pos(), End: sub.End() - n.Pos(), Text: text})
	}
	out, err := rewrite.Apply(src, edits)
	if err != nil {
		panic(err)
	}
	return out
}

// indentOf returns the indentation of the line holding n.
func (w *writer) indentOf(n ast.Node) string {
	return format.LineIndent(w.e.info.Src, n.Pos())
}

// layout renders ch for insertion at pos after prefix on the same line.
func (w *writer) layout(ch *chain, pos int, prefix string) string {
	src := w.e.info.Src
	col := format.Column(src, pos) + len(prefix)
	return ch.layout(col, format.LineIndent(src, pos), w.e.unit)
}

// chain is a stream pipeline under construction: a head expression and the
// calls that follow it.
type chain struct {
	head  string
	calls []string
	kind  string // stream class of the elements flowing out of the last call
	unbox int    // index of a trailing identity unboxing call, or -1
}

func newChain(head, kind string) *chain {
	return &chain{head: head, kind: kind, unbox: -1}
}

// call appends a call that leaves elements of the given stream kind.
func (ch *chain) call(text, kind string) {
	ch.calls = append(ch.calls, text)
	ch.kind = kind
	ch.unbox = -1
}

func (ch *chain) String() string {
	return ch.head + strings.Join(ch.calls, "")
}

func (ch *chain) layout(col int, base, unit string) string {
	return format.Chain(ch.head, ch.calls, col, base, unit)
}

// mapTo appends the step that turns elements named v into x, carried by a
// stream of kind to. Identity steps are skipped or become boxing and
// widening calls.
func (ch *chain) mapTo(w *writer, v *analysis.Variable, x ast.Expression, to string) {
	info := w.e.info
	identity := info.IsReferenceTo(x, v)
	from := ch.kind
	if !identity && ch.unbox >= 0 && ch.unbox == len(ch.calls)-1 {
		// the element can be mapped straight from its boxed form
		ch.calls = ch.calls[:ch.unbox]
		from = "Stream"
	}
	if identity {
		ch.convert(v.Name, to)
		return
	}
	ch.call("."+mapName(from, to)+"("+w.lambda(v, x)+")", to)
}

func mapName(from, to string) string {
	if from == to {
		return "map"
	}
	switch to {
	case "IntStream":
		return "mapToInt"
	case "LongStream":
		return "mapToLong"
	case "DoubleStream":
		return "mapToDouble"
	}
	return "mapToObj"
}

// kindOf returns the stream class that carries values of v.
func (e *Engine) kindOf(v *analysis.Variable) string {
	return analysis.StreamKind(e.info.VarType(v))
}

// kindOfType returns the stream class that carries values of type t.
func kindOfType(t *ast.TypeRef) string {
	if t == nil {
		return "Stream"
	}
	return analysis.StreamKind(t)
}
