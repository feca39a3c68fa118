package engine

import (
	"strconv"

	"github.com/sambeau/streamline/pkg/java/analysis"
	"github.com/sambeau/streamline/pkg/java/ast"
)

// Operation is one stage of a pipeline: a source or an intermediate step.
type Operation interface {
	// Name is the stream method the stage renders as.
	Name() string
	// Variable is the element variable visible after the stage.
	Variable() *analysis.Variable
	// Expressions returns the expressions the stage reads at run time.
	Expressions() []ast.Expression
	// IsWriteAllowed reports whether the write through id is performed by
	// the stage itself.
	IsWriteAllowed(v *analysis.Variable, id *ast.Identifier) bool
	// CanReassignVariable reports whether the element variable may be
	// assigned by the statements that consume the stage.
	CanReassignVariable(v *analysis.Variable) bool

	render(w *writer, ch *chain)
	cleanUp(w *writer)
}

// intermediate holds what every non-source stage shares.
type intermediate struct {
	v *analysis.Variable // incoming element
}

func (o *intermediate) Variable() *analysis.Variable                            { return o.v }
func (o *intermediate) IsWriteAllowed(*analysis.Variable, *ast.Identifier) bool { return false }
func (o *intermediate) CanReassignVariable(*analysis.Variable) bool             { return true }
func (o *intermediate) cleanUp(*writer)                                         {}

// FilterOp keeps the elements satisfying Cond, or failing it when Negated.
type FilterOp struct {
	intermediate
	Cond    ast.Expression
	Negated bool
}

func (o *FilterOp) Name() string                  { return "filter" }
func (o *FilterOp) Expressions() []ast.Expression { return []ast.Expression{o.Cond} }

func (o *FilterOp) render(w *writer, ch *chain) {
	ch.call(".filter("+w.predicate(o.v, o.Cond, o.Negated)+")", ch.kind)
}

// predicate renders 'v -> cond', negating cond when asked.
func (w *writer) predicate(v *analysis.Variable, cond ast.Expression, negated bool) string {
	if negated {
		return v.Name + " -> " + w.t.Negated(cond)
	}
	return w.lambda(v, cond)
}

// TakeWhileOp keeps elements while Cond holds.
type TakeWhileOp struct {
	intermediate
	Cond ast.Expression // the loop leaves when this is true
}

func (o *TakeWhileOp) Name() string                  { return "takeWhile" }
func (o *TakeWhileOp) Expressions() []ast.Expression { return []ast.Expression{o.Cond} }

func (o *TakeWhileOp) render(w *writer, ch *chain) {
	ch.call(".takeWhile("+w.predicate(o.v, o.Cond, true)+")", ch.kind)
}

// MapOp replaces each element by Expr, naming the result To. To is the
// element variable itself when Stmt reassigns it.
type MapOp struct {
	intermediate
	To   *analysis.Variable
	Expr ast.Expression
	Stmt ast.Statement // the declaration or assignment the stage came from
}

func (o *MapOp) Name() string                  { return "map" }
func (o *MapOp) Expressions() []ast.Expression { return []ast.Expression{o.Expr} }
func (o *MapOp) Variable() *analysis.Variable  { return o.To }

func (o *MapOp) render(w *writer, ch *chain) {
	ch.mapTo(w, o.v, o.Expr, w.e.kindOf(o.To))
}

// FlatMapOp replaces each element by the elements of a nested loop.
type FlatMapOp struct {
	intermediate
	Inner *TerminalBlock // source and stages of the nested loop
}

func (o *FlatMapOp) Name() string { return "flatMap" }

func (o *FlatMapOp) Variable() *analysis.Variable { return o.Inner.Variable() }

func (o *FlatMapOp) Expressions() []ast.Expression {
	return o.Inner.IntermediateAndSourceExpressions()
}

func (o *FlatMapOp) IsWriteAllowed(v *analysis.Variable, id *ast.Identifier) bool {
	return o.Inner.isWriteAllowed(v, id)
}

func (o *FlatMapOp) CanReassignVariable(v *analysis.Variable) bool {
	return o.Inner.LastOperation().CanReassignVariable(v)
}

func (o *FlatMapOp) cleanUp(w *writer) {
	for _, op := range o.Inner.ops {
		op.cleanUp(w)
	}
}

func (o *FlatMapOp) render(w *writer, ch *chain) {
	inner := o.Inner.Generate(w)
	in, out := inner.kind, ch.kind
	body := o.v.Name + " -> " + inner.String()
	switch {
	case in == out:
		ch.call(".flatMap("+body+")", in)
	case out == "Stream":
		ch.call("."+flatMapName(in)+"("+body+")", in)
	default:
		identity := w.class("java.util.function.Function") + ".identity()"
		ch.call(".mapToObj("+body+")", "Stream")
		ch.call("."+flatMapName(in)+"("+identity+")", in)
	}
}

func flatMapName(kind string) string {
	switch kind {
	case "IntStream":
		return "flatMapToInt"
	case "LongStream":
		return "flatMapToLong"
	case "DoubleStream":
		return "flatMapToDouble"
	}
	return "flatMap"
}

// CompoundFilterOp keeps elements for which some element of a nested loop
// satisfies the nested loop's last filter.
type CompoundFilterOp struct {
	intermediate
	Inner *TerminalBlock // ends with the matching filter
}

func (o *CompoundFilterOp) Name() string { return "filter" }

func (o *CompoundFilterOp) Expressions() []ast.Expression {
	return o.Inner.IntermediateAndSourceExpressions()
}

func (o *CompoundFilterOp) IsWriteAllowed(v *analysis.Variable, id *ast.Identifier) bool {
	return o.Inner.isWriteAllowed(v, id)
}

func (o *CompoundFilterOp) render(w *writer, ch *chain) {
	last := o.Inner.LastOperation().(*FilterOp)
	inner := o.Inner.WithoutLastOperation().Generate(w)
	inner.call(".anyMatch("+w.predicate(last.v, last.Cond, last.Negated)+")", "")
	ch.call(".filter("+o.v.Name+" -> "+inner.String()+")", ch.kind)
}

// LimitOp truncates the stream to Bound plus Delta elements.
type LimitOp struct {
	intermediate
	Bound   ast.Expression
	Delta   int
	Counter *analysis.Variable // dedicated counter, deleted on clean up
	Count   ast.Expression     // counted quantity left for the terminal
	Break   *ast.IfStmt
}

func (o *LimitOp) Name() string                  { return "limit" }
func (o *LimitOp) Expressions() []ast.Expression { return []ast.Expression{o.Bound} }

func (o *LimitOp) IsWriteAllowed(v *analysis.Variable, id *ast.Identifier) bool {
	return o.Counter == v && ast.Contains(o.Break.Cond, id)
}

func (o *LimitOp) render(w *writer, ch *chain) {
	ch.call(".limit("+w.plus(o.Bound, o.Delta)+")", ch.kind)
}

func (o *LimitOp) cleanUp(w *writer) {
	if o.Counter != nil {
		w.t.DeleteStatement(w.s, o.Counter.Decl)
	}
}

// plus renders x + delta, folding constants.
func (w *writer) plus(x ast.Expression, delta int) string {
	if delta == 0 {
		return w.text(x)
	}
	if c, ok := w.e.info.Constant(x); ok && (c.Kind == "int" || c.Kind == "long") {
		return strconv.FormatInt(c.Int+int64(delta), 10)
	}
	return w.t.Operand(x) + " + " + strconv.Itoa(delta)
}

// DistinctOp drops repeated elements, replacing a 'seen' set filter or a
// contains check on the collection being filled.
type DistinctOp struct {
	intermediate
	Set *analysis.Variable // the private 'seen' set, or nil
}

func (o *DistinctOp) Name() string                  { return "distinct" }
func (o *DistinctOp) Expressions() []ast.Expression { return nil }

func (o *DistinctOp) render(w *writer, ch *chain) {
	ch.call(".distinct()", ch.kind)
}

func (o *DistinctOp) cleanUp(w *writer) {
	if o.Set != nil {
		w.t.DeleteStatement(w.s, o.Set.Decl)
	}
}
