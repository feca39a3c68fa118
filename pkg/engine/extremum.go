package engine

import (
	"math"
	"strings"

	"github.com/sambeau/streamline/pkg/java/analysis"
	"github.com/sambeau/streamline/pkg/java/ast"
	"github.com/sambeau/streamline/pkg/java/rewrite"
)

// extremum is a recognised running maximum or minimum.
type extremum struct {
	acc  *analysis.Variable
	max  bool
	x    ast.Expression // value stored into acc; for references the element
	key  ast.Expression // compared key of the element, nil for natural order
	cmp  string         // comparator factory for key
	pre  *TerminalBlock // pipeline feeding the terminal
	prim bool
}

// tryExtremum matches
//
//	if (max == null || key(x) > key(max)) max = x;
//	if (x > max) max = x;
//	max = Math.max(max, x);
func tryExtremum(tb *TerminalBlock, nonFinal []*analysis.Variable) *plan {
	m := tb.mathExtremum()
	if m == nil {
		m = tb.guardedExtremum()
	}
	if m == nil || !tb.isLocalAccumulator(m.acc) {
		return nil
	}
	for _, v := range nonFinal {
		if v != m.acc && m.pre.IsReferencedInOperations(v) {
			return nil
		}
	}
	nodes := exprNodes(m.x, m.key)
	if tb.captures(nonFinal, m.acc, nodes...) {
		return nil
	}
	if m.prim {
		return tb.primitiveExtremum(m)
	}
	return tb.referenceExtremum(m)
}

// mathExtremum matches 'acc = Math.max(acc, x)' and its min twin.
func (tb *TerminalBlock) mathExtremum() *extremum {
	info := tb.e.info
	es, ok := tb.SingleStatement().(*ast.ExprStmt)
	if !ok {
		return nil
	}
	a, ok := ast.Unparen(es.X).(*ast.AssignExpr)
	if !ok || a.Op != "=" {
		return nil
	}
	acc := info.VariableOf(a.Left)
	mc, ok := ast.Unparen(a.Right).(*ast.MethodCall)
	if acc == nil || !ok || len(mc.Args) != 2 {
		return nil
	}
	if q, ok := mc.X.(*ast.Identifier); !ok || q.Value != "Math" {
		return nil
	}
	if mc.Name.Value != "max" && mc.Name.Value != "min" {
		return nil
	}
	var x ast.Expression
	switch {
	case info.IsReferenceTo(mc.Args[0], acc):
		x = mc.Args[1]
	case info.IsReferenceTo(mc.Args[1], acc):
		x = mc.Args[0]
	default:
		return nil
	}
	if info.IsUsedIn(acc, x) {
		return nil
	}
	return &extremum{acc: acc, max: mc.Name.Value == "max", x: x, pre: tb, prim: true}
}

// guardedExtremum matches an assignment guarded by the last filter.
func (tb *TerminalBlock) guardedExtremum() *extremum {
	info := tb.e.info
	f, ok := tb.LastOperation().(*FilterOp)
	if !ok || f.Negated {
		return nil
	}
	es, ok := tb.SingleStatement().(*ast.ExprStmt)
	if !ok {
		return nil
	}
	a, ok := ast.Unparen(es.X).(*ast.AssignExpr)
	if !ok || a.Op != "=" {
		return nil
	}
	acc := info.VariableOf(a.Left)
	if acc == nil || info.IsUsedIn(acc, a.Right) {
		return nil
	}
	pre := tb.WithoutLastOperation()
	cond := ast.Unparen(f.Cond)
	if analysis.IsPrimitive(info.VarType(acc)) {
		b, ok := cond.(*ast.BinaryExpr)
		if !ok {
			return nil
		}
		max, ok := relation(info, b, a.Right, acc)
		if !ok {
			return nil
		}
		return &extremum{acc: acc, max: max, x: a.Right, pre: pre, prim: true}
	}
	v := tb.Variable()
	if !info.IsReferenceTo(a.Right, v) || !analysis.IsNullLiteral(acc.Init()) {
		return nil
	}
	or, ok := cond.(*ast.BinaryExpr)
	if !ok || or.Op != "||" || !isNullCheck(info, or.Left, acc, "==") {
		return nil
	}
	b, ok := ast.Unparen(or.Right).(*ast.BinaryExpr)
	if !ok {
		return nil
	}
	m := &extremum{acc: acc, x: a.Right, pre: pre}
	if !tb.keyedRelation(b, v, m) {
		return nil
	}
	return m
}

// relation matches 'x > acc', 'acc < x' and their min forms.
func relation(info *analysis.Info, b *ast.BinaryExpr, x ast.Expression, acc *analysis.Variable) (max, ok bool) {
	var greater bool
	switch b.Op {
	case ">", ">=":
		greater = true
	case "<", "<=":
	default:
		return false, false
	}
	switch {
	case analysis.Equivalent(ast.Unparen(b.Left), ast.Unparen(x)) && info.IsReferenceTo(b.Right, acc):
		return greater, true
	case analysis.Equivalent(ast.Unparen(b.Right), ast.Unparen(x)) && info.IsReferenceTo(b.Left, acc):
		return !greater, true
	}
	return false, false
}

// keyedRelation matches 'key(v) > key(acc)' or
// 'key(v).compareTo(key(acc)) > 0' and fills in the direction and key.
func (tb *TerminalBlock) keyedRelation(b *ast.BinaryExpr, v *analysis.Variable, m *extremum) bool {
	info := tb.e.info
	if mc, ok := ast.Unparen(b.Left).(*ast.MethodCall); ok && mc.Name.Value == "compareTo" && len(mc.Args) == 1 && mc.X != nil {
		if !info.IsIntegerConstant(b.Right, 0) {
			return false
		}
		var greater bool
		switch b.Op {
		case ">":
			greater = true
		case "<":
		default:
			return false
		}
		l, r := mc.X, mc.Args[0]
		if info.IsUsedIn(m.acc, l) {
			l, r = r, l
			greater = !greater
		}
		if !tb.sameKey(l, v, r, m.acc) {
			return false
		}
		m.max = greater
		m.cmp = "comparing"
		if !info.IsReferenceTo(l, v) {
			m.key = l
		}
		return true
	}
	var greater bool
	switch b.Op {
	case ">":
		greater = true
	case "<":
	default:
		return false
	}
	l, r := ast.Unparen(b.Left), ast.Unparen(b.Right)
	if info.IsUsedIn(m.acc, l) {
		l, r = r, l
		greater = !greater
	}
	if !tb.sameKey(l, v, r, m.acc) {
		return false
	}
	m.max = greater
	if !info.IsReferenceTo(l, v) {
		m.key = l
		m.cmp = comparingName(info.TypeOf(l))
	}
	return true
}

// sameKey reports whether b is a with every reference to v read from acc
// instead.
func (tb *TerminalBlock) sameKey(a ast.Expression, v *analysis.Variable, b ast.Expression, acc *analysis.Variable) bool {
	info := tb.e.info
	if info.IsUsedIn(acc, a) || info.IsUsedIn(v, b) || !info.IsUsedIn(v, a) {
		return false
	}
	if analysis.HasSideEffects(a) && !isKeySelector(info, a, v) {
		return false
	}
	var edits []rewrite.Edit
	for _, id := range info.ReferencesIn(v, a) {
		edits = append(edits, rewrite.Edit{Start: id.Pos() - a.Pos(), End: id.End() - a.Pos(), Text: acc.Name})
	}
	text, err := rewrite.Apply(info.Text(a), edits)
	if err != nil {
		return false
	}
	return squash(text) == squash(info.Text(b))
}

// isKeySelector matches a zero-argument call on v, which is taken to be a
// getter.
func isKeySelector(info *analysis.Info, x ast.Expression, v *analysis.Variable) bool {
	mc, ok := ast.Unparen(x).(*ast.MethodCall)
	return ok && len(mc.Args) == 0 && len(mc.TypeArgs) == 0 && mc.X != nil && info.IsReferenceTo(mc.X, v)
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// comparingName picks the Comparator factory for keys of type t.
func comparingName(t *ast.TypeRef) string {
	switch analysis.NumericKind(t) {
	case "int", "short", "byte", "char":
		if analysis.IsPrimitive(t) {
			return "comparingInt"
		}
	case "long":
		if analysis.IsPrimitive(t) {
			return "comparingLong"
		}
	case "double", "float":
		if analysis.IsPrimitive(t) {
			return "comparingDouble"
		}
	}
	return "comparing"
}

// isNullCheck matches 'v == null' and 'null == v' for op "==", or the "!="
// forms.
func isNullCheck(info *analysis.Info, x ast.Expression, v *analysis.Variable, op string) bool {
	b, ok := ast.Unparen(x).(*ast.BinaryExpr)
	if !ok || b.Op != op {
		return false
	}
	return info.IsReferenceTo(b.Left, v) && analysis.IsNullLiteral(b.Right) ||
		info.IsReferenceTo(b.Right, v) && analysis.IsNullLiteral(b.Left)
}

func (tb *TerminalBlock) primitiveExtremum(m *extremum) *plan {
	info := tb.e.info
	t := info.VarType(m.acc)
	kind := ""
	switch {
	case analysis.IsPrimitiveNamed(t, "int"):
		kind = "IntStream"
	case analysis.IsPrimitiveNamed(t, "long"):
		kind = "LongStream"
	default:
		// NaN and signed zeros make double max differ from the loop
		return nil
	}
	if !addendFits(info.TypeOf(m.x), t) {
		return nil
	}
	sentinel := isSentinel(info, m.acc.Init(), kind, m.max)
	fuse := sentinel && m.pre.canFuse(m.acc)
	name := "min"
	if m.max {
		name = "max"
	}
	v := m.pre.Variable()
	return &plan{
		call: name + "()",
		warn: true,
		apply: func(w *writer) string {
			ch := m.pre.Generate(w)
			ch.mapTo(w, v, m.x, kind)
			if fuse {
				ch.call("."+name+"().orElse("+w.text(m.acc.Init())+")", "")
				return w.store(m.pre, m.acc, ch, "", "=", true)
			}
			ch.call("."+name+"().orElse("+m.acc.Name+")", "")
			prefix := m.acc.Name + " = Math." + name + "(" + m.acc.Name + ", "
			return w.replaceLoop(m.pre, ch, prefix, ");")
		},
	}
}

// isSentinel reports whether init is the identity of max or min over kind.
func isSentinel(info *analysis.Info, init ast.Expression, kind string, max bool) bool {
	c, ok := info.Constant(init)
	if !ok {
		return false
	}
	switch {
	case kind == "IntStream" && max:
		return c.Int == math.MinInt32
	case kind == "IntStream":
		return c.Int == math.MaxInt32
	case max:
		return c.Int == math.MinInt64
	}
	return c.Int == math.MaxInt64
}

func (tb *TerminalBlock) referenceExtremum(m *extremum) *plan {
	info := tb.e.info
	if !m.pre.canFuse(m.acc) {
		return nil
	}
	v := m.pre.Variable()
	if m.key != nil && analysis.HasSideEffects(m.key) && !isKeySelector(info, m.key, v) {
		return nil
	}
	if analysis.IsPrimitive(info.VarType(v)) {
		return nil
	}
	name := "min"
	if m.max {
		name = "max"
	}
	return &plan{
		call: name + "()",
		warn: true,
		apply: func(w *writer) string {
			ch := m.pre.Generate(w)
			cmp := w.class("java.util.Comparator") + ".naturalOrder()"
			if m.key != nil {
				cmp = w.class("java.util.Comparator") + "." + m.cmp + "(" + w.lambda(v, m.key) + ")"
			}
			ch.call("."+name+"("+cmp+").orElse(null)", "")
			return w.store(m.pre, m.acc, ch, "", "=", true)
		},
	}
}
