package engine

import (
	"github.com/sambeau/streamline/pkg/java/analysis"
	"github.com/sambeau/streamline/pkg/java/ast"
)

// accumulation is 'acc op= x' or 'acc = acc op x'.
type accumulation struct {
	acc *analysis.Variable
	op  string // binary operator, e.g. "+"
	x   ast.Expression
}

// accumulationOf matches an accumulating statement for any of ops.
func accumulationOf(info *analysis.Info, s ast.Statement, ops ...string) *accumulation {
	es, ok := s.(*ast.ExprStmt)
	if !ok {
		return nil
	}
	a, ok := ast.Unparen(es.X).(*ast.AssignExpr)
	if !ok {
		return nil
	}
	acc := info.VariableOf(a.Left)
	if acc == nil {
		return nil
	}
	for _, op := range ops {
		if a.Op == op+"=" {
			return &accumulation{acc: acc, op: op, x: a.Right}
		}
		if a.Op != "=" {
			continue
		}
		b, ok := ast.Unparen(a.Right).(*ast.BinaryExpr)
		if !ok || b.Op != op {
			continue
		}
		switch {
		case info.IsReferenceTo(b.Left, acc):
			return &accumulation{acc: acc, op: op, x: b.Right}
		case info.IsReferenceTo(b.Right, acc) && op != "-":
			return &accumulation{acc: acc, op: op, x: b.Left}
		}
	}
	return nil
}

// trySum matches 'sum += f(x)' into a primitive int, long or double.
func trySum(tb *TerminalBlock, nonFinal []*analysis.Variable) *plan {
	info := tb.e.info
	s := tb.SingleStatement()
	if s == nil {
		return nil
	}
	a := accumulationOf(info, s, "+")
	if a == nil || !tb.isLocalAccumulator(a.acc) {
		return nil
	}
	t := info.VarType(a.acc)
	kind := ""
	switch {
	case analysis.IsPrimitiveNamed(t, "int"):
		kind = "IntStream"
	case analysis.IsPrimitiveNamed(t, "long"):
		kind = "LongStream"
	case analysis.IsPrimitiveNamed(t, "double"):
		kind = "DoubleStream"
	default:
		return nil
	}
	if !addendFits(info.TypeOf(a.x), t) {
		return nil
	}
	if info.IsUsedIn(a.acc, a.x) || tb.captures(nonFinal, a.acc, a.x) {
		return nil
	}
	init := a.acc.Init()
	zero := false
	if c, ok := info.Constant(init); ok && c.IsZero() {
		zero = true
	}
	fuse := zero && tb.canFuse(a.acc)
	v := tb.Variable()
	return &plan{
		call: "sum()",
		warn: true,
		apply: func(w *writer) string {
			ch := tb.Generate(w)
			ch.mapTo(w, v, a.x, kind)
			ch.call(".sum()", "")
			if fuse {
				return w.store(tb, a.acc, ch, "", "=", true)
			}
			return w.store(tb, a.acc, ch, "", "+=", false)
		},
	}
}

// addendFits reports whether a value of type x widens to acc. Unknown types
// are accepted.
func addendFits(x, acc *ast.TypeRef) bool {
	if x == nil {
		return true
	}
	k := analysis.NumericKind(x)
	if k == "" {
		return false
	}
	switch acc.Name {
	case "int":
		return k == "int" || k == "short" || k == "byte" || k == "char"
	case "long":
		return k != "float" && k != "double"
	}
	return true
}

// reduction is an associative operator with its identity.
type reduction struct {
	op       string
	identity string
	boolean  bool
	lambdaOp string
}

var reductions = []reduction{
	{op: "*", identity: "1", lambdaOp: "*"},
	{op: "&", identity: "true", boolean: true, lambdaOp: "&&"},
	{op: "|", identity: "false", boolean: true, lambdaOp: "||"},
	{op: "^", identity: "false", boolean: true, lambdaOp: "^"},
}

// tryReduce matches products and boolean and, or and xor accumulations.
func tryReduce(tb *TerminalBlock, nonFinal []*analysis.Variable) *plan {
	info := tb.e.info
	s := tb.SingleStatement()
	if s == nil {
		return nil
	}
	for _, r := range reductions {
		a := accumulationOf(info, s, r.op)
		if a == nil || !tb.isLocalAccumulator(a.acc) {
			continue
		}
		t := info.VarType(a.acc)
		kind := "Stream"
		if r.boolean {
			if !analysis.IsPrimitiveNamed(t, "boolean") {
				continue
			}
		} else {
			switch {
			case analysis.IsPrimitiveNamed(t, "int"):
				kind = "IntStream"
			case analysis.IsPrimitiveNamed(t, "long"):
				kind = "LongStream"
			case analysis.IsPrimitiveNamed(t, "double"):
				kind = "DoubleStream"
			default:
				continue
			}
			if !addendFits(info.TypeOf(a.x), t) {
				continue
			}
		}
		if info.IsUsedIn(a.acc, a.x) || tb.captures(nonFinal, a.acc, a.x) {
			return nil
		}
		fuse := isIdentity(info, a.acc.Init(), r) && tb.canFuse(a.acc)
		v := tb.Variable()
		r := r
		return &plan{
			call: "reduce()",
			warn: true,
			apply: func(w *writer) string {
				ch := tb.Generate(w)
				ch.mapTo(w, v, a.x, kind)
				x := w.freshName(tb.mainLoop, "a")
				y := w.freshName(tb.mainLoop, "b")
				ch.call(".reduce("+r.identity+", "+w.lambda2(x, y, x+" "+r.lambdaOp+" "+y)+")", "")
				if fuse {
					return w.store(tb, a.acc, ch, "", "=", true)
				}
				return w.store(tb, a.acc, ch, "", r.op+"=", false)
			},
		}
	}
	return nil
}

func isIdentity(info *analysis.Info, init ast.Expression, r reduction) bool {
	c, ok := info.Constant(init)
	if !ok {
		return false
	}
	if r.boolean {
		return c.Kind == "boolean" && c.Bool == (r.identity == "true")
	}
	switch c.Kind {
	case "int", "long":
		return c.Int == 1
	case "double", "float":
		return c.Float == 1
	}
	return false
}
