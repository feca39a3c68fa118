package engine

import (
	"github.com/sambeau/streamline/pkg/java/analysis"
	"github.com/sambeau/streamline/pkg/java/ast"
)

// matchOf splits the last filter off tb. The returned condition has an
// explicit leading '!' folded into neg.
func (tb *TerminalBlock) matchOf() (pre *TerminalBlock, f *FilterOp, cond ast.Expression, neg bool) {
	f, ok := tb.LastOperation().(*FilterOp)
	if !ok {
		return nil, nil, nil, false
	}
	cond, neg = ast.Unparen(f.Cond), f.Negated
	if u, ok := cond.(*ast.UnaryExpr); ok && u.Op == "!" {
		cond, neg = ast.Unparen(u.X), !neg
	}
	return tb.WithoutLastOperation(), f, cond, neg
}

// matchCall renders the short-circuiting match for the last filter: anyMatch
// when the matching element yields want, otherwise allMatch or noneMatch.
func (w *writer) matchCall(f *FilterOp, cond ast.Expression, neg, want bool) string {
	switch {
	case want:
		return ".anyMatch(" + w.predicate(f.v, f.Cond, f.Negated) + ")"
	case neg:
		return ".allMatch(" + w.lambda(f.v, cond) + ")"
	}
	return ".noneMatch(" + w.lambda(f.v, cond) + ")"
}

func matchName(neg, want bool) string {
	switch {
	case want:
		return "anyMatch()"
	case neg:
		return "allMatch()"
	}
	return "noneMatch()"
}

// tryReturnMatch matches a loop that returns from inside:
//
//	for (String s : list) if (s.isEmpty()) return true;
//	return false;
func tryReturnMatch(tb *TerminalBlock, nonFinal []*analysis.Variable) *plan {
	info := tb.e.info
	r, ok := tb.SingleStatement().(*ast.ReturnStmt)
	if !ok || r.Result == nil {
		return nil
	}
	loop := tb.StreamSourceStatement()
	next := info.NextReturnStatement(loop)
	adjacent := next != nil && info.NextStatement(loop) == ast.Statement(next)
	v := tb.Variable()

	if info.IsUsedIn(v, r.Result) {
		// return of the element, or of something computed from it
		if !adjacent || next.Result == nil || !analysis.IsSafelyRecomputable(next.Result) {
			return nil
		}
		if tb.captures(nonFinal, nil, r.Result) {
			return nil
		}
		kind := tb.e.kindOf(v)
		if !info.IsReferenceTo(r.Result, v) {
			t := info.TypeOf(r.Result)
			if t == nil {
				return nil
			}
			kind = kindOfType(t)
		}
		return &plan{
			call: "findFirst()",
			warn: true,
			apply: func(w *writer) string {
				ch := tb.Generate(w)
				ch.mapTo(w, v, r.Result, kind)
				ch.call(".findFirst().orElse("+w.text(next.Result)+")", "")
				w.t.DeleteStatement(w.s, next)
				return w.replaceLoop(tb, ch, "return ", ";")
			},
		}
	}

	pre, f, cond, neg := tb.matchOf()
	if f == nil {
		return nil
	}
	b1, lit1 := analysis.IsBooleanLiteral(r.Result)
	if lit1 && next != nil {
		if b2, lit2 := analysis.IsBooleanLiteral(next.Result); lit2 && b1 != b2 && adjacent {
			return &plan{
				call: matchName(neg, b1),
				warn: true,
				apply: func(w *writer) string {
					ch := pre.Generate(w)
					ch.call(w.matchCall(f, cond, neg, b1), "")
					w.t.DeleteStatement(w.s, next)
					return w.replaceLoop(tb, ch, "return ", ";")
				},
			}
		}
	}
	return pre.conditional(f, r)
}

// conditional renders 'if (pipeline.anyMatch(p)) { stmt }' for a body that
// ignores the element.
func (tb *TerminalBlock) conditional(f *FilterOp, stmt ast.Statement) *plan {
	return &plan{
		call: "anyMatch()",
		warn: true,
		apply: func(w *writer) string {
			base := w.indentOf(tb.StreamSourceStatement())
			ch := tb.Generate(w)
			ch.call(".anyMatch("+w.predicate(f.v, f.Cond, f.Negated)+")", "")
			return w.replaceLoop(tb, ch, "if (", ") "+block([]string{w.text(stmt)}, base, w.e.unit))
		},
	}
}

// tryBreakMatch matches a loop that stores a result and leaves:
//
//	for (String s : list) {
//	    if (s.isEmpty()) {
//	        found = s;
//	        break;
//	    }
//	}
func tryBreakMatch(tb *TerminalBlock, nonFinal []*analysis.Variable) *plan {
	info := tb.e.info
	if len(tb.stmts) != 2 || !tb.breaksMain(tb.stmts[1]) {
		return nil
	}
	stmt := tb.stmts[0]
	if len(info.ExitPoints([]ast.Statement{stmt})) > 0 {
		return nil
	}
	v := tb.Variable()
	if len(nonFinal) > 1 {
		return nil
	}
	if !info.IsUsedIn(v, stmt) {
		pre, f, _, _ := tb.matchOf()
		if f == nil {
			return nil
		}
		if p := tb.foundFlag(pre, f, stmt, nonFinal); p != nil {
			return p
		}
		return pre.conditional(f, stmt)
	}

	es, ok := stmt.(*ast.ExprStmt)
	if !ok {
		return nil
	}
	a, ok := ast.Unparen(es.X).(*ast.AssignExpr)
	if !ok || a.Op != "=" {
		return nil
	}
	x := info.VariableOf(a.Left)
	if !tb.isLocalAccumulator(x) || info.IsUsedIn(x, a.Right) {
		return nil
	}
	if len(nonFinal) == 1 && nonFinal[0] != x {
		return nil
	}
	kind := tb.e.kindOf(x)
	init := x.Init()
	fuse := init != nil && analysis.IsSafelyRecomputable(init) && tb.canFuse(x)
	return &plan{
		call: "findFirst()",
		warn: true,
		apply: func(w *writer) string {
			ch := tb.Generate(w)
			ch.mapTo(w, v, a.Right, kind)
			if fuse {
				ch.call(".findFirst().orElse("+w.text(init)+")", "")
				return w.store(tb, x, ch, "", "=", true)
			}
			ch.call(".findFirst().orElse("+x.Name+")", "")
			return w.store(tb, x, ch, "", "=", false)
		},
	}
}

// foundFlag matches 'found = true; break;' with found starting false, which
// becomes 'boolean found = pipeline.anyMatch(p);'.
func (tb *TerminalBlock) foundFlag(pre *TerminalBlock, f *FilterOp, stmt ast.Statement, nonFinal []*analysis.Variable) *plan {
	info := tb.e.info
	es, ok := stmt.(*ast.ExprStmt)
	if !ok {
		return nil
	}
	a, ok := ast.Unparen(es.X).(*ast.AssignExpr)
	if !ok || a.Op != "=" {
		return nil
	}
	x := info.VariableOf(a.Left)
	if !tb.isLocalAccumulator(x) || !analysis.IsPrimitiveNamed(info.VarType(x), "boolean") {
		return nil
	}
	if len(nonFinal) == 1 && nonFinal[0] != x {
		return nil
	}
	set, ok := analysis.IsBooleanLiteral(a.Right)
	if !ok {
		return nil
	}
	was, ok := analysis.IsBooleanLiteral(x.Init())
	if !ok || was == set || !tb.canFuse(x) {
		return nil
	}
	return &plan{
		call: "anyMatch()",
		warn: true,
		apply: func(w *writer) string {
			ch := pre.Generate(w)
			ch.call(".anyMatch("+w.predicate(f.v, f.Cond, f.Negated)+")", "")
			lead := ""
			if !set {
				lead = "!"
			}
			return w.store(pre, x, ch, lead, "=", true)
		},
	}
}

// breaksMain reports whether s leaves the loop being migrated.
func (tb *TerminalBlock) breaksMain(s ast.Statement) bool {
	b, ok := s.(*ast.BreakStmt)
	return ok && unlabel(tb.e.info.BreakTarget(b)) == tb.mainLoop
}
