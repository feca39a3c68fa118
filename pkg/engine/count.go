package engine

import (
	"github.com/sambeau/streamline/pkg/java/analysis"
	"github.com/sambeau/streamline/pkg/java/ast"
)

// tryCount matches a lone counter increment:
//
//	for (String s : list) if (s.isEmpty()) count++;
func tryCount(tb *TerminalBlock, nonFinal []*analysis.Variable) *plan {
	info := tb.e.info
	s := tb.SingleStatement()
	if s == nil {
		return nil
	}
	c := incrementedVariable(info, s)
	if !tb.isLocalAccumulator(c) {
		return nil
	}
	t := info.VarType(c)
	if !analysis.IsPrimitiveNamed(t, "int") && !analysis.IsPrimitiveNamed(t, "long") {
		return nil
	}
	zero := info.IsIntegerConstant(c.Init(), 0)
	fuse := zero && tb.canFuse(c)
	if x := tb.CountExpression(); x != nil {
		// the limit already reads the counter, which must start from zero
		if !info.IsReferenceTo(x, c) || !fuse {
			return nil
		}
	}
	return &plan{
		call: "count()",
		warn: true,
		apply: func(w *writer) string {
			ch := tb.Generate(w)
			ch.call(".count()", "")
			if fuse {
				lead := ""
				if analysis.IsPrimitiveNamed(t, "int") {
					lead = "(int) "
				}
				return w.store(tb, c, ch, lead, "=", true)
			}
			return w.store(tb, c, ch, "", "+=", false)
		},
	}
}

// incrementedVariable returns v for '++v', 'v++', 'v += 1' and 'v = v + 1'.
func incrementedVariable(info *analysis.Info, s ast.Statement) *analysis.Variable {
	es, ok := s.(*ast.ExprStmt)
	if !ok {
		return nil
	}
	var target ast.Expression
	switch x := ast.Unparen(es.X).(type) {
	case *ast.PostfixExpr:
		target = x.X
	case *ast.UnaryExpr:
		target = x.X
	case *ast.AssignExpr:
		target = x.Left
	default:
		return nil
	}
	v := info.VariableOf(target)
	if v == nil || !isIncrement(info, s, v, 1) {
		return nil
	}
	return v
}
