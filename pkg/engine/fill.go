package engine

import (
	"github.com/sambeau/streamline/pkg/java/analysis"
	"github.com/sambeau/streamline/pkg/java/ast"
)

// tryFill matches an array filled by index right after its creation:
//
//	String[] arr = new String[n];
//	for (int i = 0; i < n; i++) arr[i] = f(i);
func tryFill(tb *TerminalBlock, nonFinal []*analysis.Variable) *plan {
	info := tb.e.info
	src, ok := tb.Source().(*CountingSource)
	if !ok || tb.HasOperations() || src.Inclusive || !info.IsIntegerConstant(src.Init, 0) {
		return nil
	}
	v := src.Variable()
	if !analysis.IsPrimitiveNamed(info.VarType(v), "int") {
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
	ix, ok := ast.Unparen(a.Left).(*ast.IndexExpr)
	if !ok || !info.IsReferenceTo(ix.Index, v) {
		return nil
	}
	arr := info.VariableOf(ix.X)
	if !tb.isLocalAccumulator(arr) || !tb.canFuse(arr) {
		return nil
	}
	na, ok := ast.Unparen(arr.Init()).(*ast.NewArrayExpr)
	if !ok || na.Init != nil || len(na.Dims) != 1 {
		return nil
	}
	if !fillBound(info, src.Bound, arr, na.Dims[0]) {
		return nil
	}
	comp := analysis.ComponentType(info.VarType(arr))
	if comp == nil || len(comp.Args) > 0 {
		return nil
	}
	kind := analysis.StreamClass(comp)
	if kind == "" {
		return nil
	}
	if info.IsUsedIn(arr, a.Right) || tb.captures(nonFinal, arr, a.Right) {
		return nil
	}
	return &plan{
		call: "toArray()",
		warn: true,
		apply: func(w *writer) string {
			ch := tb.Generate(w)
			ch.mapTo(w, v, a.Right, kind)
			if kind == "Stream" {
				ch.call(".toArray("+erasure(comp)+"[]::new)", "")
			} else {
				ch.call(".toArray()", "")
			}
			return w.store(tb, arr, ch, "", "=", true)
		},
	}
}

// fillBound reports whether the loop bound is the length of the new array.
func fillBound(info *analysis.Info, bound ast.Expression, arr *analysis.Variable, dim ast.Expression) bool {
	if analysis.Equivalent(ast.Unparen(bound), ast.Unparen(dim)) {
		return !analysis.HasSideEffects(dim)
	}
	fa, ok := ast.Unparen(bound).(*ast.FieldAccess)
	return ok && fa.Name.Value == "length" && info.IsReferenceTo(fa.X, arr)
}
