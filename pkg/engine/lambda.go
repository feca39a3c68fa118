package engine

import (
	"strings"

	"github.com/sambeau/streamline/pkg/java/analysis"
	"github.com/sambeau/streamline/pkg/java/ast"
	"github.com/sambeau/streamline/pkg/java/format"
)

// lambda renders 'v -> x', or a method reference when x is a plain call
// on v.
func (w *writer) lambda(v *analysis.Variable, x ast.Expression) string {
	if ref := w.methodRef(v, x); ref != "" {
		return ref
	}
	return v.Name + " -> " + w.text(ast.Unparen(x))
}

// lambda2 renders '(a, b) -> x'.
func (w *writer) lambda2(a, b string, x string) string {
	return "(" + a + ", " + b + ") -> " + x
}

// blockLambda renders 'v -> { stmts }' or 'v -> stmt-expr' for a single
// expression statement.
func (w *writer) blockLambda(v string, stmts []ast.Statement, repl map[ast.Node]string, base string) string {
	if len(stmts) == 1 {
		if es, ok := stmts[0].(*ast.ExprStmt); ok && len(repl) == 0 {
			return v + " -> " + w.text(es.X)
		}
	}
	inner := base + w.e.unit
	var body []string
	for _, s := range stmts {
		body = append(body, format.Reindent(w.textReplacing(s, repl), w.indentOf(s), inner))
	}
	return v + " -> " + block(body, base, w.e.unit)
}

// block renders statements as a braced block closing at base.
func block(stmts []string, base, unit string) string {
	trimmed := make([]string, len(stmts))
	for i, s := range stmts {
		trimmed[i] = strings.TrimSpace(s)
	}
	return format.Block(trimmed, base, unit)
}

// methodRef returns a method reference equivalent to 'v -> x', or "".
func (w *writer) methodRef(v *analysis.Variable, x ast.Expression) string {
	info := w.e.info
	switch n := ast.Unparen(x).(type) {
	case *ast.MethodCall:
		if n.X == nil || len(n.TypeArgs) > 0 {
			return ""
		}
		// v.m()
		if len(n.Args) == 0 && info.IsReferenceTo(n.X, v) {
			t := info.VarType(v)
			if t == nil || t.Name == "var" || analysis.IsPrimitive(t) || analysis.IsArray(t) || analysis.IsBoxed(t) {
				return ""
			}
			return erasure(t) + "::" + n.Name.Value
		}
		// Q.m(v)
		if len(n.Args) == 1 && info.IsReferenceTo(n.Args[0], v) && !info.IsUsedIn(v, n.X) && w.e.stableQualifier(n.X) {
			if cls, ok := n.X.(*ast.Identifier); ok && analysis.IsBoxed(analysis.Named(cls.Value)) {
				switch n.Name.Value {
				case "toString", "hashCode":
					// Integer::toString is ambiguous
					return ""
				}
			}
			return w.text(n.X) + "::" + n.Name.Value
		}
	case *ast.NewExpr:
		if n.Body == nil && n.Outer == nil && len(n.Args) == 1 && info.IsReferenceTo(n.Args[0], v) && !n.Type.Diamond {
			return n.Type.String() + "::new"
		}
	}
	return ""
}

// stableQualifier reports whether evaluating q once, when the reference is
// created, gives the same receiver as evaluating it for every element.
func (e *Engine) stableQualifier(q ast.Expression) bool {
	info := e.info
	switch n := ast.Unparen(q).(type) {
	case *ast.ThisExpr:
		return true
	case *ast.Identifier:
		v := info.Uses[n]
		if v == nil {
			return analysis.IsClassName(n.Value)
		}
		return v.Kind != analysis.FieldVar && info.IsEffectivelyFinal(v)
	case *ast.FieldAccess:
		if id, ok := n.X.(*ast.Identifier); ok && id.Value == "System" {
			return n.Name.Value == "out" || n.Name.Value == "err"
		}
		if v := info.Uses[n.Name]; v != nil {
			return v.Final && v.Kind == analysis.FieldVar
		}
	}
	return false
}

// erasure writes t without type arguments.
func erasure(t *ast.TypeRef) string {
	c := *t
	c.Args = nil
	c.Diamond = false
	return c.String()
}

// typeText writes t for use in generated code, boxing primitives when box
// is set.
func typeText(t *ast.TypeRef, box bool) string {
	if box {
		t = analysis.Boxed(t)
	}
	return t.String()
}
