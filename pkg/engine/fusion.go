package engine

import (
	"strings"

	"github.com/sambeau/streamline/pkg/java/analysis"
	"github.com/sambeau/streamline/pkg/java/ast"
)

// canFuse reports whether the loop may take over the initialiser of v.
func (tb *TerminalBlock) canFuse(v *analysis.Variable) bool {
	switch tb.e.info.InitializerUsageStatus(v, tb.mainLoop) {
	case analysis.DeclaredJustBefore, analysis.AtWantedPlaceOnly:
		return true
	}
	return false
}

// store writes the pipeline ch into v and returns the statement that now
// holds it. With fuse set and a usable initialiser, the pipeline becomes the
// initialiser and the loop goes away; otherwise the loop is replaced by
// 'v op pipeline;'. lead is written in front of the pipeline, as in a cast.
func (w *writer) store(tb *TerminalBlock, v *analysis.Variable, ch *chain, lead, op string, fuse bool) string {
	info := w.e.info
	loop := tb.StreamSourceStatement()
	if fuse && op == "=" {
		switch info.InitializerUsageStatus(v, tb.mainLoop) {
		case analysis.DeclaredJustBefore:
			init := v.Init()
			text := lead + w.layout(ch, init.Pos(), lead)
			w.t.ReplaceNode(w.s, init, text)
			w.t.DeleteStatement(w.s, loop)
			if d, ok := v.Decl.(*ast.LocalVarDecl); ok && len(d.Vars) == 1 {
				return declPrefix(info, d) + " = " + text + ";"
			}
			return v.Name + " = " + text
		case analysis.AtWantedPlaceOnly:
			d := v.Decl.(*ast.LocalVarDecl)
			if len(d.Vars) == 1 && info.Parent(d) == info.Parent(loop) {
				prefix := declPrefix(info, d) + " = " + lead
				text := prefix + w.layout(ch, loop.Pos(), prefix) + ";"
				w.t.DeleteStatement(w.s, d)
				w.t.ReplaceNode(w.s, loop, text)
				return text
			}
			w.s.Delete(v.Declarator.Name.End(), v.Declarator.End())
		}
	}
	prefix := v.Name + " " + op + " " + lead
	text := prefix + w.layout(ch, loop.Pos(), prefix) + ";"
	w.t.ReplaceNode(w.s, loop, text)
	return text
}

// declPrefix writes a single-variable declaration up to its initialiser.
func declPrefix(info *analysis.Info, d *ast.LocalVarDecl) string {
	vd := d.Vars[0]
	return d.Modifiers.String() + info.Text(d.Type) + " " + vd.Name.Value + strings.Repeat("[]", vd.Dims)
}

// replaceLoop replaces the loop with a statement built around ch.
func (w *writer) replaceLoop(tb *TerminalBlock, ch *chain, before, after string) string {
	loop := tb.StreamSourceStatement()
	text := before + w.layout(ch, loop.Pos(), before) + after
	w.t.ReplaceNode(w.s, loop, text)
	return text
}

// isLocalAccumulator reports whether v is a local of the loop's method
// declared before the loop.
func (tb *TerminalBlock) isLocalAccumulator(v *analysis.Variable) bool {
	info := tb.e.info
	return v != nil && v.Kind == analysis.LocalVar && v.Declarator != nil &&
		!ast.Contains(tb.mainLoop, v.Decl) && v.Owner == info.Owner(tb.mainLoop)
}

// captures reports whether any of nodes reads a variable of vars other than
// except.
func (tb *TerminalBlock) captures(vars []*analysis.Variable, except *analysis.Variable, nodes ...ast.Node) bool {
	for _, v := range vars {
		if v != except && tb.e.info.IsUsedIn(v, nodes...) {
			return true
		}
	}
	return false
}

func exprNodes(xs ...ast.Expression) []ast.Node {
	out := make([]ast.Node, 0, len(xs))
	for _, x := range xs {
		if x != nil {
			out = append(out, x)
		}
	}
	return out
}

func stmtNodes(ss []ast.Statement) []ast.Node {
	out := make([]ast.Node, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
