package engine

import (
	"github.com/sambeau/streamline/pkg/java/analysis"
	"github.com/sambeau/streamline/pkg/java/ast"
)

// tryForEach turns whatever is left into a forEach() call. Skipping an
// element with continue becomes a return from the lambda.
func tryForEach(tb *TerminalBlock, nonFinal []*analysis.Variable) *plan {
	if len(nonFinal) > 0 {
		return nil
	}
	info := tb.e.info
	repl := map[ast.Node]string{}
	for _, x := range info.ExitPoints(tb.stmts) {
		switch s := x.(type) {
		case *ast.ThrowStmt:
		case *ast.ContinueStmt:
			if s.Label != nil || !tb.isContinue(s) {
				return nil
			}
			repl[s] = "return;"
		default:
			return nil
		}
	}
	opts := tb.e.opts
	_, fromCollection := tb.Source().(*CollectionSource)
	v := tb.Variable()
	trivial := fromCollection && !tb.HasOperations() && tb.e.kindOf(v) == "Stream"
	p := &plan{
		call: "forEach()",
		warn: opts.SuggestForEach && (!trivial || opts.ReplaceTrivialForEach),
	}
	if !fromCollection {
		p.alternatives = []string{"forEachOrdered()"}
	}
	fold := tb.foldedCall(len(repl) == 0)
	p.apply = func(w *writer) string {
		loop := tb.StreamSourceStatement()
		base := w.indentOf(loop)
		var ch *chain
		if trivial && fold == nil {
			ch = newChain(w.t.Receiver(tb.Source().(*CollectionSource).Collection), "Stream")
		} else {
			ch = tb.Generate(w)
		}
		switch {
		case fold != nil:
			ch.mapTo(w, v, fold.Args[0], kindOfType(info.TypeOf(fold.Args[0])))
			ch.call(".forEach("+w.text(fold.X)+"::"+fold.Name.Value+")", "")
		case len(repl) == 0 && tb.SingleExpression() != nil:
			ch.call(".forEach("+w.lambda(v, tb.SingleExpression())+")", "")
		default:
			ch.call(".forEach("+w.blockLambda(v.Name, tb.stmts, repl, base)+")", "")
		}
		return w.replaceLoop(tb, ch, "", ";")
	}
	return p
}

// foldedCall returns the call of a body 'Q.m(f(x))' whose argument can
// become a map stage, or nil.
func (tb *TerminalBlock) foldedCall(ok bool) *ast.MethodCall {
	if !ok {
		return nil
	}
	info := tb.e.info
	mc := tb.SingleMethodCall()
	v := tb.Variable()
	if mc == nil || mc.X == nil || len(mc.Args) != 1 || len(mc.TypeArgs) > 0 {
		return nil
	}
	arg := ast.Unparen(mc.Args[0])
	if info.IsReferenceTo(arg, v) || !info.IsUsedIn(v, arg) || info.IsUsedIn(v, mc.X) {
		return nil
	}
	if _, lambda := arg.(*ast.LambdaExpr); lambda {
		return nil
	}
	if !tb.e.stableQualifier(mc.X) {
		return nil
	}
	return mc
}
