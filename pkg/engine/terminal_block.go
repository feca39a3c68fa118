package engine

import (
	"github.com/sambeau/streamline/pkg/java/analysis"
	"github.com/sambeau/streamline/pkg/java/ast"
)

// TerminalBlock pairs the pipeline recognised so far with the loop body
// statements that still have to be explained by a terminal. It is never
// modified; every step returns a new block.
type TerminalBlock struct {
	e        *Engine
	ops      []Operation // ops[0] is the source
	stmts    []ast.Statement
	mainLoop ast.Statement // the loop being migrated
	loop     ast.Node      // the loop a continue must target to skip an element
}

func newTerminalBlock(e *Engine, src Operation, loop ast.Statement) *TerminalBlock {
	return &TerminalBlock{
		e:        e,
		ops:      []Operation{src},
		stmts:    flatten(ast.LoopBody(loop)),
		mainLoop: loop,
		loop:     loop,
	}
}

// flatten returns the statements of a body, looking through lone blocks and
// labels.
func flatten(s ast.Statement) []ast.Statement {
	for {
		switch b := s.(type) {
		case nil:
			return nil
		case *ast.BlockStmt:
			if len(b.Stmts) != 1 {
				return b.Stmts
			}
			s = b.Stmts[0]
		case *ast.LabeledStmt:
			s = b.Stmt
		case *ast.EmptyStmt:
			return nil
		default:
			return []ast.Statement{s}
		}
	}
}

func (tb *TerminalBlock) with(op Operation, stmts []ast.Statement) *TerminalBlock {
	c := *tb
	c.ops = append(append([]Operation{}, tb.ops...), op)
	c.stmts = stmts
	return &c
}

// FromStatements returns a block with the same pipeline and other statements.
func (tb *TerminalBlock) FromStatements(stmts ...ast.Statement) *TerminalBlock {
	c := *tb
	c.stmts = stmts
	return &c
}

// withSource returns a block whose pipeline starts from src instead.
func (tb *TerminalBlock) withSource(src Operation) *TerminalBlock {
	c := *tb
	c.ops = append([]Operation{src}, tb.ops[1:]...)
	return &c
}

// WithoutLastOperation drops the last stage. A dropped map stage gives its
// declaration back to the statements.
func (tb *TerminalBlock) WithoutLastOperation() *TerminalBlock {
	c := *tb
	c.ops = tb.ops[:len(tb.ops)-1]
	if m, ok := tb.LastOperation().(*MapOp); ok {
		c.stmts = append([]ast.Statement{m.Stmt}, tb.stmts...)
	}
	return &c
}

// Statements returns the unexplained statements.
func (tb *TerminalBlock) Statements() []ast.Statement { return tb.stmts }

// Source returns the first stage.
func (tb *TerminalBlock) Source() Operation { return tb.ops[0] }

// Operations returns the stages after the source.
func (tb *TerminalBlock) Operations() []Operation { return tb.ops[1:] }

// LastOperation returns the last stage, which is the source when nothing
// else was recognised.
func (tb *TerminalBlock) LastOperation() Operation { return tb.ops[len(tb.ops)-1] }

// HasOperations reports whether any stage follows the source.
func (tb *TerminalBlock) HasOperations() bool { return len(tb.ops) > 1 }

// IsEmpty reports whether no statements remain.
func (tb *TerminalBlock) IsEmpty() bool { return len(tb.stmts) == 0 }

// Variable returns the element variable the statements see.
func (tb *TerminalBlock) Variable() *analysis.Variable { return tb.LastOperation().Variable() }

// SingleStatement returns the only remaining statement, or nil.
func (tb *TerminalBlock) SingleStatement() ast.Statement {
	if len(tb.stmts) != 1 {
		return nil
	}
	return tb.stmts[0]
}

// SingleExpression returns the expression of a lone expression statement.
func (tb *TerminalBlock) SingleExpression() ast.Expression {
	if es, ok := tb.SingleStatement().(*ast.ExprStmt); ok {
		return ast.Unparen(es.X)
	}
	return nil
}

// SingleMethodCall returns the call of a lone call statement.
func (tb *TerminalBlock) SingleMethodCall() *ast.MethodCall {
	mc, _ := tb.SingleExpression().(*ast.MethodCall)
	return mc
}

// IntermediateExpressions returns the expressions read by the stages after
// the source.
func (tb *TerminalBlock) IntermediateExpressions() []ast.Expression {
	var out []ast.Expression
	for _, op := range tb.ops[1:] {
		out = append(out, op.Expressions()...)
	}
	return out
}

// IntermediateAndSourceExpressions includes the source's expressions.
func (tb *TerminalBlock) IntermediateAndSourceExpressions() []ast.Expression {
	return append(append([]ast.Expression{}, tb.ops[0].Expressions()...), tb.IntermediateExpressions()...)
}

// CountExpression returns the counted quantity a limit left for the
// terminal to account for, or nil.
func (tb *TerminalBlock) CountExpression() ast.Expression {
	for _, op := range tb.ops {
		if l, ok := op.(*LimitOp); ok && l.Count != nil {
			return l.Count
		}
	}
	return nil
}

// IsReferencedInOperations reports whether any stage reads v.
func (tb *TerminalBlock) IsReferencedInOperations(v *analysis.Variable) bool {
	for _, x := range tb.IntermediateAndSourceExpressions() {
		if tb.e.info.IsUsedIn(v, x) {
			return true
		}
	}
	return false
}

// DependsOn reports whether the stages or the statements read v.
func (tb *TerminalBlock) DependsOn(v *analysis.Variable) bool {
	if tb.IsReferencedInOperations(v) {
		return true
	}
	for _, s := range tb.stmts {
		if tb.e.info.IsUsedIn(v, s) {
			return true
		}
	}
	return false
}

// StreamSourceStatement returns the statement the pipeline replaces: the
// loop, or the label around it.
func (tb *TerminalBlock) StreamSourceStatement() ast.Statement {
	var s ast.Statement = tb.mainLoop
	for {
		ls, ok := tb.e.info.Parent(s).(*ast.LabeledStmt)
		if !ok {
			return s
		}
		s = ls
	}
}

// Generate renders the source and every stage.
func (tb *TerminalBlock) Generate(w *writer) *chain {
	ch := newChain("", "Stream")
	for _, op := range tb.ops {
		op.render(w, ch)
	}
	return ch
}

func (tb *TerminalBlock) isWriteAllowed(v *analysis.Variable, id *ast.Identifier) bool {
	for _, op := range tb.ops {
		if op.IsWriteAllowed(v, id) {
			return true
		}
	}
	return false
}

func (tb *TerminalBlock) cleanUp(w *writer) {
	for _, op := range tb.ops {
		op.cleanUp(w)
	}
}

// isContinue reports whether s skips to the next element.
func (tb *TerminalBlock) isContinue(s ast.Statement) bool {
	c, ok := s.(*ast.ContinueStmt)
	return ok && tb.e.info.ContinueTarget(c) == tb.loop
}

// isBreak reports whether s leaves the current loop.
func (tb *TerminalBlock) isBreak(s ast.Statement) bool {
	b, ok := s.(*ast.BreakStmt)
	return ok && unlabel(tb.e.info.BreakTarget(b)) == tb.loop
}

func unlabel(n ast.Node) ast.Node {
	for {
		ls, ok := n.(*ast.LabeledStmt)
		if !ok {
			return n
		}
		n = ls.Stmt
	}
}

// single returns the only statement of a branch, looking through blocks.
func single(s ast.Statement) ast.Statement {
	stmts := flatten(s)
	if len(stmts) != 1 {
		return nil
	}
	return stmts[0]
}

// ---------------------------------------------------------------------------
// Extraction

// extract peels stages off the statements until none applies.
func (tb *TerminalBlock) extract() *TerminalBlock {
	for {
		next := tb.step()
		if next == nil {
			return tb.withDistinct()
		}
		tb = next
	}
}

func (tb *TerminalBlock) step() *TerminalBlock {
	for _, try := range []func() *TerminalBlock{
		tb.extractFilter,
		tb.extractFlatMap,
		tb.extractTakeWhile,
		tb.extractMap,
		tb.extractLimit,
	} {
		if next := try(); next != nil {
			return next
		}
	}
	return nil
}

// extractFilter matches 'if (c) continue; rest', the same with an else
// branch, which then runs ahead of rest, and a lone 'if (c) { rest }'.
func (tb *TerminalBlock) extractFilter() *TerminalBlock {
	if len(tb.stmts) == 0 {
		return nil
	}
	is, ok := tb.stmts[0].(*ast.IfStmt)
	if !ok {
		return nil
	}
	v := tb.Variable()
	if tb.isContinue(single(is.Then)) {
		rest := append(append([]ast.Statement{}, flatten(is.Else)...), tb.stmts[1:]...)
		return tb.with(&FilterOp{intermediate: intermediate{v}, Cond: is.Cond, Negated: true}, rest)
	}
	if is.Else == nil && len(tb.stmts) == 1 {
		return tb.with(&FilterOp{intermediate: intermediate{v}, Cond: is.Cond}, flatten(is.Then))
	}
	return nil
}

// extractTakeWhile matches 'if (c) break; rest'.
func (tb *TerminalBlock) extractTakeWhile() *TerminalBlock {
	if tb.e.opts.LanguageLevel < 9 || len(tb.stmts) < 2 {
		return nil
	}
	is, ok := tb.stmts[0].(*ast.IfStmt)
	if !ok || is.Else != nil || !tb.isBreak(single(is.Then)) || analysis.HasSideEffects(is.Cond) {
		return nil
	}
	return tb.with(&TakeWhileOp{intermediate: intermediate{tb.Variable()}, Cond: is.Cond}, tb.stmts[1:])
}

// extractMap matches 'T y = f(x); rest' where rest no longer reads x, and
// 'x = f(x); rest' when every stage lets x be reassigned.
func (tb *TerminalBlock) extractMap() *TerminalBlock {
	info := tb.e.info
	if len(tb.stmts) < 2 {
		return nil
	}
	if es, ok := tb.stmts[0].(*ast.ExprStmt); ok {
		return tb.extractReassign(es)
	}
	d, ok := tb.stmts[0].(*ast.LocalVarDecl)
	if !ok || len(d.Vars) != 1 || d.Vars[0].Init == nil || d.Vars[0].Dims > 0 {
		return nil
	}
	if _, ok := d.Vars[0].Init.(*ast.ArrayInit); ok {
		return nil
	}
	to := info.DeclaredVariable(d.Vars[0])
	t := info.VarType(to)
	if to == nil || t == nil || analysis.IsPrimitive(t) && !analysis.IsSupportedStreamElement(t) {
		return nil
	}
	x := tb.Variable()
	rest := tb.stmts[1:]
	for _, s := range rest {
		if info.IsUsedIn(x, s) || info.IsWrittenIn(to, s) {
			return nil
		}
	}
	return tb.with(&MapOp{intermediate: intermediate{x}, To: to, Expr: d.Vars[0].Init, Stmt: d}, rest)
}

func (tb *TerminalBlock) extractReassign(es *ast.ExprStmt) *TerminalBlock {
	info := tb.e.info
	x := tb.Variable()
	ae, ok := ast.Unparen(es.X).(*ast.AssignExpr)
	if !ok || ae.Op != "=" || !info.IsReferenceTo(ae.Left, x) || info.IsWrittenIn(x, ae.Right) {
		return nil
	}
	for _, op := range tb.ops {
		if !op.CanReassignVariable(x) {
			return nil
		}
	}
	return tb.with(&MapOp{intermediate: intermediate{x}, To: x, Expr: ae.Right, Stmt: es}, tb.stmts[1:])
}

// extractFlatMap matches a lone nested loop with a recognisable source.
func (tb *TerminalBlock) extractFlatMap() *TerminalBlock {
	info := tb.e.info
	inner := tb.SingleStatement()
	for {
		ls, ok := inner.(*ast.LabeledStmt)
		if !ok {
			break
		}
		inner = ls.Stmt
	}
	if inner == nil || !ast.IsLoop(inner) {
		return nil
	}
	src := tb.e.sourceOf(inner)
	if src == nil {
		return nil
	}
	if _, ok := src.(*ReaderSource); ok {
		return nil
	}
	in := (&TerminalBlock{
		e:        tb.e,
		ops:      []Operation{src},
		stmts:    flatten(ast.LoopBody(inner)),
		mainLoop: tb.mainLoop,
		loop:     inner,
	}).extract()
	v := tb.Variable()

	if cf := tb.compoundFilter(in, inner); cf != nil {
		return cf
	}

	for _, exit := range info.ExitPoints(in.stmts) {
		switch s := exit.(type) {
		case *ast.ReturnStmt, *ast.ThrowStmt:
		case *ast.ContinueStmt:
			if info.ContinueTarget(s) != inner {
				return nil
			}
		case *ast.BreakStmt:
			if tb.loop != tb.mainLoop || unlabel(info.BreakTarget(s)) != tb.mainLoop {
				return nil
			}
		default:
			return nil
		}
	}
	c := *in
	c.ops = append(append([]Operation{}, tb.ops...), &FlatMapOp{intermediate: intermediate{v}, Inner: in.FromStatements()})
	return &c
}

// compoundFilter matches a nested loop that ends by breaking out of itself
// once a matching element is found:
//
//	for (y : ys) { if (p(x, y)) { body; break; } }
func (tb *TerminalBlock) compoundFilter(in *TerminalBlock, inner ast.Statement) *TerminalBlock {
	info := tb.e.info
	n := len(in.stmts)
	if n == 0 || !in.isBreak(in.stmts[n-1]) {
		return nil
	}
	if _, ok := in.LastOperation().(*FilterOp); !ok {
		return nil
	}
	body := in.stmts[:n-1]
	for _, s := range body {
		for _, v := range info.VariablesIn(s) {
			if v.Decl != nil && ast.Contains(inner, v.Decl) && !ast.Contains(s, v.Decl) {
				return nil
			}
		}
	}
	for _, exit := range info.ExitPoints(body) {
		if _, ok := exit.(*ast.ReturnStmt); !ok {
			return nil
		}
	}
	return tb.with(&CompoundFilterOp{intermediate: intermediate{tb.Variable()}, Inner: in.FromStatements()}, body)
}

// extractLimit matches a trailing 'if (count >= bound) break;'.
func (tb *TerminalBlock) extractLimit() *TerminalBlock {
	info := tb.e.info
	n := len(tb.stmts)
	if n == 0 {
		return nil
	}
	is, ok := tb.stmts[n-1].(*ast.IfStmt)
	if !ok || is.Else != nil || !tb.isBreak(single(is.Then)) {
		return nil
	}
	cmp, ok := ast.Unparen(is.Cond).(*ast.BinaryExpr)
	if !ok {
		return nil
	}
	var counted, bound ast.Expression
	strict := false
	switch cmp.Op {
	case ">=", ">":
		counted, bound, strict = cmp.Left, cmp.Right, cmp.Op == ">"
	case "<=", "<":
		counted, bound, strict = cmp.Right, cmp.Left, cmp.Op == "<"
	case "==":
		counted, bound = cmp.Left, cmp.Right
	default:
		return nil
	}
	rest := tb.stmts[:n-1]
	if len(info.ExitPoints(rest)) > 0 {
		return nil
	}
	if analysis.HasSideEffects(bound) {
		return nil
	}
	for _, bv := range info.VariablesIn(bound) {
		if info.IsWrittenIn(bv, tb.mainLoop) {
			return nil
		}
	}
	op := &LimitOp{intermediate: intermediate{tb.Variable()}, Bound: bound, Break: is}
	switch c := ast.Unparen(counted).(type) {
	case *ast.UnaryExpr:
		if c.Op != "++" {
			return nil
		}
		op.Counter = tb.dedicatedCounter(c.X)
	case *ast.PostfixExpr:
		if c.Op != "++" {
			return nil
		}
		op.Counter = tb.dedicatedCounter(c.X)
		op.Delta = 1
	default:
		if analysis.HasSideEffects(counted) {
			return nil
		}
		op.Count = counted
	}
	if op.Count == nil && op.Counter == nil {
		return nil
	}
	if strict {
		op.Delta++
	}
	return tb.with(op, rest)
}

// dedicatedCounter returns the local behind x when it starts at literal 0
// and nothing but the limit check touches it.
func (tb *TerminalBlock) dedicatedCounter(x ast.Expression) *analysis.Variable {
	info := tb.e.info
	v := info.VariableOf(x)
	if v == nil || v.Kind != analysis.LocalVar || ast.Contains(tb.mainLoop, v.Decl) {
		return nil
	}
	d, ok := v.Decl.(*ast.LocalVarDecl)
	if !ok || len(d.Vars) != 1 {
		return nil
	}
	lit, ok := ast.Unparen(v.Init()).(*ast.Literal)
	if !ok || lit.Kind != ast.IntLit || lit.Value != "0" {
		return nil
	}
	if len(info.Refs[v]) != 1 {
		return nil
	}
	return v
}

// withDistinct turns a 'seen.add(x)' filter over a private set, or a final
// '!c.contains(x)' filter guarding 'c.add(x)', into distinct().
func (tb *TerminalBlock) withDistinct() *TerminalBlock {
	if c := tb.containsGuard(); c != nil {
		tb = c
	}
	info := tb.e.info
	var ops []Operation
	changed := false
	for _, op := range tb.ops {
		f, ok := op.(*FilterOp)
		if !ok || f.Negated {
			ops = append(ops, op)
			continue
		}
		mc, ok := ast.Unparen(f.Cond).(*ast.MethodCall)
		if !ok || mc.Name.Value != "add" || len(mc.Args) != 1 || mc.X == nil || !info.IsReferenceTo(mc.Args[0], f.v) {
			ops = append(ops, op)
			continue
		}
		set := info.VariableOf(mc.X)
		if !tb.isPrivateSet(set) {
			ops = append(ops, op)
			continue
		}
		ops = append(ops, &DistinctOp{intermediate: f.intermediate, Set: set})
		changed = true
	}
	if !changed {
		return tb
	}
	c := *tb
	c.ops = ops
	return &c
}

// containsGuard matches a last filter '!c.contains(x)' ahead of a lone
// 'c.add(x)', where c is a fresh local collection the loop only fills. The
// add stays behind for the collect terminal.
func (tb *TerminalBlock) containsGuard() *TerminalBlock {
	info := tb.e.info
	f, ok := tb.LastOperation().(*FilterOp)
	if !ok {
		return nil
	}
	cond := ast.Unparen(f.Cond)
	if !f.Negated {
		u, ok := cond.(*ast.UnaryExpr)
		if !ok || u.Op != "!" {
			return nil
		}
		cond = ast.Unparen(u.X)
	}
	has, ok := cond.(*ast.MethodCall)
	if !ok || has.Name.Value != "contains" || len(has.Args) != 1 || has.X == nil || !info.IsReferenceTo(has.Args[0], f.v) {
		return nil
	}
	add := tb.SingleMethodCall()
	if add == nil || add.Name.Value != "add" || len(add.Args) != 1 || add.X == nil || !info.IsReferenceTo(add.Args[0], f.v) {
		return nil
	}
	c := info.VariableOf(has.X)
	if c == nil || c != info.VariableOf(add.X) || !tb.isLocalAccumulator(c) || freshInit(info, c) == nil || !tb.canFuse(c) {
		return nil
	}
	for _, op := range tb.ops[:len(tb.ops)-1] {
		for _, x := range op.Expressions() {
			if info.IsUsedIn(c, x) {
				return nil
			}
		}
	}
	return tb.WithoutLastOperation().with(&DistinctOp{intermediate: f.intermediate}, tb.stmts)
}

func (tb *TerminalBlock) isPrivateSet(v *analysis.Variable) bool {
	info := tb.e.info
	if v == nil || v.Kind != analysis.LocalVar || len(info.Refs[v]) != 1 || ast.Contains(tb.mainLoop, v.Decl) {
		return false
	}
	d, ok := v.Decl.(*ast.LocalVarDecl)
	if !ok || len(d.Vars) != 1 {
		return false
	}
	ne, ok := ast.Unparen(v.Init()).(*ast.NewExpr)
	if !ok || ne.Body != nil || len(ne.Args) != 0 {
		return false
	}
	switch ne.Type.SimpleName() {
	case "HashSet", "LinkedHashSet":
		return true
	}
	return false
}
