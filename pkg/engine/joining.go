package engine

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/sambeau/streamline/pkg/java/analysis"
	"github.com/sambeau/streamline/pkg/java/ast"
	"github.com/sambeau/streamline/pkg/java/rewrite"
)

// joining is a loop that builds a delimited string in a StringBuilder.
// Every part list holds the operands of the appends, in order.
type joining struct {
	tb      *TerminalBlock
	builder *analysis.Variable
	main    []ast.Expression
	delim   []ast.Expression
	prefix  []ast.Expression
	suffix  []ast.Expression
	before  ast.Statement   // prefix appends right before the loop
	after   ast.Statement   // suffix appends right after the loop
	tail    *ast.MethodCall // 'sb.append(x).toString()' supplying the suffix
	helpers []ast.Statement // flag and delimiter declarations, truncation, first element
}

type joinRecognizer func(tb *TerminalBlock, nonFinal []*analysis.Variable) *joining

// joiningRecognizers are tried in order; the first match wins.
var joiningRecognizers = []joinRecognizer{
	countedJoining,
	plainJoining,
	lengthGuardedJoining,
	flagJoining,
	truncatedJoining,
	delimiterVarJoining,
	indexJoining,
}

func tryJoining(tb *TerminalBlock, nonFinal []*analysis.Variable) *plan {
	for _, r := range joiningRecognizers {
		if j := r(tb, nonFinal); j != nil {
			return &plan{call: "collect()", warn: true, apply: j.apply}
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Recognizers

// plainJoining matches appends with no delimiter:
//
//	for (String s : list) sb.append(s);
func plainJoining(tb *TerminalBlock, nonFinal []*analysis.Variable) *joining {
	if len(nonFinal) > 0 || tb.IsEmpty() {
		return nil
	}
	sb := tb.builderOf(tb.stmts[0])
	if sb == nil {
		return nil
	}
	main, ok := tb.appendParts(tb.stmts, sb)
	if !ok || len(main) == 0 {
		return nil
	}
	j := &joining{tb: tb, builder: sb, main: main}
	loop := tb.StreamSourceStatement()
	if !j.frame(loop, loop, nil) {
		return nil
	}
	return j
}

// lengthGuardedJoining matches a delimiter appended once the builder holds
// more than its prefix:
//
//	if (sb.length() > 0) sb.append(",");
//	sb.append(s);
func lengthGuardedJoining(tb *TerminalBlock, nonFinal []*analysis.Variable) *joining {
	info := tb.e.info
	if len(nonFinal) > 0 || len(tb.stmts) < 2 {
		return nil
	}
	is, ok := tb.stmts[0].(*ast.IfStmt)
	if !ok || is.Else != nil {
		return nil
	}
	rest := tb.stmts[1:]
	sb := tb.builderOf(rest[0])
	if sb == nil || sb.Kind != analysis.LocalVar {
		return nil
	}
	delim, ok := tb.appendParts(flatten(is.Then), sb)
	if !ok || len(delim) == 0 {
		return nil
	}
	if _, ok := tb.constantText(delim); !ok {
		return nil
	}
	n, ok := prefixLength(info, is.Cond, sb)
	if !ok {
		return nil
	}
	main, ok := tb.appendParts(rest, sb)
	if !ok || len(main) == 0 {
		return nil
	}
	j := &joining{tb: tb, builder: sb, main: main, delim: delim}
	loop := tb.StreamSourceStatement()
	if !j.frame(loop, loop, nil) || !j.prefixIs(n) {
		return nil
	}
	return j
}

// flagJoining matches a boolean that marks the first iteration:
//
//	boolean first = true;
//	for (String s : list) {
//	    if (!first) sb.append(",");
//	    first = false;
//	    sb.append(s);
//	}
func flagJoining(tb *TerminalBlock, nonFinal []*analysis.Variable) *joining {
	info := tb.e.info
	if len(nonFinal) != 1 {
		return nil
	}
	flag := nonFinal[0]
	if !tb.isLocalAccumulator(flag) || !analysis.IsPrimitiveNamed(info.VarType(flag), "boolean") {
		return nil
	}
	init, ok := analysis.IsBooleanLiteral(flag.Init())
	if !ok {
		return nil
	}
	d, ok := tb.helperDecl(flag)
	if !ok {
		return nil
	}
	first, end, ok := tb.flagPass(tb.stmts, flag, init)
	if !ok || end == init {
		return nil
	}
	later, end, ok := tb.flagPass(tb.stmts, flag, !init)
	if !ok || end == init || len(first) == 0 || len(later) == 0 {
		return nil
	}
	j := tb.firstApart(first, later)
	if j == nil {
		return nil
	}
	j.helpers = []ast.Statement{d}
	loop := tb.StreamSourceStatement()
	if !j.frame(loop, loop, []*analysis.Variable{flag}) {
		return nil
	}
	return j
}

// truncatedJoining matches a trailing delimiter cut off after the loop:
//
//	for (String s : list) sb.append(s).append(",");
//	if (sb.length() > 0) sb.setLength(sb.length() - 1);
func truncatedJoining(tb *TerminalBlock, nonFinal []*analysis.Variable) *joining {
	info := tb.e.info
	if len(nonFinal) > 0 || tb.IsEmpty() {
		return nil
	}
	sb := tb.builderOf(tb.stmts[0])
	if sb == nil || sb.Kind != analysis.LocalVar {
		return nil
	}
	parts, ok := tb.appendParts(tb.stmts, sb)
	if !ok {
		return nil
	}
	main, delim, text := tb.splitRight(parts)
	if text == "" || len(main) == 0 {
		return nil
	}
	loop := tb.StreamSourceStatement()
	is, ok := info.NextStatement(loop).(*ast.IfStmt)
	if !ok || is.Else != nil {
		return nil
	}
	n, ok := prefixLength(info, is.Cond, sb)
	if !ok {
		return nil
	}
	cut, ok := truncation(info, single(is.Then), sb)
	if !ok || cut != javaLength(text) {
		return nil
	}
	j := &joining{tb: tb, builder: sb, main: main, delim: delim, helpers: []ast.Statement{is}}
	if !j.frame(is, loop, nil, is) || !j.prefixIs(n) {
		return nil
	}
	return j
}

// delimiterVarJoining matches a delimiter variable that starts empty and is
// set at the end of every iteration:
//
//	String sep = "";
//	for (String s : list) {
//	    sb.append(sep).append(s);
//	    sep = ",";
//	}
func delimiterVarJoining(tb *TerminalBlock, nonFinal []*analysis.Variable) *joining {
	info := tb.e.info
	n := len(tb.stmts)
	if len(nonFinal) != 1 || n < 2 {
		return nil
	}
	es, ok := tb.stmts[n-1].(*ast.ExprStmt)
	if !ok {
		return nil
	}
	a, ok := ast.Unparen(es.X).(*ast.AssignExpr)
	if !ok || a.Op != "=" {
		return nil
	}
	dv := info.VariableOf(a.Left)
	if dv == nil || dv != nonFinal[0] || !tb.isLocalAccumulator(dv) || !analysis.IsString(info.VarType(dv)) {
		return nil
	}
	if c, ok := info.Constant(dv.Init()); !ok || c.Kind != "String" || c.Str != "" {
		return nil
	}
	if c, ok := info.Constant(a.Right); !ok || c.Kind != "String" {
		return nil
	}
	d, ok := tb.helperDecl(dv)
	if !ok || len(info.Refs[dv]) != 2 {
		return nil
	}
	body := tb.stmts[:n-1]
	sb := tb.builderOf(body[0])
	if sb == nil {
		return nil
	}
	parts, ok := tb.appendParts(body, sb)
	if !ok || len(parts) < 2 || !info.IsReferenceTo(parts[0], dv) {
		return nil
	}
	j := &joining{
		tb:      tb,
		builder: sb,
		main:    parts[1:],
		delim:   []ast.Expression{a.Right},
		helpers: []ast.Statement{d},
	}
	loop := tb.StreamSourceStatement()
	if !j.frame(loop, loop, []*analysis.Variable{dv}) {
		return nil
	}
	return j
}

// indexJoining matches a delimiter guarded by the counter:
//
//	for (int i = 0; i < arr.length; i++) {
//	    if (i > 0) sb.append(",");
//	    sb.append(arr[i]);
//	}
func indexJoining(tb *TerminalBlock, nonFinal []*analysis.Variable) *joining {
	info := tb.e.info
	if len(nonFinal) > 0 {
		return nil
	}
	src, ok := tb.LastOperation().(*CountingSource)
	if !ok {
		return nil
	}
	start, ok := info.Constant(src.Init)
	if !ok || start.Kind != "int" && start.Kind != "long" {
		return nil
	}
	i := src.Variable()
	first, ok := tb.indexPass(tb.stmts, i, start.Int)
	if !ok {
		return nil
	}
	later, ok := tb.indexPass(tb.stmts, i, start.Int+1)
	if !ok {
		return nil
	}
	// every later iteration must take the same branches as the second
	last, ok := tb.indexPass(tb.stmts, i, math.MaxInt32)
	if !ok || !sameStatements(later, last) || len(first) == 0 || len(later) == 0 {
		return nil
	}
	j := tb.firstApart(first, later)
	if j == nil {
		return nil
	}
	loop := tb.StreamSourceStatement()
	if !j.frame(loop, loop, nil) {
		return nil
	}
	return j
}

// countedJoining matches a counted loop from 1 with the first element
// appended before it:
//
//	sb.append(arr[0]);
//	for (int i = 1; i < arr.length; i++) sb.append(",").append(arr[i]);
func countedJoining(tb *TerminalBlock, nonFinal []*analysis.Variable) *joining {
	info := tb.e.info
	if len(nonFinal) > 0 || tb.IsEmpty() {
		return nil
	}
	src, ok := tb.LastOperation().(*CountingSource)
	if !ok || !info.IsIntegerConstant(src.Init, 1) {
		return nil
	}
	sb := tb.builderOf(tb.stmts[0])
	if sb == nil {
		return nil
	}
	parts, ok := tb.appendParts(tb.stmts, sb)
	if !ok {
		return nil
	}
	delim, main, _ := tb.splitLeft(parts)
	if len(delim) == 0 || len(main) == 0 {
		return nil
	}
	loop := tb.StreamSourceStatement()
	lead := info.PrevStatement(loop)
	if lead == nil {
		return nil
	}
	firstParts, ok := tb.appendParts([]ast.Statement{lead}, sb)
	if !ok || len(firstParts) != len(main) {
		return nil
	}
	i := src.Variable()
	for k, p := range main {
		text, ok := replacingRefs(info, p, i, "0")
		if !ok || squash(text) != squash(info.Text(firstParts[k])) {
			return nil
		}
	}
	j := &joining{
		tb:      tb.withSource(src.withInitializer("0")),
		builder: sb,
		main:    main,
		delim:   delim,
		helpers: []ast.Statement{lead},
	}
	if !j.frame(loop, lead, nil, lead) {
		return nil
	}
	return j
}

// firstApart builds a joining from the appends of the first iteration and
// of the later ones, which must be the same appends behind a constant
// delimiter.
func (tb *TerminalBlock) firstApart(first, later []ast.Statement) *joining {
	sb := tb.builderOf(first[0])
	if sb == nil {
		return nil
	}
	firstParts, ok := tb.appendParts(first, sb)
	if !ok {
		return nil
	}
	laterParts, ok := tb.appendParts(later, sb)
	if !ok {
		return nil
	}
	delim, main, _ := tb.splitLeft(laterParts)
	if len(delim) == 0 || len(main) == 0 || len(main) != len(firstParts) {
		return nil
	}
	for k := range main {
		if !analysis.Equivalent(main[k], firstParts[k]) {
			return nil
		}
	}
	return &joining{tb: tb, builder: sb, main: firstParts, delim: delim}
}

// flagPass returns the statements that run when the iteration starts with
// flag holding val, and the value it ends with. Assignments of the flag are
// dropped.
func (tb *TerminalBlock) flagPass(stmts []ast.Statement, flag *analysis.Variable, val bool) ([]ast.Statement, bool, bool) {
	info := tb.e.info
	var out []ast.Statement
	for _, s := range stmts {
		if !info.IsUsedIn(flag, s) {
			out = append(out, s)
			continue
		}
		switch n := s.(type) {
		case *ast.IfStmt:
			when, ok := flagTest(info, n.Cond, flag)
			if !ok {
				return nil, val, false
			}
			branch := n.Else
			if when == val {
				branch = n.Then
			}
			sub, now, ok := tb.flagPass(flatten(branch), flag, val)
			if !ok {
				return nil, val, false
			}
			out = append(out, sub...)
			val = now
		case *ast.ExprStmt:
			a, ok := ast.Unparen(n.X).(*ast.AssignExpr)
			if !ok || a.Op != "=" || !info.IsReferenceTo(a.Left, flag) {
				return nil, val, false
			}
			b, ok := analysis.IsBooleanLiteral(a.Right)
			if !ok {
				return nil, val, false
			}
			val = b
		default:
			return nil, val, false
		}
	}
	return out, val, true
}

// flagTest returns the flag value that makes cond true.
func flagTest(info *analysis.Info, cond ast.Expression, flag *analysis.Variable) (bool, bool) {
	cond = ast.Unparen(cond)
	if u, ok := cond.(*ast.UnaryExpr); ok && u.Op == "!" {
		if info.IsReferenceTo(u.X, flag) {
			return false, true
		}
		return false, false
	}
	return true, info.IsReferenceTo(cond, flag)
}

// indexPass returns the statements that run when the counter equals at.
func (tb *TerminalBlock) indexPass(stmts []ast.Statement, i *analysis.Variable, at int64) ([]ast.Statement, bool) {
	info := tb.e.info
	var out []ast.Statement
	for _, s := range stmts {
		is, ok := s.(*ast.IfStmt)
		if !ok || !info.IsUsedIn(i, is.Cond) {
			out = append(out, s)
			continue
		}
		when, ok := indexTest(info, is.Cond, i, at)
		if !ok {
			return nil, false
		}
		branch := is.Else
		if when {
			branch = is.Then
		}
		sub, ok := tb.indexPass(flatten(branch), i, at)
		if !ok {
			return nil, false
		}
		out = append(out, sub...)
	}
	return out, true
}

// indexTest evaluates a comparison of the counter with a constant.
func indexTest(info *analysis.Info, cond ast.Expression, i *analysis.Variable, at int64) (bool, bool) {
	b, ok := ast.Unparen(cond).(*ast.BinaryExpr)
	if !ok {
		return false, false
	}
	op, l, r := b.Op, b.Left, b.Right
	if info.IsReferenceTo(r, i) {
		l, r, op = r, l, flipRelation(op)
	}
	if !info.IsReferenceTo(l, i) {
		return false, false
	}
	c, ok := info.Constant(r)
	if !ok || c.Kind != "int" && c.Kind != "long" {
		return false, false
	}
	switch op {
	case "==":
		return at == c.Int, true
	case "!=":
		return at != c.Int, true
	case "<":
		return at < c.Int, true
	case "<=":
		return at <= c.Int, true
	case ">":
		return at > c.Int, true
	case ">=":
		return at >= c.Int, true
	}
	return false, false
}

func flipRelation(op string) string {
	switch op {
	case "<":
		return ">"
	case "<=":
		return ">="
	case ">":
		return "<"
	case ">=":
		return "<="
	}
	return op
}

func sameStatements(a, b []ast.Statement) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if a[k] != b[k] {
			return false
		}
	}
	return true
}

// prefixLength reads a check that the builder holds more than n chars:
// 'sb.length() > n', 'sb.length() != 0' or '!sb.isEmpty()'.
func prefixLength(info *analysis.Info, cond ast.Expression, sb *analysis.Variable) (int, bool) {
	cond = ast.Unparen(cond)
	if u, ok := cond.(*ast.UnaryExpr); ok && u.Op == "!" {
		return 0, builderCall(info, u.X, sb, "isEmpty") != nil
	}
	b, ok := cond.(*ast.BinaryExpr)
	if !ok {
		return 0, false
	}
	op, l, r := b.Op, b.Left, b.Right
	if builderCall(info, r, sb, "length") != nil {
		l, r, op = r, l, flipRelation(op)
	}
	if builderCall(info, l, sb, "length") == nil {
		return 0, false
	}
	c, ok := info.Constant(r)
	if !ok || c.Kind != "int" || c.Int < 0 {
		return 0, false
	}
	switch {
	case op == ">":
		return int(c.Int), true
	case op == ">=" && c.Int > 0:
		return int(c.Int) - 1, true
	case op == "!=" && c.Int == 0:
		return 0, true
	}
	return 0, false
}

// truncation reads 'sb.setLength(sb.length() - n)' and returns n.
func truncation(info *analysis.Info, s ast.Statement, sb *analysis.Variable) (int, bool) {
	es, ok := s.(*ast.ExprStmt)
	if !ok {
		return 0, false
	}
	mc, ok := ast.Unparen(es.X).(*ast.MethodCall)
	if !ok || mc.Name.Value != "setLength" || len(mc.Args) != 1 || !info.IsReferenceTo(mc.X, sb) {
		return 0, false
	}
	b, ok := ast.Unparen(mc.Args[0]).(*ast.BinaryExpr)
	if !ok || b.Op != "-" || builderCall(info, b.Left, sb, "length") == nil {
		return 0, false
	}
	c, ok := info.Constant(b.Right)
	if !ok || c.Kind != "int" {
		return 0, false
	}
	return int(c.Int), true
}

// builderCall matches 'sb.name()'.
func builderCall(info *analysis.Info, x ast.Expression, sb *analysis.Variable, name string) *ast.MethodCall {
	mc, ok := ast.Unparen(x).(*ast.MethodCall)
	if !ok || mc.Name.Value != name || len(mc.Args) != 0 || !info.IsReferenceTo(mc.X, sb) {
		return nil
	}
	return mc
}

// ---------------------------------------------------------------------------
// Appends

func isAppend(mc *ast.MethodCall) bool {
	return mc != nil && mc.X != nil && mc.Name.Value == "append" && len(mc.Args) == 1 && len(mc.TypeArgs) == 0
}

// builderOf returns the builder an append statement writes to, if it is
// declared outside the loop.
func (tb *TerminalBlock) builderOf(s ast.Statement) *analysis.Variable {
	info := tb.e.info
	es, ok := s.(*ast.ExprStmt)
	if !ok {
		return nil
	}
	x := ast.Unparen(es.X)
	for {
		mc, ok := x.(*ast.MethodCall)
		if !ok {
			break
		}
		if !isAppend(mc) {
			return nil
		}
		x = ast.Unparen(mc.X)
	}
	v := info.VariableOf(x)
	if v == nil || !analysis.IsStringBuilder(info.VarType(v)) || ast.Contains(tb.mainLoop, v.Decl) {
		return nil
	}
	return v
}

// appendParts returns the operands appended to sb by stmts, which must all
// be append chains on sb. String concatenations are split into operands.
func (tb *TerminalBlock) appendParts(stmts []ast.Statement, sb *analysis.Variable) ([]ast.Expression, bool) {
	var parts []ast.Expression
	for _, s := range stmts {
		es, ok := s.(*ast.ExprStmt)
		if !ok {
			return nil, false
		}
		if parts, ok = tb.chainParts(es.X, sb, parts); !ok {
			return nil, false
		}
	}
	return parts, true
}

func (tb *TerminalBlock) chainParts(x ast.Expression, sb *analysis.Variable, parts []ast.Expression) ([]ast.Expression, bool) {
	info := tb.e.info
	mc, ok := ast.Unparen(x).(*ast.MethodCall)
	if !ok || !isAppend(mc) {
		return nil, false
	}
	if !info.IsReferenceTo(mc.X, sb) {
		if parts, ok = tb.chainParts(mc.X, sb, parts); !ok {
			return nil, false
		}
	}
	arg := mc.Args[0]
	if info.IsUsedIn(sb, arg) {
		return nil, false
	}
	return concatParts(info, arg, parts), true
}

func concatParts(info *analysis.Info, x ast.Expression, parts []ast.Expression) []ast.Expression {
	x = ast.Unparen(x)
	if b, ok := x.(*ast.BinaryExpr); ok && b.Op == "+" && analysis.IsString(info.TypeOf(b)) {
		parts = concatParts(info, b.Left, parts)
		return concatParts(info, b.Right, parts)
	}
	return append(parts, x)
}

// builderInit returns the parts a builder starts with: the argument of
// 'new StringBuilder(s)' and any appends chained onto it. A numeric
// argument is a capacity and contributes nothing.
func builderInit(info *analysis.Info, x ast.Expression) ([]ast.Expression, bool) {
	var calls [][]ast.Expression
	x = ast.Unparen(x)
	for {
		mc, ok := x.(*ast.MethodCall)
		if !ok {
			break
		}
		if !isAppend(mc) {
			return nil, false
		}
		calls = append(calls, concatParts(info, mc.Args[0], nil))
		x = ast.Unparen(mc.X)
	}
	ne, ok := x.(*ast.NewExpr)
	if !ok || ne.Body != nil || ne.Outer != nil || !analysis.IsStringBuilder(ne.Type) || len(ne.Args) > 1 {
		return nil, false
	}
	var parts []ast.Expression
	if len(ne.Args) == 1 {
		t := info.TypeOf(ne.Args[0])
		switch {
		case t == nil:
			return nil, false
		case !analysis.IsPrimitive(t):
			parts = concatParts(info, ne.Args[0], nil)
		}
	}
	for k := len(calls) - 1; k >= 0; k-- {
		parts = append(parts, calls[k]...)
	}
	return parts, true
}

// constantText folds parts into the string they append.
func (tb *TerminalBlock) constantText(parts []ast.Expression) (string, bool) {
	var sb strings.Builder
	for _, p := range parts {
		c, ok := tb.e.info.Constant(p)
		if !ok {
			return "", false
		}
		sb.WriteString(c.String())
	}
	return sb.String(), true
}

// splitLeft separates the leading constant parts.
func (tb *TerminalBlock) splitLeft(parts []ast.Expression) (delim, main []ast.Expression, text string) {
	k := 0
	for k < len(parts) {
		if _, ok := tb.e.info.Constant(parts[k]); !ok {
			break
		}
		k++
	}
	text, _ = tb.constantText(parts[:k])
	return parts[:k], parts[k:], text
}

// splitRight separates the trailing constant parts.
func (tb *TerminalBlock) splitRight(parts []ast.Expression) (main, delim []ast.Expression, text string) {
	k := len(parts)
	for k > 0 {
		if _, ok := tb.e.info.Constant(parts[k-1]); !ok {
			break
		}
		k--
	}
	text, _ = tb.constantText(parts[k:])
	return parts[:k], parts[k:], text
}

// javaLength is the length of s as String.length() counts it.
func javaLength(s string) int {
	return len(utf16.Encode([]rune(s)))
}

// replacingRefs returns the source of x with every reference to v replaced.
func replacingRefs(info *analysis.Info, x ast.Expression, v *analysis.Variable, with string) (string, bool) {
	var edits []rewrite.Edit
	for _, id := range info.ReferencesIn(v, x) {
		edits = append(edits, rewrite.Edit{Start: id.Pos() - x.Pos(), End: id.End() - x.Pos(), Text: with})
	}
	text, err := rewrite.Apply(info.Text(x), edits)
	return text, err == nil
}

// ---------------------------------------------------------------------------
// Builder uses

// helperDecl returns the lone declaration of a flag or delimiter variable
// that only the loop uses.
func (tb *TerminalBlock) helperDecl(v *analysis.Variable) (*ast.LocalVarDecl, bool) {
	d, ok := v.Decl.(*ast.LocalVarDecl)
	if !ok || len(d.Vars) != 1 {
		return nil, false
	}
	for _, id := range tb.e.info.Refs[v] {
		if !ast.Contains(tb.mainLoop, id) {
			return nil, false
		}
	}
	return d, true
}

// frame finds the prefix appends before first and the suffix appends after
// last, and checks that outside the loop the builder is only read in ways
// a String also supports. skip lists helper variables whose declarations
// may sit between the prefix and the loop; refs inside consumed are
// accounted for.
func (j *joining) frame(last, first ast.Statement, skip []*analysis.Variable, consumed ...ast.Statement) bool {
	tb, sb := j.tb, j.builder
	info := tb.e.info
	if next := info.NextStatement(last); next != nil {
		if parts, ok := tb.appendParts([]ast.Statement{next}, sb); ok {
			j.suffix, j.after = parts, next
		}
	}
	prev := info.PrevStatement(first)
	for isDeclOf(info, prev, skip) {
		prev = info.PrevStatement(prev)
	}
	if prev != nil {
		if parts, ok := tb.appendParts([]ast.Statement{prev}, sb); ok {
			j.prefix, j.before = parts, prev
		}
	}
	if sb.Kind == analysis.LocalVar {
		if !tb.ownsBuilder(sb) {
			return false
		}
		loop := tb.StreamSourceStatement()
		var outside []*ast.Identifier
		for _, id := range info.Refs[sb] {
			if !ast.Contains(sb.Decl, id) && !ast.Contains(loop, id) {
				outside = append(outside, id)
			}
		}
		for _, s := range []ast.Statement{j.before, j.after} {
			if s != nil {
				consumed = append(consumed, s)
			}
		}
		if !j.allowedUses(outside, consumed) && !j.combinedToString(outside) {
			return false
		}
		init, ok := builderInit(info, sb.Init())
		if !ok {
			return false
		}
		j.prefix = append(init, j.prefix...)
	}
	for _, p := range append(append([]ast.Expression{}, j.prefix...), j.suffix...) {
		if analysis.HasSideEffects(p) {
			return false
		}
		for _, v := range info.VariablesIn(p) {
			if info.IsWrittenIn(v, tb.mainLoop) {
				return false
			}
		}
	}
	return true
}

func isDeclOf(info *analysis.Info, s ast.Statement, vars []*analysis.Variable) bool {
	d, ok := s.(*ast.LocalVarDecl)
	if !ok || len(d.Vars) != 1 {
		return false
	}
	dv := info.DeclaredVariable(d.Vars[0])
	for _, v := range vars {
		if v == dv {
			return true
		}
	}
	return false
}

// ownsBuilder reports whether sb is a local created before the loop, never
// reassigned and never captured.
func (tb *TerminalBlock) ownsBuilder(sb *analysis.Variable) bool {
	info := tb.e.info
	d, ok := sb.Decl.(*ast.LocalVarDecl)
	if !ok || len(d.Vars) != 1 || sb.Init() == nil || len(info.Writes(sb)) > 0 || !tb.isLocalAccumulator(sb) {
		return false
	}
	owner := info.Owner(tb.mainLoop)
	for _, id := range info.Refs[sb] {
		if info.Owner(id) != owner {
			return false
		}
	}
	return true
}

// allowedUses reports whether every id is inside consumed or is a use that
// still compiles once the builder is a String.
func (j *joining) allowedUses(ids []*ast.Identifier, consumed []ast.Statement) bool {
	info := j.tb.e.info
next:
	for _, id := range ids {
		for _, s := range consumed {
			if ast.Contains(s, id) {
				continue next
			}
		}
		parent, child := outerOf(info, id)
		switch p := parent.(type) {
		case *ast.MethodCall:
			if ast.Node(p.X) == child && len(p.Args) == 0 && (p.Name.Value == "toString" || p.Name.Value == "length") {
				continue
			}
		case *ast.BinaryExpr:
			if p.Op == "+" {
				continue
			}
		case *ast.AssignExpr:
			if p.Op == "+=" && ast.Node(p.Right) == child {
				continue
			}
		}
		return false
	}
	return true
}

// combinedToString matches a lone 'sb.append(x).toString()' after the loop,
// whose append supplies the suffix.
func (j *joining) combinedToString(ids []*ast.Identifier) bool {
	info := j.tb.e.info
	if j.after != nil || len(ids) != 1 {
		return false
	}
	parent, child := outerOf(info, ids[0])
	mc, ok := parent.(*ast.MethodCall)
	if !ok || ast.Node(mc.X) != child || !isAppend(mc) || info.IsUsedIn(j.builder, mc.Args[0]) {
		return false
	}
	parent, child = outerOf(info, mc)
	ts, ok := parent.(*ast.MethodCall)
	if !ok || ast.Node(ts.X) != child || ts.Name.Value != "toString" || len(ts.Args) != 0 {
		return false
	}
	j.suffix = concatParts(info, mc.Args[0], nil)
	j.tail = ts
	return true
}

// outerOf returns the parent of n, looking through parentheses, and the
// child of the parent that holds n.
func outerOf(info *analysis.Info, n ast.Node) (parent, child ast.Node) {
	child = n
	parent = info.Parent(n)
	for {
		p, ok := parent.(*ast.ParenExpr)
		if !ok {
			return parent, child
		}
		child, parent = p, info.Parent(p)
	}
}

// prefixIs reports whether the prefix folds to a string of n chars.
func (j *joining) prefixIs(n int) bool {
	text, ok := j.tb.constantText(j.prefix)
	return ok && javaLength(text) == n
}

// ---------------------------------------------------------------------------
// Rendering

func (j *joining) apply(w *writer) string {
	info := w.e.info
	tb, sb := j.tb, j.builder
	loop := tb.StreamSourceStatement()

	ch := tb.Generate(w)
	j.mapParts(w, ch)
	ch.call(".collect("+w.collectors()+".joining("+j.args(w)+"))", "Stream")

	for _, s := range j.helpers {
		w.t.DeleteStatement(w.s, s)
	}
	if j.before != nil {
		w.t.DeleteStatement(w.s, j.before)
	}
	if j.after != nil {
		w.t.DeleteStatement(w.s, j.after)
	}
	if j.tail != nil {
		w.t.ReplaceNode(w.s, j.tail, sb.Name)
	}

	if sb.Kind != analysis.LocalVar {
		return w.replaceLoop(tb, ch, sb.Name+".append(", ");")
	}
	j.replaceToString(w)
	d := sb.Decl.(*ast.LocalVarDecl)
	init := sb.Init()
	switch {
	case j.declaredJustBefore(d):
		w.s.Replace(d.Type.Pos(), d.Type.End(), "String")
		text := w.layout(ch, init.Pos(), "")
		w.t.ReplaceNode(w.s, init, text)
		w.t.DeleteStatement(w.s, loop)
		return text
	case info.InitializerUsageStatus(sb, tb.mainLoop) == analysis.AtWantedPlaceOnly && info.Parent(d) == info.Parent(loop):
		prefix := d.Modifiers.String() + "String " + sb.Name + " = "
		text := prefix + w.layout(ch, loop.Pos(), prefix) + ";"
		w.t.DeleteStatement(w.s, d)
		w.t.ReplaceNode(w.s, loop, text)
		return text
	}
	w.s.Replace(d.Type.Pos(), d.Type.End(), "String")
	w.t.ReplaceNode(w.s, init, `""`)
	return w.replaceLoop(tb, ch, sb.Name+" = ", ";")
}

// declaredJustBefore reports whether only statements that go away separate
// the builder declaration from the loop.
func (j *joining) declaredJustBefore(d *ast.LocalVarDecl) bool {
	info := j.tb.e.info
	gone := map[ast.Node]bool{}
	for _, s := range j.helpers {
		gone[s] = true
	}
	if j.before != nil {
		gone[j.before] = true
	}
	s := info.NextStatement(d)
	for s != nil && gone[s] {
		s = info.NextStatement(s)
	}
	return s != nil && s == j.tb.StreamSourceStatement()
}

// replaceToString turns every 'sb.toString()' outside the loop into 'sb'.
func (j *joining) replaceToString(w *writer) {
	info := w.e.info
	loop := j.tb.StreamSourceStatement()
	for _, id := range info.Refs[j.builder] {
		if ast.Contains(loop, id) {
			continue
		}
		parent, child := outerOf(info, id)
		mc, ok := parent.(*ast.MethodCall)
		if !ok || ast.Node(mc.X) != child || mc.Name.Value != "toString" || len(mc.Args) != 0 {
			continue
		}
		w.t.ReplaceNode(w.s, mc, j.builder.Name)
	}
}

// mapParts adds the map step that renders the main parts of an element.
func (j *joining) mapParts(w *writer, ch *chain) {
	info := w.e.info
	v := j.tb.Variable()
	if len(j.main) == 1 && info.IsReferenceTo(j.main[0], v) && isCharSequence(info.VarType(v)) {
		return
	}
	text := j.partsText(w, j.main)
	fn := v.Name + " -> " + text
	if text == "String.valueOf("+v.Name+")" {
		fn = "String::valueOf"
	}
	ch.call("."+mapName(ch.kind, "Stream")+"("+fn+")", "Stream")
}

// args renders the joining() arguments, omitting trailing defaults.
func (j *joining) args(w *writer) string {
	if len(j.delim)+len(j.prefix)+len(j.suffix) == 0 {
		return ""
	}
	delim := `""`
	if len(j.delim) > 0 {
		delim = j.partsText(w, j.delim)
	}
	if len(j.prefix)+len(j.suffix) == 0 {
		return delim
	}
	prefix, suffix := `""`, `""`
	if len(j.prefix) > 0 {
		prefix = j.partsText(w, j.prefix)
	}
	if len(j.suffix) > 0 {
		suffix = j.partsText(w, j.suffix)
	}
	return delim + ", " + prefix + ", " + suffix
}

// partsText renders parts as one String expression.
func (j *joining) partsText(w *writer, parts []ast.Expression) string {
	info := w.e.info
	out := make([]string, len(parts))
	for k, p := range parts {
		stringNext := k > 0 || len(parts) > 1 && analysis.IsString(info.TypeOf(parts[1]))
		out[k] = charSequenceText(w, p, len(parts), stringNext)
	}
	return strings.Join(out, " + ")
}

// charSequenceText renders one appended operand so that, joined by '+' to
// its neighbours, it appends the same chars. stringNext is set when the
// concatenation is already a String at this operand.
func charSequenceText(w *writer, x ast.Expression, count int, stringNext bool) string {
	info := w.e.info
	x = ast.Unparen(x)
	if mc, ok := x.(*ast.MethodCall); ok && mc.Name.Value == "charAt" && len(mc.Args) == 1 && mc.X != nil && analysis.IsString(info.TypeOf(mc.X)) {
		if c, ok := info.Constant(mc.Args[0]); ok && c.Kind == "int" {
			return w.t.Operand(mc.X) + ".substring(" + w.text(mc.Args[0]) + ", " + strconv.FormatInt(c.Int+1, 10) + ")"
		}
	}
	t := info.TypeOf(x)
	if isCharSequence(t) {
		if count > 1 && looserThanPlus(x) {
			return "(" + w.text(x) + ")"
		}
		return w.text(x)
	}
	if !stringNext || analysis.IsArray(t) && analysis.IsPrimitiveNamed(analysis.ComponentType(t), "char") {
		if l, ok := x.(*ast.Literal); ok && l.Kind == ast.CharLit {
			if l.Value == `'"'` {
				return `"\""`
			}
			return `"` + l.Value[1:len(l.Value)-1] + `"`
		}
		return "String.valueOf(" + w.text(x) + ")"
	}
	if looserThanPlus(x) || isAdditive(x) || count == 1 {
		return "(" + w.text(x) + ")"
	}
	return w.text(x)
}

func isCharSequence(t *ast.TypeRef) bool {
	return analysis.IsString(t) || analysis.IsStringBuilder(t) || t != nil && t.Dims == 0 && t.SimpleName() == "CharSequence"
}

// looserThanPlus reports whether x binds more loosely than '+'.
func looserThanPlus(x ast.Expression) bool {
	switch n := x.(type) {
	case *ast.BinaryExpr:
		switch n.Op {
		case "*", "/", "%", "+", "-":
			return false
		}
		return true
	case *ast.ConditionalExpr, *ast.AssignExpr, *ast.LambdaExpr, *ast.InstanceOfExpr, *ast.SwitchExpr:
		return true
	}
	return false
}

func isAdditive(x ast.Expression) bool {
	b, ok := x.(*ast.BinaryExpr)
	return ok && (b.Op == "+" || b.Op == "-")
}
