package engine

import (
	"github.com/sambeau/streamline/pkg/java/analysis"
	"github.com/sambeau/streamline/pkg/java/ast"
)

// source is the first stage of every pipeline.
type source struct {
	v    *analysis.Variable
	loop ast.Statement
}

func (s *source) Variable() *analysis.Variable { return s.v }
func (s *source) cleanUp(*writer)              {}

func (s *source) IsWriteAllowed(*analysis.Variable, *ast.Identifier) bool { return false }

func (s *source) CanReassignVariable(v *analysis.Variable) bool {
	return !v.Final
}

// CollectionSource iterates a java.util.Collection.
type CollectionSource struct {
	source
	Collection ast.Expression
}

func (s *CollectionSource) Name() string                  { return "stream" }
func (s *CollectionSource) Expressions() []ast.Expression { return []ast.Expression{s.Collection} }

func (s *CollectionSource) render(w *writer, ch *chain) {
	ch.head = w.t.Receiver(s.Collection) + ".stream()"
	ch.kind = "Stream"
	if kind := w.e.kindOf(s.v); kind != "Stream" {
		ch.call("."+mapName("Stream", kind)+"("+s.v.Name+" -> "+s.v.Name+")", kind)
		ch.unbox = len(ch.calls) - 1
	}
}

// ArraySource iterates an array.
type ArraySource struct {
	source
	Array ast.Expression
}

func (s *ArraySource) Name() string                  { return "stream" }
func (s *ArraySource) Expressions() []ast.Expression { return []ast.Expression{s.Array} }

func (s *ArraySource) render(w *writer, ch *chain) {
	info := w.e.info
	elem := analysis.ComponentType(info.TypeOf(s.Array))
	kind := kindOfType(elem)
	if na, ok := ast.Unparen(s.Array).(*ast.NewArrayExpr); ok && na.Init != nil && len(na.Dims) == 0 && na.ExtraDims == 0 {
		args := make([]string, len(na.Init.Elems))
		for i, x := range na.Init.Elems {
			args[i] = w.text(x)
		}
		cls := w.class("java.util.stream." + kind)
		if kind == "Stream" {
			cls += ".<" + elem.String() + ">"
		} else {
			cls += "."
		}
		ch.head = cls + "of(" + joinArgs(args) + ")"
	} else {
		ch.head = w.class("java.util.Arrays") + ".stream(" + w.text(s.Array) + ")"
	}
	ch.kind = kind
	if want := w.e.kindOf(s.v); want != kind {
		ch.convert(s.v.Name, want)
	}
}

func joinArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += ", "
		}
		out += a
	}
	return out
}

// CountingSource iterates an int or long counter over a range.
type CountingSource struct {
	source
	Init      ast.Expression
	Bound     ast.Expression
	Inclusive bool
	init      string // replacement initial value
}

func (s *CountingSource) Name() string { return "range" }

func (s *CountingSource) Expressions() []ast.Expression {
	return []ast.Expression{s.Init, s.Bound}
}

func (s *CountingSource) IsWriteAllowed(v *analysis.Variable, id *ast.Identifier) bool {
	fs := s.loop.(*ast.ForStmt)
	for _, u := range fs.Update {
		if ast.Contains(u, id) {
			return v == s.v
		}
	}
	return false
}

func (s *CountingSource) CanReassignVariable(*analysis.Variable) bool { return false }

// withInitializer returns a copy starting at init.
func (s *CountingSource) withInitializer(init string) *CountingSource {
	c := *s
	c.init = init
	return &c
}

func (s *CountingSource) render(w *writer, ch *chain) {
	kind := "IntStream"
	if analysis.IsPrimitiveNamed(w.e.info.VarType(s.v), "long") {
		kind = "LongStream"
	}
	method := "range"
	if s.Inclusive {
		method = "rangeClosed"
	}
	init := s.init
	if init == "" {
		init = w.text(s.Init)
	}
	ch.head = w.class("java.util.stream."+kind) + "." + method + "(" + init + ", " + w.text(s.Bound) + ")"
	ch.kind = kind
}

// IterateSource generates elements with Stream.iterate.
type IterateSource struct {
	source
	Init   ast.Expression
	Cond   ast.Expression // nil for an endless loop
	Update ast.Statement
}

func (s *IterateSource) Name() string { return "iterate" }

func (s *IterateSource) Expressions() []ast.Expression {
	out := []ast.Expression{s.Init}
	if s.Cond != nil {
		out = append(out, s.Cond)
	}
	return append(out, s.Update.(*ast.ExprStmt).X)
}

func (s *IterateSource) IsWriteAllowed(v *analysis.Variable, id *ast.Identifier) bool {
	return v == s.v && ast.Contains(s.Update, id)
}

func (s *IterateSource) CanReassignVariable(*analysis.Variable) bool { return false }

func (s *IterateSource) render(w *writer, ch *chain) {
	kind := w.e.kindOf(s.v)
	head := w.class("java.util.stream."+kind) + ".iterate(" + w.text(s.Init) + ", "
	if s.Cond != nil {
		head += w.lambda(s.v, s.Cond) + ", "
	}
	ch.head = head + s.v.Name + " -> " + w.nextValue(s.v, s.Update.(*ast.ExprStmt).X) + ")"
	ch.kind = kind
}

// nextValue renders the value an update expression stores into v.
func (w *writer) nextValue(v *analysis.Variable, x ast.Expression) string {
	switch u := ast.Unparen(x).(type) {
	case *ast.AssignExpr:
		if u.Op == "=" {
			return w.text(u.Right)
		}
		return v.Name + " " + u.Op[:len(u.Op)-1] + " " + w.t.Operand(u.Right)
	case *ast.UnaryExpr:
		return v.Name + " " + u.Op[:1] + " 1"
	case *ast.PostfixExpr:
		return v.Name + " " + u.Op[:1] + " 1"
	}
	return w.text(x)
}

// ReaderSource streams the lines of a BufferedReader.
type ReaderSource struct {
	source
	Reader ast.Expression
	Decl   *ast.LocalVarDecl // declaration of the line variable outside the loop
}

func (s *ReaderSource) Name() string                  { return "lines" }
func (s *ReaderSource) Expressions() []ast.Expression { return []ast.Expression{s.Reader} }

func (s *ReaderSource) IsWriteAllowed(v *analysis.Variable, id *ast.Identifier) bool {
	return v == s.v && ast.Contains(s.loop, id) && !ast.Contains(ast.LoopBody(s.loop), id)
}

func (s *ReaderSource) CanReassignVariable(*analysis.Variable) bool { return false }

func (s *ReaderSource) render(w *writer, ch *chain) {
	ch.head = w.t.Receiver(s.Reader) + ".lines()"
	ch.kind = "Stream"
}

func (s *ReaderSource) cleanUp(w *writer) {
	if s.Decl != nil {
		w.t.DeleteStatement(w.s, s.Decl)
	}
}

// convert appends an identity conversion of elements named v to kind.
func (ch *chain) convert(v, to string) {
	from := ch.kind
	switch {
	case from == to:
	case to == "Stream":
		ch.call(".boxed()", to)
	case from == "IntStream" && to == "LongStream":
		ch.call(".asLongStream()", to)
	case (from == "IntStream" || from == "LongStream") && to == "DoubleStream":
		ch.call(".asDoubleStream()", to)
	default:
		ch.call("."+mapName(from, to)+"("+v+" -> "+v+")", to)
	}
}

// sourceOf recognises the stream source of a loop.
func (e *Engine) sourceOf(loop ast.Statement) Operation {
	switch l := loop.(type) {
	case *ast.ForEachStmt:
		return e.forEachSource(l)
	case *ast.ForStmt:
		if s := e.readerSource(l); s != nil {
			return s
		}
		if s := e.countingSource(l); s != nil {
			return s
		}
		if s := e.iterateSource(l); s != nil {
			return s
		}
	case *ast.WhileStmt:
		if s := e.readerSource(l); s != nil {
			return s
		}
	}
	return nil
}

func (e *Engine) forEachSource(l *ast.ForEachStmt) Operation {
	info := e.info
	v := info.ParamVariable(l.Var)
	if v == nil {
		return nil
	}
	t := info.TypeOf(l.Iterable)
	if t == nil {
		return nil
	}
	vt := info.VarType(v)
	if analysis.IsArray(t) {
		elem := analysis.ComponentType(t)
		if analysis.IsPrimitive(elem) && !analysis.IsSupportedStreamElement(elem) {
			return nil
		}
		if vt != nil && analysis.IsPrimitive(vt) && !analysis.IsSupportedStreamElement(vt) {
			return nil
		}
		return &ArraySource{source: source{v: v, loop: l}, Array: l.Iterable}
	}
	if !analysis.IsCollection(t) || analysis.ElementType(t) == nil {
		return nil
	}
	if vt != nil && analysis.IsPrimitive(vt) && !analysis.IsSupportedStreamElement(vt) {
		return nil
	}
	return &CollectionSource{source: source{v: v, loop: l}, Collection: l.Iterable}
}

// countingSource matches for (int i = a; i < b; i++).
func (e *Engine) countingSource(l *ast.ForStmt) Operation {
	info := e.info
	v, init := loopCounter(info, l)
	if v == nil || l.Cond == nil || len(l.Update) != 1 {
		return nil
	}
	if t := info.VarType(v); !analysis.IsPrimitiveNamed(t, "int") && !analysis.IsPrimitiveNamed(t, "long") {
		return nil
	}
	cmp, ok := ast.Unparen(l.Cond).(*ast.BinaryExpr)
	if !ok {
		return nil
	}
	var bound ast.Expression
	inclusive := false
	switch {
	case info.IsReferenceTo(cmp.Left, v) && (cmp.Op == "<" || cmp.Op == "<="):
		bound, inclusive = cmp.Right, cmp.Op == "<="
	case info.IsReferenceTo(cmp.Right, v) && (cmp.Op == ">" || cmp.Op == ">="):
		bound, inclusive = cmp.Left, cmp.Op == ">="
	default:
		return nil
	}
	if !isIncrement(info, l.Update[0], v, 1) {
		return nil
	}
	if analysis.HasSideEffects(bound) || info.IsUsedIn(v, bound) {
		return nil
	}
	// the bound is evaluated once by range()
	for _, bv := range info.VariablesIn(bound) {
		if info.IsWrittenIn(bv, l.Body) {
			return nil
		}
	}
	if mutatesReceiverOf(info, bound, l.Body) {
		return nil
	}
	if info.IsWrittenIn(v, l.Body) {
		return nil
	}
	return &CountingSource{source: source{v: v, loop: l}, Init: init, Bound: bound, Inclusive: inclusive}
}

// loopCounter returns the single variable declared in a for initializer.
func loopCounter(info *analysis.Info, l *ast.ForStmt) (*analysis.Variable, ast.Expression) {
	if len(l.Init) != 1 {
		return nil, nil
	}
	d, ok := l.Init[0].(*ast.LocalVarDecl)
	if !ok || len(d.Vars) != 1 || d.Vars[0].Init == nil {
		return nil, nil
	}
	return info.DeclaredVariable(d.Vars[0]), d.Vars[0].Init
}

// isIncrement matches v++, ++v, v += step and v = v + step.
func isIncrement(info *analysis.Info, s ast.Statement, v *analysis.Variable, step int64) bool {
	es, ok := s.(*ast.ExprStmt)
	if !ok {
		return false
	}
	switch x := ast.Unparen(es.X).(type) {
	case *ast.PostfixExpr:
		return step == 1 && x.Op == "++" && info.IsReferenceTo(x.X, v)
	case *ast.UnaryExpr:
		return step == 1 && x.Op == "++" && info.IsReferenceTo(x.X, v)
	case *ast.AssignExpr:
		if !info.IsReferenceTo(x.Left, v) {
			return false
		}
		if x.Op == "+=" {
			return info.IsIntegerConstant(x.Right, step)
		}
		if x.Op == "=" {
			b, ok := ast.Unparen(x.Right).(*ast.BinaryExpr)
			return ok && b.Op == "+" &&
				(info.IsReferenceTo(b.Left, v) && info.IsIntegerConstant(b.Right, step) ||
					info.IsReferenceTo(b.Right, v) && info.IsIntegerConstant(b.Left, step))
		}
	}
	return false
}

var mutators = map[string]bool{
	"add": true, "remove": true, "clear": true, "addAll": true, "removeAll": true,
	"retainAll": true, "removeIf": true, "set": true, "put": true, "append": true,
	"insert": true, "delete": true, "setLength": true, "deleteCharAt": true, "poll": true,
	"push": true, "pop": true, "offer": true,
}

// mutatesReceiverOf reports whether body calls a mutating method on a
// variable whose size the bound reads, as in i < list.size().
func mutatesReceiverOf(info *analysis.Info, bound ast.Expression, body ast.Node) bool {
	var recvs []*analysis.Variable
	ast.Inspect(bound, func(n ast.Node) bool {
		if mc, ok := n.(*ast.MethodCall); ok && mc.X != nil {
			if v := info.VariableOf(mc.X); v != nil {
				recvs = append(recvs, v)
			}
		}
		return true
	})
	found := false
	ast.Inspect(body, func(n ast.Node) bool {
		if mc, ok := n.(*ast.MethodCall); ok && mc.X != nil && mutators[mc.Name.Value] {
			for _, v := range recvs {
				if info.IsReferenceTo(mc.X, v) {
					found = true
				}
			}
		}
		return !found
	})
	return found
}

// iterateSource matches for (T v = init; [cond]; v = f(v)).
func (e *Engine) iterateSource(l *ast.ForStmt) Operation {
	info := e.info
	v, init := loopCounter(info, l)
	if v == nil || len(l.Update) != 1 {
		return nil
	}
	t := info.VarType(v)
	if t == nil || analysis.IsPrimitive(t) && !analysis.IsSupportedStreamElement(t) {
		return nil
	}
	if l.Cond != nil && e.opts.LanguageLevel < 9 {
		return nil
	}
	es, ok := l.Update[0].(*ast.ExprStmt)
	if !ok {
		return nil
	}
	switch u := ast.Unparen(es.X).(type) {
	case *ast.AssignExpr:
		if !info.IsReferenceTo(u.Left, v) {
			return nil
		}
		if u.Op != "=" && !analysis.IsPrimitive(t) {
			return nil
		}
	case *ast.UnaryExpr:
		if (u.Op != "++" && u.Op != "--") || !info.IsReferenceTo(u.X, v) || !analysis.IsPrimitive(t) {
			return nil
		}
	case *ast.PostfixExpr:
		if !info.IsReferenceTo(u.X, v) || !analysis.IsPrimitive(t) {
			return nil
		}
	default:
		return nil
	}
	if l.Cond != nil && analysis.HasSideEffects(l.Cond) {
		return nil
	}
	if info.IsWrittenIn(v, l.Body) {
		return nil
	}
	return &IterateSource{source: source{v: v, loop: l}, Init: init, Cond: l.Cond, Update: es}
}

// readerSource matches the three ways of reading lines to exhaustion.
func (e *Engine) readerSource(loop ast.Statement) Operation {
	info := e.info
	var (
		v      *analysis.Variable
		reader ast.Expression
		decl   *ast.LocalVarDecl
	)
	switch l := loop.(type) {
	case *ast.WhileStmt:
		// while ((line = r.readLine()) != null)
		v, reader = e.assignedLine(l.Cond)
		if v == nil || v.Kind != analysis.LocalVar {
			return nil
		}
		d, ok := v.Decl.(*ast.LocalVarDecl)
		if !ok || len(d.Vars) != 1 || d.Vars[0].Init != nil && !analysis.IsNullLiteral(d.Vars[0].Init) {
			return nil
		}
		for _, id := range info.Refs[v] {
			if !ast.Contains(l, id) {
				return nil
			}
		}
		decl = d
	case *ast.ForStmt:
		if len(l.Init) != 1 || l.Cond == nil {
			return nil
		}
		d, ok := l.Init[0].(*ast.LocalVarDecl)
		if !ok || len(d.Vars) != 1 {
			return nil
		}
		v = info.DeclaredVariable(d.Vars[0])
		if init := d.Vars[0].Init; init != nil {
			// for (String line = r.readLine(); line != null; line = r.readLine())
			reader = readLineReceiver(init)
			if reader == nil || len(l.Update) != 1 || !isNullCheck(info, l.Cond, v, "!=") {
				return nil
			}
			es, ok := l.Update[0].(*ast.ExprStmt)
			if !ok {
				return nil
			}
			a, ok := es.X.(*ast.AssignExpr)
			if !ok || a.Op != "=" || !info.IsReferenceTo(a.Left, v) || !analysis.Equivalent(readLineReceiver(a.Right), reader) {
				return nil
			}
		} else {
			// for (String line; (line = r.readLine()) != null;)
			var lv *analysis.Variable
			lv, reader = e.assignedLine(l.Cond)
			if lv != v || len(l.Update) != 0 {
				return nil
			}
		}
	default:
		return nil
	}
	if v == nil || !analysis.IsString(info.VarType(v)) || reader == nil || !analysis.IsSimple(reader) {
		return nil
	}
	if info.IsWrittenIn(v, ast.LoopBody(loop)) {
		return nil
	}
	return &ReaderSource{source: source{v: v, loop: loop}, Reader: reader, Decl: decl}
}

// assignedLine matches (line = r.readLine()) != null.
func (e *Engine) assignedLine(cond ast.Expression) (*analysis.Variable, ast.Expression) {
	b, ok := ast.Unparen(cond).(*ast.BinaryExpr)
	if !ok || b.Op != "!=" {
		return nil, nil
	}
	x := b.Left
	if analysis.IsNullLiteral(x) {
		x = b.Right
	} else if !analysis.IsNullLiteral(b.Right) {
		return nil, nil
	}
	a, ok := ast.Unparen(x).(*ast.AssignExpr)
	if !ok || a.Op != "=" {
		return nil, nil
	}
	r := readLineReceiver(a.Right)
	if r == nil {
		return nil, nil
	}
	return e.info.VariableOf(a.Left), r
}

func readLineReceiver(x ast.Expression) ast.Expression {
	mc, ok := ast.Unparen(x).(*ast.MethodCall)
	if !ok || mc.Name.Value != "readLine" || mc.X == nil || len(mc.Args) != 0 {
		return nil
	}
	return mc.X
}
