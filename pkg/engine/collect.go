package engine

import (
	"github.com/sambeau/streamline/pkg/java/analysis"
	"github.com/sambeau/streamline/pkg/java/ast"
)

// gather is a collection or map the loop fills.
type gather struct {
	target *analysis.Variable
	kind   string // "collection", "group" or "map"
	// stages appends the steps producing the gathered values.
	stages func(w *writer, ch *chain)
	// collector returns the Collectors call that builds a fresh target.
	collector func(w *writer, ne *ast.NewExpr) string
	// unmodifiable returns the collector building an unmodifiable map, or
	// "" when there is none.
	unmodifiable func(w *writer) string
	trivial      bool
}

// tryCollect matches loops that only add to a collection or put into a map.
func tryCollect(tb *TerminalBlock, nonFinal []*analysis.Variable) *plan {
	if len(nonFinal) > 0 {
		return nil
	}
	for _, extract := range []func() *gather{tb.adding, tb.grouping, tb.toMap, tb.addingAll} {
		if g := extract(); g != nil {
			return tb.collectPlan(g)
		}
	}
	return nil
}

func (tb *TerminalBlock) collectPlan(g *gather) *plan {
	if g.trivial {
		return &plan{skip: "bulk addAll applies"}
	}
	info := tb.e.info
	ne := freshInit(info, g.target)
	fuse := ne != nil && tb.canFuse(g.target)
	if x := tb.CountExpression(); x != nil {
		// only the size of a fresh list counts added elements
		if g.kind != "collection" || !fuse || !isSizeOf(info, x, g.target) {
			return nil
		}
		switch ne.Type.SimpleName() {
		case "ArrayList", "LinkedList":
		default:
			return nil
		}
	}
	if !fuse {
		if g.kind != "collection" {
			return nil
		}
		return &plan{
			call: "forEach()",
			warn: tb.e.opts.SuggestForEach,
			apply: func(w *writer) string {
				ch := tb.Generate(w)
				g.stages(w, ch)
				ch.call(".forEach("+g.target.Name+"::add)", "")
				return w.replaceLoop(tb, ch, "", ";")
			},
		}
	}
	d := tb.decorate(g, ne)
	call := "collect()"
	if d.final == "toArray" {
		call = "toArray()"
	}
	return &plan{
		call: call,
		warn: true,
		apply: func(w *writer) string {
			ch := tb.Generate(w)
			g.stages(w, ch)
			for _, s := range d.steps {
				ch.call(s, "Stream")
			}
			for i, s := range d.sorts {
				if d.cmps[i] == nil {
					ch.call(".sorted()", "Stream")
				} else {
					ch.call(".sorted("+w.text(d.cmps[i])+")", "Stream")
				}
				w.t.DeleteStatement(w.s, s)
			}
			if d.consumer == nil {
				ch.call(".collect("+g.collector(w, ne)+")", "")
				return w.store(tb, g.target, ch, "", "=", true)
			}
			switch d.final {
			case "toArray":
				if d.elem == nil {
					ch.call(".toArray()", "")
				} else {
					ch.call(".toArray("+d.elem.String()+"[]::new)", "")
				}
			case "copy":
				ch.call(".collect("+w.collectors()+".toCollection("+erasure(d.copyType)+"::new))", "")
			case "unmodifiable":
				if g.kind == "map" {
					ch.call(".collect("+g.unmodifiable(w)+")", "")
				} else {
					ch.call(".collect("+w.collectors()+"."+d.unmod+"())", "")
				}
			}
			text := w.layout(ch, d.consumer.Pos(), "")
			w.t.ReplaceNode(w.s, d.consumer, text)
			w.t.DeleteStatement(w.s, tb.StreamSourceStatement())
			w.t.DeleteStatement(w.s, g.target.Decl)
			return text
		},
	}
}

// freshInit returns the initialiser of v when it creates an empty
// collection or map.
func freshInit(info *analysis.Info, v *analysis.Variable) *ast.NewExpr {
	ne, ok := ast.Unparen(v.Init()).(*ast.NewExpr)
	if !ok || ne.Body != nil || ne.Outer != nil {
		return nil
	}
	switch len(ne.Args) {
	case 0:
		return ne
	case 1:
		// initial capacity
		if t := info.TypeOf(ne.Args[0]); t != nil && analysis.IsPrimitiveNamed(t, "int") {
			return ne
		}
	}
	return nil
}

func isSizeOf(info *analysis.Info, x ast.Expression, v *analysis.Variable) bool {
	mc, ok := ast.Unparen(x).(*ast.MethodCall)
	return ok && mc.Name.Value == "size" && len(mc.Args) == 0 && mc.X != nil && info.IsReferenceTo(mc.X, v)
}

// collectionTarget returns the local collection a call adds to.
func (tb *TerminalBlock) collectionTarget(x ast.Expression) *analysis.Variable {
	info := tb.e.info
	if x == nil {
		return nil
	}
	v := info.VariableOf(x)
	if !tb.isLocalAccumulator(v) || !analysis.IsCollection(info.VarType(v)) || tb.IsReferencedInOperations(v) {
		return nil
	}
	return v
}

// collectionCollector picks toList(), toSet() or toCollection() for a fresh
// collection.
func (tb *TerminalBlock) collectionCollector(target *analysis.Variable) func(w *writer, ne *ast.NewExpr) string {
	return func(w *writer, ne *ast.NewExpr) string {
		decl := ""
		if t := tb.e.info.VarType(target); t != nil {
			decl = t.SimpleName()
		}
		c := w.collectors()
		switch cls := ne.Type.SimpleName(); {
		case cls == "ArrayList" && (decl == "List" || decl == "Collection" || decl == "Iterable"):
			return c + ".toList()"
		case cls == "HashSet" && (decl == "Set" || decl == "Collection" || decl == "Iterable"):
			return c + ".toSet()"
		}
		return c + ".toCollection(" + erasure(ne.Type) + "::new)"
	}
}

// adding matches 'target.add(e)'.
func (tb *TerminalBlock) adding() *gather {
	info := tb.e.info
	mc := tb.SingleMethodCall()
	if mc == nil || mc.Name.Value != "add" || len(mc.Args) != 1 {
		return nil
	}
	target := tb.collectionTarget(mc.X)
	if target == nil {
		return nil
	}
	e := mc.Args[0]
	if info.IsUsedIn(target, e) {
		return nil
	}
	v := tb.Variable()
	g := &gather{
		target:    target,
		kind:      "collection",
		stages:    func(w *writer, ch *chain) { ch.mapTo(w, v, e, "Stream") },
		collector: tb.collectionCollector(target),
	}
	switch tb.Source().(type) {
	case *CollectionSource, *ArraySource:
		g.trivial = !tb.HasOperations() && info.IsReferenceTo(e, v)
	}
	return g
}

// addingAll matches 'target.addAll(c)' and 'Collections.addAll(target, a, b)'.
func (tb *TerminalBlock) addingAll() *gather {
	info := tb.e.info
	mc := tb.SingleMethodCall()
	if mc == nil || mc.Name.Value != "addAll" {
		return nil
	}
	v := tb.Variable()
	var target *analysis.Variable
	var flat func(w *writer) string
	switch {
	case len(mc.Args) == 1:
		target = tb.collectionTarget(mc.X)
		c := mc.Args[0]
		if target == nil || info.IsUsedIn(target, c) {
			return nil
		}
		flat = func(w *writer) string {
			if info.IsReferenceTo(c, v) {
				if t := info.VarType(v); t != nil && t.Name != "var" && !analysis.IsArray(t) {
					return erasure(t) + "::stream"
				}
			}
			return v.Name + " -> " + w.t.Receiver(c) + ".stream()"
		}
	case len(mc.Args) >= 2 && isClassRef(mc.X, "Collections"):
		target = tb.collectionTarget(mc.Args[0])
		elems := mc.Args[1:]
		if target == nil || info.IsUsedIn(target, exprNodes(elems...)...) {
			return nil
		}
		if len(elems) == 1 && !analysis.IsArray(info.TypeOf(elems[0])) {
			return nil
		}
		flat = func(w *writer) string {
			if len(elems) == 1 {
				return v.Name + " -> " + w.class("java.util.Arrays") + ".stream(" + w.text(elems[0]) + ")"
			}
			args := make([]string, len(elems))
			for i, x := range elems {
				args[i] = w.text(x)
			}
			return v.Name + " -> " + w.class("java.util.stream.Stream") + ".of(" + joinArgs(args) + ")"
		}
	default:
		return nil
	}
	return &gather{
		target: target,
		kind:   "collection",
		stages: func(w *writer, ch *chain) {
			if ch.kind != "Stream" {
				ch.convert(v.Name, "Stream")
			}
			ch.call(".flatMap("+flat(w)+")", "Stream")
		},
		collector: tb.collectionCollector(target),
	}
}

func isClassRef(x ast.Expression, name string) bool {
	id, ok := x.(*ast.Identifier)
	return ok && id.Value == name
}

// mapTarget returns the local map a call stores into.
func (tb *TerminalBlock) mapTarget(x ast.Expression) *analysis.Variable {
	info := tb.e.info
	if x == nil {
		return nil
	}
	v := info.VariableOf(x)
	if !tb.isLocalAccumulator(v) || !analysis.IsMap(info.VarType(v)) || tb.IsReferencedInOperations(v) {
		return nil
	}
	return v
}

// grouping matches the three ways of adding to a map of lists:
//
//	map.computeIfAbsent(k, x -> new ArrayList<>()).add(v);
//
//	List<V> l = map.computeIfAbsent(k, x -> new ArrayList<>());
//	l.add(v);
//
//	List<V> l = map.get(k);
//	if (l == null) {
//	    l = new ArrayList<>();
//	    map.put(k, l);
//	}
//	l.add(v);
func (tb *TerminalBlock) grouping() *gather {
	info := tb.e.info
	var target *analysis.Variable
	var key, val ast.Expression
	var inner *ast.NewExpr
	switch len(tb.stmts) {
	case 1:
		add := tb.SingleMethodCall()
		if add == nil || add.Name.Value != "add" || len(add.Args) != 1 {
			return nil
		}
		cia, ok := ast.Unparen(add.X).(*ast.MethodCall)
		if !ok {
			return nil
		}
		target, key, inner = tb.computeIfAbsent(cia)
		val = add.Args[0]
	case 2, 3:
		d, ok := tb.stmts[0].(*ast.LocalVarDecl)
		if !ok || len(d.Vars) != 1 || d.Vars[0].Init == nil {
			return nil
		}
		l := info.DeclaredVariable(d.Vars[0])
		last := len(tb.stmts) - 1
		es, ok := tb.stmts[last].(*ast.ExprStmt)
		if !ok {
			return nil
		}
		add, ok := ast.Unparen(es.X).(*ast.MethodCall)
		if !ok || add.Name.Value != "add" || len(add.Args) != 1 || !info.IsReferenceTo(add.X, l) {
			return nil
		}
		val = add.Args[0]
		init, ok := ast.Unparen(d.Vars[0].Init).(*ast.MethodCall)
		if !ok {
			return nil
		}
		if last == 1 {
			target, key, inner = tb.computeIfAbsent(init)
		} else {
			target, key, inner = tb.getOrPut(init, tb.stmts[1], l)
		}
		if target == nil || info.IsUsedIn(l, val) {
			return nil
		}
	default:
		return nil
	}
	if target == nil || info.IsUsedIn(target, val) {
		return nil
	}
	v := tb.Variable()
	return &gather{
		target: target,
		kind:   "group",
		stages: func(w *writer, ch *chain) {
			if ch.kind != "Stream" {
				ch.convert(v.Name, "Stream")
			}
		},
		collector: func(w *writer, ne *ast.NewExpr) string {
			c := w.collectors()
			down := innerCollector(w, inner)
			plain := down == c+".toList()"
			if !info.IsReferenceTo(val, v) {
				down = c + ".mapping(" + w.lambda(v, val) + ", " + down + ")"
				plain = false
			}
			args := []string{w.lambda(v, key)}
			if ne.Type.SimpleName() != "HashMap" {
				args = append(args, erasure(ne.Type)+"::new", down)
			} else if !plain {
				args = append(args, down)
			}
			return c + ".groupingBy(" + joinArgs(args) + ")"
		},
	}
}

// computeIfAbsent matches 'map.computeIfAbsent(k, x -> new C<>())'.
func (tb *TerminalBlock) computeIfAbsent(mc *ast.MethodCall) (*analysis.Variable, ast.Expression, *ast.NewExpr) {
	if mc.Name.Value != "computeIfAbsent" || len(mc.Args) != 2 {
		return nil, nil, nil
	}
	target := tb.mapTarget(mc.X)
	if target == nil || tb.e.info.IsUsedIn(target, mc.Args[0]) {
		return nil, nil, nil
	}
	lam, ok := ast.Unparen(mc.Args[1]).(*ast.LambdaExpr)
	if !ok || len(lam.Params) != 1 {
		return nil, nil, nil
	}
	body, ok := lam.Body.(ast.Expression)
	if !ok {
		return nil, nil, nil
	}
	ne, ok := ast.Unparen(body).(*ast.NewExpr)
	if !ok || len(ne.Args) != 0 || ne.Body != nil {
		return nil, nil, nil
	}
	return target, mc.Args[0], ne
}

// getOrPut matches 'l = map.get(k)' followed by
// 'if (l == null) { l = new C<>(); map.put(k, l); }'.
func (tb *TerminalBlock) getOrPut(get *ast.MethodCall, s ast.Statement, l *analysis.Variable) (*analysis.Variable, ast.Expression, *ast.NewExpr) {
	info := tb.e.info
	if get.Name.Value != "get" || len(get.Args) != 1 {
		return nil, nil, nil
	}
	target := tb.mapTarget(get.X)
	key := get.Args[0]
	if target == nil || analysis.HasSideEffects(key) || info.IsUsedIn(target, key) {
		return nil, nil, nil
	}
	is, ok := s.(*ast.IfStmt)
	if !ok || is.Else != nil || !isNullCheck(info, is.Cond, l, "==") {
		return nil, nil, nil
	}
	then := flatten(is.Then)
	if len(then) != 2 {
		return nil, nil, nil
	}
	es, ok := then[0].(*ast.ExprStmt)
	if !ok {
		return nil, nil, nil
	}
	a, ok := ast.Unparen(es.X).(*ast.AssignExpr)
	if !ok || a.Op != "=" || !info.IsReferenceTo(a.Left, l) {
		return nil, nil, nil
	}
	ne, ok := ast.Unparen(a.Right).(*ast.NewExpr)
	if !ok || len(ne.Args) != 0 || ne.Body != nil {
		return nil, nil, nil
	}
	es, ok = then[1].(*ast.ExprStmt)
	if !ok {
		return nil, nil, nil
	}
	put, ok := ast.Unparen(es.X).(*ast.MethodCall)
	if !ok || put.Name.Value != "put" || len(put.Args) != 2 || !info.IsReferenceTo(put.X, target) {
		return nil, nil, nil
	}
	if !analysis.Equivalent(ast.Unparen(put.Args[0]), ast.Unparen(key)) || !info.IsReferenceTo(put.Args[1], l) {
		return nil, nil, nil
	}
	return target, key, ne
}

// innerCollector collects the values of one group into collections like ne.
func innerCollector(w *writer, ne *ast.NewExpr) string {
	c := w.collectors()
	switch ne.Type.SimpleName() {
	case "ArrayList":
		return c + ".toList()"
	case "HashSet":
		return c + ".toSet()"
	}
	return c + ".toCollection(" + erasure(ne.Type) + "::new)"
}

// toMap matches 'map.put(k, v)', 'map.putIfAbsent(k, v)' and
// 'map.merge(k, v, f)'.
func (tb *TerminalBlock) toMap() *gather {
	info := tb.e.info
	mc := tb.SingleMethodCall()
	if mc == nil {
		return nil
	}
	switch {
	case (mc.Name.Value == "put" || mc.Name.Value == "putIfAbsent") && len(mc.Args) == 2:
	case mc.Name.Value == "merge" && len(mc.Args) == 3:
	default:
		return nil
	}
	target := tb.mapTarget(mc.X)
	if target == nil || info.IsUsedIn(target, exprNodes(mc.Args...)...) {
		return nil
	}
	v := tb.Variable()
	key, val := mc.Args[0], mc.Args[1]
	if mc.Name.Value == "merge" {
		fn := mc.Args[2]
		if info.IsUsedIn(v, fn) || analysis.HasSideEffects(fn) {
			return nil
		}
	}
	merger := func(w *writer) string {
		if mc.Name.Value == "merge" {
			return w.text(mc.Args[2])
		}
		a := w.freshName(tb.mainLoop, "a")
		b := w.freshName(tb.mainLoop, "b")
		if mc.Name.Value == "put" {
			return w.lambda2(a, b, b)
		}
		return w.lambda2(a, b, a)
	}
	return &gather{
		target: target,
		kind:   "map",
		stages: func(w *writer, ch *chain) {
			if ch.kind != "Stream" {
				ch.convert(v.Name, "Stream")
			}
		},
		collector: func(w *writer, ne *ast.NewExpr) string {
			args := []string{w.lambda(v, key), w.lambda(v, val), merger(w)}
			if ne.Type.SimpleName() != "HashMap" {
				args = append(args, erasure(ne.Type)+"::new")
			}
			return w.collectors() + ".toMap(" + joinArgs(args) + ")"
		},
		unmodifiable: func(w *writer) string {
			return w.collectors() + ".toUnmodifiableMap(" + joinArgs([]string{w.lambda(v, key), w.lambda(v, val), merger(w)}) + ")"
		},
	}
}

// decoration is what the statements after the loop do with a fresh target.
type decoration struct {
	sorts    []ast.Statement
	cmps     []ast.Expression // comparator per sort, nil for natural order
	steps    []string         // stages standing in for the target's own semantics
	consumer ast.Expression   // expression the pipeline replaces, or nil
	final    string           // "toArray", "copy" or "unmodifiable"
	elem     *ast.TypeRef     // array element for toArray, nil for Object[]
	copyType *ast.TypeRef
	unmod    string // Collectors method for unmodifiable collections
}

// decorate folds the sorts that follow the loop and, when the target is
// used only once more, the statement that consumes it.
func (tb *TerminalBlock) decorate(g *gather, ne *ast.NewExpr) *decoration {
	info := tb.e.info
	d := &decoration{}
	var last ast.Node = tb.StreamSourceStatement()
	if g.kind == "collection" && analysis.IsList(info.VarType(g.target)) {
		for {
			next := info.NextStatement(last)
			cmp, ok := tb.sortOf(next, g.target)
			if !ok {
				break
			}
			d.sorts = append(d.sorts, next)
			d.cmps = append(d.cmps, cmp)
			last = next
		}
	}
	d.findConsumer(tb, g, ne, info.NextStatement(last))
	return d
}

// sortOf matches 'Collections.sort(v[, cmp])' and 'v.sort(cmp)'.
func (tb *TerminalBlock) sortOf(s ast.Statement, v *analysis.Variable) (ast.Expression, bool) {
	info := tb.e.info
	es, ok := s.(*ast.ExprStmt)
	if !ok {
		return nil, false
	}
	mc, ok := ast.Unparen(es.X).(*ast.MethodCall)
	if !ok || mc.Name.Value != "sort" {
		return nil, false
	}
	var cmp ast.Expression
	switch {
	case isClassRef(mc.X, "Collections") && len(mc.Args) >= 1 && len(mc.Args) <= 2 && info.IsReferenceTo(mc.Args[0], v):
		if len(mc.Args) == 2 {
			cmp = mc.Args[1]
		}
	case mc.X != nil && info.IsReferenceTo(mc.X, v) && len(mc.Args) == 1:
		cmp = mc.Args[0]
	default:
		return nil, false
	}
	if cmp != nil {
		if info.IsUsedIn(v, cmp) || analysis.HasSideEffects(cmp) {
			return nil, false
		}
		if analysis.IsNullLiteral(cmp) {
			cmp = nil
		}
	}
	return cmp, true
}

// vanishingSteps returns the stages that keep the semantics of a collection
// of class cls once the collection itself is gone.
func vanishingSteps(cls string) ([]string, bool) {
	switch cls {
	case "ArrayList", "LinkedList":
		return nil, true
	case "HashSet", "LinkedHashSet":
		return []string{".distinct()"}, true
	case "TreeSet":
		return []string{".distinct()", ".sorted()"}, true
	}
	return nil, false
}

var unmodifiableCollectors = map[string]string{
	"unmodifiableList":       "toUnmodifiableList",
	"unmodifiableSet":        "toUnmodifiableSet",
	"unmodifiableCollection": "toUnmodifiableList",
}

func (d *decoration) findConsumer(tb *TerminalBlock, g *gather, ne *ast.NewExpr, s ast.Statement) {
	info := tb.e.info
	if s == nil || len(ne.Args) != 0 {
		return
	}
	decl, ok := g.target.Decl.(*ast.LocalVarDecl)
	if !ok || len(decl.Vars) != 1 {
		return
	}
	level := tb.e.opts.LanguageLevel
	t := g.target
	var found ast.Expression
	var refs int
	ast.Inspect(s, func(n ast.Node) bool {
		if found != nil {
			return false
		}
		switch x := n.(type) {
		case *ast.LambdaExpr, *ast.ClassDecl:
			// runs later, if at all
			return false
		case *ast.MethodCall:
			switch {
			case g.kind == "collection" && x.Name.Value == "toArray" && x.X != nil && info.IsReferenceTo(x.X, t):
				switch len(x.Args) {
				case 0:
					found, refs, d.final = x, 1, "toArray"
				case 1:
					na, ok := ast.Unparen(x.Args[0]).(*ast.NewArrayExpr)
					if !ok || na.Init != nil || len(na.Dims) != 1 || na.ExtraDims != 0 {
						return true
					}
					switch {
					case info.IsIntegerConstant(na.Dims[0], 0):
						found, refs = x, 1
					case isSizeOf(info, na.Dims[0], t):
						found, refs = x, 2
					default:
						return true
					}
					d.final, d.elem = "toArray", na.Elem
				}
			case isClassRef(x.X, "Collections") && len(x.Args) == 1 && info.IsReferenceTo(x.Args[0], t) && level >= 10:
				if g.kind == "map" && x.Name.Value == "unmodifiableMap" && ne.Type.SimpleName() == "HashMap" {
					found, refs, d.final = x, 1, "unmodifiable"
				} else if c, ok := unmodifiableCollectors[x.Name.Value]; ok && g.kind == "collection" {
					found, refs, d.final, d.unmod = x, 1, "unmodifiable", c
				}
			}
		case *ast.NewExpr:
			if g.kind == "collection" && x.Body == nil && len(x.Args) == 1 && info.IsReferenceTo(x.Args[0], t) && x.Type.SimpleName() == "ArrayList" {
				found, refs, d.final, d.copyType = x, 1, "copy", x.Type
			}
		}
		return true
	})
	if found == nil {
		d.final = ""
		return
	}
	// every other use of the target must disappear with the loop
	inLoop := len(info.ReferencesIn(t, tb.mainLoop))
	inSorts := 0
	for _, st := range d.sorts {
		inSorts += len(info.ReferencesIn(t, st))
	}
	if len(info.Refs[t]) != inLoop+inSorts+refs || len(info.ReferencesIn(t, found)) != refs {
		d.final = ""
		return
	}
	if g.kind == "collection" {
		steps, ok := vanishingSteps(ne.Type.SimpleName())
		if !ok {
			d.final = ""
			return
		}
		d.steps = steps
	}
	d.consumer = found
}
