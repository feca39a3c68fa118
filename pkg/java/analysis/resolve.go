// Package analysis answers semantic questions about a parsed Java tree:
// which declaration a name refers to, what type an expression has, whether
// an expression folds to a constant, and how control leaves a statement.
//
// The answers are heuristic. Anything the package cannot prove is reported
// as unknown so that callers can fail closed.
package analysis

import (
	"github.com/sambeau/streamline/pkg/java/ast"
)

// VarKind classifies where a variable is declared.
type VarKind int

const (
	LocalVar VarKind = iota
	ParamVar
	LambdaParamVar
	CatchParamVar
	PatternVar
	FieldVar
)

func (k VarKind) String() string {
	switch k {
	case LocalVar:
		return "local"
	case ParamVar:
		return "parameter"
	case LambdaParamVar:
		return "lambda parameter"
	case CatchParamVar:
		return "catch parameter"
	case PatternVar:
		return "pattern variable"
	case FieldVar:
		return "field"
	}
	return "unknown"
}

// Variable is a declared local, parameter or field.
type Variable struct {
	Name       string
	Type       *ast.TypeRef // as written; nil for implicit lambda parameters
	Kind       VarKind
	Final      bool
	Decl       ast.Node           // *ast.LocalVarDecl, *ast.Param, *ast.FieldDecl or *ast.InstanceOfExpr
	Declarator *ast.VarDeclarator // locals and fields only
	Scope      ast.Node           // the node bounding the variable's visibility
	Owner      ast.Node           // innermost method, lambda, initializer or class
}

// Init returns the declared initializer, or nil.
func (v *Variable) Init() ast.Expression {
	if v.Declarator == nil {
		return nil
	}
	return v.Declarator.Init
}

// IsLocal reports whether the variable lives on the stack of its owner.
func (v *Variable) IsLocal() bool {
	return v.Kind != FieldVar
}

func (v *Variable) String() string { return v.Name }

// Info holds the result of resolving one tree.
type Info struct {
	Root ast.Node
	Src  string

	Uses    map[*ast.Identifier]*Variable
	Refs    map[*Variable][]*ast.Identifier
	Vars    []*Variable
	Parents map[ast.Node]ast.Node

	methods    map[string][]*ast.MethodDecl
	classes    map[string]*ast.ClassDecl
	declarator map[*ast.VarDeclarator]*Variable
	params     map[*ast.Param]*Variable
	types      map[*Variable]*ast.TypeRef
}

type frame struct {
	vars  map[string]*Variable
	node  ast.Node
	owner ast.Node
	class *ast.ClassDecl
}

type resolver struct {
	info   *Info
	frames []*frame
}

// Resolve builds name and parent information for the tree rooted at root.
// src must be the text the tree was parsed from.
func Resolve(root ast.Node, src string) *Info {
	info := &Info{
		Root:       root,
		Src:        src,
		Uses:       make(map[*ast.Identifier]*Variable),
		Refs:       make(map[*Variable][]*ast.Identifier),
		Parents:    make(map[ast.Node]ast.Node),
		methods:    make(map[string][]*ast.MethodDecl),
		classes:    make(map[string]*ast.ClassDecl),
		declarator: make(map[*ast.VarDeclarator]*Variable),
		params:     make(map[*ast.Param]*Variable),
		types:      make(map[*Variable]*ast.TypeRef),
	}
	info.linkParents(root, nil)

	r := &resolver{info: info}
	r.push(root, root, nil)
	r.visit(root)
	return info
}

func (info *Info) linkParents(n, parent ast.Node) {
	if parent != nil {
		info.Parents[n] = parent
	}
	switch d := n.(type) {
	case *ast.ClassDecl:
		if d.Name != nil {
			info.classes[d.Name.Value] = d
		}
	case *ast.MethodDecl:
		info.methods[d.Name.Value] = append(info.methods[d.Name.Value], d)
	}
	for _, c := range ast.Children(n) {
		info.linkParents(c, n)
	}
}

func (r *resolver) push(node, owner ast.Node, class *ast.ClassDecl) *frame {
	if class == nil && len(r.frames) > 0 {
		class = r.top().class
	}
	f := &frame{vars: make(map[string]*Variable), node: node, owner: owner, class: class}
	r.frames = append(r.frames, f)
	return f
}

func (r *resolver) pop() { r.frames = r.frames[:len(r.frames)-1] }

func (r *resolver) top() *frame { return r.frames[len(r.frames)-1] }

func (r *resolver) owner() ast.Node { return r.top().owner }

func (r *resolver) declare(v *Variable) {
	r.top().vars[v.Name] = v
	r.info.Vars = append(r.info.Vars, v)
	if v.Declarator != nil {
		r.info.declarator[v.Declarator] = v
	}
	if p, ok := v.Decl.(*ast.Param); ok {
		r.info.params[p] = v
	}
}

func (r *resolver) lookup(name string) *Variable {
	for i := len(r.frames) - 1; i >= 0; i-- {
		if v, ok := r.frames[i].vars[name]; ok {
			return v
		}
	}
	return nil
}

func (r *resolver) use(id *ast.Identifier, v *Variable) {
	if v == nil {
		return
	}
	r.info.Uses[id] = v
	r.info.Refs[v] = append(r.info.Refs[v], id)
}

func (r *resolver) visitAll(nodes []ast.Node) {
	for _, n := range nodes {
		r.visit(n)
	}
}

func (r *resolver) visitStmts(stmts []ast.Statement) {
	for _, s := range stmts {
		r.visit(s)
	}
}

func (r *resolver) visit(n ast.Node) {
	switch n := n.(type) {
	case nil:
		return
	case *ast.CompilationUnit:
		for _, t := range n.Types {
			r.visit(t)
		}
	case *ast.ClassDecl:
		r.visitClass(n)
	case *ast.MethodDecl:
		r.push(n, n, nil)
		for _, p := range n.Params {
			r.declare(&Variable{Name: p.Name.Value, Type: p.Type, Kind: ParamVar, Final: p.Modifiers.Has("final"), Decl: p, Scope: n, Owner: n})
		}
		if n.Body != nil {
			r.visitStmts(n.Body.Stmts)
		}
		r.pop()
	case *ast.InitializerDecl:
		r.push(n, n, nil)
		if n.Body != nil {
			r.visitStmts(n.Body.Stmts)
		}
		r.pop()
	case *ast.FieldDecl:
		for _, vd := range n.Vars {
			r.visit(vd.Init)
		}
	case *ast.EnumConstant:
		r.visitExprs(n.Args)
		if n.Body != nil {
			r.visit(n.Body)
		}
	case *ast.Snippet:
		r.visitStmts(n.Stmts)
	case *ast.BlockStmt:
		r.push(n, r.owner(), nil)
		r.visitStmts(n.Stmts)
		r.pop()
	case *ast.LocalVarDecl:
		r.declareLocals(n)
	case *ast.ForStmt:
		r.push(n, r.owner(), nil)
		r.visitStmts(n.Init)
		r.visit(n.Cond)
		r.visitStmts(n.Update)
		r.visit(n.Body)
		r.pop()
	case *ast.ForEachStmt:
		r.visit(n.Iterable)
		r.push(n, r.owner(), nil)
		r.declare(&Variable{Name: n.Var.Name.Value, Type: n.Var.Type, Kind: LocalVar, Final: n.Var.Modifiers.Has("final"), Decl: n.Var, Scope: n, Owner: r.owner()})
		r.visit(n.Body)
		r.pop()
	case *ast.SwitchStmt:
		r.visit(n.Tag)
		r.push(n, r.owner(), nil)
		for _, c := range n.Cases {
			r.visitExprs(c.Exprs)
			r.visitStmts(c.Body)
		}
		r.pop()
	case *ast.SwitchExpr:
		r.visit(n.Tag)
		r.push(n, r.owner(), nil)
		for _, c := range n.Cases {
			r.visitExprs(c.Exprs)
			r.visitStmts(c.Body)
		}
		r.pop()
	case *ast.TryStmt:
		r.push(n, r.owner(), nil)
		r.visitStmts(n.Resources)
		if n.Body != nil {
			r.visit(n.Body)
		}
		r.pop()
		for _, c := range n.Catches {
			r.push(c, r.owner(), nil)
			r.declare(&Variable{Name: c.Param.Name.Value, Type: c.Param.Type, Kind: CatchParamVar, Decl: c.Param, Scope: c, Owner: r.owner()})
			if c.Body != nil {
				r.visitStmts(c.Body.Stmts)
			}
			r.pop()
		}
		if n.Finally != nil {
			r.visit(n.Finally)
		}
	case *ast.LambdaExpr:
		r.push(n, n, nil)
		for _, p := range n.Params {
			r.declare(&Variable{Name: p.Name.Value, Type: p.Type, Kind: LambdaParamVar, Final: p.Modifiers.Has("final"), Decl: p, Scope: n, Owner: n})
		}
		if body, ok := n.Body.(*ast.BlockStmt); ok {
			r.visitStmts(body.Stmts)
		} else {
			r.visit(n.Body)
		}
		r.pop()
	case *ast.InstanceOfExpr:
		r.visit(n.X)
		if n.Binding != nil {
			r.declare(&Variable{Name: n.Binding.Value, Type: n.Type, Kind: PatternVar, Decl: n, Scope: r.top().node, Owner: r.owner()})
		}
	case *ast.Identifier:
		r.use(n, r.lookup(n.Value))
	case *ast.FieldAccess:
		r.visit(n.X)
		if te, ok := n.X.(*ast.ThisExpr); ok && te.Qualifier == "" {
			r.use(n.Name, r.lookupField(n.Name.Value))
		}
	case *ast.MethodRef:
		if x, ok := n.X.(ast.Expression); ok {
			r.visit(x)
		}
	default:
		r.visitAll(ast.Children(n))
	}
}

func (r *resolver) visitExprs(xs []ast.Expression) {
	for _, x := range xs {
		r.visit(x)
	}
}

func (r *resolver) visitClass(cd *ast.ClassDecl) {
	f := r.push(cd, cd, cd)
	for _, c := range cd.Components {
		v := &Variable{Name: c.Name.Value, Type: c.Type, Kind: FieldVar, Final: true, Decl: c, Scope: cd, Owner: cd}
		f.vars[v.Name] = v
		r.info.Vars = append(r.info.Vars, v)
		r.info.params[c] = v
	}
	for _, m := range cd.Members {
		fd, ok := m.(*ast.FieldDecl)
		if !ok {
			continue
		}
		for _, vd := range fd.Vars {
			v := &Variable{Name: vd.Name.Value, Type: withDims(fd.Type, vd.Dims), Kind: FieldVar, Final: fd.Modifiers.Has("final"), Decl: fd, Declarator: vd, Scope: cd, Owner: cd}
			f.vars[v.Name] = v
			r.info.Vars = append(r.info.Vars, v)
			r.info.declarator[vd] = v
		}
	}
	for _, c := range cd.Constants {
		r.visit(c)
	}
	r.visitAll(cd.Members)
	r.pop()
}

func (r *resolver) lookupField(name string) *Variable {
	for i := len(r.frames) - 1; i >= 0; i-- {
		f := r.frames[i]
		if _, ok := f.node.(*ast.ClassDecl); !ok {
			continue
		}
		if v, ok := f.vars[name]; ok {
			return v
		}
		return nil
	}
	return nil
}

func (r *resolver) declareLocals(d *ast.LocalVarDecl) {
	scope := r.top().node
	for _, vd := range d.Vars {
		r.visit(vd.Init)
		r.declare(&Variable{
			Name:       vd.Name.Value,
			Type:       withDims(d.Type, vd.Dims),
			Kind:       LocalVar,
			Final:      d.Modifiers.Has("final"),
			Decl:       d,
			Declarator: vd,
			Scope:      scope,
			Owner:      r.owner(),
		})
	}
}

func withDims(t *ast.TypeRef, dims int) *ast.TypeRef {
	if t == nil || dims == 0 {
		return t
	}
	c := *t
	c.Dims += dims
	return &c
}

// ---------------------------------------------------------------------------
// Queries

// VariableOf returns the variable an expression names directly, ignoring
// parentheses, or nil.
func (info *Info) VariableOf(x ast.Expression) *Variable {
	switch n := ast.Unparen(x).(type) {
	case *ast.Identifier:
		return info.Uses[n]
	case *ast.FieldAccess:
		return info.Uses[n.Name]
	}
	return nil
}

// IsReferenceTo reports whether x is a plain reference to v.
func (info *Info) IsReferenceTo(x ast.Expression, v *Variable) bool {
	return v != nil && x != nil && info.VariableOf(x) == v
}

// DeclaredVariable returns the variable introduced by a declarator.
func (info *Info) DeclaredVariable(vd *ast.VarDeclarator) *Variable {
	return info.declarator[vd]
}

// ParamVariable returns the variable introduced by a parameter.
func (info *Info) ParamVariable(p *ast.Param) *Variable {
	return info.params[p]
}

// Parent returns the parent of n, or nil for the root.
func (info *Info) Parent(n ast.Node) ast.Node {
	return info.Parents[n]
}

// Ancestor returns the nearest proper ancestor of n matching pred.
func (info *Info) Ancestor(n ast.Node, pred func(ast.Node) bool) ast.Node {
	for p := info.Parents[n]; p != nil; p = info.Parents[p] {
		if pred(p) {
			return p
		}
	}
	return nil
}

// IsAncestor reports whether anc is n or one of its ancestors.
func (info *Info) IsAncestor(anc, n ast.Node) bool {
	for ; n != nil; n = info.Parents[n] {
		if n == anc {
			return true
		}
	}
	return false
}

// Owner returns the innermost method, lambda, initializer or class around n.
func (info *Info) Owner(n ast.Node) ast.Node {
	return info.Ancestor(n, isOwner)
}

func isOwner(n ast.Node) bool {
	switch n.(type) {
	case *ast.MethodDecl, *ast.LambdaExpr, *ast.InitializerDecl, *ast.ClassDecl, *ast.Snippet:
		return true
	}
	return false
}

// EnclosingClass returns the innermost class around n.
func (info *Info) EnclosingClass(n ast.Node) *ast.ClassDecl {
	c, _ := info.Ancestor(n, func(p ast.Node) bool {
		_, ok := p.(*ast.ClassDecl)
		return ok
	}).(*ast.ClassDecl)
	return c
}

// EnclosingMethod returns the innermost method around n.
func (info *Info) EnclosingMethod(n ast.Node) *ast.MethodDecl {
	m, _ := info.Ancestor(n, func(p ast.Node) bool {
		_, ok := p.(*ast.MethodDecl)
		return ok
	}).(*ast.MethodDecl)
	return m
}

// ReferencesIn returns the identifiers within n that refer to v.
func (info *Info) ReferencesIn(v *Variable, n ast.Node) []*ast.Identifier {
	var out []*ast.Identifier
	for _, id := range info.Refs[v] {
		if n.Pos() <= id.Pos() && id.End() <= n.End() {
			out = append(out, id)
		}
	}
	return out
}

// IsUsedIn reports whether v is referenced anywhere inside any of nodes.
func (info *Info) IsUsedIn(v *Variable, nodes ...ast.Node) bool {
	for _, n := range nodes {
		if n != nil && len(info.ReferencesIn(v, n)) > 0 {
			return true
		}
	}
	return false
}

// VariablesIn returns every resolved variable referenced inside n, in order of
// first reference.
func (info *Info) VariablesIn(n ast.Node) []*Variable {
	seen := make(map[*Variable]bool)
	var out []*Variable
	ast.Inspect(n, func(c ast.Node) bool {
		id, ok := c.(*ast.Identifier)
		if !ok {
			if fa, ok := c.(*ast.FieldAccess); ok {
				if v := info.Uses[fa.Name]; v != nil && !seen[v] {
					seen[v] = true
					out = append(out, v)
				}
			}
			return true
		}
		if v := info.Uses[id]; v != nil && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
		return true
	})
	return out
}

// Methods returns the methods declared anywhere in the tree with this name.
func (info *Info) Methods(name string) []*ast.MethodDecl {
	return info.methods[name]
}

// Class returns a class declared in the tree by simple name.
func (info *Info) Class(name string) *ast.ClassDecl {
	return info.classes[name]
}

// Text returns the source text of n.
func (info *Info) Text(n ast.Node) string {
	return info.Src[n.Pos():n.End()]
}
