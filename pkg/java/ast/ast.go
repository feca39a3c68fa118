// Package ast defines the syntax tree for the Java subset understood by
// streamline. Every node records the byte range it covers in the source so
// that rewrites can splice text without reprinting untouched code.
package ast

import (
	"bytes"
	"strings"
)

// Node represents any node in the AST
type Node interface {
	Pos() int // offset of the first byte
	End() int // offset just past the last byte
	String() string
}

// Statement represents statement nodes
type Statement interface {
	Node
	statementNode()
}

// Expression represents expression nodes
type Expression interface {
	Node
	expressionNode()
}

// Span is embedded by nodes to provide Pos and End.
type Span struct {
	Start int
	Stop  int
}

func (s Span) Pos() int { return s.Start }
func (s Span) End() int { return s.Stop }

// ---------------------------------------------------------------------------
// Types

// TypeRef is a written type: a primitive, a (possibly qualified and
// parameterised) class name, a wildcard or an array of any of those.
type TypeRef struct {
	Span
	Name      string     // "int", "java.util.List", "?", "var"
	Args      []*TypeRef // nil for raw or non-generic types; empty for a diamond
	Diamond   bool
	Bound     *TypeRef // wildcard bound
	BoundKw   string   // "extends" or "super"
	Dims      int
	Varargs   bool
	Primitive bool
}

func (t *TypeRef) String() string {
	var out bytes.Buffer
	out.WriteString(t.Name)
	if t.Bound != nil {
		out.WriteString(" " + t.BoundKw + " " + t.Bound.String())
	}
	if t.Diamond {
		out.WriteString("<>")
	} else if len(t.Args) > 0 {
		args := make([]string, len(t.Args))
		for i, a := range t.Args {
			args[i] = a.String()
		}
		out.WriteString("<" + strings.Join(args, ", ") + ">")
	}
	for i := 0; i < t.Dims; i++ {
		out.WriteString("[]")
	}
	if t.Varargs {
		out.WriteString("...")
	}
	return out.String()
}

// SimpleName returns the last segment of a qualified type name.
func (t *TypeRef) SimpleName() string {
	if i := strings.LastIndexByte(t.Name, '.'); i >= 0 {
		return t.Name[i+1:]
	}
	return t.Name
}

// ---------------------------------------------------------------------------
// Declarations

// CompilationUnit is a whole source file.
type CompilationUnit struct {
	Span
	Package *PackageDecl
	Imports []*ImportDecl
	Types   []*ClassDecl
}

func (cu *CompilationUnit) String() string {
	var out bytes.Buffer
	if cu.Package != nil {
		out.WriteString(cu.Package.String() + "\n")
	}
	for _, imp := range cu.Imports {
		out.WriteString(imp.String() + "\n")
	}
	for _, t := range cu.Types {
		out.WriteString(t.String())
	}
	return out.String()
}

// PackageDecl is 'package a.b;'.
type PackageDecl struct {
	Span
	Name string
}

func (pd *PackageDecl) String() string { return "package " + pd.Name + ";" }

// ImportDecl is an import declaration.
type ImportDecl struct {
	Span
	Name     string
	Static   bool
	Wildcard bool
}

func (id *ImportDecl) String() string {
	s := "import "
	if id.Static {
		s += "static "
	}
	s += id.Name
	if id.Wildcard {
		s += ".*"
	}
	return s + ";"
}

// Modifiers holds keywords and annotations preceding a declaration.
type Modifiers struct {
	Keywords    []string
	Annotations []string
}

// Has reports whether the keyword modifier is present.
func (m Modifiers) Has(kw string) bool {
	for _, k := range m.Keywords {
		if k == kw {
			return true
		}
	}
	return false
}

func (m Modifiers) String() string {
	parts := append(append([]string{}, m.Annotations...), m.Keywords...)
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " ") + " "
}

// ClassDecl is a class, interface, enum or record declaration. It is also
// used for anonymous class bodies (Name is empty).
type ClassDecl struct {
	Span
	Modifiers  Modifiers
	Kind       string // class, interface, enum, record, @interface
	Name       *Identifier
	TypeParams []string
	Extends    []*TypeRef
	Implements []*TypeRef
	Components []*Param // record components
	Constants  []*EnumConstant
	Members    []Node
	Lbrace     int
}

func (cd *ClassDecl) statementNode() {}
func (cd *ClassDecl) String() string {
	var out bytes.Buffer
	out.WriteString(cd.Modifiers.String())
	out.WriteString(cd.Kind)
	if cd.Name != nil {
		out.WriteString(" " + cd.Name.Value)
	}
	out.WriteString(" {\n")
	for _, m := range cd.Members {
		out.WriteString(m.String() + "\n")
	}
	out.WriteString("}")
	return out.String()
}

// EnumConstant is a single enum constant.
type EnumConstant struct {
	Span
	Name *Identifier
	Args []Expression
	Body *ClassDecl
}

func (ec *EnumConstant) String() string {
	return ec.Name.Value + "(" + joinExprs(ec.Args) + ")"
}

// FieldDecl declares one or more fields.
type FieldDecl struct {
	Span
	Modifiers Modifiers
	Type      *TypeRef
	Vars      []*VarDeclarator
}

func (fd *FieldDecl) String() string {
	return fd.Modifiers.String() + fd.Type.String() + " " + joinDeclarators(fd.Vars) + ";"
}

// MethodDecl declares a method or constructor (Result is nil).
type MethodDecl struct {
	Span
	Modifiers  Modifiers
	TypeParams []string
	Result     *TypeRef
	Name       *Identifier
	Params     []*Param
	Throws     []*TypeRef
	Body       *BlockStmt
}

func (md *MethodDecl) String() string {
	var out bytes.Buffer
	out.WriteString(md.Modifiers.String())
	if md.Result != nil {
		out.WriteString(md.Result.String() + " ")
	}
	params := make([]string, len(md.Params))
	for i, p := range md.Params {
		params[i] = p.String()
	}
	out.WriteString(md.Name.Value + "(" + strings.Join(params, ", ") + ")")
	if md.Body != nil {
		out.WriteString(" " + md.Body.String())
	} else {
		out.WriteString(";")
	}
	return out.String()
}

// InitializerDecl is an instance or static initializer block.
type InitializerDecl struct {
	Span
	Static bool
	Body   *BlockStmt
}

func (id *InitializerDecl) String() string {
	if id.Static {
		return "static " + id.Body.String()
	}
	return id.Body.String()
}

// Param is a method, lambda, catch or for-each parameter.
type Param struct {
	Span
	Modifiers Modifiers
	Type      *TypeRef // nil for an implicitly typed lambda parameter
	Name      *Identifier
}

func (p *Param) String() string {
	if p.Type == nil {
		return p.Name.Value
	}
	return p.Modifiers.String() + p.Type.String() + " " + p.Name.Value
}

// VarDeclarator is one 'name [= init]' inside a declaration.
type VarDeclarator struct {
	Span
	Name *Identifier
	Dims int
	Init Expression
}

func (vd *VarDeclarator) String() string {
	s := vd.Name.Value + strings.Repeat("[]", vd.Dims)
	if vd.Init != nil {
		s += " = " + vd.Init.String()
	}
	return s
}

// ---------------------------------------------------------------------------
// Statements

// Snippet is a bare sequence of statements parsed outside a class body.
type Snippet struct {
	Span
	Stmts []Statement
}

func (s *Snippet) String() string {
	var out bytes.Buffer
	for _, st := range s.Stmts {
		out.WriteString(st.String() + "\n")
	}
	return out.String()
}

// BlockStmt is '{ ... }'.
type BlockStmt struct {
	Span
	Stmts []Statement
}

func (bs *BlockStmt) statementNode() {}
func (bs *BlockStmt) String() string {
	var out bytes.Buffer
	out.WriteString("{ ")
	for _, s := range bs.Stmts {
		out.WriteString(s.String() + " ")
	}
	out.WriteString("}")
	return out.String()
}

// LocalVarDecl declares local variables.
type LocalVarDecl struct {
	Span
	Modifiers Modifiers
	Type      *TypeRef
	Vars      []*VarDeclarator
	NoSemi    bool // inside a for header or resource list
}

func (lv *LocalVarDecl) statementNode() {}
func (lv *LocalVarDecl) String() string {
	s := lv.Modifiers.String() + lv.Type.String() + " " + joinDeclarators(lv.Vars)
	if !lv.NoSemi {
		s += ";"
	}
	return s
}

// ExprStmt is an expression followed by ';'.
type ExprStmt struct {
	Span
	X      Expression
	NoSemi bool
}

func (es *ExprStmt) statementNode() {}
func (es *ExprStmt) String() string {
	if es.NoSemi {
		return es.X.String()
	}
	return es.X.String() + ";"
}

// IfStmt is an if statement with optional else.
type IfStmt struct {
	Span
	Cond Expression
	Then Statement
	Else Statement
}

func (is *IfStmt) statementNode() {}
func (is *IfStmt) String() string {
	s := "if (" + is.Cond.String() + ") " + is.Then.String()
	if is.Else != nil {
		s += " else " + is.Else.String()
	}
	return s
}

// ForStmt is the classic three-clause for loop.
type ForStmt struct {
	Span
	Init   []Statement
	Cond   Expression
	Update []Statement
	Body   Statement
	Rparen int
}

func (fs *ForStmt) statementNode() {}
func (fs *ForStmt) String() string {
	init := make([]string, len(fs.Init))
	for i, s := range fs.Init {
		init[i] = strings.TrimSuffix(s.String(), ";")
	}
	upd := make([]string, len(fs.Update))
	for i, s := range fs.Update {
		upd[i] = strings.TrimSuffix(s.String(), ";")
	}
	cond := ""
	if fs.Cond != nil {
		cond = fs.Cond.String()
	}
	return "for (" + strings.Join(init, ", ") + "; " + cond + "; " + strings.Join(upd, ", ") + ") " + fs.Body.String()
}

// ForEachStmt is 'for (T x : iterable)'.
type ForEachStmt struct {
	Span
	Var      *Param
	Iterable Expression
	Body     Statement
	Rparen   int
}

func (fe *ForEachStmt) statementNode() {}
func (fe *ForEachStmt) String() string {
	return "for (" + fe.Var.String() + " : " + fe.Iterable.String() + ") " + fe.Body.String()
}

// WhileStmt is a while loop.
type WhileStmt struct {
	Span
	Cond   Expression
	Body   Statement
	Rparen int
}

func (ws *WhileStmt) statementNode() {}
func (ws *WhileStmt) String() string {
	return "while (" + ws.Cond.String() + ") " + ws.Body.String()
}

// DoWhileStmt is a do/while loop.
type DoWhileStmt struct {
	Span
	Body Statement
	Cond Expression
}

func (dw *DoWhileStmt) statementNode() {}
func (dw *DoWhileStmt) String() string {
	return "do " + dw.Body.String() + " while (" + dw.Cond.String() + ");"
}

// ReturnStmt is 'return [expr];'.
type ReturnStmt struct {
	Span
	Result Expression
}

func (rs *ReturnStmt) statementNode() {}
func (rs *ReturnStmt) String() string {
	if rs.Result == nil {
		return "return;"
	}
	return "return " + rs.Result.String() + ";"
}

// BreakStmt is 'break [label];'.
type BreakStmt struct {
	Span
	Label *Identifier
}

func (bs *BreakStmt) statementNode() {}
func (bs *BreakStmt) String() string {
	if bs.Label == nil {
		return "break;"
	}
	return "break " + bs.Label.Value + ";"
}

// ContinueStmt is 'continue [label];'.
type ContinueStmt struct {
	Span
	Label *Identifier
}

func (cs *ContinueStmt) statementNode() {}
func (cs *ContinueStmt) String() string {
	if cs.Label == nil {
		return "continue;"
	}
	return "continue " + cs.Label.Value + ";"
}

// ThrowStmt is 'throw expr;'.
type ThrowStmt struct {
	Span
	X Expression
}

func (ts *ThrowStmt) statementNode() {}
func (ts *ThrowStmt) String() string { return "throw " + ts.X.String() + ";" }

// LabeledStmt is 'label: stmt'.
type LabeledStmt struct {
	Span
	Label *Identifier
	Stmt  Statement
}

func (ls *LabeledStmt) statementNode() {}
func (ls *LabeledStmt) String() string { return ls.Label.Value + ": " + ls.Stmt.String() }

// EmptyStmt is a lone ';'.
type EmptyStmt struct {
	Span
}

func (es *EmptyStmt) statementNode() {}
func (es *EmptyStmt) String() string { return ";" }

// SwitchStmt is a classic switch statement.
type SwitchStmt struct {
	Span
	Tag   Expression
	Cases []*CaseClause
}

func (ss *SwitchStmt) statementNode() {}
func (ss *SwitchStmt) String() string {
	var out bytes.Buffer
	out.WriteString("switch (" + ss.Tag.String() + ") { ")
	for _, c := range ss.Cases {
		out.WriteString(c.String() + " ")
	}
	out.WriteString("}")
	return out.String()
}

// CaseClause is one 'case x:' or 'default:' group, or an arrow case.
type CaseClause struct {
	Span
	Exprs []Expression // empty for default
	Arrow bool
	Body  []Statement
}

func (cc *CaseClause) String() string {
	head := "default"
	if len(cc.Exprs) > 0 {
		head = "case " + joinExprs(cc.Exprs)
	}
	sep := ":"
	if cc.Arrow {
		sep = " ->"
	}
	parts := make([]string, len(cc.Body))
	for i, s := range cc.Body {
		parts[i] = s.String()
	}
	return head + sep + " " + strings.Join(parts, " ")
}

// TryStmt is try/catch/finally, optionally with resources.
type TryStmt struct {
	Span
	Resources []Statement
	Body      *BlockStmt
	Catches   []*CatchClause
	Finally   *BlockStmt
}

func (ts *TryStmt) statementNode() {}
func (ts *TryStmt) String() string {
	s := "try "
	if len(ts.Resources) > 0 {
		parts := make([]string, len(ts.Resources))
		for i, r := range ts.Resources {
			parts[i] = r.String()
		}
		s += "(" + strings.Join(parts, "; ") + ") "
	}
	s += ts.Body.String()
	for _, c := range ts.Catches {
		s += " " + c.String()
	}
	if ts.Finally != nil {
		s += " finally " + ts.Finally.String()
	}
	return s
}

// CatchClause is 'catch (T | U e) { ... }'.
type CatchClause struct {
	Span
	Param *Param
	Types []*TypeRef
	Body  *BlockStmt
}

func (cc *CatchClause) String() string {
	return "catch (" + cc.Param.String() + ") " + cc.Body.String()
}

// SyncStmt is a synchronized block.
type SyncStmt struct {
	Span
	Lock Expression
	Body *BlockStmt
}

func (ss *SyncStmt) statementNode() {}
func (ss *SyncStmt) String() string {
	return "synchronized (" + ss.Lock.String() + ") " + ss.Body.String()
}

// AssertStmt is 'assert cond [: message];'.
type AssertStmt struct {
	Span
	Cond    Expression
	Message Expression
}

func (as *AssertStmt) statementNode() {}
func (as *AssertStmt) String() string {
	if as.Message == nil {
		return "assert " + as.Cond.String() + ";"
	}
	return "assert " + as.Cond.String() + " : " + as.Message.String() + ";"
}

// LocalClassStmt wraps a class declared inside a block.
type LocalClassStmt struct {
	Span
	Decl *ClassDecl
}

func (lc *LocalClassStmt) statementNode() {}
func (lc *LocalClassStmt) String() string { return lc.Decl.String() }

// ---------------------------------------------------------------------------
// Expressions

// Identifier is a simple name.
type Identifier struct {
	Span
	Value string
}

func (i *Identifier) expressionNode() {}
func (i *Identifier) String() string  { return i.Value }

// LiteralKind classifies literals.
type LiteralKind int

const (
	IntLit LiteralKind = iota
	LongLit
	FloatLit
	DoubleLit
	CharLit
	StringLit
	TextBlockLit
	BoolLit
	NullLit
)

// Literal is any literal value; Value holds the raw source text.
type Literal struct {
	Span
	Kind  LiteralKind
	Value string
}

func (l *Literal) expressionNode() {}
func (l *Literal) String() string  { return l.Value }

// ParenExpr is '(x)'.
type ParenExpr struct {
	Span
	X Expression
}

func (pe *ParenExpr) expressionNode() {}
func (pe *ParenExpr) String() string  { return "(" + pe.X.String() + ")" }

// BinaryExpr is 'left op right'.
type BinaryExpr struct {
	Span
	Left  Expression
	Op    string
	Right Expression
}

func (be *BinaryExpr) expressionNode() {}
func (be *BinaryExpr) String() string {
	return "(" + be.Left.String() + " " + be.Op + " " + be.Right.String() + ")"
}

// InstanceOfExpr is 'x instanceof T [name]'.
type InstanceOfExpr struct {
	Span
	X       Expression
	Type    *TypeRef
	Binding *Identifier
}

func (io *InstanceOfExpr) expressionNode() {}
func (io *InstanceOfExpr) String() string {
	s := "(" + io.X.String() + " instanceof " + io.Type.String()
	if io.Binding != nil {
		s += " " + io.Binding.Value
	}
	return s + ")"
}

// UnaryExpr is a prefix operator application.
type UnaryExpr struct {
	Span
	Op string
	X  Expression
}

func (ue *UnaryExpr) expressionNode() {}
func (ue *UnaryExpr) String() string  { return "(" + ue.Op + ue.X.String() + ")" }

// PostfixExpr is 'x++' or 'x--'.
type PostfixExpr struct {
	Span
	X  Expression
	Op string
}

func (pe *PostfixExpr) expressionNode() {}
func (pe *PostfixExpr) String() string  { return "(" + pe.X.String() + pe.Op + ")" }

// AssignExpr is plain or compound assignment.
type AssignExpr struct {
	Span
	Left  Expression
	Op    string // "=", "+=", ...
	Right Expression
}

func (ae *AssignExpr) expressionNode() {}
func (ae *AssignExpr) String() string {
	return ae.Left.String() + " " + ae.Op + " " + ae.Right.String()
}

// ConditionalExpr is 'c ? a : b'.
type ConditionalExpr struct {
	Span
	Cond Expression
	Then Expression
	Else Expression
}

func (ce *ConditionalExpr) expressionNode() {}
func (ce *ConditionalExpr) String() string {
	return "(" + ce.Cond.String() + " ? " + ce.Then.String() + " : " + ce.Else.String() + ")"
}

// CastExpr is '(T) x'.
type CastExpr struct {
	Span
	Type *TypeRef
	X    Expression
}

func (ce *CastExpr) expressionNode() {}
func (ce *CastExpr) String() string  { return "((" + ce.Type.String() + ") " + ce.X.String() + ")" }

// FieldAccess is 'x.name'.
type FieldAccess struct {
	Span
	X    Expression
	Name *Identifier
}

func (fa *FieldAccess) expressionNode() {}
func (fa *FieldAccess) String() string  { return fa.X.String() + "." + fa.Name.Value }

// MethodCall is '[x.][<T>]name(args)'.
type MethodCall struct {
	Span
	X        Expression // nil when unqualified
	TypeArgs []*TypeRef
	Name     *Identifier
	Args     []Expression
	Lparen   int
}

func (mc *MethodCall) expressionNode() {}
func (mc *MethodCall) String() string {
	s := ""
	if mc.X != nil {
		s = mc.X.String() + "."
	}
	return s + mc.Name.Value + "(" + joinExprs(mc.Args) + ")"
}

// NewExpr is 'new T(args) [body]', optionally qualified by an outer instance.
type NewExpr struct {
	Span
	Outer Expression
	Type  *TypeRef
	Args  []Expression
	Body  *ClassDecl
}

func (ne *NewExpr) expressionNode() {}
func (ne *NewExpr) String() string {
	s := "new " + ne.Type.String() + "(" + joinExprs(ne.Args) + ")"
	if ne.Body != nil {
		s += " {...}"
	}
	return s
}

// NewArrayExpr is 'new T[n][]' or 'new T[]{...}'.
type NewArrayExpr struct {
	Span
	Elem      *TypeRef
	Dims      []Expression
	ExtraDims int
	Init      *ArrayInit
}

func (na *NewArrayExpr) expressionNode() {}
func (na *NewArrayExpr) String() string {
	var out bytes.Buffer
	out.WriteString("new " + na.Elem.String())
	for _, d := range na.Dims {
		out.WriteString("[" + d.String() + "]")
	}
	for i := 0; i < na.ExtraDims; i++ {
		out.WriteString("[]")
	}
	if na.Init != nil {
		out.WriteString(na.Init.String())
	}
	return out.String()
}

// ArrayInit is '{a, b, c}'.
type ArrayInit struct {
	Span
	Elems []Expression
}

func (ai *ArrayInit) expressionNode() {}
func (ai *ArrayInit) String() string  { return "{" + joinExprs(ai.Elems) + "}" }

// IndexExpr is 'x[i]'.
type IndexExpr struct {
	Span
	X     Expression
	Index Expression
}

func (ie *IndexExpr) expressionNode() {}
func (ie *IndexExpr) String() string  { return ie.X.String() + "[" + ie.Index.String() + "]" }

// LambdaExpr is 'params -> body'. Body is an Expression or *BlockStmt.
type LambdaExpr struct {
	Span
	Params []*Param
	Parens bool
	Body   Node
}

func (le *LambdaExpr) expressionNode() {}
func (le *LambdaExpr) String() string {
	params := make([]string, len(le.Params))
	for i, p := range le.Params {
		params[i] = p.String()
	}
	head := strings.Join(params, ", ")
	if le.Parens || len(le.Params) != 1 {
		head = "(" + head + ")"
	}
	return head + " -> " + le.Body.String()
}

// MethodRef is 'x::name' or 'T::new'.
type MethodRef struct {
	Span
	X    Node // Expression or *TypeRef
	Name string
}

func (mr *MethodRef) expressionNode() {}
func (mr *MethodRef) String() string  { return mr.X.String() + "::" + mr.Name }

// ThisExpr is 'this' or 'Outer.this'.
type ThisExpr struct {
	Span
	Qualifier string
}

func (te *ThisExpr) expressionNode() {}
func (te *ThisExpr) String() string {
	if te.Qualifier != "" {
		return te.Qualifier + ".this"
	}
	return "this"
}

// SuperExpr is 'super' used as a qualifier.
type SuperExpr struct {
	Span
}

func (se *SuperExpr) expressionNode() {}
func (se *SuperExpr) String() string  { return "super" }

// ClassLit is 'T.class'.
type ClassLit struct {
	Span
	Type *TypeRef
}

func (cl *ClassLit) expressionNode() {}
func (cl *ClassLit) String() string  { return cl.Type.String() + ".class" }

// SwitchExpr is a switch used as an expression.
type SwitchExpr struct {
	Span
	Tag   Expression
	Cases []*CaseClause
}

func (se *SwitchExpr) expressionNode() {}
func (se *SwitchExpr) String() string {
	return "switch (" + se.Tag.String() + ") {...}"
}

// ---------------------------------------------------------------------------
// helpers

func joinExprs(exprs []Expression) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

func joinDeclarators(vars []*VarDeclarator) string {
	parts := make([]string, len(vars))
	for i, v := range vars {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

// Unparen strips any number of enclosing parentheses.
func Unparen(e Expression) Expression {
	for {
		p, ok := e.(*ParenExpr)
		if !ok {
			return e
		}
		e = p.X
	}
}

// IsLoop reports whether the statement is a for, for-each, while or do loop.
func IsLoop(s Node) bool {
	switch s.(type) {
	case *ForStmt, *ForEachStmt, *WhileStmt, *DoWhileStmt:
		return true
	}
	return false
}

// LoopBody returns the body of a loop statement, or nil.
func LoopBody(s Node) Statement {
	switch l := s.(type) {
	case *ForStmt:
		return l.Body
	case *ForEachStmt:
		return l.Body
	case *WhileStmt:
		return l.Body
	case *DoWhileStmt:
		return l.Body
	}
	return nil
}
