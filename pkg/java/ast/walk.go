package ast

// Children returns the direct sub-nodes of n in source order. Declared names,
// labels, member names and type references are not included.
func Children(n Node) []Node {
	var out []Node
	add := func(nodes ...Node) {
		for _, c := range nodes {
			if c != nil && !isNilNode(c) {
				out = append(out, c)
			}
		}
	}
	addExprs := func(xs []Expression) {
		for _, x := range xs {
			add(x)
		}
	}
	addStmts := func(ss []Statement) {
		for _, s := range ss {
			add(s)
		}
	}

	switch n := n.(type) {
	case *CompilationUnit:
		for _, t := range n.Types {
			add(t)
		}
	case *ClassDecl:
		for _, c := range n.Components {
			add(c)
		}
		for _, c := range n.Constants {
			add(c)
		}
		add(n.Members...)
	case *EnumConstant:
		addExprs(n.Args)
		if n.Body != nil {
			add(n.Body)
		}
	case *FieldDecl:
		for _, v := range n.Vars {
			add(v)
		}
	case *MethodDecl:
		for _, p := range n.Params {
			add(p)
		}
		if n.Body != nil {
			add(n.Body)
		}
	case *InitializerDecl:
		if n.Body != nil {
			add(n.Body)
		}
	case *VarDeclarator:
		add(n.Init)
	case *Snippet:
		addStmts(n.Stmts)
	case *BlockStmt:
		addStmts(n.Stmts)
	case *LocalVarDecl:
		for _, v := range n.Vars {
			add(v)
		}
	case *ExprStmt:
		add(n.X)
	case *IfStmt:
		add(n.Cond, n.Then, n.Else)
	case *ForStmt:
		addStmts(n.Init)
		add(n.Cond)
		addStmts(n.Update)
		add(n.Body)
	case *ForEachStmt:
		add(n.Var, n.Iterable, n.Body)
	case *WhileStmt:
		add(n.Cond, n.Body)
	case *DoWhileStmt:
		add(n.Body, n.Cond)
	case *ReturnStmt:
		add(n.Result)
	case *ThrowStmt:
		add(n.X)
	case *LabeledStmt:
		add(n.Stmt)
	case *SwitchStmt:
		add(n.Tag)
		for _, c := range n.Cases {
			add(c)
		}
	case *SwitchExpr:
		add(n.Tag)
		for _, c := range n.Cases {
			add(c)
		}
	case *CaseClause:
		addExprs(n.Exprs)
		addStmts(n.Body)
	case *TryStmt:
		addStmts(n.Resources)
		if n.Body != nil {
			add(n.Body)
		}
		for _, c := range n.Catches {
			add(c)
		}
		if n.Finally != nil {
			add(n.Finally)
		}
	case *CatchClause:
		add(n.Param)
		if n.Body != nil {
			add(n.Body)
		}
	case *SyncStmt:
		add(n.Lock)
		if n.Body != nil {
			add(n.Body)
		}
	case *AssertStmt:
		add(n.Cond, n.Message)
	case *LocalClassStmt:
		add(n.Decl)
	case *ParenExpr:
		add(n.X)
	case *BinaryExpr:
		add(n.Left, n.Right)
	case *InstanceOfExpr:
		add(n.X)
	case *UnaryExpr:
		add(n.X)
	case *PostfixExpr:
		add(n.X)
	case *AssignExpr:
		add(n.Left, n.Right)
	case *ConditionalExpr:
		add(n.Cond, n.Then, n.Else)
	case *CastExpr:
		add(n.X)
	case *FieldAccess:
		add(n.X)
	case *MethodCall:
		add(n.X)
		addExprs(n.Args)
	case *NewExpr:
		add(n.Outer)
		addExprs(n.Args)
		if n.Body != nil {
			add(n.Body)
		}
	case *NewArrayExpr:
		addExprs(n.Dims)
		if n.Init != nil {
			add(n.Init)
		}
	case *ArrayInit:
		addExprs(n.Elems)
	case *IndexExpr:
		add(n.X, n.Index)
	case *LambdaExpr:
		for _, p := range n.Params {
			add(p)
		}
		add(n.Body)
	case *MethodRef:
		if x, ok := n.X.(Expression); ok {
			add(x)
		}
	}
	return out
}

// isNilNode catches typed nils stored in interfaces.
func isNilNode(n Node) bool {
	switch v := n.(type) {
	case Expression:
		return isNilExpr(v)
	case *BlockStmt:
		return v == nil
	case *ClassDecl:
		return v == nil
	case *Param:
		return v == nil
	}
	return false
}

func isNilExpr(x Expression) bool {
	switch v := x.(type) {
	case *Identifier:
		return v == nil
	case *MethodCall:
		return v == nil
	case *ArrayInit:
		return v == nil
	}
	return false
}

// Inspect traverses the tree rooted at n in depth-first order, calling f for
// each node. If f returns false the children of that node are skipped.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || isNilNode(n) || !f(n) {
		return
	}
	for _, c := range Children(n) {
		Inspect(c, f)
	}
}

// Contains reports whether inner lies within the source range of outer.
func Contains(outer, inner Node) bool {
	return outer.Pos() <= inner.Pos() && inner.End() <= outer.End()
}
