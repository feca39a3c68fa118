package analysis

import (
	"github.com/sambeau/streamline/pkg/java/ast"
)

// stopsWalk reports whether control flow analysis must not descend into n:
// lambda bodies and class bodies run at another time.
func stopsWalk(n ast.Node) bool {
	switch n.(type) {
	case *ast.LambdaExpr, *ast.ClassDecl, *ast.LocalClassStmt:
		return true
	}
	return false
}

// BreakTarget returns the statement a break leaves: the labelled statement
// for 'break label', otherwise the innermost loop or switch statement.
func (info *Info) BreakTarget(b *ast.BreakStmt) ast.Node {
	for p := info.Parents[b]; p != nil; p = info.Parents[p] {
		if stopsWalk(p) {
			return nil
		}
		if b.Label != nil {
			if ls, ok := p.(*ast.LabeledStmt); ok && ls.Label.Value == b.Label.Value {
				return ls
			}
			continue
		}
		if ast.IsLoop(p) {
			return p
		}
		if _, ok := p.(*ast.SwitchStmt); ok {
			return p
		}
	}
	return nil
}

// ContinueTarget returns the loop a continue statement resumes.
func (info *Info) ContinueTarget(c *ast.ContinueStmt) ast.Node {
	for p := info.Parents[c]; p != nil; p = info.Parents[p] {
		if stopsWalk(p) {
			return nil
		}
		if c.Label != nil {
			if ls, ok := p.(*ast.LabeledStmt); ok && ls.Label.Value == c.Label.Value {
				return unlabel(ls)
			}
			continue
		}
		if ast.IsLoop(p) {
			return p
		}
	}
	return nil
}

func unlabel(s ast.Node) ast.Node {
	for {
		ls, ok := s.(*ast.LabeledStmt)
		if !ok {
			return s
		}
		s = ls.Stmt
	}
}

// exitedStatement is the statement a break actually terminates, looking
// through labels.
func (info *Info) exitedStatement(b *ast.BreakStmt) ast.Node {
	return unlabel(info.BreakTarget(b))
}

// ExitPoints returns the statements inside stmts that transfer control out
// of the range: returns, throws that are not caught within it, and breaks or
// continues whose target lies outside it. Continues of the loop that owns
// the range count as exits.
func (info *Info) ExitPoints(stmts []ast.Statement) []ast.Statement {
	inRange := func(n ast.Node) bool {
		if n == nil {
			return false
		}
		for _, s := range stmts {
			if ast.Contains(s, n) {
				return true
			}
		}
		return false
	}
	var out []ast.Statement
	for _, s := range stmts {
		ast.Inspect(s, func(n ast.Node) bool {
			if n != s && stopsWalk(n) {
				return false
			}
			switch st := n.(type) {
			case *ast.ReturnStmt:
				out = append(out, st)
			case *ast.ThrowStmt:
				if !info.caughtWithin(st, inRange, info.thrownName(st)) {
					out = append(out, st)
				}
			case *ast.BreakStmt:
				if !inRange(info.BreakTarget(st)) {
					out = append(out, st)
				}
			case *ast.ContinueStmt:
				if !inRange(info.ContinueTarget(st)) {
					out = append(out, st)
				}
			}
			return true
		})
	}
	return out
}

// StatementBreaksLoop reports whether executing stmt terminates loop: a break
// whose target is the loop, or a return whose value matches the return that
// immediately follows the loop.
func (info *Info) StatementBreaksLoop(stmt ast.Statement, loop ast.Node) bool {
	switch s := stmt.(type) {
	case *ast.BreakStmt:
		return info.exitedStatement(s) == loop
	case *ast.ReturnStmt:
		var cur ast.Node = loop
	climb:
		for {
			switch p := info.Parents[cur].(type) {
			case *ast.LabeledStmt:
				cur = p
			case *ast.BlockStmt:
				if len(p.Stmts) > 0 && ast.Node(p.Stmts[len(p.Stmts)-1]) == cur && isStatementParent(info.Parents[p]) {
					cur = p
					continue
				}
				break climb
			case *ast.IfStmt:
				if ast.Node(p.Then) == cur || (p.Else != nil && ast.Node(p.Else) == cur) {
					cur = p
					continue
				}
				break climb
			default:
				break climb
			}
		}
		next, ok := info.NextStatement(cur).(*ast.ReturnStmt)
		return ok && Equivalent(s.Result, next.Result)
	}
	return false
}

func isStatementParent(n ast.Node) bool {
	switch n.(type) {
	case *ast.BlockStmt, *ast.IfStmt, *ast.LabeledStmt, *ast.ForStmt, *ast.ForEachStmt,
		*ast.WhileStmt, *ast.DoWhileStmt, *ast.Snippet:
		return true
	}
	return false
}

// siblings returns the statement list holding s and its index within it.
func (info *Info) siblings(s ast.Node) ([]ast.Statement, int) {
	var list []ast.Statement
	switch p := info.Parents[s].(type) {
	case *ast.BlockStmt:
		list = p.Stmts
	case *ast.Snippet:
		list = p.Stmts
	case *ast.CaseClause:
		list = p.Body
	default:
		return nil, -1
	}
	for i, st := range list {
		if ast.Node(st) == s {
			return list, i
		}
	}
	return nil, -1
}

// NextStatement returns the statement after s in its enclosing list, or nil.
func (info *Info) NextStatement(s ast.Node) ast.Statement {
	list, i := info.siblings(s)
	if i < 0 || i+1 >= len(list) {
		return nil
	}
	return list[i+1]
}

// PrevStatement returns the statement before s in its enclosing list, or nil.
func (info *Info) PrevStatement(s ast.Node) ast.Statement {
	list, i := info.siblings(s)
	if i <= 0 {
		return nil
	}
	return list[i-1]
}

// NextReturnStatement returns the return statement control reaches directly
// after s completes normally: the following statement, or the statement
// following an enclosing if or block of which s is the last part.
func (info *Info) NextReturnStatement(s ast.Node) *ast.ReturnStmt {
	for {
		if r, ok := info.NextStatement(s).(*ast.ReturnStmt); ok {
			return r
		}
		switch p := info.Parents[s].(type) {
		case *ast.BlockStmt:
			if len(p.Stmts) == 0 || ast.Node(p.Stmts[len(p.Stmts)-1]) != s {
				return nil
			}
			s = p
		case *ast.IfStmt:
			s = p
		default:
			return nil
		}
	}
}

// InitializerUsage describes how the initial value of a local reaches a
// later statement.
type InitializerUsage int

const (
	// DeclaredJustBefore: the declaration immediately precedes the statement.
	DeclaredJustBefore InitializerUsage = iota
	// AtWantedPlaceOnly: every use of the initial value goes through the
	// statement, which sees it unchanged.
	AtWantedPlaceOnly
	// AtWantedPlace: the statement sees the initial value, which may also be
	// used elsewhere.
	AtWantedPlace
	// UnknownUsage: the statement may see some other value.
	UnknownUsage
)

func (u InitializerUsage) String() string {
	switch u {
	case DeclaredJustBefore:
		return "declared just before"
	case AtWantedPlaceOnly:
		return "at wanted place only"
	case AtWantedPlace:
		return "at wanted place"
	}
	return "unknown"
}

// InitializerUsageStatus reports how the initial value of v flows into stmt.
func (info *Info) InitializerUsageStatus(v *Variable, stmt ast.Statement) InitializerUsage {
	if v == nil || v.Kind != LocalVar || v.Init() == nil {
		return UnknownUsage
	}
	decl, ok := v.Decl.(*ast.LocalVarDecl)
	if !ok {
		return UnknownUsage
	}
	target := ast.Node(stmt)
	if ls, ok := info.Parents[stmt].(*ast.LabeledStmt); ok {
		target = ls
	}
	if decl.Vars[len(decl.Vars)-1] == v.Declarator && info.NextStatement(decl) == target {
		return DeclaredJustBefore
	}
	if info.Owner(decl) != info.Owner(stmt) || !ast.Contains(v.Scope, stmt) || stmt.Pos() < decl.End() {
		return UnknownUsage
	}
	// Between the initialiser and the statement nothing may touch v, and the
	// statement must not sit in a loop that could revisit it.
	for p := info.Parents[stmt]; p != nil && p != v.Scope; p = info.Parents[p] {
		if ast.IsLoop(p) && p.Pos() > decl.Pos() {
			return UnknownUsage
		}
	}
	straight := true
	for p := info.Parents[target]; p != nil && p != v.Scope; p = info.Parents[p] {
		switch p.(type) {
		case *ast.BlockStmt, *ast.LabeledStmt:
		default:
			straight = false
		}
	}
	usedElsewhere := false
	for _, id := range info.Refs[v] {
		if ast.Contains(stmt, id) {
			continue
		}
		if id.Pos() < stmt.Pos() {
			if id.Pos() >= v.Declarator.End() {
				return UnknownUsage
			}
			continue
		}
		usedElsewhere = true
	}
	if straight || !usedElsewhere {
		return AtWantedPlaceOnly
	}
	if v.Final {
		return UnknownUsage
	}
	return AtWantedPlace
}
