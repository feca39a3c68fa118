package rewrite

import (
	"github.com/sambeau/streamline/pkg/java/ast"
)

var negatedComparison = map[string]string{
	"==": "!=", "!=": "==",
	"<": ">=", ">=": "<",
	">": "<=", "<=": ">",
}

// Negated returns the text of the logical negation of x, simplifying double
// negation, flipping comparisons and literal booleans.
func (t *Tracker) Negated(x ast.Expression) string {
	switch n := ast.Unparen(x).(type) {
	case *ast.UnaryExpr:
		if n.Op == "!" {
			return t.Text(ast.Unparen(n.X))
		}
	case *ast.BinaryExpr:
		if op, ok := negatedComparison[n.Op]; ok {
			return t.Text(n.Left) + " " + op + " " + t.Text(n.Right)
		}
	case *ast.Literal:
		if n.Kind == ast.BoolLit {
			if n.Value == "true" {
				return "false"
			}
			return "true"
		}
	}
	return "!" + t.Receiver(x)
}

// Receiver returns the text of x, parenthesised when x cannot be followed
// by a method call or prefixed by a unary operator as written.
func (t *Tracker) Receiver(x ast.Expression) string {
	if NeedsParens(x) {
		return "(" + t.Text(ast.Unparen(x)) + ")"
	}
	return t.Text(x)
}

// Operand returns the text of x suitable as an operand of a binary
// operator with the given operator on its left.
func (t *Tracker) Operand(x ast.Expression) string {
	switch ast.Unparen(x).(type) {
	case *ast.BinaryExpr, *ast.ConditionalExpr, *ast.AssignExpr, *ast.LambdaExpr, *ast.InstanceOfExpr:
		return "(" + t.Text(ast.Unparen(x)) + ")"
	}
	return t.Text(x)
}

// NeedsParens reports whether x is not a primary expression.
func NeedsParens(x ast.Expression) bool {
	switch ast.Unparen(x).(type) {
	case *ast.BinaryExpr, *ast.ConditionalExpr, *ast.AssignExpr, *ast.LambdaExpr,
		*ast.InstanceOfExpr, *ast.CastExpr, *ast.UnaryExpr, *ast.PostfixExpr, *ast.SwitchExpr:
		return true
	}
	return false
}
