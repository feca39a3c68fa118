package analysis

import (
	"strconv"

	"github.com/sambeau/streamline/pkg/java/ast"
)

// Equivalent reports whether two expressions are the same modulo
// parentheses.
func Equivalent(a, b ast.Expression) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	a, b = ast.Unparen(a), ast.Unparen(b)
	switch x := a.(type) {
	case *ast.BinaryExpr:
		y, ok := b.(*ast.BinaryExpr)
		return ok && x.Op == y.Op && Equivalent(x.Left, y.Left) && Equivalent(x.Right, y.Right)
	case *ast.UnaryExpr:
		y, ok := b.(*ast.UnaryExpr)
		return ok && x.Op == y.Op && Equivalent(x.X, y.X)
	case *ast.PostfixExpr:
		y, ok := b.(*ast.PostfixExpr)
		return ok && x.Op == y.Op && Equivalent(x.X, y.X)
	case *ast.AssignExpr:
		y, ok := b.(*ast.AssignExpr)
		return ok && x.Op == y.Op && Equivalent(x.Left, y.Left) && Equivalent(x.Right, y.Right)
	case *ast.ConditionalExpr:
		y, ok := b.(*ast.ConditionalExpr)
		return ok && Equivalent(x.Cond, y.Cond) && Equivalent(x.Then, y.Then) && Equivalent(x.Else, y.Else)
	case *ast.CastExpr:
		y, ok := b.(*ast.CastExpr)
		return ok && SameType(x.Type, y.Type) && Equivalent(x.X, y.X)
	case *ast.FieldAccess:
		y, ok := b.(*ast.FieldAccess)
		return ok && x.Name.Value == y.Name.Value && Equivalent(x.X, y.X)
	case *ast.IndexExpr:
		y, ok := b.(*ast.IndexExpr)
		return ok && Equivalent(x.X, y.X) && Equivalent(x.Index, y.Index)
	case *ast.MethodCall:
		y, ok := b.(*ast.MethodCall)
		return ok && x.Name.Value == y.Name.Value && Equivalent(x.X, y.X) && equivalentLists(x.Args, y.Args)
	case *ast.NewExpr:
		y, ok := b.(*ast.NewExpr)
		return ok && x.Body == nil && y.Body == nil && SameType(x.Type, y.Type) && equivalentLists(x.Args, y.Args)
	case *ast.InstanceOfExpr:
		y, ok := b.(*ast.InstanceOfExpr)
		return ok && x.Binding == nil && y.Binding == nil && SameType(x.Type, y.Type) && Equivalent(x.X, y.X)
	case *ast.Literal:
		y, ok := b.(*ast.Literal)
		return ok && x.Kind == y.Kind && x.Value == y.Value
	case *ast.Identifier:
		y, ok := b.(*ast.Identifier)
		return ok && x.Value == y.Value
	}
	return a.String() == b.String()
}

func equivalentLists(a, b []ast.Expression) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equivalent(a[i], b[i]) {
			return false
		}
	}
	return true
}

// pureMethods never modify their receiver or arguments.
var pureMethods = map[string]bool{
	"size": true, "length": true, "isEmpty": true, "get": true, "contains": true,
	"containsKey": true, "containsValue": true, "equals": true, "hashCode": true,
	"getKey": true, "getValue": true, "charAt": true, "toString": true,
	"substring": true, "trim": true, "strip": true, "startsWith": true,
	"endsWith": true, "indexOf": true, "lastIndexOf": true, "compareTo": true,
	"toUpperCase": true, "toLowerCase": true, "isBlank": true, "valueOf": true,
	"intValue": true, "longValue": true, "doubleValue": true, "getOrDefault": true,
	"abs": true, "max": true, "min": true, "sqrt": true, "pow": true,
	"isDigit": true, "isLetter": true, "isWhitespace": true, "isUpperCase": true,
	"isLowerCase": true, "equalsIgnoreCase": true, "matches": true, "format": true,
	"getName": true, "name": true, "ordinal": true, "getClass": true,
	"isPresent": true, "nonNull": true, "isNull": true, "parseInt": true,
	"parseLong": true, "parseDouble": true, "compare": true, "signum": true,
}

// HasSideEffects reports whether evaluating x may change program state.
// Calls are assumed impure unless the method name is a well-known query.
func HasSideEffects(x ast.Node) bool {
	found := false
	ast.Inspect(x, func(n ast.Node) bool {
		if found {
			return false
		}
		switch e := n.(type) {
		case *ast.LambdaExpr, *ast.ClassDecl:
			return false
		case *ast.AssignExpr, *ast.PostfixExpr:
			found = true
		case *ast.UnaryExpr:
			if e.Op == "++" || e.Op == "--" {
				found = true
			}
		case *ast.MethodCall:
			if !pureMethods[e.Name.Value] {
				found = true
			}
		case *ast.NewExpr:
			found = e.Body != nil
		}
		return !found
	})
	return found
}

// IsSafelyRecomputable reports whether evaluating x twice yields the same
// value without side effects: literals, names, field reads and simple
// operators over them.
func IsSafelyRecomputable(x ast.Expression) bool {
	switch n := ast.Unparen(x).(type) {
	case *ast.Literal, *ast.Identifier, *ast.ThisExpr, *ast.ClassLit:
		return true
	case *ast.FieldAccess:
		return IsSafelyRecomputable(n.X)
	case *ast.UnaryExpr:
		return (n.Op == "-" || n.Op == "!" || n.Op == "+" || n.Op == "~") && IsSafelyRecomputable(n.X)
	case *ast.CastExpr:
		return IsSafelyRecomputable(n.X)
	}
	return false
}

// IsSimple reports whether x is a name, literal or field read that can be
// repeated verbatim in generated code.
func IsSimple(x ast.Expression) bool {
	switch n := ast.Unparen(x).(type) {
	case *ast.Literal, *ast.Identifier, *ast.ThisExpr:
		return true
	case *ast.FieldAccess:
		return IsSimple(n.X)
	}
	return false
}

// FreshName returns base, or base followed by a number, such that the name
// is not used anywhere in the method enclosing near nor in reserved. The
// name returned is added to reserved when it is not nil.
func (info *Info) FreshName(near ast.Node, base string, reserved map[string]bool) string {
	var scope ast.Node = info.Root
	if m := info.EnclosingMethod(near); m != nil {
		scope = m
	}
	taken := make(map[string]bool)
	ast.Inspect(scope, func(n ast.Node) bool {
		if id, ok := n.(*ast.Identifier); ok {
			taken[id.Value] = true
		}
		return true
	})
	for _, v := range info.Vars {
		if ast.Contains(scope, v.Decl) || v.Kind == FieldVar {
			taken[v.Name] = true
		}
	}
	name := base
	for i := 1; taken[name] || reserved[name] || javaKeywords[name]; i++ {
		name = base + strconv.Itoa(i)
	}
	if reserved != nil {
		reserved[name] = true
	}
	return name
}

var javaKeywords = map[string]bool{
	"abstract": true, "assert": true, "boolean": true, "break": true, "byte": true,
	"case": true, "catch": true, "char": true, "class": true, "const": true,
	"continue": true, "default": true, "do": true, "double": true, "else": true,
	"enum": true, "extends": true, "final": true, "finally": true, "float": true,
	"for": true, "goto": true, "if": true, "implements": true, "import": true,
	"instanceof": true, "int": true, "interface": true, "long": true, "native": true,
	"new": true, "package": true, "private": true, "protected": true, "public": true,
	"return": true, "short": true, "static": true, "strictfp": true, "super": true,
	"switch": true, "synchronized": true, "this": true, "throw": true, "throws": true,
	"transient": true, "try": true, "void": true, "volatile": true, "while": true,
	"true": true, "false": true, "null": true, "var": true, "record": true, "yield": true,
}
