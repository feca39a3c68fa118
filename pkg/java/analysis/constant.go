package analysis

import (
	"math"
	"strconv"
	"strings"

	"github.com/sambeau/streamline/pkg/java/ast"
)

// Constant is a folded compile-time value. Exactly one of the typed fields
// is meaningful, selected by Kind.
type Constant struct {
	Kind  string // int, long, double, float, boolean, char, String
	Int   int64
	Float float64
	Bool  bool
	Str   string
}

// IsZero reports whether c is a numeric zero.
func (c Constant) IsZero() bool {
	switch c.Kind {
	case "int", "long", "char":
		return c.Int == 0
	case "float", "double":
		return c.Float == 0
	}
	return false
}

// IsNumeric reports whether c holds a number or a char.
func (c Constant) IsNumeric() bool {
	switch c.Kind {
	case "int", "long", "char", "float", "double":
		return true
	}
	return false
}

func (c Constant) asFloat() float64 {
	if c.Kind == "float" || c.Kind == "double" {
		return c.Float
	}
	return float64(c.Int)
}

func (c Constant) String() string {
	switch c.Kind {
	case "int", "long":
		return strconv.FormatInt(c.Int, 10)
	case "char":
		return string(rune(c.Int))
	case "float", "double":
		return strconv.FormatFloat(c.Float, 'g', -1, 64)
	case "boolean":
		return strconv.FormatBool(c.Bool)
	}
	return c.Str
}

// Constant folds x, following effectively final locals and static final
// fields with constant initialisers.
func (info *Info) Constant(x ast.Expression) (Constant, bool) {
	return info.constant(x, 0)
}

func (info *Info) constant(x ast.Expression, depth int) (Constant, bool) {
	if x == nil || depth > maxTypeDepth {
		return Constant{}, false
	}
	d := depth + 1
	switch n := x.(type) {
	case *ast.Literal:
		return literalConstant(n)
	case *ast.ParenExpr:
		return info.constant(n.X, d)
	case *ast.Identifier:
		return info.variableConstant(info.Uses[n], d)
	case *ast.FieldAccess:
		if v := info.Uses[n.Name]; v != nil {
			return info.variableConstant(v, d)
		}
		if id, ok := n.X.(*ast.Identifier); ok && info.Uses[id] == nil {
			return wellKnownConstant(id.Value + "." + n.Name.Value)
		}
	case *ast.UnaryExpr:
		c, ok := info.constant(n.X, d)
		if !ok {
			return c, false
		}
		return unaryConstant(n.Op, c)
	case *ast.BinaryExpr:
		l, ok := info.constant(n.Left, d)
		if !ok {
			return l, false
		}
		r, ok := info.constant(n.Right, d)
		if !ok {
			return r, false
		}
		return binaryConstant(n.Op, l, r)
	case *ast.CastExpr:
		c, ok := info.constant(n.X, d)
		if !ok || !IsPrimitive(n.Type) && !IsString(n.Type) {
			return c, false
		}
		return castConstant(n.Type.Name, c)
	case *ast.ConditionalExpr:
		c, ok := info.constant(n.Cond, d)
		if !ok || c.Kind != "boolean" {
			return c, false
		}
		if c.Bool {
			return info.constant(n.Then, d)
		}
		return info.constant(n.Else, d)
	}
	return Constant{}, false
}

func (info *Info) variableConstant(v *Variable, depth int) (Constant, bool) {
	if v == nil || v.Init() == nil {
		return Constant{}, false
	}
	if v.Kind == FieldVar {
		fd, ok := v.Decl.(*ast.FieldDecl)
		if !ok || !fd.Modifiers.Has("final") {
			return Constant{}, false
		}
	} else if !info.IsEffectivelyFinal(v) {
		return Constant{}, false
	}
	return info.constant(v.Init(), depth)
}

func wellKnownConstant(name string) (Constant, bool) {
	switch name {
	case "Integer.MAX_VALUE":
		return Constant{Kind: "int", Int: math.MaxInt32}, true
	case "Integer.MIN_VALUE":
		return Constant{Kind: "int", Int: math.MinInt32}, true
	case "Long.MAX_VALUE":
		return Constant{Kind: "long", Int: math.MaxInt64}, true
	case "Long.MIN_VALUE":
		return Constant{Kind: "long", Int: math.MinInt64}, true
	case "Double.POSITIVE_INFINITY":
		return Constant{Kind: "double", Float: math.Inf(1)}, true
	case "Double.NEGATIVE_INFINITY":
		return Constant{Kind: "double", Float: math.Inf(-1)}, true
	case "Double.MAX_VALUE":
		return Constant{Kind: "double", Float: math.MaxFloat64}, true
	}
	return Constant{}, false
}

func literalConstant(l *ast.Literal) (Constant, bool) {
	raw := strings.ReplaceAll(l.Value, "_", "")
	switch l.Kind {
	case ast.IntLit, ast.LongLit:
		kind := "int"
		if l.Kind == ast.LongLit {
			kind = "long"
			raw = strings.TrimRight(raw, "lL")
		}
		v, err := strconv.ParseUint(raw, 0, 64)
		if err != nil {
			return Constant{}, false
		}
		if kind == "int" {
			return Constant{Kind: kind, Int: int64(int32(uint32(v)))}, true
		}
		return Constant{Kind: kind, Int: int64(v)}, true
	case ast.FloatLit, ast.DoubleLit:
		kind := "double"
		if l.Kind == ast.FloatLit {
			kind = "float"
		}
		if !strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X") {
			raw = strings.TrimRight(raw, "fFdD")
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Constant{}, false
		}
		return Constant{Kind: kind, Float: v}, true
	case ast.CharLit:
		s := l.Value
		if len(s) < 3 {
			return Constant{}, false
		}
		r, _, tail, err := strconv.UnquoteChar(s[1:len(s)-1], '\'')
		if err != nil || tail != "" {
			return Constant{}, false
		}
		return Constant{Kind: "char", Int: int64(r)}, true
	case ast.StringLit:
		s, err := strconv.Unquote(l.Value)
		if err != nil {
			return Constant{}, false
		}
		return Constant{Kind: "String", Str: s}, true
	case ast.BoolLit:
		return Constant{Kind: "boolean", Bool: l.Value == "true"}, true
	}
	return Constant{}, false
}

func unaryConstant(op string, c Constant) (Constant, bool) {
	switch op {
	case "!":
		if c.Kind == "boolean" {
			return Constant{Kind: "boolean", Bool: !c.Bool}, true
		}
	case "-":
		switch c.Kind {
		case "int", "char":
			return Constant{Kind: "int", Int: int64(-int32(c.Int))}, true
		case "long":
			return Constant{Kind: "long", Int: -c.Int}, true
		case "float", "double":
			return Constant{Kind: c.Kind, Float: -c.Float}, true
		}
	case "+":
		if c.IsNumeric() {
			if c.Kind == "char" {
				c.Kind = "int"
			}
			return c, true
		}
	case "~":
		switch c.Kind {
		case "int", "char":
			return Constant{Kind: "int", Int: int64(^int32(c.Int))}, true
		case "long":
			return Constant{Kind: "long", Int: ^c.Int}, true
		}
	}
	return Constant{}, false
}

func promote(l, r Constant) string {
	switch {
	case l.Kind == "double" || r.Kind == "double":
		return "double"
	case l.Kind == "float" || r.Kind == "float":
		return "float"
	case l.Kind == "long" || r.Kind == "long":
		return "long"
	}
	return "int"
}

func wrap(kind string, v int64) Constant {
	if kind == "int" {
		return Constant{Kind: kind, Int: int64(int32(v))}
	}
	return Constant{Kind: kind, Int: v}
}

func binaryConstant(op string, l, r Constant) (Constant, bool) {
	if op == "+" && (l.Kind == "String" || r.Kind == "String") {
		return Constant{Kind: "String", Str: l.String() + r.String()}, true
	}
	if l.Kind == "boolean" && r.Kind == "boolean" {
		switch op {
		case "&&", "&":
			return Constant{Kind: "boolean", Bool: l.Bool && r.Bool}, true
		case "||", "|":
			return Constant{Kind: "boolean", Bool: l.Bool || r.Bool}, true
		case "^", "!=":
			return Constant{Kind: "boolean", Bool: l.Bool != r.Bool}, true
		case "==":
			return Constant{Kind: "boolean", Bool: l.Bool == r.Bool}, true
		}
		return Constant{}, false
	}
	if l.Kind == "String" && r.Kind == "String" {
		return Constant{}, false
	}
	if !l.IsNumeric() || !r.IsNumeric() {
		return Constant{}, false
	}
	kind := promote(l, r)
	switch op {
	case "<", ">", "<=", ">=", "==", "!=":
		a, b := l.asFloat(), r.asFloat()
		if kind == "int" || kind == "long" {
			return Constant{Kind: "boolean", Bool: compareInts(op, l.Int, r.Int)}, true
		}
		return Constant{Kind: "boolean", Bool: compareFloats(op, a, b)}, true
	}
	if kind == "float" || kind == "double" {
		a, b := l.asFloat(), r.asFloat()
		switch op {
		case "+":
			return Constant{Kind: kind, Float: a + b}, true
		case "-":
			return Constant{Kind: kind, Float: a - b}, true
		case "*":
			return Constant{Kind: kind, Float: a * b}, true
		case "/":
			return Constant{Kind: kind, Float: a / b}, true
		case "%":
			return Constant{Kind: kind, Float: math.Mod(a, b)}, true
		}
		return Constant{}, false
	}
	a, b := l.Int, r.Int
	switch op {
	case "+":
		return wrap(kind, a+b), true
	case "-":
		return wrap(kind, a-b), true
	case "*":
		return wrap(kind, a*b), true
	case "/":
		if b == 0 {
			return Constant{}, false
		}
		return wrap(kind, a/b), true
	case "%":
		if b == 0 {
			return Constant{}, false
		}
		return wrap(kind, a%b), true
	case "&":
		return wrap(kind, a&b), true
	case "|":
		return wrap(kind, a|b), true
	case "^":
		return wrap(kind, a^b), true
	case "<<":
		if l.Kind == "long" {
			return wrap("long", a<<(uint(b)&63)), true
		}
		return wrap("int", a<<(uint(b)&31)), true
	case ">>":
		if l.Kind == "long" {
			return wrap("long", a>>(uint(b)&63)), true
		}
		return wrap("int", int64(int32(a)>>(uint(b)&31))), true
	}
	return Constant{}, false
}

func compareInts(op string, a, b int64) bool {
	switch op {
	case "<":
		return a < b
	case ">":
		return a > b
	case "<=":
		return a <= b
	case ">=":
		return a >= b
	case "==":
		return a == b
	}
	return a != b
}

func compareFloats(op string, a, b float64) bool {
	switch op {
	case "<":
		return a < b
	case ">":
		return a > b
	case "<=":
		return a <= b
	case ">=":
		return a >= b
	case "==":
		return a == b
	}
	return a != b
}

func castConstant(to string, c Constant) (Constant, bool) {
	switch to {
	case "int", "short", "byte", "char", "long":
		var v int64
		if c.Kind == "float" || c.Kind == "double" {
			v = int64(c.Float)
		} else if c.IsNumeric() {
			v = c.Int
		} else {
			return Constant{}, false
		}
		switch to {
		case "int":
			return wrap("int", v), true
		case "short":
			return Constant{Kind: "int", Int: int64(int16(v))}, true
		case "byte":
			return Constant{Kind: "int", Int: int64(int8(v))}, true
		case "char":
			return Constant{Kind: "char", Int: int64(uint16(v))}, true
		}
		return wrap("long", v), true
	case "float", "double":
		if !c.IsNumeric() {
			return Constant{}, false
		}
		return Constant{Kind: to, Float: c.asFloat()}, true
	case "boolean":
		return c, c.Kind == "boolean"
	case "String":
		return c, c.Kind == "String"
	}
	return Constant{}, false
}

// IsIntegerConstant reports whether x folds to the given integral value.
func (info *Info) IsIntegerConstant(x ast.Expression, want int64) bool {
	c, ok := info.Constant(x)
	if !ok {
		return false
	}
	switch c.Kind {
	case "int", "long", "char":
		return c.Int == want
	}
	return false
}

// IsBooleanLiteral reports whether x is the literal true or false, returning
// its value.
func IsBooleanLiteral(x ast.Expression) (value, ok bool) {
	l, isLit := ast.Unparen(x).(*ast.Literal)
	if !isLit || l.Kind != ast.BoolLit {
		return false, false
	}
	return l.Value == "true", true
}

// IsNullLiteral reports whether x is the literal null.
func IsNullLiteral(x ast.Expression) bool {
	l, ok := ast.Unparen(x).(*ast.Literal)
	return ok && l.Kind == ast.NullLit
}
