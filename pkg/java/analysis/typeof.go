package analysis

import (
	"github.com/sambeau/streamline/pkg/java/ast"
)

// TypeOf infers the static type of x. It returns nil when the type cannot be
// determined from the declarations in the tree and a small model of the JDK.
func (info *Info) TypeOf(x ast.Expression) *ast.TypeRef {
	return info.typeOf(x, 0)
}

// VarType returns the declared type of v, inferring it for 'var' locals and
// for-each variables declared with 'var'.
func (info *Info) VarType(v *Variable) *ast.TypeRef {
	return info.varType(v, 0)
}

const maxTypeDepth = 16

func (info *Info) varType(v *Variable, depth int) *ast.TypeRef {
	if v == nil {
		return nil
	}
	if t, ok := info.types[v]; ok {
		return t
	}
	t := v.Type
	if t != nil && t.Name == "var" && t.Dims == 0 {
		t = nil
		switch d := v.Decl.(type) {
		case *ast.LocalVarDecl:
			if init := v.Init(); init != nil && depth < maxTypeDepth {
				t = info.typeOf(init, depth+1)
			}
		case *ast.Param:
			if fe, ok := info.Parents[d].(*ast.ForEachStmt); ok && depth < maxTypeDepth {
				t = ElementType(info.typeOf(fe.Iterable, depth+1))
			}
		}
	}
	info.types[v] = t
	return t
}

func (info *Info) typeOf(x ast.Expression, depth int) *ast.TypeRef {
	if x == nil || depth > maxTypeDepth {
		return nil
	}
	d := depth + 1
	switch n := x.(type) {
	case *ast.Identifier:
		return info.varType(info.Uses[n], d)
	case *ast.Literal:
		return literalType(n)
	case *ast.ParenExpr:
		return info.typeOf(n.X, d)
	case *ast.CastExpr:
		return n.Type
	case *ast.BinaryExpr:
		return info.binaryType(n, d)
	case *ast.InstanceOfExpr:
		return Prim("boolean")
	case *ast.UnaryExpr:
		t := info.typeOf(n.X, d)
		switch n.Op {
		case "!":
			return Prim("boolean")
		case "++", "--":
			return t
		}
		return UnaryPromotion(t)
	case *ast.PostfixExpr:
		return info.typeOf(n.X, d)
	case *ast.AssignExpr:
		return info.typeOf(n.Left, d)
	case *ast.ConditionalExpr:
		a, b := info.typeOf(n.Then, d), info.typeOf(n.Else, d)
		if a == nil || isNullType(a) {
			return b
		}
		if IsPrimitive(a) && IsPrimitive(b) && !SameType(a, b) {
			if p := BinaryPromotion(a, b); p != nil {
				return p
			}
		}
		return a
	case *ast.NewExpr:
		return n.Type
	case *ast.NewArrayExpr:
		t := *n.Elem
		t.Dims += len(n.Dims) + n.ExtraDims
		return &t
	case *ast.IndexExpr:
		return ComponentType(info.typeOf(n.X, d))
	case *ast.FieldAccess:
		if v := info.Uses[n.Name]; v != nil {
			return info.varType(v, d)
		}
		if n.Name.Value == "length" && IsArray(info.typeOf(n.X, d)) {
			return Prim("int")
		}
		return staticFieldType(n)
	case *ast.MethodCall:
		return info.callType(n, d)
	case *ast.ThisExpr:
		if cd := info.EnclosingClass(n); cd != nil && cd.Name != nil {
			return Named(cd.Name.Value)
		}
	case *ast.ClassLit:
		return Named("Class", n.Type)
	case *ast.SwitchExpr:
		for _, c := range n.Cases {
			if len(c.Body) == 1 {
				if es, ok := c.Body[0].(*ast.ExprStmt); ok {
					if t := info.typeOf(es.X, d); t != nil {
						return t
					}
				}
			}
		}
	}
	return nil
}

func isNullType(t *ast.TypeRef) bool { return t != nil && t.Name == "null" }

func literalType(l *ast.Literal) *ast.TypeRef {
	switch l.Kind {
	case ast.IntLit:
		return Prim("int")
	case ast.LongLit:
		return Prim("long")
	case ast.FloatLit:
		return Prim("float")
	case ast.DoubleLit:
		return Prim("double")
	case ast.CharLit:
		return Prim("char")
	case ast.StringLit, ast.TextBlockLit:
		return Named("String")
	case ast.BoolLit:
		return Prim("boolean")
	case ast.NullLit:
		return Named("null")
	}
	return nil
}

func (info *Info) binaryType(b *ast.BinaryExpr, d int) *ast.TypeRef {
	switch b.Op {
	case "==", "!=", "<", ">", "<=", ">=", "&&", "||":
		return Prim("boolean")
	}
	l, r := info.typeOf(b.Left, d), info.typeOf(b.Right, d)
	switch b.Op {
	case "+":
		if IsString(l) || IsString(r) {
			return Named("String")
		}
		return BinaryPromotion(l, r)
	case "-", "*", "/", "%":
		return BinaryPromotion(l, r)
	case "<<", ">>", ">>>":
		return UnaryPromotion(l)
	case "&", "|", "^":
		if IsBoolean(l) && IsBoolean(r) {
			return Prim("boolean")
		}
		return BinaryPromotion(l, r)
	}
	return nil
}

func staticFieldType(fa *ast.FieldAccess) *ast.TypeRef {
	id, ok := fa.X.(*ast.Identifier)
	if !ok {
		return nil
	}
	switch id.Value + "." + fa.Name.Value {
	case "Integer.MAX_VALUE", "Integer.MIN_VALUE":
		return Prim("int")
	case "Long.MAX_VALUE", "Long.MIN_VALUE":
		return Prim("long")
	case "Double.MAX_VALUE", "Double.MIN_VALUE", "Double.POSITIVE_INFINITY",
		"Double.NEGATIVE_INFINITY", "Double.NaN", "Math.PI", "Math.E":
		return Prim("double")
	case "System.out", "System.err":
		return Named("PrintStream")
	}
	return nil
}

// receiverClass returns the class name for a static call qualifier such as
// Math in Math.max, or "" when the qualifier is an expression.
func (info *Info) receiverClass(x ast.Expression) string {
	switch n := x.(type) {
	case *ast.Identifier:
		if info.Uses[n] == nil && IsClassName(n.Value) {
			return n.Value
		}
	case *ast.FieldAccess:
		if info.Uses[n.Name] == nil && IsClassName(n.Name.Value) {
			if pkg, ok := n.X.(*ast.Identifier); ok && info.Uses[pkg] == nil && !IsClassName(pkg.Value) {
				return n.Name.Value
			}
			if _, ok := n.X.(*ast.FieldAccess); ok {
				return n.Name.Value
			}
		}
	}
	return ""
}

func (info *Info) callType(mc *ast.MethodCall, d int) *ast.TypeRef {
	name := mc.Name.Value
	if mc.X == nil {
		return info.declaredResult(mc)
	}
	if _, ok := mc.X.(*ast.ThisExpr); ok {
		return info.declaredResult(mc)
	}
	if cls := info.receiverClass(mc.X); cls != "" {
		return info.staticCallType(cls, mc, d)
	}
	recv := info.typeOf(mc.X, d)
	switch name {
	case "toString":
		if len(mc.Args) == 0 {
			return Named("String")
		}
	case "equals":
		return Prim("boolean")
	case "hashCode":
		return Prim("int")
	}
	if recv == nil {
		return nil
	}
	if IsArray(recv) {
		if name == "clone" {
			return recv
		}
		return nil
	}
	switch {
	case IsString(recv):
		return stringMethod(name)
	case IsStringBuilder(recv):
		switch name {
		case "append", "insert", "reverse", "deleteCharAt", "delete", "replace":
			return recv
		case "length", "indexOf", "lastIndexOf":
			return Prim("int")
		case "charAt":
			return Prim("char")
		case "substring":
			return Named("String")
		}
	case IsCollection(recv):
		return collectionMethod(recv, mc)
	case IsMap(recv):
		return mapMethod(recv, name)
	case IsBoxed(recv):
		switch name {
		case "intValue":
			return Prim("int")
		case "longValue":
			return Prim("long")
		case "doubleValue":
			return Prim("double")
		case "compareTo":
			return Prim("int")
		}
	}
	switch recv.SimpleName() {
	case "Entry":
		if len(recv.Args) == 2 {
			switch name {
			case "getKey":
				return wildcardBound(recv.Args[0])
			case "getValue", "setValue":
				return wildcardBound(recv.Args[1])
			}
		}
	case "Optional":
		if len(recv.Args) == 1 {
			switch name {
			case "get", "orElse", "orElseGet", "orElseThrow":
				return wildcardBound(recv.Args[0])
			}
		}
		if name == "isPresent" || name == "isEmpty" {
			return Prim("boolean")
		}
	case "BufferedReader", "LineNumberReader":
		if name == "readLine" {
			return Named("String")
		}
	case "Iterator", "ListIterator":
		if name == "hasNext" {
			return Prim("boolean")
		}
		if name == "next" && len(recv.Args) == 1 {
			return wildcardBound(recv.Args[0])
		}
	case "Matcher":
		switch name {
		case "find", "matches":
			return Prim("boolean")
		case "group":
			return Named("String")
		}
	}
	if cd := info.Class(recv.SimpleName()); cd != nil {
		return info.memberResult(cd, mc)
	}
	return nil
}

func stringMethod(name string) *ast.TypeRef {
	switch name {
	case "length", "indexOf", "lastIndexOf", "compareTo", "compareToIgnoreCase", "codePointAt":
		return Prim("int")
	case "charAt":
		return Prim("char")
	case "isEmpty", "isBlank", "startsWith", "endsWith", "contains", "equalsIgnoreCase", "matches":
		return Prim("boolean")
	case "substring", "trim", "strip", "stripLeading", "stripTrailing", "toUpperCase",
		"toLowerCase", "replace", "replaceAll", "replaceFirst", "repeat", "concat", "intern", "formatted":
		return Named("String")
	case "split":
		return ArrayOf(Named("String"))
	case "toCharArray":
		return ArrayOf(Prim("char"))
	case "getBytes":
		return ArrayOf(Prim("byte"))
	case "chars", "codePoints":
		return Named("IntStream")
	case "lines":
		return Named("Stream", Named("String"))
	}
	return nil
}

func collectionMethod(recv *ast.TypeRef, mc *ast.MethodCall) *ast.TypeRef {
	elem := ElementType(recv)
	switch mc.Name.Value {
	case "size", "indexOf", "lastIndexOf":
		return Prim("int")
	case "isEmpty", "contains", "containsAll", "addAll", "removeAll", "retainAll", "removeIf", "offer":
		return Prim("boolean")
	case "add":
		if len(mc.Args) == 1 {
			return Prim("boolean")
		}
	case "remove":
		if IsList(recv) && len(mc.Args) == 1 {
			if l, ok := mc.Args[0].(*ast.Literal); ok && l.Kind == ast.IntLit {
				return elem
			}
		}
		return Prim("boolean")
	case "get", "getFirst", "getLast", "removeFirst", "removeLast", "peek", "poll",
		"pop", "element", "first", "last", "pollFirst", "pollLast", "set":
		return elem
	case "stream", "parallelStream":
		if elem == nil {
			return nil
		}
		return Named("Stream", elem)
	case "iterator":
		if elem == nil {
			return nil
		}
		return Named("Iterator", elem)
	case "subList":
		return recv
	}
	return nil
}

func mapMethod(recv *ast.TypeRef, name string) *ast.TypeRef {
	k, v := MapTypes(recv)
	switch name {
	case "size":
		return Prim("int")
	case "isEmpty", "containsKey", "containsValue":
		return Prim("boolean")
	case "get", "put", "remove", "getOrDefault", "putIfAbsent", "computeIfAbsent",
		"computeIfPresent", "compute", "merge", "replace":
		return v
	case "keySet":
		if k == nil {
			return nil
		}
		return Named("Set", k)
	case "values":
		if v == nil {
			return nil
		}
		return Named("Collection", v)
	case "entrySet":
		if k == nil || v == nil {
			return nil
		}
		return Named("Set", Named("Map.Entry", k, v))
	}
	return nil
}

func (info *Info) staticCallType(cls string, mc *ast.MethodCall, d int) *ast.TypeRef {
	name := mc.Name.Value
	argType := func(i int) *ast.TypeRef {
		if i < len(mc.Args) {
			return info.typeOf(mc.Args[i], d)
		}
		return nil
	}
	switch cls {
	case "Math", "StrictMath":
		switch name {
		case "max", "min":
			return BinaryPromotion(argType(0), argType(1))
		case "abs", "negateExact", "incrementExact", "decrementExact":
			return UnaryPromotion(argType(0))
		case "addExact", "subtractExact", "multiplyExact", "floorDiv", "floorMod":
			return BinaryPromotion(argType(0), argType(1))
		case "round":
			if NumericKind(argType(0)) == "float" {
				return Prim("int")
			}
			return Prim("long")
		case "toIntExact":
			return Prim("int")
		default:
			return Prim("double")
		}
	case "Integer":
		switch name {
		case "parseInt", "compare", "signum", "bitCount", "sum", "max", "min":
			return Prim("int")
		case "valueOf":
			return Named("Integer")
		case "toString", "toHexString", "toBinaryString":
			return Named("String")
		}
	case "Long":
		switch name {
		case "parseLong", "sum", "max", "min":
			return Prim("long")
		case "compare", "signum":
			return Prim("int")
		case "valueOf":
			return Named("Long")
		case "toString":
			return Named("String")
		}
	case "Double":
		switch name {
		case "parseDouble", "sum", "max", "min":
			return Prim("double")
		case "compare":
			return Prim("int")
		case "valueOf":
			return Named("Double")
		case "isNaN", "isInfinite", "isFinite":
			return Prim("boolean")
		case "toString":
			return Named("String")
		}
	case "Character":
		switch name {
		case "isDigit", "isLetter", "isLetterOrDigit", "isWhitespace", "isUpperCase", "isLowerCase", "isAlphabetic":
			return Prim("boolean")
		case "toUpperCase", "toLowerCase":
			return argType(0)
		case "getNumericValue", "digit":
			return Prim("int")
		case "toString":
			return Named("String")
		}
	case "Boolean":
		if name == "parseBoolean" {
			return Prim("boolean")
		}
	case "String":
		switch name {
		case "valueOf", "format", "join", "copyValueOf":
			return Named("String")
		}
	case "Objects":
		switch name {
		case "equals", "isNull", "nonNull", "deepEquals":
			return Prim("boolean")
		case "hash", "hashCode":
			return Prim("int")
		case "toString":
			return Named("String")
		case "requireNonNull", "requireNonNullElse":
			return argType(0)
		}
	case "Arrays":
		switch name {
		case "asList":
			if t := argType(0); t != nil {
				return Named("List", Boxed(t))
			}
		case "toString", "deepToString":
			return Named("String")
		case "equals":
			return Prim("boolean")
		case "copyOf", "copyOfRange":
			return argType(0)
		}
	case "List", "Set":
		if name == "of" || name == "copyOf" {
			if name == "of" && len(mc.Args) > 0 {
				if t := argType(0); t != nil {
					return Named(cls, Boxed(t))
				}
			}
		}
	case "Collections":
		switch name {
		case "unmodifiableList", "synchronizedList", "unmodifiableSet", "unmodifiableCollection":
			return argType(0)
		case "max", "min":
			return ElementType(argType(0))
		}
	case "Files":
		switch name {
		case "readAllLines":
			return Named("List", Named("String"))
		case "readString":
			return Named("String")
		case "newBufferedReader":
			return Named("BufferedReader")
		case "exists", "isDirectory", "isRegularFile":
			return Prim("boolean")
		}
	case "System":
		switch name {
		case "currentTimeMillis", "nanoTime":
			return Prim("long")
		case "getProperty", "getenv", "lineSeparator":
			return Named("String")
		case "identityHashCode":
			return Prim("int")
		}
	}
	if cd := info.Class(cls); cd != nil {
		return info.memberResult(cd, mc)
	}
	return nil
}

// declaredResult resolves an unqualified or this-qualified call against
// methods declared in the tree.
func (info *Info) declaredResult(mc *ast.MethodCall) *ast.TypeRef {
	if cd := info.EnclosingClass(mc); cd != nil {
		if t := info.memberResult(cd, mc); t != nil {
			return t
		}
	}
	return matchResult(info.methods[mc.Name.Value], mc)
}

func (info *Info) memberResult(cd *ast.ClassDecl, mc *ast.MethodCall) *ast.TypeRef {
	var cands []*ast.MethodDecl
	for _, m := range cd.Members {
		if md, ok := m.(*ast.MethodDecl); ok && md.Name.Value == mc.Name.Value {
			cands = append(cands, md)
		}
	}
	if t := matchResult(cands, mc); t != nil {
		return t
	}
	if cd.Kind == "record" && len(mc.Args) == 0 {
		for _, c := range cd.Components {
			if c.Name.Value == mc.Name.Value {
				return c.Type
			}
		}
	}
	return nil
}

// matchResult returns the common result type of candidates whose arity fits,
// or nil when they disagree.
func matchResult(cands []*ast.MethodDecl, mc *ast.MethodCall) *ast.TypeRef {
	var found *ast.TypeRef
	for _, md := range cands {
		if md.Result == nil || !arityFits(md, len(mc.Args)) {
			continue
		}
		if isTypeParam(md, md.Result) {
			return nil
		}
		if found != nil && !SameType(found, md.Result) {
			return nil
		}
		found = md.Result
	}
	if found != nil && found.Name == "void" {
		return nil
	}
	return found
}

func arityFits(md *ast.MethodDecl, n int) bool {
	if len(md.Params) > 0 && md.Params[len(md.Params)-1].Type.Varargs {
		return n >= len(md.Params)-1
	}
	return len(md.Params) == n
}

func isTypeParam(md *ast.MethodDecl, t *ast.TypeRef) bool {
	for _, tp := range md.TypeParams {
		if tp == t.Name {
			return true
		}
	}
	return false
}
