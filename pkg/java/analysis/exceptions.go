package analysis

import (
	"strings"

	"github.com/sambeau/streamline/pkg/java/ast"
)

var uncheckedNames = map[string]bool{
	"RuntimeException": true, "IllegalArgumentException": true, "IllegalStateException": true,
	"NullPointerException": true, "UnsupportedOperationException": true,
	"IndexOutOfBoundsException": true, "ArrayIndexOutOfBoundsException": true,
	"StringIndexOutOfBoundsException": true, "ArithmeticException": true,
	"ClassCastException": true, "NumberFormatException": true,
	"ConcurrentModificationException": true, "NoSuchElementException": true,
	"UncheckedIOException": true, "DateTimeException": true, "ArrayStoreException": true,
	"NegativeArraySizeException": true, "SecurityException": true,
	"Error": true, "AssertionError": true, "OutOfMemoryError": true, "StackOverflowError": true,
}

// checkedCalls maps JDK methods that declare checked exceptions to the
// exception they throw.
var checkedCalls = map[string]string{
	"readLine":          "IOException",
	"readAllLines":      "IOException",
	"readAllBytes":      "IOException",
	"readString":        "IOException",
	"newBufferedReader": "IOException",
	"newBufferedWriter": "IOException",
	"createNewFile":     "IOException",
	"getCanonicalPath":  "IOException",
	"createDirectories": "IOException",
	"sleep":             "InterruptedException",
	"join":              "InterruptedException",
	"await":             "InterruptedException",
	"forName":           "ClassNotFoundException",
	"newInstance":       "ReflectiveOperationException",
}

var exceptionParents = map[string]string{
	"FileNotFoundException":        "IOException",
	"EOFException":                 "IOException",
	"IOException":                  "Exception",
	"InterruptedException":         "Exception",
	"ClassNotFoundException":       "ReflectiveOperationException",
	"InstantiationException":       "ReflectiveOperationException",
	"IllegalAccessException":       "ReflectiveOperationException",
	"ReflectiveOperationException": "Exception",
	"Exception":                    "Throwable",
}

// IsUnchecked reports whether an exception class with the given simple name
// is a RuntimeException or Error, consulting classes declared in the tree.
func (info *Info) IsUnchecked(name string) bool {
	for i := 0; i < maxTypeDepth && name != ""; i++ {
		if uncheckedNames[name] || strings.HasSuffix(name, "Error") {
			return true
		}
		cd := info.Class(name)
		if cd == nil || len(cd.Extends) == 0 {
			return false
		}
		name = cd.Extends[0].SimpleName()
	}
	return false
}

func (info *Info) isSubclass(name, of string) bool {
	for i := 0; i < maxTypeDepth && name != ""; i++ {
		if name == of {
			return true
		}
		if p, ok := exceptionParents[name]; ok {
			name = p
			continue
		}
		if cd := info.Class(name); cd != nil && len(cd.Extends) > 0 {
			name = cd.Extends[0].SimpleName()
			continue
		}
		if uncheckedNames[name] {
			name = "RuntimeException"
			if of == "Exception" || of == "Throwable" {
				return true
			}
			continue
		}
		return of == "Throwable" || of == "Exception" && !strings.HasSuffix(name, "Error")
	}
	return false
}

// thrownName names the exception class a throw statement raises, or "" when
// unknown.
func (info *Info) thrownName(t *ast.ThrowStmt) string {
	switch x := ast.Unparen(t.X).(type) {
	case *ast.NewExpr:
		return x.Type.SimpleName()
	default:
		if ty := info.TypeOf(x); ty != nil {
			return ty.SimpleName()
		}
	}
	return ""
}

// caughtWithin reports whether a try statement that lies inside the range
// described by inRange catches the exception raised at n.
func (info *Info) caughtWithin(n ast.Node, inRange func(ast.Node) bool, name string) bool {
	var child ast.Node = n
	for p := info.Parents[n]; p != nil && inRange(p); child, p = p, info.Parents[p] {
		if stopsWalk(p) {
			return false
		}
		try, ok := p.(*ast.TryStmt)
		if !ok || ast.Node(try.Body) != child {
			continue
		}
		for _, c := range try.Catches {
			for _, ct := range catchTypes(c) {
				caught := ct.SimpleName()
				if caught == "Throwable" || caught == "Exception" || name != "" && info.isSubclass(name, caught) {
					return true
				}
			}
		}
	}
	return false
}

func catchTypes(c *ast.CatchClause) []*ast.TypeRef {
	if len(c.Types) > 0 {
		return c.Types
	}
	if c.Param != nil && c.Param.Type != nil {
		return []*ast.TypeRef{c.Param.Type}
	}
	return nil
}

// ThrowsChecked reports whether executing n may raise a checked exception
// that is not caught inside n. Lambda and class bodies are not inspected.
func (info *Info) ThrowsChecked(n ast.Node) bool {
	inRange := func(c ast.Node) bool { return ast.Contains(n, c) }
	found := false
	ast.Inspect(n, func(c ast.Node) bool {
		if found {
			return false
		}
		if c != n && stopsWalk(c) {
			return false
		}
		var name string
		switch x := c.(type) {
		case *ast.ThrowStmt:
			name = info.thrownName(x)
			if name != "" && info.IsUnchecked(name) {
				return true
			}
			if name == "" {
				name = "Exception"
			}
		case *ast.MethodCall:
			name = info.checkedCallException(x)
		case *ast.NewExpr:
			name = info.checkedConstructorException(x)
		}
		if name != "" && !info.caughtWithin(c, inRange, name) {
			found = true
		}
		return true
	})
	return found
}

func (info *Info) checkedCallException(mc *ast.MethodCall) string {
	name := mc.Name.Value
	if mc.X == nil {
		return info.declaredThrows(info.methods[name], len(mc.Args))
	}
	if _, ok := mc.X.(*ast.ThisExpr); ok {
		return info.declaredThrows(info.methods[name], len(mc.Args))
	}
	ex, ok := checkedCalls[name]
	if !ok {
		if recv := info.TypeOf(mc.X); recv != nil {
			if cd := info.Class(recv.SimpleName()); cd != nil {
				return info.declaredThrows(methodsOf(cd, name), len(mc.Args))
			}
		}
		if cls := info.receiverClass(mc.X); cls != "" {
			if cd := info.Class(cls); cd != nil {
				return info.declaredThrows(methodsOf(cd, name), len(mc.Args))
			}
		}
		return ""
	}
	switch name {
	case "join":
		// String.join and Collectors.joining are the common unqualified cases.
		if cls := info.receiverClass(mc.X); cls != "" && cls != "Thread" {
			return ""
		}
		if t := info.TypeOf(mc.X); t != nil && t.SimpleName() != "Thread" {
			return ""
		}
		if len(mc.Args) > 1 {
			return ""
		}
	case "sleep":
		if cls := info.receiverClass(mc.X); cls != "Thread" && cls != "TimeUnit" {
			if t := info.TypeOf(mc.X); t == nil || t.SimpleName() != "TimeUnit" {
				return ""
			}
		}
	case "await":
		if t := info.TypeOf(mc.X); t != nil && t.SimpleName() != "CountDownLatch" && t.SimpleName() != "Condition" {
			return ""
		}
	}
	return ex
}

func (info *Info) checkedConstructorException(ne *ast.NewExpr) string {
	switch ne.Type.SimpleName() {
	case "FileReader", "FileInputStream", "FileOutputStream", "FileWriter", "PrintWriter":
		if ne.Type.SimpleName() == "PrintWriter" && len(ne.Args) == 1 {
			if t := info.TypeOf(ne.Args[0]); t == nil || !IsString(t) {
				return ""
			}
		}
		return "FileNotFoundException"
	}
	if cd := info.Class(ne.Type.SimpleName()); cd != nil {
		var ctors []*ast.MethodDecl
		for _, m := range cd.Members {
			if md, ok := m.(*ast.MethodDecl); ok && md.Result == nil {
				ctors = append(ctors, md)
			}
		}
		return info.declaredThrows(ctors, len(ne.Args))
	}
	return ""
}

func methodsOf(cd *ast.ClassDecl, name string) []*ast.MethodDecl {
	var out []*ast.MethodDecl
	for _, m := range cd.Members {
		if md, ok := m.(*ast.MethodDecl); ok && md.Name.Value == name {
			out = append(out, md)
		}
	}
	return out
}

// declaredThrows returns the first checked exception declared by a method
// whose arity fits, or "".
func (info *Info) declaredThrows(cands []*ast.MethodDecl, nargs int) string {
	for _, md := range cands {
		if !arityFits(md, nargs) {
			continue
		}
		for _, t := range md.Throws {
			if !info.IsUnchecked(t.SimpleName()) {
				return t.SimpleName()
			}
		}
	}
	return ""
}
