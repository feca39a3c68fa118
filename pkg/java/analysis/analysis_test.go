package analysis

import (
	"testing"

	"github.com/sambeau/streamline/pkg/java/ast"
	"github.com/sambeau/streamline/pkg/java/parser"
)

func resolveSnippet(t *testing.T, src string) *Info {
	t.Helper()
	res, err := parser.ParseStatements(src)
	if err != nil {
		t.Fatalf("parse error: %s", err.Error())
	}
	return Resolve(res.Node, src)
}

func resolveFile(t *testing.T, src string) *Info {
	t.Helper()
	res, err := parser.ParseFile("Test.java", src)
	if err != nil {
		t.Fatalf("parse error: %s", err.Error())
	}
	return Resolve(res.Node, src)
}

// first returns the first node of type T in source order matching pred.
func first[T ast.Node](root ast.Node, pred func(T) bool) T {
	var found T
	done := false
	ast.Inspect(root, func(n ast.Node) bool {
		if done {
			return false
		}
		if x, ok := n.(T); ok && (pred == nil || pred(x)) {
			found = x
			done = true
			return false
		}
		return true
	})
	return found
}

func variable(info *Info, name string) *Variable {
	for _, v := range info.Vars {
		if v.Name == name {
			return v
		}
	}
	return nil
}

func TestResolveScopes(t *testing.T) {
	src := `
int total = 0;
List<String> names = new ArrayList<>();
for (String s : names) {
    total += s.length();
}
Runnable r = () -> { int total2 = total; };
`
	info := resolveSnippet(t, src)

	total := variable(info, "total")
	if total == nil {
		t.Fatalf("total not declared")
	}
	if total.Kind != LocalVar {
		t.Errorf("total kind = %s, want local", total.Kind)
	}
	if got := len(info.Refs[total]); got != 2 {
		t.Errorf("total refs = %d, want 2", got)
	}
	if got := len(info.Writes(total)); got != 1 {
		t.Errorf("total writes = %d, want 1", got)
	}
	if info.IsEffectivelyFinal(total) {
		t.Errorf("total should not be effectively final")
	}

	s := variable(info, "s")
	if s == nil || s.Type.String() != "String" {
		t.Fatalf("for-each variable not resolved: %+v", s)
	}
	if _, ok := s.Scope.(*ast.ForEachStmt); !ok {
		t.Errorf("s scope = %T, want *ast.ForEachStmt", s.Scope)
	}

	names := variable(info, "names")
	if !info.IsEffectivelyFinal(names) {
		t.Errorf("names should be effectively final")
	}

	total2 := variable(info, "total2")
	if _, ok := total2.Owner.(*ast.LambdaExpr); !ok {
		t.Errorf("total2 owner = %T, want *ast.LambdaExpr", total2.Owner)
	}
	if _, ok := total.Owner.(*ast.Snippet); !ok {
		t.Errorf("total owner = %T, want *ast.Snippet", total.Owner)
	}
}

func TestResolveShadowingAndFields(t *testing.T) {
	src := `class A {
  private int count;
  void f(int x) {
    this.count = x;
    Function<Integer, Integer> g = x2 -> x2 + count;
  }
}`
	info := resolveFile(t, src)
	count := variable(info, "count")
	if count == nil || count.Kind != FieldVar {
		t.Fatalf("count field not found")
	}
	if got := len(info.Refs[count]); got != 2 {
		t.Errorf("count refs = %d, want 2", got)
	}
	x := variable(info, "x")
	if x.Kind != ParamVar {
		t.Errorf("x kind = %s, want parameter", x.Kind)
	}
	x2 := variable(info, "x2")
	if x2.Kind != LambdaParamVar || x2.Type != nil {
		t.Errorf("x2 = %+v, want implicit lambda parameter", x2)
	}
}

func TestTypeOf(t *testing.T) {
	src := `
int i = 0;
long n = 0L;
double d = 1.5;
String s = "a";
List<String> list = new ArrayList<>();
Map<String, Integer> map = new HashMap<>();
int[] arr = new int[10];
var copy = list;
char c = s.charAt(0);
`
	tests := []struct {
		expr string
		want string
	}{
		{"i", "int"},
		{"i + n", "long"},
		{"i * d", "double"},
		{"s + i", "String"},
		{"c + 1", "int"},
		{"i < n", "boolean"},
		{"list", "List<String>"},
		{"list.get(0)", "String"},
		{"list.size()", "int"},
		{"list.stream()", "Stream<String>"},
		{"map.get(s)", "Integer"},
		{"map.entrySet()", "Set<Map.Entry<String, Integer>>"},
		{"arr[0]", "int"},
		{"arr.length", "int"},
		{"copy", "List<String>"},
		{"s.length()", "int"},
		{"Math.max(i, n)", "long"},
		{"Integer.parseInt(s)", "int"},
		{"(double) i", "double"},
		{"-c", "int"},
		{"i++", "int"},
		{"new StringBuilder().append(s)", "StringBuilder"},
	}
	for _, tt := range tests {
		info, x := probe(t, src, tt.expr)
		got := info.TypeOf(x)
		if got == nil {
			t.Errorf("TypeOf(%s) = nil, want %s", tt.expr, tt.want)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("TypeOf(%s) = %s, want %s", tt.expr, got.String(), tt.want)
		}
	}
}

// probe resolves src with one more declaration holding expr and returns the
// resolved tree and the parsed expression.
func probe(t *testing.T, src, expr string) (*Info, ast.Expression) {
	t.Helper()
	info := resolveSnippet(t, src+"\nObject probe = "+expr+";\n")
	decl := first(info.Root, func(vd *ast.VarDeclarator) bool { return vd.Name.Value == "probe" })
	return info, decl.Init
}

func TestTypeOfUnknown(t *testing.T) {
	info := resolveSnippet(t, "Object o = mystery.call();\nList raw = null;\n")
	x := first(info.Root, func(mc *ast.MethodCall) bool { return true })
	if got := info.TypeOf(x); got != nil {
		t.Errorf("TypeOf(mystery.call()) = %s, want nil", got)
	}
	raw := variable(info, "raw")
	if el := ElementType(raw.Type); el != nil {
		t.Errorf("ElementType(raw List) = %s, want nil", el)
	}
}

func TestConstant(t *testing.T) {
	src := `
final int K = 3;
int v = 5;
v++;
`
	tests := []struct {
		expr string
		want string
		ok   bool
	}{
		{"1 + 2 * 3", "7", true},
		{"0x10", "16", true},
		{"010", "8", true},
		{"1_000L", "1000", true},
		{"K * 2", "6", true},
		{"v", "", false},
		{"\"a\" + 1", "a1", true},
		{"'a' + 1", "98", true},
		{"Integer.MAX_VALUE + 1", "-2147483648", true},
		{"10 / 0", "", false},
		{"true && !false", "true", true},
		{"(long) 2.9", "2", true},
		{"1.5 * 2", "3", true},
		{"k()", "", false},
	}
	for _, tt := range tests {
		info, x := probe(t, src, tt.expr)
		c, ok := info.Constant(x)
		if ok != tt.ok {
			t.Errorf("Constant(%s) ok = %v, want %v", tt.expr, ok, tt.ok)
			continue
		}
		if ok && c.String() != tt.want {
			t.Errorf("Constant(%s) = %s, want %s", tt.expr, c.String(), tt.want)
		}
	}
}

func TestEquivalent(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"a + b", "(a) + (b)", true},
		{"a + b", "b + a", false},
		{"list.size()", "(list).size()", true},
		{"x[i]", "x[(i)]", true},
		{"-x", "(-x)", true},
		{"f(1)", "f(2)", false},
	}
	for _, tt := range tests {
		a, err := parser.ParseExpression(tt.a)
		if err != nil {
			t.Fatalf("parse %q: %s", tt.a, err.Error())
		}
		b, err := parser.ParseExpression(tt.b)
		if err != nil {
			t.Fatalf("parse %q: %s", tt.b, err.Error())
		}
		if got := Equivalent(a, b); got != tt.want {
			t.Errorf("Equivalent(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestExitPoints(t *testing.T) {
	src := `
outer:
for (String s : list) {
    if (s == null) continue;
    for (int j = 0; j < 3; j++) {
        if (j == 1) break;
        if (j == 2) continue outer;
    }
    if (s.isEmpty()) break;
    if (s.length() > 3) return;
    try {
        throw new IOException();
    } catch (IOException e) {
    }
    throw new IllegalStateException();
}
`
	info := resolveSnippet(t, src)
	loop := first(info.Root, func(fe *ast.ForEachStmt) bool { return true })
	body := loop.Body.(*ast.BlockStmt)
	exits := info.ExitPoints(body.Stmts)
	var kinds []string
	for _, e := range exits {
		kinds = append(kinds, e.String())
	}
	want := []string{"continue;", "continue outer;", "break;", "return;", "throw new IllegalStateException();"}
	if len(kinds) != len(want) {
		t.Fatalf("exit points = %q, want %q", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("exit %d = %q, want %q", i, kinds[i], want[i])
		}
	}

	isFor := func(n ast.Node) bool {
		_, ok := n.(*ast.ForStmt)
		return ok
	}
	brk := first(info.Root, func(b *ast.BreakStmt) bool {
		return info.Ancestor(b, isFor) == nil
	})
	if !info.StatementBreaksLoop(brk, loop) {
		t.Errorf("break should terminate the outer loop")
	}
	inner := first(info.Root, func(b *ast.BreakStmt) bool { return true })
	if info.StatementBreaksLoop(inner, loop) {
		t.Errorf("inner break should not terminate the outer loop")
	}
}

func TestStatementBreaksLoopByReturn(t *testing.T) {
	src := `class A {
  boolean f(List<String> xs) {
    for (String x : xs) {
      if (x.isEmpty()) return false;
    }
    return false;
  }
}`
	info := resolveFile(t, src)
	loop := first(info.Root, func(fe *ast.ForEachStmt) bool { return true })
	ret := first(loop, func(r *ast.ReturnStmt) bool { return true })
	if !info.StatementBreaksLoop(ret, loop) {
		t.Errorf("return matching the following return should break the loop")
	}
}

func TestNextReturnStatement(t *testing.T) {
	src := `class A {
  boolean f(List<String> xs, boolean flag) {
    if (flag) {
      for (String x : xs) {
        if (x.isEmpty()) return true;
      }
    }
    return false;
  }
  void g(List<String> xs) {
    for (String x : xs) {
      System.out.println(x);
    }
    System.out.println();
  }
}`
	info := resolveFile(t, src)
	loop := first(info.Root, func(fe *ast.ForEachStmt) bool { return true })
	next := info.NextReturnStatement(loop)
	if next == nil || next.String() != "return false;" {
		t.Fatalf("NextReturnStatement = %v, want return false;", next)
	}
	var loops []*ast.ForEachStmt
	ast.Inspect(info.Root, func(n ast.Node) bool {
		if fe, ok := n.(*ast.ForEachStmt); ok {
			loops = append(loops, fe)
		}
		return true
	})
	if got := info.NextReturnStatement(loops[1]); got != nil {
		t.Errorf("NextReturnStatement in void method = %v, want nil", got)
	}
}

func TestInitializerUsageStatus(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want InitializerUsage
	}{
		{
			"declared just before",
			"int sum = 0;\nfor (int x : xs) { sum += x; }\n",
			DeclaredJustBefore,
		},
		{
			"untouched between",
			"int sum = 0;\nlog(xs);\nfor (int x : xs) { sum += x; }\nuse(sum);\n",
			AtWantedPlaceOnly,
		},
		{
			"read between",
			"int sum = 0;\nlog(sum);\nfor (int x : xs) { sum += x; }\n",
			UnknownUsage,
		},
		{
			"inside an enclosing loop",
			"int sum = 0;\nwhile (more()) {\n  for (int x : xs) { sum += x; }\n}\n",
			UnknownUsage,
		},
		{
			"conditional and used afterwards",
			"int sum = 0;\nif (flag) {\n  for (int x : xs) { sum += x; }\n}\nuse(sum);\n",
			AtWantedPlace,
		},
		{
			"no initializer",
			"int sum;\nsum = 0;\nfor (int x : xs) { sum += x; }\n",
			UnknownUsage,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := resolveSnippet(t, tt.src)
			loop := first(info.Root, func(fe *ast.ForEachStmt) bool { return true })
			got := info.InitializerUsageStatus(variable(info, "sum"), loop)
			if got != tt.want {
				t.Errorf("status = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestThrowsChecked(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"plain", "{ total += x; }", false},
		{"runtime throw", "{ throw new IllegalArgumentException(); }", false},
		{"checked throw", "{ throw new Exception(\"x\"); }", true},
		{"sleep", "{ Thread.sleep(10); }", true},
		{"caught", "{ try { Thread.sleep(10); } catch (InterruptedException e) { } }", false},
		{"caught by parent", "{ try { reader.readLine(); } catch (Exception e) { } }", false},
		{"wrong catch", "{ try { Thread.sleep(1); } catch (IOException e) { } }", true},
		{"inside lambda", "{ Runnable r = () -> { throw new Exception(); }; }", false},
		{"declared throws", "{ risky(); }", true},
		{"string join", "{ String.join(\",\", parts); }", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "class A {\n  void risky() throws java.io.IOException {}\n  void f(int x) " + tt.body + "\n}"
			info := resolveFile(t, src)
			f := first(info.Root, func(md *ast.MethodDecl) bool { return md.Name.Value == "f" })
			if got := info.ThrowsChecked(f.Body); got != tt.want {
				t.Errorf("ThrowsChecked = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFreshName(t *testing.T) {
	info := resolveSnippet(t, "int count = 0;\nint count1 = 1;\nfor (String s : xs) { count++; }\n")
	loop := first(info.Root, func(fe *ast.ForEachStmt) bool { return true })
	reserved := make(map[string]bool)
	if got := info.FreshName(loop, "count", reserved); got != "count2" {
		t.Errorf("FreshName(count) = %s, want count2", got)
	}
	if got := info.FreshName(loop, "count", reserved); got != "count3" {
		t.Errorf("second FreshName(count) = %s, want count3", got)
	}
	if got := info.FreshName(loop, "sb", reserved); got != "sb" {
		t.Errorf("FreshName(sb) = %s, want sb", got)
	}
	// reservations belong to the caller, not to info
	if got := info.FreshName(loop, "count", nil); got != "count2" {
		t.Errorf("FreshName(count) without reservations = %s, want count2", got)
	}
	if got := info.FreshName(loop, "int", nil); got != "int1" {
		t.Errorf("FreshName(int) = %s, want int1", got)
	}
}

func TestHasSideEffects(t *testing.T) {
	tests := []struct {
		expr string
		want bool
	}{
		{"a + b", false},
		{"list.size() > 0", false},
		{"i++", true},
		{"x = 3", true},
		{"list.add(x)", true},
		{"s.length()", false},
		{"() -> list.add(x)", false},
	}
	for _, tt := range tests {
		x, err := parser.ParseExpression(tt.expr)
		if err != nil {
			t.Fatalf("parse %q: %s", tt.expr, err.Error())
		}
		if got := HasSideEffects(x); got != tt.want {
			t.Errorf("HasSideEffects(%s) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}
