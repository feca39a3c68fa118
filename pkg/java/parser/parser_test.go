package parser

import (
	"strings"
	"testing"

	"github.com/sambeau/streamline/pkg/java/ast"
)

func TestOperatorPrecedenceParsing(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"a + b * c", "(a + (b * c))"},
		{"a * b + c", "((a * b) + c)"},
		{"a = b = c", "a = b = c"},
		{"x >> 2", "(x >> 2)"},
		{"x >>> 1 > 0", "((x >>> 1) > 0)"},
		{"a >>= 2", "a >>= 2"},
		{"a <<= 2", "a <<= 2"},
		{"a > b ? c : d", "((a > b) ? c : d)"},
		{"!done && i < 10", "((!done) && (i < 10))"},
		{"i++ < n", "((i++) < n)"},
		{"-a * b", "((-a) * b)"},
		{"a || b && c", "(a || (b && c))"},
		{"a == b | c", "((a == b) | c)"},
		{"s.length() > 0", "(s.length() > 0)"},
		{"a[i][j]", "a[i][j]"},
		{"this.x", "this.x"},
		{"o instanceof String s", "(o instanceof String s)"},
		{"x += y * 2", "x += (y * 2)"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			x, err := ParseExpression(tt.input)
			if err != nil {
				t.Fatalf("ParseExpression(%q) error: %v", tt.input, err)
			}
			if got := x.String(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestCastsAndParens(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		cast     bool
	}{
		{"(String) o", "((String) o)", true},
		{"(int) -x", "((int) (-x))", true},
		{"(List<String>) raw", "((List<String>) raw)", true},
		{"(int[]) arr", "((int[]) arr)", true},
		{"(a) - b", "((a) - b)", false},
		{"(i < n)", "((i < n))", false},
		{"(x)", "(x)", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			x, err := ParseExpression(tt.input)
			if err != nil {
				t.Fatalf("ParseExpression(%q) error: %v", tt.input, err)
			}
			if got := x.String(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
			_, isCast := x.(*ast.CastExpr)
			if isCast != tt.cast {
				t.Errorf("cast = %v, want %v (%T)", isCast, tt.cast, x)
			}
		})
	}
}

func TestLambdasAndMethodRefs(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"x -> x * 2", "x -> (x * 2)"},
		{"(a, b) -> a + b", "(a, b) -> (a + b)"},
		{"() -> 1", "() -> 1"},
		{"(int a) -> a", "(int a) -> a"},
		{"s -> { return s; }", "s -> { return s; }"},
		{"list.stream().map(String::valueOf)", "list.stream().map(String::valueOf)"},
		{"int[]::new", "int[]::new"},
		{"String[]::new", "String[]::new"},
		{"ArrayList::new", "ArrayList::new"},
		{"this::accept", "this::accept"},
		{"map.computeIfAbsent(k, key -> new ArrayList<>())", "map.computeIfAbsent(k, key -> new ArrayList<>())"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			x, err := ParseExpression(tt.input)
			if err != nil {
				t.Fatalf("ParseExpression(%q) error: %v", tt.input, err)
			}
			if got := x.String(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestCreationExpressions(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"new ArrayList<>()", "new ArrayList<>()"},
		{"new HashMap<String, List<Integer>>()", "new HashMap<String, List<Integer>>()"},
		{"new int[n]", "new int[n]"},
		{"new int[n][]", "new int[n][]"},
		{`new String[]{"a", "b"}`, `new String[]{"a", "b"}`},
		{"Foo.class", "Foo.class"},
		{"int.class", "int.class"},
		{"Collections.<String>emptyList()", "Collections.emptyList()"},
		{"new Runnable() { public void run() {} }", "new Runnable() {...}"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			x, err := ParseExpression(tt.input)
			if err != nil {
				t.Fatalf("ParseExpression(%q) error: %v", tt.input, err)
			}
			if got := x.String(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestLoopStatements(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{
			"for (int i = 0; i < n; i++) { sum += a[i]; }",
			"for (int i = 0; (i < n); (i++)) { sum += a[i]; }",
		},
		{
			"for (String s : list) if (s.isEmpty()) count++;",
			"for (String s : list) if (s.isEmpty()) (count++);",
		},
		{
			"for (final Map.Entry<String, Integer> e : map.entrySet()) {}",
			"for (final Map.Entry<String, Integer> e : map.entrySet()) { }",
		},
		{
			"for (;;) break;",
			"for (; ; ) break;",
		},
		{
			"for (i = 0, j = n; i < j; i++, j--) {}",
			"for (i = 0, j = n; (i < j); (i++), (j--)) { }",
		},
		{
			"while ((line = reader.readLine()) != null) { lines.add(line); }",
			"while (((line = reader.readLine()) != null)) { lines.add(line); }",
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res, err := ParseStatements(tt.input)
			if err != nil {
				t.Fatalf("ParseStatements(%q) error: %v", tt.input, err)
			}
			if len(res.Node.Stmts) != 1 {
				t.Fatalf("expected 1 statement, got %d", len(res.Node.Stmts))
			}
			if got := res.Node.Stmts[0].String(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDeclarationsVersusExpressions(t *testing.T) {
	tests := []struct {
		input string
		decl  bool
	}{
		{"int x = 0;", true},
		{"List<String> names = new ArrayList<>();", true},
		{"Map<String, List<Integer>> m;", true},
		{"var it = list.iterator();", true},
		{"int[] arr = {1, 2, 3};", true},
		{"x = 0;", false},
		{"a < b;", false},
		{"list.add(x);", false},
		{"i++;", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res, err := ParseStatements(tt.input)
			if err != nil {
				t.Fatalf("ParseStatements(%q) error: %v", tt.input, err)
			}
			_, isDecl := res.Node.Stmts[0].(*ast.LocalVarDecl)
			if isDecl != tt.decl {
				t.Errorf("declaration = %v, want %v (%T)", isDecl, tt.decl, res.Node.Stmts[0])
			}
		})
	}
}

func TestSwitchForms(t *testing.T) {
	input := `switch (kind) {
	case A -> count++;
	case B, C -> { total += 2; }
	default -> throw new IllegalStateException();
}
int v = switch (x) { case 1: yield 10; default: yield 0; };`

	res, err := ParseStatements(input)
	if err != nil {
		t.Fatalf("ParseStatements error: %v", err)
	}
	if len(res.Node.Stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(res.Node.Stmts))
	}
	sw, ok := res.Node.Stmts[0].(*ast.SwitchStmt)
	if !ok {
		t.Fatalf("first statement is %T", res.Node.Stmts[0])
	}
	if len(sw.Cases) != 3 || !sw.Cases[0].Arrow || len(sw.Cases[1].Exprs) != 2 || len(sw.Cases[2].Exprs) != 0 {
		t.Errorf("unexpected cases: %+v", sw.Cases)
	}
	decl := res.Node.Stmts[1].(*ast.LocalVarDecl)
	if _, ok := decl.Vars[0].Init.(*ast.SwitchExpr); !ok {
		t.Errorf("initializer is %T, want *ast.SwitchExpr", decl.Vars[0].Init)
	}
}

func TestTryAndLabels(t *testing.T) {
	input := `try (BufferedReader r = open(); Scanner s = scan()) {
	outer:
	for (int i = 0; i < n; i++) { continue outer; }
} catch (IOException | RuntimeException e) {
	throw e;
} finally {
	done = true;
}`
	res, err := ParseStatements(input)
	if err != nil {
		t.Fatalf("ParseStatements error: %v", err)
	}
	ts, ok := res.Node.Stmts[0].(*ast.TryStmt)
	if !ok {
		t.Fatalf("statement is %T", res.Node.Stmts[0])
	}
	if len(ts.Resources) != 2 || len(ts.Catches) != 1 || ts.Finally == nil {
		t.Errorf("resources=%d catches=%d finally=%v", len(ts.Resources), len(ts.Catches), ts.Finally != nil)
	}
	if len(ts.Catches[0].Types) != 2 {
		t.Errorf("multi-catch types = %d", len(ts.Catches[0].Types))
	}
	if _, ok := ts.Body.Stmts[0].(*ast.LabeledStmt); !ok {
		t.Errorf("body[0] is %T, want *ast.LabeledStmt", ts.Body.Stmts[0])
	}
}

func TestCompilationUnit(t *testing.T) {
	src := `package com.example;

import java.util.*;
import static java.util.stream.Collectors.toList;

// totals
public class Totals<T> extends Base implements Runnable {
	private final List<T> items = new ArrayList<>();
	enum Mode { FAST, SLOW; }

	public Totals(List<T> items) { this.items.addAll(items); }

	@Override
	public void run() {}

	static <R> R first(List<R> list) throws Exception {
		for (R r : list) {
			return r;
		}
		return null;
	}
}
`
	res, err := ParseFile("Totals.java", src)
	if err != nil {
		t.Fatalf("ParseFile error: %v", err)
	}
	cu := res.Node
	if cu.Package == nil || cu.Package.Name != "com.example" {
		t.Errorf("package = %+v", cu.Package)
	}
	if len(cu.Imports) != 2 || !cu.Imports[0].Wildcard || !cu.Imports[1].Static {
		t.Errorf("imports = %+v", cu.Imports)
	}
	if len(cu.Types) != 1 || cu.Types[0].Name.Value != "Totals" {
		t.Fatalf("types = %+v", cu.Types)
	}
	if got := len(cu.Types[0].Members); got != 5 {
		t.Errorf("members = %d, want 5", got)
	}
	if len(res.Comments) != 1 || res.Comments[0].Text != "// totals" {
		t.Errorf("comments = %+v", res.Comments)
	}
}

func TestNodeSpansCoverSource(t *testing.T) {
	src := "int total = 0;\nfor (int v : values) {\n  total += v;\n}\n"
	res, err := ParseStatements(src)
	if err != nil {
		t.Fatalf("ParseStatements error: %v", err)
	}
	loop := res.Node.Stmts[1]
	got := src[loop.Pos():loop.End()]
	want := "for (int v : values) {\n  total += v;\n}"
	if got != want {
		t.Errorf("span text = %q, want %q", got, want)
	}
	fe := loop.(*ast.ForEachStmt)
	if src[fe.Iterable.Pos():fe.Iterable.End()] != "values" {
		t.Errorf("iterable span = %q", src[fe.Iterable.Pos():fe.Iterable.End()])
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"int x = ;", "unexpected token ';'"},
		{"for (int i = 0; i < n i++) {}", "expected ';'"},
		{"if (x { }", "expected ')'"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := ParseStatements(tt.input)
			if err == nil {
				t.Fatalf("expected an error")
			}
			if !strings.Contains(err.Message, tt.want) {
				t.Errorf("error = %q, want it to contain %q", err.Message, tt.want)
			}
			if err.Line != 1 {
				t.Errorf("line = %d, want 1", err.Line)
			}
		})
	}
}
