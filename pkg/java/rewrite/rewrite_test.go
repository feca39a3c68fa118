package rewrite

import (
	"errors"
	"reflect"
	"testing"

	"github.com/sambeau/streamline/pkg/java/ast"
	jerrors "github.com/sambeau/streamline/pkg/java/errors"
	"github.com/sambeau/streamline/pkg/java/parser"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name  string
		edits func(s *Set)
		want  string
	}{
		{"replace", func(s *Set) { s.Replace(1, 3, "X") }, "aXdef"},
		{"delete", func(s *Set) { s.Delete(0, 2) }, "cdef"},
		{"insertions keep order", func(s *Set) {
			s.Insert(2, "1")
			s.Insert(2, "2")
		}, "ab12cdef"},
		{"insertion before replacement", func(s *Set) {
			s.Replace(2, 4, "R")
			s.Insert(2, "I")
		}, "abIRef"},
		{"out of order", func(s *Set) {
			s.Replace(4, 6, "Z")
			s.Replace(0, 1, "A")
		}, "AbcdZ"},
		{"insert at end", func(s *Set) { s.Insert(6, "!") }, "abcdef!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Set{}
			tt.edits(s)
			got, err := ApplySet("abcdef", s)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestApplyRejectsOverlap(t *testing.T) {
	s := &Set{}
	s.Replace(1, 3, "X")
	s.Replace(2, 4, "Y")
	_, err := ApplySet("abcdef", s)
	var se *jerrors.SourceError
	if !errors.As(err, &se) || se.Code != "REWRITE-0001" {
		t.Errorf("err = %v, want REWRITE-0001", err)
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Edit
		want bool
	}{
		{"disjoint", Edit{Start: 0, End: 2}, Edit{Start: 2, End: 4}, false},
		{"crossing", Edit{Start: 0, End: 3}, Edit{Start: 2, End: 4}, true},
		{"insertion at boundary", Edit{Start: 2, End: 2}, Edit{Start: 2, End: 4}, false},
		{"insertion inside", Edit{Start: 3, End: 3}, Edit{Start: 2, End: 4}, true},
		{"two insertions", Edit{Start: 3, End: 3}, Edit{Start: 3, End: 3}, false},
	}
	for _, tt := range tests {
		a, b := &Set{edits: []Edit{tt.a}}, &Set{edits: []Edit{tt.b}}
		if got := a.Overlaps(b); got != tt.want {
			t.Errorf("%s: Overlaps = %v, want %v", tt.name, got, tt.want)
		}
		if got := b.Overlaps(a); got != tt.want {
			t.Errorf("%s: reversed Overlaps = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestMerge(t *testing.T) {
	a, b := &Set{}, &Set{}
	a.Insert(0, "x")
	b.Delete(1, 2)
	a.Merge(b)
	if a.Len() != 2 || a.Edits()[1] != (Edit{Start: 1, End: 2}) {
		t.Errorf("merged edits = %+v", a.Edits())
	}
}

func parseUnit(t *testing.T, src string) *ast.CompilationUnit {
	t.Helper()
	res, err := parser.ParseFile("Test.java", src)
	if err != nil {
		t.Fatalf("parse error: %s", err.Error())
	}
	return res.Node
}

func TestImportsNeed(t *testing.T) {
	src := "package demo;\n\nimport java.util.List;\nimport java.awt.*;\nimport java.awt.Color;\n\nclass Collectors {}\n"
	tests := []struct {
		qualified string
		qualify   bool
		want      string
		pending   []string
	}{
		{"java.lang.String", false, "String", nil},
		{"java.util.List", false, "List", nil},
		{"java.awt.Point", false, "Point", nil},
		{"java.util.Map", false, "Map", []string{"java.util.Map"}},
		{"java.util.Map", true, "java.util.Map", nil},
		{"demo.Thing", true, "Thing", nil},
		// the class declared in the file hides the import
		{"java.util.stream.Collectors", false, "java.util.stream.Collectors", nil},
		{"my.Color", false, "my.Color", nil},
	}
	cu := parseUnit(t, src)
	for _, tt := range tests {
		im := NewImports(cu, tt.qualify)
		if got := im.Need(tt.qualified); got != tt.want {
			t.Errorf("Need(%s) = %q, want %q", tt.qualified, got, tt.want)
		}
		if got := im.Pending(); len(got) != len(tt.pending) || len(got) > 0 && !reflect.DeepEqual(got, tt.pending) {
			t.Errorf("Need(%s): pending = %v, want %v", tt.qualified, got, tt.pending)
		}
	}
}

func TestImportsSnippet(t *testing.T) {
	im := NewImports(nil, false)
	if got := im.Need("java.util.stream.Collectors"); got != "java.util.stream.Collectors" {
		t.Errorf("Need = %q", got)
	}
	s := &Set{}
	im.AddTo(s)
	if s.Len() != 0 {
		t.Errorf("snippet got import edits")
	}
}

func TestImportsAddTo(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			"after imports",
			"package demo;\n\nimport java.util.List;\n\nclass A {}\n",
			"package demo;\n\nimport java.util.List;\nimport java.util.Map;\nimport java.util.stream.Collectors;\n\nclass A {}\n",
		},
		{
			"after package",
			"package demo;\n\nclass A {}\n",
			"package demo;\n\nimport java.util.Map;\nimport java.util.stream.Collectors;\n\nclass A {}\n",
		},
		{
			"top of file",
			"class A {}\n",
			"import java.util.Map;\nimport java.util.stream.Collectors;\n\nclass A {}\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			im := NewImports(parseUnit(t, tt.src), false)
			im.Need("java.util.stream.Collectors")
			im.Need("java.util.Map")
			im.Need("java.util.Map")
			s := &Set{}
			im.AddTo(s)
			got, err := ApplySet(tt.src, s)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func snippet(t *testing.T, src string) (*ast.Snippet, *Tracker) {
	t.Helper()
	res, err := parser.ParseStatements(src)
	if err != nil {
		t.Fatalf("parse error: %s", err.Error())
	}
	return res.Node, NewTracker(src, res.Comments)
}

func TestTrackerRestoresLostComments(t *testing.T) {
	src := "foo(/* why */ x, y);\n"
	sn, tr := snippet(t, src)
	s := &Set{}
	tr.ReplaceNode(s, sn.Stmts[0], "bar();")
	got, err := ApplySet(src, s)
	if err != nil {
		t.Fatal(err)
	}
	if want := "/* why */\nbar();\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTrackerKeepsReusedComments(t *testing.T) {
	src := "foo(x /* why */ + 1);\n"
	sn, tr := snippet(t, src)
	call := sn.Stmts[0].(*ast.ExprStmt).X.(*ast.MethodCall)
	s := &Set{}
	tr.ReplaceNode(s, sn.Stmts[0], "bar("+tr.Text(call.Args[0])+");")
	got, err := ApplySet(src, s)
	if err != nil {
		t.Fatal(err)
	}
	if want := "bar(x /* why */ + 1);\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if lost := tr.Lost(0, len(src)); len(lost) != 0 {
		t.Errorf("lost = %v", lost)
	}
}

func TestDeleteStatement(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		index int
		want  string
	}{
		{"own line", "int a = 1;\nint b = 2;\nint c = 3;\n", 1, "int a = 1;\nint c = 3;\n"},
		{"shared line", "int a = 1; int b = 2;\n", 0, "int b = 2;\n"},
		{"comment kept", "int a = 1;\nint b = /* two */ 2;\n", 1, "int a = 1;\n/* two */\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sn, tr := snippet(t, tt.src)
			s := &Set{}
			tr.DeleteStatement(s, sn.Stmts[tt.index])
			got, err := ApplySet(tt.src, s)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNegated(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"!done", "done"},
		{"!(a && b)", "a && b"},
		{"a < b", "a >= b"},
		{"x == null", "x != null"},
		{"true", "false"},
		{"list.isEmpty()", "!list.isEmpty()"},
		{"a || b", "!(a || b)"},
		{"(a || b)", "!(a || b)"},
	}
	for _, tt := range tests {
		x, err := parser.ParseExpression(tt.in)
		if err != nil {
			t.Fatalf("%s: %s", tt.in, err.Error())
		}
		tr := NewTracker(tt.in, nil)
		if got := tr.Negated(x); got != tt.want {
			t.Errorf("Negated(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
