package repl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sambeau/streamline/pkg/engine"
)

func TestNeedsMoreInput(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"int sum = 0;", false},
		{"for (int x : xs) {", true},
		{"for (int x : xs) {\n    sum += x;\n}", false},
		{`String s = "{";`, false},
		{`char c = '{';`, false},
		{"foo(a, // )\n", true},
		{"/* {", true},
		{"/* { */ x();", false},
		{`String s = "\"{";`, false},
		{"", false},
	}
	for _, tt := range tests {
		if got := needsMoreInput(tt.input); got != tt.want {
			t.Errorf("needsMoreInput(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestFilterCompletions(t *testing.T) {
	got := filterCompletions("new StringB")
	if len(got) != 1 || got[0] != "new StringBuilder" {
		t.Errorf("completions = %v", got)
	}
	if got := filterCompletions("x "); got != nil {
		t.Errorf("completions after space = %v", got)
	}
	if got := filterCompletions(""); got != nil {
		t.Errorf("completions for empty line = %v", got)
	}
}

func newSession() *Session {
	return NewSession(engine.NewAnalyzer(engine.DefaultOptions(), nil))
}

func TestSessionReportsLatestLoops(t *testing.T) {
	s := newSession()

	if got := s.Eval("List<Integer> xs = load();"); got != "OK\n" {
		t.Errorf("declaration: got %q", got)
	}
	if got := s.Eval("int sum = 0;"); got != "OK\n" {
		t.Errorf("declaration: got %q", got)
	}

	got := s.Eval("for (int x : xs) {\n    sum += x;\n}")
	if !strings.HasPrefix(got, "line 1: warning: Can be replaced with 'sum()' call\n") {
		t.Errorf("loop: got %q", got)
	}
	if !strings.Contains(got, "\n    int sum = xs.stream().mapToInt(x -> x).sum();\n") {
		t.Errorf("loop: replacement missing in %q", got)
	}

	// the earlier loop is not reported again
	if got := s.Eval("int other = 1;"); got != "OK\n" {
		t.Errorf("after loop: got %q", got)
	}
}

func TestSessionRejectsBadInput(t *testing.T) {
	s := newSession()
	s.Eval("int a = 1;")

	got := s.Eval("int = ;")
	if got == "OK\n" || !strings.Contains(got, "line 1") {
		t.Errorf("got %q, want a parse error on line 1", got)
	}
	if s.Source() != "int a = 1;\n" {
		t.Errorf("bad input kept: %q", s.Source())
	}
}

func TestSessionFixed(t *testing.T) {
	s := newSession()
	s.Eval("List<Integer> xs = load();\nint sum = 0;")
	s.Eval("for (int x : xs) {\n    sum += x;\n}")

	fixed, err := s.Fixed()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(fixed, "for (") || !strings.Contains(fixed, ".sum();") {
		t.Errorf("fixed = %q", fixed)
	}

	s.Clear()
	if s.Source() != "" {
		t.Errorf("Clear left %q", s.Source())
	}
}

func TestReplCommands(t *testing.T) {
	a := engine.NewAnalyzer(engine.DefaultOptions(), nil)
	s := NewSession(a)
	var out bytes.Buffer

	handleReplCommand(":show", s, a, &out)
	if out.String() != "(empty)\n" {
		t.Errorf(":show on empty session = %q", out.String())
	}

	out.Reset()
	handleReplCommand(":options", s, a, &out)
	if !strings.Contains(out.String(), "language level:          11") {
		t.Errorf(":options = %q", out.String())
	}

	out.Reset()
	handleReplCommand(":nope", s, a, &out)
	if !strings.HasPrefix(out.String(), "Unknown command: :nope") {
		t.Errorf("unknown command = %q", out.String())
	}
}
