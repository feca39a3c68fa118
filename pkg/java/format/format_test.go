package format

import (
	"strings"
	"testing"
)

func TestDetectIndentUnit(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"four spaces", "class A {\n    void f() {\n        x();\n    }\n}\n", "    "},
		{"two spaces", "class A {\n  void f() {\n    x();\n  }\n}\n", "  "},
		{"tabs", "class A {\n\tvoid f() {\n\t\tx();\n\t}\n}\n", "\t"},
		{"flat", "x();\ny();\n", DefaultIndent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectIndentUnit(tt.src); got != tt.want {
				t.Errorf("DetectIndentUnit() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLineHelpers(t *testing.T) {
	src := "a();\n    for (x : y) {\n    }\n"
	pos := strings.Index(src, "for")
	if got := LineStart(src, pos); got != 5 {
		t.Errorf("LineStart = %d, want 5", got)
	}
	if got := LineIndent(src, pos); got != "    " {
		t.Errorf("LineIndent = %q, want 4 spaces", got)
	}
	if got := Column(src, pos); got != 4 {
		t.Errorf("Column = %d, want 4", got)
	}
	end := strings.Index(src, "}") + 1
	if !IsAloneOnLines(src, pos, end) {
		t.Errorf("loop should be alone on its lines")
	}
	if IsAloneOnLines(src, 0, 3) {
		t.Errorf("a() without its semicolon is not alone on its line")
	}
	if got := LineEnd(src, pos); src[got] != '\n' {
		t.Errorf("LineEnd should point at a newline, got %q", src[got])
	}
}

func TestReindent(t *testing.T) {
	text := "if (x) {\n        y();\n    }"
	got := Reindent(text, "    ", "  ")
	want := "if (x) {\n      y();\n  }"
	if got != want {
		t.Errorf("Reindent() = %q, want %q", got, want)
	}
}

func TestChainStaysInline(t *testing.T) {
	got := Chain("xs.stream()", []string{".filter(x -> x > 0)", ".count()"}, 8, "        ", "    ")
	want := "xs.stream().filter(x -> x > 0).count()"
	if got != want {
		t.Errorf("Chain() = %q, want %q", got, want)
	}
}

func TestChainBreaksLongPipelines(t *testing.T) {
	calls := []string{
		".filter(person -> person.getAddress() != null)",
		".map(person -> person.getAddress().getCity())",
		".filter(city -> !city.isEmpty())",
		".collect(Collectors.toList())",
	}
	got := Chain("people.stream()", calls, 23, "    ", "    ")
	want := "people.stream()\n" +
		"            .filter(person -> person.getAddress() != null)\n" +
		"            .map(person -> person.getAddress().getCity())\n" +
		"            .filter(city -> !city.isEmpty())\n" +
		"            .collect(Collectors.toList())"
	if got != want {
		t.Errorf("Chain() =\n%s\nwant\n%s", got, want)
	}
}

func TestChainKeepsBlockLambdasInline(t *testing.T) {
	calls := []string{".forEach(x -> {\n    a(x);\n    b(x);\n})"}
	got := Chain("xs.stream()", calls, 0, "", "    ")
	if !strings.HasPrefix(got, "xs.stream().forEach(x -> {") {
		t.Errorf("Chain() = %q", got)
	}
}

func TestBlock(t *testing.T) {
	got := Block([]string{"a(x);", "b(x);"}, "    ", "    ")
	want := "{\n        a(x);\n        b(x);\n    }"
	if got != want {
		t.Errorf("Block() = %q, want %q", got, want)
	}
}
