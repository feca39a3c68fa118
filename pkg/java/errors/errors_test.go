package errors

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSourceError_String(t *testing.T) {
	tests := []struct {
		name     string
		err      *SourceError
		expected string
	}{
		{
			name:     "message only",
			err:      &SourceError{Message: "something went wrong"},
			expected: "something went wrong",
		},
		{
			name:     "with line and column",
			err:      &SourceError{Message: "unexpected token", Line: 5, Column: 10},
			expected: "line 5, column 10: unexpected token",
		},
		{
			name:     "with file",
			err:      &SourceError{Message: "parse error", File: "Main.java", Line: 3, Column: 1},
			expected: "Main.java: line 3, column 1: parse error",
		},
		{
			name:     "with hints",
			err:      &SourceError{Message: "bad", Hints: []string{"try this"}},
			expected: "bad\n  try this",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestNewFromCatalog(t *testing.T) {
	err := NewWithPosition("PARSE-0001", 2, 7, map[string]any{"Expected": "';'", "Got": "}"})
	if err.Class != ClassParse {
		t.Errorf("Class = %q, want parse", err.Class)
	}
	if err.Message != "expected ';', got '}'" {
		t.Errorf("Message = %q", err.Message)
	}
	if !err.IsParseError() {
		t.Errorf("IsParseError() = false")
	}

	unknown := New("NOPE-1", map[string]any{"message": "custom"})
	if unknown.Message != "custom" || unknown.Code != "NOPE-1" {
		t.Errorf("unknown code error = %+v", unknown)
	}
}

func TestWithFileDoesNotMutate(t *testing.T) {
	orig := NewSimple(ClassIO, "boom")
	withFile := orig.WithFile("A.java").WithPosition(4, 2)
	if orig.File != "" || orig.Line != 0 {
		t.Errorf("original mutated: %+v", orig)
	}
	if !strings.HasPrefix(withFile.String(), "A.java: line 4, column 2") {
		t.Errorf("String() = %q", withFile.String())
	}
}

func TestPrettyStringAndJSON(t *testing.T) {
	err := &SourceError{Class: ClassParse, Message: "unexpected token ')'", File: "B.java", Line: 9, Column: 3, Hints: []string{"remove it"}}
	pretty := err.PrettyString()
	for _, want := range []string{"Parse error", "in: B.java", "at: line 9, column 3", "Hint: remove it"} {
		if !strings.Contains(pretty, want) {
			t.Errorf("PrettyString() missing %q:\n%s", want, pretty)
		}
	}

	data, jerr := err.ToJSON()
	if jerr != nil {
		t.Fatalf("ToJSON: %v", jerr)
	}
	var decoded map[string]any
	if jerr := json.Unmarshal(data, &decoded); jerr != nil {
		t.Fatalf("invalid JSON: %v", jerr)
	}
	if decoded["class"] != "parse" || decoded["file"] != "B.java" {
		t.Errorf("decoded = %v", decoded)
	}
}
