// Package errors provides the structured error type used by streamline.
//
// SourceError represents parse, configuration, cache and I/O failures with
// enough metadata to point the user at the offending line and to be exported
// as JSON alongside a findings report.
package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

// ErrorClass categorizes errors for filtering and templating.
type ErrorClass string

const (
	ClassParse   ErrorClass = "parse"   // Syntax errors in Java input
	ClassIO      ErrorClass = "io"      // File operations
	ClassConfig  ErrorClass = "config"  // Configuration loading
	ClassCache   ErrorClass = "cache"   // Result cache
	ClassRewrite ErrorClass = "rewrite" // Conflicting or invalid edits
)

// SourceError represents any error tied to an input file.
type SourceError struct {
	Class   ErrorClass     `json:"class"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hints   []string       `json:"hints,omitempty"`
	Line    int            `json:"line"`   // 1-based line (0 if unknown)
	Column  int            `json:"column"` // 1-based column (0 if unknown)
	File    string         `json:"file,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	return e.String()
}

// String returns a formatted string representation of the error.
func (e *SourceError) String() string {
	var sb strings.Builder

	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf("line %d, column %d: ", e.Line, e.Column))
	}

	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// PrettyString returns a multi-line formatted string for display.
func (e *SourceError) PrettyString() string {
	var sb strings.Builder

	switch e.Class {
	case ClassParse:
		sb.WriteString("Parse error")
	case ClassConfig:
		sb.WriteString("Config error")
	default:
		sb.WriteString("Error")
	}

	if e.File != "" {
		sb.WriteString(":\n  in: ")
		sb.WriteString(e.File)
		if e.Line > 0 {
			sb.WriteString(fmt.Sprintf("\n  at: line %d, column %d", e.Line, e.Column))
		}
		sb.WriteString("\n  ")
	} else if e.Line > 0 {
		sb.WriteString(fmt.Sprintf(": line %d, column %d\n  ", e.Line, e.Column))
	} else {
		sb.WriteString(":\n  ")
	}

	sb.WriteString(e.Message)

	for i, hint := range e.Hints {
		sb.WriteString("\n  ")
		if i == 0 {
			sb.WriteString("Hint: ")
		} else {
			sb.WriteString("  or: ")
		}
		sb.WriteString(hint)
	}

	return sb.String()
}

// ToJSON returns the error as JSON bytes.
func (e *SourceError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// WithFile returns a copy of the error with the file path set.
func (e *SourceError) WithFile(file string) *SourceError {
	copy := *e
	copy.File = file
	return &copy
}

// WithPosition returns a copy of the error with line and column set.
func (e *SourceError) WithPosition(line, column int) *SourceError {
	copy := *e
	copy.Line = line
	copy.Column = column
	return &copy
}

// IsParseError returns true if this is a parser error.
func (e *SourceError) IsParseError() bool {
	return e.Class == ClassParse
}

// ErrorDef defines an error in the catalog.
type ErrorDef struct {
	Class    ErrorClass
	Template string
	Hints    []string
}

// ErrorCatalog maps error codes to their definitions.
var ErrorCatalog = map[string]ErrorDef{
	"PARSE-0001": {
		Class:    ClassParse,
		Template: "expected {{.Expected}}, got '{{.Got}}'",
	},
	"PARSE-0002": {
		Class:    ClassParse,
		Template: "unexpected token '{{.Token}}'",
	},
	"PARSE-0003": {
		Class:    ClassParse,
		Template: "unterminated literal {{.Literal}}",
	},
	"PARSE-0004": {
		Class:    ClassParse,
		Template: "'{{.Construct}}' is not supported",
		Hints:    []string{"rewrite the enclosing method by hand or exclude the file"},
	},
	"IO-0001": {
		Class:    ClassIO,
		Template: "cannot read {{.Path}}: {{.Err}}",
	},
	"IO-0002": {
		Class:    ClassIO,
		Template: "cannot write {{.Path}}: {{.Err}}",
	},
	"CONFIG-0001": {
		Class:    ClassConfig,
		Template: "invalid value for {{.Key}}: {{.Value}}",
		Hints:    []string{"{{.Hint}}"},
	},
	"CACHE-0001": {
		Class:    ClassCache,
		Template: "cannot open cache {{.Path}}: {{.Err}}",
		Hints:    []string{"delete the cache file or run with --no-cache"},
	},
	"CACHE-0002": {
		Class:    ClassCache,
		Template: "corrupt cache entry: {{.Err}}",
	},
	"REWRITE-0001": {
		Class:    ClassRewrite,
		Template: "overlapping edits at offset {{.Offset}}",
	},
}

// New creates a SourceError from the catalog.
// If the code is not found, creates a generic error with the message.
func New(code string, data map[string]any) *SourceError {
	def, ok := ErrorCatalog[code]
	if !ok {
		msg := code
		if data != nil {
			if m, ok := data["message"].(string); ok {
				msg = m
			}
		}
		return &SourceError{
			Class:   ClassIO,
			Code:    code,
			Message: msg,
			Data:    data,
		}
	}

	msg := renderTemplate(def.Template, data)

	var hints []string
	for _, hintTmpl := range def.Hints {
		rendered := renderTemplate(hintTmpl, data)
		if rendered != "" {
			hints = append(hints, rendered)
		}
	}

	return &SourceError{
		Class:   def.Class,
		Code:    code,
		Message: msg,
		Hints:   hints,
		Data:    data,
	}
}

// NewWithPosition creates a SourceError with position information.
func NewWithPosition(code string, line, column int, data map[string]any) *SourceError {
	err := New(code, data)
	err.Line = line
	err.Column = column
	return err
}

// NewSimple creates a simple error without using the catalog.
func NewSimple(class ErrorClass, message string) *SourceError {
	return &SourceError{
		Class:   class,
		Message: message,
	}
}

func renderTemplate(tmplStr string, data map[string]any) string {
	if data == nil {
		return tmplStr
	}

	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return tmplStr
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmplStr
	}

	return buf.String()
}
