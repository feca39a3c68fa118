package format

import (
	"strings"
)

// Printer manages formatting state and output
type Printer struct {
	output  strings.Builder
	unit    string // one level of indentation
	base    string // indentation of the first line
	indent  int    // Current indentation level, in units, on top of base
	linePos int    // Current position in the current line
}

// NewPrinter creates a Printer whose lines start at base and indent by unit.
func NewPrinter(base, unit string) *Printer {
	if unit == "" {
		unit = DefaultIndent
	}
	return &Printer{base: base, unit: unit}
}

// String returns the formatted output
func (p *Printer) String() string {
	return p.output.String()
}

// write appends a string to the output and updates line position
func (p *Printer) write(s string) {
	p.output.WriteString(s)
	if idx := strings.LastIndex(s, "\n"); idx >= 0 {
		p.linePos = width(s[idx+1:])
	} else {
		p.linePos += width(s)
	}
}

// writeln appends a string followed by a newline
func (p *Printer) writeln(s string) {
	p.write(s)
	p.newline()
}

// newline writes a newline character and resets line position
func (p *Printer) newline() {
	p.output.WriteString("\n")
	p.linePos = 0
}

// writeIndent writes the base plus the current indentation
func (p *Printer) writeIndent() {
	p.write(p.base + strings.Repeat(p.unit, p.indent))
}

// indentInc increases the indentation level
func (p *Printer) indentInc() {
	p.indent++
}

// indentDec decreases the indentation level
func (p *Printer) indentDec() {
	if p.indent > 0 {
		p.indent--
	}
}

// fitsOnLine checks if a string would fit on the current line within the given threshold
func (p *Printer) fitsOnLine(s string, threshold int) bool {
	if strings.Contains(s, "\n") {
		return false
	}
	return p.linePos+width(s) <= threshold
}

// width measures display columns, expanding tabs to TabWidth.
func width(s string) int {
	n := 0
	for _, r := range s {
		if r == '\t' {
			n += TabWidth - n%TabWidth
		} else {
			n++
		}
	}
	return n
}
