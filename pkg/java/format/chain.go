package format

import (
	"strings"
)

// Chain lays out a stream pipeline: head followed by calls, each of which
// starts with a dot. The first line begins at display column col. Short
// pipelines stay on one line; long ones put each call on its own
// continuation line below base.
func Chain(head string, calls []string, col int, base, unit string) string {
	inline := head + strings.Join(calls, "")
	if !shouldBreak(inline, calls, col) {
		return inline
	}

	p := NewPrinter(base, unit)
	p.linePos = col
	p.write(head)
	for i := 0; i < ContinuationIndent; i++ {
		p.indentInc()
	}
	for _, call := range calls {
		p.newline()
		p.writeIndent()
		p.write(call)
	}
	return p.String()
}

func shouldBreak(inline string, calls []string, col int) bool {
	if len(calls) < 2 {
		return false
	}
	for _, c := range calls {
		if strings.Contains(c, "\n") {
			return false
		}
	}
	p := &Printer{linePos: col}
	if !p.fitsOnLine(inline, MaxLineWidth) {
		return true
	}
	return len(calls) > ChainMinCalls && width(inline) > ChainThreshold
}

// Block renders statements as a braced block whose closing brace lines up
// with base. Multi-line statements are expected to be indented already
// relative to base plus one unit.
func Block(stmts []string, base, unit string) string {
	p := NewPrinter(base, unit)
	p.writeln("{")
	p.indentInc()
	for _, s := range stmts {
		p.writeIndent()
		p.writeln(s)
	}
	p.indentDec()
	p.writeIndent()
	p.write("}")
	return p.String()
}
