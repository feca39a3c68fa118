package format

import (
	"strings"
)

// LineStart returns the offset of the first byte of the line holding pos.
func LineStart(src string, pos int) int {
	if pos > len(src) {
		pos = len(src)
	}
	return strings.LastIndexByte(src[:pos], '\n') + 1
}

// LineEnd returns the offset of the newline ending the line holding pos, or
// len(src) on the last line.
func LineEnd(src string, pos int) int {
	if pos >= len(src) {
		return len(src)
	}
	if i := strings.IndexByte(src[pos:], '\n'); i >= 0 {
		return pos + i
	}
	return len(src)
}

// LineIndent returns the leading whitespace of the line holding pos.
func LineIndent(src string, pos int) string {
	start := LineStart(src, pos)
	end := start
	for end < len(src) && (src[end] == ' ' || src[end] == '\t') {
		end++
	}
	return src[start:end]
}

// Column returns the display column of pos within its line.
func Column(src string, pos int) int {
	return width(src[LineStart(src, pos):pos])
}

// IsAloneOnLines reports whether only whitespace surrounds [start, end) on
// its first and last lines.
func IsAloneOnLines(src string, start, end int) bool {
	before := src[LineStart(src, start):start]
	after := src[end:LineEnd(src, end)]
	return strings.TrimSpace(before) == "" && strings.TrimSpace(after) == ""
}

// DetectIndentUnit guesses one level of indentation used by src: a tab when
// most indented lines start with one, otherwise the most common step between
// successive indentation widths.
func DetectIndentUnit(src string) string {
	tabs, spaces := 0, 0
	steps := make(map[int]int)
	prev := 0
	for _, line := range strings.Split(src, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		switch line[0] {
		case '\t':
			tabs++
		case ' ':
			spaces++
		}
		n := len(line) - len(strings.TrimLeft(line, " "))
		if d := n - prev; d > 0 && d <= 8 {
			steps[d]++
		}
		prev = n
	}
	if tabs > spaces {
		return "\t"
	}
	best, count := 0, 0
	for _, d := range []int{4, 2, 3, 8} {
		if steps[d] > count {
			best, count = d, steps[d]
		}
	}
	if best == 0 {
		return DefaultIndent
	}
	return strings.Repeat(" ", best)
}

// Reindent moves every line of text after the first from indentation from
// to indentation to. Lines indented less than from lose their indentation
// and take to.
func Reindent(text, from, to string) string {
	if from == to {
		return text
	}
	lines := strings.Split(text, "\n")
	for i := 1; i < len(lines); i++ {
		line := lines[i]
		switch {
		case strings.TrimSpace(line) == "":
			lines[i] = ""
		case strings.HasPrefix(line, from):
			lines[i] = to + line[len(from):]
		default:
			lines[i] = to + strings.TrimLeft(line, " \t")
		}
	}
	return strings.Join(lines, "\n")
}
