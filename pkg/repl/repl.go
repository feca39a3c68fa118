// Package repl is an interactive loop for trying migrations: statements
// typed in accumulate into a session, and every loop among the latest
// input is reported with its replacement.
package repl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/sambeau/streamline/pkg/engine"
	jerrors "github.com/sambeau/streamline/pkg/java/errors"
)

const PROMPT = ">> "
const CONTINUATION_PROMPT = ".. "

// Java keywords and library names for tab completion
var completionWords = []string{
	"for", "while", "if", "else", "break", "continue", "return", "new",
	"int", "long", "double", "boolean", "String", "final", "var",
	"List", "ArrayList", "Set", "HashSet", "Map", "HashMap", "Collection",
	"StringBuilder", "append", "length", "toString",
	"add", "put", "size", "isEmpty", "contains", "get",
	"Math", "max", "min",
	"true", "false", "null",
}

// Session holds the statements entered so far.
type Session struct {
	analyzer *engine.Analyzer
	src      string
}

// NewSession creates an empty session analysing with a.
func NewSession(a *engine.Analyzer) *Session {
	return &Session{analyzer: a.WithFix(true)}
}

// Source returns the statements entered so far.
func (s *Session) Source() string { return s.src }

// Clear forgets every statement.
func (s *Session) Clear() { s.src = "" }

// Eval appends input to the session and describes the loops it contains.
// Input that does not parse together with the session is rejected and
// leaves the session unchanged.
func (s *Session) Eval(input string) string {
	first := strings.Count(s.src, "\n") + 1
	candidate := s.src + input + "\n"
	res, err := s.analyzer.AnalyzeSnippet(candidate)
	if err != nil {
		var se *jerrors.SourceError
		if errors.As(err, &se) && se.Line >= first {
			se.Line -= first - 1
		}
		return err.Error() + "\n"
	}
	s.src = candidate

	var b strings.Builder
	n := 0
	for _, f := range res.Findings {
		if f.Line < first {
			continue
		}
		n++
		kind := "warning"
		if !f.Warn {
			kind = "hint"
		}
		fmt.Fprintf(&b, "line %d: %s: %s\n", f.Line-first+1, kind, f.Message)
		if f.Replacement != "" {
			for _, l := range strings.Split(f.Replacement, "\n") {
				b.WriteString("    " + l + "\n")
			}
		}
	}
	if n == 0 {
		return "OK\n"
	}
	return b.String()
}

// Fixed returns the session with every warning applied.
func (s *Session) Fixed() (string, error) {
	res, err := s.analyzer.AnalyzeSnippet(s.src)
	if err != nil {
		return "", err
	}
	return res.Fixed, nil
}

// Start starts the REPL with line editing, history, and tab completion
func Start(in io.Reader, out io.Writer, version string, a *engine.Analyzer) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)

	line.SetCompleter(func(line string) []string {
		return filterCompletions(line)
	})

	historyFile := filepath.Join(os.TempDir(), ".streamline_history")
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	session := NewSession(a)

	fmt.Fprintln(out, "streamline", version)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Enter declarations and loops; each loop is checked as it is completed.")
	fmt.Fprintln(out, "Type 'exit' or Ctrl+D to quit, ':help' for REPL commands")
	fmt.Fprintln(out, "")

	var inputBuffer strings.Builder

	for {
		currentPrompt := PROMPT
		if inputBuffer.Len() > 0 {
			currentPrompt = CONTINUATION_PROMPT
		}
		input, err := line.Prompt(currentPrompt)
		if err != nil {
			if err == liner.ErrPromptAborted {
				if inputBuffer.Len() > 0 {
					fmt.Fprintln(out, "^C (cleared)")
				} else {
					fmt.Fprintln(out, "^C")
				}
				inputBuffer.Reset()
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(out, "\nGoodbye!")
				return
			}
			fmt.Fprintf(out, "Error reading input: %v\n", err)
			continue
		}

		trimmed := strings.TrimSpace(input)
		if inputBuffer.Len() == 0 && (trimmed == "exit" || trimmed == "quit") {
			fmt.Fprintln(out, "Goodbye!")
			return
		}

		if inputBuffer.Len() == 0 && strings.HasPrefix(trimmed, ":") {
			handleReplCommand(trimmed, session, a, out)
			continue
		}

		if inputBuffer.Len() == 0 && trimmed == "" {
			continue
		}

		if inputBuffer.Len() > 0 {
			inputBuffer.WriteString("\n")
		}
		inputBuffer.WriteString(input)

		fullInput := inputBuffer.String()
		if needsMoreInput(fullInput) {
			continue
		}

		line.AppendHistory(fullInput)
		io.WriteString(out, session.Eval(fullInput))
		inputBuffer.Reset()
	}
}

// handleReplCommand handles REPL meta-commands that start with ':'
func handleReplCommand(cmd string, session *Session, a *engine.Analyzer, out io.Writer) {
	switch cmd {
	case ":help", ":h", ":?":
		fmt.Fprintln(out, "REPL Commands:")
		fmt.Fprintln(out, "  :help, :h, :?   Show this help")
		fmt.Fprintln(out, "  :show           Show the statements entered so far")
		fmt.Fprintln(out, "  :fix            Show the statements with every warning applied")
		fmt.Fprintln(out, "  :clear          Forget all statements")
		fmt.Fprintln(out, "  :options        Show the inspection options")
		fmt.Fprintln(out, "  exit, quit      Exit the REPL")

	case ":show":
		if session.Source() == "" {
			fmt.Fprintln(out, "(empty)")
			return
		}
		io.WriteString(out, session.Source())

	case ":fix":
		fixed, err := session.Fixed()
		if err != nil {
			fmt.Fprintln(out, err.Error())
			return
		}
		io.WriteString(out, fixed)

	case ":clear":
		session.Clear()
		fmt.Fprintln(out, "Session cleared")

	case ":options":
		o := a.Options()
		fmt.Fprintf(out, "  language level:          %d\n", o.LanguageLevel)
		fmt.Fprintf(out, "  suggest forEach:         %t\n", o.SuggestForEach)
		fmt.Fprintf(out, "  replace trivial forEach: %t\n", o.ReplaceTrivialForEach)
		if len(o.Disabled) > 0 {
			fmt.Fprintf(out, "  disabled:                %s\n", strings.Join(o.Disabled, ", "))
		}

	default:
		fmt.Fprintf(out, "Unknown command: %s (type :help for commands)\n", cmd)
	}
}

// filterCompletions returns completion suggestions based on current input
func filterCompletions(line string) []string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}

	if line[len(line)-1] == ' ' || line[len(line)-1] == '\t' {
		return nil
	}

	words := strings.Fields(line)
	lastWord := words[len(words)-1]
	prefix := line[:len(line)-len(lastWord)]

	var matches []string
	for _, word := range completionWords {
		if strings.HasPrefix(word, lastWord) {
			matches = append(matches, prefix+word)
		}
	}
	return matches
}

// needsMoreInput checks if the input has unclosed braces, brackets or
// parentheses, ignoring string and char literals and comments.
func needsMoreInput(input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}

	depth := 0
	var quote byte
	lineComment, blockComment := false, false

	for i := 0; i < len(input); i++ {
		ch := input[i]

		switch {
		case lineComment:
			if ch == '\n' {
				lineComment = false
			}
			continue
		case blockComment:
			if ch == '*' && i+1 < len(input) && input[i+1] == '/' {
				blockComment = false
				i++
			}
			continue
		case quote != 0:
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
			continue
		}

		switch ch {
		case '"', '\'':
			quote = ch
		case '/':
			if i+1 < len(input) && input[i+1] == '/' {
				lineComment = true
				i++
			} else if i+1 < len(input) && input[i+1] == '*' {
				blockComment = true
				i++
			}
		case '{', '[', '(':
			depth++
		case '}', ']', ')':
			depth--
		}
	}

	return depth > 0 || blockComment
}
