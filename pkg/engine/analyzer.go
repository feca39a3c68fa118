package engine

import (
	"fmt"
	"time"

	"github.com/sambeau/streamline/pkg/java/analysis"
	"github.com/sambeau/streamline/pkg/java/ast"
	"github.com/sambeau/streamline/pkg/java/format"
	"github.com/sambeau/streamline/pkg/java/parser"
	"github.com/sambeau/streamline/pkg/java/rewrite"
	"github.com/sambeau/streamline/pkg/logger"
)

// maxFixRounds bounds the fix loop. Each round reparses the output of the
// previous one, so loops nested inside migrated loops get their turn.
const maxFixRounds = 10

// Finding is one loop that can become a pipeline.
type Finding struct {
	File         string   `json:"file"`
	Line         int      `json:"line"`
	Column       int      `json:"column"`
	Terminal     string   `json:"terminal"`
	Call         string   `json:"call"`
	Message      string   `json:"message"`
	Warn         bool     `json:"warn"`
	Alternatives []string `json:"alternatives,omitempty"`
	Replacement  string   `json:"replacement,omitempty"`
}

// FileResult is the outcome of analysing one source.
type FileResult struct {
	File     string    `json:"file"`
	Findings []Finding `json:"findings"`
	Fixed    string    `json:"-"` // set when fixing; the source with every warning applied
	Rounds   int       `json:"rounds,omitempty"`
	Error    string    `json:"error,omitempty"`

	Err error `json:"-"`
}

// Warnings counts the warning-level findings.
func (r *FileResult) Warnings() int {
	n := 0
	for _, f := range r.Findings {
		if f.Warn {
			n++
		}
	}
	return n
}

// Analyzer runs the engine over whole sources.
type Analyzer struct {
	opts  Options
	log   *logger.Logger
	fix   bool
	cache ResultCache
	jobs  int
}

// NewAnalyzer creates an analyzer with the given engine options.
func NewAnalyzer(opts Options, log *logger.Logger) *Analyzer {
	if log == nil {
		log = logger.Nop()
	}
	return &Analyzer{opts: opts, log: log.WithComponent("analyzer"), jobs: 4}
}

// WithFix makes AnalyzeSource also compute the rewritten source.
func (a *Analyzer) WithFix(fix bool) *Analyzer {
	c := *a
	c.fix = fix
	return &c
}

// Options returns the engine options in use.
func (a *Analyzer) Options() Options { return a.opts }

// AnalyzeSource reports every loop of a compilation unit that can become a
// pipeline. A source that does not parse is an error.
func (a *Analyzer) AnalyzeSource(name string, src []byte) (*FileResult, error) {
	start := time.Now()
	text := string(src)
	e, err := a.engine(name, text)
	if err != nil {
		return nil, err
	}
	res := &FileResult{File: name, Findings: a.findings(e, name)}
	if a.fix {
		fixed, rounds, err := a.fixSource(name, text, e)
		if err != nil {
			return nil, err
		}
		res.Fixed, res.Rounds = fixed, rounds
	}
	a.log.Debug("analysed", logger.Fields(
		logger.FieldFile, name,
		"findings", len(res.Findings),
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))
	return res, nil
}

// AnalyzeSnippet analyses a sequence of statements, such as a method body
// without its braces. Generated code uses qualified names.
func (a *Analyzer) AnalyzeSnippet(src string) (*FileResult, error) {
	e, err := a.engine("", src)
	if err != nil {
		return nil, err
	}
	out := &FileResult{File: "<input>", Findings: a.findings(e, "<input>")}
	if a.fix {
		fixed, rounds, err := a.fixSource("", src, e)
		if err != nil {
			return nil, err
		}
		out.Fixed, out.Rounds = fixed, rounds
	}
	return out, nil
}

// engine parses src as a compilation unit, or as statements when name is
// empty.
func (a *Analyzer) engine(name, src string) (*Engine, error) {
	if name == "" {
		res, perr := parser.ParseStatements(src)
		if perr != nil {
			return nil, perr
		}
		return New(analysis.Resolve(res.Node, src), nil, res.Comments, a.opts, a.log), nil
	}
	res, perr := parser.ParseFile(name, src)
	if perr != nil {
		return nil, perr
	}
	return New(analysis.Resolve(res.Node, src), res.Node, res.Comments, a.opts, a.log), nil
}

func (a *Analyzer) findings(e *Engine, name string) []Finding {
	var out []Finding
	for _, loop := range e.Loops() {
		m, ok := e.FindMigration(loop)
		if !ok {
			continue
		}
		f := Finding{
			File:         name,
			Line:         e.line(loop),
			Column:       format.Column(e.info.Src, loop.Pos()) + 1,
			Terminal:     m.Name(),
			Call:         m.Call(),
			Message:      m.Describe(),
			Warn:         m.Warn(),
			Alternatives: m.Alternatives(),
		}
		if rw, err := m.Migrate(); err == nil {
			f.Replacement = rw.Replacement
		}
		out = append(out, f)
	}
	return out
}

// fixSource applies every warning-level migration. Each round merges the
// migrations whose edits do not collide, applies them with the union of
// their imports and reparses; it stops when a round changes nothing.
func (a *Analyzer) fixSource(name, src string, e *Engine) (string, int, error) {
	for round := 0; round < maxFixRounds; round++ {
		if round > 0 {
			var err error
			if e, err = a.engine(name, src); err != nil {
				return "", round, fmt.Errorf("reparse after fix round %d: %w", round, err)
			}
		}
		all := &rewrite.Set{}
		im := rewrite.NewImports(e.cu, e.opts.QualifyNames)
		applied := 0
		for _, loop := range e.Loops() {
			m, ok := e.FindMigration(loop)
			if !ok || !m.Warn() {
				continue
			}
			rw, err := m.Migrate()
			if err != nil || all.Overlaps(rw.Edits) {
				continue
			}
			all.Merge(rw.Edits)
			for _, q := range rw.Imports {
				im.Need(q)
			}
			applied++
		}
		if applied == 0 {
			return src, round, nil
		}
		im.AddTo(all)
		out, err := rewrite.ApplySet(src, all)
		if err != nil {
			return "", round, fmt.Errorf("apply fix round %d: %w", round+1, err)
		}
		a.log.Debug("fix round", logger.Fields(logger.FieldFile, name, "round", round+1, "migrations", applied))
		src = out
	}
	return src, maxFixRounds, nil
}

// Fix rewrites src with every warning applied.
func (a *Analyzer) Fix(name string, src []byte) (string, error) {
	e, err := a.engine(name, string(src))
	if err != nil {
		return "", err
	}
	out, _, err := a.fixSource(name, string(src), e)
	return out, err
}

// loopAt returns the outermost loop starting at line, for tests and the
// repl.
func (e *Engine) loopAt(line int) ast.Statement {
	for _, l := range e.Loops() {
		if e.line(l) == line {
			return l
		}
	}
	return nil
}
