package engine

import (
	"fmt"

	"github.com/sambeau/streamline/pkg/java/ast"
	"github.com/sambeau/streamline/pkg/java/rewrite"
	"github.com/sambeau/streamline/pkg/logger"
)

// plan is a recognised terminal, ready to write.
type plan struct {
	terminal     string   // strategy name, as used in configuration
	call         string   // the call the loop becomes, e.g. "sum()"
	warn         bool     // reported as a warning rather than a hint
	alternatives []string // other calls offered for the same loop
	skip         string   // set when the loop matches but is left to another fix
	apply        func(w *writer) string
}

// Migration is a loop that can be replaced by a stream pipeline.
type Migration struct {
	e    *Engine
	loop ast.Statement
	tb   *TerminalBlock
	p    *plan
}

// Name returns the terminal strategy, e.g. "sum" or "collect".
func (m *Migration) Name() string { return m.p.terminal }

// Call returns the terminal call the loop becomes.
func (m *Migration) Call() string { return m.p.call }

// Warn reports whether the migration is a warning rather than a hint.
func (m *Migration) Warn() bool { return m.p.warn }

// Alternatives lists other terminal calls that also apply.
func (m *Migration) Alternatives() []string { return m.p.alternatives }

// Loop returns the loop statement.
func (m *Migration) Loop() ast.Statement { return m.loop }

// Describe returns the message shown for the loop.
func (m *Migration) Describe() string {
	return "Can be replaced with '" + m.p.call + "' call"
}

// Rewrite is the outcome of applying a migration.
type Rewrite struct {
	Edits       *rewrite.Set
	Imports     []string // qualified names the replacement refers to by simple name
	Replacement string   // the text that replaces the loop

	im *rewrite.Imports
}

// Source returns src with the edits and imports applied.
func (r *Rewrite) Source(src string) (string, error) {
	s := &rewrite.Set{}
	s.Merge(r.Edits)
	r.im.AddTo(s)
	return rewrite.ApplySet(src, s)
}

// Migrate computes the edits that replace the loop. An internal
// inconsistency is reported as an error rather than a panic.
func (m *Migration) Migrate() (r *Rewrite, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			m.e.log.Error("migration failed", logger.Fields(
				logger.FieldTerminal, m.p.terminal,
				logger.FieldLine, m.e.line(m.loop),
				logger.FieldReason, fmt.Sprint(rec),
			))
			r, err = nil, fmt.Errorf("migrate %s loop at line %d: %v", m.p.terminal, m.e.line(m.loop), rec)
		}
	}()
	w := m.e.newWriter()
	text := m.p.apply(w)
	m.tb.cleanUp(w)
	m.e.log.Debug("migrated", logger.Fields(logger.FieldTerminal, m.p.terminal, logger.FieldLine, m.e.line(m.loop)))
	return &Rewrite{Edits: w.s, Imports: w.im.Pending(), Replacement: text, im: w.im}, nil
}
