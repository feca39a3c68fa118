package engine

import (
	"github.com/sambeau/streamline/pkg/java/analysis"
	"github.com/sambeau/streamline/pkg/java/ast"
	"github.com/sambeau/streamline/pkg/logger"
)

// strategy turns a reduced block into a terminal, or gives up.
type strategy struct {
	name string
	desc string
	try  func(tb *TerminalBlock, nonFinal []*analysis.Variable) *plan
}

// Strategy describes one terminal strategy.
type Strategy struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// bail marks the point in the strategy list after which a block with a
// leftover count or nothing left to explain is rejected.
const bail = "-"

var strategies = []strategy{
	{"count", "counter increments become count()", tryCount},
	{"collect", "adding to a collection or map becomes collect() or toArray()", tryCollect},
	{"joining", "appending to a StringBuilder becomes Collectors.joining()", tryJoining},
	{bail, "", nil},
	{"fill", "filling an array by index becomes toArray()", tryFill},
	{"sum", "adding to a number becomes sum()", trySum},
	{"extremum", "tracking a largest or smallest element becomes max() or min()", tryExtremum},
	{"reduce", "multiplying or combining booleans becomes reduce()", tryReduce},
	{"forEach", "any other body becomes forEach()", tryForEach},
	{"match", "returning on a matching element becomes anyMatch(), allMatch(), noneMatch() or findFirst()", tryReturnMatch},
	{"find", "breaking on a matching element becomes findFirst() or anyMatch()", tryBreakMatch},
}

// Strategies lists the terminal strategies in the order they are tried.
func Strategies() []Strategy {
	var out []Strategy
	for _, s := range strategies {
		if s.name != bail {
			out = append(out, Strategy{Name: s.name, Description: s.desc})
		}
	}
	return out
}

// FindMigration decides whether loop can become a pipeline.
func (e *Engine) FindMigration(loop ast.Statement) (*Migration, bool) {
	tb, p, reason := e.findPlan(loop)
	if p == nil {
		e.log.Debug("loop skipped", logger.Fields(logger.FieldLine, e.line(loop), logger.FieldReason, reason))
		return nil, false
	}
	return &Migration{e: e, loop: loop, tb: tb, p: p}, true
}

func (e *Engine) findPlan(loop ast.Statement) (*TerminalBlock, *plan, string) {
	info := e.info
	src := e.sourceOf(loop)
	if src == nil {
		return nil, nil, "no stream source"
	}
	if info.ThrowsChecked(ast.LoopBody(loop)) {
		return nil, nil, "body throws a checked exception"
	}
	tb := newTerminalBlock(e, src, loop).extract()
	nonFinal := tb.nonFinalVariables()
	for _, v := range nonFinal {
		if tb.IsReferencedInOperations(v) {
			// a running extremum guards its update with a filter on itself
			if !e.opts.disabled("extremum") {
				if p := tryExtremum(tb, nonFinal); p != nil {
					p.terminal = "extremum"
					return tb, p, ""
				}
			}
			return nil, nil, "stage reads non-final variable " + v.Name
		}
	}
	v := tb.Variable()
	for _, s := range tb.stmts {
		if info.IsWrittenIn(v, s) && !tb.LastOperation().CanReassignVariable(v) {
			return nil, nil, "element variable reassigned"
		}
	}
	for _, s := range strategies {
		if s.name == bail {
			if tb.CountExpression() != nil || tb.IsEmpty() {
				return nil, nil, "nothing left for a terminal"
			}
			continue
		}
		if e.opts.disabled(s.name) {
			continue
		}
		if p := s.try(tb, nonFinal); p != nil {
			if p.skip != "" {
				return nil, nil, p.skip
			}
			p.terminal = s.name
			return tb, p, ""
		}
	}
	return nil, nil, "no terminal matched"
}

// nonFinalVariables returns the locals of the enclosing method that the loop
// reads and that lambdas could not capture: those written other than by a
// stage of the pipeline.
func (tb *TerminalBlock) nonFinalVariables() []*analysis.Variable {
	info := tb.e.info
	owner := info.Owner(tb.mainLoop)
	var out []*analysis.Variable
	for _, v := range info.VariablesIn(tb.mainLoop) {
		if v.Kind == analysis.FieldVar || ast.Contains(tb.mainLoop, v.Decl) || v.Owner != owner {
			continue
		}
		if info.IsAssignedOnceWithoutInit(v) && info.Writes(v)[0].Pos() < tb.mainLoop.Pos() {
			continue
		}
		for _, id := range info.Writes(v) {
			if !tb.isWriteAllowed(v, id) {
				out = append(out, v)
				break
			}
		}
	}
	return out
}
