package rewrite

import (
	"sort"
	"strings"

	"github.com/sambeau/streamline/pkg/java/ast"
)

// Imports tracks the single-type imports a change needs.
type Imports struct {
	cu      *ast.CompilationUnit
	qualify bool
	names   map[string]bool
}

// NewImports creates an import collector for cu. A nil cu (a statement
// snippet) never receives imports, nor does one created with qualify set.
func NewImports(cu *ast.CompilationUnit, qualify bool) *Imports {
	return &Imports{cu: cu, qualify: qualify, names: make(map[string]bool)}
}

// Need records that qualified is referenced by its simple name and returns
// the name to write: the simple name when it is or will be imported,
// otherwise the qualified name.
func (im *Imports) Need(qualified string) string {
	simple := qualified[strings.LastIndexByte(qualified, '.')+1:]
	if im.cu == nil {
		return qualified
	}
	if im.covered(qualified) {
		return simple
	}
	if im.qualify {
		return qualified
	}
	if im.conflicts(qualified, simple) {
		return qualified
	}
	im.names[qualified] = true
	return simple
}

func (im *Imports) covered(qualified string) bool {
	pkg := qualified[:strings.LastIndexByte(qualified, '.')]
	if pkg == "java.lang" {
		return true
	}
	for _, imp := range im.cu.Imports {
		if imp.Static {
			continue
		}
		if imp.Name == qualified || imp.Wildcard && imp.Name == pkg {
			return true
		}
	}
	if im.cu.Package != nil && im.cu.Package.Name == pkg {
		return true
	}
	return false
}

func (im *Imports) conflicts(qualified, simple string) bool {
	for _, imp := range im.cu.Imports {
		if !imp.Static && !imp.Wildcard && imp.Name != qualified && strings.HasSuffix(imp.Name, "."+simple) {
			return true
		}
	}
	for _, t := range im.cu.Types {
		if t.Name != nil && t.Name.Value == simple {
			return true
		}
	}
	for q := range im.names {
		if q != qualified && strings.HasSuffix(q, "."+simple) {
			return true
		}
	}
	return false
}

// Pending returns the imports still to be added, sorted.
func (im *Imports) Pending() []string {
	out := make([]string, 0, len(im.names))
	for q := range im.names {
		out = append(out, q)
	}
	sort.Strings(out)
	return out
}

// AddTo records insertions for the pending imports in s: after the last
// import, else after the package declaration, else at the top of the file.
func (im *Imports) AddTo(s *Set) {
	pending := im.Pending()
	if im.cu == nil || len(pending) == 0 {
		return
	}
	var lines []string
	for _, q := range pending {
		lines = append(lines, "import "+q+";")
	}
	block := strings.Join(lines, "\n")
	switch {
	case len(im.cu.Imports) > 0:
		s.Insert(im.cu.Imports[len(im.cu.Imports)-1].End(), "\n"+block)
	case im.cu.Package != nil:
		s.Insert(im.cu.Package.End(), "\n\n"+block)
	default:
		s.Insert(0, block+"\n\n")
	}
}
