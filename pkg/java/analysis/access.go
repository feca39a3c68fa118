package analysis

import (
	"github.com/sambeau/streamline/pkg/java/ast"
)

// WriteOf returns the assignment, prefix or postfix expression that writes
// through id, or nil when id is only read.
func (info *Info) WriteOf(id *ast.Identifier) ast.Expression {
	var target ast.Node = id
	if fa, ok := info.Parents[id].(*ast.FieldAccess); ok && fa.Name == id {
		target = fa
	}
	p := info.Parents[target]
	for {
		pe, ok := p.(*ast.ParenExpr)
		if !ok {
			break
		}
		target = pe
		p = info.Parents[pe]
	}
	switch w := p.(type) {
	case *ast.AssignExpr:
		if w.Left == target {
			return w
		}
	case *ast.UnaryExpr:
		if w.Op == "++" || w.Op == "--" {
			return w
		}
	case *ast.PostfixExpr:
		return w
	}
	return nil
}

// IsWrite reports whether id is the target of an assignment or increment.
func (info *Info) IsWrite(id *ast.Identifier) bool {
	return info.WriteOf(id) != nil
}

// IsReadWrite reports whether the write through id also reads the previous
// value, as compound assignments and increments do.
func (info *Info) IsReadWrite(id *ast.Identifier) bool {
	switch w := info.WriteOf(id).(type) {
	case *ast.AssignExpr:
		return w.Op != "="
	case *ast.UnaryExpr, *ast.PostfixExpr:
		return true
	}
	return false
}

// Writes returns every identifier writing to v.
func (info *Info) Writes(v *Variable) []*ast.Identifier {
	var out []*ast.Identifier
	for _, id := range info.Refs[v] {
		if info.IsWrite(id) {
			out = append(out, id)
		}
	}
	return out
}

// IsEffectivelyFinal reports whether v is never written after its
// declaration.
func (info *Info) IsEffectivelyFinal(v *Variable) bool {
	if v.Final {
		return true
	}
	if v.Kind == FieldVar {
		return false
	}
	if len(info.Writes(v)) > 0 {
		return false
	}
	if v.Kind == LocalVar && v.Declarator != nil && v.Init() == nil {
		return false
	}
	return true
}

// IsAssignedOnceWithoutInit reports whether a local declared without an
// initialiser receives exactly one write.
func (info *Info) IsAssignedOnceWithoutInit(v *Variable) bool {
	return v.Kind == LocalVar && v.Declarator != nil && v.Init() == nil && len(info.Writes(v)) == 1
}

// IsWrittenIn reports whether any write to v lies inside n.
func (info *Info) IsWrittenIn(v *Variable, n ast.Node) bool {
	for _, id := range info.Writes(v) {
		if ast.Contains(n, id) {
			return true
		}
	}
	return false
}

// ReadsIn reports whether v is read, not only written, inside n.
func (info *Info) ReadsIn(v *Variable, n ast.Node) bool {
	for _, id := range info.ReferencesIn(v, n) {
		if !info.IsWrite(id) || info.IsReadWrite(id) {
			return true
		}
	}
	return false
}
