package parser

import (
	"github.com/sambeau/streamline/pkg/java/ast"
	jerrors "github.com/sambeau/streamline/pkg/java/errors"
	"github.com/sambeau/streamline/pkg/java/lexer"
)

// Result bundles a parsed tree with the comments found while scanning it.
type Result[T ast.Node] struct {
	Node     T
	Comments []lexer.Comment
}

func firstError(p *Parser, filename string) *jerrors.SourceError {
	errs := p.StructuredErrors()
	if len(errs) == 0 {
		return nil
	}
	if filename != "" {
		return errs[0].WithFile(filename)
	}
	return errs[0]
}

// ParseFile parses a complete compilation unit.
func ParseFile(filename, src string) (Result[*ast.CompilationUnit], *jerrors.SourceError) {
	p := New(lexer.NewWithFilename(src, filename))
	cu := p.ParseCompilationUnit()
	return Result[*ast.CompilationUnit]{Node: cu, Comments: p.Comments()}, firstError(p, filename)
}

// ParseStatements parses a sequence of block statements such as a method body
// without its braces.
func ParseStatements(src string) (Result[*ast.Snippet], *jerrors.SourceError) {
	p := New(lexer.New(src))
	sn := p.ParseSnippet()
	return Result[*ast.Snippet]{Node: sn, Comments: p.Comments()}, firstError(p, "")
}

// ParseExpression parses a single expression.
func ParseExpression(src string) (ast.Expression, *jerrors.SourceError) {
	p := New(lexer.New(src))
	x := p.ParseExpressionOnly()
	if err := firstError(p, ""); err != nil {
		return nil, err
	}
	return x, nil
}
