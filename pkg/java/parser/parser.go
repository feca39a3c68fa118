package parser

import (
	"fmt"

	"github.com/sambeau/streamline/pkg/java/ast"
	jerrors "github.com/sambeau/streamline/pkg/java/errors"
	"github.com/sambeau/streamline/pkg/java/lexer"
)

// Precedence levels for operators
const (
	_ int = iota
	LOWEST
	ASSIGNMENT  // = += -= ...
	TERNARY     // ?:
	LOGIC_OR    // ||
	LOGIC_AND   // &&
	BIT_OR      // |
	BIT_XOR     // ^
	BIT_AND     // &
	EQUALS      // == !=
	LESSGREATER // < > <= >= instanceof
	SHIFT       // << >> >>>
	SUM         // + -
	PRODUCT     // * / %
	PREFIX      // -X !X (T) X
	POSTFIX     // X++ X--
	CALL        // x.f(X) x[i]
)

var precedences = map[lexer.TokenType]int{
	lexer.ASSIGN:         ASSIGNMENT,
	lexer.PLUS_ASSIGN:    ASSIGNMENT,
	lexer.MINUS_ASSIGN:   ASSIGNMENT,
	lexer.STAR_ASSIGN:    ASSIGNMENT,
	lexer.SLASH_ASSIGN:   ASSIGNMENT,
	lexer.PERCENT_ASSIGN: ASSIGNMENT,
	lexer.AMP_ASSIGN:     ASSIGNMENT,
	lexer.PIPE_ASSIGN:    ASSIGNMENT,
	lexer.CARET_ASSIGN:   ASSIGNMENT,
	lexer.SHL_ASSIGN:     ASSIGNMENT,
	lexer.QUESTION:       TERNARY,
	lexer.OR_OR:          LOGIC_OR,
	lexer.AND_AND:        LOGIC_AND,
	lexer.PIPE:           BIT_OR,
	lexer.CARET:          BIT_XOR,
	lexer.AMP:            BIT_AND,
	lexer.EQ:             EQUALS,
	lexer.NOT_EQ:         EQUALS,
	lexer.LT:             LESSGREATER,
	lexer.GT:             LESSGREATER,
	lexer.LTE:            LESSGREATER,
	lexer.GTE:            LESSGREATER,
	lexer.INSTANCEOF:     LESSGREATER,
	lexer.SHL:            SHIFT,
	lexer.PLUS:           SUM,
	lexer.MINUS:          SUM,
	lexer.ASTERISK:       PRODUCT,
	lexer.SLASH:          PRODUCT,
	lexer.PERCENT:        PRODUCT,
	lexer.PLUSPLUS:       POSTFIX,
	lexer.MINUSMINUS:     POSTFIX,
	lexer.DOT:            CALL,
	lexer.LBRACKET:       CALL,
	lexer.LPAREN:         CALL,
	lexer.COLONCOLON:     CALL,
}

// Parser represents the parser
type Parser struct {
	l *lexer.Lexer

	structuredErrors []*jerrors.SourceError

	prevToken lexer.Token
	curToken  lexer.Token
	peekToken lexer.Token

	prefixParseFns map[lexer.TokenType]prefixParseFn
	infixParseFns  map[lexer.TokenType]infixParseFn

	// set while parsing 'case X ->' labels, where X -> is not a lambda
	inCaseLabel bool
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// New creates a new parser instance
func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		l: l,
	}

	p.prefixParseFns = make(map[lexer.TokenType]prefixParseFn)
	p.registerPrefix(lexer.IDENT, p.parseIdentifier)
	p.registerPrefix(lexer.INT, p.parseLiteral)
	p.registerPrefix(lexer.FLOAT, p.parseLiteral)
	p.registerPrefix(lexer.CHAR, p.parseLiteral)
	p.registerPrefix(lexer.STRING, p.parseLiteral)
	p.registerPrefix(lexer.TEXT_BLOCK, p.parseLiteral)
	p.registerPrefix(lexer.TRUE, p.parseLiteral)
	p.registerPrefix(lexer.FALSE, p.parseLiteral)
	p.registerPrefix(lexer.NULL, p.parseLiteral)
	p.registerPrefix(lexer.THIS, p.parseThis)
	p.registerPrefix(lexer.SUPER, p.parseSuper)
	p.registerPrefix(lexer.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(lexer.LBRACE, p.parseArrayInit)
	p.registerPrefix(lexer.NEW, p.parseNewExpression)
	p.registerPrefix(lexer.SWITCH, p.parseSwitchExpression)
	for _, tt := range []lexer.TokenType{lexer.BANG, lexer.MINUS, lexer.PLUS, lexer.TILDE, lexer.PLUSPLUS, lexer.MINUSMINUS} {
		p.registerPrefix(tt, p.parsePrefixExpression)
	}
	for _, tt := range []lexer.TokenType{lexer.BOOLEAN, lexer.BYTE, lexer.CHAR_KW, lexer.SHORT, lexer.INT_KW, lexer.LONG, lexer.FLOAT_KW, lexer.DOUBLE, lexer.VOID} {
		p.registerPrefix(tt, p.parsePrimitiveTypeExpression)
	}

	p.infixParseFns = make(map[lexer.TokenType]infixParseFn)
	for tt, prec := range precedences {
		switch prec {
		case ASSIGNMENT:
			p.registerInfix(tt, p.parseAssignExpression)
		case POSTFIX, CALL:
		default:
			p.registerInfix(tt, p.parseInfixExpression)
		}
	}
	p.registerInfix(lexer.GT, p.parseGreaterExpression)
	p.registerInfix(lexer.QUESTION, p.parseConditionalExpression)
	p.registerInfix(lexer.INSTANCEOF, p.parseInstanceOfExpression)
	p.registerInfix(lexer.PLUSPLUS, p.parsePostfixExpression)
	p.registerInfix(lexer.MINUSMINUS, p.parsePostfixExpression)
	p.registerInfix(lexer.DOT, p.parseDotExpression)
	p.registerInfix(lexer.LBRACKET, p.parseIndexExpression)
	p.registerInfix(lexer.LPAREN, p.parseCallExpression)
	p.registerInfix(lexer.COLONCOLON, p.parseMethodRef)

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

// Errors returns parser errors as strings (convenience method for tests).
func (p *Parser) Errors() []string {
	result := make([]string, len(p.structuredErrors))
	for i, err := range p.structuredErrors {
		if err.Line > 0 {
			result[i] = fmt.Sprintf("line %d, column %d: %s", err.Line, err.Column, err.Message)
		} else {
			result[i] = err.Message
		}
	}
	return result
}

// StructuredErrors returns parser errors as structured SourceError objects.
func (p *Parser) StructuredErrors() []*jerrors.SourceError {
	return p.structuredErrors
}

// Comments returns every comment the lexer has seen.
func (p *Parser) Comments() []lexer.Comment {
	return p.l.Comments()
}

// addError adds a structured error.
// Only the first error is recorded - subsequent errors are usually cascading noise.
func (p *Parser) addError(code string, tok lexer.Token, data map[string]any) {
	if len(p.structuredErrors) > 0 {
		return
	}
	p.structuredErrors = append(p.structuredErrors, jerrors.NewWithPosition(code, tok.Line, tok.Column, data))
}

func (p *Parser) failed() bool { return len(p.structuredErrors) > 0 }

func (p *Parser) registerPrefix(tokenType lexer.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType lexer.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

// nextToken advances prevToken, curToken, and peekToken
func (p *Parser) nextToken() {
	p.prevToken = p.curToken
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t lexer.TokenType) bool { return p.peekToken.Type == t }

// expectPeek advances if the next token has the wanted type and records an
// error otherwise.
func (p *Parser) expectPeek(t lexer.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekError(t lexer.TokenType) {
	got := p.peekToken.Literal
	if p.peekToken.Type == lexer.EOF {
		got = "end of input"
	}
	p.addError("PARSE-0001", p.peekToken, map[string]any{"Expected": "'" + t.String() + "'", "Got": got})
}

// afterPeek returns the token following peekToken without consuming anything.
func (p *Parser) afterPeek() lexer.Token {
	return p.l.PeekToken()
}

// parserState is a full snapshot used for speculative parsing.
type parserState struct {
	prev, cur, peek lexer.Token
	lex             lexer.LexerState
	errs            int
}

func (p *Parser) save() parserState {
	return parserState{prev: p.prevToken, cur: p.curToken, peek: p.peekToken, lex: p.l.SaveState(), errs: len(p.structuredErrors)}
}

func (p *Parser) restore(s parserState) {
	p.prevToken, p.curToken, p.peekToken = s.prev, s.cur, s.peek
	p.l.RestoreState(s.lex)
	p.structuredErrors = p.structuredErrors[:s.errs]
}

// ---------------------------------------------------------------------------
// Entry points

// ParseCompilationUnit parses a whole Java source file.
func (p *Parser) ParseCompilationUnit() *ast.CompilationUnit {
	cu := &ast.CompilationUnit{}
	cu.Start = p.curToken.Pos

	if p.curTokenIs(lexer.PACKAGE) || (p.curTokenIs(lexer.AT) && p.packageAhead()) {
		p.skipAnnotations()
		start := p.curToken.Pos
		p.nextToken()
		name := p.parseQualifiedName()
		if !p.expectPeek(lexer.SEMICOLON) {
			return cu
		}
		cu.Package = &ast.PackageDecl{Span: ast.Span{Start: start, Stop: p.curToken.End}, Name: name}
		p.nextToken()
	}

	for p.curTokenIs(lexer.IMPORT) {
		imp := &ast.ImportDecl{}
		imp.Start = p.curToken.Pos
		p.nextToken()
		if p.curTokenIs(lexer.STATIC) {
			imp.Static = true
			p.nextToken()
		}
		imp.Name = p.parseQualifiedName()
		if p.peekTokenIs(lexer.DOT) {
			p.nextToken()
			if !p.expectPeek(lexer.ASTERISK) {
				return cu
			}
			imp.Wildcard = true
		}
		if !p.expectPeek(lexer.SEMICOLON) {
			return cu
		}
		imp.Stop = p.curToken.End
		cu.Imports = append(cu.Imports, imp)
		p.nextToken()
	}

	for !p.curTokenIs(lexer.EOF) && !p.failed() {
		if p.curTokenIs(lexer.SEMICOLON) {
			p.nextToken()
			continue
		}
		mods := p.parseModifiers()
		decl := p.parseClassDecl(mods)
		if decl == nil {
			break
		}
		cu.Types = append(cu.Types, decl)
		p.nextToken()
	}
	cu.Stop = p.curToken.End
	return cu
}

// ParseSnippet parses a sequence of block statements.
func (p *Parser) ParseSnippet() *ast.Snippet {
	sn := &ast.Snippet{}
	sn.Start = p.curToken.Pos
	for !p.curTokenIs(lexer.EOF) && !p.failed() {
		stmt := p.parseBlockStatement()
		if stmt == nil {
			break
		}
		sn.Stmts = append(sn.Stmts, stmt)
		p.nextToken()
	}
	sn.Stop = p.prevToken.End
	return sn
}

// ParseExpressionOnly parses a single expression followed by end of input.
func (p *Parser) ParseExpressionOnly() ast.Expression {
	x := p.parseExpression(LOWEST)
	if x != nil && !p.peekTokenIs(lexer.EOF) {
		p.addError("PARSE-0002", p.peekToken, map[string]any{"Token": p.peekToken.Literal})
	}
	return x
}

func (p *Parser) packageAhead() bool {
	s := p.save()
	defer p.restore(s)
	p.skipAnnotations()
	return p.curTokenIs(lexer.PACKAGE)
}

// parseQualifiedName reads IDENT(.IDENT)* leaving curToken on the last
// identifier. A trailing '.*' is left for the caller.
func (p *Parser) parseQualifiedName() string {
	name := p.curToken.Literal
	for p.peekTokenIs(lexer.DOT) && p.afterPeek().Type == lexer.IDENT {
		p.nextToken()
		p.nextToken()
		name += "." + p.curToken.Literal
	}
	return name
}

// ---------------------------------------------------------------------------
// Modifiers and annotations

var modifierTokens = map[lexer.TokenType]bool{
	lexer.PUBLIC: true, lexer.PROTECTED: true, lexer.PRIVATE: true, lexer.STATIC: true,
	lexer.FINAL: true, lexer.ABSTRACT: true, lexer.SYNCHRONIZED: true, lexer.NATIVE: true,
	lexer.TRANSIENT: true, lexer.VOLATILE: true, lexer.STRICTFP: true, lexer.DEFAULT: true,
}

// parseModifiers consumes modifiers and annotations, leaving curToken on the
// first token after them.
func (p *Parser) parseModifiers() ast.Modifiers {
	var mods ast.Modifiers
	for {
		switch {
		case p.curTokenIs(lexer.AT) && !p.peekTokenIs(lexer.INTERFACE):
			mods.Annotations = append(mods.Annotations, p.parseAnnotation())
			p.nextToken()
		case modifierTokens[p.curToken.Type]:
			if p.curTokenIs(lexer.DEFAULT) && (p.peekTokenIs(lexer.COLON) || p.peekTokenIs(lexer.ARROW)) {
				return mods
			}
			mods.Keywords = append(mods.Keywords, p.curToken.Literal)
			p.nextToken()
		case p.curTokenIs(lexer.IDENT) && (p.curToken.Literal == "sealed" || p.curToken.Literal == "non") && p.sealedAhead():
			if p.curToken.Literal == "non" {
				p.nextToken()
				p.nextToken()
			}
			mods.Keywords = append(mods.Keywords, p.curToken.Literal)
			p.nextToken()
		default:
			return mods
		}
	}
}

func (p *Parser) sealedAhead() bool {
	if p.curToken.Literal == "non" {
		return p.peekTokenIs(lexer.MINUS)
	}
	switch p.peekToken.Type {
	case lexer.CLASS, lexer.INTERFACE, lexer.ABSTRACT, lexer.PUBLIC, lexer.STATIC, lexer.FINAL:
		return true
	}
	return false
}

// parseAnnotation consumes '@Name[(...)]' leaving curToken on its last token.
func (p *Parser) parseAnnotation() string {
	start := p.curToken.Pos
	p.nextToken()
	p.parseQualifiedName()
	if p.peekTokenIs(lexer.LPAREN) {
		p.nextToken()
		p.skipBalanced(lexer.LPAREN, lexer.RPAREN)
	}
	return p.l.Input()[start:p.curToken.End]
}

func (p *Parser) skipAnnotations() {
	for p.curTokenIs(lexer.AT) && !p.peekTokenIs(lexer.INTERFACE) {
		p.parseAnnotation()
		p.nextToken()
	}
}

// skipBalanced advances from an opening token to its matching close.
func (p *Parser) skipBalanced(open, close lexer.TokenType) {
	depth := 0
	for !p.curTokenIs(lexer.EOF) {
		switch p.curToken.Type {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return
			}
		}
		p.nextToken()
	}
	p.addError("PARSE-0001", p.curToken, map[string]any{"Expected": "'" + close.String() + "'", "Got": "end of input"})
}

// ---------------------------------------------------------------------------
// Types

func (p *Parser) startsType() bool {
	return p.curTokenIs(lexer.IDENT) || p.curToken.Type.IsPrimitiveType() || p.curTokenIs(lexer.VOID)
}

// parseType parses a type starting at curToken and leaves curToken on its
// last token.
func (p *Parser) parseType() *ast.TypeRef {
	p.skipAnnotations()
	t := &ast.TypeRef{}
	t.Start = p.curToken.Pos

	switch {
	case p.curToken.Type.IsPrimitiveType() || p.curTokenIs(lexer.VOID):
		t.Name = p.curToken.Literal
		t.Primitive = p.curToken.Type.IsPrimitiveType()
	case p.curTokenIs(lexer.IDENT):
		t.Name = p.curToken.Literal
		for {
			if p.peekTokenIs(lexer.LT) {
				p.nextToken()
				t.Args, t.Diamond = p.parseTypeArgs()
				if p.failed() {
					return nil
				}
			}
			if p.peekTokenIs(lexer.DOT) && p.afterPeek().Type == lexer.IDENT {
				p.nextToken()
				p.nextToken()
				t.Name += "." + p.curToken.Literal
				t.Args, t.Diamond = nil, false
				continue
			}
			break
		}
	case p.curTokenIs(lexer.QUESTION):
		t.Name = "?"
		if p.peekTokenIs(lexer.EXTENDS) || p.peekTokenIs(lexer.SUPER) {
			p.nextToken()
			t.BoundKw = p.curToken.Literal
			p.nextToken()
			t.Bound = p.parseType()
			if t.Bound == nil {
				return nil
			}
		}
	default:
		p.addError("PARSE-0001", p.curToken, map[string]any{"Expected": "a type", "Got": p.curToken.Literal})
		return nil
	}

	for p.peekTokenIs(lexer.LBRACKET) && p.afterPeek().Type == lexer.RBRACKET {
		p.nextToken()
		p.nextToken()
		t.Dims++
	}
	t.Stop = p.curToken.End
	return t
}

// parseTypeArgs parses '<...>' starting at '<' and ending on '>'.
func (p *Parser) parseTypeArgs() ([]*ast.TypeRef, bool) {
	if p.peekTokenIs(lexer.GT) {
		p.nextToken()
		return []*ast.TypeRef{}, true
	}
	var args []*ast.TypeRef
	for {
		p.nextToken()
		arg := p.parseType()
		if arg == nil {
			return nil, false
		}
		for p.peekTokenIs(lexer.AMP) {
			p.nextToken()
			p.nextToken()
			if p.parseType() == nil {
				return nil, false
			}
		}
		args = append(args, arg)
		if p.peekTokenIs(lexer.COMMA) {
			p.nextToken()
			continue
		}
		if !p.expectPeek(lexer.GT) {
			return nil, false
		}
		return args, false
	}
}

// parseTypeParams consumes a '<T extends X, U>' declaration list.
func (p *Parser) parseTypeParams() []string {
	var names []string
	depth := 0
	for !p.curTokenIs(lexer.EOF) {
		switch p.curToken.Type {
		case lexer.LT:
			depth++
		case lexer.GT:
			depth--
			if depth == 0 {
				return names
			}
		case lexer.IDENT:
			if depth == 1 && (p.prevToken.Type == lexer.LT || p.prevToken.Type == lexer.COMMA) {
				names = append(names, p.curToken.Literal)
			}
		}
		p.nextToken()
	}
	return names
}

func (p *Parser) parseTypeList() []*ast.TypeRef {
	var types []*ast.TypeRef
	for {
		p.nextToken()
		t := p.parseType()
		if t == nil {
			return types
		}
		types = append(types, t)
		if !p.peekTokenIs(lexer.COMMA) {
			return types
		}
		p.nextToken()
	}
}
