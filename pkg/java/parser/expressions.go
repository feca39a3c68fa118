package parser

import (
	"strings"

	"github.com/sambeau/streamline/pkg/java/ast"
	"github.com/sambeau/streamline/pkg/java/lexer"
)

// parseExpression is the Pratt loop.
func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken)
		return nil
	}

	leftExp := prefix()
	if leftExp == nil {
		return nil
	}

	for !p.peekTokenIs(lexer.SEMICOLON) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}

		p.nextToken()

		leftExp = infix(leftExp)
		if leftExp == nil {
			return nil
		}
	}

	return leftExp
}

func (p *Parser) noPrefixParseFnError(tok lexer.Token) {
	lit := tok.Literal
	if tok.Type == lexer.EOF {
		lit = "end of input"
	}
	p.addError("PARSE-0002", tok, map[string]any{"Token": lit})
}

// lexAhead returns up to n tokens following peekToken without consuming them.
func (p *Parser) lexAhead(n int) []lexer.Token {
	state := p.l.SaveState()
	defer p.l.RestoreState(state)
	toks := make([]lexer.Token, 0, n)
	for i := 0; i < n; i++ {
		toks = append(toks, p.l.NextToken())
	}
	return toks
}

// shiftOp assembles '>', '>>', '>>>', '>>=' or '>>>=' from a '>' and the
// adjacent tokens after it. The second result is the number of tokens used.
func shiftOp(first lexer.Token, rest []lexer.Token) (string, int) {
	op, n, end := ">", 1, first.End
	for _, tok := range rest {
		if tok.Pos != end {
			break
		}
		if tok.Type == lexer.GT && n < 3 {
			op += ">"
			n++
			end = tok.End
			continue
		}
		if tok.Type == lexer.GTE && n < 3 {
			return op + ">=", n + 1
		}
		break
	}
	return op, n
}

func (p *Parser) peekPrecedence() int {
	if p.peekTokenIs(lexer.GT) {
		op, n := shiftOp(p.peekToken, p.lexAhead(3))
		switch {
		case strings.HasSuffix(op, "="):
			return ASSIGNMENT
		case n > 1:
			return SHIFT
		}
		return LESSGREATER
	}
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}

// ---------------------------------------------------------------------------
// Prefix parsers

func (p *Parser) ident() *ast.Identifier {
	return &ast.Identifier{Span: ast.Span{Start: p.curToken.Pos, Stop: p.curToken.End}, Value: p.curToken.Literal}
}

func (p *Parser) parseIdentifier() ast.Expression {
	if p.peekTokenIs(lexer.ARROW) && !p.inCaseLabel {
		param := &ast.Param{Name: p.ident()}
		param.Span = param.Name.Span
		return p.parseLambdaBody(p.curToken.Pos, []*ast.Param{param}, false)
	}
	return p.ident()
}

func (p *Parser) parseLiteral() ast.Expression {
	lit := &ast.Literal{Span: ast.Span{Start: p.curToken.Pos, Stop: p.curToken.End}, Value: p.curToken.Literal}
	switch p.curToken.Type {
	case lexer.INT:
		lit.Kind = ast.IntLit
		if strings.HasSuffix(lit.Value, "L") || strings.HasSuffix(lit.Value, "l") {
			lit.Kind = ast.LongLit
		}
	case lexer.FLOAT:
		lit.Kind = ast.DoubleLit
		if strings.HasSuffix(lit.Value, "f") || strings.HasSuffix(lit.Value, "F") {
			lit.Kind = ast.FloatLit
		}
	case lexer.CHAR:
		lit.Kind = ast.CharLit
	case lexer.STRING:
		lit.Kind = ast.StringLit
	case lexer.TEXT_BLOCK:
		lit.Kind = ast.TextBlockLit
	case lexer.TRUE, lexer.FALSE:
		lit.Kind = ast.BoolLit
	case lexer.NULL:
		lit.Kind = ast.NullLit
	}
	return lit
}

func (p *Parser) parseThis() ast.Expression {
	return &ast.ThisExpr{Span: ast.Span{Start: p.curToken.Pos, Stop: p.curToken.End}}
}

func (p *Parser) parseSuper() ast.Expression {
	return &ast.SuperExpr{Span: ast.Span{Start: p.curToken.Pos, Stop: p.curToken.End}}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expr := &ast.UnaryExpr{Op: p.curToken.Literal}
	expr.Start = p.curToken.Pos
	p.nextToken()
	expr.X = p.parseExpression(PREFIX)
	if expr.X == nil {
		return nil
	}
	expr.Stop = expr.X.End()
	return expr
}

// parsePrimitiveTypeExpression handles 'int.class' and 'int[]::new'.
func (p *Parser) parsePrimitiveTypeExpression() ast.Expression {
	t := p.parseType()
	if t == nil {
		return nil
	}
	return p.finishTypeExpression(t)
}

func (p *Parser) finishTypeExpression(t *ast.TypeRef) ast.Expression {
	switch {
	case p.peekTokenIs(lexer.COLONCOLON):
		p.nextToken()
		return p.finishMethodRef(t.Start, t)
	case p.peekTokenIs(lexer.DOT) && p.afterPeek().Type == lexer.CLASS:
		p.nextToken()
		p.nextToken()
		return &ast.ClassLit{Span: ast.Span{Start: t.Start, Stop: p.curToken.End}, Type: t}
	}
	p.addError("PARSE-0002", p.peekToken, map[string]any{"Token": p.peekToken.Literal})
	return nil
}

// lambdaAhead reports whether the '(' at curToken opens a lambda parameter list.
func (p *Parser) lambdaAhead() bool {
	state := p.l.SaveState()
	defer p.l.RestoreState(state)

	depth := 1
	tok := p.peekToken
	for tok.Type != lexer.EOF {
		switch tok.Type {
		case lexer.LPAREN:
			depth++
		case lexer.RPAREN:
			depth--
			if depth == 0 {
				return p.l.NextToken().Type == lexer.ARROW
			}
		case lexer.SEMICOLON, lexer.LBRACE, lexer.RBRACE:
			return false
		}
		tok = p.l.NextToken()
	}
	return false
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	start := p.curToken.Pos
	if p.lambdaAhead() {
		return p.parseParenthesizedLambda()
	}
	if cast := p.tryParseCast(); cast != nil {
		return cast
	}

	p.nextToken()
	x := p.parseExpression(LOWEST)
	if x == nil || !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	return &ast.ParenExpr{Span: ast.Span{Start: start, Stop: p.curToken.End}, X: x}
}

// castOperandStart reports whether a token can begin the operand of a
// reference-type cast.
func castOperandStart(tt lexer.TokenType) bool {
	switch tt {
	case lexer.IDENT, lexer.INT, lexer.FLOAT, lexer.CHAR, lexer.STRING, lexer.TEXT_BLOCK,
		lexer.TRUE, lexer.FALSE, lexer.NULL, lexer.LPAREN, lexer.BANG, lexer.TILDE,
		lexer.THIS, lexer.SUPER, lexer.NEW, lexer.SWITCH:
		return true
	}
	return tt.IsPrimitiveType()
}

func (p *Parser) tryParseCast() ast.Expression {
	s := p.save()
	start := p.curToken.Pos
	p.nextToken()
	if !p.startsType() {
		p.restore(s)
		return nil
	}
	t := p.parseType()
	for t != nil && p.peekTokenIs(lexer.AMP) {
		p.nextToken()
		p.nextToken()
		if p.parseType() == nil {
			t = nil
		}
	}
	if t == nil || p.failed() || !p.peekTokenIs(lexer.RPAREN) {
		p.restore(s)
		return nil
	}
	p.nextToken()

	ok := castOperandStart(p.peekToken.Type)
	if t.Primitive && t.Dims == 0 {
		switch p.peekToken.Type {
		case lexer.PLUS, lexer.MINUS, lexer.PLUSPLUS, lexer.MINUSMINUS:
			ok = true
		}
	}
	if !ok {
		p.restore(s)
		return nil
	}
	p.nextToken()
	x := p.parseExpression(PREFIX)
	if x == nil {
		return nil
	}
	return &ast.CastExpr{Span: ast.Span{Start: start, Stop: x.End()}, Type: t, X: x}
}

func (p *Parser) parseParenthesizedLambda() ast.Expression {
	start := p.curToken.Pos
	params := []*ast.Param{}
	if p.peekTokenIs(lexer.RPAREN) {
		p.nextToken()
	} else {
		for {
			p.nextToken()
			var param *ast.Param
			if p.curTokenIs(lexer.IDENT) && (p.peekTokenIs(lexer.COMMA) || p.peekTokenIs(lexer.RPAREN)) {
				param = &ast.Param{Name: p.ident()}
				param.Span = param.Name.Span
			} else {
				param = p.parseParam()
			}
			if param == nil {
				return nil
			}
			params = append(params, param)
			if p.peekTokenIs(lexer.COMMA) {
				p.nextToken()
				continue
			}
			if !p.expectPeek(lexer.RPAREN) {
				return nil
			}
			break
		}
	}
	return p.parseLambdaBody(start, params, true)
}

// parseLambdaBody expects peekToken to be '->'.
func (p *Parser) parseLambdaBody(start int, params []*ast.Param, parens bool) ast.Expression {
	if !p.expectPeek(lexer.ARROW) {
		return nil
	}
	p.nextToken()
	le := &ast.LambdaExpr{Params: params, Parens: parens}
	le.Start = start
	saved := p.inCaseLabel
	p.inCaseLabel = false
	defer func() { p.inCaseLabel = saved }()
	if p.curTokenIs(lexer.LBRACE) {
		body := p.parseBlock()
		if body == nil {
			return nil
		}
		le.Body = body
	} else {
		body := p.parseExpression(LOWEST)
		if body == nil {
			return nil
		}
		le.Body = body
	}
	le.Stop = le.Body.End()
	return le
}

func (p *Parser) parseArrayInit() ast.Expression {
	ai := &ast.ArrayInit{Elems: []ast.Expression{}}
	ai.Start = p.curToken.Pos
	for !p.peekTokenIs(lexer.RBRACE) {
		p.nextToken()
		x := p.parseVariableInitializer()
		if x == nil {
			return nil
		}
		ai.Elems = append(ai.Elems, x)
		if !p.peekTokenIs(lexer.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(lexer.RBRACE) {
		return nil
	}
	ai.Stop = p.curToken.End
	return ai
}

func (p *Parser) parseNewExpression() ast.Expression {
	start := p.curToken.Pos
	p.nextToken()
	if p.curTokenIs(lexer.LT) {
		p.parseTypeArgs()
		p.nextToken()
	}
	t := p.parseType()
	if t == nil {
		return nil
	}

	switch {
	case p.peekTokenIs(lexer.LBRACKET):
		na := &ast.NewArrayExpr{Elem: t}
		na.Start = start
		for p.peekTokenIs(lexer.LBRACKET) {
			p.nextToken()
			if p.peekTokenIs(lexer.RBRACKET) {
				p.nextToken()
				na.ExtraDims++
				continue
			}
			p.nextToken()
			d := p.parseExpression(LOWEST)
			if d == nil || !p.expectPeek(lexer.RBRACKET) {
				return nil
			}
			na.Dims = append(na.Dims, d)
		}
		na.Stop = p.curToken.End
		return na
	case t.Dims > 0 && p.peekTokenIs(lexer.LBRACE):
		elem := *t
		elem.Dims = 0
		na := &ast.NewArrayExpr{Elem: &elem, ExtraDims: t.Dims}
		na.Start = start
		p.nextToken()
		init, ok := p.parseArrayInit().(*ast.ArrayInit)
		if !ok {
			return nil
		}
		na.Init = init
		na.Stop = init.End()
		return na
	}

	ne := &ast.NewExpr{Type: t}
	ne.Start = start
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	ne.Args = p.parseExpressionList(lexer.RPAREN)
	if ne.Args == nil {
		return nil
	}
	if p.peekTokenIs(lexer.LBRACE) {
		p.nextToken()
		body := &ast.ClassDecl{Kind: "class"}
		body.Start = p.curToken.Pos
		p.parseClassBody(body)
		if p.failed() {
			return nil
		}
		body.Stop = p.curToken.End
		ne.Body = body
	}
	ne.Stop = p.curToken.End
	return ne
}

func (p *Parser) parseSwitchExpression() ast.Expression {
	se := &ast.SwitchExpr{}
	se.Start = p.curToken.Pos
	tag, cases, ok := p.parseSwitchBody()
	if !ok {
		return nil
	}
	se.Tag, se.Cases = tag, cases
	se.Stop = p.curToken.End
	return se
}

// parseExpressionList parses 'a, b, c' between the current opening token and
// the closing token. Returns a non-nil empty slice for '()'.
func (p *Parser) parseExpressionList(end lexer.TokenType) []ast.Expression {
	list := []ast.Expression{}
	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}
	p.nextToken()
	x := p.parseExpression(LOWEST)
	if x == nil {
		return nil
	}
	list = append(list, x)
	for p.peekTokenIs(lexer.COMMA) {
		p.nextToken()
		p.nextToken()
		x := p.parseExpression(LOWEST)
		if x == nil {
			return nil
		}
		list = append(list, x)
	}
	if !p.expectPeek(end) {
		return nil
	}
	return list
}

// ---------------------------------------------------------------------------
// Infix parsers

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expr := &ast.BinaryExpr{Left: left, Op: p.curToken.Literal}
	expr.Start = left.Pos()
	precedence := p.curPrecedence()
	p.nextToken()
	expr.Right = p.parseExpression(precedence)
	if expr.Right == nil {
		return nil
	}
	expr.Stop = expr.Right.End()
	return expr
}

// parseGreaterExpression handles '>' and the shift operators assembled from
// adjacent '>' tokens.
func (p *Parser) parseGreaterExpression(left ast.Expression) ast.Expression {
	op, n := shiftOp(p.curToken, append([]lexer.Token{p.peekToken}, p.lexAhead(2)...))
	for i := 1; i < n; i++ {
		p.nextToken()
	}
	if strings.HasSuffix(op, "=") {
		expr := &ast.AssignExpr{Left: left, Op: op}
		expr.Start = left.Pos()
		p.nextToken()
		expr.Right = p.parseExpression(LOWEST)
		if expr.Right == nil {
			return nil
		}
		expr.Stop = expr.Right.End()
		return expr
	}
	precedence := LESSGREATER
	if n > 1 {
		precedence = SHIFT
	}
	expr := &ast.BinaryExpr{Left: left, Op: op}
	expr.Start = left.Pos()
	p.nextToken()
	expr.Right = p.parseExpression(precedence)
	if expr.Right == nil {
		return nil
	}
	expr.Stop = expr.Right.End()
	return expr
}

func (p *Parser) parseAssignExpression(left ast.Expression) ast.Expression {
	expr := &ast.AssignExpr{Left: left, Op: p.curToken.Literal}
	expr.Start = left.Pos()
	p.nextToken()
	if p.curTokenIs(lexer.LBRACE) {
		expr.Right = p.parseArrayInit()
	} else {
		expr.Right = p.parseExpression(ASSIGNMENT - 1)
	}
	if expr.Right == nil {
		return nil
	}
	expr.Stop = expr.Right.End()
	return expr
}

func (p *Parser) parseConditionalExpression(cond ast.Expression) ast.Expression {
	expr := &ast.ConditionalExpr{Cond: cond}
	expr.Start = cond.Pos()
	p.nextToken()
	saved := p.inCaseLabel
	p.inCaseLabel = false
	expr.Then = p.parseExpression(LOWEST)
	p.inCaseLabel = saved
	if expr.Then == nil || !p.expectPeek(lexer.COLON) {
		return nil
	}
	p.nextToken()
	expr.Else = p.parseExpression(TERNARY - 1)
	if expr.Else == nil {
		return nil
	}
	expr.Stop = expr.Else.End()
	return expr
}

func (p *Parser) parseInstanceOfExpression(left ast.Expression) ast.Expression {
	expr := &ast.InstanceOfExpr{X: left}
	expr.Start = left.Pos()
	p.nextToken()
	if p.curTokenIs(lexer.FINAL) {
		p.nextToken()
	}
	expr.Type = p.parseType()
	if expr.Type == nil {
		return nil
	}
	if p.peekTokenIs(lexer.IDENT) {
		p.nextToken()
		expr.Binding = p.ident()
	}
	expr.Stop = p.curToken.End
	return expr
}

func (p *Parser) parsePostfixExpression(left ast.Expression) ast.Expression {
	return &ast.PostfixExpr{Span: ast.Span{Start: left.Pos(), Stop: p.curToken.End}, X: left, Op: p.curToken.Literal}
}

func (p *Parser) parseDotExpression(left ast.Expression) ast.Expression {
	switch p.peekToken.Type {
	case lexer.IDENT:
		p.nextToken()
		name := p.ident()
		if p.peekTokenIs(lexer.LPAREN) {
			p.nextToken()
			call := &ast.MethodCall{X: left, Name: name, Lparen: p.curToken.Pos}
			call.Start = left.Pos()
			call.Args = p.parseExpressionList(lexer.RPAREN)
			if call.Args == nil {
				return nil
			}
			call.Stop = p.curToken.End
			return call
		}
		return &ast.FieldAccess{Span: ast.Span{Start: left.Pos(), Stop: name.End()}, X: left, Name: name}
	case lexer.LT:
		p.nextToken()
		typeArgs, _ := p.parseTypeArgs()
		if typeArgs == nil || !p.expectPeek(lexer.IDENT) {
			return nil
		}
		name := p.ident()
		if !p.expectPeek(lexer.LPAREN) {
			return nil
		}
		call := &ast.MethodCall{X: left, TypeArgs: typeArgs, Name: name, Lparen: p.curToken.Pos}
		call.Start = left.Pos()
		call.Args = p.parseExpressionList(lexer.RPAREN)
		if call.Args == nil {
			return nil
		}
		call.Stop = p.curToken.End
		return call
	case lexer.NEW:
		p.nextToken()
		ne, ok := p.parseNewExpression().(*ast.NewExpr)
		if !ok {
			return nil
		}
		ne.Outer = left
		ne.Start = left.Pos()
		return ne
	case lexer.THIS:
		p.nextToken()
		return &ast.ThisExpr{Span: ast.Span{Start: left.Pos(), Stop: p.curToken.End}, Qualifier: left.String()}
	case lexer.SUPER:
		p.nextToken()
		return &ast.SuperExpr{Span: ast.Span{Start: left.Pos(), Stop: p.curToken.End}}
	case lexer.CLASS:
		p.nextToken()
		t := exprToType(left)
		if t == nil {
			p.addError("PARSE-0002", p.curToken, map[string]any{"Token": "class"})
			return nil
		}
		return &ast.ClassLit{Span: ast.Span{Start: left.Pos(), Stop: p.curToken.End}, Type: t}
	}
	p.peekError(lexer.IDENT)
	return nil
}

func (p *Parser) parseCallExpression(left ast.Expression) ast.Expression {
	var name *ast.Identifier
	switch fn := left.(type) {
	case *ast.Identifier:
		name = fn
	case *ast.ThisExpr:
		name = &ast.Identifier{Span: fn.Span, Value: "this"}
	case *ast.SuperExpr:
		name = &ast.Identifier{Span: fn.Span, Value: "super"}
	default:
		p.addError("PARSE-0002", p.curToken, map[string]any{"Token": "("})
		return nil
	}
	call := &ast.MethodCall{Name: name, Lparen: p.curToken.Pos}
	call.Start = left.Pos()
	call.Args = p.parseExpressionList(lexer.RPAREN)
	if call.Args == nil {
		return nil
	}
	call.Stop = p.curToken.End
	return call
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	if p.peekTokenIs(lexer.RBRACKET) {
		// array type in expression position: T[]::new, T[].class
		t := exprToType(left)
		if t == nil {
			p.addError("PARSE-0002", p.peekToken, map[string]any{"Token": "]"})
			return nil
		}
		p.nextToken()
		t.Dims++
		for p.peekTokenIs(lexer.LBRACKET) && p.afterPeek().Type == lexer.RBRACKET {
			p.nextToken()
			p.nextToken()
			t.Dims++
		}
		t.Stop = p.curToken.End
		return p.finishTypeExpression(t)
	}
	expr := &ast.IndexExpr{X: left}
	expr.Start = left.Pos()
	p.nextToken()
	expr.Index = p.parseExpression(LOWEST)
	if expr.Index == nil || !p.expectPeek(lexer.RBRACKET) {
		return nil
	}
	expr.Stop = p.curToken.End
	return expr
}

func (p *Parser) parseMethodRef(left ast.Expression) ast.Expression {
	return p.finishMethodRef(left.Pos(), left)
}

// finishMethodRef expects curToken to be '::'.
func (p *Parser) finishMethodRef(start int, target ast.Node) ast.Expression {
	if p.peekTokenIs(lexer.LT) {
		p.nextToken()
		p.parseTypeArgs()
	}
	if !p.peekTokenIs(lexer.IDENT) && !p.peekTokenIs(lexer.NEW) {
		p.peekError(lexer.IDENT)
		return nil
	}
	p.nextToken()
	return &ast.MethodRef{Span: ast.Span{Start: start, Stop: p.curToken.End}, X: target, Name: p.curToken.Literal}
}

// exprToType converts a name expression (a or a.b.c) into a type reference.
func exprToType(x ast.Expression) *ast.TypeRef {
	switch n := x.(type) {
	case *ast.Identifier:
		return &ast.TypeRef{Span: n.Span, Name: n.Value}
	case *ast.FieldAccess:
		inner := exprToType(n.X)
		if inner == nil || inner.Dims > 0 {
			return nil
		}
		return &ast.TypeRef{Span: n.Span, Name: inner.Name + "." + n.Name.Value}
	}
	return nil
}
