package parser

import (
	"github.com/sambeau/streamline/pkg/java/ast"
	"github.com/sambeau/streamline/pkg/java/lexer"
)

// parseBlock parses '{ stmts }' starting on '{' and ending on '}'.
func (p *Parser) parseBlock() *ast.BlockStmt {
	block := &ast.BlockStmt{Stmts: []ast.Statement{}}
	block.Start = p.curToken.Pos
	p.nextToken()

	for !p.curTokenIs(lexer.RBRACE) && !p.curTokenIs(lexer.EOF) {
		stmt := p.parseBlockStatement()
		if stmt == nil || p.failed() {
			return nil
		}
		block.Stmts = append(block.Stmts, stmt)
		p.nextToken()
	}
	if !p.curTokenIs(lexer.RBRACE) {
		p.addError("PARSE-0001", p.curToken, map[string]any{"Expected": "'}'", "Got": "end of input"})
		return nil
	}
	block.Stop = p.curToken.End
	return block
}

// parseBlockStatement parses a statement or local declaration.
func (p *Parser) parseBlockStatement() ast.Statement {
	switch {
	case p.curTokenIs(lexer.CLASS), p.curTokenIs(lexer.INTERFACE), p.curTokenIs(lexer.ENUM),
		p.curTokenIs(lexer.ABSTRACT), p.curTokenIs(lexer.STATIC), p.isRecordStart():
		return p.parseLocalClass()
	case p.curTokenIs(lexer.FINAL), p.curTokenIs(lexer.AT):
		start := p.curToken.Pos
		mods := p.parseModifiers()
		if p.curTokenIs(lexer.CLASS) || p.isRecordStart() {
			cd := p.parseClassDecl(mods)
			if cd == nil {
				return nil
			}
			cd.Start = start
			return &ast.LocalClassStmt{Span: cd.Span, Decl: cd}
		}
		return p.parseLocalVarDecl(start, mods, false)
	case p.curTokenIs(lexer.IDENT) && p.curToken.Literal == "yield" && !p.peekTokenIs(lexer.ASSIGN) && !p.peekTokenIs(lexer.DOT) && !p.peekTokenIs(lexer.LPAREN):
		return p.parseYieldStatement()
	case p.startsType() && p.looksLikeDeclaration():
		return p.parseLocalVarDecl(p.curToken.Pos, ast.Modifiers{}, false)
	}
	return p.parseStatement()
}

func (p *Parser) parseLocalClass() ast.Statement {
	start := p.curToken.Pos
	mods := p.parseModifiers()
	cd := p.parseClassDecl(mods)
	if cd == nil {
		return nil
	}
	cd.Start = start
	return &ast.LocalClassStmt{Span: cd.Span, Decl: cd}
}

// looksLikeDeclaration speculatively checks for 'Type name [=;,:[]'.
func (p *Parser) looksLikeDeclaration() bool {
	s := p.save()
	defer p.restore(s)

	if p.parseType() == nil || p.failed() {
		return false
	}
	if !p.peekTokenIs(lexer.IDENT) {
		return false
	}
	p.nextToken()
	switch p.peekToken.Type {
	case lexer.ASSIGN, lexer.SEMICOLON, lexer.COMMA, lexer.COLON, lexer.LBRACKET:
		return true
	}
	return false
}

// parseLocalVarDecl parses 'Type a = x, b;' from the type onwards.
func (p *Parser) parseLocalVarDecl(start int, mods ast.Modifiers, noSemi bool) ast.Statement {
	decl := &ast.LocalVarDecl{Modifiers: mods, NoSemi: noSemi}
	decl.Start = start
	decl.Type = p.parseType()
	if decl.Type == nil || !p.expectPeek(lexer.IDENT) {
		return nil
	}
	first := &ast.Identifier{Span: ast.Span{Start: p.curToken.Pos, Stop: p.curToken.End}, Value: p.curToken.Literal}
	decl.Vars = p.parseDeclaratorsFrom(first)
	if decl.Vars == nil {
		return nil
	}
	if !noSemi && !p.expectPeek(lexer.SEMICOLON) {
		return nil
	}
	decl.Stop = p.curToken.End
	return decl
}

// parseStatement parses statements that are not declarations.
func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case lexer.LBRACE:
		block := p.parseBlock()
		if block == nil {
			return nil
		}
		return block
	case lexer.SEMICOLON:
		return &ast.EmptyStmt{Span: ast.Span{Start: p.curToken.Pos, Stop: p.curToken.End}}
	case lexer.IF:
		return p.parseIfStatement()
	case lexer.FOR:
		return p.parseForStatement()
	case lexer.WHILE:
		return p.parseWhileStatement()
	case lexer.DO:
		return p.parseDoWhileStatement()
	case lexer.RETURN:
		return p.parseReturnStatement()
	case lexer.BREAK:
		return p.parseBreakStatement()
	case lexer.CONTINUE:
		return p.parseContinueStatement()
	case lexer.THROW:
		return p.parseThrowStatement()
	case lexer.SWITCH:
		if st := p.parseSwitchStatement(); st != nil {
			return st
		}
		return nil
	case lexer.TRY:
		return p.parseTryStatement()
	case lexer.SYNCHRONIZED:
		return p.parseSynchronizedStatement()
	case lexer.ASSERT:
		return p.parseAssertStatement()
	case lexer.IDENT:
		if p.peekTokenIs(lexer.COLON) {
			return p.parseLabeledStatement()
		}
	}
	return p.parseExpressionStatement()
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	start := p.curToken.Pos
	x := p.parseExpression(LOWEST)
	if x == nil || !p.expectPeek(lexer.SEMICOLON) {
		return nil
	}
	return &ast.ExprStmt{Span: ast.Span{Start: start, Stop: p.curToken.End}, X: x}
}

// parseEmbedded parses the statement after a control-flow header.
func (p *Parser) parseEmbedded() ast.Statement {
	p.nextToken()
	return p.parseStatement()
}

func (p *Parser) parseIfStatement() ast.Statement {
	st := &ast.IfStmt{}
	st.Start = p.curToken.Pos
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	p.nextToken()
	st.Cond = p.parseExpression(LOWEST)
	if st.Cond == nil || !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	st.Then = p.parseEmbedded()
	if st.Then == nil {
		return nil
	}
	if p.peekTokenIs(lexer.ELSE) {
		p.nextToken()
		st.Else = p.parseEmbedded()
		if st.Else == nil {
			return nil
		}
	}
	st.Stop = p.curToken.End
	return st
}

func (p *Parser) parseForStatement() ast.Statement {
	start := p.curToken.Pos
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	p.nextToken()

	var init []ast.Statement
	if !p.curTokenIs(lexer.SEMICOLON) {
		declStart := p.curToken.Pos
		mods := p.parseModifiers()
		if len(mods.Keywords)+len(mods.Annotations) > 0 || (p.startsType() && p.looksLikeDeclaration()) {
			if fe := p.tryForEach(start, declStart, mods); fe != nil {
				return fe
			}
			if p.failed() {
				return nil
			}
			decl := p.parseLocalVarDecl(declStart, mods, true)
			if decl == nil {
				return nil
			}
			init = append(init, decl)
		} else {
			init = p.parseExpressionStatements()
			if init == nil {
				return nil
			}
		}
		p.nextToken()
	}
	if !p.curTokenIs(lexer.SEMICOLON) {
		p.addError("PARSE-0001", p.curToken, map[string]any{"Expected": "';'", "Got": p.curToken.Literal})
		return nil
	}

	fs := &ast.ForStmt{Init: init}
	fs.Start = start
	if !p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
		fs.Cond = p.parseExpression(LOWEST)
		if fs.Cond == nil {
			return nil
		}
	}
	if !p.expectPeek(lexer.SEMICOLON) {
		return nil
	}
	if !p.peekTokenIs(lexer.RPAREN) {
		p.nextToken()
		fs.Update = p.parseExpressionStatements()
		if fs.Update == nil {
			return nil
		}
	}
	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	fs.Rparen = p.curToken.Pos
	fs.Body = p.parseEmbedded()
	if fs.Body == nil {
		return nil
	}
	fs.Stop = p.curToken.End
	return fs
}

// tryForEach parses 'Type name : expr) body' if the header has that shape.
func (p *Parser) tryForEach(start, declStart int, mods ast.Modifiers) ast.Statement {
	s := p.save()
	typ := p.parseType()
	if typ == nil || !p.peekTokenIs(lexer.IDENT) {
		p.restore(s)
		return nil
	}
	p.nextToken()
	name := &ast.Identifier{Span: ast.Span{Start: p.curToken.Pos, Stop: p.curToken.End}, Value: p.curToken.Literal}
	if !p.peekTokenIs(lexer.COLON) {
		p.restore(s)
		return nil
	}
	p.nextToken()
	p.nextToken()

	fe := &ast.ForEachStmt{Var: &ast.Param{Modifiers: mods, Type: typ, Name: name}}
	fe.Start = start
	fe.Var.Start = declStart
	fe.Var.Stop = name.End()
	fe.Iterable = p.parseExpression(LOWEST)
	if fe.Iterable == nil || !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	fe.Rparen = p.curToken.Pos
	fe.Body = p.parseEmbedded()
	if fe.Body == nil {
		return nil
	}
	fe.Stop = p.curToken.End
	return fe
}

// parseExpressionStatements parses 'a, b, c' as semicolon-less statements.
func (p *Parser) parseExpressionStatements() []ast.Statement {
	var stmts []ast.Statement
	for {
		x := p.parseExpression(LOWEST)
		if x == nil {
			return nil
		}
		stmts = append(stmts, &ast.ExprStmt{Span: ast.Span{Start: x.Pos(), Stop: x.End()}, X: x, NoSemi: true})
		if !p.peekTokenIs(lexer.COMMA) {
			return stmts
		}
		p.nextToken()
		p.nextToken()
	}
}

func (p *Parser) parseWhileStatement() ast.Statement {
	ws := &ast.WhileStmt{}
	ws.Start = p.curToken.Pos
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	p.nextToken()
	ws.Cond = p.parseExpression(LOWEST)
	if ws.Cond == nil || !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	ws.Rparen = p.curToken.Pos
	ws.Body = p.parseEmbedded()
	if ws.Body == nil {
		return nil
	}
	ws.Stop = p.curToken.End
	return ws
}

func (p *Parser) parseDoWhileStatement() ast.Statement {
	dw := &ast.DoWhileStmt{}
	dw.Start = p.curToken.Pos
	dw.Body = p.parseEmbedded()
	if dw.Body == nil || !p.expectPeek(lexer.WHILE) || !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	p.nextToken()
	dw.Cond = p.parseExpression(LOWEST)
	if dw.Cond == nil || !p.expectPeek(lexer.RPAREN) || !p.expectPeek(lexer.SEMICOLON) {
		return nil
	}
	dw.Stop = p.curToken.End
	return dw
}

func (p *Parser) parseReturnStatement() ast.Statement {
	rs := &ast.ReturnStmt{}
	rs.Start = p.curToken.Pos
	if !p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
		rs.Result = p.parseExpression(LOWEST)
		if rs.Result == nil {
			return nil
		}
	}
	if !p.expectPeek(lexer.SEMICOLON) {
		return nil
	}
	rs.Stop = p.curToken.End
	return rs
}

func (p *Parser) parseOptionalLabel() *ast.Identifier {
	if !p.peekTokenIs(lexer.IDENT) {
		return nil
	}
	p.nextToken()
	return &ast.Identifier{Span: ast.Span{Start: p.curToken.Pos, Stop: p.curToken.End}, Value: p.curToken.Literal}
}

func (p *Parser) parseBreakStatement() ast.Statement {
	bs := &ast.BreakStmt{}
	bs.Start = p.curToken.Pos
	bs.Label = p.parseOptionalLabel()
	if !p.expectPeek(lexer.SEMICOLON) {
		return nil
	}
	bs.Stop = p.curToken.End
	return bs
}

func (p *Parser) parseContinueStatement() ast.Statement {
	cs := &ast.ContinueStmt{}
	cs.Start = p.curToken.Pos
	cs.Label = p.parseOptionalLabel()
	if !p.expectPeek(lexer.SEMICOLON) {
		return nil
	}
	cs.Stop = p.curToken.End
	return cs
}

func (p *Parser) parseThrowStatement() ast.Statement {
	ts := &ast.ThrowStmt{}
	ts.Start = p.curToken.Pos
	p.nextToken()
	ts.X = p.parseExpression(LOWEST)
	if ts.X == nil || !p.expectPeek(lexer.SEMICOLON) {
		return nil
	}
	ts.Stop = p.curToken.End
	return ts
}

func (p *Parser) parseYieldStatement() ast.Statement {
	// yield is modelled as a return from the enclosing switch arm
	rs := &ast.ReturnStmt{}
	rs.Start = p.curToken.Pos
	p.nextToken()
	rs.Result = p.parseExpression(LOWEST)
	if rs.Result == nil || !p.expectPeek(lexer.SEMICOLON) {
		return nil
	}
	rs.Stop = p.curToken.End
	return rs
}

func (p *Parser) parseLabeledStatement() ast.Statement {
	ls := &ast.LabeledStmt{}
	ls.Start = p.curToken.Pos
	ls.Label = &ast.Identifier{Span: ast.Span{Start: p.curToken.Pos, Stop: p.curToken.End}, Value: p.curToken.Literal}
	p.nextToken()
	ls.Stmt = p.parseEmbedded()
	if ls.Stmt == nil {
		return nil
	}
	ls.Stop = p.curToken.End
	return ls
}

// parseSwitchBody parses '(tag) { cases }' for statements and expressions.
func (p *Parser) parseSwitchBody() (ast.Expression, []*ast.CaseClause, bool) {
	if !p.expectPeek(lexer.LPAREN) {
		return nil, nil, false
	}
	p.nextToken()
	tag := p.parseExpression(LOWEST)
	if tag == nil || !p.expectPeek(lexer.RPAREN) || !p.expectPeek(lexer.LBRACE) {
		return nil, nil, false
	}
	p.nextToken()

	var cases []*ast.CaseClause
	for !p.curTokenIs(lexer.RBRACE) {
		if p.curTokenIs(lexer.EOF) || p.failed() {
			return nil, nil, false
		}
		cc := &ast.CaseClause{}
		cc.Start = p.curToken.Pos
		switch {
		case p.curTokenIs(lexer.DEFAULT):
		case p.curTokenIs(lexer.CASE):
			p.nextToken()
			for {
				p.inCaseLabel = true
				x := p.parseExpression(TERNARY)
				p.inCaseLabel = false
				if x == nil {
					return nil, nil, false
				}
				cc.Exprs = append(cc.Exprs, x)
				if !p.peekTokenIs(lexer.COMMA) {
					break
				}
				p.nextToken()
				p.nextToken()
			}
		default:
			p.addError("PARSE-0002", p.curToken, map[string]any{"Token": p.curToken.Literal})
			return nil, nil, false
		}

		switch {
		case p.peekTokenIs(lexer.ARROW):
			cc.Arrow = true
			p.nextToken()
			p.nextToken()
			var body ast.Statement
			switch {
			case p.curTokenIs(lexer.LBRACE):
				if b := p.parseBlock(); b != nil {
					body = b
				}
			case p.curTokenIs(lexer.THROW):
				body = p.parseThrowStatement()
			default:
				body = p.parseExpressionStatement()
			}
			if body == nil {
				return nil, nil, false
			}
			cc.Body = []ast.Statement{body}
			p.nextToken()
		case p.peekTokenIs(lexer.COLON):
			p.nextToken()
			p.nextToken()
			for !p.curTokenIs(lexer.CASE) && !p.curTokenIs(lexer.DEFAULT) && !p.curTokenIs(lexer.RBRACE) {
				if p.curTokenIs(lexer.EOF) {
					return nil, nil, false
				}
				stmt := p.parseBlockStatement()
				if stmt == nil {
					return nil, nil, false
				}
				cc.Body = append(cc.Body, stmt)
				p.nextToken()
			}
		default:
			p.peekError(lexer.COLON)
			return nil, nil, false
		}
		cc.Stop = p.prevToken.End
		cases = append(cases, cc)
	}
	return tag, cases, true
}

func (p *Parser) parseSwitchStatement() *ast.SwitchStmt {
	ss := &ast.SwitchStmt{}
	ss.Start = p.curToken.Pos
	tag, cases, ok := p.parseSwitchBody()
	if !ok {
		return nil
	}
	ss.Tag, ss.Cases = tag, cases
	ss.Stop = p.curToken.End
	return ss
}

func (p *Parser) parseTryStatement() ast.Statement {
	ts := &ast.TryStmt{}
	ts.Start = p.curToken.Pos

	if p.peekTokenIs(lexer.LPAREN) {
		p.nextToken()
		for !p.peekTokenIs(lexer.RPAREN) {
			p.nextToken()
			start := p.curToken.Pos
			mods := p.parseModifiers()
			var res ast.Statement
			if len(mods.Keywords)+len(mods.Annotations) > 0 || (p.startsType() && p.looksLikeDeclaration()) {
				res = p.parseLocalVarDecl(start, mods, true)
			} else {
				x := p.parseExpression(LOWEST)
				if x != nil {
					res = &ast.ExprStmt{Span: ast.Span{Start: x.Pos(), Stop: x.End()}, X: x, NoSemi: true}
				}
			}
			if res == nil {
				return nil
			}
			ts.Resources = append(ts.Resources, res)
			if p.peekTokenIs(lexer.SEMICOLON) {
				p.nextToken()
			}
		}
		p.nextToken()
	}

	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	ts.Body = p.parseBlock()
	if ts.Body == nil {
		return nil
	}

	for p.peekTokenIs(lexer.CATCH) {
		p.nextToken()
		cc := &ast.CatchClause{}
		cc.Start = p.curToken.Pos
		if !p.expectPeek(lexer.LPAREN) {
			return nil
		}
		p.nextToken()
		param := &ast.Param{}
		param.Start = p.curToken.Pos
		param.Modifiers = p.parseModifiers()
		for {
			t := p.parseType()
			if t == nil {
				return nil
			}
			cc.Types = append(cc.Types, t)
			if !p.peekTokenIs(lexer.PIPE) {
				break
			}
			p.nextToken()
			p.nextToken()
		}
		param.Type = cc.Types[0]
		if !p.expectPeek(lexer.IDENT) {
			return nil
		}
		param.Name = &ast.Identifier{Span: ast.Span{Start: p.curToken.Pos, Stop: p.curToken.End}, Value: p.curToken.Literal}
		param.Stop = p.curToken.End
		cc.Param = param
		if !p.expectPeek(lexer.RPAREN) || !p.expectPeek(lexer.LBRACE) {
			return nil
		}
		cc.Body = p.parseBlock()
		if cc.Body == nil {
			return nil
		}
		cc.Stop = p.curToken.End
		ts.Catches = append(ts.Catches, cc)
	}

	if p.peekTokenIs(lexer.FINALLY) {
		p.nextToken()
		if !p.expectPeek(lexer.LBRACE) {
			return nil
		}
		ts.Finally = p.parseBlock()
		if ts.Finally == nil {
			return nil
		}
	}
	ts.Stop = p.curToken.End
	return ts
}

func (p *Parser) parseSynchronizedStatement() ast.Statement {
	ss := &ast.SyncStmt{}
	ss.Start = p.curToken.Pos
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	p.nextToken()
	ss.Lock = p.parseExpression(LOWEST)
	if ss.Lock == nil || !p.expectPeek(lexer.RPAREN) || !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	ss.Body = p.parseBlock()
	if ss.Body == nil {
		return nil
	}
	ss.Stop = p.curToken.End
	return ss
}

func (p *Parser) parseAssertStatement() ast.Statement {
	as := &ast.AssertStmt{}
	as.Start = p.curToken.Pos
	p.nextToken()
	as.Cond = p.parseExpression(LOWEST)
	if as.Cond == nil {
		return nil
	}
	if p.peekTokenIs(lexer.COLON) {
		p.nextToken()
		p.nextToken()
		as.Message = p.parseExpression(LOWEST)
		if as.Message == nil {
			return nil
		}
	}
	if !p.expectPeek(lexer.SEMICOLON) {
		return nil
	}
	as.Stop = p.curToken.End
	return as
}
