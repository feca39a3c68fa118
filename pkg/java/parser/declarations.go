package parser

import (
	"github.com/sambeau/streamline/pkg/java/ast"
	"github.com/sambeau/streamline/pkg/java/lexer"
)

func (p *Parser) isRecordStart() bool {
	return p.curTokenIs(lexer.IDENT) && p.curToken.Literal == "record" && p.peekTokenIs(lexer.IDENT)
}

// parseClassDecl parses a type declaration whose modifiers have already been
// consumed. curToken is on class/interface/enum/record/@.
func (p *Parser) parseClassDecl(mods ast.Modifiers) *ast.ClassDecl {
	cd := &ast.ClassDecl{Modifiers: mods}
	cd.Start = p.curToken.Pos

	switch {
	case p.curTokenIs(lexer.CLASS), p.curTokenIs(lexer.INTERFACE), p.curTokenIs(lexer.ENUM):
		cd.Kind = p.curToken.Literal
	case p.curTokenIs(lexer.AT) && p.peekTokenIs(lexer.INTERFACE):
		p.nextToken()
		cd.Kind = "@interface"
	case p.isRecordStart():
		cd.Kind = "record"
	default:
		p.addError("PARSE-0001", p.curToken, map[string]any{"Expected": "a type declaration", "Got": p.curToken.Literal})
		return nil
	}

	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	cd.Name = &ast.Identifier{Span: ast.Span{Start: p.curToken.Pos, Stop: p.curToken.End}, Value: p.curToken.Literal}

	if p.peekTokenIs(lexer.LT) {
		p.nextToken()
		cd.TypeParams = p.parseTypeParams()
	}
	if cd.Kind == "record" {
		if !p.expectPeek(lexer.LPAREN) {
			return nil
		}
		cd.Components = p.parseParams()
	}
	for {
		switch {
		case p.peekTokenIs(lexer.EXTENDS):
			p.nextToken()
			cd.Extends = p.parseTypeList()
			continue
		case p.peekTokenIs(lexer.IMPLEMENTS):
			p.nextToken()
			cd.Implements = p.parseTypeList()
			continue
		case p.peekTokenIs(lexer.IDENT) && p.peekToken.Literal == "permits":
			p.nextToken()
			p.parseTypeList()
			continue
		}
		break
	}
	if p.failed() || !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	p.parseClassBody(cd)
	cd.Stop = p.curToken.End
	return cd
}

// parseClassBody parses members from '{' to the matching '}'.
func (p *Parser) parseClassBody(cd *ast.ClassDecl) {
	cd.Lbrace = p.curToken.Pos
	p.nextToken()

	if cd.Kind == "enum" {
		p.parseEnumConstants(cd)
	}

	for !p.curTokenIs(lexer.RBRACE) && !p.curTokenIs(lexer.EOF) && !p.failed() {
		if p.curTokenIs(lexer.SEMICOLON) {
			p.nextToken()
			continue
		}
		member := p.parseMember(cd)
		if member == nil {
			return
		}
		cd.Members = append(cd.Members, member)
		p.nextToken()
	}
	if !p.curTokenIs(lexer.RBRACE) {
		p.addError("PARSE-0001", p.curToken, map[string]any{"Expected": "'}'", "Got": "end of input"})
	}
}

func (p *Parser) parseEnumConstants(cd *ast.ClassDecl) {
	for p.curTokenIs(lexer.IDENT) || p.curTokenIs(lexer.AT) {
		p.skipAnnotations()
		ec := &ast.EnumConstant{}
		ec.Start = p.curToken.Pos
		ec.Name = &ast.Identifier{Span: ast.Span{Start: p.curToken.Pos, Stop: p.curToken.End}, Value: p.curToken.Literal}
		if p.peekTokenIs(lexer.LPAREN) {
			p.nextToken()
			ec.Args = p.parseExpressionList(lexer.RPAREN)
		}
		if p.peekTokenIs(lexer.LBRACE) {
			p.nextToken()
			body := &ast.ClassDecl{Kind: "class"}
			body.Start = p.curToken.Pos
			p.parseClassBody(body)
			body.Stop = p.curToken.End
			ec.Body = body
		}
		ec.Stop = p.curToken.End
		cd.Constants = append(cd.Constants, ec)
		p.nextToken()
		if p.curTokenIs(lexer.COMMA) {
			p.nextToken()
		}
	}
	if p.curTokenIs(lexer.SEMICOLON) {
		p.nextToken()
	}
}

// parseMember parses one class member, leaving curToken on its last token.
func (p *Parser) parseMember(owner *ast.ClassDecl) ast.Node {
	start := p.curToken.Pos
	mods := p.parseModifiers()

	switch {
	case p.curTokenIs(lexer.LBRACE):
		init := &ast.InitializerDecl{Static: mods.Has("static")}
		init.Start = start
		init.Body = p.parseBlock()
		init.Stop = p.curToken.End
		return init
	case p.curTokenIs(lexer.CLASS), p.curTokenIs(lexer.INTERFACE), p.curTokenIs(lexer.ENUM),
		p.curTokenIs(lexer.AT) && p.peekTokenIs(lexer.INTERFACE), p.isRecordStart():
		cd := p.parseClassDecl(mods)
		if cd != nil {
			cd.Start = start
		}
		return cd
	}

	var typeParams []string
	if p.curTokenIs(lexer.LT) {
		typeParams = p.parseTypeParams()
		p.nextToken()
	}

	// constructor (or compact record constructor)
	if p.curTokenIs(lexer.IDENT) && owner.Name != nil && p.curToken.Literal == owner.Name.Value &&
		(p.peekTokenIs(lexer.LPAREN) || p.peekTokenIs(lexer.LBRACE)) {
		md := &ast.MethodDecl{Modifiers: mods, TypeParams: typeParams}
		md.Start = start
		md.Name = &ast.Identifier{Span: ast.Span{Start: p.curToken.Pos, Stop: p.curToken.End}, Value: p.curToken.Literal}
		if p.peekTokenIs(lexer.LPAREN) {
			p.nextToken()
			md.Params = p.parseParams()
		}
		return p.finishMethod(md)
	}

	if !p.startsType() {
		p.addError("PARSE-0002", p.curToken, map[string]any{"Token": p.curToken.Literal})
		return nil
	}
	typ := p.parseType()
	if typ == nil || !p.expectPeek(lexer.IDENT) {
		return nil
	}
	name := &ast.Identifier{Span: ast.Span{Start: p.curToken.Pos, Stop: p.curToken.End}, Value: p.curToken.Literal}

	if p.peekTokenIs(lexer.LPAREN) {
		md := &ast.MethodDecl{Modifiers: mods, TypeParams: typeParams, Result: typ, Name: name}
		md.Start = start
		p.nextToken()
		md.Params = p.parseParams()
		for p.peekTokenIs(lexer.LBRACKET) {
			p.nextToken()
			p.expectPeek(lexer.RBRACKET)
			typ.Dims++
		}
		return p.finishMethod(md)
	}

	fd := &ast.FieldDecl{Modifiers: mods, Type: typ}
	fd.Start = start
	fd.Vars = p.parseDeclaratorsFrom(name)
	if fd.Vars == nil || !p.expectPeek(lexer.SEMICOLON) {
		return nil
	}
	fd.Stop = p.curToken.End
	return fd
}

// finishMethod parses throws and the body. curToken is on ')' or the name of a
// compact constructor.
func (p *Parser) finishMethod(md *ast.MethodDecl) ast.Node {
	if p.peekTokenIs(lexer.THROWS) {
		p.nextToken()
		md.Throws = p.parseTypeList()
	}
	switch {
	case p.peekTokenIs(lexer.LBRACE):
		p.nextToken()
		md.Body = p.parseBlock()
	case p.peekTokenIs(lexer.DEFAULT):
		p.nextToken()
		p.nextToken()
		p.parseExpression(LOWEST)
		if !p.expectPeek(lexer.SEMICOLON) {
			return nil
		}
	default:
		if !p.expectPeek(lexer.SEMICOLON) {
			return nil
		}
	}
	if p.failed() {
		return nil
	}
	md.Stop = p.curToken.End
	return md
}

// parseParams parses a formal parameter list from '(' to ')'.
func (p *Parser) parseParams() []*ast.Param {
	params := []*ast.Param{}
	if p.peekTokenIs(lexer.RPAREN) {
		p.nextToken()
		return params
	}
	for {
		p.nextToken()
		param := p.parseParam()
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
		return params
	}
}

// parseParam parses '[mods] Type [...] name[[]]'.
func (p *Parser) parseParam() *ast.Param {
	param := &ast.Param{}
	param.Start = p.curToken.Pos
	param.Modifiers = p.parseModifiers()
	param.Type = p.parseType()
	if param.Type == nil {
		return nil
	}
	if p.peekTokenIs(lexer.ELLIPSIS) {
		p.nextToken()
		param.Type.Varargs = true
		param.Type.Stop = p.curToken.End
	}
	// receiver parameter: 'Outer this'
	if p.peekTokenIs(lexer.THIS) {
		p.nextToken()
		param.Name = &ast.Identifier{Span: ast.Span{Start: p.curToken.Pos, Stop: p.curToken.End}, Value: "this"}
		param.Stop = p.curToken.End
		return param
	}
	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	param.Name = &ast.Identifier{Span: ast.Span{Start: p.curToken.Pos, Stop: p.curToken.End}, Value: p.curToken.Literal}
	for p.peekTokenIs(lexer.LBRACKET) {
		p.nextToken()
		if !p.expectPeek(lexer.RBRACKET) {
			return nil
		}
		param.Type.Dims++
	}
	param.Stop = p.curToken.End
	return param
}

// parseDeclaratorsFrom parses 'name [= init] (, name [= init])*' where the
// first name has already been read.
func (p *Parser) parseDeclaratorsFrom(first *ast.Identifier) []*ast.VarDeclarator {
	var vars []*ast.VarDeclarator
	name := first
	for {
		vd := &ast.VarDeclarator{Name: name}
		vd.Start = name.Start
		for p.peekTokenIs(lexer.LBRACKET) {
			p.nextToken()
			if !p.expectPeek(lexer.RBRACKET) {
				return nil
			}
			vd.Dims++
		}
		if p.peekTokenIs(lexer.ASSIGN) {
			p.nextToken()
			p.nextToken()
			vd.Init = p.parseVariableInitializer()
			if vd.Init == nil {
				return nil
			}
		}
		vd.Stop = p.curToken.End
		vars = append(vars, vd)
		if !p.peekTokenIs(lexer.COMMA) {
			return vars
		}
		p.nextToken()
		if !p.expectPeek(lexer.IDENT) {
			return nil
		}
		name = &ast.Identifier{Span: ast.Span{Start: p.curToken.Pos, Stop: p.curToken.End}, Value: p.curToken.Literal}
	}
}

func (p *Parser) parseVariableInitializer() ast.Expression {
	if p.curTokenIs(lexer.LBRACE) {
		return p.parseArrayInit()
	}
	return p.parseExpression(LOWEST)
}
