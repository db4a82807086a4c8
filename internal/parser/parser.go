// SPDX-License-Identifier: Apache-2.0

// Package parser builds an ast.Program from a token stream using
// recursive descent for statements and precedence climbing for
// expressions.
package parser

import (
	"fmt"

	"flint/internal/ast"
	"flint/internal/errors"
	"flint/internal/lexer"
	"flint/token"
)

// Parser consumes a flat token slice and produces an ast.Program,
// accumulating diagnostics instead of panicking on the first bad token.
type Parser struct {
	filename string
	tokens   []token.Token
	pos      int
	errs     []errors.CompilerError
}

// ParseSource lexes and parses source in one call. Lexical errors are
// reported but parsing still proceeds over whatever tokens were produced,
// so a caller sees both lexical and syntax errors from a single pass.
func ParseSource(filename, source string) (*ast.Program, []errors.CompilerError) {
	toks, lexErrs := lexer.New(filename, source).ScanAll()
	toks = stripComments(toks)
	p := &Parser{filename: filename, tokens: toks}
	prog := p.parseProgram()
	return prog, append(lexErrs, p.errs...)
}

func stripComments(in []token.Token) []token.Token {
	out := in[:0:0]
	for _, t := range in {
		if t.Type != token.COMMENT {
			out = append(out, t)
		}
	}
	return out
}

func (p *Parser) cur() token.Token  { return p.tokens[p.pos] }
func (p *Parser) atEnd() bool       { return p.cur().Type == token.EOF }
func (p *Parser) advance() token.Token {
	t := p.tokens[p.pos]
	if !p.atEnd() {
		p.pos++
	}
	return t
}

func (p *Parser) check(t token.Type) bool { return p.cur().Type == t }

func (p *Parser) match(t token.Type) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(t token.Type, what string) token.Token {
	if p.check(t) {
		return p.advance()
	}
	tok := p.cur()
	p.errs = append(p.errs, errors.CompilerError{
		Level:   errors.Error,
		Code:    errors.ErrorUnexpectedToken,
		Message: fmt.Sprintf("expected %s, found %q", what, tok.Literal),
		Position: ast.Position{
			Filename: p.filename,
			Line:     tok.Line,
			Column:   tok.Column,
			Offset:   tok.Offset,
		},
		Length: max(1, len(tok.Literal)),
	})
	// Don't consume EOF so the caller's loop can terminate.
	if !p.atEnd() {
		p.advance()
	}
	return tok
}

func (p *Parser) posOf(t token.Token) ast.Position {
	return ast.Position{Filename: p.filename, Line: t.Line, Column: t.Column, Offset: t.Offset}
}

// synchronize skips tokens until a likely statement/function boundary, so
// one bad statement doesn't cascade into a wall of follow-on errors.
func (p *Parser) synchronize() {
	for !p.atEnd() {
		switch p.cur().Type {
		case token.SEMICOLON:
			p.advance()
			return
		case token.FUNCTION, token.IF, token.WHILE, token.RETURN, token.RBRACE:
			return
		}
		p.advance()
	}
}

func (p *Parser) parseProgram() *ast.Program {
	start := p.cur()
	prog := &ast.Program{Pos: p.posOf(start)}
	for !p.atEnd() {
		fn := p.parseFunction()
		if fn != nil {
			prog.Functions = append(prog.Functions, fn)
		} else {
			p.synchronize()
		}
	}
	return prog
}

func (p *Parser) parseFunction() *ast.Function {
	kw := p.expect(token.FUNCTION, "'fun'")
	name := p.expect(token.IDENT, "function name")
	p.expect(token.LPAREN, "'('")
	var params []*ast.FunctionParam
	if !p.check(token.RPAREN) {
		for {
			pt := p.expect(token.IDENT, "parameter name")
			params = append(params, &ast.FunctionParam{Name: pt.Literal, Pos: p.posOf(pt)})
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.expect(token.RPAREN, "')'")
	body := p.parseBlock()
	if body == nil {
		return nil
	}
	return &ast.Function{Name: name.Literal, Params: params, Body: body, Pos: p.posOf(kw)}
}

func (p *Parser) parseBlock() *ast.Block {
	lb := p.expect(token.LBRACE, "'{'")
	block := &ast.Block{Pos: p.posOf(lb)}
	for !p.check(token.RBRACE) && !p.atEnd() {
		stmt := p.parseStatement()
		if stmt != nil {
			block.Stmts = append(block.Stmts, stmt)
		} else {
			p.synchronize()
		}
	}
	p.expect(token.RBRACE, "'}'")
	return block
}

func (p *Parser) parseStatement() ast.Stmt {
	switch p.cur().Type {
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.RETURN:
		return p.parseReturn()
	case token.IDENT:
		if p.tokens[p.pos+1].Type == token.ASSIGN {
			return p.parseAssign()
		}
		return p.parseCallStatement()
	default:
		tok := p.cur()
		p.errs = append(p.errs, errors.CompilerError{
			Level:    errors.Error,
			Code:     errors.ErrorUnexpectedToken,
			Message:  fmt.Sprintf("unexpected token %q at start of statement", tok.Literal),
			Position: p.posOf(tok),
			Length:   max(1, len(tok.Literal)),
		})
		if !p.atEnd() {
			p.advance()
		}
		return nil
	}
}

func (p *Parser) parseAssign() ast.Stmt {
	name := p.advance()
	p.expect(token.ASSIGN, "'='")
	expr := p.parseExpr()
	p.expect(token.SEMICOLON, "';'")
	return &ast.AssignStmt{Name: name.Literal, Expr: expr, Pos: p.posOf(name)}
}

func (p *Parser) parseCallStatement() ast.Stmt {
	start := p.cur()
	call := p.parseCallExpr()
	p.expect(token.SEMICOLON, "';'")
	return &ast.CallStmt{Call: call, Pos: p.posOf(start)}
}

func (p *Parser) parseIf() ast.Stmt {
	kw := p.advance()
	p.expect(token.LPAREN, "'('")
	cond := p.parseExpr()
	p.expect(token.RPAREN, "')'")
	body := p.parseBlock()
	return &ast.IfStmt{Cond: cond, Body: body, Pos: p.posOf(kw)}
}

func (p *Parser) parseWhile() ast.Stmt {
	kw := p.advance()
	p.expect(token.LPAREN, "'('")
	cond := p.parseExpr()
	p.expect(token.RPAREN, "')'")
	body := p.parseBlock()
	return &ast.WhileStmt{Cond: cond, Body: body, Pos: p.posOf(kw)}
}

func (p *Parser) parseReturn() ast.Stmt {
	kw := p.advance()
	expr := p.parseExpr()
	p.expect(token.SEMICOLON, "';'")
	return &ast.ReturnStmt{Expr: expr, Pos: p.posOf(kw)}
}

func (p *Parser) parseCallExpr() *ast.CallExpr {
	name := p.expect(token.IDENT, "function name")
	p.expect(token.LPAREN, "'('")
	var args []ast.Expr
	if !p.check(token.RPAREN) {
		for {
			args = append(args, p.parseExpr())
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.expect(token.RPAREN, "')'")
	return &ast.CallExpr{Name: name.Literal, Args: args, Pos: p.posOf(name)}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
