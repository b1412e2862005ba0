// Package parser implements the minijs recursive-descent parser.
package parser

import (
	"errors"
	"fmt"

	"github.com/thomasrohde/minijs/pkg/ast"
	"github.com/thomasrohde/minijs/pkg/diagnostics"
	"github.com/thomasrohde/minijs/pkg/lexer"
)

type parser struct {
	tokens []lexer.Token
	pos    int
	diags  []diagnostics.Diagnostic
}

// Parse tokenizes source and parses it into a single root block.
func Parse(source, filename string) (*ast.Program, []diagnostics.Diagnostic) {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		var le *lexer.LexError
		if errors.As(err, &le) {
			return nil, []diagnostics.Diagnostic{le.Diag}
		}
		return nil, []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.ELex, err.Error(), nil, "")}
	}
	return ParseTokens(tokens)
}

// ParseTokens parses an already tokenized stream. The stream must end with TokEOF.
func ParseTokens(tokens []lexer.Token) (*ast.Program, []diagnostics.Diagnostic) {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != lexer.TokEOF {
		return nil, []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.EParse, "token stream is not terminated", nil, "")}
	}
	p := &parser{tokens: tokens}
	prog := p.parseProgram()
	if len(p.diags) > 0 {
		return nil, p.diags
	}
	return prog, nil
}

func (p *parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *parser) peek() lexer.TokenType {
	return p.current().Type
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) expect(typ lexer.TokenType) (lexer.Token, bool) {
	tok := p.current()
	if tok.Type != typ {
		p.addError(fmt.Sprintf("expected %s, got %s", typ, describe(tok)), &tok.Span)
		return tok, false
	}
	return p.advance(), true
}

func describe(tok lexer.Token) string {
	if tok.Type == lexer.TokEOF {
		return "end of file"
	}
	return fmt.Sprintf("'%s'", tok.Value)
}

func (p *parser) addError(msg string, span *ast.Span) {
	p.diags = append(p.diags, diagnostics.MakeDiag(diagnostics.EParse, msg, span, ""))
}

func (p *parser) spanFromTo(start, end ast.Span) ast.Span {
	return ast.Span{
		File:      start.File,
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   end.EndLine,
		EndCol:    end.EndCol,
	}
}

// --- Program ---

func (p *parser) parseProgram() *ast.Program {
	startSpan := p.current().Span
	endSpan := startSpan

	var stmts []ast.Stmt
	for p.peek() != lexer.TokEOF {
		stmt := p.parseStmt()
		if stmt == nil {
			return nil
		}
		stmts = append(stmts, stmt)
		endSpan = stmt.NodeSpan()
	}

	return &ast.Program{
		Span:       p.spanFromTo(startSpan, endSpan),
		Statements: stmts,
	}
}

// --- Statements ---

func (p *parser) parseStmt() ast.Stmt {
	switch p.peek() {
	case lexer.TokPrint, lexer.TokPrintln:
		if s := p.parsePrintStmt(); s != nil {
			return s
		}
	case lexer.TokIf:
		if s := p.parseIfStmt(); s != nil {
			return s
		}
	case lexer.TokWhile:
		if s := p.parseWhileStmt(); s != nil {
			return s
		}
	case lexer.TokFor:
		if s := p.parseForStmt(); s != nil {
			return s
		}
	case lexer.TokLBrace:
		if s := p.parseBlock(); s != nil {
			return s
		}
	case lexer.TokElse:
		tok := p.current()
		p.addError("'else' without a matching 'if'", &tok.Span)
	default:
		if s := p.parseExprStmt(); s != nil {
			return s
		}
	}
	return nil
}

func (p *parser) parsePrintStmt() *ast.PrintStmt {
	start := p.advance() // consume 'print' or 'println'
	expr := p.parseExpr()
	if expr == nil {
		return nil
	}
	semi, ok := p.expect(lexer.TokSemicolon)
	if !ok {
		return nil
	}
	return &ast.PrintStmt{
		Span:    p.spanFromTo(start.Span, semi.Span),
		Newline: start.Type == lexer.TokPrintln,
		Expr:    expr,
	}
}

func (p *parser) parseExprStmt() *ast.ExprStmt {
	expr := p.parseExpr()
	if expr == nil {
		return nil
	}
	semi, ok := p.expect(lexer.TokSemicolon)
	if !ok {
		return nil
	}
	return &ast.ExprStmt{
		Span: p.spanFromTo(expr.NodeSpan(), semi.Span),
		Expr: expr,
	}
}

func (p *parser) parseBlock() *ast.Block {
	start, ok := p.expect(lexer.TokLBrace)
	if !ok {
		return nil
	}

	stmts := []ast.Stmt{}
	for p.peek() != lexer.TokRBrace {
		if p.peek() == lexer.TokEOF {
			tok := p.current()
			p.addError("unterminated block, expected '}'", &tok.Span)
			return nil
		}
		stmt := p.parseStmt()
		if stmt == nil {
			return nil
		}
		stmts = append(stmts, stmt)
	}
	end := p.advance() // consume '}'

	return &ast.Block{
		Span:       p.spanFromTo(start.Span, end.Span),
		Statements: stmts,
	}
}

// parseCondition parses '(' expr ')'.
func (p *parser) parseCondition() ast.Expr {
	if _, ok := p.expect(lexer.TokLParen); !ok {
		return nil
	}
	cond := p.parseExpr()
	if cond == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokRParen); !ok {
		return nil
	}
	return cond
}

// parseBranchBody parses either a braced block or a single expression terminated by ';'.
func (p *parser) parseBranchBody(start ast.Span, cond ast.Expr) *ast.Branch {
	if p.peek() == lexer.TokLBrace {
		body := p.parseBlock()
		if body == nil {
			return nil
		}
		return &ast.Branch{Span: p.spanFromTo(start, body.Span), Cond: cond, Body: body}
	}
	expr := p.parseExpr()
	if expr == nil {
		return nil
	}
	semi, ok := p.expect(lexer.TokSemicolon)
	if !ok {
		return nil
	}
	return &ast.Branch{Span: p.spanFromTo(start, semi.Span), Cond: cond, Expr: expr}
}

func (p *parser) parseIfStmt() *ast.IfStmt {
	start := p.advance() // consume 'if'
	cond := p.parseCondition()
	if cond == nil {
		return nil
	}
	first := p.parseBranchBody(start.Span, cond)
	if first == nil {
		return nil
	}

	stmt := &ast.IfStmt{If: first}
	end := first.Span

	for p.peek() == lexer.TokElse {
		elseTok := p.advance() // consume 'else'
		if p.peek() == lexer.TokIf {
			p.advance() // consume 'if'
			c := p.parseCondition()
			if c == nil {
				return nil
			}
			br := p.parseBranchBody(elseTok.Span, c)
			if br == nil {
				return nil
			}
			stmt.ElseIfs = append(stmt.ElseIfs, br)
			end = br.Span
			continue
		}
		br := p.parseBranchBody(elseTok.Span, nil)
		if br == nil {
			return nil
		}
		stmt.Else = br
		end = br.Span
		break
	}

	stmt.Span = p.spanFromTo(start.Span, end)
	return stmt
}

func (p *parser) parseWhileStmt() *ast.WhileStmt {
	start := p.advance() // consume 'while'
	cond := p.parseCondition()
	if cond == nil {
		return nil
	}
	body := p.parseBlock()
	if body == nil {
		return nil
	}
	return &ast.WhileStmt{
		Span: p.spanFromTo(start.Span, body.Span),
		Cond: cond,
		Body: body,
	}
}

func (p *parser) parseForStmt() *ast.ForStmt {
	start := p.advance() // consume 'for'
	if _, ok := p.expect(lexer.TokLParen); !ok {
		return nil
	}

	var init ast.Expr
	if p.peek() != lexer.TokSemicolon {
		if init = p.parseExpr(); init == nil {
			return nil
		}
	}
	if _, ok := p.expect(lexer.TokSemicolon); !ok {
		return nil
	}

	cond := p.parseExpr()
	if cond == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokSemicolon); !ok {
		return nil
	}

	var post ast.Expr
	if p.peek() != lexer.TokRParen {
		if post = p.parseExpr(); post == nil {
			return nil
		}
	}
	if _, ok := p.expect(lexer.TokRParen); !ok {
		return nil
	}

	body := p.parseBlock()
	if body == nil {
		return nil
	}
	return &ast.ForStmt{
		Span: p.spanFromTo(start.Span, body.Span),
		Init: init,
		Cond: cond,
		Post: post,
		Body: body,
	}
}

// --- Expressions ---

func (p *parser) parseExpr() ast.Expr {
	return p.parseAssignment()
}

// parseAssignment is right-associative. Any expression is accepted on the left;
// the evaluator rejects targets that are not identifiers.
func (p *parser) parseAssignment() ast.Expr {
	left := p.parseLogicalOr()
	if left == nil {
		return nil
	}
	if p.peek() != lexer.TokEquals {
		return left
	}
	p.advance() // consume '='
	right := p.parseAssignment()
	if right == nil {
		return nil
	}
	return &ast.AssignExpr{
		Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
		Left:  left,
		Right: right,
	}
}

// binaryLevel describes one left-associative precedence level.
type binaryLevel struct {
	ops  map[lexer.TokenType]ast.BinaryOp
	next func(*parser) ast.Expr
}

func (p *parser) parseBinaryLevel(level binaryLevel) ast.Expr {
	left := level.next(p)
	if left == nil {
		return nil
	}
	for {
		op, ok := level.ops[p.peek()]
		if !ok {
			return left
		}
		p.advance()
		right := level.next(p)
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

func (p *parser) parseLogicalOr() ast.Expr {
	return p.parseBinaryLevel(binaryLevel{
		ops:  map[lexer.TokenType]ast.BinaryOp{lexer.TokOrOr: ast.OpOr},
		next: (*parser).parseLogicalAnd,
	})
}

func (p *parser) parseLogicalAnd() ast.Expr {
	return p.parseBinaryLevel(binaryLevel{
		ops:  map[lexer.TokenType]ast.BinaryOp{lexer.TokAndAnd: ast.OpAnd},
		next: (*parser).parseEquality,
	})
}

func (p *parser) parseEquality() ast.Expr {
	return p.parseBinaryLevel(binaryLevel{
		ops: map[lexer.TokenType]ast.BinaryOp{
			lexer.TokEqEq:   ast.OpEqEq,
			lexer.TokBangEq: ast.OpNeq,
		},
		next: (*parser).parseRelational,
	})
}

func (p *parser) parseRelational() ast.Expr {
	return p.parseBinaryLevel(binaryLevel{
		ops: map[lexer.TokenType]ast.BinaryOp{
			lexer.TokGt:   ast.OpGt,
			lexer.TokLt:   ast.OpLt,
			lexer.TokGtEq: ast.OpGtEq,
			lexer.TokLtEq: ast.OpLtEq,
		},
		next: (*parser).parseAdditive,
	})
}

func (p *parser) parseAdditive() ast.Expr {
	return p.parseBinaryLevel(binaryLevel{
		ops: map[lexer.TokenType]ast.BinaryOp{
			lexer.TokPlus:  ast.OpAdd,
			lexer.TokMinus: ast.OpSub,
		},
		next: (*parser).parseMultiplicative,
	})
}

func (p *parser) parseMultiplicative() ast.Expr {
	return p.parseBinaryLevel(binaryLevel{
		ops: map[lexer.TokenType]ast.BinaryOp{
			lexer.TokStar:  ast.OpMul,
			lexer.TokSlash: ast.OpDiv,
		},
		next: (*parser).parsePrimary,
	})
}

func (p *parser) parsePrimary() ast.Expr {
	switch p.peek() {
	case lexer.TokLParen:
		start := p.advance()
		inner := p.parseExpr()
		if inner == nil {
			return nil
		}
		end, ok := p.expect(lexer.TokRParen)
		if !ok {
			return nil
		}
		return &ast.ParenExpr{Span: p.spanFromTo(start.Span, end.Span), Inner: inner}

	case lexer.TokNumberLit:
		tok := p.advance()
		return &ast.NumberLiteral{Span: tok.Span, Text: tok.Value}

	case lexer.TokStringLit:
		tok := p.advance()
		return &ast.StringLiteral{Span: tok.Span, Text: tok.Value}

	case lexer.TokTrue, lexer.TokFalse:
		tok := p.advance()
		return &ast.BoolLiteral{Span: tok.Span, Text: tok.Value}

	case lexer.TokNull:
		tok := p.advance()
		return &ast.NullLiteral{Span: tok.Span}

	case lexer.TokIdent:
		tok := p.advance()
		return &ast.Identifier{Span: tok.Span, Name: tok.Value}

	default:
		tok := p.current()
		if tok.Type == lexer.TokEOF {
			p.addError("unexpected end of file, expected an expression", &tok.Span)
		} else {
			p.addError(fmt.Sprintf("unexpected token '%s'", tok.Value), &tok.Span)
		}
		return nil
	}
}
