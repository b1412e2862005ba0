// Package lexer implements the minijs tokenizer.
package lexer

import (
	"fmt"
	"unicode/utf8"

	"github.com/thomasrohde/minijs/pkg/ast"
	"github.com/thomasrohde/minijs/pkg/diagnostics"
)

// TokenType identifies the type of a lexer token.
type TokenType int

const (
	// Keywords
	TokIf TokenType = iota
	TokElse
	TokWhile
	TokFor
	TokPrint
	TokPrintln
	TokTrue
	TokFalse
	TokNull

	// Literals
	TokNumberLit
	TokStringLit

	// Identifiers
	TokIdent

	// Punctuation
	TokLBrace    // {
	TokRBrace    // }
	TokLParen    // (
	TokRParen    // )
	TokSemicolon // ;
	TokEquals    // =

	// Comparison operators
	TokGtEq   // >=
	TokLtEq   // <=
	TokEqEq   // ==
	TokBangEq // !=
	TokGt     // >
	TokLt     // <

	// Boolean operators
	TokOrOr   // ||
	TokAndAnd // &&

	// Arithmetic operators
	TokPlus  // +
	TokMinus // -
	TokStar  // *
	TokSlash // /

	// Special
	TokEOF
)

var tokenNames = map[TokenType]string{
	TokIf: "if", TokElse: "else", TokWhile: "while", TokFor: "for",
	TokPrint: "print", TokPrintln: "println",
	TokTrue: "true", TokFalse: "false", TokNull: "null",
	TokNumberLit: "number", TokStringLit: "string", TokIdent: "identifier",
	TokLBrace: "'{'", TokRBrace: "'}'", TokLParen: "'('", TokRParen: "')'",
	TokSemicolon: "';'", TokEquals: "'='",
	TokGtEq: "'>='", TokLtEq: "'<='", TokEqEq: "'=='", TokBangEq: "'!='",
	TokGt: "'>'", TokLt: "'<'", TokOrOr: "'||'", TokAndAnd: "'&&'",
	TokPlus: "'+'", TokMinus: "'-'", TokStar: "'*'", TokSlash: "'/'",
	TokEOF: "end of file",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// IsKeyword reports whether t is a reserved word.
func (t TokenType) IsKeyword() bool {
	return t >= TokIf && t <= TokNull
}

// Token represents a single lexer token.
type Token struct {
	Type  TokenType
	Value string
	Span  ast.Span
}

var keywords = map[string]TokenType{
	"if":      TokIf,
	"else":    TokElse,
	"while":   TokWhile,
	"for":     TokFor,
	"print":   TokPrint,
	"println": TokPrintln,
	"true":    TokTrue,
	"false":   TokFalse,
	"null":    TokNull,
}

type scanner struct {
	source   string
	filename string
	pos      int
	line     int
	col      int
}

func newScanner(source, filename string) *scanner {
	return &scanner{
		source:   source,
		filename: filename,
		line:     1,
		col:      1,
	}
}

func (s *scanner) atEnd() bool {
	return s.pos >= len(s.source)
}

func (s *scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.pos]
}

func (s *scanner) peekAt(offset int) byte {
	p := s.pos + offset
	if p >= len(s.source) {
		return 0
	}
	return s.source[p]
}

func (s *scanner) advance() byte {
	ch := s.source[s.pos]
	s.pos++
	if ch == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return ch
}

func (s *scanner) span(startLine, startCol int) ast.Span {
	return ast.Span{
		File:      s.filename,
		StartLine: startLine,
		StartCol:  startCol,
		EndLine:   s.line,
		EndCol:    s.col,
	}
}

func (s *scanner) skipWhitespaceAndComments() error {
	for !s.atEnd() {
		ch := s.peek()
		switch {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			s.advance()
		case ch == '/' && s.peekAt(1) == '/':
			for !s.atEnd() && s.peek() != '\n' {
				s.advance()
			}
		case ch == '/' && s.peekAt(1) == '*':
			startLine, startCol := s.line, s.col
			s.advance()
			s.advance()
			for {
				if s.atEnd() {
					return s.lexError(startLine, startCol, "unterminated block comment")
				}
				if s.peek() == '*' && s.peekAt(1) == '/' {
					s.advance()
					s.advance()
					break
				}
				s.advance()
			}
		default:
			return nil
		}
	}
	return nil
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isAlphaNumeric(ch byte) bool {
	return isAlpha(ch) || isDigit(ch)
}

// scanString keeps the delimiters in Value; stripping them is the value model's job.
func (s *scanner) scanString() (Token, error) {
	startLine, startCol := s.line, s.col
	startPos := s.pos
	s.advance() // consume opening "

	for !s.atEnd() {
		ch := s.peek()
		if ch == '"' {
			s.advance()
			return Token{
				Type:  TokStringLit,
				Value: s.source[startPos:s.pos],
				Span:  s.span(startLine, startCol),
			}, nil
		}
		if ch == '\n' {
			return Token{}, s.lexError(startLine, startCol, "unterminated string literal")
		}
		r, size := utf8.DecodeRuneInString(s.source[s.pos:])
		if r == utf8.RuneError && size == 1 {
			return Token{}, s.lexError(startLine, startCol, "invalid UTF-8 character in string")
		}
		for i := 0; i < size; i++ {
			s.advance()
		}
	}
	return Token{}, s.lexError(startLine, startCol, "unterminated string literal")
}

func (s *scanner) scanNumber() Token {
	startLine, startCol := s.line, s.col
	startPos := s.pos

	for !s.atEnd() && isDigit(s.peek()) {
		s.advance()
	}

	// Optional fractional part; "1." is left as "1" followed by an error on '.'
	if s.peek() == '.' && isDigit(s.peekAt(1)) {
		s.advance()
		for !s.atEnd() && isDigit(s.peek()) {
			s.advance()
		}
	}

	return Token{
		Type:  TokNumberLit,
		Value: s.source[startPos:s.pos],
		Span:  s.span(startLine, startCol),
	}
}

func (s *scanner) scanIdentOrKeyword() Token {
	startLine, startCol := s.line, s.col
	startPos := s.pos

	for !s.atEnd() && isAlphaNumeric(s.peek()) {
		s.advance()
	}

	text := s.source[startPos:s.pos]
	typ := TokIdent
	if kw, ok := keywords[text]; ok {
		typ = kw
	}
	return Token{
		Type:  typ,
		Value: text,
		Span:  s.span(startLine, startCol),
	}
}

func (s *scanner) lexError(line, col int, msg string) error {
	diag := diagnostics.MakeDiag(
		diagnostics.ELex,
		msg,
		&ast.Span{File: s.filename, StartLine: line, StartCol: col, EndLine: line, EndCol: col + 1},
		"",
	)
	return &LexError{Diag: diag}
}

// LexError wraps a diagnostic for lex errors.
type LexError struct {
	Diag diagnostics.Diagnostic
}

func (e *LexError) Error() string {
	return e.Diag.Message
}

// twoChar maps the first byte of a two-byte operator to its second byte and token.
var twoChar = map[byte]struct {
	next byte
	typ  TokenType
}{
	'=': {'=', TokEqEq},
	'!': {'=', TokBangEq},
	'>': {'=', TokGtEq},
	'<': {'=', TokLtEq},
	'|': {'|', TokOrOr},
	'&': {'&', TokAndAnd},
}

var oneChar = map[byte]TokenType{
	'{': TokLBrace,
	'}': TokRBrace,
	'(': TokLParen,
	')': TokRParen,
	';': TokSemicolon,
	'+': TokPlus,
	'-': TokMinus,
	'*': TokStar,
	'/': TokSlash,
	'=': TokEquals,
	'>': TokGt,
	'<': TokLt,
}

func (s *scanner) nextToken() (Token, error) {
	if err := s.skipWhitespaceAndComments(); err != nil {
		return Token{}, err
	}

	if s.atEnd() {
		return Token{
			Type: TokEOF,
			Span: s.span(s.line, s.col),
		}, nil
	}

	ch := s.peek()
	startLine, startCol := s.line, s.col

	if tc, ok := twoChar[ch]; ok && s.peekAt(1) == tc.next {
		s.advance()
		s.advance()
		return Token{Type: tc.typ, Value: s.source[s.pos-2 : s.pos], Span: s.span(startLine, startCol)}, nil
	}
	if typ, ok := oneChar[ch]; ok {
		s.advance()
		return Token{Type: typ, Value: string(ch), Span: s.span(startLine, startCol)}, nil
	}

	switch {
	case isDigit(ch):
		return s.scanNumber(), nil
	case ch == '"':
		return s.scanString()
	case isAlpha(ch):
		return s.scanIdentOrKeyword(), nil
	}

	s.advance()
	return Token{}, s.lexError(startLine, startCol, fmt.Sprintf("unexpected character '%c'", ch))
}

// Tokenize breaks source code into a slice of tokens terminated by TokEOF.
func Tokenize(source, filename string) ([]Token, error) {
	s := newScanner(source, filename)
	var tokens []Token

	for {
		tok, err := s.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokEOF {
			break
		}
	}

	return tokens, nil
}
