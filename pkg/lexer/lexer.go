package lexer

import (
	"abstractvm/pkg/fault"
	"abstractvm/pkg/token"
	"strings"
	"unicode/utf8"
)

// Lexer scans a single source line. Everything from the first ';' on is a
// comment and is dropped before scanning starts.
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int
}

func New(line int, input string) *Lexer {
	if i := strings.IndexByte(input, ';'); i >= 0 {
		input = input[:i]
	}
	l := &Lexer{input: input, line: line}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition += 1
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) column() int {
	return l.position + 1
}

func (l *Lexer) atEnd() bool {
	return l.position >= len(l.input)
}

// NextToken returns the next token. Once END has been returned every further
// call returns END again.
func (l *Lexer) NextToken() (token.Token, error) {
	for !l.atEnd() && isSpace(l.ch) {
		l.readChar()
	}

	if l.atEnd() {
		return token.Token{Type: token.END, Literal: "", Line: l.line, Column: len(l.input) + 1}, nil
	}

	switch {
	case l.ch == '(':
		tok := l.newToken(token.LPAREN)
		l.readChar()
		return tok, nil
	case l.ch == ')':
		tok := l.newToken(token.RPAREN)
		l.readChar()
		return tok, nil
	case isLetter(l.ch):
		col := l.column()
		return token.Token{Type: token.IDENT, Literal: l.readIdentifier(), Line: l.line, Column: col}, nil
	case l.ch == '-' || isDigit(l.ch):
		return l.readNumber()
	}

	r, _ := utf8.DecodeRuneInString(l.input[l.position:])
	return token.Token{}, fault.New(fault.LexicalError, l.line, l.column(), "unexpected char %q", r)
}

// Tokenize scans the whole line. The result always ends with exactly one END
// token.
func Tokenize(line int, input string) ([]token.Token, error) {
	l := New(line, input)
	var out []token.Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		if tok.Type == token.END {
			return out, nil
		}
	}
}

func (l *Lexer) newToken(tokenType token.TokenType) token.Token {
	return token.Token{Type: tokenType, Literal: string(l.ch), Line: l.line, Column: l.column()}
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for !l.atEnd() && (isLetter(l.ch) || isDigit(l.ch)) {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readNumber reads -?digits(.digits)? and fails on a dangling '-' or '.'.
func (l *Lexer) readNumber() (token.Token, error) {
	position := l.position
	col := l.column()

	if l.ch == '-' {
		if !isDigit(l.peekChar()) {
			return token.Token{}, fault.New(fault.LexicalError, l.line, col, "expected digit after '-'")
		}
		l.readChar()
	}
	for !l.atEnd() && isDigit(l.ch) {
		l.readChar()
	}
	if !l.atEnd() && l.ch == '.' {
		l.readChar()
		if l.atEnd() || !isDigit(l.ch) {
			return token.Token{}, fault.New(fault.LexicalError, l.line, l.column(), "expected digit after '.'")
		}
		for !l.atEnd() && isDigit(l.ch) {
			l.readChar()
		}
	}

	return token.Token{Type: token.NUMBER, Literal: l.input[position:l.position], Line: l.line, Column: col}, nil
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isSpace(ch byte) bool {
	switch ch {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
