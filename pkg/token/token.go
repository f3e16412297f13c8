package token

import "fmt"

type TokenType string

const (
	IDENT  = "IDENT"
	NUMBER = "NUMBER"
	LPAREN = "("
	RPAREN = ")"
	END    = "END"
)

type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

func (t Token) String() string {
	return fmt.Sprintf("Token(%s, %q, %d:%d)", t.Type, t.Literal, t.Line, t.Column)
}
