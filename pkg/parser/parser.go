package parser

import (
	"abstractvm/pkg/ast"
	"abstractvm/pkg/fault"
	"abstractvm/pkg/lexer"
	"abstractvm/pkg/opcode"
	"abstractvm/pkg/operand"
	"abstractvm/pkg/token"
)

// Parser turns the tokens of one line into a single instruction. The
// opcode, the type and the parenthesised literal may appear in any order, but
// the type must come before the literal.
type Parser struct {
	tokens []token.Token
	pos    int

	curToken token.Token

	ins          ast.Instruction
	argType      operand.Type
	hasType      bool
	insideParens bool
}

func New(tokens []token.Token) *Parser {
	p := &Parser{tokens: tokens}
	if len(tokens) > 0 {
		p.ins.Line = tokens[0].Line
	}
	return p
}

func (p *Parser) nextToken() bool {
	if p.pos >= len(p.tokens) {
		return false
	}
	p.curToken = p.tokens[p.pos]
	p.pos++
	return true
}

// ParseInstruction parses a full token sequence, including its END token.
func ParseInstruction(tokens []token.Token) (ast.Instruction, error) {
	return New(tokens).Parse()
}

// ParseLine lexes and parses one numbered source line.
func ParseLine(line int, text string) (ast.Instruction, error) {
	tokens, err := lexer.Tokenize(line, text)
	if err != nil {
		return ast.Instruction{Line: line}, err
	}
	return ParseInstruction(tokens)
}

func (p *Parser) Parse() (ast.Instruction, error) {
	for p.nextToken() {
		var err error
		switch p.curToken.Type {
		case token.IDENT:
			err = p.parseIdentifier()
		case token.NUMBER:
			err = p.parseNumber()
		case token.LPAREN:
			p.insideParens = true
		case token.RPAREN:
			p.insideParens = false
		case token.END:
			return p.parseEnd()
		}
		if err != nil {
			return p.ins, err
		}
	}

	// Token sequences from the lexer always end with END.
	return p.ins, nil
}

func (p *Parser) parseIdentifier() error {
	tok := p.curToken
	if op, ok := opcode.Lookup(tok.Literal); ok {
		if p.ins.Op != opcode.OpNone {
			return p.errorf("Duplicate instruction/opcode: %s", tok.Literal)
		}
		p.ins.Op = op
		return nil
	}

	if typ, ok := operand.LookupType(tok.Literal); ok {
		if p.hasType {
			return p.errorf("Duplicate type specifier: %s", tok.Literal)
		}
		p.argType = typ
		p.hasType = true
		return nil
	}

	return p.errorf("Unknown identifier: %s", tok.Literal)
}

func (p *Parser) parseNumber() error {
	tok := p.curToken
	if !p.insideParens {
		return p.errorf("Unexpected number token outside parentheses: %s", tok.Literal)
	}
	if !p.hasType {
		return p.errorf("Missing type specifier for value: %s", tok.Literal)
	}
	if p.argType.IsFloat() && !isFloatLiteral(tok.Literal) {
		return p.errorf("Invalid float/double literal: %s", tok.Literal)
	}
	if p.ins.Arg != nil {
		return p.errorf("Duplicate value: %s", tok.Literal)
	}

	p.ins.Arg = &ast.Argument{Type: p.argType, Literal: tok.Literal}
	return nil
}

func (p *Parser) parseEnd() (ast.Instruction, error) {
	if p.insideParens {
		return p.ins, p.errorf("Unexpected end of line inside parentheses")
	}

	// A line without an opcode is a None instruction, whatever else it holds.
	if p.ins.Op == opcode.OpNone {
		return p.ins, nil
	}

	if def, err := opcode.Get(p.ins.Op); err == nil && def.NeedsValue && p.ins.Arg == nil {
		return p.ins, p.errorf("Missing value for %s", p.ins.Op)
	}
	return p.ins, nil
}

func (p *Parser) errorf(format string, args ...any) error {
	return fault.New(fault.SyntaxError, p.curToken.Line, p.curToken.Column, format, args...)
}

// isFloatLiteral matches -?[0-9]+\.[0-9]+ exactly.
func isFloatLiteral(s string) bool {
	i := 0
	if i < len(s) && s[i] == '-' {
		i++
	}

	start := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i == start || i >= len(s) || s[i] != '.' {
		return false
	}
	i++

	start = i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return i > start && i == len(s)
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
