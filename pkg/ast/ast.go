package ast

import (
	"abstractvm/pkg/opcode"
	"abstractvm/pkg/operand"
	"fmt"
	"strings"
)

// Argument is the literal attached to push and assert.
type Argument struct {
	Type    operand.Type
	Literal string
}

func (a Argument) String() string {
	return fmt.Sprintf("%s(%s)", a.Type, a.Literal)
}

// Instruction is one parsed source line. Op is opcode.OpNone for blank and
// comment-only lines; Arg is nil unless the line carried a literal.
type Instruction struct {
	Line int
	Op   opcode.Opcode
	Arg  *Argument
}

// String renders the instruction back into source form.
func (ins Instruction) String() string {
	var out strings.Builder
	if ins.Op != opcode.OpNone {
		out.WriteString(ins.Op.String())
	}
	if ins.Arg != nil {
		if out.Len() > 0 {
			out.WriteByte(' ')
		}
		out.WriteString(ins.Arg.Type.String())
		out.WriteString(" (")
		out.WriteString(ins.Arg.Literal)
		out.WriteString(")")
	}
	return out.String()
}

// Program is a sequence of instructions in source order, with OpNone lines
// already removed.
type Program struct {
	Instructions []Instruction
}

func (p *Program) String() string {
	var out strings.Builder
	for _, ins := range p.Instructions {
		fmt.Fprintf(&out, "%4d  %s\n", ins.Line, ins.String())
	}
	return out.String()
}
