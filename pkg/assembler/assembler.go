// Package assembler reads a whole source without running it. It collects
// every diagnostic instead of stopping at the first, which is what check and
// inspect need.
package assembler

import (
	"abstractvm/pkg/ast"
	"abstractvm/pkg/fault"
	"abstractvm/pkg/input"
	"abstractvm/pkg/opcode"
	"abstractvm/pkg/operand"
	"abstractvm/pkg/parser"
	"errors"
	"fmt"
)

// Program is an assembled source: the instructions in order plus the raw
// text of every line read, kept for rendering diagnostics.
type Program struct {
	ast.Program
	text []string
}

// Text returns source line no, or "" when it was never read.
func (p *Program) Text(no int) string {
	if no < 1 || no > len(p.text) {
		return ""
	}
	return p.text[no-1]
}

// Lines is the number of source lines read.
func (p *Program) Lines() int { return len(p.text) }

type Assembler struct {
	prog  *Program
	diags []error
	depth int // statically known stack depth
	exit  bool
}

func New() *Assembler {
	return &Assembler{prog: &Program{}}
}

// Assemble parses src to the end, or to the first exit instruction. Lines
// after exit are never run, so they are not checked either.
func Assemble(src input.Source, batch int) (*Program, []error) {
	a := New()
	if err := a.consume(src, batch); err != nil {
		a.diags = append(a.diags, err)
	}
	if !a.exit {
		a.diags = append(a.diags, fault.New(fault.SyntaxError, a.prog.Lines(), 0,
			"Program does not end with an exit instruction"))
	}
	return a.prog, a.diags
}

func (a *Assembler) consume(src input.Source, batch int) error {
	for !a.exit {
		ln := src.Next()
		if ln.No == 0 {
			n, err := src.Fetch(batch)
			if err != nil {
				return err
			}
			if n == 0 {
				return nil
			}
			continue
		}
		a.Add(ln)
	}
	return nil
}

// Add assembles one line and records any diagnostic it produces.
func (a *Assembler) Add(ln input.Line) {
	for len(a.prog.text) < ln.No-1 {
		a.prog.text = append(a.prog.text, "")
	}
	a.prog.text = append(a.prog.text, ln.Text)

	ins, err := parser.ParseLine(ln.No, ln.Text)
	if err != nil {
		a.diags = append(a.diags, err)
		return
	}
	if ins.Op == opcode.OpNone {
		return
	}
	if err := a.check(ins); err != nil {
		a.diags = append(a.diags, fault.AtLine(err, ins.Line))
		return
	}
	a.prog.Instructions = append(a.prog.Instructions, ins)
}

// check validates literals and tracks the stack depth the instruction needs.
// A failing instruction leaves the depth untouched, as it would at run time.
func (a *Assembler) check(ins ast.Instruction) error {
	def, err := opcode.Get(ins.Op)
	if err != nil {
		return err
	}
	if def.NeedsValue {
		if ins.Arg == nil {
			return fault.Errorf(fault.SyntaxError, "Missing value for %s", ins.Op)
		}
		if _, err := operand.New(ins.Arg.Type, ins.Arg.Literal); err != nil {
			return err
		}
	}
	if a.depth < def.Operands {
		return fault.Errorf(fault.StackUnderflow, "%s needs %d value(s), stack holds %d",
			ins.Op, def.Operands, a.depth)
	}

	switch {
	case ins.Op == opcode.OpPush:
		a.depth++
	case ins.Op == opcode.OpPop:
		a.depth--
	case ins.Op.IsArithmetic():
		a.depth--
	case ins.Op == opcode.OpExit:
		a.exit = true
	}
	return nil
}

// Stats summarises what a program contains.
type Stats struct {
	Lines        int
	Instructions int
	Opcodes      map[opcode.Opcode]int
	Types        map[operand.Type]int
	MaxDepth     int
}

func (p *Program) Stats() Stats {
	s := Stats{
		Lines:        p.Lines(),
		Instructions: len(p.Instructions),
		Opcodes:      make(map[opcode.Opcode]int),
		Types:        make(map[operand.Type]int),
	}
	depth := 0
	for _, ins := range p.Instructions {
		s.Opcodes[ins.Op]++
		if ins.Arg != nil {
			s.Types[ins.Arg.Type]++
		}
		switch {
		case ins.Op == opcode.OpPush:
			depth++
		case ins.Op == opcode.OpPop, ins.Op.IsArithmetic():
			depth--
		}
		if depth > s.MaxDepth {
			s.MaxDepth = depth
		}
	}
	return s
}

// Diagnose renders each diagnostic against the program's source.
func Diagnose(p *Program, diags []error) string {
	var out []byte
	for _, err := range diags {
		line := 0
		var fe *fault.Error
		if errors.As(err, &fe) {
			line = fe.Line
		}
		out = fmt.Appendf(out, "%s\n", fault.Render(err, p.Text(line)))
	}
	return string(out)
}
