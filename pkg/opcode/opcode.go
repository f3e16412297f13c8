package opcode

import (
	"fmt"
)

type Opcode byte

const (
	// OpNone marks a line that carries no instruction
	OpNone Opcode = iota
	// OpPush pushes its literal argument onto the stack
	OpPush
	// OpPop discards the top element of the stack
	OpPop
	// OpDump prints every element of the stack, top first
	OpDump
	// OpAssert checks the top element against its literal argument
	OpAssert
	// OpAdd adds the top two elements of the stack
	OpAdd
	// OpSub subtracts the top element from the one below it
	OpSub
	// OpMul multiplies the top two elements of the stack
	OpMul
	// OpDiv divides the element below the top by the top
	OpDiv
	// OpMod takes the remainder of the element below the top by the top
	OpMod
	// OpPrint prints the int8 on top of the stack as a character
	OpPrint
	// OpExit ends the program
	OpExit
)

type Definition struct {
	Name string
	// NeedsValue is set for opcodes that take a (type, literal) argument.
	NeedsValue bool
	// Operands is the number of stack elements the opcode consumes or inspects.
	Operands int
}

var definitions = map[Opcode]*Definition{
	OpNone:   {"none", false, 0},
	OpPush:   {"push", true, 0},
	OpPop:    {"pop", false, 1},
	OpDump:   {"dump", false, 0},
	OpAssert: {"assert", true, 1},
	OpAdd:    {"add", false, 2},
	OpSub:    {"sub", false, 2},
	OpMul:    {"mul", false, 2},
	OpDiv:    {"div", false, 2},
	OpMod:    {"mod", false, 2},
	OpPrint:  {"print", false, 1},
	OpExit:   {"exit", false, 0},
}

var mnemonics = func() map[string]Opcode {
	m := make(map[string]Opcode, len(definitions))
	for op, def := range definitions {
		if op != OpNone {
			m[def.Name] = op
		}
	}
	return m
}()

func Get(op Opcode) (*Definition, error) {
	def, ok := definitions[op]
	if !ok {
		return nil, fmt.Errorf("opcode %d undefined", op)
	}
	return def, nil
}

// Lookup maps a lowercase mnemonic to its opcode. "none" is not a mnemonic.
func Lookup(name string) (Opcode, bool) {
	op, ok := mnemonics[name]
	return op, ok
}

// IsArithmetic reports whether op combines the top two stack elements.
func (op Opcode) IsArithmetic() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return true
	}
	return false
}

func (op Opcode) String() string {
	def, ok := definitions[op]
	if !ok {
		return fmt.Sprintf("Opcode(%d)", op)
	}
	return def.Name
}
