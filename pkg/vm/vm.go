package vm

import (
	"abstractvm/pkg/ast"
	"abstractvm/pkg/fault"
	"abstractvm/pkg/logging"
	"abstractvm/pkg/opcode"
	"abstractvm/pkg/operand"
	"errors"
	"fmt"
	"io"

	"github.com/tliron/commonlog"
)

const initialStackSize = 64

var ErrHalted = errors.New("vm: machine halted")

// VM executes one instruction at a time against the operand stack it owns.
// The top of the stack is stack[len(stack)-1].
type VM struct {
	stack  []operand.Operand
	out    io.Writer
	log    commonlog.Logger
	halted bool
}

// New returns an empty machine writing dump and print output to out.
func New(out io.Writer) *VM {
	if out == nil {
		out = io.Discard
	}
	return &VM{
		stack: make([]operand.Operand, 0, initialStackSize),
		out:   out,
		log:   logging.Get("avm.vm"),
	}
}

// Halted reports whether an exit instruction has been executed.
func (vm *VM) Halted() bool { return vm.halted }

// Depth returns the number of operands on the stack.
func (vm *VM) Depth() int { return len(vm.stack) }

// StackTop returns the top operand, if any.
func (vm *VM) StackTop() (operand.Operand, bool) {
	if len(vm.stack) == 0 {
		return operand.Operand{}, false
	}
	return vm.stack[len(vm.stack)-1], true
}

// Stack returns a copy of the stack, bottom first.
func (vm *VM) Stack() []operand.Operand {
	out := make([]operand.Operand, len(vm.stack))
	copy(out, vm.stack)
	return out
}

// Execute runs a single instruction. A failing instruction leaves the stack
// as it was and returns a *fault.Error stamped with the instruction's line.
func (vm *VM) Execute(ins ast.Instruction) error {
	if vm.halted {
		return ErrHalted
	}
	vm.log.Debugf("[VM] %s (line %d)", ins.Op, ins.Line)

	var err error
	switch ins.Op {
	case opcode.OpNone:
		return nil
	case opcode.OpPush:
		err = vm.executePush(ins)
	case opcode.OpPop:
		err = vm.executePop()
	case opcode.OpDump:
		err = vm.executeDump()
	case opcode.OpAssert:
		err = vm.executeAssert(ins)
	case opcode.OpAdd, opcode.OpSub, opcode.OpMul, opcode.OpDiv, opcode.OpMod:
		err = vm.executeBinaryOperation(ins.Op)
	case opcode.OpPrint:
		err = vm.executePrint()
	case opcode.OpExit:
		vm.halted = true
	default:
		return fmt.Errorf("vm: unknown opcode %s at line %d", ins.Op, ins.Line)
	}

	if err != nil {
		return fault.AtLine(err, ins.Line)
	}
	return nil
}

func (vm *VM) push(o operand.Operand) {
	vm.stack = append(vm.stack, o)
}

func (vm *VM) pop() operand.Operand {
	o := vm.stack[len(vm.stack)-1]
	vm.stack[len(vm.stack)-1] = operand.Operand{}
	vm.stack = vm.stack[:len(vm.stack)-1]
	return o
}

func (vm *VM) argument(ins ast.Instruction) (operand.Operand, error) {
	if ins.Arg == nil {
		return operand.Operand{}, fault.Errorf(fault.SyntaxError, "Missing value for %s", ins.Op)
	}
	return operand.New(ins.Arg.Type, ins.Arg.Literal)
}

func (vm *VM) executePush(ins ast.Instruction) error {
	o, err := vm.argument(ins)
	if err != nil {
		return err
	}
	vm.push(o)
	return nil
}

func (vm *VM) executePop() error {
	if len(vm.stack) == 0 {
		return fault.Errorf(fault.StackUnderflow, "Pop on empty stack")
	}
	vm.pop()
	return nil
}

func (vm *VM) executeDump() error {
	for i := len(vm.stack) - 1; i >= 0; i-- {
		if _, err := fmt.Fprintln(vm.out, vm.stack[i].String()); err != nil {
			return fmt.Errorf("vm: write output: %w", err)
		}
	}
	return nil
}

func (vm *VM) executeAssert(ins ast.Instruction) error {
	top, ok := vm.StackTop()
	if !ok {
		return fault.Errorf(fault.StackUnderflow, "Assert on empty stack")
	}
	expected, err := vm.argument(ins)
	if err != nil {
		return err
	}
	if !top.Equal(expected) {
		return fault.Errorf(fault.AssertionFailed, "Assertion failed: expected %s, found %s",
			expected.Inspect(), top.Inspect())
	}
	return nil
}

var operators = map[opcode.Opcode]operand.Operator{
	opcode.OpAdd: operand.OpAdd,
	opcode.OpSub: operand.OpSub,
	opcode.OpMul: operand.OpMul,
	opcode.OpDiv: operand.OpDiv,
	opcode.OpMod: operand.OpMod,
}

// executeBinaryOperation computes second-from-top OP top. Both operands stay
// on the stack until the result exists.
func (vm *VM) executeBinaryOperation(op opcode.Opcode) error {
	if len(vm.stack) < 2 {
		return fault.Errorf(fault.StackUnderflow, "Not enough values on stack for %s", op)
	}

	right := vm.stack[len(vm.stack)-1]
	left := vm.stack[len(vm.stack)-2]

	result, err := left.Operate(right, operators[op])
	if err != nil {
		return err
	}
	vm.log.Debugf("[VM] %s %s %s = %s", left.Inspect(), operators[op], right.Inspect(), result.Inspect())

	vm.pop()
	vm.pop()
	vm.push(result)
	return nil
}

func (vm *VM) executePrint() error {
	top, ok := vm.StackTop()
	if !ok {
		return fault.Errorf(fault.StackUnderflow, "Print on empty stack")
	}
	if top.Type() != operand.Int8 {
		return fault.Errorf(fault.AssertionFailed, "Print instruction requires top of stack to be int8, found %s", top.Type())
	}
	if _, err := vm.out.Write([]byte{byte(int8(top.Int())), '\n'}); err != nil {
		return fmt.Errorf("vm: write output: %w", err)
	}
	return nil
}
