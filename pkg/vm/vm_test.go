package vm

import (
	"abstractvm/pkg/ast"
	"abstractvm/pkg/fault"
	"abstractvm/pkg/opcode"
	"abstractvm/pkg/operand"
	"abstractvm/pkg/parser"
	"bytes"
	"errors"
	"testing"
)

type vmTestCase struct {
	input         []string
	expectedStack []string // bottom first, as type(text)
	expectedOut   string
}

func execLines(t *testing.T, vm *VM, lines []string) error {
	t.Helper()
	for i, line := range lines {
		ins, err := parser.ParseLine(i+1, line)
		if err != nil {
			t.Fatalf("parse error on %q: %v", line, err)
		}
		if ins.Op == opcode.OpNone {
			continue
		}
		if err := vm.Execute(ins); err != nil {
			return err
		}
	}
	return nil
}

func runVmTests(t *testing.T, tests []vmTestCase) {
	t.Helper()
	for i, tt := range tests {
		var out bytes.Buffer
		vm := New(&out)
		if err := execLines(t, vm, tt.input); err != nil {
			t.Fatalf("tests[%d] - unexpected error: %v", i, err)
		}

		stack := vm.Stack()
		if len(stack) != len(tt.expectedStack) {
			t.Fatalf("tests[%d] - stack depth wrong. expected=%d, got=%d", i, len(tt.expectedStack), len(stack))
		}
		for j, o := range stack {
			if o.Inspect() != tt.expectedStack[j] {
				t.Errorf("tests[%d] - stack[%d] wrong. expected=%s, got=%s", i, j, tt.expectedStack[j], o.Inspect())
			}
		}
		if out.String() != tt.expectedOut {
			t.Errorf("tests[%d] - output wrong. expected=%q, got=%q", i, tt.expectedOut, out.String())
		}
	}
}

func TestArithmetic(t *testing.T) {
	tests := []vmTestCase{
		{[]string{"push int8 (5)", "push int8 (3)", "sub"}, []string{"int8(2)"}, ""},
		{[]string{"push int32 (10)", "push int32 (4)", "div"}, []string{"int32(2)"}, ""},
		{[]string{"push int32 (10)", "push float (4.0)", "div"}, []string{"float(2.5)"}, ""},
		{[]string{"push int16 (7)", "push int8 (3)", "mod"}, []string{"int16(1)"}, ""},
		{[]string{"push double (1.5)", "push int8 (2)", "mul"}, []string{"double(3)"}, ""},
		{[]string{"push int8 (1)", "push int8 (2)", "push int8 (3)", "add", "add"}, []string{"int8(6)"}, ""},
		{[]string{"push int32 (1)", "push int32 (2)", "pop"}, []string{"int32(1)"}, ""},
	}

	runVmTests(t, tests)
}

func TestDumpAndPrint(t *testing.T) {
	tests := []vmTestCase{
		{
			[]string{"push int32 (42)", "push float (3.5)", "push int8 (-1)", "dump"},
			[]string{"int32(42)", "float(3.5)", "int8(-1)"},
			"-1\n3.5\n42\n",
		},
		{[]string{"dump"}, nil, ""},
		{[]string{"push int8 (65)", "print"}, []string{"int8(65)"}, "A\n"},
		{[]string{"push int8 (104)", "print", "pop", "push int8 (105)", "print"}, []string{"int8(105)"}, "h\ni\n"},
	}

	runVmTests(t, tests)
}

func TestAssert(t *testing.T) {
	vm := New(nil)
	if err := execLines(t, vm, []string{"push int32 (42)", "assert int32 (42)"}); err != nil {
		t.Fatalf("assert should pass: %v", err)
	}
	if vm.Depth() != 1 {
		t.Fatalf("assert changed the stack. depth=%d", vm.Depth())
	}

	tests := []string{"assert int32 (43)", "assert int16 (42)", "assert double (42.0)"}
	for i, line := range tests {
		err := execLines(t, vm, []string{line})
		if !errors.Is(err, fault.ErrAssertionFailed) {
			t.Errorf("tests[%d] - %q expected AssertionFailed, got=%v", i, line, err)
		}
	}
	if vm.Depth() != 1 {
		t.Fatalf("failed asserts changed the stack. depth=%d", vm.Depth())
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		input []string
		kind  fault.Kind
		line  int
	}{
		{[]string{"pop"}, fault.StackUnderflow, 1},
		{[]string{"add"}, fault.StackUnderflow, 1},
		{[]string{"push int8 (1)", "sub"}, fault.StackUnderflow, 2},
		{[]string{"push int8 (1)", "mul"}, fault.StackUnderflow, 2},
		{[]string{"push int8 (1)", "div"}, fault.StackUnderflow, 2},
		{[]string{"push int8 (1)", "mod"}, fault.StackUnderflow, 2},
		{[]string{"assert int8 (1)"}, fault.StackUnderflow, 1},
		{[]string{"print"}, fault.StackUnderflow, 1},
		{[]string{"push double (65.0)", "print"}, fault.AssertionFailed, 2},
		{[]string{"push int16 (65)", "print"}, fault.AssertionFailed, 2},
		{[]string{"push float (3.14)", "push float (0.0)", "div"}, fault.DivisionByZero, 3},
		{[]string{"push int32 (3)", "push int8 (0)", "mod"}, fault.DivisionByZero, 3},
		{[]string{"push int8 (128)"}, fault.Overflow, 1},
		{[]string{"push int8 (-129)"}, fault.Underflow, 1},
		{[]string{"push int8 (100)", "push int8 (100)", "add"}, fault.Overflow, 3},
	}

	for i, tt := range tests {
		vm := New(nil)
		err := execLines(t, vm, tt.input)
		var fe *fault.Error
		if !errors.As(err, &fe) {
			t.Fatalf("tests[%d] - expected *fault.Error, got=%v", i, err)
		}
		if fe.Kind != tt.kind || fe.Line != tt.line {
			t.Errorf("tests[%d] - expected %s at line %d, got %s at line %d",
				i, tt.kind, tt.line, fe.Kind, fe.Line)
		}
	}
}

func TestFailedOperationKeepsStack(t *testing.T) {
	vm := New(nil)
	err := execLines(t, vm, []string{"push int32 (7)", "push int32 (0)", "div"})
	if !errors.Is(err, fault.ErrDivisionByZero) {
		t.Fatalf("expected DivisionByZero, got=%v", err)
	}
	stack := vm.Stack()
	if len(stack) != 2 || stack[0].String() != "7" || stack[1].String() != "0" {
		t.Fatalf("stack changed after failed div: %v", stack)
	}
}

func TestExit(t *testing.T) {
	vm := New(nil)
	if err := execLines(t, vm, []string{"push int8 (1)", "exit"}); err != nil {
		t.Fatal(err)
	}
	if !vm.Halted() {
		t.Fatalf("machine should be halted after exit")
	}
	if err := vm.Execute(ast.Instruction{Line: 3, Op: opcode.OpPop}); !errors.Is(err, ErrHalted) {
		t.Fatalf("expected ErrHalted, got=%v", err)
	}
	if vm.Depth() != 1 {
		t.Fatalf("pop ran after exit")
	}
}

func TestMissingArgument(t *testing.T) {
	vm := New(nil)
	err := vm.Execute(ast.Instruction{Line: 4, Op: opcode.OpPush})
	if !errors.Is(err, fault.ErrSyntax) {
		t.Fatalf("expected SyntaxError, got=%v", err)
	}
}

func TestNoneIsIgnored(t *testing.T) {
	vm := New(nil)
	if err := vm.Execute(ast.Instruction{Line: 1}); err != nil {
		t.Fatalf("OpNone should be a no-op, got=%v", err)
	}
}

func TestResetAndPool(t *testing.T) {
	var out bytes.Buffer
	vm := Get(&out)
	if err := execLines(t, vm, []string{"push int8 (33)", "print", "exit"}); err != nil {
		t.Fatal(err)
	}
	if out.String() != "!\n" {
		t.Fatalf("output wrong. got=%q", out.String())
	}
	Put(vm)

	again := Get(nil)
	defer Put(again)
	if again.Depth() != 0 || again.Halted() {
		t.Fatalf("pooled machine not reset: depth=%d halted=%t", again.Depth(), again.Halted())
	}
	again.push(operand.MustNew(operand.Int8, "1"))
	if top, ok := again.StackTop(); !ok || top.String() != "1" {
		t.Fatalf("StackTop wrong: %v %t", top, ok)
	}
}
