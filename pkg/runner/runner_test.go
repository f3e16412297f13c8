package runner

import (
	"abstractvm/pkg/fault"
	"abstractvm/pkg/input"
	"abstractvm/pkg/vm"
	"bytes"
	"errors"
	"strings"
	"testing"
)

func run(t *testing.T, program string, opts Options) (*Result, string, error) {
	t.Helper()
	var out bytes.Buffer
	machine := vm.New(&out)
	res, err := Run(input.NewReader(strings.NewReader(program), false), machine, opts)
	return res, out.String(), err
}

func TestRunToExit(t *testing.T) {
	program := `; sample program
push int32 (42)
push int32 (33)

add
push float (44.55)
mul
push double (42.42)
push int32 (42)
dump
pop
assert double (42.42)
exit
push int8 (1) ; never reached
`
	for _, batch := range []int{1, 3, 64} {
		res, out, err := run(t, program, Options{BatchSize: batch})
		if err != nil {
			t.Fatalf("batch %d - unexpected error: %v", batch, err)
		}
		if !res.Exited || res.Failed() {
			t.Fatalf("batch %d - expected a clean exit, got %+v", batch, res)
		}
		if res.Executed != 11 {
			t.Errorf("batch %d - executed wrong. expected=11, got=%d", batch, res.Executed)
		}
		if res.Lines != 13 {
			t.Errorf("batch %d - lines wrong. expected=13, got=%d", batch, res.Lines)
		}
		expected := "42\n42.42\n3341.25\n"
		if out != expected {
			t.Errorf("batch %d - output wrong. expected=%q, got=%q", batch, expected, out)
		}
	}
}

func TestRunWithoutExit(t *testing.T) {
	res, _, err := run(t, "push int8 (1)\ndump\n", Options{})
	if !errors.Is(err, ErrNoExit) {
		t.Fatalf("expected ErrNoExit, got=%v", err)
	}
	if res.Exited || !res.Failed() {
		t.Fatalf("result should report a failed run: %+v", res)
	}

	_, _, err = run(t, "", Options{})
	if !errors.Is(err, ErrNoExit) {
		t.Fatalf("empty program: expected ErrNoExit, got=%v", err)
	}
}

func TestRunAbortsOnFirstError(t *testing.T) {
	res, out, err := run(t, "push int8 (1)\npop\npop\ndump\nexit\n", Options{})
	var fe *fault.Error
	if !errors.As(err, &fe) {
		t.Fatalf("expected *fault.Error, got=%v", err)
	}
	if fe.Kind != fault.StackUnderflow || fe.Line != 3 {
		t.Fatalf("expected StackUnderflow at line 3, got %s at %d", fe.Kind, fe.Line)
	}
	if out != "" || res.Executed != 2 {
		t.Fatalf("later lines ran: out=%q executed=%d", out, res.Executed)
	}
}

func TestRunSyntaxErrorAborts(t *testing.T) {
	_, _, err := run(t, "push int8 (1)\npush pop\nexit\n", Options{})
	if !errors.Is(err, fault.ErrSyntax) {
		t.Fatalf("expected SyntaxError, got=%v", err)
	}
}

func TestRunTolerant(t *testing.T) {
	var seen []int
	opts := Options{
		Tolerant: true,
		OnError:  func(ln input.Line, err error) { seen = append(seen, ln.No) },
	}
	program := "push int8 (7)\nbogus\npush int8 (0)\ndiv\npop\ndump\nexit\n"

	res, out, err := run(t, program, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Exited {
		t.Fatalf("expected exit")
	}
	if len(res.Errors) != 2 || !res.Failed() {
		t.Fatalf("expected two recovered errors, got %v", res.Errors)
	}
	if len(seen) != 2 || seen[0] != 2 || seen[1] != 4 {
		t.Fatalf("OnError lines wrong: %v", seen)
	}
	if out != "7\n" {
		t.Fatalf("stack not preserved across errors. output=%q", out)
	}
}

func TestRunStdinSentinel(t *testing.T) {
	var out bytes.Buffer
	machine := vm.New(&out)
	src := input.NewReader(strings.NewReader("push int8 (72)\nprint\n;;\nexit\n"), true)

	_, err := Run(src, machine, Options{})
	if !errors.Is(err, ErrNoExit) {
		t.Fatalf("input should end at ;; before exit, got=%v", err)
	}
	if out.String() != "H\n" {
		t.Fatalf("output wrong. got=%q", out.String())
	}
}

func TestRunSkipsLinesWithoutOpcode(t *testing.T) {
	res, out, err := run(t, "push int8 (1)\nint8 (5)\nfloat ; typed comment\ndump\nexit\n", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Exited || res.Executed != 3 {
		t.Fatalf("result wrong: %+v", res)
	}
	if out != "1\n" {
		t.Fatalf("output wrong. expected=%q, got=%q", "1\n", out)
	}
}
