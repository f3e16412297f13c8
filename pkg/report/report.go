// Package report records the outcome of a run so it can be stored, printed
// later, or mailed.
package report

import (
	"abstractvm/pkg/fault"
	"abstractvm/pkg/runner"
	"abstractvm/pkg/vm"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Entry is one failure seen during the run.
type Entry struct {
	Kind    string `cbor:"1,keyasint"`
	Line    int    `cbor:"2,keyasint,omitempty"`
	Column  int    `cbor:"3,keyasint,omitempty"`
	Message string `cbor:"4,keyasint"`
}

// Value is one stack operand, in its canonical form.
type Value struct {
	Type string `cbor:"1,keyasint"`
	Text string `cbor:"2,keyasint"`
}

type Report struct {
	Source    string        `cbor:"1,keyasint"`
	StartedAt time.Time     `cbor:"2,keyasint"`
	Duration  time.Duration `cbor:"3,keyasint"`
	Lines     int           `cbor:"4,keyasint"`
	Executed  int           `cbor:"5,keyasint"`
	Exited    bool          `cbor:"6,keyasint"`
	Errors    []Entry       `cbor:"7,keyasint,omitempty"`
	// Stack is the final stack, bottom first.
	Stack []Value `cbor:"8,keyasint,omitempty"`
}

// New builds a report from a finished run. runErr is the error Run returned,
// if any; it is recorded after the errors recovered in tolerant mode.
func New(source string, startedAt time.Time, res *runner.Result, runErr error, machine *vm.VM) *Report {
	r := &Report{
		Source:    source,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
	}
	if res != nil {
		r.Lines = res.Lines
		r.Executed = res.Executed
		r.Exited = res.Exited
		for _, err := range res.Errors {
			r.Errors = append(r.Errors, entry(err))
		}
	}
	if runErr != nil {
		r.Errors = append(r.Errors, entry(runErr))
	}
	if machine != nil {
		for _, o := range machine.Stack() {
			r.Stack = append(r.Stack, Value{Type: o.Type().String(), Text: o.String()})
		}
	}
	return r
}

func entry(err error) Entry {
	var fe *fault.Error
	if errors.As(err, &fe) {
		return Entry{Kind: fe.Kind.String(), Line: fe.Line, Column: fe.Column, Message: fe.Msg}
	}
	return Entry{Kind: "Error", Message: err.Error()}
}

// Failed reports whether the run did not end cleanly on exit.
func (r *Report) Failed() bool {
	return !r.Exited || len(r.Errors) > 0
}

// Summary renders the report as plain text.
func (r *Report) Summary() string {
	var b strings.Builder
	status := "ok"
	if r.Failed() {
		status = "FAILED"
	}
	fmt.Fprintf(&b, "source:   %s\n", r.Source)
	fmt.Fprintf(&b, "started:  %s\n", r.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "duration: %s\n", r.Duration)
	fmt.Fprintf(&b, "status:   %s\n", status)
	fmt.Fprintf(&b, "lines:    %d read, %d executed, exit %t\n", r.Lines, r.Executed, r.Exited)

	if len(r.Errors) > 0 {
		fmt.Fprintf(&b, "errors:\n")
		for _, e := range r.Errors {
			switch {
			case e.Line > 0 && e.Column > 0:
				fmt.Fprintf(&b, "  %d:%d %s: %s\n", e.Line, e.Column, e.Kind, e.Message)
			case e.Line > 0:
				fmt.Fprintf(&b, "  %d %s: %s\n", e.Line, e.Kind, e.Message)
			default:
				fmt.Fprintf(&b, "  %s: %s\n", e.Kind, e.Message)
			}
		}
	}

	fmt.Fprintf(&b, "stack (%d, top first):\n", len(r.Stack))
	for i := len(r.Stack) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "  %s(%s)\n", r.Stack[i].Type, r.Stack[i].Text)
	}
	return b.String()
}
