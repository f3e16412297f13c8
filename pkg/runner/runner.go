// Package runner drives a machine with the lines of a Source: it lexes and
// parses each line, skips lines without an instruction, and executes the
// rest in source order until exit, an error, or the end of input.
package runner

import (
	"abstractvm/pkg/input"
	"abstractvm/pkg/logging"
	"abstractvm/pkg/opcode"
	"abstractvm/pkg/parser"
	"abstractvm/pkg/vm"
	"errors"
	"fmt"
)

const DefaultBatchSize = 64

// ErrNoExit is returned when the input ends before an exit instruction ran.
var ErrNoExit = errors.New("program ended without an exit instruction")

type Options struct {
	// BatchSize is how many lines are requested from the source at a time.
	BatchSize int
	// Tolerant logs a failing line and carries on with the next one, keeping
	// the stack. Otherwise the first failure ends the run.
	Tolerant bool
	// OnError, if set, is called with every failing line, in both modes.
	OnError func(ln input.Line, err error)
}

// Result summarises a run.
type Result struct {
	Lines    int     // lines read from the source
	Executed int     // instructions that ran to completion
	Exited   bool    // an exit instruction ran
	Errors   []error // failures recovered in tolerant mode
}

// Failed reports whether the run should be treated as unsuccessful.
func (r *Result) Failed() bool {
	return !r.Exited || len(r.Errors) > 0
}

// ExecLine lexes, parses and executes one line. executed is false for blank
// and comment-only lines.
func ExecLine(machine *vm.VM, ln input.Line) (executed bool, err error) {
	ins, err := parser.ParseLine(ln.No, ln.Text)
	if err != nil {
		return false, err
	}
	if ins.Op == opcode.OpNone {
		return false, nil
	}
	if err := machine.Execute(ins); err != nil {
		return false, err
	}
	return true, nil
}

// Run feeds src to machine. In abort mode the first failure is returned as
// is. Reaching the end of input without exit returns ErrNoExit together with
// the result.
func Run(src input.Source, machine *vm.VM, opts Options) (*Result, error) {
	log := logging.Get("avm.runner")
	batch := opts.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	res := &Result{}
	for {
		ln := src.Next()
		if ln.No == 0 {
			n, err := src.Fetch(batch)
			if err != nil {
				return res, fmt.Errorf("runner: %w", err)
			}
			if n == 0 {
				break
			}
			log.Debugf("fetched %d lines", n)
			continue
		}
		res.Lines++

		executed, err := ExecLine(machine, ln)
		if err != nil {
			if opts.OnError != nil {
				opts.OnError(ln, err)
			}
			if !opts.Tolerant {
				return res, err
			}
			log.Errorf("%s", err)
			res.Errors = append(res.Errors, err)
			continue
		}
		if executed {
			res.Executed++
		}
		if machine.Halted() {
			res.Exited = true
			return res, nil
		}
	}

	return res, ErrNoExit
}
