// Package fault defines the closed set of failures raised while lexing,
// parsing and executing instructions.
package fault

import (
	"errors"
	"fmt"
)

// Kind identifies the class of a failure.
type Kind uint8

const (
	KindInvalid Kind = iota
	LexicalError
	SyntaxError
	InvalidValue
	Overflow
	Underflow
	DivisionByZero
	StackUnderflow
	AssertionFailed
)

func (k Kind) String() string {
	switch k {
	case LexicalError:
		return "LexicalError"
	case SyntaxError:
		return "SyntaxError"
	case InvalidValue:
		return "InvalidValue"
	case Overflow:
		return "Overflow"
	case Underflow:
		return "Underflow"
	case DivisionByZero:
		return "DivisionByZero"
	case StackUnderflow:
		return "StackUnderflow"
	case AssertionFailed:
		return "AssertionFailed"
	default:
		return "INVALID"
	}
}

// Error is a positioned failure. Line and Column are 1-based; zero means
// unknown.
type Error struct {
	Kind   Kind
	Line   int
	Column int
	Msg    string
}

func (e *Error) Error() string {
	switch {
	case e.Line > 0 && e.Column > 0:
		return fmt.Sprintf("line %d:%d: %s: %s", e.Line, e.Column, e.Kind, e.Msg)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Kind, e.Msg)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
}

// Is reports whether target is an *Error of the same kind, so the sentinels
// below can be used with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrLexical         = &Error{Kind: LexicalError, Msg: "lexical error"}
	ErrSyntax          = &Error{Kind: SyntaxError, Msg: "syntax error"}
	ErrInvalidValue    = &Error{Kind: InvalidValue, Msg: "invalid value"}
	ErrOverflow        = &Error{Kind: Overflow, Msg: "overflow"}
	ErrUnderflow       = &Error{Kind: Underflow, Msg: "underflow"}
	ErrDivisionByZero  = &Error{Kind: DivisionByZero, Msg: "division by zero"}
	ErrStackUnderflow  = &Error{Kind: StackUnderflow, Msg: "stack underflow"}
	ErrAssertionFailed = &Error{Kind: AssertionFailed, Msg: "assertion failed"}
)

// New returns a positioned error.
func New(kind Kind, line, col int, format string, args ...any) *Error {
	return &Error{Kind: kind, Line: line, Column: col, Msg: fmt.Sprintf(format, args...)}
}

// Errorf returns an error with no position yet; see AtLine.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// AtLine stamps line onto err when err is an *Error without a line.
// Other errors are returned unchanged.
func AtLine(err error, line int) error {
	var fe *Error
	if !errors.As(err, &fe) || fe.Line != 0 {
		return err
	}
	cp := *fe
	cp.Line = line
	return &cp
}

// KindOf returns the kind carried by err, or KindInvalid when err is not a
// fault.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInvalid
}
