package operand

import (
	"abstractvm/pkg/fault"
	"fmt"
	"math"
	"strconv"
)

// Operand is an immutable typed number. Its canonical text is computed once
// at construction; assertions and cross-type arithmetic read that text.
type Operand struct {
	typ  Type
	i    int64   // payload for integer types
	f    float64 // payload for float and double; float payloads are exact float32 values
	text string
}

func (o Operand) Type() Type      { return o.typ }
func (o Operand) Precision() int  { return o.typ.Precision() }
func (o Operand) String() string  { return o.text }
func (o Operand) Inspect() string { return o.typ.String() + "(" + o.text + ")" }

// Int returns the value as int64. Floating values are truncated toward zero.
func (o Operand) Int() int64 {
	if o.typ.IsFloat() {
		return int64(o.f)
	}
	return o.i
}

// Float returns the value as float64.
func (o Operand) Float() float64 {
	if o.typ.IsFloat() {
		return o.f
	}
	return float64(o.i)
}

// Equal reports whether o and other have the same type and canonical text.
func (o Operand) Equal(other Operand) bool {
	return o.typ == other.typ && o.text == other.text
}

// Operator is one of the five binary arithmetic operators.
type Operator byte

const (
	OpAdd Operator = '+'
	OpSub Operator = '-'
	OpMul Operator = '*'
	OpDiv Operator = '/'
	OpMod Operator = '%'
)

func (op Operator) String() string { return string(op) }

func (o Operand) Add(rhs Operand) (Operand, error) { return o.Operate(rhs, OpAdd) }
func (o Operand) Sub(rhs Operand) (Operand, error) { return o.Operate(rhs, OpSub) }
func (o Operand) Mul(rhs Operand) (Operand, error) { return o.Operate(rhs, OpMul) }
func (o Operand) Div(rhs Operand) (Operand, error) { return o.Operate(rhs, OpDiv) }
func (o Operand) Mod(rhs Operand) (Operand, error) { return o.Operate(rhs, OpMod) }

// Operate computes o op rhs in the promoted type of the two operands.
//
// o's own payload is converted to the result width directly, while rhs is
// re-read from its canonical text at the result width. The canonical text is
// round-trip exact, so both paths see the same number.
func (o Operand) Operate(rhs Operand, op Operator) (Operand, error) {
	t := Promote(o.typ, rhs.typ)
	if t.IsFloat() {
		return o.operateFloat(rhs, op, t)
	}
	return o.operateInt(rhs, op, t)
}

func (o Operand) operateInt(rhs Operand, op Operator, t Type) (Operand, error) {
	r, err := strconv.ParseInt(rhs.text, 10, 64)
	if err != nil {
		return Operand{}, fault.Errorf(fault.InvalidValue, "cannot read %s as %s", rhs.Inspect(), t)
	}
	if (op == OpDiv || op == OpMod) && r == 0 {
		return Operand{}, fault.Errorf(fault.DivisionByZero, "Division by zero: %s %s %s", o.text, op, rhs.text)
	}

	// Integer types are at most 32 bits wide, so int64 holds every exact result.
	l := o.i
	var result int64
	switch op {
	case OpAdd:
		result = l + r
	case OpSub:
		result = l - r
	case OpMul:
		result = l * r
	case OpDiv:
		result = l / r
	case OpMod:
		result = l % r
	default:
		return Operand{}, fmt.Errorf("unknown operator %q", byte(op))
	}

	return fromInt(t, result, func() string { return fmt.Sprintf("%d %s %d", l, op, r) })
}

func (o Operand) operateFloat(rhs Operand, op Operator, t Type) (Operand, error) {
	r, err := strconv.ParseFloat(rhs.text, t.bits())
	if err != nil {
		return Operand{}, fault.Errorf(fault.InvalidValue, "cannot read %s as %s", rhs.Inspect(), t)
	}
	if (op == OpDiv || op == OpMod) && r == 0 {
		return Operand{}, fault.Errorf(fault.DivisionByZero, "Division by zero: %s %s %s", o.text, op, rhs.text)
	}

	l := o.Float()
	var result float64
	if t == Float {
		a, b := float32(l), float32(r)
		switch op {
		case OpAdd:
			result = float64(a + b)
		case OpSub:
			result = float64(a - b)
		case OpMul:
			result = float64(a * b)
		case OpDiv:
			result = float64(a / b)
		case OpMod:
			result = float64(float32(math.Mod(float64(a), float64(b))))
		default:
			return Operand{}, fmt.Errorf("unknown operator %q", byte(op))
		}
	} else {
		switch op {
		case OpAdd:
			result = l + r
		case OpSub:
			result = l - r
		case OpMul:
			result = l * r
		case OpDiv:
			result = l / r
		case OpMod:
			result = math.Mod(l, r)
		default:
			return Operand{}, fmt.Errorf("unknown operator %q", byte(op))
		}
	}

	return fromFloat(t, result, func() string {
		return strconv.FormatFloat(l, 'g', -1, t.bits()) + " " + op.String() + " " + rhs.text
	})
}

func intRange(t Type) (int64, int64) {
	switch t {
	case Int8:
		return math.MinInt8, math.MaxInt8
	case Int16:
		return math.MinInt16, math.MaxInt16
	default:
		return math.MinInt32, math.MaxInt32
	}
}

// fromInt builds an integer operand, failing when v does not fit t. what
// describes the value for the error message.
func fromInt(t Type, v int64, what func() string) (Operand, error) {
	lo, hi := intRange(t)
	if v < lo {
		return Operand{}, fault.Errorf(fault.Underflow, "%s underflow: %s", t, what())
	}
	if v > hi {
		return Operand{}, fault.Errorf(fault.Overflow, "%s overflow: %s", t, what())
	}
	return Operand{typ: t, i: v, text: strconv.FormatInt(v, 10)}, nil
}

// fromFloat builds a float or double operand from a value already rounded to
// t's width. Infinities mean the value left t's finite range.
func fromFloat(t Type, v float64, what func() string) (Operand, error) {
	switch {
	case math.IsNaN(v):
		return Operand{}, fault.Errorf(fault.InvalidValue, "%s is not a number: %s", t, what())
	case math.IsInf(v, -1):
		return Operand{}, fault.Errorf(fault.Underflow, "%s underflow: %s", t, what())
	case math.IsInf(v, 1):
		return Operand{}, fault.Errorf(fault.Overflow, "%s overflow: %s", t, what())
	}
	return Operand{typ: t, f: v, text: strconv.FormatFloat(v, 'f', -1, t.bits())}, nil
}
