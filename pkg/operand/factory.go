package operand

import (
	"abstractvm/pkg/fault"
	"errors"
	"math"
	"math/big"
	"strconv"
)

// New builds an operand of type t from literal. The literal must be a
// complete base-10 number: integer types accept -?digits, floating types a
// decimal number with an optional exponent. Values outside t's range fail
// with Overflow or Underflow and are never truncated.
func New(t Type, literal string) (Operand, error) {
	switch {
	case !t.Valid():
		return Operand{}, fault.Errorf(fault.InvalidValue, "invalid operand type %s", t)
	case t.IsFloat():
		return newFloat(t, literal)
	default:
		return newInt(t, literal)
	}
}

// MustNew is like New but panics on error. It is meant for tests and
// constant tables.
func MustNew(t Type, literal string) Operand {
	o, err := New(t, literal)
	if err != nil {
		panic(err)
	}
	return o
}

func newInt(t Type, literal string) (Operand, error) {
	if !isIntegerLiteral(literal) {
		return Operand{}, fault.Errorf(fault.InvalidValue, "Invalid integer literal: %q", literal)
	}

	what := func() string { return literal }
	v, err := strconv.ParseInt(literal, 10, 64)
	if errors.Is(err, strconv.ErrRange) {
		// Beyond int64 is beyond every integer type.
		if literal[0] == '-' {
			return fromInt(t, math.MinInt64, what)
		}
		return fromInt(t, math.MaxInt64, what)
	}
	if err != nil {
		return Operand{}, fault.Errorf(fault.InvalidValue, "Invalid integer literal: %q", literal)
	}
	return fromInt(t, v, what)
}

func newFloat(t Type, literal string) (Operand, error) {
	if !isDecimalLiteral(literal) {
		return Operand{}, fault.Errorf(fault.InvalidValue, "Invalid %s literal: %q", t, literal)
	}

	what := func() string { return literal }
	wide, err := strconv.ParseFloat(literal, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return Operand{}, fault.Errorf(fault.InvalidValue, "Invalid %s literal: %q", t, literal)
	}
	if err := checkFloatRange(t, literal, wide, what); err != nil {
		return Operand{}, err
	}

	// In range, so rounding once at t's width stays finite.
	v, err := strconv.ParseFloat(literal, t.bits())
	if err != nil {
		return Operand{}, fault.Errorf(fault.InvalidValue, "Invalid %s literal: %q", t, literal)
	}
	return fromFloat(t, v, what)
}

// checkFloatRange fails when the literal's exact value lies beyond t's
// largest finite magnitude. wide is the literal parsed at 64 bits; the exact
// decimal is only consulted when wide lands on the limit itself, since
// values just past the limit round onto it.
func checkFloatRange(t Type, literal string, wide float64, what func() string) error {
	limit := math.MaxFloat64
	if t == Float {
		limit = math.MaxFloat32
	}

	mag := math.Abs(wide)
	over := mag > limit
	if mag == limit {
		exact, ok := new(big.Rat).SetString(literal)
		if !ok {
			return fault.Errorf(fault.InvalidValue, "Invalid %s literal: %q", t, literal)
		}
		over = exact.Abs(exact).Cmp(new(big.Rat).SetFloat64(limit)) > 0
	}
	if !over {
		return nil
	}
	if wide < 0 {
		return fault.Errorf(fault.Underflow, "%s underflow: %s", t, what())
	}
	return fault.Errorf(fault.Overflow, "%s overflow: %s", t, what())
}

// isIntegerLiteral matches -?[0-9]+.
func isIntegerLiteral(s string) bool {
	i := 0
	if i < len(s) && s[i] == '-' {
		i++
	}
	return i < len(s) && digitsUntil(s, i) == len(s)
}

// isDecimalLiteral matches -?([0-9]+(\.[0-9]*)?|\.[0-9]+)([eE][+-]?[0-9]+)?.
// Hex floats, underscores, inf and nan are rejected.
func isDecimalLiteral(s string) bool {
	i := 0
	if i < len(s) && s[i] == '-' {
		i++
	}
	start := i
	i = digitsUntil(s, i)
	intDigits := i - start
	fracDigits := 0
	if i < len(s) && s[i] == '.' {
		i++
		j := digitsUntil(s, i)
		fracDigits = j - i
		i = j
	}
	if intDigits == 0 && fracDigits == 0 {
		return false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		j := digitsUntil(s, i)
		if j == i {
			return false
		}
		i = j
	}
	return i == len(s)
}

func digitsUntil(s string, i int) int {
	for i < len(s) && '0' <= s[i] && s[i] <= '9' {
		i++
	}
	return i
}
