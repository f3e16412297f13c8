package operand

import "fmt"

// Type is an operand's numeric type. Its ordinal value is the precision
// rank: a binary operation is carried out in the higher-ranked type of its
// two operands.
type Type uint8

const (
	Int8 Type = iota
	Int16
	Int32
	Float
	Double
)

var typeNames = [...]string{
	Int8:   "int8",
	Int16:  "int16",
	Int32:  "int32",
	Float:  "float",
	Double: "double",
}

var typesByName = map[string]Type{
	"int8":   Int8,
	"int16":  Int16,
	"int32":  Int32,
	"float":  Float,
	"double": Double,
}

// LookupType maps a type keyword of the instruction language to its Type.
func LookupType(name string) (Type, bool) {
	t, ok := typesByName[name]
	return t, ok
}

func (t Type) Precision() int { return int(t) }

func (t Type) Valid() bool { return t <= Double }

func (t Type) IsFloat() bool { return t == Float || t == Double }

// bits is the storage width of t.
func (t Type) bits() int {
	switch t {
	case Int8:
		return 8
	case Int16:
		return 16
	case Int32, Float:
		return 32
	default:
		return 64
	}
}

func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
	return typeNames[t]
}

// Promote returns the type a binary operation between lhs and rhs is carried
// out in. Equal ranks resolve to lhs.
func Promote(lhs, rhs Type) Type {
	if rhs.Precision() > lhs.Precision() {
		return rhs
	}
	return lhs
}
