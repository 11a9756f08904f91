// Package ir is the control-flow graph model the analyses and the
// instrumenter operate on: functions made of blocks and instructions stored
// in index arenas, with edges derived from terminators.
package ir

import "strconv"

type FuncID int32
type BlockID int32
type InstrID int32

const (
	NoFuncID  FuncID  = -1
	NoBlockID BlockID = -1
	NoInstrID InstrID = -1
)

// TypeKind is the coarse static type of a value.
type TypeKind uint8

const (
	TypeVoid TypeKind = iota
	TypeBool
	TypeInt
	TypeFloat
	TypePtr
	TypeOther
)

// Type is the static type of a value. Bits is meaningful for ints and floats;
// Name is used to render TypeOther.
type Type struct {
	Kind TypeKind
	Bits uint8
	Name string
}

var (
	Void = Type{Kind: TypeVoid}
	Bool = Type{Kind: TypeBool, Bits: 1}
	I64  = Type{Kind: TypeInt, Bits: 64}
	I32  = Type{Kind: TypeInt, Bits: 32}
	F64  = Type{Kind: TypeFloat, Bits: 64}
	Ptr  = Type{Kind: TypePtr}
)

// Other returns an opaque named type.
func Other(name string) Type {
	return Type{Kind: TypeOther, Name: name}
}

func (t Type) IsPointer() bool { return t.Kind == TypePtr }

func (t Type) String() string {
	switch t.Kind {
	case TypeVoid:
		return "void"
	case TypeBool:
		return "i1"
	case TypeInt:
		bits := t.Bits
		if bits == 0 {
			bits = 64
		}
		return "i" + strconv.Itoa(int(bits))
	case TypeFloat:
		if t.Bits == 32 {
			return "float"
		}
		return "double"
	case TypePtr:
		return "ptr"
	default:
		if t.Name == "" {
			return "opaque"
		}
		return t.Name
	}
}
