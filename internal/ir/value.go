package ir

// ValueKind distinguishes operand kinds.
type ValueKind uint8

const (
	// ValueInstr refers to the result of an instruction.
	ValueInstr ValueKind = iota
	// ValueParam refers to a function parameter.
	ValueParam
	// ValueConst is a compile-time constant.
	ValueConst
	// ValueGlobal refers to a module-level symbol (function or global).
	ValueGlobal
)

// Value is a non-owning operand reference. For ValueInstr and ValueParam,
// Func names the function that defines the value.
type Value struct {
	Kind ValueKind
	Type Type

	Func   FuncID
	Instr  InstrID
	Param  int
	Const  Const
	Global string
}

// ConstKind distinguishes constant kinds.
type ConstKind uint8

const (
	ConstInt ConstKind = iota
	ConstBool
	ConstFloat
	ConstString
	ConstNull
	ConstOther
)

// Const represents a constant operand.
type Const struct {
	Kind ConstKind

	IntValue    int64
	BoolValue   bool
	FloatValue  float64
	StringValue string
	// Text is the rendered literal for ConstOther.
	Text string
}

// IsImmediate reports whether v is an integer or floating constant.
// Booleans count as one-bit integers.
func (v Value) IsImmediate() bool {
	if v.Kind != ValueConst {
		return false
	}
	switch v.Const.Kind {
	case ConstInt, ConstBool, ConstFloat:
		return true
	}
	return false
}

// IntConst returns an integer constant operand of type t.
func IntConst(t Type, n int64) Value {
	return Value{Kind: ValueConst, Type: t, Const: Const{Kind: ConstInt, IntValue: n}}
}

// BoolConst returns an i1 constant operand.
func BoolConst(b bool) Value {
	return Value{Kind: ValueConst, Type: Bool, Const: Const{Kind: ConstBool, BoolValue: b}}
}

// FloatConst returns a floating constant operand.
func FloatConst(f float64) Value {
	return Value{Kind: ValueConst, Type: F64, Const: Const{Kind: ConstFloat, FloatValue: f}}
}

// Global returns a reference to a module-level symbol.
func Global(name string, t Type) Value {
	return Value{Kind: ValueGlobal, Type: t, Global: name}
}
