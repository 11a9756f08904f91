// Package interp executes ir functions directly. It exists to run
// instrumented code end to end without a native toolchain.
package interp

import (
	"fmt"
	"strconv"
	"strings"

	"branchlab/internal/ir"
)

// ValueKind tags a runtime value.
type ValueKind uint8

const (
	VKInvalid ValueKind = iota
	VKVoid
	VKInt
	VKFloat
	VKBool
	VKPtr
	VKFunc
	VKTuple
)

func (k ValueKind) String() string {
	switch k {
	case VKVoid:
		return "void"
	case VKInt:
		return "int"
	case VKFloat:
		return "float"
	case VKBool:
		return "bool"
	case VKPtr:
		return "ptr"
	case VKFunc:
		return "func"
	case VKTuple:
		return "tuple"
	}
	return "invalid"
}

// Handle addresses one memory cell; 0 is nil.
type Handle uint32

// Value is a runtime value.
type Value struct {
	Kind  ValueKind
	Int   int64
	Float float64
	Bool  bool
	Ptr   Handle
	Func  string
	Tuple []Value
}

func MakeInt(n int64) Value     { return Value{Kind: VKInt, Int: n} }
func MakeFloat(f float64) Value { return Value{Kind: VKFloat, Float: f} }
func MakeBool(b bool) Value     { return Value{Kind: VKBool, Bool: b} }
func MakeVoid() Value           { return Value{Kind: VKVoid} }

// Zero returns the zero value of t.
func Zero(t ir.Type) Value {
	switch t.Kind {
	case ir.TypeBool:
		return MakeBool(false)
	case ir.TypeInt:
		return MakeInt(0)
	case ir.TypeFloat:
		return MakeFloat(0)
	case ir.TypePtr:
		return Value{Kind: VKPtr}
	case ir.TypeVoid:
		return MakeVoid()
	}
	return Value{}
}

func (v Value) String() string {
	switch v.Kind {
	case VKVoid:
		return "void"
	case VKInt:
		return strconv.FormatInt(v.Int, 10)
	case VKFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case VKBool:
		return strconv.FormatBool(v.Bool)
	case VKPtr:
		if v.Ptr == 0 {
			return "null"
		}
		return fmt.Sprintf("ptr#%d", v.Ptr)
	case VKFunc:
		return "@" + v.Func
	case VKTuple:
		parts := make([]string, len(v.Tuple))
		for i, e := range v.Tuple {
			parts[i] = e.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
	return "<invalid>"
}

// wrapInt truncates n to bits and sign-extends the result.
func wrapInt(n int64, bits uint8) int64 {
	if bits == 0 || bits >= 64 {
		return n
	}
	shift := 64 - bits
	return n << shift >> shift
}

// unsigned reinterprets n as an unsigned value of the given width.
func unsigned(n int64, bits uint8) uint64 {
	if bits == 0 || bits >= 64 {
		return uint64(n)
	}
	return uint64(n) & (1<<bits - 1)
}
