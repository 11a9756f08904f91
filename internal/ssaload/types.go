package ssaload

import (
	"go/types"

	"branchlab/internal/ir"
)

func qualifier(p *types.Package) string { return p.Name() }

// mapType maps a Go type to its coarse ir type. Aggregates, strings and
// interfaces become opaque named types.
func mapType(t types.Type) ir.Type {
	switch u := t.Underlying().(type) {
	case *types.Basic:
		return mapBasic(u, t)
	case *types.Pointer:
		return ir.Ptr
	case *types.Tuple:
		switch u.Len() {
		case 0:
			return ir.Void
		case 1:
			return mapType(u.At(0).Type())
		}
	}
	return ir.Other(types.TypeString(t, qualifier))
}

func mapBasic(b *types.Basic, orig types.Type) ir.Type {
	switch b.Kind() {
	case types.Bool, types.UntypedBool:
		return ir.Bool
	case types.Int8, types.Uint8:
		return ir.Type{Kind: ir.TypeInt, Bits: 8}
	case types.Int16, types.Uint16:
		return ir.Type{Kind: ir.TypeInt, Bits: 16}
	case types.Int32, types.Uint32, types.UntypedRune:
		return ir.I32
	case types.Int, types.Int64, types.Uint, types.Uint64, types.Uintptr, types.UntypedInt:
		return ir.I64
	case types.Float32:
		return ir.Type{Kind: ir.TypeFloat, Bits: 32}
	case types.Float64, types.UntypedFloat:
		return ir.F64
	case types.UnsafePointer, types.UntypedNil:
		return ir.Ptr
	}
	return ir.Other(types.TypeString(orig, qualifier))
}

func basicInfo(t types.Type) types.BasicInfo {
	if b, ok := t.Underlying().(*types.Basic); ok {
		return b.Info()
	}
	return 0
}

func isUnsigned(t types.Type) bool { return basicInfo(t)&types.IsUnsigned != 0 }

func isFloat(t types.Type) bool { return basicInfo(t)&types.IsFloat != 0 }

func isString(t types.Type) bool { return basicInfo(t)&types.IsString != 0 }

// resultType maps a signature's results to a single ir type.
func resultType(sig *types.Signature) ir.Type {
	return mapType(sig.Results())
}

// paramTypes includes the receiver, which go/ssa passes as the first
// argument of a static method call.
func paramTypes(sig *types.Signature) []ir.Type {
	var out []ir.Type
	if r := sig.Recv(); r != nil {
		out = append(out, mapType(r.Type()))
	}
	for i := 0; i < sig.Params().Len(); i++ {
		out = append(out, mapType(sig.Params().At(i).Type()))
	}
	return out
}
