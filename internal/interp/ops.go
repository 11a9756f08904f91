package interp

import (
	"math"

	"branchlab/internal/ir"
)

func (vm *VM) exec(fr *Frame, in *ir.Instr) (Value, *VMError) {
	switch in.Op {
	case ir.OpBinary:
		x, y, vmErr := vm.operands2(fr, in)
		if vmErr != nil {
			return Value{}, vmErr
		}
		return vm.evalBinary(in.Opcode, in.Type, x, y)
	case ir.OpCompare:
		x, y, vmErr := vm.operands2(fr, in)
		if vmErr != nil {
			return Value{}, vmErr
		}
		return vm.evalCompare(in.Opcode, in.Args[0].Type, x, y)
	case ir.OpUnary:
		x, vmErr := vm.operand(fr, in.Args[0])
		if vmErr != nil {
			return Value{}, vmErr
		}
		return vm.evalUnary(in.Opcode, in.Type, x)
	case ir.OpConvert:
		x, vmErr := vm.operand(fr, in.Args[0])
		if vmErr != nil {
			return Value{}, vmErr
		}
		return vm.evalConvert(in.Opcode, in.Args[0].Type, in.Type, x)
	case ir.OpAlloc:
		return vm.alloc(Value{})
	case ir.OpLoad:
		p, vmErr := vm.operand(fr, in.Args[0])
		if vmErr != nil {
			return Value{}, vmErr
		}
		c, vmErr := vm.cell(p)
		if vmErr != nil {
			return Value{}, vmErr
		}
		if c.Kind == VKInvalid {
			return Zero(in.Type), nil
		}
		return *c, nil
	case ir.OpStore:
		v, vmErr := vm.operand(fr, in.Args[0])
		if vmErr != nil {
			return Value{}, vmErr
		}
		p, vmErr := vm.operand(fr, in.Args[1])
		if vmErr != nil {
			return Value{}, vmErr
		}
		c, vmErr := vm.cell(p)
		if vmErr != nil {
			return Value{}, vmErr
		}
		*c = v
		return MakeVoid(), nil
	case ir.OpCall:
		return vm.doCall(fr, in)
	}
	return Value{}, vm.errorf(PanicUnsupported, "cannot execute %q", ir.FormatInstr(vm.M, fr.Func, in))
}

func (vm *VM) operands2(fr *Frame, in *ir.Instr) (Value, Value, *VMError) {
	if len(in.Args) != 2 {
		return Value{}, Value{}, vm.errorf(PanicUnsupported, "%s expects two operands", in.Opcode)
	}
	x, vmErr := vm.operand(fr, in.Args[0])
	if vmErr != nil {
		return Value{}, Value{}, vmErr
	}
	y, vmErr := vm.operand(fr, in.Args[1])
	if vmErr != nil {
		return Value{}, Value{}, vmErr
	}
	return x, y, nil
}

func (vm *VM) evalBinary(opcode string, t ir.Type, x, y Value) (Value, *VMError) {
	if x.Kind != y.Kind {
		return Value{}, vm.errorf(PanicTypeMismatch, "%s on %s and %s", opcode, x.Kind, y.Kind)
	}
	switch x.Kind {
	case VKInt:
		a, b := x.Int, y.Int
		bits := t.Bits
		var r int64
		switch opcode {
		case "add":
			r = a + b
		case "sub":
			r = a - b
		case "mul":
			r = a * b
		case "sdiv", "udiv", "srem", "urem":
			if b == 0 {
				return Value{}, vm.errorf(PanicDivideByZero, "integer %s by zero", opcode)
			}
			switch opcode {
			case "sdiv":
				r = a / b
			case "srem":
				r = a % b
			case "udiv":
				r = int64(unsigned(a, bits) / unsigned(b, bits))
			case "urem":
				r = int64(unsigned(a, bits) % unsigned(b, bits))
			}
		case "and":
			r = a & b
		case "or":
			r = a | b
		case "xor":
			r = a ^ b
		case "andnot":
			r = a &^ b
		case "shl":
			r = a << unsigned(b, 64)
		case "ashr":
			r = a >> unsigned(b, 64)
		case "lshr":
			r = int64(unsigned(a, bits) >> unsigned(b, 64))
		default:
			return Value{}, vm.errorf(PanicUnsupported, "integer opcode %q", opcode)
		}
		return MakeInt(wrapInt(r, bits)), nil
	case VKFloat:
		a, b := x.Float, y.Float
		var r float64
		switch opcode {
		case "fadd", "add":
			r = a + b
		case "fsub", "sub":
			r = a - b
		case "fmul", "mul":
			r = a * b
		case "fdiv", "sdiv":
			r = a / b
		case "frem":
			r = math.Mod(a, b)
		default:
			return Value{}, vm.errorf(PanicUnsupported, "float opcode %q", opcode)
		}
		if t.Bits == 32 {
			r = float64(float32(r))
		}
		return MakeFloat(r), nil
	case VKBool:
		switch opcode {
		case "and":
			return MakeBool(x.Bool && y.Bool), nil
		case "or":
			return MakeBool(x.Bool || y.Bool), nil
		case "xor":
			return MakeBool(x.Bool != y.Bool), nil
		}
	}
	return Value{}, vm.errorf(PanicUnsupported, "%s on %s", opcode, x.Kind)
}

func (vm *VM) evalCompare(opcode string, t ir.Type, x, y Value) (Value, *VMError) {
	if x.Kind != y.Kind {
		return Value{}, vm.errorf(PanicTypeMismatch, "%s on %s and %s", opcode, x.Kind, y.Kind)
	}
	switch x.Kind {
	case VKInt:
		a, b := x.Int, y.Int
		ua, ub := unsigned(a, t.Bits), unsigned(b, t.Bits)
		switch opcode {
		case "icmp eq":
			return MakeBool(a == b), nil
		case "icmp ne":
			return MakeBool(a != b), nil
		case "icmp slt":
			return MakeBool(a < b), nil
		case "icmp sle":
			return MakeBool(a <= b), nil
		case "icmp sgt":
			return MakeBool(a > b), nil
		case "icmp sge":
			return MakeBool(a >= b), nil
		case "icmp ult":
			return MakeBool(ua < ub), nil
		case "icmp ule":
			return MakeBool(ua <= ub), nil
		case "icmp ugt":
			return MakeBool(ua > ub), nil
		case "icmp uge":
			return MakeBool(ua >= ub), nil
		}
	case VKFloat:
		a, b := x.Float, y.Float
		switch opcode {
		case "fcmp oeq":
			return MakeBool(a == b), nil
		case "fcmp one":
			return MakeBool(a != b), nil
		case "fcmp olt":
			return MakeBool(a < b), nil
		case "fcmp ole":
			return MakeBool(a <= b), nil
		case "fcmp ogt":
			return MakeBool(a > b), nil
		case "fcmp oge":
			return MakeBool(a >= b), nil
		}
	case VKBool:
		switch opcode {
		case "icmp eq":
			return MakeBool(x.Bool == y.Bool), nil
		case "icmp ne":
			return MakeBool(x.Bool != y.Bool), nil
		}
	case VKPtr:
		switch opcode {
		case "icmp eq":
			return MakeBool(x.Ptr == y.Ptr), nil
		case "icmp ne":
			return MakeBool(x.Ptr != y.Ptr), nil
		}
	}
	return Value{}, vm.errorf(PanicUnsupported, "%s on %s", opcode, x.Kind)
}

func (vm *VM) evalUnary(opcode string, t ir.Type, x Value) (Value, *VMError) {
	switch {
	case opcode == "neg" && x.Kind == VKInt:
		return MakeInt(wrapInt(-x.Int, t.Bits)), nil
	case (opcode == "fneg" || opcode == "neg") && x.Kind == VKFloat:
		return MakeFloat(-x.Float), nil
	case opcode == "not" && x.Kind == VKBool:
		return MakeBool(!x.Bool), nil
	case opcode == "compl" && x.Kind == VKInt:
		return MakeInt(wrapInt(^x.Int, t.Bits)), nil
	}
	return Value{}, vm.errorf(PanicUnsupported, "%s on %s", opcode, x.Kind)
}

func (vm *VM) evalConvert(opcode string, from, to ir.Type, x Value) (Value, *VMError) {
	switch to.Kind {
	case ir.TypeInt:
		switch x.Kind {
		case VKInt:
			n := x.Int
			if opcode == "zext" {
				n = int64(unsigned(n, from.Bits))
			}
			return MakeInt(wrapInt(n, to.Bits)), nil
		case VKFloat:
			return MakeInt(wrapInt(int64(x.Float), to.Bits)), nil
		case VKBool:
			if x.Bool {
				return MakeInt(1), nil
			}
			return MakeInt(0), nil
		}
	case ir.TypeFloat:
		var f float64
		switch x.Kind {
		case VKInt:
			if opcode == "uitofp" {
				f = float64(unsigned(x.Int, from.Bits))
			} else {
				f = float64(x.Int)
			}
		case VKFloat:
			f = x.Float
		default:
			return Value{}, vm.errorf(PanicUnsupported, "%s from %s", opcode, x.Kind)
		}
		if to.Bits == 32 {
			f = float64(float32(f))
		}
		return MakeFloat(f), nil
	case ir.TypeBool:
		if x.Kind == VKBool {
			return x, nil
		}
	default:
		return x, nil
	}
	return Value{}, vm.errorf(PanicUnsupported, "%s from %s to %s", opcode, x.Kind, to)
}
