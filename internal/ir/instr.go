package ir

// Op is the coarse category of an instruction.
type Op uint8

const (
	OpBinary Op = iota
	OpUnary
	OpCompare
	OpConvert
	OpPhi
	OpAlloc
	OpLoad
	OpStore
	OpAddr
	OpCall
	OpOther

	// Terminators.
	OpCondBr
	OpBr
	OpIndirectBr
	OpSwitch
	OpInvoke
	OpReturn
)

var opNames = [...]string{
	OpBinary:     "binary",
	OpUnary:      "unary",
	OpCompare:    "compare",
	OpConvert:    "convert",
	OpPhi:        "phi",
	OpAlloc:      "alloca",
	OpLoad:       "load",
	OpStore:      "store",
	OpAddr:       "addr",
	OpCall:       "call",
	OpOther:      "other",
	OpCondBr:     "br",
	OpBr:         "br",
	OpIndirectBr: "indirectbr",
	OpSwitch:     "switch",
	OpInvoke:     "invoke",
	OpReturn:     "ret",
}

func (o Op) String() string {
	if int(o) < len(opNames) && opNames[o] != "" {
		return opNames[o]
	}
	return "op?"
}

// IsTerminator reports whether o ends a block.
func (o Op) IsTerminator() bool {
	return o >= OpCondBr
}

// IsControlFlow reports whether an instruction of kind o transfers control:
// every terminator, plus calls.
func (o Op) IsControlFlow() bool {
	return o.IsTerminator() || o == OpCall
}

// IsMemoryAccess reports loads and stores.
func (o Op) IsMemoryAccess() bool {
	return o == OpLoad || o == OpStore
}

// Instr is one instruction in a function's arena.
//
// Args holds ordinary operands in order. For OpCondBr Args[0] is the
// condition; for OpSwitch Args[0] is the scrutinee; for OpIndirectBr Args[0]
// is the address. Targets lists successor blocks: then/else for OpCondBr,
// default followed by one target per entry of Cases for OpSwitch, normal
// continuation (if any) for OpInvoke. For OpPhi, Incoming[i] is the
// predecessor that supplies Args[i].
type Instr struct {
	ID    InstrID
	Block BlockID
	Op    Op
	// Opcode is the mnemonic rendered by the printer, e.g. "add" or "icmp slt".
	Opcode string
	Name   string
	Type   Type

	Args     []Value
	Callee   string
	Targets  []BlockID
	Cases    []int64
	Incoming []BlockID
}

// HasResult reports whether the instruction defines a value.
func (in *Instr) HasResult() bool {
	return in.Type.Kind != TypeVoid && !in.Op.IsTerminator() && in.Op != OpStore
}

// Operands returns every operand in evaluation order. Calls and invokes
// include the callee symbol as a trailing operand.
func (in *Instr) Operands() []Value {
	if in.Callee == "" || (in.Op != OpCall && in.Op != OpInvoke) {
		return in.Args
	}
	ops := make([]Value, 0, len(in.Args)+1)
	ops = append(ops, in.Args...)
	return append(ops, Global(in.Callee, Ptr))
}

// Condition returns the controlling operand of a conditional branch or
// switch.
func (in *Instr) Condition() (Value, bool) {
	switch in.Op {
	case OpCondBr, OpSwitch:
		if len(in.Args) > 0 {
			return in.Args[0], true
		}
	}
	return Value{}, false
}
