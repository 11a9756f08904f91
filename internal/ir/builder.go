package ir

import (
	"fmt"

	"fortio.org/safecast"
)

// Builder constructs a Func block by block. The first error is sticky and
// reported by Finish.
type Builder struct {
	f   *Func
	cur BlockID
	err error
}

// NewBuilder starts a function with the given signature. The first block
// created becomes the entry block.
func NewBuilder(name string, params []Param, result Type) *Builder {
	return &Builder{
		f: &Func{
			ID:     NoFuncID,
			Name:   name,
			Params: params,
			Result: result,
			Entry:  NoBlockID,
		},
		cur: NoBlockID,
	}
}

// Func returns the function under construction.
func (b *Builder) Func() *Func { return b.f }

// Param returns parameter i as an operand.
func (b *Builder) Param(i int) Value { return b.f.ParamValue(i) }

// NewBlock appends an empty block.
func (b *Builder) NewBlock(name string) BlockID {
	n, err := safecast.Conv[int32](len(b.f.Blocks))
	if err != nil {
		b.fail(fmt.Errorf("%s: too many blocks: %w", b.f.Name, err))
		return NoBlockID
	}
	id := BlockID(n)
	b.f.Blocks = append(b.f.Blocks, Block{ID: id, Name: name})
	if b.f.Entry == NoBlockID {
		b.f.Entry = id
	}
	return id
}

// SetBlock selects the block new instructions are appended to.
func (b *Builder) SetBlock(id BlockID) {
	if b.f.Block(id) == nil {
		b.fail(fmt.Errorf("%s: no block bb%d", b.f.Name, id))
		return
	}
	b.cur = id
}

// Emit appends in to the current block and returns its result operand.
func (b *Builder) Emit(in Instr) Value {
	bb := b.f.Block(b.cur)
	if bb == nil {
		b.fail(fmt.Errorf("%s: emit %s with no current block", b.f.Name, in.Op))
		return Value{}
	}
	n, err := safecast.Conv[int32](len(b.f.Instrs))
	if err != nil {
		b.fail(fmt.Errorf("%s: too many instructions: %w", b.f.Name, err))
		return Value{}
	}
	in.ID = InstrID(n)
	in.Block = b.cur
	b.f.Instrs = append(b.f.Instrs, in)
	bb.Instrs = append(bb.Instrs, in.ID)
	return b.f.Value(in.ID)
}

// Named gives the instruction producing v a printable name.
func (b *Builder) Named(v Value, name string) Value {
	if in := b.f.Producer(v); in != nil {
		in.Name = name
	}
	return v
}

func (b *Builder) Binary(opcode string, x, y Value) Value {
	return b.Emit(Instr{Op: OpBinary, Opcode: opcode, Type: x.Type, Args: []Value{x, y}})
}

func (b *Builder) Compare(opcode string, x, y Value) Value {
	return b.Emit(Instr{Op: OpCompare, Opcode: opcode, Type: Bool, Args: []Value{x, y}})
}

func (b *Builder) Unary(opcode string, x Value) Value {
	return b.Emit(Instr{Op: OpUnary, Opcode: opcode, Type: x.Type, Args: []Value{x}})
}

func (b *Builder) Convert(opcode string, t Type, x Value) Value {
	return b.Emit(Instr{Op: OpConvert, Opcode: opcode, Type: t, Args: []Value{x}})
}

func (b *Builder) Alloc(elem Type) Value {
	return b.Emit(Instr{Op: OpAlloc, Opcode: "alloca " + elem.String(), Type: Ptr})
}

func (b *Builder) Load(t Type, addr Value) Value {
	return b.Emit(Instr{Op: OpLoad, Opcode: "load", Type: t, Args: []Value{addr}})
}

func (b *Builder) Store(addr, v Value) {
	b.Emit(Instr{Op: OpStore, Opcode: "store", Type: Void, Args: []Value{v, addr}})
}

func (b *Builder) Call(callee string, result Type, args ...Value) Value {
	return b.Emit(Instr{Op: OpCall, Opcode: "call", Type: result, Callee: callee, Args: args})
}

// Phi emits a phi with no incoming values; see AddIncoming.
func (b *Builder) Phi(t Type) Value {
	return b.Emit(Instr{Op: OpPhi, Opcode: "phi", Type: t})
}

// AddIncoming records that phi receives v when entered from pred.
func (b *Builder) AddIncoming(phi Value, pred BlockID, v Value) {
	in := b.f.Producer(phi)
	if in == nil || in.Op != OpPhi {
		b.fail(fmt.Errorf("%s: AddIncoming on non-phi", b.f.Name))
		return
	}
	in.Args = append(in.Args, v)
	in.Incoming = append(in.Incoming, pred)
}

func (b *Builder) CondBr(cond Value, then, els BlockID) {
	b.Emit(Instr{Op: OpCondBr, Opcode: "br", Type: Void, Args: []Value{cond}, Targets: []BlockID{then, els}})
}

func (b *Builder) Br(target BlockID) {
	b.Emit(Instr{Op: OpBr, Opcode: "br", Type: Void, Targets: []BlockID{target}})
}

// Switch emits a multi-way branch; targets[i] is taken when v == cases[i].
func (b *Builder) Switch(v Value, def BlockID, cases []int64, targets []BlockID) {
	if len(cases) != len(targets) {
		b.fail(fmt.Errorf("%s: switch has %d cases and %d targets", b.f.Name, len(cases), len(targets)))
		return
	}
	all := append([]BlockID{def}, targets...)
	b.Emit(Instr{Op: OpSwitch, Opcode: "switch", Type: Void, Args: []Value{v}, Targets: all, Cases: cases})
}

func (b *Builder) IndirectBr(addr Value, targets ...BlockID) {
	b.Emit(Instr{Op: OpIndirectBr, Opcode: "indirectbr", Type: Void, Args: []Value{addr}, Targets: targets})
}

// Invoke emits a call that ends the block. normal may be NoBlockID for
// calls that never return.
func (b *Builder) Invoke(callee string, normal BlockID, args ...Value) {
	in := Instr{Op: OpInvoke, Opcode: "invoke", Type: Void, Callee: callee, Args: args}
	if normal != NoBlockID {
		in.Targets = []BlockID{normal}
	}
	b.Emit(in)
}

func (b *Builder) Return(vals ...Value) {
	b.Emit(Instr{Op: OpReturn, Opcode: "ret", Type: Void, Args: vals})
}

// Finish rebuilds edges and validates the function.
func (b *Builder) Finish() (*Func, error) {
	if b.err != nil {
		return nil, b.err
	}
	RebuildEdges(b.f)
	if err := Validate(b.f); err != nil {
		return b.f, err
	}
	return b.f, nil
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}
