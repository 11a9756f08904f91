package ir

import (
	"fmt"

	"fortio.org/safecast"
)

type Param struct {
	Name string
	Type Type
}

// Func is one function. Blocks and Instrs are index arenas:
// Blocks[i].ID == i and Instrs[i].ID == i. Instructions are only ever
// appended to the arena, so IDs stay stable across insertion.
type Func struct {
	ID     FuncID
	Name   string
	Params []Param
	Result Type

	Blocks []Block
	Instrs []Instr
	Entry  BlockID
}

// External reports a declaration without a body.
func (f *Func) External() bool {
	return len(f.Blocks) == 0
}

// Instr returns the instruction with the given ID or nil.
func (f *Func) Instr(id InstrID) *Instr {
	if id < 0 || int(id) >= len(f.Instrs) {
		return nil
	}
	return &f.Instrs[id]
}

// Block returns the block with the given ID or nil.
func (f *Func) Block(id BlockID) *Block {
	if id < 0 || int(id) >= len(f.Blocks) {
		return nil
	}
	return &f.Blocks[id]
}

// Value returns an operand referring to the result of instruction id.
func (f *Func) Value(id InstrID) Value {
	in := f.Instr(id)
	if in == nil {
		return Value{Kind: ValueInstr, Func: f.ID, Instr: id}
	}
	return Value{Kind: ValueInstr, Type: in.Type, Func: f.ID, Instr: id}
}

// ParamValue returns an operand referring to parameter i.
func (f *Func) ParamValue(i int) Value {
	v := Value{Kind: ValueParam, Func: f.ID, Param: i}
	if i >= 0 && i < len(f.Params) {
		v.Type = f.Params[i].Type
	}
	return v
}

// Producer resolves v to the defining instruction when v is an instruction
// of this function.
func (f *Func) Producer(v Value) *Instr {
	if v.Kind != ValueInstr || v.Func != f.ID {
		return nil
	}
	return f.Instr(v.Instr)
}

// InsertBefore appends in to the arena and places it in the owning block
// of at, immediately before at. It returns the new instruction ID.
func (f *Func) InsertBefore(at InstrID, in Instr) (InstrID, error) {
	anchor := f.Instr(at)
	if anchor == nil {
		return NoInstrID, fmt.Errorf("%s: insert anchor %%%d does not exist", f.Name, at)
	}
	bb := f.Block(anchor.Block)
	if bb == nil {
		return NoInstrID, fmt.Errorf("%s: anchor %%%d has no block", f.Name, at)
	}
	pos := -1
	for i, id := range bb.Instrs {
		if id == at {
			pos = i
			break
		}
	}
	if pos < 0 {
		return NoInstrID, fmt.Errorf("%s: anchor %%%d not listed in bb%d", f.Name, at, bb.ID)
	}
	id, err := safecast.Conv[int32](len(f.Instrs))
	if err != nil {
		return NoInstrID, fmt.Errorf("%s: instruction arena overflow: %w", f.Name, err)
	}
	in.ID = InstrID(id)
	in.Block = bb.ID
	f.Instrs = append(f.Instrs, in)

	bb.Instrs = append(bb.Instrs, NoInstrID)
	copy(bb.Instrs[pos+1:], bb.Instrs[pos:])
	bb.Instrs[pos] = in.ID
	return in.ID, nil
}
