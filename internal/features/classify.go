package features

import "branchlab/internal/ir"

// Classify fills the operand and block-adjacency features of recs.
func Classify(f *ir.Func, recs []Record) {
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		preds := ir.DistinctCount(bb.Preds)
		succs := ir.DistinctCount(bb.Succs)
		for _, id := range bb.Instrs {
			in := f.Instr(id)
			r := &recs[id]
			r.NumPreds = preds
			r.NumSuccs = succs

			ops := in.Operands()
			r.NumOperands = len(ops)
			mem, reg, imm := operandFlags(ops)
			mem = mem || in.Op.IsMemoryAccess()

			if cond, ok := in.Condition(); ok {
				if p := f.Producer(cond); p != nil {
					pm, pr, pi := operandFlags(p.Operands())
					mem = mem || pm || p.Op.IsMemoryAccess()
					reg = reg || pr
					imm = imm || pi
				}
			}
			r.MemAccess, r.RegOperand, r.Immediate = mem, reg, imm
		}
	}
}

func operandFlags(ops []ir.Value) (mem, reg, imm bool) {
	for _, v := range ops {
		if v.Type.IsPointer() {
			mem = true
		}
		if v.IsImmediate() {
			imm = true
		}
		if v.Kind == ir.ValueInstr || v.Kind == ir.ValueParam {
			reg = true
		}
	}
	return mem, reg, imm
}
