package ir

type Block struct {
	ID BlockID
	// Name is the structural name supplied by the producer; "" when unnamed.
	Name   string
	Instrs []InstrID

	Preds []BlockID
	Succs []BlockID
}

// Terminated reports whether the last instruction of b is a terminator.
func (b *Block) Terminated(f *Func) bool {
	if b == nil || len(b.Instrs) == 0 {
		return false
	}
	return f.Instr(b.Instrs[len(b.Instrs)-1]).Op.IsTerminator()
}

// Term returns the block terminator or nil.
func (b *Block) Term(f *Func) *Instr {
	if !b.Terminated(f) {
		return nil
	}
	return f.Instr(b.Instrs[len(b.Instrs)-1])
}
