package testkit

import (
	"fmt"
	"slices"

	"branchlab/internal/ir"
)

// CheckEdgeInvariants verifies that block edges agree with terminator
// targets and that every predecessor list mirrors a successor list.
func CheckEdgeInvariants(f *ir.Func) error {
	if f == nil {
		return fmt.Errorf("nil function")
	}
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		term := bb.Term(f)
		if term == nil {
			return fmt.Errorf("bb%d: no terminator", bb.ID)
		}
		if !slices.Equal(term.Targets, bb.Succs) {
			return fmt.Errorf("bb%d: succs %v, terminator targets %v", bb.ID, bb.Succs, term.Targets)
		}
		for _, s := range bb.Succs {
			if !slices.Contains(f.Blocks[s].Preds, bb.ID) {
				return fmt.Errorf("bb%d -> bb%d missing from preds of bb%d", bb.ID, s, s)
			}
		}
		for _, p := range bb.Preds {
			if !slices.Contains(f.Blocks[p].Succs, bb.ID) {
				return fmt.Errorf("bb%d lists pred bb%d that does not branch to it", bb.ID, p)
			}
		}
	}
	return nil
}

// CheckSuperset verifies that every instruction of before is still present
// in after, in the same block and relative order.
func CheckSuperset(before, after *ir.Func) error {
	if len(after.Blocks) != len(before.Blocks) {
		return fmt.Errorf("block count changed: %d -> %d", len(before.Blocks), len(after.Blocks))
	}
	for i := range before.Blocks {
		want := before.Blocks[i].Instrs
		got := after.Blocks[i].Instrs
		k := 0
		for _, id := range got {
			if k < len(want) && id == want[k] {
				k++
			}
		}
		if k != len(want) {
			return fmt.Errorf("bb%d: original instructions %v not preserved in %v", i, want, got)
		}
	}
	return nil
}
