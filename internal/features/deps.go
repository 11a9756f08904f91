package features

import (
	"slices"

	"branchlab/internal/ir"
)

// CollectDependencies returns, per instruction ID, the sorted IDs of the
// instructions of f producing its operands. Parameters, constants, globals
// and values of other functions are not dependencies.
func CollectDependencies(f *ir.Func) [][]ir.InstrID {
	deps := make([][]ir.InstrID, len(f.Instrs))
	for i := range f.Instrs {
		in := &f.Instrs[i]
		set := []ir.InstrID{}
		for _, v := range in.Operands() {
			if p := f.Producer(v); p != nil && !slices.Contains(set, p.ID) {
				set = append(set, p.ID)
			}
		}
		slices.Sort(set)
		deps[i] = set
	}
	return deps
}
