package features

import "branchlab/internal/ir"

// AnnotateLoops marks every instruction inside a loop, nested loops
// included, and records the depth of each block's innermost loop.
func AnnotateLoops(f *ir.Func, nest *ir.LoopNest, recs []Record) {
	stack := append([]ir.LoopID(nil), nest.Top...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		l := nest.Loop(id)
		for _, b := range l.Blocks {
			for _, in := range f.Blocks[b].Instrs {
				recs[in].InLoop = true
			}
		}
		stack = append(stack, l.Children...)
	}
	for i := range f.Blocks {
		depth := nest.Depth(ir.BlockID(i))
		if depth == 0 {
			continue
		}
		for _, in := range f.Blocks[i].Instrs {
			recs[in].LoopDepth = depth
		}
	}
}
