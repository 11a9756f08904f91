package ir

// RebuildEdges recomputes Preds and Succs of every block from terminator
// targets. Duplicate edges are kept: a conditional branch with both arms on
// the same block lists it twice.
func RebuildEdges(f *Func) {
	for i := range f.Blocks {
		f.Blocks[i].Preds = f.Blocks[i].Preds[:0]
		f.Blocks[i].Succs = f.Blocks[i].Succs[:0]
	}
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		term := bb.Term(f)
		if term == nil {
			continue
		}
		for _, t := range term.Targets {
			succ := f.Block(t)
			if succ == nil {
				continue
			}
			bb.Succs = append(bb.Succs, t)
			succ.Preds = append(succ.Preds, bb.ID)
		}
	}
}

// Reachable performs a DFS from the entry block.
func Reachable(f *Func) []bool {
	reachable := make([]bool, len(f.Blocks))
	if f.Block(f.Entry) == nil {
		return reachable
	}
	stack := []BlockID{f.Entry}
	reachable[f.Entry] = true
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range f.Blocks[id].Succs {
			if !reachable[s] {
				reachable[s] = true
				stack = append(stack, s)
			}
		}
	}
	return reachable
}

// DistinctCount returns the number of distinct IDs in ids.
func DistinctCount(ids []BlockID) int {
	switch len(ids) {
	case 0, 1:
		return len(ids)
	}
	seen := make(map[BlockID]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}
