package ir

import (
	"slices"
	"sort"
)

type LoopID int32

const NoLoopID LoopID = -1

// Loop is a natural loop. Blocks lists every member block, including the
// blocks of nested loops, in ascending ID order. Depth is 1 for outermost
// loops.
type Loop struct {
	ID       LoopID
	Header   BlockID
	Parent   LoopID
	Children []LoopID
	Blocks   []BlockID
	Depth    int
}

// LoopNest is the loop forest of one function.
type LoopNest struct {
	Loops []Loop
	Top   []LoopID

	innermost []LoopID
}

// Loop returns the loop with the given ID or nil.
func (n *LoopNest) Loop(id LoopID) *Loop {
	if n == nil || id < 0 || int(id) >= len(n.Loops) {
		return nil
	}
	return &n.Loops[id]
}

// LoopFor returns the innermost loop containing b, or NoLoopID.
func (n *LoopNest) LoopFor(b BlockID) LoopID {
	if n == nil || b < 0 || int(b) >= len(n.innermost) {
		return NoLoopID
	}
	return n.innermost[b]
}

// Depth returns the nesting depth of b; 0 outside loops.
func (n *LoopNest) Depth(b BlockID) int {
	if l := n.Loop(n.LoopFor(b)); l != nil {
		return l.Depth
	}
	return 0
}

// ReversePostorder lists the blocks reachable from entry in reverse
// postorder of a depth-first walk over Succs.
func ReversePostorder(f *Func) []BlockID {
	if f.Block(f.Entry) == nil {
		return nil
	}
	type frame struct {
		b    BlockID
		next int
	}
	visited := make([]bool, len(f.Blocks))
	post := make([]BlockID, 0, len(f.Blocks))
	stack := []frame{{b: f.Entry}}
	visited[f.Entry] = true
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		succs := f.Blocks[top.b].Succs
		if top.next < len(succs) {
			s := succs[top.next]
			top.next++
			if !visited[s] {
				visited[s] = true
				stack = append(stack, frame{b: s})
			}
			continue
		}
		post = append(post, top.b)
		stack = stack[:len(stack)-1]
	}
	slices.Reverse(post)
	return post
}

// Dominators returns the immediate dominator of every block. The entry
// block is its own dominator; unreachable blocks map to NoBlockID.
//
// Cooper, Harvey, Kennedy: "A Simple, Fast Dominance Algorithm".
func Dominators(f *Func) []BlockID {
	idom := make([]BlockID, len(f.Blocks))
	for i := range idom {
		idom[i] = NoBlockID
	}
	rpo := ReversePostorder(f)
	if len(rpo) == 0 {
		return idom
	}
	order := make([]int, len(f.Blocks))
	for i := range order {
		order[i] = -1
	}
	for i, b := range rpo {
		order[b] = i
	}
	intersect := func(a, b BlockID) BlockID {
		for a != b {
			for order[a] > order[b] {
				a = idom[a]
			}
			for order[b] > order[a] {
				b = idom[b]
			}
		}
		return a
	}

	idom[f.Entry] = f.Entry
	for changed := true; changed; {
		changed = false
		for _, b := range rpo[1:] {
			next := NoBlockID
			for _, p := range f.Blocks[b].Preds {
				if idom[p] == NoBlockID {
					continue
				}
				if next == NoBlockID {
					next = p
				} else {
					next = intersect(p, next)
				}
			}
			if next != NoBlockID && idom[b] != next {
				idom[b] = next
				changed = true
			}
		}
	}
	return idom
}

// Dominates reports whether a dominates b under idom.
func Dominates(idom []BlockID, a, b BlockID) bool {
	if int(b) >= len(idom) || idom[b] == NoBlockID {
		return false
	}
	for {
		if a == b {
			return true
		}
		up := idom[b]
		if up == b {
			return false
		}
		b = up
	}
}

// ComputeLoops finds the natural loops of f. Back edges sharing a header
// form one loop. Edges must be current (see RebuildEdges).
func ComputeLoops(f *Func) *LoopNest {
	nest := &LoopNest{innermost: make([]LoopID, len(f.Blocks))}
	for i := range nest.innermost {
		nest.innermost[i] = NoLoopID
	}
	idom := Dominators(f)
	rpo := ReversePostorder(f)

	for _, h := range rpo {
		var latches []BlockID
		for _, p := range f.Blocks[h].Preds {
			if idom[p] != NoBlockID && Dominates(idom, h, p) {
				latches = append(latches, p)
			}
		}
		if len(latches) == 0 {
			continue
		}
		id := LoopID(len(nest.Loops))
		nest.Loops = append(nest.Loops, Loop{
			ID:     id,
			Header: h,
			Parent: NoLoopID,
			Blocks: loopBody(f, idom, h, latches),
		})
	}

	// Parents come from the smallest enclosing loop: visit loops from the
	// largest body down and remember the latest one holding each header.
	bySize := make([]LoopID, len(nest.Loops))
	for i := range bySize {
		bySize[i] = LoopID(i)
	}
	sort.SliceStable(bySize, func(i, j int) bool {
		return len(nest.Loops[bySize[i]].Blocks) > len(nest.Loops[bySize[j]].Blocks)
	})
	for i, id := range bySize {
		l := &nest.Loops[id]
		for j := i - 1; j >= 0; j-- {
			outer := &nest.Loops[bySize[j]]
			if containsBlock(outer.Blocks, l.Header) {
				l.Parent = outer.ID
				break
			}
		}
	}
	for i := range nest.Loops {
		l := &nest.Loops[i]
		if l.Parent == NoLoopID {
			nest.Top = append(nest.Top, l.ID)
		} else {
			p := &nest.Loops[l.Parent]
			p.Children = append(p.Children, l.ID)
		}
	}

	stack := slices.Clone(nest.Top)
	for _, id := range stack {
		nest.Loops[id].Depth = 1
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		l := &nest.Loops[id]
		for _, b := range l.Blocks {
			cur := nest.innermost[b]
			if cur == NoLoopID || nest.Loops[cur].Depth < l.Depth {
				nest.innermost[b] = id
			}
		}
		for _, c := range l.Children {
			nest.Loops[c].Depth = l.Depth + 1
			stack = append(stack, c)
		}
	}
	return nest
}

func loopBody(f *Func, idom []BlockID, header BlockID, latches []BlockID) []BlockID {
	in := map[BlockID]bool{header: true}
	work := make([]BlockID, 0, len(latches))
	for _, l := range latches {
		if !in[l] {
			in[l] = true
			work = append(work, l)
		}
	}
	for len(work) > 0 {
		b := work[len(work)-1]
		work = work[:len(work)-1]
		for _, p := range f.Blocks[b].Preds {
			if in[p] || idom[p] == NoBlockID {
				continue
			}
			in[p] = true
			work = append(work, p)
		}
	}
	body := make([]BlockID, 0, len(in))
	for b := range in {
		body = append(body, b)
	}
	slices.Sort(body)
	return body
}

func containsBlock(sorted []BlockID, b BlockID) bool {
	_, ok := slices.BinarySearch(sorted, b)
	return ok
}
