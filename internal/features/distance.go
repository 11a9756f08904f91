package features

import "branchlab/internal/ir"

// DistancePropagator computes, for every instruction, the distance to the
// nearest control-flow instruction and returns the per-block distances it
// derived them from.
type DistancePropagator interface {
	Propagate(f *ir.Func, recs []Record) []int
}

// PropagatorFor returns the propagator implementing mode.
func PropagatorFor(mode Mode) DistancePropagator {
	return modePropagator{mode: mode}
}

type modePropagator struct {
	mode Mode
}

func (p modePropagator) Propagate(f *ir.Func, recs []Record) []int {
	seeds := make([]bool, len(f.Blocks))
	for i := range f.Blocks {
		if term := f.Blocks[i].Term(f); term != nil && term.Op.IsControlFlow() {
			seeds[i] = true
		}
	}
	dist := propagateBlocks(f, seeds, p.mode)
	assignInstrDistances(f, dist, recs)
	return dist
}

// propagateBlocks runs a breadth-first relaxation from the seed blocks.
func propagateBlocks(f *ir.Func, seeds []bool, mode Mode) []int {
	dist := make([]int, len(f.Blocks))
	queue := make([]ir.BlockID, 0, len(f.Blocks))
	for i := range dist {
		if seeds[i] {
			dist[i] = 0
			queue = append(queue, ir.BlockID(i))
		} else {
			dist[i] = MaxDistance
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		next := dist[cur] + 1
		if next > MaxDistance {
			continue
		}
		relax := func(nb ir.BlockID) {
			if next < dist[nb] {
				dist[nb] = next
				queue = append(queue, nb)
			}
		}
		bb := &f.Blocks[cur]
		for _, p := range bb.Preds {
			relax(p)
		}
		if mode == ModeBidirectional {
			for _, s := range bb.Succs {
				relax(s)
			}
		}
	}
	return dist
}

func assignInstrDistances(f *ir.Func, blockDist []int, recs []Record) {
	for i := range f.Blocks {
		ids := f.Blocks[i].Instrs
		next := -1
		for k := len(ids) - 1; k >= 0; k-- {
			in := f.Instr(ids[k])
			var d int
			switch {
			case in.Op.IsControlFlow():
				d = 0
			case next >= 0:
				d = min(next+1, MaxDistance)
			default:
				d = blockDist[i]
			}
			recs[in.ID].DistToControlFlow = d
			next = d
		}
	}
}
