package ir_test

import (
	"slices"
	"testing"

	"branchlab/internal/ir"
	"branchlab/internal/testkit"
)

func blockByName(t *testing.T, f *ir.Func, name string) ir.BlockID {
	t.Helper()
	for i := range f.Blocks {
		if f.Blocks[i].Name == name {
			return f.Blocks[i].ID
		}
	}
	t.Fatalf("%s: no block %q", f.Name, name)
	return ir.NoBlockID
}

func TestComputeLoops_NoLoops(t *testing.T) {
	for _, f := range []*ir.Func{testkit.Sequential(t), testkit.SingleBranch(t), testkit.Diamond(t)} {
		nest := ir.ComputeLoops(f)
		if len(nest.Loops) != 0 || len(nest.Top) != 0 {
			t.Errorf("%s: expected no loops, got %+v", f.Name, nest.Loops)
		}
		for i := range f.Blocks {
			if d := nest.Depth(ir.BlockID(i)); d != 0 {
				t.Errorf("%s bb%d: depth %d", f.Name, i, d)
			}
		}
	}
}

func TestComputeLoops_ThreeBlockCycle(t *testing.T) {
	f := testkit.ThreeBlockLoop(t)
	nest := ir.ComputeLoops(f)
	if len(nest.Loops) != 1 {
		t.Fatalf("expected 1 loop, got %d", len(nest.Loops))
	}
	l := nest.Loops[0]
	want := []ir.BlockID{blockByName(t, f, "a"), blockByName(t, f, "b"), blockByName(t, f, "c")}
	if !slices.Equal(l.Blocks, want) {
		t.Fatalf("loop blocks = %v, want %v", l.Blocks, want)
	}
	if l.Header != want[0] || l.Depth != 1 || l.Parent != ir.NoLoopID {
		t.Fatalf("unexpected loop shape: %+v", l)
	}
	if nest.LoopFor(blockByName(t, f, "entry")) != ir.NoLoopID {
		t.Fatalf("entry should be outside the loop")
	}
}

func TestComputeLoops_Nested(t *testing.T) {
	f := testkit.NestedLoops(t)
	nest := ir.ComputeLoops(f)
	if len(nest.Loops) != 2 {
		t.Fatalf("expected 2 loops, got %d", len(nest.Loops))
	}
	outer := nest.Loop(nest.LoopFor(blockByName(t, f, "latch")))
	inner := nest.Loop(nest.LoopFor(blockByName(t, f, "inner")))
	if outer == nil || inner == nil || outer.ID == inner.ID {
		t.Fatalf("expected distinct loops, got %+v / %+v", outer, inner)
	}
	if outer.Depth != 1 || inner.Depth != 2 {
		t.Fatalf("depths: outer %d, inner %d", outer.Depth, inner.Depth)
	}
	if inner.Parent != outer.ID || !slices.Contains(outer.Children, inner.ID) {
		t.Fatalf("inner loop not nested under outer: %+v %+v", outer, inner)
	}
	if !slices.Contains(outer.Blocks, inner.Header) {
		t.Fatalf("outer blocks %v do not include inner header", outer.Blocks)
	}
	if !slices.Equal(nest.Top, []ir.LoopID{outer.ID}) {
		t.Fatalf("top = %v", nest.Top)
	}
}

func TestDominators(t *testing.T) {
	f := testkit.Diamond(t)
	idom := ir.Dominators(f)
	join := blockByName(t, f, "join")
	left := blockByName(t, f, "left")
	if idom[join] != f.Entry {
		t.Fatalf("idom(join) = bb%d, want entry", idom[join])
	}
	if !ir.Dominates(idom, f.Entry, join) || ir.Dominates(idom, left, join) {
		t.Fatalf("unexpected dominance for join")
	}
}

func TestComputeLoops_UnreachableBlockIgnored(t *testing.T) {
	b := ir.NewBuilder("dead", nil, ir.Void)
	entry := b.NewBlock("entry")
	dead := b.NewBlock("dead")
	b.SetBlock(entry)
	b.Return()
	b.SetBlock(dead)
	b.Br(dead)
	f, err := b.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if nest := ir.ComputeLoops(f); len(nest.Loops) != 0 {
		t.Fatalf("unreachable self-loop reported: %+v", nest.Loops)
	}
}
