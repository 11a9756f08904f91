// Package testkit holds hand-built IR functions and invariant checks shared
// by package tests.
package testkit

import (
	"testing"

	"branchlab/internal/ir"
)

func finish(tb testing.TB, b *ir.Builder) *ir.Func {
	tb.Helper()
	f, err := b.Finish()
	if err != nil {
		tb.Fatalf("build %s: %v", b.Func().Name, err)
	}
	return f
}

// Sequential is two blocks: entry jumps to exit, exit returns.
func Sequential(tb testing.TB) *ir.Func {
	tb.Helper()
	b := ir.NewBuilder("seq", nil, ir.Void)
	entry := b.NewBlock("entry")
	exit := b.NewBlock("exit")
	b.SetBlock(entry)
	b.Br(exit)
	b.SetBlock(exit)
	b.Return()
	return finish(tb, b)
}

// ThreeBlockLoop counts to ten through a cycle a -> b -> c -> a.
func ThreeBlockLoop(tb testing.TB) *ir.Func {
	tb.Helper()
	b := ir.NewBuilder("loop3", nil, ir.I64)
	entry := b.NewBlock("entry")
	ba := b.NewBlock("a")
	bb := b.NewBlock("b")
	bc := b.NewBlock("c")
	exit := b.NewBlock("exit")

	b.SetBlock(entry)
	b.Br(ba)

	b.SetBlock(ba)
	i := b.Named(b.Phi(ir.I64), "i")
	b.Br(bb)

	b.SetBlock(bb)
	next := b.Named(b.Binary("add", i, ir.IntConst(ir.I64, 1)), "next")
	b.Br(bc)

	b.SetBlock(bc)
	c := b.Named(b.Compare("icmp slt", next, ir.IntConst(ir.I64, 10)), "cond")
	b.CondBr(c, ba, exit)

	b.AddIncoming(i, entry, ir.IntConst(ir.I64, 0))
	b.AddIncoming(i, bc, next)

	b.SetBlock(exit)
	b.Return(next)
	return finish(tb, b)
}

// NestedLoops is a doubly nested counting loop bounded by parameter n. The
// inner loop is the single self-looping block "inner".
func NestedLoops(tb testing.TB) *ir.Func {
	tb.Helper()
	b := ir.NewBuilder("nested", []ir.Param{{Name: "n", Type: ir.I64}}, ir.I64)
	entry := b.NewBlock("entry")
	outer := b.NewBlock("outer")
	inner := b.NewBlock("inner")
	latch := b.NewBlock("latch")
	exit := b.NewBlock("exit")
	n := b.Param(0)
	zero := ir.IntConst(ir.I64, 0)
	one := ir.IntConst(ir.I64, 1)

	b.SetBlock(entry)
	b.Br(outer)

	b.SetBlock(outer)
	i := b.Named(b.Phi(ir.I64), "i")
	b.Br(inner)

	b.SetBlock(inner)
	j := b.Named(b.Phi(ir.I64), "j")
	j1 := b.Named(b.Binary("add", j, one), "j1")
	c1 := b.Named(b.Compare("icmp slt", j1, n), "c1")
	b.CondBr(c1, inner, latch)

	b.SetBlock(latch)
	i1 := b.Named(b.Binary("add", i, one), "i1")
	c2 := b.Named(b.Compare("icmp slt", i1, n), "c2")
	b.CondBr(c2, outer, exit)

	b.SetBlock(exit)
	b.Return(i1)

	b.AddIncoming(i, entry, zero)
	b.AddIncoming(i, latch, i1)
	b.AddIncoming(j, outer, zero)
	b.AddIncoming(j, inner, j1)
	return finish(tb, b)
}

// SingleBranch returns 1 when x > 0 and 0 otherwise.
func SingleBranch(tb testing.TB) *ir.Func {
	tb.Helper()
	b := ir.NewBuilder("pick", []ir.Param{{Name: "x", Type: ir.I64}}, ir.I64)
	entry := b.NewBlock("entry")
	then := b.NewBlock("then")
	els := b.NewBlock("else")

	b.SetBlock(entry)
	c := b.Named(b.Compare("icmp sgt", b.Param(0), ir.IntConst(ir.I64, 0)), "pos")
	b.CondBr(c, then, els)

	b.SetBlock(then)
	b.Return(ir.IntConst(ir.I64, 1))

	b.SetBlock(els)
	b.Return(ir.IntConst(ir.I64, 0))
	return finish(tb, b)
}

// Diamond loads through p, branches on the loaded value, calls @sink on one
// arm and joins. Its entry block has no name.
func Diamond(tb testing.TB) *ir.Func {
	tb.Helper()
	b := ir.NewBuilder("diamond", []ir.Param{{Name: "p", Type: ir.Ptr}}, ir.Void)
	entry := b.NewBlock("")
	left := b.NewBlock("left")
	right := b.NewBlock("right")
	join := b.NewBlock("join")

	b.SetBlock(entry)
	v := b.Named(b.Load(ir.I64, b.Param(0)), "v")
	c := b.Named(b.Compare("icmp eq", v, ir.IntConst(ir.I64, 0)), "z")
	b.CondBr(c, left, right)

	b.SetBlock(left)
	b.Br(join)

	b.SetBlock(right)
	b.Call("sink", ir.Void, v)
	b.Br(join)

	b.SetBlock(join)
	b.Return()
	return finish(tb, b)
}

// IndirectJump loads a block address and jumps through it to one of two
// unnamed blocks that both fall through to done.
func IndirectJump(tb testing.TB) *ir.Func {
	tb.Helper()
	b := ir.NewBuilder("jump", []ir.Param{{Name: "p", Type: ir.Ptr}}, ir.Void)
	entry := b.NewBlock("entry")
	first := b.NewBlock("")
	second := b.NewBlock("")
	done := b.NewBlock("done")

	b.SetBlock(entry)
	dest := b.Named(b.Load(ir.Ptr, b.Param(0)), "dest")
	b.IndirectBr(dest, first, second)

	b.SetBlock(first)
	b.Br(done)

	b.SetBlock(second)
	b.Br(done)

	b.SetBlock(done)
	b.Return()
	return finish(tb, b)
}

// Unterminated has a single block with no terminator, so it never
// validates.
func Unterminated(tb testing.TB) *ir.Func {
	tb.Helper()
	b := ir.NewBuilder("broken", nil, ir.Void)
	b.SetBlock(b.NewBlock("entry"))
	b.Binary("add", ir.IntConst(ir.I64, 1), ir.IntConst(ir.I64, 2))
	f, err := b.Finish()
	if err == nil {
		tb.Fatalf("broken: expected a validation error")
	}
	return f
}

// Module adds fns to a fresh module in order.
func Module(tb testing.TB, name string, fns ...*ir.Func) *ir.Module {
	tb.Helper()
	m := ir.NewModule(name)
	for _, f := range fns {
		if err := m.Add(f); err != nil {
			tb.Fatalf("add %s: %v", f.Name, err)
		}
	}
	return m
}
