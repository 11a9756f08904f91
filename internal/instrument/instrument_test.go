package instrument_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"branchlab/internal/branchid"
	"branchlab/internal/diag"
	"branchlab/internal/features"
	"branchlab/internal/instrument"
	"branchlab/internal/ir"
	"branchlab/internal/testkit"
)

func TestFunc_SingleBranch(t *testing.T) {
	f := testkit.SingleBranch(t)
	before := testkit.SingleBranch(t)
	m := testkit.Module(t, "m", f)
	origInstrs := len(f.Instrs)
	origCond, _ := f.Blocks[f.Entry].Term(f).Condition()

	res, err := instrument.Func(m, f, branchid.NewCounter(0))
	require.NoError(t, err)
	require.Len(t, res.Probes, 1)

	assert.Len(t, f.Instrs, origInstrs+1)
	require.NoError(t, testkit.CheckSuperset(before, f))
	require.NoError(t, ir.Validate(f))

	entry := f.Blocks[f.Entry].Instrs
	require.Len(t, entry, 3)
	call := f.Instr(entry[1])
	assert.Equal(t, res.Probes[0].Call, call.ID)
	assert.Equal(t, ir.OpCall, call.Op)
	assert.Equal(t, instrument.HookName, call.Callee)
	require.Len(t, call.Args, 2)
	assert.Equal(t, int64(0), call.Args[0].Const.IntValue)
	assert.Equal(t, origCond, call.Args[1])
	assert.Equal(t, ir.OpCondBr, f.Instr(entry[2]).Op)
	assert.Equal(t, "call void @logBranchOutcome(i64 0, i1 %pos)", ir.FormatInstr(m, f, call))

	hook := m.Func(instrument.HookName)
	require.NotNil(t, hook)
	assert.True(t, hook.External())
}

func TestFunc_NoBranches(t *testing.T) {
	f := testkit.Sequential(t)
	m := testkit.Module(t, "m", f)
	n := len(f.Instrs)
	res, err := instrument.Func(m, f, branchid.NewCounter(0))
	require.NoError(t, err)
	assert.Empty(t, res.Probes)
	assert.Len(t, f.Instrs, n)
	assert.NotNil(t, m.Func(instrument.HookName))
}

func TestFunc_HookSignatureConflict(t *testing.T) {
	f := testkit.SingleBranch(t)
	m := testkit.Module(t, "m", f)
	_, err := m.DeclareFunc(instrument.HookName, []ir.Type{ir.I32}, ir.Void)
	require.NoError(t, err)
	n := len(f.Instrs)

	_, err = instrument.Func(m, f, branchid.NewCounter(0))
	require.Error(t, err)
	var d *diag.Diagnostic
	require.True(t, errors.As(err, &d))
	assert.Equal(t, diag.IRHookSignature, d.Code)
	assert.Len(t, f.Instrs, n)
}

func TestFunc_MalformedCondition(t *testing.T) {
	b := ir.NewBuilder("bad", []ir.Param{{Name: "x", Type: ir.I64}}, ir.Void)
	entry := b.NewBlock("entry")
	exit := b.NewBlock("exit")
	b.SetBlock(entry)
	b.CondBr(b.Param(0), exit, exit)
	b.SetBlock(exit)
	b.Return()
	f := b.Func()
	ir.RebuildEdges(f)
	m := testkit.Module(t, "m", f)

	_, err := instrument.Func(m, f, branchid.NewCounter(0))
	require.Error(t, err)
	var d *diag.Diagnostic
	require.True(t, errors.As(err, &d))
	assert.Equal(t, diag.IRBadCondition, d.Code)
}

func TestModule_IDsMatchExtraction(t *testing.T) {
	for _, scope := range []branchid.Scope{branchid.ScopeFunction, branchid.ScopeModule} {
		fns := []*ir.Func{testkit.NestedLoops(t), testkit.Diamond(t), testkit.SingleBranch(t)}

		// Static IDs from a pristine copy.
		staticAlloc := branchid.NewAllocator(scope)
		var static []uint64
		for _, f := range []*ir.Func{testkit.NestedLoops(t), testkit.Diamond(t), testkit.SingleBranch(t)} {
			a, err := features.Analyze(context.Background(), nil, f, features.Options{Scope: scope, Seq: staticAlloc.For()})
			require.NoError(t, err)
			for _, s := range a.Sites {
				static = append(static, s.ID)
			}
		}

		m := testkit.Module(t, "m", fns...)
		results, err := instrument.Module(context.Background(), m, branchid.NewAllocator(scope))
		require.NoError(t, err)
		require.Len(t, results, 3)
		var dynamic []uint64
		for _, r := range results {
			for _, p := range r.Probes {
				dynamic = append(dynamic, p.ID)
			}
		}
		assert.Equal(t, static, dynamic, "scope %s", scope)
		assert.Equal(t, 1, countHooks(m))
	}
}

func countHooks(m *ir.Module) int {
	n := 0
	for _, f := range m.Funcs {
		if f.Name == instrument.HookName {
			n++
		}
	}
	return n
}
