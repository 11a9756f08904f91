package features_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"branchlab/internal/branchid"
	"branchlab/internal/features"
	"branchlab/internal/ir"
	"branchlab/internal/testkit"
)

func analyze(t *testing.T, f *ir.Func) *features.Analysis {
	t.Helper()
	a, err := features.Analyze(context.Background(), nil, f, features.Options{})
	require.NoError(t, err)
	return a
}

func reportText(t *testing.T, rep *features.FuncReport) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, rep.WriteText(&buf))
	return buf.String()
}

func TestExtract_SequentialBlocks(t *testing.T) {
	f := testkit.Sequential(t)
	a := analyze(t, f)
	for _, r := range a.Records {
		assert.Equal(t, 0, r.DistToControlFlow)
		assert.False(t, r.InLoop)
	}
	assert.Empty(t, a.Sites)

	want := `Control-flow features for function: seq
Branch ID scope: function
Distance mode: backward
entry:
br label %exit: [in_loop: 0, dist_to_control_flow: 0, num_preds_BB: 0, num_succs_BB: 1, loop_depth_BB: 0, op_is_mem_access: 0, op_is_reg_operand: 0, op_is_immediate: 0, num_operands: 0]
exit:
ret void: [in_loop: 0, dist_to_control_flow: 0, num_preds_BB: 1, num_succs_BB: 0, loop_depth_BB: 0, op_is_mem_access: 0, op_is_reg_operand: 0, op_is_immediate: 0, num_operands: 0]
`
	assert.Equal(t, want, reportText(t, a.Report()))
	assert.NotContains(t, want, "BranchID")
}

func TestExtract_SingleBranchReport(t *testing.T) {
	rep, err := features.Extract(context.Background(), nil, testkit.SingleBranch(t), features.Options{})
	require.NoError(t, err)

	want := `Control-flow features for function: pick
Branch ID scope: function
Distance mode: backward
entry:
%pos = icmp sgt i64 %x, 0: [in_loop: 0, dist_to_control_flow: 1, num_preds_BB: 0, num_succs_BB: 2, loop_depth_BB: 0, op_is_mem_access: 0, op_is_reg_operand: 1, op_is_immediate: 1, num_operands: 2]
BranchID: 0   br i1 %pos, label %then, label %else: [in_loop: 0, dist_to_control_flow: 0, num_preds_BB: 0, num_succs_BB: 2, loop_depth_BB: 0, op_is_mem_access: 0, op_is_reg_operand: 1, op_is_immediate: 1, num_operands: 1]
  Depends on: %pos = icmp sgt i64 %x, 0
then:
ret i64 1: [in_loop: 0, dist_to_control_flow: 0, num_preds_BB: 1, num_succs_BB: 0, loop_depth_BB: 0, op_is_mem_access: 0, op_is_reg_operand: 0, op_is_immediate: 1, num_operands: 1]
else:
ret i64 0: [in_loop: 0, dist_to_control_flow: 0, num_preds_BB: 1, num_succs_BB: 0, loop_depth_BB: 0, op_is_mem_access: 0, op_is_reg_operand: 0, op_is_immediate: 1, num_operands: 1]
`
	assert.Equal(t, want, reportText(t, rep))
}

func TestExtract_ThreeBlockLoop(t *testing.T) {
	f := testkit.ThreeBlockLoop(t)
	a := analyze(t, f)
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		inLoop := bb.Name == "a" || bb.Name == "b" || bb.Name == "c"
		for _, id := range bb.Instrs {
			r := a.Records[id]
			assert.Equal(t, inLoop, r.InLoop, "%s in %s", ir.FormatInstr(nil, f, f.Instr(id)), bb.Name)
			if inLoop {
				assert.Equal(t, 1, r.LoopDepth)
			} else {
				assert.Equal(t, 0, r.LoopDepth)
			}
		}
	}
}

func TestExtract_NestedLoopDepth(t *testing.T) {
	f := testkit.NestedLoops(t)
	a := analyze(t, f)
	depth := map[string]int{"entry": 0, "outer": 1, "inner": 2, "latch": 1, "exit": 0}
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		for _, id := range bb.Instrs {
			r := a.Records[id]
			assert.Equal(t, depth[bb.Name], r.LoopDepth, "block %s", bb.Name)
			assert.Equal(t, depth[bb.Name] > 0, r.InLoop, "block %s", bb.Name)
		}
	}
}

func TestExtract_TerminatorsAtDistanceZero(t *testing.T) {
	fixtures := []*ir.Func{
		testkit.Sequential(t), testkit.ThreeBlockLoop(t), testkit.NestedLoops(t),
		testkit.SingleBranch(t), testkit.Diamond(t),
	}
	for _, mode := range []features.Mode{features.ModeBackward, features.ModeBidirectional} {
		for _, f := range fixtures {
			a, err := features.Analyze(context.Background(), nil, f, features.Options{Mode: mode})
			require.NoError(t, err)
			for i := range f.Instrs {
				in := &f.Instrs[i]
				d := a.Records[in.ID].DistToControlFlow
				if in.Op.IsTerminator() {
					assert.Equal(t, 0, d, "%s: %s", f.Name, ir.FormatInstr(nil, f, in))
				}
				assert.GreaterOrEqual(t, d, 0)
				assert.LessOrEqual(t, d, features.MaxDistance)
			}
		}
	}
}

func TestExtract_BranchIDsDense(t *testing.T) {
	f := testkit.NestedLoops(t)
	a := analyze(t, f)
	require.Len(t, a.Sites, 2)
	for i, s := range a.Sites {
		assert.Equal(t, uint64(i), s.ID)
	}
	text := reportText(t, a.Report())
	assert.Contains(t, text, "BranchID: 0   br i1 %c1")
	assert.Contains(t, text, "BranchID: 1   br i1 %c2")
}

func TestExtract_ModuleScopeContinuesNumbering(t *testing.T) {
	seq := branchid.NewCounter(0)
	opts := features.Options{Scope: branchid.ScopeModule, Seq: seq}
	first, err := features.Extract(context.Background(), nil, testkit.SingleBranch(t), opts)
	require.NoError(t, err)
	second, err := features.Extract(context.Background(), nil, testkit.Diamond(t), opts)
	require.NoError(t, err)

	assert.Contains(t, reportText(t, first), "Branch ID scope: module")
	assert.Contains(t, reportText(t, first), "BranchID: 0   ")
	assert.Contains(t, reportText(t, second), "BranchID: 1   ")
}

func TestExtract_Deterministic(t *testing.T) {
	for _, build := range []func(testing.TB) *ir.Func{testkit.NestedLoops, testkit.Diamond} {
		a := reportText(t, analyze(t, build(t)).Report())
		b := reportText(t, analyze(t, build(t)).Report())
		assert.Equal(t, a, b)
	}
}

func TestExtract_InvalidFunction(t *testing.T) {
	b := ir.NewBuilder("broken", nil, ir.Void)
	b.SetBlock(b.NewBlock("entry"))
	b.Binary("add", ir.IntConst(ir.I64, 1), ir.IntConst(ir.I64, 1))
	f := b.Func()
	ir.RebuildEdges(f)

	_, err := features.Extract(context.Background(), nil, f, features.Options{})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "broken: "))
}

func TestClassify_MemoryAndCalls(t *testing.T) {
	f := testkit.Diamond(t)
	rep := analyze(t, f).Report()

	load, ok := rep.Record("%v = load i64, ptr %p")
	require.True(t, ok)
	assert.True(t, load.MemAccess)
	assert.True(t, load.RegOperand)
	assert.False(t, load.Immediate)
	assert.Equal(t, 2, load.DistToControlFlow)

	call, ok := rep.Record("call void @sink(i64 %v)")
	require.True(t, ok)
	assert.Equal(t, 2, call.NumOperands)
	assert.True(t, call.MemAccess)
	assert.Equal(t, 0, call.DistToControlFlow)

	join, ok := rep.Record("ret void")
	require.True(t, ok)
	assert.Equal(t, 2, join.NumPreds)
}

func TestClassify_ConditionFromMemory(t *testing.T) {
	b := ir.NewBuilder("flag", []ir.Param{{Name: "p", Type: ir.Ptr}}, ir.Void)
	entry := b.NewBlock("entry")
	exit := b.NewBlock("exit")
	b.SetBlock(entry)
	c := b.Named(b.Load(ir.Bool, b.Param(0)), "c")
	b.CondBr(c, exit, exit)
	b.SetBlock(exit)
	b.Return()
	f, err := b.Finish()
	require.NoError(t, err)

	rep := analyze(t, f).Report()
	br, ok := rep.Record("br i1 %c, label %exit, label %exit")
	require.True(t, ok)
	assert.True(t, br.MemAccess)
	assert.Equal(t, 1, br.NumSuccs)
	exitRec, ok := rep.Record("ret void")
	require.True(t, ok)
	assert.Equal(t, 1, exitRec.NumPreds)
}

func TestCollectDependencies(t *testing.T) {
	f := testkit.NestedLoops(t)
	deps := features.CollectDependencies(f)
	require.Len(t, deps, len(f.Instrs))
	for i := range f.Instrs {
		in := &f.Instrs[i]
		require.NotNil(t, deps[i])
		for _, d := range deps[i] {
			assert.NotNil(t, f.Instr(d))
		}
		onlyLeaves := true
		for _, v := range in.Args {
			if v.Kind == ir.ValueInstr {
				onlyLeaves = false
			}
		}
		if onlyLeaves {
			assert.Empty(t, deps[i], ir.FormatInstr(nil, f, in))
		}
	}
}

func TestCollectDependencies_IgnoresOtherFunctions(t *testing.T) {
	src := testkit.SingleBranch(t)
	m := testkit.Module(t, "m", src)
	foreign := src.Value(0)

	b := ir.NewBuilder("user", nil, ir.I64)
	b.SetBlock(b.NewBlock("entry"))
	sum := b.Binary("add", foreign, ir.IntConst(ir.I64, 1))
	b.Return(sum)
	f, err := b.Finish()
	require.NoError(t, err)
	require.NoError(t, m.Add(f))

	deps := features.CollectDependencies(f)
	assert.Empty(t, deps[0])
	assert.Equal(t, []ir.InstrID{0}, deps[1])
}

func TestCodecRoundTrip(t *testing.T) {
	reports := []*features.FuncReport{
		analyze(t, testkit.NestedLoops(t)).Report(),
		analyze(t, testkit.Diamond(t)).Report(),
	}
	var buf bytes.Buffer
	require.NoError(t, features.EncodeReports(&buf, reports))
	got, err := features.DecodeReports(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range reports {
		assert.Equal(t, reportText(t, reports[i]), reportText(t, got[i]))
		assert.Equal(t, reports[i].Blocks[0].Distance, got[i].Blocks[0].Distance)
	}
}

func TestReport_HeaderNamesDistanceMode(t *testing.T) {
	f := testkit.Diamond(t)
	a, err := features.Analyze(context.Background(), nil, f, features.Options{Mode: features.ModeBidirectional})
	require.NoError(t, err)
	text := reportText(t, a.Report())
	assert.Contains(t, text, "Branch ID scope: function\nDistance mode: bidirectional\n")
	assert.NotEqual(t, text, reportText(t, analyze(t, f).Report()))
}

func TestParseMode(t *testing.T) {
	m, err := features.ParseMode("bidirectional")
	require.NoError(t, err)
	assert.Equal(t, features.ModeBidirectional, m)
	_, err = features.ParseMode("sideways")
	assert.Error(t, err)
}
