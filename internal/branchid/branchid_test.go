package branchid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"branchlab/internal/branchid"
	"branchlab/internal/ir"
	"branchlab/internal/testkit"
)

func TestAssign_DenseFromZero(t *testing.T) {
	f := testkit.NestedLoops(t)
	sites := branchid.Assign(f, branchid.NewCounter(0))
	require.Len(t, sites, 2)
	for i, s := range sites {
		assert.Equal(t, uint64(i), s.ID)
		term := f.Blocks[s.Block].Term(f)
		require.NotNil(t, term)
		assert.Equal(t, ir.OpCondBr, term.Op)
		assert.Equal(t, term.ID, s.Branch)
	}
	assert.Less(t, sites[0].Block, sites[1].Block)
}

func TestAssign_NoConditionalBranches(t *testing.T) {
	sites := branchid.Assign(testkit.Sequential(t), branchid.NewCounter(0))
	assert.Empty(t, sites)
}

func TestAllocator_Scopes(t *testing.T) {
	fns := []*ir.Func{testkit.SingleBranch(t), testkit.NestedLoops(t), testkit.Diamond(t)}

	perFunc := branchid.NewAllocator(branchid.ScopeFunction)
	assert.False(t, perFunc.Sequential())
	for _, f := range fns {
		sites := branchid.Assign(f, perFunc.For())
		require.NotEmpty(t, sites)
		assert.Equal(t, uint64(0), sites[0].ID, f.Name)
	}

	perModule := branchid.NewAllocator(branchid.ScopeModule)
	assert.True(t, perModule.Sequential())
	var ids []uint64
	for _, f := range fns {
		for _, s := range branchid.Assign(f, perModule.For()) {
			ids = append(ids, s.ID)
		}
	}
	assert.Equal(t, []uint64{0, 1, 2, 3}, ids)
}

func TestParseScope(t *testing.T) {
	s, err := branchid.ParseScope("module")
	require.NoError(t, err)
	assert.Equal(t, branchid.ScopeModule, s)
	assert.Equal(t, "module", s.String())

	s, err = branchid.ParseScope("")
	require.NoError(t, err)
	assert.Equal(t, branchid.ScopeFunction, s)

	_, err = branchid.ParseScope("global")
	assert.Error(t, err)
}

func TestCounter_StartsAt(t *testing.T) {
	c := branchid.NewCounter(5)
	assert.Equal(t, uint64(5), c.Next())
	assert.Equal(t, uint64(6), c.Peek())
}
