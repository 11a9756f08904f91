package driver_test

import (
	"bytes"
	"context"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"branchlab/internal/branchid"
	"branchlab/internal/branchlog"
	"branchlab/internal/diag"
	"branchlab/internal/driver"
	"branchlab/internal/features"
	"branchlab/internal/interp"
	"branchlab/internal/observ"
	"branchlab/internal/ssaload"
	"branchlab/internal/testkit"
)

type recorder struct {
	mu     sync.Mutex
	events []driver.Event
}

func (r *recorder) OnEvent(ev driver.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) statuses(fn string) []driver.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []driver.Status
	for _, ev := range r.events {
		if ev.Func == fn {
			out = append(out, ev.Status)
		}
	}
	return out
}

func TestExtract_IsolatesFailingFunction(t *testing.T) {
	m := testkit.Module(t, "m", testkit.SingleBranch(t), testkit.Unterminated(t), testkit.NestedLoops(t))
	rec := &recorder{}
	res, err := driver.Extract(context.Background(), m, driver.ExtractOptions{Jobs: 4, Sink: rec})
	require.NoError(t, err)

	require.Len(t, res.Funcs, 3)
	assert.Equal(t, []string{"pick", "broken", "nested"}, []string{res.Funcs[0].Func, res.Funcs[1].Func, res.Funcs[2].Func})
	assert.NotNil(t, res.Funcs[0].Report)
	assert.Nil(t, res.Funcs[1].Report)
	assert.NotNil(t, res.Funcs[2].Report)
	assert.Equal(t, 1, res.Failed())
	assert.Len(t, res.Reports(), 2)

	bag := res.Diagnostics()
	require.True(t, bag.HasErrors())
	assert.Equal(t, diag.IRMissingTerminator, bag.Items()[0].Code)
	assert.Equal(t, "broken", bag.Items()[0].Func)

	assert.Equal(t, []driver.Status{driver.StatusQueued, driver.StatusWorking, driver.StatusError}, rec.statuses("broken"))
	assert.Equal(t, []driver.Status{driver.StatusQueued, driver.StatusWorking, driver.StatusDone}, rec.statuses("pick"))
}

func TestExtract_ParallelMatchesSequentialOutput(t *testing.T) {
	build := func() *driver.ExtractResult {
		m := testkit.Module(t, "m", testkit.SingleBranch(t), testkit.NestedLoops(t), testkit.ThreeBlockLoop(t), testkit.Diamond(t))
		res, err := driver.Extract(context.Background(), m, driver.ExtractOptions{Jobs: 3})
		require.NoError(t, err)
		return res
	}
	var first bytes.Buffer
	require.NoError(t, features.WriteTextAll(&first, build().Reports()))
	for i := 0; i < 5; i++ {
		var again bytes.Buffer
		require.NoError(t, features.WriteTextAll(&again, build().Reports()))
		assert.Equal(t, first.String(), again.String())
	}
}

func TestExtract_ModuleScopeNumbersFilteredOutFunctions(t *testing.T) {
	m := testkit.Module(t, "m", testkit.SingleBranch(t), testkit.NestedLoops(t), testkit.ThreeBlockLoop(t))
	res, err := driver.Extract(context.Background(), m, driver.ExtractOptions{
		Scope: branchid.ScopeModule,
		Only:  map[string]bool{"loop3": true},
	})
	require.NoError(t, err)
	require.Len(t, res.Funcs, 1)

	// pick owns ID 0 and nested owns 1 and 2, so loop3's only branch is 3.
	var ids []uint64
	for _, blk := range res.Funcs[0].Report.Blocks {
		for _, in := range blk.Instrs {
			if in.HasBranchID {
				ids = append(ids, in.BranchID)
			}
		}
	}
	assert.Equal(t, []uint64{3}, ids)
}

func TestExtract_RecordsTimerPhase(t *testing.T) {
	m := testkit.Module(t, "m", testkit.Sequential(t))
	timer := observ.NewTimer()
	_, err := driver.Extract(context.Background(), m, driver.ExtractOptions{Timer: timer})
	require.NoError(t, err)
	rep := timer.Report()
	require.Len(t, rep.Phases, 1)
	assert.Equal(t, "extract", rep.Phases[0].Name)
	assert.True(t, strings.HasPrefix(rep.Phases[0].Note, "function scope, slowest "), rep.Phases[0].Note)
}

func TestExtract_Cancelled(t *testing.T) {
	m := testkit.Module(t, "m", testkit.SingleBranch(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := driver.Extract(ctx, m, driver.ExtractOptions{Scope: branchid.ScopeModule})
	assert.ErrorIs(t, err, context.Canceled)
}

const loopSrc = `package sample

func count(n int) int {
	c := 0
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			c++
		}
	}
	return c
}
`

func TestInstrumentAndRun_LogsEveryBranch(t *testing.T) {
	fns, err := ssaload.ParseSource("sample.go", []byte(loopSrc))
	require.NoError(t, err)
	m, err := ssaload.LowerFunctions("sample", fns)
	require.NoError(t, err)

	results, bag, err := driver.Instrument(context.Background(), m, branchid.ScopeFunction, nil)
	require.NoError(t, err)
	assert.False(t, bag.HasErrors())
	require.Len(t, results, 1)
	require.Len(t, results[0].Probes, 2)

	dir := t.TempDir()
	logger := branchlog.New(branchlog.Options{Dir: dir, Program: "count"})
	res, err := driver.Run(context.Background(), m, driver.RunOptions{Func: "count", Args: []int64{3}, Repeat: 2, Logger: logger})
	require.NoError(t, err)
	require.NoError(t, logger.Close())
	assert.Equal(t, []interp.Value{interp.MakeInt(2), interp.MakeInt(2)}, res.Values)

	data, err := os.ReadFile(branchlog.PathFor(dir, "count"))
	require.NoError(t, err)
	// Per call: the loop test runs 4 times and the parity test 3 times.
	assert.Equal(t, 2*(4+3), bytes.Count(data, []byte("\n")))
}

func TestRun_UnknownFunction(t *testing.T) {
	m := testkit.Module(t, "m", testkit.SingleBranch(t))
	_, err := driver.Run(context.Background(), m, driver.RunOptions{Func: "missing"})
	assert.Error(t, err)
}
