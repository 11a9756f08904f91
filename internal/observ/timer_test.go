package observ

import (
	"strings"
	"sync"
	"testing"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	load := tm.Start("load")
	lower := load.Child("lower")
	lower.Stop("")
	load.Stop("3 packages")
	load.Stop("ignored")
	tm.Start("extract").Stop("")

	rep := tm.Report()
	if len(rep.Phases) != 3 {
		t.Fatalf("phases = %d, want 3", len(rep.Phases))
	}
	if rep.Phases[0].Name != "load" || rep.Phases[0].Note != "3 packages" {
		t.Errorf("first phase = %+v", rep.Phases[0])
	}
	if rep.Phases[1].Name != "lower" || rep.Phases[1].Depth != 1 {
		t.Errorf("nested phase = %+v", rep.Phases[1])
	}
	want := rep.Phases[0].DurationMS + rep.Phases[2].DurationMS
	if diff := rep.TotalMS - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("total %.6f, want top-level sum %.6f", rep.TotalMS, want)
	}

	sum := tm.Summary()
	for _, want := range []string{"timings:", "load", "    lower", "3 packages", "extract", "total", "%"} {
		if !strings.Contains(sum, want) {
			t.Errorf("summary missing %q:\n%s", want, sum)
		}
	}
}

func TestNilTimerIsInert(t *testing.T) {
	var tm *Timer
	sw := tm.Start("load")
	sw.Child("lower").Stop("x")
	sw.Stop("y")
	if rep := tm.Report(); len(rep.Phases) != 0 || rep.TotalMS != 0 {
		t.Errorf("nil report = %+v", rep)
	}
}

func TestEmptyTimer(t *testing.T) {
	if rep := NewTimer().Report(); len(rep.Phases) != 0 || rep.TotalMS != 0 {
		t.Errorf("empty report = %+v", rep)
	}
}

func TestTimerConcurrentChildren(t *testing.T) {
	tm := NewTimer()
	parent := tm.Start("extract")
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			parent.Child("func").Stop("")
		}()
	}
	wg.Wait()
	parent.Stop("")
	if got := len(tm.Report().Phases); got != 17 {
		t.Errorf("phases = %d, want 17", got)
	}
}
