package driver

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"branchlab/internal/branchid"
	"branchlab/internal/diag"
	"branchlab/internal/features"
	"branchlab/internal/ir"
	"branchlab/internal/observ"
	"branchlab/internal/trace"
)

// ExtractOptions configures Extract.
type ExtractOptions struct {
	Mode  features.Mode
	Scope branchid.Scope
	// Jobs bounds parallel extraction; 0 means GOMAXPROCS. Module scope
	// always runs sequentially.
	Jobs int
	// Only restricts the reported functions. In module scope every function
	// is still numbered so IDs match a whole-module instrumentation.
	Only           map[string]bool
	Sink           ProgressSink
	Timer          *observ.Timer
	MaxDiagnostics int
}

// FuncResult is the outcome for one function. Report is nil when the
// function failed; its diagnostics are in Bag.
type FuncResult struct {
	Func    string
	Report  *features.FuncReport
	Bag     *diag.Bag
	Elapsed time.Duration
}

// ExtractResult holds per-function results in module order.
type ExtractResult struct {
	Funcs []FuncResult
}

// Reports returns the reports of the functions that succeeded.
func (r *ExtractResult) Reports() []*features.FuncReport {
	out := make([]*features.FuncReport, 0, len(r.Funcs))
	for _, fr := range r.Funcs {
		if fr.Report != nil {
			out = append(out, fr.Report)
		}
	}
	return out
}

// Failed counts functions without a report.
func (r *ExtractResult) Failed() int {
	n := 0
	for _, fr := range r.Funcs {
		if fr.Report == nil {
			n++
		}
	}
	return n
}

// Diagnostics merges every per-function bag in module order.
func (r *ExtractResult) Diagnostics() *diag.Bag {
	all := diag.NewBag(1)
	for _, fr := range r.Funcs {
		all.Merge(fr.Bag)
	}
	return all
}

// Extract analyzes every defined function of m. The returned error is only
// set when ctx is cancelled.
func Extract(ctx context.Context, m *ir.Module, opts ExtractOptions) (*ExtractResult, error) {
	tr := trace.FromContext(ctx)
	span := trace.Begin(tr, trace.ScopePhase, "extract", trace.CurrentSpan(ctx).SpanID)
	defer span.End("")
	ctx = trace.WithSpanContext(ctx, trace.SpanContext{SpanID: span.ID()})

	sw := opts.Timer.Start("extract")

	funcs := m.Defined()
	keep := make([]bool, len(funcs))
	for i, f := range funcs {
		keep[i] = opts.Only == nil || opts.Only[f.Name]
		if keep[i] {
			emit(opts.Sink, Event{Func: f.Name, Stage: StageExtract, Status: StatusQueued})
		}
	}

	alloc := branchid.NewAllocator(opts.Scope)
	results := make([]FuncResult, len(funcs))
	one := func(ctx context.Context, i int) {
		f := funcs[i]
		start := time.Now()
		if keep[i] {
			emit(opts.Sink, Event{Func: f.Name, Stage: StageExtract, Status: StatusWorking})
		}
		bag := diag.NewBag(opts.MaxDiagnostics)
		rep, err := features.Extract(ctx, m, f, features.Options{Mode: opts.Mode, Scope: opts.Scope, Seq: alloc.For()})
		bag.AddError(f.Name, err)
		results[i] = FuncResult{Func: f.Name, Report: rep, Bag: bag, Elapsed: time.Since(start)}
		if !keep[i] {
			return
		}
		status := StatusDone
		if err != nil {
			status = StatusError
		}
		emit(opts.Sink, Event{Func: f.Name, Stage: StageExtract, Status: status, Err: err, Elapsed: results[i].Elapsed})
	}

	if alloc.Sequential() {
		for i := range funcs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			one(ctx, i)
		}
	} else {
		jobs := opts.Jobs
		if jobs <= 0 {
			jobs = runtime.GOMAXPROCS(0)
		}
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(1, min(jobs, len(funcs))))
		for i := range funcs {
			if !keep[i] {
				continue
			}
			g.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				// Each index is written by exactly one goroutine.
				one(gctx, i)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	out := &ExtractResult{Funcs: make([]FuncResult, 0, len(funcs))}
	for i := range funcs {
		if keep[i] {
			out.Funcs = append(out.Funcs, results[i])
		}
	}
	sw.Stop(timerNote(opts.Scope, out.Funcs))
	span.WithExtra("functions", fmtInt(len(out.Funcs))).WithExtra("failed", fmtInt(out.Failed()))
	if n := out.Failed(); n > 0 {
		emit(opts.Sink, Event{Stage: StageExtract, Status: StatusError, Err: fmt.Errorf("%d of %d functions failed", n, len(out.Funcs))})
	} else {
		emit(opts.Sink, Event{Stage: StageExtract, Status: StatusDone})
	}
	return out, nil
}

func fmtInt(n int) string { return strconv.Itoa(n) }

// timerNote names the scope and the slowest function of an extraction.
func timerNote(scope branchid.Scope, funcs []FuncResult) string {
	note := scope.String() + " scope"
	var slowest *FuncResult
	for i := range funcs {
		if slowest == nil || funcs[i].Elapsed > slowest.Elapsed {
			slowest = &funcs[i]
		}
	}
	if slowest != nil {
		note += fmt.Sprintf(", slowest %s %s", slowest.Func, slowest.Elapsed.Round(time.Microsecond))
	}
	return note
}
