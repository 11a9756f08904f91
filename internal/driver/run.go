package driver

import (
	"context"
	"fmt"
	"io"
	"time"

	"branchlab/internal/branchid"
	"branchlab/internal/branchlog"
	"branchlab/internal/diag"
	"branchlab/internal/instrument"
	"branchlab/internal/interp"
	"branchlab/internal/ir"
	"branchlab/internal/ssaload"
	"branchlab/internal/trace"
)

// Instrument rewrites every defined function of m in place. Functions that
// fail are reported in the bag and left untouched.
func Instrument(ctx context.Context, m *ir.Module, scope branchid.Scope, sink ProgressSink) ([]*instrument.Result, *diag.Bag, error) {
	bag := diag.NewBag(0)
	start := time.Now()
	emit(sink, Event{Stage: StageInstrument, Status: StatusWorking})
	results, err := instrument.Module(ctx, m, branchid.NewAllocator(scope))
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, bag, ctxErr
	}
	bag.AddError("", err)
	status := StatusDone
	if err != nil {
		status = StatusError
	}
	emit(sink, Event{Stage: StageInstrument, Status: status, Err: err, Elapsed: time.Since(start)})
	return results, bag, nil
}

// RunOptions configures Run.
type RunOptions struct {
	Func   string
	Args   []int64
	Repeat int
	// Logger receives branch outcomes; nil runs without logging.
	Logger   *branchlog.Logger
	MaxSteps int
	Trace    io.Writer
	Sink     ProgressSink
}

// RunResult holds the value of each call.
type RunResult struct {
	Func   string
	Values []interp.Value
	Steps  int
}

// Run calls opts.Func on an already instrumented module Repeat times.
func Run(ctx context.Context, m *ir.Module, opts RunOptions) (*RunResult, error) {
	tr := trace.FromContext(ctx)
	span := trace.Begin(tr, trace.ScopePhase, "run", trace.CurrentSpan(ctx).SpanID)
	defer span.End("")

	f, err := ssaload.Lookup(m, opts.Func)
	if err != nil {
		return nil, err
	}
	args := make([]interp.Value, len(opts.Args))
	for i, a := range opts.Args {
		args[i] = interp.MakeInt(a)
	}
	vm := interp.New(m, interp.Options{MaxSteps: opts.MaxSteps, Trace: opts.Trace})
	if opts.Logger != nil {
		interp.BindBranchLogger(vm, opts.Logger)
	}

	repeat := max(opts.Repeat, 1)
	res := &RunResult{Func: f.Name, Values: make([]interp.Value, 0, repeat)}
	start := time.Now()
	emit(opts.Sink, Event{Func: f.Name, Stage: StageRun, Status: StatusWorking})
	for i := 0; i < repeat; i++ {
		v, err := vm.Call(ctx, f.Name, args...)
		res.Steps += vm.Steps()
		if err != nil {
			err = fmt.Errorf("%s: run %d: %w", f.Name, i+1, err)
			emit(opts.Sink, Event{Func: f.Name, Stage: StageRun, Status: StatusError, Err: err, Elapsed: time.Since(start)})
			return res, err
		}
		res.Values = append(res.Values, v)
	}
	emit(opts.Sink, Event{Func: f.Name, Stage: StageRun, Status: StatusDone, Elapsed: time.Since(start)})
	span.WithExtra("steps", fmtInt(res.Steps))
	return res, nil
}
