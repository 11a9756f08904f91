package driver

import (
	"context"
	"strings"
	"time"

	"branchlab/internal/diag"
	"branchlab/internal/ir"
	"branchlab/internal/observ"
	"branchlab/internal/ssaload"
	"branchlab/internal/trace"
)

// LoadOptions configures Load.
type LoadOptions struct {
	ssaload.LoadConfig
	Sink           ProgressSink
	Timer          *observ.Timer
	MaxDiagnostics int
}

// Load builds the ir module for the configured packages. Functions that
// cannot be lowered are reported in the returned bag and left out of the
// module. The error is set only when nothing could be loaded.
func Load(ctx context.Context, opts LoadOptions) (*ir.Module, *diag.Bag, error) {
	tr := trace.FromContext(ctx)
	span := trace.Begin(tr, trace.ScopePhase, "load", trace.CurrentSpan(ctx).SpanID)
	defer span.End("")
	ctx = trace.WithSpanContext(ctx, trace.SpanContext{SpanID: span.ID()})

	bag := diag.NewBag(opts.MaxDiagnostics)
	name := moduleName(opts.LoadConfig)

	start := time.Now()
	emit(opts.Sink, Event{Stage: StageLoad, Status: StatusWorking})
	sw := opts.Timer.Start("load")
	fns, err := ssaload.Load(ctx, opts.LoadConfig)
	sw.Stop(name)
	if err != nil {
		emit(opts.Sink, Event{Stage: StageLoad, Status: StatusError, Err: err, Elapsed: time.Since(start)})
		return nil, bag, diag.Errorf(diag.LoadPackageErrors, "", diag.NoBlock, "%v", err)
	}
	if len(fns) == 0 {
		err := diag.Errorf(diag.LoadNoFunctions, "", diag.NoBlock, "%s defines no functions", name)
		emit(opts.Sink, Event{Stage: StageLoad, Status: StatusError, Err: err, Elapsed: time.Since(start)})
		return nil, bag, err
	}
	emit(opts.Sink, Event{Stage: StageLoad, Status: StatusDone, Elapsed: time.Since(start)})

	sw = opts.Timer.Start("lower")
	m, err := ssaload.LowerFunctions(name, fns)
	sw.Stop(fmtInt(len(fns)) + " functions")
	bag.AddError("", err)
	span.WithExtra("functions", fmtInt(len(m.Defined())))
	return m, bag, nil
}

func moduleName(cfg ssaload.LoadConfig) string {
	if len(cfg.Patterns) > 0 {
		return strings.Join(cfg.Patterns, " ")
	}
	if cfg.Dir != "" {
		return cfg.Dir
	}
	return "."
}
