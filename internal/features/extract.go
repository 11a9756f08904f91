package features

import (
	"context"
	"fmt"

	"branchlab/internal/branchid"
	"branchlab/internal/ir"
	"branchlab/internal/trace"
)

// Options controls one extraction.
type Options struct {
	Mode Mode
	// Scope is reported in the header; it does not change numbering.
	Scope branchid.Scope
	// Seq supplies branch IDs. A nil Seq numbers from 0.
	Seq branchid.Sequence
}

// Analysis holds every intermediate result for one function.
type Analysis struct {
	Module    *ir.Module
	Func      *ir.Func
	Options   Options
	Labels    []string
	Nest      *ir.LoopNest
	BlockDist []int
	Sites     []branchid.Site
	Deps      [][]ir.InstrID
	Records   []Record
}

// Analyze validates f and runs every analysis over it. m may be nil when f
// does not belong to a module.
func Analyze(ctx context.Context, m *ir.Module, f *ir.Func, opts Options) (*Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tr := trace.FromContext(ctx)
	span := trace.Begin(tr, trace.ScopeFunc, "func:"+f.Name, trace.CurrentSpan(ctx).SpanID)
	defer span.End("")
	ctx = trace.WithSpanContext(ctx, trace.SpanContext{SpanID: span.ID()})

	if err := ir.Validate(f); err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}
	seq := opts.Seq
	if seq == nil {
		seq = branchid.NewCounter(0)
	}

	a := &Analysis{
		Module:  m,
		Func:    f,
		Options: opts,
		Records: make([]Record, len(f.Instrs)),
	}
	phase := func(name string, fn func()) {
		s := trace.Begin(tr, trace.ScopeAnalysis, name, span.ID())
		fn()
		s.End("")
	}
	phase("labels", func() { a.Labels = LabelBlocks(ctx, m, f) })
	phase("loops", func() {
		a.Nest = ir.ComputeLoops(f)
		AnnotateLoops(f, a.Nest, a.Records)
	})
	phase("distance", func() { a.BlockDist = PropagatorFor(opts.Mode).Propagate(f, a.Records) })
	phase("branch-ids", func() { a.Sites = branchid.Assign(f, seq) })
	phase("deps", func() { a.Deps = CollectDependencies(f) })
	phase("classify", func() { Classify(f, a.Records) })
	span.WithExtra("blocks", fmt.Sprint(len(f.Blocks))).WithExtra("branches", fmt.Sprint(len(a.Sites)))
	return a, nil
}

// Extract analyzes f and builds its report.
func Extract(ctx context.Context, m *ir.Module, f *ir.Func, opts Options) (*FuncReport, error) {
	a, err := Analyze(ctx, m, f, opts)
	if err != nil {
		return nil, err
	}
	return a.Report(), nil
}

// Report renders the analysis into block and instruction order.
func (a *Analysis) Report() *FuncReport {
	f := a.Func
	branchOf := make(map[ir.InstrID]uint64, len(a.Sites))
	for _, s := range a.Sites {
		branchOf[s.Branch] = s.ID
	}
	rep := &FuncReport{
		Func:   f.Name,
		Scope:  a.Options.Scope.String(),
		Mode:   a.Options.Mode.String(),
		Blocks: make([]BlockReport, 0, len(f.Blocks)),
	}
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		br := BlockReport{
			Label:    a.Labels[i],
			Distance: a.BlockDist[i],
			Instrs:   make([]InstrReport, 0, len(bb.Instrs)),
		}
		for _, id := range bb.Instrs {
			in := f.Instr(id)
			rec := InstrReport{
				Text:   ir.FormatInstr(a.Module, f, in),
				Record: a.Records[id],
			}
			if bid, ok := branchOf[id]; ok {
				rec.HasBranchID = true
				rec.BranchID = bid
			}
			for _, dep := range a.Deps[id] {
				rec.Deps = append(rec.Deps, ir.FormatInstr(a.Module, f, f.Instr(dep)))
			}
			br.Instrs = append(br.Instrs, rec)
		}
		rep.Blocks = append(rep.Blocks, br)
	}
	return rep
}
