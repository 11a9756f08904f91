package features

import (
	"context"
	"fmt"
	"strings"

	"branchlab/internal/ir"
	"branchlab/internal/trace"
)

// LabelBlocks assigns a display label to every block. Labels are recovered
// from the rendered text of branches targeting a block; blocks no branch
// names fall back to their structural name, then to "<unnamed_N>".
// Distinct blocks may end up with the same label.
func LabelBlocks(ctx context.Context, m *ir.Module, f *ir.Func) []string {
	labels := make([]string, len(f.Blocks))
	placeholder := make([]string, len(f.Blocks))
	for i := range labels {
		placeholder[i] = fmt.Sprintf("<unnamed_%d>", i)
		labels[i] = placeholder[i]
	}

	for i := range f.Blocks {
		bb := &f.Blocks[i]
		term := bb.Term(f)
		if term == nil || (term.Op != ir.OpCondBr && term.Op != ir.OpBr) {
			continue
		}
		targets := branchTargets(ir.FormatInstr(m, f, term))
		for k, succ := range bb.Succs {
			if k < len(targets) {
				labels[succ] = targets[k]
			}
		}
	}

	for i := range f.Blocks {
		name := f.Blocks[i].Name
		if labels[i] == placeholder[i] && name != "" && name != "0" {
			labels[i] = name
		}
	}

	tr := trace.FromContext(ctx)
	if tr.Level() >= trace.LevelDebug {
		parent := trace.CurrentSpan(ctx).SpanID
		for i := range f.Blocks {
			first := "<empty>"
			if ids := f.Blocks[i].Instrs; len(ids) > 0 {
				first = ir.FormatInstr(m, f, f.Instr(ids[0]))
			}
			trace.Point(tr, trace.ScopeAnalysis, "label", fmt.Sprintf("BB: %s starts with %s", labels[i], first), parent)
		}
	}
	return labels
}

// branchTargets returns the names following each "label %" in text.
func branchTargets(text string) []string {
	const marker = "label %"
	var out []string
	for {
		i := strings.Index(text, marker)
		if i < 0 {
			return out
		}
		text = text[i+len(marker):]
		end := strings.IndexAny(text, ", \n]")
		if end < 0 {
			end = len(text)
		}
		out = append(out, text[:end])
		text = text[end:]
	}
}
