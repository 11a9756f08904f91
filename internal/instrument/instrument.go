// Package instrument rewrites functions so every conditional branch reports
// its outcome to the logging hook before it executes.
package instrument

import (
	"context"
	"errors"
	"fmt"

	"fortio.org/safecast"

	"branchlab/internal/branchid"
	"branchlab/internal/diag"
	"branchlab/internal/ir"
	"branchlab/internal/trace"
)

// HookName is the external function instrumented code calls.
const HookName = "logBranchOutcome"

// HookParams is the hook signature: branch ID and outcome.
var HookParams = []ir.Type{ir.I64, ir.Bool}

// Probe links a numbered branch to the hook call inserted before it.
type Probe struct {
	branchid.Site
	Call ir.InstrID
}

// Result describes the rewrite of one function.
type Result struct {
	Func   string
	Probes []Probe
}

// DeclareHook returns the module's hook declaration, adding it when absent.
func DeclareHook(m *ir.Module) (*ir.Func, error) {
	hook, err := m.DeclareFunc(HookName, HookParams, ir.Void)
	if err != nil {
		return nil, diag.Errorf(diag.IRHookSignature, HookName, diag.NoBlock, "%v", err)
	}
	return hook, nil
}

// Func inserts a hook call before every conditional branch of f, numbering
// branches from seq. f must belong to m. Either every branch is
// instrumented or f is left unchanged.
func Func(m *ir.Module, f *ir.Func, seq branchid.Sequence) (*Result, error) {
	if err := ir.Validate(f); err != nil {
		return nil, fmt.Errorf("instrument %s: %w", f.Name, err)
	}
	if _, err := DeclareHook(m); err != nil {
		return nil, fmt.Errorf("instrument %s: %w", f.Name, err)
	}

	sites := branchid.Assign(f, seq)
	calls := make([]ir.Instr, len(sites))
	var errs []error
	for i, s := range sites {
		br := f.Instr(s.Branch)
		cond, ok := br.Condition()
		if !ok || cond.Type.Kind != ir.TypeBool {
			errs = append(errs, diag.Errorf(diag.IRBadCondition, f.Name, int(s.Block), "branch %d has no boolean condition", s.ID))
			continue
		}
		id, err := safecast.Conv[int64](s.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("branch id %d: %w", s.ID, err))
			continue
		}
		calls[i] = ir.Instr{
			Op:     ir.OpCall,
			Opcode: "call",
			Type:   ir.Void,
			Callee: HookName,
			Args:   []ir.Value{ir.IntConst(ir.I64, id), cond},
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("instrument %s: %w", f.Name, err)
	}

	res := &Result{Func: f.Name, Probes: make([]Probe, 0, len(sites))}
	for i, s := range sites {
		call, err := f.InsertBefore(s.Branch, calls[i])
		if err != nil {
			return nil, fmt.Errorf("instrument %s: %w", f.Name, err)
		}
		res.Probes = append(res.Probes, Probe{Site: s, Call: call})
	}
	return res, nil
}

// Module instruments every defined function of m in module order.
// Functions that fail are reported in the joined error; the others are
// still rewritten.
func Module(ctx context.Context, m *ir.Module, alloc *branchid.Allocator) ([]*Result, error) {
	tr := trace.FromContext(ctx)
	span := trace.Begin(tr, trace.ScopePhase, "instrument", trace.CurrentSpan(ctx).SpanID)
	defer span.End("")

	if _, err := DeclareHook(m); err != nil {
		return nil, err
	}
	var (
		results []*Result
		errs    []error
	)
	for _, f := range m.Defined() {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := Func(m, f, alloc.For())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	span.WithExtra("functions", fmt.Sprint(len(results)))
	return results, errors.Join(errs...)
}
