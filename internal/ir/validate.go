package ir

import (
	"errors"
	"fmt"

	"branchlab/internal/diag"
)

// ValidateModule checks every defined function of m.
func ValidateModule(m *Module) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, f := range m.Defined() {
		if err := Validate(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Validate checks the structural invariants analyses rely on. The returned
// error joins one *diag.Diagnostic per violation.
func Validate(f *Func) error {
	if f == nil {
		return nil
	}
	if len(f.Blocks) == 0 {
		return diag.Errorf(diag.IRNoBlocks, f.Name, diag.NoBlock, "function has no basic blocks")
	}
	var errs []error
	if f.Block(f.Entry) == nil {
		errs = append(errs, diag.Errorf(diag.IRBadEntry, f.Name, diag.NoBlock, "entry bb%d out of range", f.Entry))
	}
	errs = append(errs, validateOwnership(f)...)
	errs = append(errs, validateTerminators(f)...)
	errs = append(errs, validateOperands(f)...)
	return errors.Join(errs...)
}

func validateOwnership(f *Func) []error {
	var errs []error
	listed := make([]bool, len(f.Instrs))
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		for _, id := range bb.Instrs {
			in := f.Instr(id)
			switch {
			case in == nil:
				errs = append(errs, diag.Errorf(diag.IRInstrOwnership, f.Name, int(bb.ID), "lists missing instruction %%%d", id))
			case in.Block != bb.ID:
				errs = append(errs, diag.Errorf(diag.IRInstrOwnership, f.Name, int(bb.ID), "lists %%%d owned by bb%d", id, in.Block))
			case listed[id]:
				errs = append(errs, diag.Errorf(diag.IRInstrOwnership, f.Name, int(bb.ID), "lists %%%d twice", id))
			default:
				listed[id] = true
			}
		}
	}
	return errs
}

func validateTerminators(f *Func) []error {
	var errs []error
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		blk := int(bb.ID)
		if !bb.Terminated(f) {
			errs = append(errs, diag.Errorf(diag.IRMissingTerminator, f.Name, blk, "block does not end with a terminator"))
		}
		for pos, id := range bb.Instrs {
			in := f.Instr(id)
			if in == nil {
				continue
			}
			if in.Op.IsTerminator() && pos != len(bb.Instrs)-1 {
				errs = append(errs, diag.Errorf(diag.IRTerminatorNotLast, f.Name, blk, "%s at position %d of %d", in.Op, pos, len(bb.Instrs)))
			}
			if err := checkTerminatorShape(in); err != nil {
				errs = append(errs, diag.Errorf(diag.IRBadTarget, f.Name, blk, "%s", err))
			}
			for _, t := range in.Targets {
				if f.Block(t) == nil {
					errs = append(errs, diag.Errorf(diag.IRBadTarget, f.Name, blk, "%s targets missing bb%d", in.Op, t))
				}
			}
			if in.Op == OpCondBr && len(in.Args) == 1 && in.Args[0].Type.Kind != TypeBool {
				errs = append(errs, diag.Errorf(diag.IRBadCondition, f.Name, blk, "condition has type %s", in.Args[0].Type))
			}
		}
	}
	return errs
}

func checkTerminatorShape(in *Instr) error {
	switch in.Op {
	case OpCondBr:
		if len(in.Args) != 1 || len(in.Targets) != 2 {
			return fmt.Errorf("br needs one condition and two targets, has %d and %d", len(in.Args), len(in.Targets))
		}
	case OpBr:
		if len(in.Targets) != 1 {
			return fmt.Errorf("br needs one target, has %d", len(in.Targets))
		}
	case OpSwitch:
		if len(in.Args) != 1 || len(in.Targets) != len(in.Cases)+1 {
			return fmt.Errorf("switch with %d cases has %d targets", len(in.Cases), len(in.Targets))
		}
	case OpIndirectBr:
		if len(in.Args) != 1 {
			return fmt.Errorf("indirectbr needs an address operand")
		}
	case OpInvoke:
		if len(in.Targets) > 1 {
			return fmt.Errorf("invoke has %d continuations", len(in.Targets))
		}
	case OpReturn:
		if len(in.Targets) != 0 {
			return fmt.Errorf("ret has targets")
		}
	case OpPhi:
		if len(in.Incoming) != len(in.Args) {
			return fmt.Errorf("phi has %d values for %d predecessors", len(in.Args), len(in.Incoming))
		}
	default:
		if len(in.Targets) != 0 {
			return fmt.Errorf("%s is not a terminator but has targets", in.Op)
		}
	}
	return nil
}

func validateOperands(f *Func) []error {
	var errs []error
	for i := range f.Instrs {
		in := &f.Instrs[i]
		for _, v := range in.Args {
			if v.Func != f.ID {
				continue
			}
			switch v.Kind {
			case ValueInstr:
				def := f.Instr(v.Instr)
				if def == nil {
					errs = append(errs, diag.Errorf(diag.IRDanglingOperand, f.Name, int(in.Block), "%%%d uses missing %%%d", in.ID, v.Instr))
				} else if !def.HasResult() {
					errs = append(errs, diag.Errorf(diag.IRDanglingOperand, f.Name, int(in.Block), "%%%d uses %%%d which has no result", in.ID, v.Instr))
				}
			case ValueParam:
				if v.Param < 0 || v.Param >= len(f.Params) {
					errs = append(errs, diag.Errorf(diag.IRDanglingOperand, f.Name, int(in.Block), "%%%d uses missing parameter %d", in.ID, v.Param))
				}
			}
		}
		for _, p := range in.Incoming {
			if f.Block(p) == nil {
				errs = append(errs, diag.Errorf(diag.IRBadTarget, f.Name, int(in.Block), "phi %%%d names missing predecessor bb%d", in.ID, p))
			}
		}
	}
	return errs
}
