// Package features computes per-instruction control-flow features of a
// function and renders them as a report.
package features

import (
	"fmt"
	"strings"
)

// MaxDistance is the distance assigned when no control-flow instruction is
// reachable.
const MaxDistance = 999

// Record is the feature vector of one instruction.
type Record struct {
	InLoop            bool `msgpack:"in_loop"`
	LoopDepth         int  `msgpack:"loop_depth"`
	DistToControlFlow int  `msgpack:"dist"`
	NumPreds          int  `msgpack:"preds"`
	NumSuccs          int  `msgpack:"succs"`
	NumOperands       int  `msgpack:"operands"`
	MemAccess         bool `msgpack:"mem"`
	RegOperand        bool `msgpack:"reg"`
	Immediate         bool `msgpack:"imm"`
}

func bit(b bool) int {
	if b {
		return 1
	}
	return 0
}

// String renders the bracketed feature list used in text reports.
func (r Record) String() string {
	return fmt.Sprintf("[in_loop: %d, dist_to_control_flow: %d, num_preds_BB: %d, num_succs_BB: %d, loop_depth_BB: %d, op_is_mem_access: %d, op_is_reg_operand: %d, op_is_immediate: %d, num_operands: %d]",
		bit(r.InLoop), r.DistToControlFlow, r.NumPreds, r.NumSuccs, r.LoopDepth,
		bit(r.MemAccess), bit(r.RegOperand), bit(r.Immediate), r.NumOperands)
}

// Mode selects how block distances propagate.
type Mode uint8

const (
	// ModeBackward relaxes distances across predecessor edges only.
	ModeBackward Mode = iota
	// ModeBidirectional relaxes across predecessor and successor edges.
	ModeBidirectional
)

func (m Mode) String() string {
	switch m {
	case ModeBackward:
		return "backward"
	case ModeBidirectional:
		return "bidirectional"
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// ParseMode parses "backward" or "bidirectional".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "backward":
		return ModeBackward, nil
	case "bidirectional", "both":
		return ModeBidirectional, nil
	}
	return ModeBackward, fmt.Errorf("unknown distance mode %q (want backward or bidirectional)", s)
}
