package interp

import (
	"fmt"
	"strings"
)

// PanicCode identifies the kind of runtime failure.
type PanicCode int

// Stable panic codes; do not renumber.
const (
	PanicTypeMismatch  PanicCode = 1001 // VM1001: operand has the wrong kind
	PanicUnknownFunc   PanicCode = 1002 // VM1002: callee neither defined nor hosted
	PanicUnsupported   PanicCode = 1003 // VM1003: instruction the interpreter cannot run
	PanicBadMemory     PanicCode = 1004 // VM1004: nil or dangling pointer
	PanicDivideByZero  PanicCode = 1005 // VM1005: integer division by zero
	PanicStepLimit     PanicCode = 1006 // VM1006: step budget exhausted
	PanicExplicit      PanicCode = 1007 // VM1007: program called panic
	PanicStackOverflow PanicCode = 1008 // VM1008: call depth exceeded
	PanicHost          PanicCode = 1009 // VM1009: host function failed
)

func (c PanicCode) String() string {
	return fmt.Sprintf("VM%d", int(c))
}

// BacktraceFrame is one active call when a panic occurred.
type BacktraceFrame struct {
	FuncName string
	Block    string
}

// VMError is a runtime failure with the call stack at the failure point.
type VMError struct {
	Code      PanicCode
	Message   string
	Backtrace []BacktraceFrame
}

func (e *VMError) Error() string {
	return fmt.Sprintf("panic %s: %s", e.Code, e.Message)
}

// Format renders the error with its backtrace, innermost frame first.
func (e *VMError) Format() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "panic %s: %s\n", e.Code, e.Message)
	if len(e.Backtrace) > 0 {
		sb.WriteString("backtrace:\n")
		for i, fr := range e.Backtrace {
			fmt.Fprintf(&sb, "  %d: %s at %%%s\n", i, fr.FuncName, fr.Block)
		}
	}
	return sb.String()
}

func (vm *VM) errorf(code PanicCode, format string, args ...any) *VMError {
	e := &VMError{Code: code, Message: fmt.Sprintf(format, args...)}
	for i := len(vm.stack) - 1; i >= 0; i-- {
		fr := vm.stack[i]
		e.Backtrace = append(e.Backtrace, BacktraceFrame{FuncName: fr.Func.Name, Block: labelOf(fr.Func, fr.BB)})
	}
	return e
}
