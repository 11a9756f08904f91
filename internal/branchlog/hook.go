package branchlog

import "sync/atomic"

var current atomic.Pointer[Logger]

// Default returns the installed logger, creating one with default options
// on first use.
func Default() *Logger {
	if l := current.Load(); l != nil {
		return l
	}
	current.CompareAndSwap(nil, New(Options{}))
	return current.Load()
}

// Install makes l the target of the process-wide hook functions and
// returns a function restoring the previous logger.
func Install(l *Logger) (restore func()) {
	prev := current.Swap(l)
	return func() { current.Store(prev) }
}

// LogBranchOutcome is the hook instrumented code calls before each
// conditional branch.
func LogBranchOutcome(branchID uint64, taken bool) {
	Default().Log(branchID, taken)
}

// SetProgramName names the running program for the default logger.
func SetProgramName(name string) {
	Default().SetProgramName(name)
}

// Finalize flushes and closes the default logger. Call it at program exit.
func Finalize() error {
	return Default().Close()
}
