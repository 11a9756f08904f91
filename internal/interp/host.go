package interp

import (
	"fmt"

	"fortio.org/safecast"

	"branchlab/internal/branchlog"
	"branchlab/internal/instrument"
)

// BindBranchLogger routes the instrumentation hook to l.
func BindBranchLogger(vm *VM, l *branchlog.Logger) {
	vm.RegisterHost(instrument.HookName, func(args []Value) (Value, error) {
		if len(args) != 2 || args[0].Kind != VKInt || args[1].Kind != VKBool {
			return Value{}, fmt.Errorf("want (i64, i1), got %d arguments", len(args))
		}
		id, err := safecast.Conv[uint64](args[0].Int)
		if err != nil {
			return Value{}, fmt.Errorf("branch id: %w", err)
		}
		l.Log(id, args[1].Bool)
		return MakeVoid(), nil
	})
}
