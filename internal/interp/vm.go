package interp

import (
	"context"
	"errors"
	"fmt"
	"io"

	"fortio.org/safecast"

	"branchlab/internal/ir"
)

// HostFunc implements an external function in Go.
type HostFunc func(args []Value) (Value, error)

// Options configures execution.
type Options struct {
	// MaxSteps bounds the number of executed instructions per Call; 0
	// selects DefaultMaxSteps.
	MaxSteps int
	// MaxDepth bounds the call depth; 0 selects DefaultMaxDepth.
	MaxDepth int
	// Trace receives one line per executed instruction when non-nil.
	Trace io.Writer
}

const (
	DefaultMaxSteps = 50_000_000
	DefaultMaxDepth = 1024
)

// Frame is one function activation.
type Frame struct {
	Func *ir.Func
	BB   ir.BlockID
	Prev ir.BlockID
	IP   int
	Args []Value
	Vals []Value
}

func newFrame(fn *ir.Func, args []Value) *Frame {
	return &Frame{
		Func: fn,
		BB:   fn.Entry,
		Prev: ir.NoBlockID,
		Args: args,
		Vals: make([]Value, len(fn.Instrs)),
	}
}

// VM interprets the functions of one module.
type VM struct {
	M     *ir.Module
	opts  Options
	hosts map[string]HostFunc
	mem   []Value
	stack []*Frame
	steps int
	ctx   context.Context
}

// New creates a VM for m.
func New(m *ir.Module, opts Options) *VM {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	return &VM{
		M:     m,
		opts:  opts,
		hosts: make(map[string]HostFunc),
		mem:   []Value{{}},
	}
}

// RegisterHost binds name to fn. Host functions take precedence over
// declarations but not over defined functions.
func (vm *VM) RegisterHost(name string, fn HostFunc) {
	vm.hosts[name] = fn
}

// Steps reports the instructions executed by the last Call.
func (vm *VM) Steps() int { return vm.steps }

// Call runs the function called name with args and returns its result.
// Runtime failures are returned as *VMError.
func (vm *VM) Call(ctx context.Context, name string, args ...Value) (Value, error) {
	vm.steps = 0
	vm.stack = vm.stack[:0]
	vm.ctx = ctx
	v, vmErr := vm.call(name, args)
	if vmErr != nil {
		return Value{}, vmErr
	}
	return v, nil
}

func (vm *VM) call(name string, args []Value) (Value, *VMError) {
	fn := vm.M.Func(name)
	if fn != nil && !fn.External() {
		return vm.run(fn, args)
	}
	if host, ok := vm.hosts[name]; ok {
		v, err := host(args)
		if err != nil {
			var vmErr *VMError
			if errors.As(err, &vmErr) {
				return Value{}, vmErr
			}
			return Value{}, vm.errorf(PanicHost, "%s: %v", name, err)
		}
		return v, nil
	}
	if name == "panic" {
		msg := "panic"
		if len(args) > 0 {
			msg = args[0].String()
		}
		return Value{}, vm.errorf(PanicExplicit, "%s", msg)
	}
	return Value{}, vm.errorf(PanicUnknownFunc, "no function %q", name)
}

func (vm *VM) run(fn *ir.Func, args []Value) (Value, *VMError) {
	if len(vm.stack) >= vm.opts.MaxDepth {
		return Value{}, vm.errorf(PanicStackOverflow, "call depth %d exceeded", vm.opts.MaxDepth)
	}
	if len(args) != len(fn.Params) {
		return Value{}, vm.errorf(PanicTypeMismatch, "%s takes %d arguments, got %d", fn.Name, len(fn.Params), len(args))
	}
	fr := newFrame(fn, args)
	vm.stack = append(vm.stack, fr)
	defer func() { vm.stack = vm.stack[:len(vm.stack)-1] }()

	for {
		bb := fn.Block(fr.BB)
		if bb == nil {
			return Value{}, vm.errorf(PanicUnsupported, "%s: jump to missing bb%d", fn.Name, fr.BB)
		}
		if vmErr := vm.enterBlock(fr, bb); vmErr != nil {
			return Value{}, vmErr
		}
		jumped := false
		for fr.IP < len(bb.Instrs) {
			in := fn.Instr(bb.Instrs[fr.IP])
			if vmErr := vm.tick(fr, in); vmErr != nil {
				return Value{}, vmErr
			}
			if in.Op.IsTerminator() {
				next, ret, done, vmErr := vm.terminate(fr, in)
				if vmErr != nil {
					return Value{}, vmErr
				}
				if done {
					return ret, nil
				}
				fr.Prev, fr.BB, fr.IP = fr.BB, next, 0
				jumped = true
				break
			}
			if in.Op != ir.OpPhi {
				v, vmErr := vm.exec(fr, in)
				if vmErr != nil {
					return Value{}, vmErr
				}
				fr.Vals[in.ID] = v
			}
			fr.IP++
		}
		if !jumped {
			return Value{}, vm.errorf(PanicUnsupported, "%s: fell off the end of %%%s", fn.Name, labelOf(fn, bb.ID))
		}
	}
}

// enterBlock evaluates the leading phis of bb as one parallel assignment.
func (vm *VM) enterBlock(fr *Frame, bb *ir.Block) *VMError {
	type pending struct {
		id ir.InstrID
		v  Value
	}
	var set []pending
	for _, id := range bb.Instrs {
		in := fr.Func.Instr(id)
		if in.Op != ir.OpPhi {
			break
		}
		found := false
		for i, pred := range in.Incoming {
			if pred != fr.Prev {
				continue
			}
			v, vmErr := vm.operand(fr, in.Args[i])
			if vmErr != nil {
				return vmErr
			}
			set = append(set, pending{id: in.ID, v: v})
			found = true
			break
		}
		if !found {
			return vm.errorf(PanicUnsupported, "phi %%%d has no value for predecessor bb%d", in.ID, fr.Prev)
		}
	}
	for _, p := range set {
		fr.Vals[p.id] = p.v
	}
	return nil
}

func (vm *VM) tick(fr *Frame, in *ir.Instr) *VMError {
	vm.steps++
	if vm.steps > vm.opts.MaxSteps {
		return vm.errorf(PanicStepLimit, "step limit %d reached", vm.opts.MaxSteps)
	}
	if vm.ctx != nil && vm.steps%4096 == 0 {
		if err := vm.ctx.Err(); err != nil {
			return vm.errorf(PanicStepLimit, "interrupted: %v", err)
		}
	}
	if vm.opts.Trace != nil {
		fmt.Fprintf(vm.opts.Trace, "[depth=%d] %s %%%s:%d %s\n",
			len(vm.stack), fr.Func.Name, labelOf(fr.Func, fr.BB), fr.IP, ir.FormatInstr(vm.M, fr.Func, in))
	}
	return nil
}

func (vm *VM) terminate(fr *Frame, in *ir.Instr) (next ir.BlockID, ret Value, done bool, vmErr *VMError) {
	switch in.Op {
	case ir.OpBr:
		return in.Targets[0], Value{}, false, nil
	case ir.OpCondBr:
		c, vmErr := vm.operand(fr, in.Args[0])
		if vmErr != nil {
			return 0, Value{}, false, vmErr
		}
		if c.Kind != VKBool {
			return 0, Value{}, false, vm.errorf(PanicTypeMismatch, "branch on %s", c.Kind)
		}
		if c.Bool {
			return in.Targets[0], Value{}, false, nil
		}
		return in.Targets[1], Value{}, false, nil
	case ir.OpSwitch:
		v, vmErr := vm.operand(fr, in.Args[0])
		if vmErr != nil {
			return 0, Value{}, false, vmErr
		}
		if v.Kind != VKInt {
			return 0, Value{}, false, vm.errorf(PanicTypeMismatch, "switch on %s", v.Kind)
		}
		for i, c := range in.Cases {
			if c == v.Int {
				return in.Targets[i+1], Value{}, false, nil
			}
		}
		return in.Targets[0], Value{}, false, nil
	case ir.OpInvoke:
		if _, vmErr := vm.doCall(fr, in); vmErr != nil {
			return 0, Value{}, false, vmErr
		}
		if len(in.Targets) == 0 {
			return 0, Value{}, false, vm.errorf(PanicUnsupported, "call to @%s returned without a continuation", in.Callee)
		}
		return in.Targets[0], Value{}, false, nil
	case ir.OpReturn:
		vals := make([]Value, len(in.Args))
		for i, a := range in.Args {
			v, vmErr := vm.operand(fr, a)
			if vmErr != nil {
				return 0, Value{}, false, vmErr
			}
			vals[i] = v
		}
		switch len(vals) {
		case 0:
			return 0, MakeVoid(), true, nil
		case 1:
			return 0, vals[0], true, nil
		}
		return 0, Value{Kind: VKTuple, Tuple: vals}, true, nil
	}
	return 0, Value{}, false, vm.errorf(PanicUnsupported, "terminator %s", in.Op)
}

func (vm *VM) doCall(fr *Frame, in *ir.Instr) (Value, *VMError) {
	args := in.Args
	callee := in.Callee
	if callee == "" {
		if len(args) == 0 {
			return Value{}, vm.errorf(PanicUnsupported, "call without callee")
		}
		fv, vmErr := vm.operand(fr, args[0])
		if vmErr != nil {
			return Value{}, vmErr
		}
		if fv.Kind != VKFunc {
			return Value{}, vm.errorf(PanicTypeMismatch, "call through %s", fv.Kind)
		}
		callee, args = fv.Func, args[1:]
	}
	vals := make([]Value, len(args))
	for i, a := range args {
		v, vmErr := vm.operand(fr, a)
		if vmErr != nil {
			return Value{}, vmErr
		}
		vals[i] = v
	}
	return vm.call(callee, vals)
}

func (vm *VM) operand(fr *Frame, v ir.Value) (Value, *VMError) {
	switch v.Kind {
	case ir.ValueInstr:
		if v.Func != fr.Func.ID {
			return Value{}, vm.errorf(PanicUnsupported, "operand from another function")
		}
		if fr.Func.Instr(v.Instr) == nil {
			return Value{}, vm.errorf(PanicUnsupported, "operand %%%d does not exist", v.Instr)
		}
		return fr.Vals[v.Instr], nil
	case ir.ValueParam:
		if v.Param < 0 || v.Param >= len(fr.Args) {
			return Value{}, vm.errorf(PanicUnsupported, "parameter %d out of range", v.Param)
		}
		return fr.Args[v.Param], nil
	case ir.ValueConst:
		switch v.Const.Kind {
		case ir.ConstInt:
			return MakeInt(wrapInt(v.Const.IntValue, v.Type.Bits)), nil
		case ir.ConstBool:
			return MakeBool(v.Const.BoolValue), nil
		case ir.ConstFloat:
			return MakeFloat(v.Const.FloatValue), nil
		case ir.ConstNull:
			return Value{Kind: VKPtr}, nil
		}
		return Value{}, vm.errorf(PanicUnsupported, "constant %s", ir.FormatValue(vm.M, fr.Func, v))
	case ir.ValueGlobal:
		return Value{Kind: VKFunc, Func: v.Global}, nil
	}
	return Value{}, vm.errorf(PanicUnsupported, "operand kind %d", v.Kind)
}

func (vm *VM) alloc(init Value) (Value, *VMError) {
	n, err := safecast.Conv[uint32](len(vm.mem))
	if err != nil {
		return Value{}, vm.errorf(PanicBadMemory, "out of memory cells: %v", err)
	}
	vm.mem = append(vm.mem, init)
	return Value{Kind: VKPtr, Ptr: Handle(n)}, nil
}

func (vm *VM) cell(p Value) (*Value, *VMError) {
	if p.Kind != VKPtr {
		return nil, vm.errorf(PanicTypeMismatch, "dereference of %s", p.Kind)
	}
	if p.Ptr == 0 || int(p.Ptr) >= len(vm.mem) {
		return nil, vm.errorf(PanicBadMemory, "invalid pointer %s", p)
	}
	return &vm.mem[p.Ptr], nil
}

func labelOf(f *ir.Func, b ir.BlockID) string {
	return ir.BlockRef(f, b)
}
