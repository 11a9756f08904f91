package ssaload

import (
	"errors"
	"fmt"
	"go/constant"
	"go/token"
	"go/types"
	"strings"

	"golang.org/x/tools/go/ssa"

	"branchlab/internal/diag"
	"branchlab/internal/ir"
)

// LowerFunctions converts fns into one module. Functions that fail to lower
// are left out and reported in the joined error as one diagnostic each; the
// module holds the rest.
// Direct callees outside fns are added as declarations.
func LowerFunctions(name string, fns []*ssa.Function) (*ir.Module, error) {
	m := ir.NewModule(name)
	callees := make(map[string]*types.Signature)
	var order []string
	var errs []error
	for _, fn := range fns {
		l := newLowerer(fn)
		f, err := l.lower()
		if err == nil {
			err = m.Add(f)
		}
		if err != nil {
			errs = append(errs, diag.Errorf(diag.IRUnsupportedPattern, fn.String(), diag.NoBlock, "%v", err))
			continue
		}
		for _, c := range l.callees {
			if _, seen := callees[c.name]; !seen {
				callees[c.name] = c.sig
				order = append(order, c.name)
			}
		}
	}
	for _, name := range order {
		if m.Func(name) != nil {
			continue
		}
		sig := callees[name]
		if _, err := m.DeclareFunc(name, paramTypes(sig), resultType(sig)); err != nil {
			errs = append(errs, err)
		}
	}
	return m, errors.Join(errs...)
}

type callee struct {
	name string
	sig  *types.Signature
}

type lowerer struct {
	fn      *ssa.Function
	b       *ir.Builder
	blocks  []ir.BlockID
	params  map[ssa.Value]int
	values  map[ssa.Value]ir.Value
	phis    []*ssa.Phi
	callees []callee
}

func newLowerer(fn *ssa.Function) *lowerer {
	var params []ir.Param
	idx := make(map[ssa.Value]int, len(fn.Params)+len(fn.FreeVars))
	for _, p := range fn.Params {
		idx[p] = len(params)
		params = append(params, ir.Param{Name: p.Name(), Type: mapType(p.Type())})
	}
	// Free variables of closures follow the ordinary parameters.
	for _, fv := range fn.FreeVars {
		idx[fv] = len(params)
		params = append(params, ir.Param{Name: fv.Name(), Type: mapType(fv.Type())})
	}
	return &lowerer{
		fn:     fn,
		b:      ir.NewBuilder(fn.String(), params, resultType(fn.Signature)),
		params: idx,
		values: make(map[ssa.Value]ir.Value),
	}
}

func (l *lowerer) lower() (*ir.Func, error) {
	l.blocks = make([]ir.BlockID, len(l.fn.Blocks))
	for i, bb := range l.fn.Blocks {
		l.blocks[i] = l.b.NewBlock(blockName(bb))
	}

	// Dominator preorder defines every non-phi operand before its uses.
	visited := make([]bool, len(l.fn.Blocks))
	order := l.fn.DomPreorder()
	for _, bb := range l.fn.Blocks {
		if !containsBlock(order, bb) {
			order = append(order, bb)
		}
	}
	for _, bb := range order {
		if visited[bb.Index] {
			continue
		}
		visited[bb.Index] = true
		l.b.SetBlock(l.blocks[bb.Index])
		for _, instr := range bb.Instrs {
			if err := l.instr(instr); err != nil {
				return nil, fmt.Errorf("%s: %w", blockName(bb), err)
			}
		}
	}

	for _, phi := range l.phis {
		v := l.values[phi]
		preds := phi.Block().Preds
		for i, edge := range phi.Edges {
			arg, err := l.value(edge)
			if err != nil {
				return nil, fmt.Errorf("%s: phi %s: %w", blockName(phi.Block()), phi.Name(), err)
			}
			l.b.AddIncoming(v, l.blocks[preds[i].Index], arg)
		}
	}
	return l.b.Finish()
}

func containsBlock(bbs []*ssa.BasicBlock, bb *ssa.BasicBlock) bool {
	for _, x := range bbs {
		if x == bb {
			return true
		}
	}
	return false
}

func blockName(bb *ssa.BasicBlock) string {
	comment := bb.Comment
	if comment == "" {
		comment = "block"
	}
	return fmt.Sprintf("%s.%d", comment, bb.Index)
}

func (l *lowerer) value(v ssa.Value) (ir.Value, error) {
	switch v := v.(type) {
	case *ssa.Const:
		return constValue(v), nil
	case *ssa.Parameter, *ssa.FreeVar:
		if i, ok := l.params[v]; ok {
			return l.b.Param(i), nil
		}
		return ir.Value{}, fmt.Errorf("foreign parameter %s", v.Name())
	case *ssa.Function:
		return ir.Global(v.String(), ir.Ptr), nil
	case *ssa.Global:
		return ir.Global(v.String(), ir.Ptr), nil
	case *ssa.Builtin:
		return ir.Global(v.Name(), ir.Ptr), nil
	}
	if x, ok := l.values[v]; ok {
		return x, nil
	}
	return ir.Value{}, fmt.Errorf("use of %s before definition", v.Name())
}

func (l *lowerer) operands(vs []ssa.Value) ([]ir.Value, error) {
	out := make([]ir.Value, 0, len(vs))
	for _, v := range vs {
		x, err := l.value(v)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, nil
}

func constValue(c *ssa.Const) ir.Value {
	t := mapType(c.Type())
	if c.Value == nil {
		return ir.Value{Kind: ir.ValueConst, Type: t, Const: ir.Const{Kind: ir.ConstNull}}
	}
	switch {
	case c.Value.Kind() == constant.Bool:
		return ir.BoolConst(constant.BoolVal(c.Value))
	case t.Kind == ir.TypeFloat:
		f, _ := constant.Float64Val(constant.ToFloat(c.Value))
		v := ir.FloatConst(f)
		v.Type = t
		return v
	case c.Value.Kind() == constant.Int:
		if n, ok := constant.Int64Val(c.Value); ok {
			return ir.IntConst(t, n)
		}
		if u, ok := constant.Uint64Val(c.Value); ok {
			return ir.IntConst(t, int64(u)) //nolint:gosec // two's complement bit pattern
		}
	case c.Value.Kind() == constant.String:
		return ir.Value{Kind: ir.ValueConst, Type: t, Const: ir.Const{Kind: ir.ConstString, StringValue: constant.StringVal(c.Value)}}
	}
	return ir.Value{Kind: ir.ValueConst, Type: t, Const: ir.Const{Kind: ir.ConstOther, Text: c.Value.ExactString()}}
}

// define records the ir result of an ssa value and carries its name over.
func (l *lowerer) define(v ssa.Value, x ir.Value) {
	if x.Kind == ir.ValueInstr && x.Type.Kind != ir.TypeVoid {
		l.b.Named(x, v.Name())
	}
	l.values[v] = x
}

func (l *lowerer) instr(instr ssa.Instruction) error {
	switch in := instr.(type) {
	case *ssa.DebugRef:
		return nil
	case *ssa.If:
		cond, err := l.value(in.Cond)
		if err != nil {
			return err
		}
		succs := in.Block().Succs
		l.b.CondBr(cond, l.blocks[succs[0].Index], l.blocks[succs[1].Index])
	case *ssa.Jump:
		l.b.Br(l.blocks[in.Block().Succs[0].Index])
	case *ssa.Return:
		results, err := l.operands(in.Results)
		if err != nil {
			return err
		}
		l.b.Return(results...)
	case *ssa.Panic:
		x, err := l.value(in.X)
		if err != nil {
			return err
		}
		l.b.Invoke("panic", ir.NoBlockID, x)
	case *ssa.Phi:
		l.define(in, l.b.Phi(mapType(in.Type())))
		l.phis = append(l.phis, in)
	case *ssa.Alloc:
		elem := in.Type().Underlying().(*types.Pointer).Elem()
		l.define(in, l.b.Alloc(mapType(elem)))
	case *ssa.Store:
		addr, err := l.value(in.Addr)
		if err != nil {
			return err
		}
		val, err := l.value(in.Val)
		if err != nil {
			return err
		}
		l.b.Store(addr, val)
	case *ssa.UnOp:
		return l.unOp(in)
	case *ssa.BinOp:
		return l.binOp(in)
	case *ssa.Call:
		return l.call(in)
	case *ssa.FieldAddr:
		x, err := l.value(in.X)
		if err != nil {
			return err
		}
		l.define(in, l.b.Emit(ir.Instr{Op: ir.OpAddr, Opcode: "getelementptr", Type: ir.Ptr,
			Args: []ir.Value{x, ir.IntConst(ir.I32, int64(in.Field))}}))
	case *ssa.IndexAddr:
		args, err := l.operands([]ssa.Value{in.X, in.Index})
		if err != nil {
			return err
		}
		l.define(in, l.b.Emit(ir.Instr{Op: ir.OpAddr, Opcode: "getelementptr", Type: ir.Ptr, Args: args}))
	case *ssa.Convert:
		x, err := l.value(in.X)
		if err != nil {
			return err
		}
		to := mapType(in.Type())
		l.define(in, l.b.Convert(convertOpcode(in.X.Type(), in.Type(), x.Type, to), to, x))
	case *ssa.ChangeType:
		x, err := l.value(in.X)
		if err != nil {
			return err
		}
		l.define(in, l.b.Convert("bitcast", mapType(in.Type()), x))
	default:
		return l.other(instr)
	}
	return nil
}

func (l *lowerer) unOp(in *ssa.UnOp) error {
	x, err := l.value(in.X)
	if err != nil {
		return err
	}
	t := mapType(in.Type())
	switch in.Op {
	case token.MUL:
		l.define(in, l.b.Load(t, x))
	case token.SUB:
		op := "neg"
		if isFloat(in.X.Type()) {
			op = "fneg"
		}
		l.define(in, l.b.Unary(op, x))
	case token.NOT:
		l.define(in, l.b.Unary("not", x))
	case token.XOR:
		l.define(in, l.b.Unary("compl", x))
	default:
		return l.other(in)
	}
	return nil
}

var compareOps = map[token.Token][3]string{
	// signed, unsigned, float
	token.EQL: {"icmp eq", "icmp eq", "fcmp oeq"},
	token.NEQ: {"icmp ne", "icmp ne", "fcmp one"},
	token.LSS: {"icmp slt", "icmp ult", "fcmp olt"},
	token.LEQ: {"icmp sle", "icmp ule", "fcmp ole"},
	token.GTR: {"icmp sgt", "icmp ugt", "fcmp ogt"},
	token.GEQ: {"icmp sge", "icmp uge", "fcmp oge"},
}

var arithOps = map[token.Token][3]string{
	token.ADD:     {"add", "add", "fadd"},
	token.SUB:     {"sub", "sub", "fsub"},
	token.MUL:     {"mul", "mul", "fmul"},
	token.QUO:     {"sdiv", "udiv", "fdiv"},
	token.REM:     {"srem", "urem", "frem"},
	token.AND:     {"and", "and", "and"},
	token.OR:      {"or", "or", "or"},
	token.XOR:     {"xor", "xor", "xor"},
	token.AND_NOT: {"andnot", "andnot", "andnot"},
	token.SHL:     {"shl", "shl", "shl"},
	token.SHR:     {"ashr", "lshr", "lshr"},
}

func flavor(t types.Type) int {
	switch {
	case isFloat(t):
		return 2
	case isUnsigned(t):
		return 1
	}
	return 0
}

func (l *lowerer) binOp(in *ssa.BinOp) error {
	args, err := l.operands([]ssa.Value{in.X, in.Y})
	if err != nil {
		return err
	}
	x, y := args[0], args[1]
	if ops, ok := compareOps[in.Op]; ok {
		l.define(in, l.b.Compare(ops[flavor(in.X.Type())], x, y))
		return nil
	}
	if in.Op == token.ADD && isString(in.X.Type()) {
		l.define(in, l.b.Emit(ir.Instr{Op: ir.OpBinary, Opcode: "concat", Type: mapType(in.Type()), Args: args}))
		return nil
	}
	ops, ok := arithOps[in.Op]
	if !ok {
		return l.other(in)
	}
	// Shifts take the signedness of the shifted operand.
	l.define(in, l.b.Emit(ir.Instr{Op: ir.OpBinary, Opcode: ops[flavor(in.X.Type())], Type: mapType(in.Type()), Args: args}))
	return nil
}

func convertOpcode(fromT, toT types.Type, from, to ir.Type) string {
	switch {
	case from.Kind == ir.TypeInt && to.Kind == ir.TypeInt:
		switch {
		case to.Bits > from.Bits && isUnsigned(fromT):
			return "zext"
		case to.Bits > from.Bits:
			return "sext"
		case to.Bits < from.Bits:
			return "trunc"
		}
	case from.Kind == ir.TypeInt && to.Kind == ir.TypeFloat:
		if isUnsigned(fromT) {
			return "uitofp"
		}
		return "sitofp"
	case from.Kind == ir.TypeFloat && to.Kind == ir.TypeInt:
		if isUnsigned(toT) {
			return "fptoui"
		}
		return "fptosi"
	case from.Kind == ir.TypeFloat && to.Kind == ir.TypeFloat:
		switch {
		case to.Bits > from.Bits:
			return "fpext"
		case to.Bits < from.Bits:
			return "fptrunc"
		}
	}
	return "bitcast"
}

func (l *lowerer) call(in *ssa.Call) error {
	c := in.Common()
	args, err := l.operands(c.Args)
	if err != nil {
		return err
	}
	result := mapType(in.Type())
	switch fn := c.Value.(type) {
	case *ssa.Function:
		name := fn.String()
		l.callees = append(l.callees, callee{name: name, sig: fn.Signature})
		l.define(in, l.b.Call(name, result, args...))
		return nil
	case *ssa.Builtin:
		l.define(in, l.b.Call(fn.Name(), result, args...))
		return nil
	}
	// Dynamic and interface calls carry the function value or receiver
	// as their first argument.
	fv, err := l.value(c.Value)
	if err != nil {
		return err
	}
	all := append([]ir.Value{fv}, args...)
	l.define(in, l.b.Emit(ir.Instr{Op: ir.OpCall, Opcode: "call", Type: result, Args: all}))
	return nil
}

// other lowers every remaining instruction to an opaque OpOther named after
// its kind, keeping its operands.
func (l *lowerer) other(instr ssa.Instruction) error {
	var ops []ssa.Value
	for _, p := range instr.Operands(nil) {
		if p != nil && *p != nil {
			ops = append(ops, *p)
		}
	}
	args, err := l.operands(ops)
	if err != nil {
		return err
	}
	t := ir.Void
	v, isValue := instr.(ssa.Value)
	if isValue {
		t = mapType(v.Type())
	}
	x := l.b.Emit(ir.Instr{Op: ir.OpOther, Opcode: kindName(instr), Type: t, Args: args})
	if isValue {
		l.define(v, x)
	}
	return nil
}

func kindName(instr ssa.Instruction) string {
	name := fmt.Sprintf("%T", instr)
	name = name[strings.LastIndexByte(name, '.')+1:]
	return strings.ToLower(name)
}
