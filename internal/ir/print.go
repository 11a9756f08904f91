package ir

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// FormatValue renders an operand reference without its type.
func FormatValue(m *Module, f *Func, v Value) string {
	switch v.Kind {
	case ValueInstr:
		owner := f
		if f == nil || v.Func != f.ID {
			owner = m.byID(v.Func)
		}
		if owner != nil {
			if in := owner.Instr(v.Instr); in != nil && in.Name != "" {
				return "%" + in.Name
			}
		}
		return "%" + strconv.Itoa(int(v.Instr))
	case ValueParam:
		owner := f
		if f == nil || v.Func != f.ID {
			owner = m.byID(v.Func)
		}
		if owner != nil && v.Param >= 0 && v.Param < len(owner.Params) && owner.Params[v.Param].Name != "" {
			return "%" + owner.Params[v.Param].Name
		}
		return "%arg" + strconv.Itoa(v.Param)
	case ValueConst:
		return formatConst(v.Const)
	case ValueGlobal:
		return "@" + v.Global
	}
	return "<value?>"
}

func formatConst(c Const) string {
	switch c.Kind {
	case ConstInt:
		return strconv.FormatInt(c.IntValue, 10)
	case ConstBool:
		return strconv.FormatBool(c.BoolValue)
	case ConstFloat:
		return strconv.FormatFloat(c.FloatValue, 'g', -1, 64)
	case ConstString:
		return strconv.Quote(c.StringValue)
	case ConstNull:
		return "null"
	default:
		if c.Text == "" {
			return "undef"
		}
		return c.Text
	}
}

func formatTyped(m *Module, f *Func, v Value) string {
	return v.Type.String() + " " + FormatValue(m, f, v)
}

// BlockRef is the identifier a branch uses to name block id.
func BlockRef(f *Func, id BlockID) string {
	if bb := f.Block(id); bb != nil && bb.Name != "" {
		return bb.Name
	}
	return strconv.Itoa(int(id))
}

func label(f *Func, id BlockID) string {
	return "label %" + BlockRef(f, id)
}

// FormatInstr renders the canonical text of one instruction. m may be nil
// when no operand refers to another function.
func FormatInstr(m *Module, f *Func, in *Instr) string {
	if in == nil {
		return "<instr?>"
	}
	var b strings.Builder
	if in.HasResult() {
		b.WriteString(FormatValue(m, f, f.Value(in.ID)))
		b.WriteString(" = ")
	}
	switch in.Op {
	case OpBinary, OpCompare:
		b.WriteString(in.Opcode)
		if len(in.Args) > 0 {
			b.WriteString(" ")
			b.WriteString(in.Args[0].Type.String())
			b.WriteString(" ")
			b.WriteString(joinValues(m, f, in.Args, false))
		}
	case OpLoad:
		fmt.Fprintf(&b, "load %s, %s", in.Type, joinValues(m, f, in.Args, true))
	case OpStore:
		fmt.Fprintf(&b, "store %s", joinValues(m, f, in.Args, true))
	case OpConvert:
		fmt.Fprintf(&b, "%s %s to %s", in.Opcode, joinValues(m, f, in.Args, true), in.Type)
	case OpAlloc:
		b.WriteString(in.Opcode)
	case OpPhi:
		fmt.Fprintf(&b, "phi %s ", in.Type)
		for i := range in.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			pred := NoBlockID
			if i < len(in.Incoming) {
				pred = in.Incoming[i]
			}
			fmt.Fprintf(&b, "[ %s, %%%s ]", FormatValue(m, f, in.Args[i]), BlockRef(f, pred))
		}
	case OpCall, OpInvoke:
		b.WriteString(in.Opcode)
		b.WriteString(" ")
		b.WriteString(formatCall(m, f, in))
		if in.Op == OpInvoke && len(in.Targets) > 0 {
			b.WriteString(" to ")
			b.WriteString(label(f, in.Targets[0]))
		}
	case OpCondBr:
		fmt.Fprintf(&b, "br %s, %s, %s", formatTyped(m, f, in.Args[0]), label(f, in.Targets[0]), label(f, in.Targets[1]))
	case OpBr:
		fmt.Fprintf(&b, "br %s", label(f, in.Targets[0]))
	case OpSwitch:
		fmt.Fprintf(&b, "switch %s, %s [", formatTyped(m, f, in.Args[0]), label(f, in.Targets[0]))
		for i, c := range in.Cases {
			fmt.Fprintf(&b, " %s %d, %s", in.Args[0].Type, c, label(f, in.Targets[i+1]))
		}
		b.WriteString(" ]")
	case OpIndirectBr:
		fmt.Fprintf(&b, "indirectbr %s, [", formatTyped(m, f, in.Args[0]))
		for i, t := range in.Targets {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(label(f, t))
		}
		b.WriteString("]")
	case OpReturn:
		if len(in.Args) == 0 {
			b.WriteString("ret void")
		} else {
			b.WriteString("ret ")
			b.WriteString(joinValues(m, f, in.Args, true))
		}
	default:
		b.WriteString(in.Opcode)
		if len(in.Args) > 0 {
			b.WriteString(" ")
			b.WriteString(joinValues(m, f, in.Args, true))
		}
	}
	return b.String()
}

func formatCall(m *Module, f *Func, in *Instr) string {
	args := in.Args
	callee := "@" + in.Callee
	if in.Callee == "" && len(args) > 0 {
		callee = FormatValue(m, f, args[0])
		args = args[1:]
	}
	return fmt.Sprintf("%s %s(%s)", in.Type, callee, joinValues(m, f, args, true))
}

func joinValues(m *Module, f *Func, vals []Value, typed bool) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		if typed {
			parts[i] = formatTyped(m, f, v)
		} else {
			parts[i] = FormatValue(m, f, v)
		}
	}
	return strings.Join(parts, ", ")
}

// Signature renders a function header without a body.
func Signature(f *Func) string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		if p.Name != "" {
			params[i] = p.Type.String() + " %" + p.Name
		} else {
			params[i] = p.Type.String()
		}
	}
	return fmt.Sprintf("%s @%s(%s)", f.Result, f.Name, strings.Join(params, ", "))
}

// DumpFunc writes a human-readable listing of f.
func DumpFunc(w io.Writer, m *Module, f *Func) error {
	if f.External() {
		_, err := fmt.Fprintf(w, "declare %s\n", Signature(f))
		return err
	}
	if _, err := fmt.Fprintf(w, "define %s {\n", Signature(f)); err != nil {
		return err
	}
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		if _, err := fmt.Fprintf(w, "%s:\n", BlockRef(f, bb.ID)); err != nil {
			return err
		}
		for _, id := range bb.Instrs {
			if _, err := fmt.Fprintf(w, "  %s\n", FormatInstr(m, f, f.Instr(id))); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}

// DumpModule writes every function: declarations first, then definitions,
// each group in module order.
func DumpModule(w io.Writer, m *Module) error {
	if w == nil || m == nil {
		return nil
	}
	for _, f := range m.Funcs {
		if f.External() {
			if err := DumpFunc(w, m, f); err != nil {
				return err
			}
		}
	}
	for _, f := range m.Defined() {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		if err := DumpFunc(w, m, f); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) byID(id FuncID) *Func {
	if m == nil || id < 0 || int(id) >= len(m.Funcs) {
		return nil
	}
	return m.Funcs[id]
}
