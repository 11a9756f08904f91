package ir

import (
	"fmt"

	"fortio.org/safecast"
)

type Module struct {
	Name  string
	Funcs []*Func

	byName map[string]FuncID
}

func NewModule(name string) *Module {
	return &Module{Name: name, byName: make(map[string]FuncID)}
}

// Func looks a function up by name.
func (m *Module) Func(name string) *Func {
	if m == nil || m.byName == nil {
		return nil
	}
	id, ok := m.byName[name]
	if !ok {
		return nil
	}
	return m.Funcs[id]
}

// Add registers f, assigning its ID. Names must be unique.
func (m *Module) Add(f *Func) error {
	if m.byName == nil {
		m.byName = make(map[string]FuncID)
	}
	if _, dup := m.byName[f.Name]; dup {
		return fmt.Errorf("module %s: duplicate function %q", m.Name, f.Name)
	}
	id, err := safecast.Conv[int32](len(m.Funcs))
	if err != nil {
		return fmt.Errorf("module %s: too many functions: %w", m.Name, err)
	}
	rebind(f, FuncID(id))
	m.Funcs = append(m.Funcs, f)
	m.byName[f.Name] = f.ID
	return nil
}

// DeclareFunc returns the function called name, declaring it as external
// when absent. An existing function with a different signature is an error.
func (m *Module) DeclareFunc(name string, params []Type, result Type) (*Func, error) {
	if f := m.Func(name); f != nil {
		if !sameSignature(f, params, result) {
			return nil, fmt.Errorf("module %s: %s already declared as %s", m.Name, name, Signature(f))
		}
		return f, nil
	}
	f := &Func{Name: name, Result: result, Entry: NoBlockID}
	for _, t := range params {
		f.Params = append(f.Params, Param{Type: t})
	}
	if err := m.Add(f); err != nil {
		return nil, err
	}
	return f, nil
}

// Defined returns the functions that have bodies, in module order.
func (m *Module) Defined() []*Func {
	out := make([]*Func, 0, len(m.Funcs))
	for _, f := range m.Funcs {
		if f != nil && !f.External() {
			out = append(out, f)
		}
	}
	return out
}

func sameSignature(f *Func, params []Type, result Type) bool {
	if f.Result != result || len(f.Params) != len(params) {
		return false
	}
	for i := range params {
		if f.Params[i].Type != params[i] {
			return false
		}
	}
	return true
}

// rebind moves f to id, rewriting operands that referred to f's values
// under its previous ID.
func rebind(f *Func, id FuncID) {
	old := f.ID
	f.ID = id
	if old == id {
		return
	}
	for i := range f.Instrs {
		args := f.Instrs[i].Args
		for j := range args {
			if (args[j].Kind == ValueInstr || args[j].Kind == ValueParam) && args[j].Func == old {
				args[j].Func = id
			}
		}
	}
}
