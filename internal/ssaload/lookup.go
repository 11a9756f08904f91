package ssaload

import (
	"fmt"
	"strings"

	"branchlab/internal/ir"
)

// Lookup finds a defined function by its full name, or by a suffix that
// starts after a '.' or '/' boundary ("pick" matches "example.com/p.pick").
// An ambiguous suffix is an error.
func Lookup(m *ir.Module, name string) (*ir.Func, error) {
	if f := m.Func(name); f != nil && !f.External() {
		return f, nil
	}
	var matches []*ir.Func
	for _, f := range m.Defined() {
		if hasBoundarySuffix(f.Name, name) {
			matches = append(matches, f)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no function matches %q", name)
	case 1:
		return matches[0], nil
	}
	names := make([]string, len(matches))
	for i, f := range matches {
		names[i] = f.Name
	}
	return nil, fmt.Errorf("%q is ambiguous: %s", name, strings.Join(names, ", "))
}

func hasBoundarySuffix(full, suffix string) bool {
	if suffix == "" || !strings.HasSuffix(full, suffix) || len(full) == len(suffix) {
		return false
	}
	c := full[len(full)-len(suffix)-1]
	return c == '.' || c == '/'
}
