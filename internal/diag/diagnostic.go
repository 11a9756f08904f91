package diag

import (
	"fmt"
	"strings"
)

// NoBlock marks a diagnostic that is not tied to a particular block.
const NoBlock = -1

type Diagnostic struct {
	Severity Severity
	Code     Code
	Func     string
	Block    int
	Message  string
}

// Errorf builds an error-severity diagnostic.
func Errorf(code Code, fn string, block int, format string, args ...any) *Diagnostic {
	return &Diagnostic{
		Severity: SevError,
		Code:     code,
		Func:     fn,
		Block:    block,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Warnf builds a warning-severity diagnostic.
func Warnf(code Code, fn string, format string, args ...any) *Diagnostic {
	return &Diagnostic{
		Severity: SevWarning,
		Code:     code,
		Func:     fn,
		Block:    NoBlock,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Error renders the diagnostic on one line.
func (d *Diagnostic) Error() string {
	if d == nil {
		return "<nil diagnostic>"
	}
	var b strings.Builder
	b.WriteString(d.Code.ID())
	if d.Func != "" {
		b.WriteString(" ")
		b.WriteString(d.Func)
		if d.Block >= 0 {
			fmt.Fprintf(&b, " bb%d", d.Block)
		}
	}
	b.WriteString(": ")
	b.WriteString(d.Message)
	return b.String()
}
