package diag

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
)

// Fprint writes one line per diagnostic. Colour follows color.NoColor.
func Fprint(w io.Writer, items []Diagnostic) {
	for i := range items {
		d := &items[i]
		fmt.Fprintf(w, "%s %s\n", severityLabel(d.Severity), d.Error())
	}
}

func severityLabel(s Severity) string {
	switch s {
	case SevError:
		return errorColor.Sprint("error:")
	case SevWarning:
		return warningColor.Sprint("warning:")
	default:
		return infoColor.Sprint("info:")
	}
}
