package features

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// FuncReport is the feature report of one function.
type FuncReport struct {
	Func   string        `msgpack:"func"`
	Scope  string        `msgpack:"scope"`
	Mode   string        `msgpack:"mode"`
	Blocks []BlockReport `msgpack:"blocks"`
}

// BlockReport groups the instructions of one block under its label.
type BlockReport struct {
	Label    string        `msgpack:"label"`
	Distance int           `msgpack:"dist"`
	Instrs   []InstrReport `msgpack:"instrs"`
}

// InstrReport is one instruction line and its dependencies.
type InstrReport struct {
	Text        string   `msgpack:"text"`
	HasBranchID bool     `msgpack:"has_branch"`
	BranchID    uint64   `msgpack:"branch"`
	Record      Record   `msgpack:"features"`
	Deps        []string `msgpack:"deps,omitempty"`
}

// WriteText writes the report in its line-oriented text form.
func (r *FuncReport) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Control-flow features for function: %s\n", r.Func)
	fmt.Fprintf(bw, "Branch ID scope: %s\n", r.Scope)
	fmt.Fprintf(bw, "Distance mode: %s\n", r.Mode)
	for _, b := range r.Blocks {
		fmt.Fprintf(bw, "%s:\n", b.Label)
		for _, in := range b.Instrs {
			if in.HasBranchID {
				fmt.Fprintf(bw, "BranchID: %d   ", in.BranchID)
			}
			fmt.Fprintf(bw, "%s: %s\n", in.Text, in.Record)
			if len(in.Deps) > 0 {
				fmt.Fprintf(bw, "  Depends on: %s\n", strings.Join(in.Deps, ", "))
			}
		}
	}
	return bw.Flush()
}

// WriteTextAll writes reports separated by blank lines.
func WriteTextAll(w io.Writer, reports []*FuncReport) error {
	for i, r := range reports {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := r.WriteText(w); err != nil {
			return fmt.Errorf("write report for %s: %w", r.Func, err)
		}
	}
	return nil
}

// Record returns the features of the instruction whose text is text, or
// false. Intended for lookups in small reports.
func (r *FuncReport) Record(text string) (Record, bool) {
	for _, b := range r.Blocks {
		for _, in := range b.Instrs {
			if in.Text == text {
				return in.Record, true
			}
		}
	}
	return Record{}, false
}
