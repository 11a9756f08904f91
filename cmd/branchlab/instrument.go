package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"branchlab/internal/driver"
	"branchlab/internal/instrument"
	"branchlab/internal/ir"
	"branchlab/internal/trace"
)

var (
	instrumentLoad loadFlags
	instrumentOut  string
)

func init() {
	instrumentLoad.register(instrumentCmd)
	instrumentCmd.Flags().StringVarP(&instrumentOut, "out", "o", "", "write the listing to a file instead of stdout")
}

var instrumentCmd = &cobra.Command{
	Use:   "instrument [patterns...]",
	Short: "Insert branch logging calls and print the rewritten functions",
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, err := instrumentLoad.idScope(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		span := trace.Begin(trace.FromContext(ctx), trace.ScopeCommand, "instrument", 0)
		defer span.End("")
		ctx = trace.WithSpanContext(ctx, trace.SpanContext{SpanID: span.ID()})

		m, err := instrumentLoad.loadModule(ctx, cmd, args, nil)
		if err != nil {
			return err
		}
		only, err := instrumentLoad.selected(m)
		if err != nil {
			return err
		}

		sw := session.timer.Start("instrument")
		results, bag, err := driver.Instrument(ctx, m, scope, nil)
		sw.Stop(fmt.Sprintf("%d functions", len(results)))
		if err != nil {
			return err
		}
		printDiagnostics(cmd.ErrOrStderr(), bag)

		out, closeOut, err := openOutput(cmd, instrumentOut)
		if err != nil {
			return err
		}
		if only == nil {
			err = ir.DumpModule(out, m)
		} else {
			err = dumpSelected(out, m, only)
		}
		if cerr := closeOut(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("write listing: %w", err)
		}

		if !quiet(cmd) {
			probes := 0
			for _, r := range results {
				probes += len(r.Probes)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "instrumented %d branches in %d functions\n", probes, len(results))
		}
		if bag.HasErrors() {
			return fmt.Errorf("some functions could not be instrumented")
		}
		return nil
	},
}

func dumpSelected(w io.Writer, m *ir.Module, only map[string]bool) error {
	if hook := m.Func(instrument.HookName); hook != nil {
		if err := ir.DumpFunc(w, m, hook); err != nil {
			return err
		}
	}
	for _, f := range m.Defined() {
		if !only[f.Name] {
			continue
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		if err := ir.DumpFunc(w, m, f); err != nil {
			return err
		}
	}
	return nil
}
