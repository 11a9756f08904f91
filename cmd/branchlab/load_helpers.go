package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"branchlab/internal/branchid"
	"branchlab/internal/diag"
	"branchlab/internal/driver"
	"branchlab/internal/ir"
	"branchlab/internal/ssaload"
)

// loadFlags are shared by every command that reads Go packages.
type loadFlags struct {
	dir   string
	tests bool
	funcs []string
	scope string
}

func (f *loadFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dir, "dir", "", "directory to resolve package patterns in")
	cmd.Flags().BoolVar(&f.tests, "tests", false, "include test files")
	cmd.Flags().StringSliceVar(&f.funcs, "func", nil, "restrict output to these functions (full name or unique suffix)")
	cmd.Flags().StringVar(&f.scope, "id-scope", "", "branch ID scope (function|module)")
}

func (f *loadFlags) idScope(cmd *cobra.Command) (branchid.Scope, error) {
	value := session.cfg.Extract.IDScope
	if cmd.Flags().Changed("id-scope") {
		value = f.scope
	}
	return branchid.ParseScope(value)
}

func (f *loadFlags) loadConfig(cmd *cobra.Command, args []string) ssaload.LoadConfig {
	patterns := args
	if len(patterns) == 0 {
		patterns = session.cfg.Extract.Patterns
	}
	tests := session.cfg.Extract.Tests
	if cmd.Flags().Changed("tests") {
		tests = f.tests
	}
	return ssaload.LoadConfig{Dir: f.dir, Patterns: patterns, Tests: tests}
}

// loadModule loads and lowers the packages named by args. Lowering
// diagnostics are printed and do not fail the command.
func (f *loadFlags) loadModule(ctx context.Context, cmd *cobra.Command, args []string, sink driver.ProgressSink) (*ir.Module, error) {
	m, bag, err := driver.Load(ctx, driver.LoadOptions{
		LoadConfig:     f.loadConfig(cmd, args),
		Sink:           sink,
		Timer:          session.timer,
		MaxDiagnostics: maxDiagnostics(cmd),
	})
	printDiagnostics(cmd.ErrOrStderr(), bag)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// selected resolves --func names to full function names. Nil means all.
func (f *loadFlags) selected(m *ir.Module) (map[string]bool, error) {
	if len(f.funcs) == 0 {
		return nil, nil
	}
	only := make(map[string]bool, len(f.funcs))
	for _, name := range f.funcs {
		fn, err := ssaload.Lookup(m, name)
		if err != nil {
			return nil, err
		}
		only[fn.Name] = true
	}
	return only, nil
}

func printDiagnostics(w io.Writer, bag *diag.Bag) {
	if bag == nil || bag.Len() == 0 {
		return
	}
	bag.Sort()
	diag.Fprint(w, bag.Items())
}

// openOutput returns stdout for "" or "-", else creates path.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output: %w", err)
	}
	return file, file.Close, nil
}
