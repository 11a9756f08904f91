package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"branchlab/internal/driver"
	"branchlab/internal/features"
	"branchlab/internal/trace"
)

var (
	extractLoad   loadFlags
	extractMode   string
	extractFormat string
	extractOut    string
	extractJobs   int
	extractUI     string
)

func init() {
	extractLoad.register(extractCmd)
	extractCmd.Flags().StringVar(&extractMode, "mode", "", "distance propagation mode (backward|bidirectional)")
	extractCmd.Flags().StringVar(&extractFormat, "format", "", "report format (text|msgpack)")
	extractCmd.Flags().StringVarP(&extractOut, "out", "o", "", "write the report to a file instead of stdout")
	extractCmd.Flags().IntVar(&extractJobs, "jobs", 0, "parallel workers (0 = GOMAXPROCS)")
	extractCmd.Flags().StringVar(&extractUI, "ui", "off", "progress view (auto|on|off)")
}

var extractCmd = &cobra.Command{
	Use:   "extract [patterns...]",
	Short: "Extract control-flow features for every function",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := session.cfg.Extract
		modeStr := cfg.Mode
		if cmd.Flags().Changed("mode") {
			modeStr = extractMode
		}
		mode, err := features.ParseMode(modeStr)
		if err != nil {
			return err
		}
		format := cfg.Format
		if cmd.Flags().Changed("format") {
			format = extractFormat
		}
		if format != "text" && format != "msgpack" {
			return fmt.Errorf("unsupported format %q (must be text or msgpack)", format)
		}
		jobs := cfg.Jobs
		if cmd.Flags().Changed("jobs") {
			jobs = extractJobs
		}
		scope, err := extractLoad.idScope(cmd)
		if err != nil {
			return err
		}
		uiMode, err := readUIMode(extractUI)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		span := trace.Begin(trace.FromContext(ctx), trace.ScopeCommand, "extract", 0)
		defer span.End("")
		ctx = trace.WithSpanContext(ctx, trace.SpanContext{SpanID: span.ID()})

		m, err := extractLoad.loadModule(ctx, cmd, args, nil)
		if err != nil {
			return err
		}
		only, err := extractLoad.selected(m)
		if err != nil {
			return err
		}

		opts := driver.ExtractOptions{
			Mode:           mode,
			Scope:          scope,
			Jobs:           jobs,
			Only:           only,
			Timer:          session.timer,
			MaxDiagnostics: maxDiagnostics(cmd),
		}
		var res *driver.ExtractResult
		if shouldUseTUI(uiMode) {
			res, err = runExtractWithUI(ctx, "extracting "+m.Name, m, opts)
		} else {
			res, err = driver.Extract(ctx, m, opts)
		}
		if err != nil {
			return err
		}
		printDiagnostics(cmd.ErrOrStderr(), res.Diagnostics())

		out, closeOut, err := openOutput(cmd, extractOut)
		if err != nil {
			return err
		}
		reports := res.Reports()
		if format == "msgpack" {
			err = features.EncodeReports(out, reports)
		} else {
			err = features.WriteTextAll(out, reports)
		}
		if cerr := closeOut(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}

		if n := res.Failed(); n > 0 {
			return fmt.Errorf("%d of %d functions failed", n, len(res.Funcs))
		}
		if !quiet(cmd) && extractOut != "" && extractOut != "-" {
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d reports to %s\n", len(reports), extractOut)
		}
		return nil
	},
}
