package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"branchlab/internal/branchlog"
	"branchlab/internal/driver"
	"branchlab/internal/trace"
)

var (
	runLoad     loadFlags
	runFunc     string
	runArgs     []int64
	runRepeat   int
	runProgram  string
	runLogDir   string
	runAppend   bool
	runMaxSteps int
	runExecLog  bool
)

func init() {
	runLoad.register(runCmd)
	runCmd.Flags().StringVar(&runFunc, "entry", "", "function to call (full name or unique suffix)")
	runCmd.Flags().Int64SliceVar(&runArgs, "arg", nil, "integer argument, repeatable")
	runCmd.Flags().IntVar(&runRepeat, "repeat", 1, "number of calls")
	runCmd.Flags().StringVar(&runProgram, "program", "", "program name used for the log file (default: $PROGRAM_NAME or unknown)")
	runCmd.Flags().StringVar(&runLogDir, "log-dir", "", "directory receiving branch history logs")
	runCmd.Flags().BoolVar(&runAppend, "append", false, "append to an existing log instead of truncating it")
	runCmd.Flags().IntVar(&runMaxSteps, "max-steps", 0, "abort after this many instructions per call (0 = default)")
	runCmd.Flags().BoolVar(&runExecLog, "exec-trace", false, "print every executed instruction to stderr")
}

var runCmd = &cobra.Command{
	Use:   "run --entry NAME [patterns...]",
	Short: "Instrument the packages and execute one function, logging branch outcomes",
	RunE: func(cmd *cobra.Command, args []string) error {
		entry := runFunc
		if entry == "" && len(runLoad.funcs) == 1 {
			entry = runLoad.funcs[0]
		}
		if entry == "" {
			return fmt.Errorf("missing --entry")
		}
		scope, err := runLoad.idScope(cmd)
		if err != nil {
			return err
		}

		rt := session.cfg.Runtime
		if cmd.Flags().Changed("log-dir") {
			rt.LogDir = runLogDir
		}
		if cmd.Flags().Changed("program") {
			rt.ProgramName = runProgram
		}
		if cmd.Flags().Changed("append") {
			rt.Append = runAppend
		}
		if cmd.Flags().Changed("max-steps") {
			rt.MaxSteps = runMaxSteps
		}

		ctx := cmd.Context()
		span := trace.Begin(trace.FromContext(ctx), trace.ScopeCommand, "run", 0)
		defer span.End("")
		ctx = trace.WithSpanContext(ctx, trace.SpanContext{SpanID: span.ID()})

		m, err := runLoad.loadModule(ctx, cmd, args, nil)
		if err != nil {
			return err
		}
		sw := session.timer.Start("instrument")
		_, bag, err := driver.Instrument(ctx, m, scope, nil)
		sw.Stop(scope.String() + " scope")
		if err != nil {
			return err
		}
		printDiagnostics(cmd.ErrOrStderr(), bag)

		logger := branchlog.New(branchlog.Options{
			Dir:      rt.LogDir,
			Append:   rt.Append,
			Warnings: cmd.ErrOrStderr(),
		})
		restore := branchlog.Install(logger)
		defer restore()
		if rt.ProgramName != "" {
			branchlog.SetProgramName(rt.ProgramName)
		}

		opts := driver.RunOptions{
			Func:     entry,
			Args:     runArgs,
			Repeat:   runRepeat,
			Logger:   branchlog.Default(),
			MaxSteps: rt.MaxSteps,
		}
		if runExecLog {
			opts.Trace = os.Stderr
		}
		sw = session.timer.Start("run")
		res, runErr := driver.Run(ctx, m, opts)
		sw.Stop(entry)
		if err := branchlog.Finalize(); err != nil && runErr == nil {
			runErr = fmt.Errorf("close branch log: %w", err)
		}

		if res != nil {
			out := cmd.OutOrStdout()
			call := formatCall(res.Func, runArgs)
			for _, v := range res.Values {
				fmt.Fprintf(out, "%s = %s\n", call, v)
			}
		}
		if !quiet(cmd) {
			reportLogOutcome(cmd.ErrOrStderr(), logger)
		}
		return runErr
	},
}

// reportLogOutcome names the log file only when the logger actually wrote it.
func reportLogOutcome(w io.Writer, logger *branchlog.Logger) {
	switch {
	case logger.Err() != nil:
		fmt.Fprintf(w, "branch logging disabled: %v\n", logger.Err())
	case logger.Path() != "":
		fmt.Fprintf(w, "logged %d branch outcomes to %s\n", logger.Events(), logger.Path())
	}
}

func formatCall(name string, args []int64) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = strconv.FormatInt(a, 10)
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}
