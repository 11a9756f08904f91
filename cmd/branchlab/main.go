package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"branchlab/internal/config"
	"branchlab/internal/observ"
	"branchlab/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "branchlab",
	Short:         "Control-flow feature extraction and branch outcome logging",
	Long:          `branchlab extracts per-instruction control-flow features from Go functions, instruments their conditional branches and records branch outcomes at run time`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupColor(cmd); err != nil {
			return err
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		session.cfg = cfg
		session.timer = observ.NewTimer()
		cleanup, err := setupTracing(cmd, cfg)
		if err != nil {
			return err
		}
		session.cleanup = cleanup
		return nil
	},
}

// session holds state shared between the pre-run hook and the commands.
var session struct {
	cfg     config.Config
	timer   *observ.Timer
	cleanup func(failed bool)
}

func init() {
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(instrumentCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().String("config", "", "path to branchlab.toml (default: search upwards from the working directory)")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics to keep per function")
	addTraceFlags(rootCmd)
}

func main() {
	rootCmd.Version = version.Get().Version

	err := rootCmd.Execute()
	finish(rootCmd, err)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.New(color.FgRed, color.Bold).Sprint("error:"), err)
		os.Exit(1)
	}
}

// finish flushes tracing and prints timings once the command returned.
func finish(cmd *cobra.Command, err error) {
	if session.cleanup != nil {
		session.cleanup(err != nil)
	}
	if show, _ := cmd.PersistentFlags().GetBool("timings"); show && session.timer != nil {
		fmt.Fprint(os.Stderr, session.timer.Summary())
	}
}

func setupColor(cmd *cobra.Command) error {
	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	switch mode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto":
		color.NoColor = !isTerminal(os.Stdout)
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
	}
	return nil
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	if path != "" {
		return config.Load(path)
	}
	return config.Discover(".")
}

func quiet(cmd *cobra.Command) bool {
	q, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	return q
}

func maxDiagnostics(cmd *cobra.Command) int {
	n, _ := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	return n
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
