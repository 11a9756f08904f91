package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as TOML",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if session.cfg.Path != "" {
			fmt.Fprintf(out, "# loaded from %s\n", session.cfg.Path)
		} else {
			fmt.Fprintln(out, "# defaults (no branchlab.toml found)")
		}
		return session.cfg.Encode(out)
	},
}
