package main

import (
	"github.com/spf13/cobra"

	"branchlab/internal/history"
)

var historyFormat string

func init() {
	historyCmd.Flags().StringVar(&historyFormat, "format", "pretty", "output format (pretty|json|yaml)")
}

var historyCmd = &cobra.Command{
	Use:   "history LOG",
	Short: "Summarize a branch history log per branch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := history.ParseFormat(historyFormat)
		if err != nil {
			return err
		}
		events, err := history.ParseFile(args[0])
		if err != nil {
			return err
		}
		summary := history.Summarize(events)
		summary.Source = args[0]
		return history.Render(cmd.OutOrStdout(), summary, format)
	},
}
