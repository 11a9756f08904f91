package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"branchlab/internal/driver"
	"branchlab/internal/ir"
	"branchlab/internal/ui"
)

type extractOutcome struct {
	result *driver.ExtractResult
	err    error
}

// runExtractWithUI runs driver.Extract while the progress view renders on
// stderr; stdout stays free for the report.
func runExtractWithUI(ctx context.Context, title string, m *ir.Module, opts driver.ExtractOptions) (*driver.ExtractResult, error) {
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan extractOutcome, 1)

	var names []string
	for _, f := range m.Defined() {
		if opts.Only == nil || opts.Only[f.Name] {
			names = append(names, f.Name)
		}
	}

	go func() {
		optsCopy := opts
		optsCopy.Sink = driver.ChannelSink{Ch: events}
		res, err := driver.Extract(ctx, m, optsCopy)
		outcomeCh <- extractOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, names, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	_, uiErr := program.Run()
	// Drain so the extraction can finish if the view quit early.
	for range events {
	}
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
