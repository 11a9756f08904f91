package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"branchlab/internal/features"
	"branchlab/internal/version"
)

type versionOptions struct {
	format   string
	showHash bool
	showDate bool
	showFull bool
}

// versionPayload backs both output formats. Fields left empty are omitted.
type versionPayload struct {
	Tool         string `json:"tool"`
	Version      string `json:"version"`
	GitCommit    string `json:"git_commit,omitempty"`
	BuildDate    string `json:"build_date,omitempty"`
	GoVersion    string `json:"go_version,omitempty"`
	ReportSchema uint16 `json:"report_schema,omitempty"`
}

var versionFlags versionOptions

func init() {
	f := versionCmd.Flags()
	f.BoolVar(&versionFlags.showHash, "hash", false, "include git commit hash")
	f.BoolVar(&versionFlags.showDate, "date", false, "include build timestamp")
	f.BoolVar(&versionFlags.showFull, "full", false, "include commit, date, toolchain and report schema")
	f.StringVar(&versionFlags.format, "format", "pretty", "output format (pretty|json)")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show build metadata",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := versionFlags
		opts.format = strings.ToLower(opts.format)
		switch opts.format {
		case "json":
			return renderVersionJSON(cmd.OutOrStdout(), version.Get(), opts)
		case "pretty":
			renderVersionPretty(cmd.OutOrStdout(), version.Get(), opts)
			return nil
		}
		return fmt.Errorf("unsupported format %q (must be pretty or json)", versionFlags.format)
	},
}

func buildVersionPayload(info version.Info, opts versionOptions) versionPayload {
	p := versionPayload{Tool: "branchlab", Version: info.Version}
	if opts.showHash || opts.showFull {
		p.GitCommit = valueOrUnknown(info.GitCommit)
	}
	if opts.showDate || opts.showFull {
		p.BuildDate = valueOrUnknown(info.BuildDate)
	}
	if opts.showFull {
		p.GoVersion = info.GoVersion
		p.ReportSchema = features.ReportSchemaVersion
	}
	return p
}

func renderVersionPretty(out io.Writer, info version.Info, opts versionOptions) {
	p := buildVersionPayload(info, opts)
	fmt.Fprintf(out, "%s %s\n", p.Tool, version.Colored(p.Version))
	rows := []struct{ label, value string }{
		{"commit", p.GitCommit},
		{"built", p.BuildDate},
		{"go", p.GoVersion},
	}
	if p.ReportSchema != 0 {
		rows = append(rows, struct{ label, value string }{"report schema", fmt.Sprint(p.ReportSchema)})
	}
	for _, r := range rows {
		if r.value != "" {
			fmt.Fprintf(out, "%-14s %s\n", r.label+":", r.value)
		}
	}
}

func renderVersionJSON(out io.Writer, info version.Info, opts versionOptions) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(buildVersionPayload(info, opts))
}

func valueOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
