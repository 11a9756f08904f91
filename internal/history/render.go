package history

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// Format selects a Render output.
type Format string

const (
	FormatPretty Format = "pretty"
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
)

// ParseFormat accepts pretty, json or yaml.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatPretty, nil
	case FormatPretty, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown history format %q (want pretty, json or yaml)", s)
}

// Render writes s in format.
func Render(w io.Writer, s *Summary, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	default:
		return renderPretty(w, s)
	}
}

func renderPretty(w io.Writer, s *Summary) error {
	p := message.NewPrinter(language.English)
	if s.Source != "" {
		p.Fprintf(w, "%s\n", s.Source)
	}
	p.Fprintf(w, "%d events, %d branches\n", s.Events, len(s.Branches))
	if len(s.Branches) == 0 {
		return nil
	}

	header := []string{"branch", "count", "taken", "p(taken)", "last 4", "geometric 2/4/8"}
	rows := make([][]string, 0, len(s.Branches))
	for _, b := range s.Branches {
		rows = append(rows, []string{
			p.Sprintf("%d", b.ID),
			p.Sprintf("%d", b.Count),
			p.Sprintf("%d", b.Taken),
			fmt.Sprintf("%.3f", b.Probability),
			fmt.Sprintf("%.3f", b.Last4),
			fmt.Sprintf("%.2f %.2f %.2f", b.Geometric[0], b.Geometric[1], b.Geometric[2]),
		})
	}
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, r := range rows {
		for i, cell := range r {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	writeRow := func(cells []string) error {
		var sb strings.Builder
		for i, cell := range cells {
			if i > 0 {
				sb.WriteString("  ")
			}
			if i == 0 || i == len(cells)-1 {
				sb.WriteString(runewidth.FillRight(cell, widths[i]))
			} else {
				sb.WriteString(runewidth.FillLeft(cell, widths[i]))
			}
		}
		_, err := io.WriteString(w, strings.TrimRight(sb.String(), " ")+"\n")
		return err
	}
	if err := writeRow(header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := writeRow(r); err != nil {
			return err
		}
	}
	return nil
}
