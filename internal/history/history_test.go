package history_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"branchlab/internal/diag"
	"branchlab/internal/history"
)

func TestParse_SkipsHeaderAndBlankLines(t *testing.T) {
	events, err := history.Parse(strings.NewReader("branch_id,taken\n0,1\n\n0,0\n3,1\n"))
	require.NoError(t, err)
	assert.Equal(t, []history.Event{{ID: 0, Taken: true}, {ID: 0}, {ID: 3, Taken: true}}, events)
}

func TestParse_RejectsMalformedLine(t *testing.T) {
	_, err := history.Parse(strings.NewReader("0,1\n1,2\n"))
	require.Error(t, err)
	var d *diag.Diagnostic
	require.True(t, errors.As(err, &d))
	assert.Equal(t, diag.LogBadHistLine, d.Code)
	assert.Contains(t, d.Message, "line 2")
}

func TestSummarize_Windows(t *testing.T) {
	var events []history.Event
	// Branch 0: T T F F T T T F F T (10 outcomes).
	for _, c := range "TTFFTTTFFT" {
		events = append(events, history.Event{ID: 0, Taken: c == 'T'})
	}
	// Branch 1: T F T (3 outcomes, fewer than every window but 2).
	for _, c := range "TFT" {
		events = append(events, history.Event{ID: 1, Taken: c == 'T'})
	}

	s := history.Summarize(events)
	require.Len(t, s.Branches, 2)
	assert.Equal(t, 13, s.Events)

	b0 := s.Branches[0]
	assert.Equal(t, 10, b0.Count)
	assert.Equal(t, 6, b0.Taken)
	assert.InDelta(t, 0.6, b0.Probability, 1e-9)
	assert.InDelta(t, 0.5, b0.Last4, 1e-9)
	assert.InDelta(t, 0.5, b0.Geometric[0], 1e-9)
	assert.InDelta(t, 0.5, b0.Geometric[1], 1e-9)
	assert.InDelta(t, 0.5, b0.Geometric[2], 1e-9)

	b1 := s.Branches[1]
	assert.InDelta(t, 2.0/3, b1.Last4, 1e-9)
	assert.InDelta(t, 0.5, b1.Geometric[0], 1e-9)
	assert.InDelta(t, 2.0/3, b1.Geometric[1], 1e-9)
	assert.InDelta(t, 2.0/3, b1.Geometric[2], 1e-9)
}

func TestRender_Formats(t *testing.T) {
	s := history.Summarize([]history.Event{{ID: 0, Taken: true}, {ID: 0}, {ID: 1234, Taken: true}})

	var pretty bytes.Buffer
	require.NoError(t, history.Render(&pretty, s, history.FormatPretty))
	out := pretty.String()
	assert.True(t, strings.HasPrefix(out, "3 events, 2 branches\n"), out)
	assert.Contains(t, out, "1,234")
	assert.Contains(t, out, "geometric 2/4/8")

	var js bytes.Buffer
	require.NoError(t, history.Render(&js, s, history.FormatJSON))
	var decoded history.Summary
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, *s, decoded)

	var ym bytes.Buffer
	require.NoError(t, history.Render(&ym, s, history.FormatYAML))
	var fromYAML history.Summary
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &fromYAML))
	assert.Equal(t, s.Branches[1].ID, fromYAML.Branches[1].ID)
	assert.Contains(t, ym.String(), "last_4_outcomes")
}

func TestParseFormat(t *testing.T) {
	f, err := history.ParseFormat("YAML")
	require.NoError(t, err)
	assert.Equal(t, history.FormatYAML, f)
	_, err = history.ParseFormat("xml")
	assert.Error(t, err)
}
