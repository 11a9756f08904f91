// Package history reads branch-history logs and summarizes the outcomes of
// each branch.
package history

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"branchlab/internal/diag"
)

// Windows are the suffix lengths of the geometric summary.
var Windows = [3]int{2, 4, 8}

// Event is one logged outcome.
type Event struct {
	ID    uint64
	Taken bool
}

// BranchStats summarizes the outcomes of one branch in log order.
type BranchStats struct {
	ID          uint64     `json:"id" yaml:"id"`
	Count       int        `json:"count" yaml:"count"`
	Taken       int        `json:"taken" yaml:"taken"`
	Probability float64    `json:"probability" yaml:"probability"`
	Last4       float64    `json:"last_4_outcomes" yaml:"last_4_outcomes"`
	Geometric   [3]float64 `json:"geometric_summary" yaml:"geometric_summary,flow"`
}

// Summary covers a whole log.
type Summary struct {
	Source   string        `json:"source,omitempty" yaml:"source,omitempty"`
	Events   int           `json:"events" yaml:"events"`
	Branches []BranchStats `json:"branches" yaml:"branches"`
}

// Parse reads "id,taken" lines. A first line that does not parse is taken
// as a header and skipped; blank lines are ignored.
func Parse(r io.Reader) ([]Event, error) {
	var events []Event
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		ev, err := parseLine(text)
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, diag.Errorf(diag.LogBadHistLine, "", diag.NoBlock, "line %d: %v", line, err)
		}
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return events, nil
}

func parseLine(text string) (Event, error) {
	idText, takenText, ok := strings.Cut(text, ",")
	if !ok {
		return Event{}, fmt.Errorf("%q: want branchID,taken", text)
	}
	id, err := strconv.ParseUint(strings.TrimSpace(idText), 10, 64)
	if err != nil {
		return Event{}, fmt.Errorf("%q: bad branch id: %w", text, err)
	}
	switch strings.TrimSpace(takenText) {
	case "0":
		return Event{ID: id}, nil
	case "1":
		return Event{ID: id, Taken: true}, nil
	}
	return Event{}, fmt.Errorf("%q: taken must be 0 or 1", text)
}

// ParseFile parses the log at path.
func ParseFile(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	events, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return events, nil
}

// Summarize groups events by branch ID.
func Summarize(events []Event) *Summary {
	outcomes := make(map[uint64][]bool)
	for _, ev := range events {
		outcomes[ev.ID] = append(outcomes[ev.ID], ev.Taken)
	}
	ids := make([]uint64, 0, len(outcomes))
	for id := range outcomes {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	s := &Summary{Events: len(events), Branches: make([]BranchStats, 0, len(ids))}
	for _, id := range ids {
		s.Branches = append(s.Branches, stats(id, outcomes[id]))
	}
	return s
}

func stats(id uint64, outcomes []bool) BranchStats {
	st := BranchStats{ID: id, Count: len(outcomes)}
	for _, o := range outcomes {
		if o {
			st.Taken++
		}
	}
	st.Probability = fraction(outcomes)
	st.Last4 = suffixFraction(outcomes, 4)
	for i, w := range Windows {
		st.Geometric[i] = suffixFraction(outcomes, w)
	}
	return st
}

// suffixFraction is the taken fraction of the last n outcomes, or of all of
// them when fewer than n were recorded.
func suffixFraction(outcomes []bool, n int) float64 {
	if len(outcomes) >= n {
		return fraction(outcomes[len(outcomes)-n:])
	}
	return fraction(outcomes)
}

func fraction(outcomes []bool) float64 {
	if len(outcomes) == 0 {
		return 0
	}
	taken := 0
	for _, o := range outcomes {
		if o {
			taken++
		}
	}
	return float64(taken) / float64(len(outcomes))
}
