// Package observ measures the duration of pipeline phases.
package observ

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Phase is one timed step. Depth is zero for top-level phases and grows by
// one for each level of Child nesting.
type Phase struct {
	Name  string
	Depth int
	Start time.Time
	Dur   time.Duration
	Note  string
	open  bool
}

// Timer collects phases in start order. A nil *Timer records nothing, so
// callers pass it through unconditionally.
type Timer struct {
	mu     sync.Mutex
	phases []Phase
}

func NewTimer() *Timer { return &Timer{phases: make([]Phase, 0, 8)} }

// Stopwatch is the handle for a started phase. A nil *Stopwatch is valid and
// does nothing.
type Stopwatch struct {
	t   *Timer
	idx int
}

// Start opens a top-level phase.
func (t *Timer) Start(name string) *Stopwatch {
	return t.start(name, 0)
}

func (t *Timer) start(name string, depth int) *Stopwatch {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phases = append(t.phases, Phase{Name: name, Depth: depth, Start: time.Now(), open: true})
	return &Stopwatch{t: t, idx: len(t.phases) - 1}
}

// Child opens a phase nested under s.
func (s *Stopwatch) Child(name string) *Stopwatch {
	if s == nil {
		return nil
	}
	s.t.mu.Lock()
	depth := s.t.phases[s.idx].Depth + 1
	s.t.mu.Unlock()
	return s.t.start(name, depth)
}

// Stop closes the phase. Only the first call has an effect.
func (s *Stopwatch) Stop(note string) {
	if s == nil {
		return
	}
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	p := &s.t.phases[s.idx]
	if !p.open {
		return
	}
	p.open = false
	p.Dur = time.Since(p.Start)
	p.Note = note
}

// Summary renders the report as an indented table for stderr.
func (t *Timer) Summary() string {
	report := t.Report()
	var b strings.Builder
	b.WriteString("timings:\n")
	for _, p := range report.Phases {
		label := strings.Repeat("  ", p.Depth) + p.Name
		fmt.Fprintf(&b, "  %-24s %9.2f ms", label, p.DurationMS)
		if p.Depth == 0 && report.TotalMS > 0 {
			fmt.Fprintf(&b, " %5.1f%%", 100*p.DurationMS/report.TotalMS)
		}
		if p.Note != "" {
			b.WriteString("  " + p.Note)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "  %-24s %9.2f ms\n", "total", report.TotalMS)
	return b.String()
}

// PhaseReport is the serialisable form of a phase.
type PhaseReport struct {
	Name       string  `json:"name"`
	Depth      int     `json:"depth,omitempty"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report lists every phase. TotalMS sums the top-level phases only, since
// nested durations are already inside their parent. Phases still open are
// reported with the time elapsed so far.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

func (t *Timer) Report() Report {
	if t == nil {
		return Report{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.phases) == 0 {
		return Report{}
	}
	report := Report{Phases: make([]PhaseReport, len(t.phases))}
	var total time.Duration
	for i, p := range t.phases {
		dur := p.Dur
		if p.open {
			dur = time.Since(p.Start)
		}
		if p.Depth == 0 {
			total += dur
		}
		report.Phases[i] = PhaseReport{
			Name:       p.Name,
			Depth:      p.Depth,
			DurationMS: millis(dur),
			Note:       p.Note,
		}
	}
	report.TotalMS = millis(total)
	return report
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
