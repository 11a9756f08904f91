package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"branchlab/internal/driver"
)

func TestApplyEventTracksStatus(t *testing.T) {
	m := NewProgressModel("extract", []string{"pkg.a", "pkg.b"}, nil).(*progressModel)

	m.applyEvent(driver.Event{Func: "pkg.a", Stage: driver.StageExtract, Status: driver.StatusWorking})
	assert.Equal(t, "extracting", m.items[0].status)
	assert.InDelta(t, 0.25, m.fraction(), 1e-9)

	m.applyEvent(driver.Event{Func: "pkg.a", Stage: driver.StageExtract, Status: driver.StatusDone})
	m.applyEvent(driver.Event{Func: "pkg.b", Stage: driver.StageExtract, Status: driver.StatusError, Err: errors.New("bad")})
	assert.Equal(t, "error", m.items[1].status)
	assert.Equal(t, "bad", m.items[1].err)
	assert.InDelta(t, 1.0, m.fraction(), 1e-9)

	m.applyEvent(driver.Event{Func: "pkg.unknown", Status: driver.StatusDone})
	m.applyEvent(driver.Event{Stage: driver.StageLoad, Status: driver.StatusWorking})
	assert.Equal(t, "loading", m.stageLabel)
}

func TestViewListsFunctions(t *testing.T) {
	m := NewProgressModel("extract", []string{"pkg.a"}, nil).(*progressModel)
	m.done = true
	view := m.View()
	assert.True(t, strings.HasPrefix(stripANSI(view), "done: extract"), view)
	assert.Contains(t, view, "pkg.a")
}

func TestViewShowsElapsedAndError(t *testing.T) {
	m := NewProgressModel("run", []string{"pkg.a"}, nil).(*progressModel)
	m.applyEvent(driver.Event{Func: "pkg.a", Stage: driver.StageRun, Status: driver.StatusError,
		Err: errors.New("step limit exceeded\nmore detail"), Elapsed: 1500 * time.Millisecond})

	view := stripANSI(m.View())
	assert.Contains(t, view, "1.5s")
	assert.Contains(t, view, "step limit exceeded")
	assert.NotContains(t, view, "more detail")
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "-", formatElapsed(0))
	assert.Equal(t, "12µs", formatElapsed(12*time.Microsecond))
	assert.Equal(t, "2.5ms", formatElapsed(2500*time.Microsecond))
	assert.Equal(t, "3s", formatElapsed(3*time.Second))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}

func stripANSI(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == 0x1b {
			for i < len(s) && s[i] != 'm' {
				i++
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
