// Package branchlog persists branch outcomes reported by instrumented code,
// one "branchID,taken" line per event.
package branchlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"branchlab/internal/diag"
)

const (
	// DefaultDir is the directory logs are written to when none is set.
	DefaultDir = "branch_history_logs"
	// EnvProgramName names the program when SetProgramName was not called.
	EnvProgramName = "PROGRAM_NAME"
	// DefaultProgram is the program name of last resort.
	DefaultProgram = "unknown"

	fileSuffix = "_branch_history.log"
)

type state uint8

const (
	stateIdle state = iota
	stateOpen
	stateFailed
	stateClosed
)

// Options configures a Logger. Zero values select the defaults.
type Options struct {
	Dir string
	// Program is the explicit program name; it wins over the environment.
	Program string
	// Append keeps earlier runs' events instead of truncating the log.
	Append bool
	// Warnings receives diagnostics; os.Stderr when nil.
	Warnings io.Writer
	// Getenv looks environment variables up; os.Getenv when nil.
	Getenv func(string) string
}

// Logger writes branch events to a per-program file opened on the first
// event. Every event is flushed before Log returns. Failures degrade the
// logger to a no-op and are never reported to the caller.
type Logger struct {
	mu      sync.Mutex
	opts    Options
	program string
	state   state
	path    string
	file    *os.File
	w       *bufio.Writer
	events  uint64
	err     error
}

// New returns an idle logger.
func New(opts Options) *Logger {
	if opts.Dir == "" {
		opts.Dir = DefaultDir
	}
	if opts.Warnings == nil {
		opts.Warnings = os.Stderr
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	return &Logger{opts: opts, program: opts.Program}
}

// SetProgramName sets the explicit program name. It has no effect once the
// log file has been opened.
func (l *Logger) SetProgramName(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == stateIdle {
		l.program = name
	}
}

// ProgramName resolves the program name: explicit, then environment, then
// DefaultProgram.
func (l *Logger) ProgramName() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.resolveProgram()
}

func (l *Logger) resolveProgram() string {
	if l.program != "" {
		return l.program
	}
	if env := l.opts.Getenv(EnvProgramName); env != "" {
		return env
	}
	return DefaultProgram
}

// PathFor returns the log path for program under dir.
func PathFor(dir, program string) string {
	return filepath.Join(dir, program+fileSuffix)
}

// Log records one outcome.
func (l *Logger) Log(branchID uint64, taken bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == stateIdle {
		l.open()
	}
	if l.state != stateOpen {
		return
	}
	outcome := '0'
	if taken {
		outcome = '1'
	}
	if _, err := fmt.Fprintf(l.w, "%d,%c\n", branchID, outcome); err != nil {
		l.fail(diag.Warnf(diag.LogWriteFailed, "", "write %s: %v", l.path, err))
		return
	}
	if err := l.w.Flush(); err != nil {
		l.fail(diag.Warnf(diag.LogWriteFailed, "", "flush %s: %v", l.path, err))
		return
	}
	l.events++
}

func (l *Logger) open() {
	l.path = PathFor(l.opts.Dir, l.resolveProgram())

	info, err := os.Stat(l.opts.Dir)
	if err != nil || !info.IsDir() {
		l.fail(diag.Warnf(diag.LogDirMissing, "", "%s directory may not exist", l.opts.Dir))
		return
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if l.opts.Append {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	f, err := os.OpenFile(l.path, flags, 0o644)
	if err != nil {
		l.fail(diag.Warnf(diag.LogOpenFailed, "", "failed to open %s: %v", l.path, err))
		return
	}
	l.file = f
	l.w = bufio.NewWriter(f)
	l.state = stateOpen
}

func (l *Logger) fail(d *diag.Diagnostic) {
	if l.file != nil {
		_ = l.file.Close() //nolint:errcheck
		l.file = nil
	}
	l.state = stateFailed
	if l.err == nil {
		l.err = d
	}
	diag.Fprint(l.opts.Warnings, []diag.Diagnostic{*d})
}

// Close flushes and closes the log. Further events are dropped. Calling
// Close again returns nil.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.state
	l.state = stateClosed
	if prev != stateOpen {
		return nil
	}
	var errs []error
	if err := l.w.Flush(); err != nil {
		errs = append(errs, err)
	}
	if err := l.file.Close(); err != nil {
		errs = append(errs, err)
	}
	l.file = nil
	if err := errors.Join(errs...); err != nil {
		return diag.Warnf(diag.LogCloseFailed, "", "close %s: %v", l.path, err)
	}
	return nil
}

// Path is the resolved log path, empty before the first event.
func (l *Logger) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

// Events counts events written to the file.
func (l *Logger) Events() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.events
}

// Err returns the first problem that disabled the logger, if any.
func (l *Logger) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}
