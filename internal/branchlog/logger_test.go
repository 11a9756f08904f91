package branchlog_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"branchlab/internal/branchlog"
	"branchlab/internal/diag"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestLogger_WritesAndFlushesEachEvent(t *testing.T) {
	dir := t.TempDir()
	l := branchlog.New(branchlog.Options{Dir: dir, Program: "demo"})
	t.Cleanup(func() { _ = l.Close() })

	l.Log(0, true)
	path := filepath.Join(dir, "demo_branch_history.log")
	assert.Equal(t, path, l.Path())
	assert.Equal(t, []string{"0,1"}, readLines(t, path))

	l.Log(0, false)
	l.Log(17, true)
	assert.Equal(t, []string{"0,1", "0,0", "17,1"}, readLines(t, path))
	assert.Equal(t, uint64(3), l.Events())
	assert.NoError(t, l.Err())
}

func TestLogger_ProgramNameResolution(t *testing.T) {
	env := func(v string) func(string) string {
		return func(key string) string {
			if key == branchlog.EnvProgramName {
				return v
			}
			return ""
		}
	}
	tests := []struct {
		name     string
		explicit string
		env      string
		want     string
	}{
		{name: "explicit_wins", explicit: "cli", env: "fromenv", want: "cli"},
		{name: "env_fallback", env: "fromenv", want: "fromenv"},
		{name: "default", want: branchlog.DefaultProgram},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := branchlog.New(branchlog.Options{Dir: t.TempDir(), Getenv: env(tt.env)})
			if tt.explicit != "" {
				l.SetProgramName(tt.explicit)
			}
			assert.Equal(t, tt.want, l.ProgramName())
		})
	}
}

func TestLogger_EnvironmentVariable(t *testing.T) {
	t.Setenv(branchlog.EnvProgramName, "envprog")
	dir := t.TempDir()
	l := branchlog.New(branchlog.Options{Dir: dir})
	l.Log(1, false)
	require.NoError(t, l.Close())
	assert.Equal(t, []string{"1,0"}, readLines(t, filepath.Join(dir, "envprog_branch_history.log")))
}

func TestLogger_SetProgramNameAfterOpenIgnored(t *testing.T) {
	dir := t.TempDir()
	l := branchlog.New(branchlog.Options{Dir: dir, Program: "first"})
	l.Log(0, true)
	l.SetProgramName("second")
	l.Log(1, true)
	require.NoError(t, l.Close())
	assert.Equal(t, filepath.Join(dir, "first_branch_history.log"), l.Path())
	_, err := os.Stat(filepath.Join(dir, "second_branch_history.log"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLogger_MissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "absent")
	var warn bytes.Buffer
	l := branchlog.New(branchlog.Options{Dir: dir, Program: "demo", Warnings: &warn})

	l.Log(0, true)
	l.Log(1, false)
	require.NoError(t, l.Close())

	assert.Contains(t, warn.String(), "directory may not exist")
	assert.Equal(t, 1, strings.Count(warn.String(), "\n"), "warning should be emitted once")
	_, err := os.Stat(dir)
	assert.True(t, errors.Is(err, os.ErrNotExist), "no directory or file may be created")
	assert.Equal(t, uint64(0), l.Events())

	var d *diag.Diagnostic
	require.True(t, errors.As(l.Err(), &d))
	assert.Equal(t, diag.LogDirMissing, d.Code)
	assert.Equal(t, diag.SevWarning, d.Severity)
}

func TestLogger_TruncateAndAppend(t *testing.T) {
	dir := t.TempDir()
	path := branchlog.PathFor(dir, "demo")
	require.NoError(t, os.WriteFile(path, []byte("9,1\n"), 0o644))

	l := branchlog.New(branchlog.Options{Dir: dir, Program: "demo"})
	l.Log(0, true)
	require.NoError(t, l.Close())
	assert.Equal(t, []string{"0,1"}, readLines(t, path))

	l = branchlog.New(branchlog.Options{Dir: dir, Program: "demo", Append: true})
	l.Log(0, false)
	require.NoError(t, l.Close())
	assert.Equal(t, []string{"0,1", "0,0"}, readLines(t, path))
}

func TestLogger_CloseIdempotentAndDropsLaterEvents(t *testing.T) {
	dir := t.TempDir()
	l := branchlog.New(branchlog.Options{Dir: dir, Program: "demo"})
	l.Log(3, true)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	l.Log(4, true)
	assert.Equal(t, []string{"3,1"}, readLines(t, l.Path()))
}

func TestLogger_ConcurrentWritersProduceWholeLines(t *testing.T) {
	dir := t.TempDir()
	l := branchlog.New(branchlog.Options{Dir: dir, Program: "conc"})

	const workers, perWorker = 8, 200
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				l.Log(id, i%2 == 0)
			}
		}(uint64(w))
	}
	wg.Wait()
	require.NoError(t, l.Close())

	lines := readLines(t, l.Path())
	require.Len(t, lines, workers*perWorker)
	for _, line := range lines {
		id, taken, ok := strings.Cut(line, ",")
		require.True(t, ok, line)
		assert.Len(t, id, 1, line)
		assert.Contains(t, []string{"0", "1"}, taken, line)
	}
}

func TestHook_InstallAndFinalize(t *testing.T) {
	dir := t.TempDir()
	l := branchlog.New(branchlog.Options{Dir: dir})
	restore := branchlog.Install(l)
	defer restore()

	branchlog.SetProgramName("hooked")
	branchlog.LogBranchOutcome(5, true)
	branchlog.LogBranchOutcome(5, false)
	require.NoError(t, branchlog.Finalize())

	assert.Same(t, l, branchlog.Default())
	assert.Equal(t, []string{"5,1", "5,0"}, readLines(t, filepath.Join(dir, "hooked_branch_history.log")))
}
