package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"branchlab/internal/branchlog"
	"branchlab/internal/history"
	"branchlab/internal/version"
)

const sampleDir = "../../internal/ssaload/testdata/sample"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	finish(rootCmd, err)
	if err != nil {
		t.Logf("stderr:\n%s", errOut.String())
	}
	return out.String(), err
}

func TestHistoryCommandJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog_branch_history.log")
	if err := os.WriteFile(path, []byte("0,1\n0,0\n1,1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "history", path, "--format", "json")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var s history.Summary
	if err := json.Unmarshal([]byte(out), &s); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if s.Events != 3 || len(s.Branches) != 2 || s.Source != path {
		t.Errorf("summary = %+v", s)
	}
}

func TestExtractCommandText(t *testing.T) {
	out, err := execute(t, "extract", "--dir", sampleDir, "--func", "Clamp", ".")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.HasPrefix(out, "Control-flow features for function: example.com/sample.Clamp\nBranch ID scope: function\nDistance mode: backward\n") {
		t.Errorf("unexpected report header:\n%s", out)
	}
	if !strings.Contains(out, "BranchID: 1   ") {
		t.Errorf("second branch not numbered:\n%s", out)
	}
	if strings.Contains(out, "sample.Count") {
		t.Errorf("--func did not filter:\n%s", out)
	}
}

func TestRunCommandLogsOutcomes(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "run", "--dir", sampleDir, "--entry", "Clamp",
		"--arg", "5", "--arg", "0", "--arg", "3",
		"--log-dir", dir, "--program", "clamp", ".")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if want := "example.com/sample.Clamp(5, 0, 3) = 3\n"; out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
	data, err := os.ReadFile(branchlog.PathFor(dir, "clamp"))
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); got != "0,0\n1,1\n" {
		t.Errorf("log = %q", got)
	}
}

func TestReportLogOutcome(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nolog")
	logger := branchlog.New(branchlog.Options{Dir: missing, Program: "x", Warnings: &bytes.Buffer{}})
	logger.Log(0, true)
	var buf bytes.Buffer
	reportLogOutcome(&buf, logger)
	if !strings.HasPrefix(buf.String(), "branch logging disabled: ") || strings.Contains(buf.String(), "x_branch_history.log") {
		t.Errorf("missing directory reported as %q", buf.String())
	}

	dir := t.TempDir()
	logger = branchlog.New(branchlog.Options{Dir: dir, Program: "x"})
	logger.Log(0, true)
	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}
	buf.Reset()
	reportLogOutcome(&buf, logger)
	if want := "logged 1 branch outcomes to " + branchlog.PathFor(dir, "x") + "\n"; buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}

	buf.Reset()
	reportLogOutcome(&buf, branchlog.New(branchlog.Options{Dir: dir}))
	if buf.Len() != 0 {
		t.Errorf("idle logger reported %q", buf.String())
	}
}

func TestReadUIMode(t *testing.T) {
	for in, want := range map[string]uiMode{"": uiModeAuto, "AUTO": uiModeAuto, "on": uiModeOn, " off ": uiModeOff} {
		got, err := readUIMode(in)
		if err != nil || got != want {
			t.Errorf("readUIMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := readUIMode("sometimes"); err == nil {
		t.Error("expected error for invalid mode")
	}
	if !shouldUseTUI(uiModeOn) || shouldUseTUI(uiModeOff) {
		t.Error("explicit modes must win")
	}
}

func TestFormatCall(t *testing.T) {
	if got := formatCall("p.f", []int64{1, -2}); got != "p.f(1, -2)" {
		t.Errorf("formatCall = %q", got)
	}
	if got := formatCall("p.g", nil); got != "p.g()" {
		t.Errorf("formatCall = %q", got)
	}
}

func TestRenderVersionJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := renderVersionJSON(&buf, versionInfoForTest(), versionOptions{showHash: true}); err != nil {
		t.Fatal(err)
	}
	var p versionPayload
	if err := json.Unmarshal(buf.Bytes(), &p); err != nil {
		t.Fatal(err)
	}
	if p.Tool != "branchlab" || p.Version != "1.0.0" || p.GitCommit != "unknown" || p.BuildDate != "" {
		t.Errorf("payload = %+v", p)
	}
}

func TestRenderVersionPrettyFull(t *testing.T) {
	var buf bytes.Buffer
	info := version.Info{Version: "1.0.0", GitCommit: "abc123", GoVersion: "go1.25.1"}
	renderVersionPretty(&buf, info, versionOptions{showFull: true})
	out := buf.String()
	for _, want := range []string{"commit:        abc123\n", "built:         unknown\n", "go:            go1.25.1\n", "report schema: 1\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func versionInfoForTest() version.Info {
	return version.Info{Version: "1.0.0"}
}
