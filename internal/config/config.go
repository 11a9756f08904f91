// Package config reads branchlab.toml, the optional project file that
// provides defaults for the command-line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"branchlab/internal/branchid"
	"branchlab/internal/branchlog"
	"branchlab/internal/features"
	"branchlab/internal/trace"
)

// FileName is the name looked up by Find.
const FileName = "branchlab.toml"

type Config struct {
	// Path is the file the config was read from; empty for defaults.
	Path    string        `toml:"-"`
	Extract ExtractConfig `toml:"extract"`
	Runtime RuntimeConfig `toml:"runtime"`
	Trace   TraceConfig   `toml:"trace"`
}

type ExtractConfig struct {
	Patterns []string `toml:"patterns"`
	Tests    bool     `toml:"tests"`
	Mode     string   `toml:"mode"`
	IDScope  string   `toml:"id_scope"`
	Format   string   `toml:"format"`
	Jobs     int      `toml:"jobs"`
}

type RuntimeConfig struct {
	LogDir      string `toml:"log_dir"`
	ProgramName string `toml:"program_name"`
	Append      bool   `toml:"append"`
	MaxSteps    int    `toml:"max_steps"`
}

type TraceConfig struct {
	Level  string `toml:"level"`
	Output string `toml:"output"`
	Format string `toml:"format"`
}

// Default returns the settings used when no file is found.
func Default() Config {
	return Config{
		Extract: ExtractConfig{
			Patterns: []string{"."},
			Mode:     features.ModeBackward.String(),
			IDScope:  branchid.ScopeFunction.String(),
			Format:   "text",
		},
		Runtime: RuntimeConfig{LogDir: branchlog.DefaultDir},
		Trace:   TraceConfig{Level: "off", Output: "stderr", Format: "auto"},
	}
}

// Find walks up from startDir to locate branchlab.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover loads the nearest branchlab.toml above startDir, or returns the
// defaults when there is none.
func Discover(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Load reads and validates the file at path. Keys left out keep their
// default values; relative log_dir entries resolve against the file's
// directory.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path
	if cfg.Runtime.LogDir != "" && !filepath.IsAbs(cfg.Runtime.LogDir) {
		cfg.Runtime.LogDir = filepath.Join(filepath.Dir(path), cfg.Runtime.LogDir)
	}
	return cfg, nil
}

// Decode parses TOML from r on top of Default.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	meta, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if meta.IsDefined("extract", "patterns") && len(cfg.Extract.Patterns) == 0 {
		return Config{}, errors.New("[extract].patterns must not be empty")
	}
	if meta.IsDefined("runtime", "log_dir") && strings.TrimSpace(cfg.Runtime.LogDir) == "" {
		return Config{}, errors.New("[runtime].log_dir must not be empty")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every enumerated value.
func (c Config) Validate() error {
	var errs []error
	if _, err := features.ParseMode(c.Extract.Mode); err != nil {
		errs = append(errs, fmt.Errorf("[extract].mode: %w", err))
	}
	if _, err := branchid.ParseScope(c.Extract.IDScope); err != nil {
		errs = append(errs, fmt.Errorf("[extract].id_scope: %w", err))
	}
	switch c.Extract.Format {
	case "text", "msgpack":
	default:
		errs = append(errs, fmt.Errorf("[extract].format: unknown format %q (want text or msgpack)", c.Extract.Format))
	}
	if c.Extract.Jobs < 0 {
		errs = append(errs, fmt.Errorf("[extract].jobs: must be >= 0, got %d", c.Extract.Jobs))
	}
	if c.Runtime.MaxSteps < 0 {
		errs = append(errs, fmt.Errorf("[runtime].max_steps: must be >= 0, got %d", c.Runtime.MaxSteps))
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		errs = append(errs, fmt.Errorf("[trace].level: %w", err))
	}
	if _, err := trace.ParseFormat(c.Trace.Format); err != nil {
		errs = append(errs, fmt.Errorf("[trace].format: %w", err))
	}
	return errors.Join(errs...)
}

// Encode writes c as TOML.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
