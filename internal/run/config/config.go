// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package config defines the configuration of a smoke run.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/om-engine/smokerun/errors"
	"github.com/om-engine/smokerun/internal/command"
)

// Mode describes the action to perform.
type Mode int

const (
	// RunMode indicates that programs should be run and their results reported.
	RunMode Mode = iota
	// ListMode indicates that programs should only be listed.
	ListMode
)

// OutputMode describes what happens to the output of programs.
type OutputMode int

const (
	// OutputCapture saves program output to the results directory. stderr
	// is also logged line by line as it is produced; stdout is shown only in
	// failure diagnostics.
	OutputCapture OutputMode = iota
	// OutputStream logs stdout line by line as well.
	OutputStream
)

const (
	// DefaultLibPathVar is the variable pointed at the working directory so
	// that shared libraries shipped next to the programs resolve.
	DefaultLibPathVar = "LD_LIBRARY_PATH"

	// resultsSubdir is the directory under the working directory holding
	// timestamped results directories.
	resultsSubdir = "smokerun_results"

	// maxFailures is the number of failed programs ending a run. It is not
	// configurable: a run always stops at its first failure.
	maxFailures = 1
)

// DefaultPrograms is the program list used when neither the command line nor
// a suite manifest names any.
var DefaultPrograms = []string{
	"hello-bin",
	"02-sdl-dynamic",
	"02-sdl-static",
	"03-sdl-loop",
	"03-sdl-loop-to-engine",
	"game-03-3",
	"game-04-1",
	"game-04-2",
	"game-05-1",
	"game-05-2",
	"game-05-3",
	"game-06-1",
	"game-06-2",
	"game-06-3",
	"sound_test-07-1",
	"game-07-2",
	"game-08-1",
	"engine-08-2",
	"engine-08-3",
	"engine-09-1",
	"engine-10-1",
}

// MutableConfig is similar to Config, but its fields are mutable.
// Call Freeze to obtain a Config from MutableConfig.
type MutableConfig struct {
	// See Config for descriptions of these fields.

	Mode    Mode
	WorkDir string
	ResDir  string

	// Programs holds the programs named on the command line. If empty,
	// the suite manifest or DefaultPrograms is used by DeriveDefaults.
	Programs  []string
	SuiteFile string

	// EnvVars holds -env assignments.
	EnvVars    map[string]string
	EnvFiles   []string
	InheritEnv bool
	LibPathVar string
	LibDirs    []string
	// HostEnv is the environment inherited when InheritEnv is set. It is
	// initialized with os.Environ by NewMutableConfig.
	HostEnv []string

	Timeout    time.Duration
	RunTimeout time.Duration
	Summary    bool
	Output     OutputMode

	// Fields below are set by DeriveDefaults.

	MaxFailures     int
	ChildEnv        []string
	ProgramsSource  string
	ResDirIsDefault bool
}

// Config contains the configuration of a smoke run.
// All Config values are frozen and cannot be altered after construction.
type Config struct {
	m *MutableConfig
}

// Mode is the action to perform.
func (c *Config) Mode() Mode { return c.m.Mode }

// WorkDir is the absolute directory holding the programs. Each program runs
// with it as its current directory.
func (c *Config) WorkDir() string { return c.m.WorkDir }

// ResDir is the directory where results are written.
func (c *Config) ResDir() string { return c.m.ResDir }

// ResDirIsDefault reports whether ResDir was derived rather than given.
func (c *Config) ResDirIsDefault() bool { return c.m.ResDirIsDefault }

// Programs returns the ordered program names. Duplicates are kept.
func (c *Config) Programs() []string { return append([]string(nil), c.m.Programs...) }

// ProgramsSource describes where Programs came from: "args", a manifest
// path, or "default".
func (c *Config) ProgramsSource() string { return c.m.ProgramsSource }

// SuiteFile is the path of the suite manifest, if any.
func (c *Config) SuiteFile() string { return c.m.SuiteFile }

// Env returns the complete child environment as sorted "K=V" entries.
func (c *Config) Env() []string { return append([]string(nil), c.m.ChildEnv...) }

// LibPathVar is the variable pointed at WorkDir and LibDirs, or empty if
// none is.
func (c *Config) LibPathVar() string { return c.m.LibPathVar }

// Timeout is the per-program timeout. Zero means none.
func (c *Config) Timeout() time.Duration { return c.m.Timeout }

// RunTimeout is the timeout of the whole run. Zero means none.
func (c *Config) RunTimeout() time.Duration { return c.m.RunTimeout }

// Output describes what happens to the output of programs.
func (c *Config) Output() OutputMode { return c.m.Output }

// Summary reports whether a summary table is printed after the run.
func (c *Config) Summary() bool { return c.m.Summary }

// MaxFailures is the number of failed programs that ends the run.
func (c *Config) MaxFailures() int { return c.m.MaxFailures }

// NewMutableConfig returns a new configuration for executing commands in
// mode with default values.
func NewMutableConfig(mode Mode) *MutableConfig {
	return &MutableConfig{
		Mode:       mode,
		EnvVars:    make(map[string]string),
		HostEnv:    os.Environ(),
		InheritEnv: true,
		LibPathVar: DefaultLibPathVar,
		Summary:    true,
	}
}

// SetFlags adds common run-related flags to f that store values in c.
func (c *MutableConfig) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.WorkDir, "workdir", "", "directory containing the programs (default: current directory)")
	f.StringVar(&c.SuiteFile, "suite", "", "YAML suite manifest listing programs and env")
	envFlag := command.RepeatedFlag(func(v string) error {
		k, val, ok := strings.Cut(v, "=")
		if !ok || k == "" {
			return errors.Errorf("-env flag must take the form NAME=VALUE, got %q", v)
		}
		c.EnvVars[k] = val
		return nil
	})
	f.Var(&envFlag, "env", `child environment variable in the form "NAME=VALUE" (can be repeated)`)
	envFileFlag := command.RepeatedFlag(func(path string) error {
		c.EnvFiles = append(c.EnvFiles, path)
		return nil
	})
	f.Var(&envFileFlag, "envfile", "YAML file containing child environment variables (can be repeated)")
	f.BoolVar(&c.InheritEnv, "inheritenv", true, "start the child environment from the host environment")
	f.StringVar(&c.LibPathVar, "libpathvar", DefaultLibPathVar, `variable set to the working directory ("" to disable)`)
	f.Var(command.NewListFlag(",", func(v []string) { c.LibDirs = v }, nil), "libdirs", "comma-separated list of extra library directories searched after the working directory")

	if c.Mode == RunMode {
		f.Var(command.NewDurationFlag(time.Second, &c.Timeout, 0), "timeout", "per-program timeout in seconds (0 means none)")
		f.Var(command.NewDurationFlag(time.Second, &c.RunTimeout, 0), "runtimeout", "timeout of the whole run in seconds (0 means none)")
		f.StringVar(&c.ResDir, "resultsdir", "", "directory for results (default: <workdir>/"+resultsSubdir+"/<timestamp>)")
		f.BoolVar(&c.Summary, "summary", true, "print a summary table after the run")
		vals := map[string]int{
			"capture": int(OutputCapture),
			"stream":  int(OutputStream),
		}
		of := command.NewEnumFlag(vals, func(v int) { c.Output = OutputMode(v) }, "capture")
		f.Var(of, "output", fmt.Sprintf("handling of program output (%s; default %q)", of.QuotedValues(), of.Default()))
	}
}

// DeriveDefaults sets default values for unset members of c and builds the
// child environment.
func (c *MutableConfig) DeriveDefaults() error {
	if c.WorkDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return errors.Wrap(err, "failed to get current directory")
		}
		c.WorkDir = wd
	}
	wd, err := filepath.Abs(c.WorkDir)
	if err != nil {
		return errors.Wrapf(err, "invalid -workdir %q", c.WorkDir)
	}
	c.WorkDir = wd
	if fi, err := os.Stat(c.WorkDir); err != nil {
		return errors.Wrap(err, "working directory is not accessible")
	} else if !fi.IsDir() {
		return errors.Errorf("working directory %s is not a directory", c.WorkDir)
	}

	if c.ResDir == "" {
		c.ResDir = filepath.Join(c.WorkDir, resultsSubdir, time.Now().Format("20060102-150405"))
		c.ResDirIsDefault = true
	}

	var suite *Suite
	if c.SuiteFile != "" {
		if suite, err = ReadSuite(c.SuiteFile); err != nil {
			return err
		}
	}

	switch {
	case len(c.Programs) > 0:
		c.ProgramsSource = "args"
	case suite != nil && suite.Programs != nil:
		c.Programs = suite.Programs
		c.ProgramsSource = c.SuiteFile
	default:
		c.Programs = append([]string(nil), DefaultPrograms...)
		c.ProgramsSource = "default"
	}
	for _, p := range c.Programs {
		if err := validateProgramName(p); err != nil {
			return err
		}
	}

	vars := make(map[string]string)
	for _, path := range c.EnvFiles {
		if err := readAndMergeEnvFile(vars, path, errorOnDuplicate); err != nil {
			return err
		}
	}
	if suite != nil {
		if err := mergeEnv(vars, suite.Env, overwriteOnDuplicate); err != nil {
			return errors.Wrapf(err, "failed to merge env from %s", c.SuiteFile)
		}
	}
	if err := mergeEnv(vars, c.EnvVars, overwriteOnDuplicate); err != nil {
		return errors.Wrap(err, "failed to merge -env")
	}
	libPath := c.WorkDir
	for _, d := range c.LibDirs {
		if d == "" {
			continue
		}
		abs, err := filepath.Abs(d)
		if err != nil {
			return errors.Wrapf(err, "invalid library directory %q", d)
		}
		libPath += string(filepath.ListSeparator) + abs
	}
	c.ChildEnv = buildEnv(c.inheritedEnv(), c.LibPathVar, libPath, vars)

	c.MaxFailures = maxFailures
	return nil
}

func (c *MutableConfig) inheritedEnv() []string {
	if !c.InheritEnv {
		return nil
	}
	return c.HostEnv
}

// Freeze returns a frozen configuration object.
func (c *MutableConfig) Freeze() *Config {
	return &Config{m: c}
}

// validateProgramName checks that name refers to a file directly in the
// working directory.
func validateProgramName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsRune(name, filepath.Separator) {
		return errors.Errorf("invalid program name %q: must be a file name in the working directory", name)
	}
	return nil
}

// buildEnv returns the child environment. Entries of host come first, then
// libPathVar is set to libPath, then vars are applied. Later assignments
// override earlier ones. The result is sorted by name.
func buildEnv(host []string, libPathVar, libPath string, vars map[string]string) []string {
	env := make(map[string]string)
	for _, kv := range host {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = v
		}
	}
	if libPathVar != "" {
		env[libPathVar] = libPath
	}
	for k, v := range vars {
		env[k] = v
	}

	keys := maps.Keys(env)
	slices.Sort(keys)
	res := make([]string, len(keys))
	for i, k := range keys {
		res[i] = k + "=" + env[k]
	}
	return res
}
