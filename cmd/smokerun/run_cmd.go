// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"

	"github.com/google/subcommands"
	"golang.org/x/term"

	"github.com/om-engine/smokerun/errors"
	"github.com/om-engine/smokerun/internal/command"
	"github.com/om-engine/smokerun/internal/logging"
	"github.com/om-engine/smokerun/internal/run"
	"github.com/om-engine/smokerun/internal/run/config"
	"github.com/om-engine/smokerun/internal/run/reporting"
	"github.com/om-engine/smokerun/internal/timing"
	"github.com/om-engine/smokerun/internal/xcontext"
	"github.com/om-engine/smokerun/shutil"
)

const (
	fullLogName   = "full.txt"    // file in the results directory containing full output
	timingLogName = "timing.json" // file in the results directory containing timing information
)

// runCmd implements subcommands.Command to support running programs.
type runCmd struct {
	cfg     *config.MutableConfig // config for running programs
	wrapper runWrapper            // can be set by tests to stub out calls to run package
	stdout  io.Writer             // where the summary table is written
}

var _ = subcommands.Command(&runCmd{})

func newRunCmd(stdout io.Writer) *runCmd {
	return &runCmd{
		cfg:     config.NewMutableConfig(config.RunMode),
		wrapper: realRunWrapper{},
		stdout:  stdout,
	}
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "run programs in order, stopping at the first failure" }
func (*runCmd) Usage() string {
	return `Usage: run [flag]... [program]...

Description:
    Runs the programs one after another from the working directory, with
    LD_LIBRARY_PATH pointing at it, and stops at the first program that
    exits with a non-zero status.

    Programs are bare file names in the working directory. If none are
    given, the list comes from -suite, or else the built-in list is used.

Exit status:
    0  every program exited with status zero
    1  a program failed or timed out, or the run was aborted
    2  invalid flags or suite manifest
    3  a program could not be launched

Flag:
`
}

func (r *runCmd) SetFlags(f *flag.FlagSet) {
	r.cfg.SetFlags(f)
}

func (r *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, cancel := xcontext.WithTimeout(ctx, r.cfg.RunTimeout, errors.Wrapf(context.DeadlineExceeded, "run timeout reached (%v)", r.cfg.RunTimeout))
	defer cancel(context.Canceled)

	tl := timing.NewLog()
	ctx = timing.NewContext(ctx, tl)
	ctx, st := timing.Start(ctx, "exec")

	r.cfg.Programs = f.Args()
	if err := r.cfg.DeriveDefaults(); err != nil {
		logging.Info(ctx, "Failed to derive defaults: ", err)
		return subcommands.ExitUsageError
	}
	cfg := r.cfg.Freeze()

	if err := os.MkdirAll(cfg.ResDir(), 0755); err != nil {
		logging.Info(ctx, err)
		return subcommands.ExitFailure
	}

	// Update the "latest" symlink if the default result directory is used.
	if cfg.ResDirIsDefault() {
		link := filepath.Join(filepath.Dir(cfg.ResDir()), "latest")
		os.Remove(link)
		if err := os.Symlink(filepath.Base(cfg.ResDir()), link); err != nil {
			logging.Info(ctx, "Failed to create results symlink: ", err)
		}
	}

	// Write the timing log after the command finishes.
	defer func() {
		st.End()
		f, err := os.Create(filepath.Join(cfg.ResDir(), timingLogName))
		if err != nil {
			logging.Info(ctx, err)
			return
		}
		defer f.Close()
		if err := tl.WritePretty(f); err != nil {
			logging.Info(ctx, err)
		}
	}()

	// Log the full output of the command to disk.
	fullLog, err := os.Create(filepath.Join(cfg.ResDir(), fullLogName))
	if err != nil {
		logging.Info(ctx, err)
		return subcommands.ExitFailure
	}
	defer fullLog.Close()

	logger := logging.NewSinkLogger(logging.LevelDebug, true, logging.NewWriterSink(fullLog))
	ctx = logging.AttachLogger(ctx, logger)

	logging.Debug(ctx, "Command line: ", shutil.EscapeSlice(os.Args))
	logging.Debug(ctx, "Child environment: ", shutil.Env(cfg.Env()))
	logging.Info(ctx, "Writing results to ", cfg.ResDir())

	rep, runErr := r.wrapper.run(ctx, cfg)
	if rep != nil {
		if err := r.wrapper.writeResults(ctx, cfg, rep); err != nil {
			logging.Info(ctx, "Failed to write results: ", err)
			if runErr == nil {
				return subcommands.ExitFailure
			}
		}
		if cfg.Summary() {
			reporting.WriteSummary(r.stdout, rep.RunResults(), isTerminal(r.stdout))
		}
	}

	if runErr != nil {
		logging.Infof(ctx, "Run failed: %v", runErr)
		return subcommands.ExitStatus(runErrorStatus(runErr))
	}
	logging.Info(ctx, "All programs passed")
	return subcommands.ExitSuccess
}

// runErrorStatus returns the exit status for an error returned by run.Run.
func runErrorStatus(err error) int {
	var lerr *run.LaunchError
	if errors.As(err, &lerr) {
		return command.StatusLaunchError
	}
	return command.StatusFailure
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
