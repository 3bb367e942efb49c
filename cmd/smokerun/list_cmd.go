// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/google/subcommands"

	"github.com/om-engine/smokerun/internal/command"
	"github.com/om-engine/smokerun/internal/logging"
	"github.com/om-engine/smokerun/internal/run/config"
	"github.com/om-engine/smokerun/internal/run/invoke"
)

// listCmd implements subcommands.Command to support listing programs.
type listCmd struct {
	json   bool                  // marshal programs to JSON instead of printing a list
	cfg    *config.MutableConfig // config for listing programs
	stdout io.Writer             // where to write programs
	stderr io.Writer             // where to write logs
}

var _ = subcommands.Command(&listCmd{})

// newListCmd returns a new listCmd that will write programs to stdout and
// logs to stderr.
func newListCmd(stdout, stderr io.Writer) *listCmd {
	return &listCmd{
		cfg:    config.NewMutableConfig(config.ListMode),
		stdout: stdout,
		stderr: stderr,
	}
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list programs" }
func (*listCmd) Usage() string {
	return `Usage: list [flag]... [program]...

Description:
    Lists the programs that "run" would invoke, in order, and whether each
    one is present and executable in the working directory. Exits with 3 if
    any program could not be launched.

Flag:
`
}

func (lc *listCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&lc.json, "json", false, "print programs as JSON")
	lc.cfg.SetFlags(f)
}

// listedProgram is a program as printed by listCmd.
type listedProgram struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Error string `json:"error,omitempty"`
}

func (lc *listCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	// Keep stdout parsable.
	ctx = logging.AttachLoggerNoPropagation(ctx, logging.NewSinkLogger(logging.LevelInfo, false, logging.NewWriterSink(lc.stderr)))

	lc.cfg.Programs = f.Args()
	if err := lc.cfg.DeriveDefaults(); err != nil {
		return subcommands.ExitStatus(command.WriteError(lc.stderr, command.WithStatus(err, command.StatusUsage)))
	}
	cfg := lc.cfg.Freeze()
	logging.Debugf(ctx, "Listing programs from %s", cfg.ProgramsSource())

	var progs []listedProgram
	missing := 0
	for _, name := range cfg.Programs() {
		lp := listedProgram{Name: name}
		path, err := invoke.Path(cfg.WorkDir(), name)
		if err == nil {
			lp.Path = path
			err = invoke.Check(path)
		}
		if err != nil {
			lp.Error = err.Error()
			missing++
		}
		progs = append(progs, lp)
	}

	if err := lc.write(progs); err != nil {
		logging.Info(ctx, "Failed to write programs: ", err)
		return subcommands.ExitFailure
	}
	if missing > 0 {
		logging.Infof(ctx, "%d of %d program(s) cannot be launched", missing, len(progs))
		return subcommands.ExitStatus(command.StatusLaunchError)
	}
	return subcommands.ExitSuccess
}

// write prints progs to lc.stdout.
func (lc *listCmd) write(progs []listedProgram) error {
	if lc.json {
		if progs == nil {
			progs = []listedProgram{}
		}
		enc := json.NewEncoder(lc.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(progs)
	}

	ml := 0
	for _, p := range progs {
		if len(p.Name) > ml {
			ml = len(p.Name)
		}
	}
	for _, p := range progs {
		state := "ok"
		if p.Error != "" {
			state = p.Error
		}
		if _, err := fmt.Fprintf(lc.stdout, "%-"+strconv.Itoa(ml)+"s  %s\n", p.Name, state); err != nil {
			return err
		}
	}
	return nil
}
