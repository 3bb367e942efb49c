// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package main implements the smokerun executable, used to smoke-test a
// directory of pre-built programs.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/om-engine/smokerun/errors"
	"github.com/om-engine/smokerun/internal/command"
	"github.com/om-engine/smokerun/internal/logging"
	"github.com/om-engine/smokerun/internal/xcontext"
)

// signalGracePeriod is how long a caught signal waits for the current run
// to record its results before the process exits.
const signalGracePeriod = 5 * time.Second

// Version is the version info of this command. It is filled in at link time.
var Version = "<unknown>"

// newLogger creates a logger writing to stdout based on the supplied
// command-line flags.
func newLogger(verbose, logTime bool) logging.Logger {
	level := logging.LevelInfo
	if verbose {
		level = logging.LevelDebug
	}
	return logging.NewSinkLogger(level, logTime, logging.NewWriterSink(os.Stdout))
}

// doMain implements the main body of the program. It's a separate function so
// that its deferred functions will run before os.Exit makes the program exit
// immediately.
func doMain() int {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(newListCmd(os.Stdout, os.Stderr), "")
	subcommands.Register(newRunCmd(os.Stdout), "")

	version := flag.Bool("version", false, "print version and exit")
	verbose := flag.Bool("verbose", false, "use verbose logging")
	logTime := flag.Bool("logtime", false, "include date/time headers in logs")
	flag.Parse()

	if *version {
		fmt.Printf("smokerun version %s\n", Version)
		return command.StatusSuccess
	}

	ctx := logging.AttachLogger(context.Background(), newLogger(*verbose, *logTime))
	ctx, cancel := xcontext.WithCancel(ctx)
	defer cancel(context.Canceled)

	done := make(chan struct{})
	command.InstallSignalHandler(os.Stderr, func(sig os.Signal) {
		cancel(errors.Errorf("caught %v signal", sig))
		select {
		case <-done:
		case <-time.After(signalGracePeriod):
		}
	})

	status := subcommands.Execute(ctx)
	close(done)
	return int(status)
}

func main() {
	os.Exit(doMain())
}
