// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package command

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

var selfName = filepath.Base(os.Args[0])

// InstallSignalHandler installs a handler for SIGINT and SIGTERM that calls
// callback, restores the terminal state of stdin and terminates child
// processes, then exits with StatusFailure. out is the output stream to write
// messages to (typically stderr).
//
// Deferred functions do not run when the process is killed by a signal, so
// children that smokerun started would otherwise be left behind.
func InstallSignalHandler(out io.Writer, callback func(sig os.Signal)) {
	var st *term.State
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		var err error
		if st, err = term.GetState(fd); err != nil {
			fmt.Fprintf(out, "Failed to get terminal state: %v\n", err)
		}
	}

	ch := make(chan os.Signal, 1)
	go func() {
		sig := <-ch
		fmt.Fprintf(out, "\n%s: Caught %v signal; exiting\n", selfName, sig)
		callback(sig)
		if st != nil {
			term.Restore(fd, st)
		}
		if sig == unix.SIGTERM {
			dumpGoroutines(out)
		}
		terminateChildren(out)
		os.Exit(StatusFailure)
	}()
	signal.Notify(ch, unix.SIGINT, unix.SIGTERM)
}

// dumpGoroutines prints stack traces. SIGTERM usually comes from a parent
// harness that timed out, and the traces show where smokerun was stuck.
func dumpGoroutines(out io.Writer) {
	fmt.Fprintf(out, "\n%s: Dumping all goroutines...\n\n", selfName)
	if p := pprof.Lookup("goroutine"); p != nil {
		p.WriteTo(out, 2)
	}
	fmt.Fprintf(out, "\n%s: Finished dumping goroutines\n", selfName)
}

// terminateChildren sends SIGTERM to every descendant of this process.
// Programs run in their own process groups, so their children do not get
// the terminal's signal.
func terminateChildren(out io.Writer) {
	procs, err := process.Processes()
	if err != nil {
		fmt.Fprintf(out, "Failed to terminate subprocesses: %v\n", err)
		return
	}

	selfPid := int32(os.Getpid())
	for _, proc := range procs {
		ppid, err := proc.Ppid()
		if err != nil {
			continue
		}
		if ppid == selfPid {
			terminateTree(out, proc)
		}
	}
}

// terminateTree terminates proc after its descendants.
func terminateTree(out io.Writer, proc *process.Process) {
	if children, err := proc.Children(); err == nil {
		for _, c := range children {
			terminateTree(out, c)
		}
	}
	fmt.Fprintf(out, "%s: Terminating process %d\n", selfName, proc.Pid)
	proc.Terminate()
}
