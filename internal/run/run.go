// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package run runs a list of smoke-test programs one after another and stops
// at the first one that fails.
package run

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/om-engine/smokerun/errors"
	"github.com/om-engine/smokerun/internal/failfast"
	"github.com/om-engine/smokerun/internal/logging"
	"github.com/om-engine/smokerun/internal/run/config"
	"github.com/om-engine/smokerun/internal/run/invoke"
	"github.com/om-engine/smokerun/internal/run/reporting"
	"github.com/om-engine/smokerun/internal/timing"
)

// Output files written for each invoked program under its directory in the
// results directory.
const (
	StdoutFilename = "stdout.txt"
	StderrFilename = "stderr.txt"
)

// Run invokes the programs of cfg in order via inv and returns the report.
// Messages are logged via ctx as the run progresses.
//
// Run stops at the first program that fails. The returned error is nil only
// if every program exited with status zero. A program exiting non-zero or
// timing out yields a *ProgramError, a program that could not be started a
// *LaunchError. Other errors mean the run was aborted. The report is non-nil
// in every case.
func Run(ctx context.Context, cfg *config.Config, inv invoke.Invoker) (*Report, error) {
	progs := cfg.Programs()
	r := &runner{
		cfg:     cfg,
		inv:     inv,
		env:     cfg.Env(),
		counter: failfast.NewCounter(cfg.MaxFailures()),
		rep:     newReport(cfg.WorkDir(), progs),
		outDirs: make(map[string]struct{}),
	}
	r.rep.Start = time.Now()
	defer func() { r.rep.End = time.Now() }()

	ctx, st := timing.Start(ctx, "run")
	defer st.End()

	logging.Debugf(ctx, "Running %d program(s) from %s", len(progs), cfg.ProgramsSource())
	r.rep.State = Running
	for i := range progs {
		if err := ctx.Err(); err != nil {
			r.stop(Aborted, i, errors.Wrap(err, "run aborted"))
			break
		}
		if !r.runProgram(ctx, i) {
			break
		}
	}
	if !r.rep.State.Done() {
		r.rep.State = Succeeded
	}
	r.markNotRun()
	return r.rep, r.rep.Err
}

// runner holds the state of a single Run call.
type runner struct {
	cfg     *config.Config
	inv     invoke.Invoker
	env     []string
	counter *failfast.Counter
	rep     *Report
	outDirs map[string]struct{}
}

// runProgram invokes the i-th program and records its result. It returns
// false if the run must stop.
func (r *runner) runProgram(ctx context.Context, i int) bool {
	pr := r.rep.Results[i]
	ctx, st := timing.Start(ctx, pr.Name)
	defer st.End()

	reporting.Progress(ctx, pr.Name, r.cfg.WorkDir())

	req := &invoke.Request{
		Name:    pr.Name,
		Dir:     r.cfg.WorkDir(),
		Env:     r.env,
		Timeout: r.cfg.Timeout(),
	}
	closeOut, err := r.openOutputs(ctx, pr, req)
	if err != nil {
		r.stop(Aborted, i, err)
		pr.Status = reporting.StatusFailed
		pr.Reason = err.Error()
		return false
	}
	res, err := r.inv.Invoke(logging.WithPrefix(ctx, pr.Name+": "), req)
	if cerr := closeOut(); cerr != nil && err == nil {
		logging.Infof(ctx, "Failed to save output of %s: %v", pr.Name, cerr)
	}
	if res != nil {
		pr.Path = res.Path
		pr.Start = res.Start
		pr.End = res.End
		pr.ExitStatus = res.Status
		pr.TimedOut = res.TimedOut
	}

	var le *invoke.LaunchError
	switch {
	case errors.As(err, &le):
		pr.Status = reporting.StatusLaunchError
		pr.Reason = le.Err.Error()
		pr.Diagnostic = reporting.LaunchDiagnostic(le.Path, le.Err)
		logging.Info(ctx, pr.Diagnostic)
		r.counter.Increment(pr.Name)
		r.stop(LaunchErrorAt, i, &LaunchError{Index: i, Name: pr.Name, Err: le})
		return false
	case err != nil:
		pr.Status = reporting.StatusFailed
		pr.Reason = err.Error()
		r.stop(Aborted, i, err)
		return false
	case !res.Passed():
		perr := &ProgramError{Index: i, Name: pr.Name, Result: res}
		pr.Status = reporting.StatusFailed
		pr.Reason = perr.Error()
		pr.Diagnostic = reporting.Diagnostic(res)
		logging.Info(ctx, pr.Diagnostic)
		r.counter.Increment(pr.Name)
		// The threshold is one failure, so the run stops here.
		if err := r.counter.Check(); err != nil {
			logging.Debug(ctx, err)
		}
		r.stop(FailedAt, i, perr)
		return false
	}

	pr.Status = reporting.StatusPassed
	logging.Debugf(ctx, "%s passed in %v", pr.Name, res.Duration().Round(time.Millisecond))
	return true
}

// stop records the final state of the run.
func (r *runner) stop(state State, i int, err error) {
	r.rep.State = state
	r.rep.Index = i
	r.rep.Err = err
}

// markNotRun explains why programs after the stopping one were skipped.
func (r *runner) markNotRun() {
	if r.rep.Index < 0 {
		return
	}
	reason := fmt.Sprintf("not run: %s failed", r.rep.Results[r.rep.Index].Name)
	if r.rep.State == Aborted {
		reason = fmt.Sprintf("not run: %v", r.rep.Err)
	}
	for _, pr := range r.rep.Results[r.rep.Index:] {
		if pr.Status == reporting.StatusNotRun {
			pr.Reason = reason
		}
	}
}

// openOutputs points req's output at the per-program output files, if a
// results directory is configured, and at the log: stderr always, stdout in
// OutputStream mode. The returned function closes the files and flushes the
// log. Nothing is left open on error.
func (r *runner) openOutputs(ctx context.Context, pr *reporting.ProgramResult, req *invoke.Request) (func() error, error) {
	var stdouts, stderrs []io.Writer
	var closers []func() error
	closeAll := func() error {
		var firstErr error
		for _, c := range closers {
			if err := c(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	if r.cfg.ResDir() != "" {
		name := r.outDirName(pr)
		dir := filepath.Join(r.cfg.ResDir(), name)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(err, "failed to create program output directory")
		}
		pr.OutDir = dir

		stdout, err := os.Create(filepath.Join(dir, StdoutFilename))
		if err != nil {
			return nil, err
		}
		closers = append(closers, stdout.Close)
		stderr, err := os.Create(filepath.Join(dir, StderrFilename))
		if err != nil {
			stdout.Close()
			return nil, err
		}
		closers = append(closers, stderr.Close)
		stdouts = append(stdouts, stdout)
		stderrs = append(stderrs, stderr)
	}

	stderr := &lineLogger{ctx: logging.WithPrefix(ctx, pr.Name+" stderr: ")}
	closers = append(closers, stderr.Flush)
	stderrs = append(stderrs, stderr)
	if r.cfg.Output() == config.OutputStream {
		stdout := &lineLogger{ctx: logging.WithPrefix(ctx, pr.Name+" stdout: ")}
		closers = append(closers, stdout.Flush)
		stdouts = append(stdouts, stdout)
	}

	req.Stdout = multiWriter(stdouts)
	req.Stderr = multiWriter(stderrs)
	return closeAll, nil
}

// outDirName returns an unused name for the output directory of pr. A
// repeated program gets its index appended, plus a counter if that is taken
// too.
func (r *runner) outDirName(pr *reporting.ProgramResult) string {
	name := pr.Name
	for n := 0; ; n++ {
		if _, ok := r.outDirs[name]; !ok {
			break
		}
		name = pr.Name + "." + strconv.Itoa(pr.Index)
		if n > 0 {
			name += "." + strconv.Itoa(n)
		}
	}
	r.outDirs[name] = struct{}{}
	return name
}

// multiWriter returns nil for no writers.
func multiWriter(ws []io.Writer) io.Writer {
	switch len(ws) {
	case 0:
		return nil
	case 1:
		return ws[0]
	default:
		return io.MultiWriter(ws...)
	}
}

// lineLogger is an io.Writer logging each line written to it at info level.
// It is not safe for concurrent use.
type lineLogger struct {
	ctx context.Context
	buf []byte
}

func (w *lineLogger) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		logging.Info(w.ctx, string(w.buf[:i]))
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

// Flush logs a trailing partial line, if any.
func (w *lineLogger) Flush() error {
	if len(w.buf) > 0 {
		logging.Info(w.ctx, string(w.buf))
		w.buf = nil
	}
	return nil
}
