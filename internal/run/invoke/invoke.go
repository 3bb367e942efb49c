// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package invoke launches a single smoke-test program and collects what it
// left behind: its output, its exit status and how long it took.
package invoke

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Request describes one program invocation.
type Request struct {
	// Name is the bare program name. The executable is Dir/Name.
	Name string
	// Dir is the working directory of the child and the directory holding
	// the executable.
	Dir string
	// Env is the complete child environment as "K=V" entries. Nothing is
	// inherited beyond what is listed here.
	Env []string
	// Timeout is the per-program limit. Zero means no limit.
	Timeout time.Duration
	// Stdout and Stderr, if non-nil, receive a copy of the child's output
	// as it is produced.
	Stdout io.Writer
	Stderr io.Writer
}

// Result is the record of a finished invocation.
type Result struct {
	Name string
	Path string
	// Args holds the argument vector. Args[0] is Path.
	Args []string
	Dir  string

	Stdout []byte
	Stderr []byte
	// Status is the exit status. A child killed by a signal gets
	// 128 plus the signal number, as shells report it.
	Status int

	Start time.Time
	End   time.Time

	// TimedOut is set when the child was killed for exceeding Timeout.
	TimedOut bool
	Timeout  time.Duration
}

// Duration returns the wall time of the invocation.
func (r *Result) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Passed reports whether the program exited with status zero in time.
func (r *Result) Passed() bool {
	return r.Status == 0 && !r.TimedOut
}

// Invoker runs one program to completion.
//
// Invoke returns a nil error whenever the program ran, whatever its exit
// status. A program that could not be started yields a *LaunchError, and the
// partial Result describing the attempt. Any other error means the
// invocation was interrupted, e.g. by cancellation of ctx.
type Invoker interface {
	Invoke(ctx context.Context, req *Request) (*Result, error)
}

// LaunchError is returned when a program could not be started at all.
type LaunchError struct {
	// Path is the executable that was attempted.
	Path string
	// Err is the underlying system error.
	Err error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying system error.
func (e *LaunchError) Unwrap() error { return e.Err }
