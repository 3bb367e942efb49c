// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package command contains code shared by the smokerun executable and its
// subcommands: flag types, exit statuses and signal handling.
package command

import (
	"fmt"
	"io"

	"github.com/om-engine/smokerun/errors"
)

// Exit statuses of the smokerun executable.
const (
	// StatusSuccess means every program exited with status zero.
	StatusSuccess = 0
	// StatusFailure means a program exited non-zero or timed out, or the
	// run was aborted.
	StatusFailure = 1
	// StatusUsage means the command line or the suite manifest is invalid.
	StatusUsage = 2
	// StatusLaunchError means a program could not be started at all, which
	// points at the environment rather than at the program.
	StatusLaunchError = 3
)

// StatusError implements the error interface and contains an additional status code.
type StatusError struct {
	msg    string
	status int
	cause  error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v (status %v)", e.msg, e.status)
}

// Unwrap returns the error e was created from, if any.
func (e *StatusError) Unwrap() error { return e.cause }

// Status returns e's status code.
func (e *StatusError) Status() int {
	return e.status
}

// NewStatusErrorf creates a StatusError with the passed status code and formatted string.
func NewStatusErrorf(status int, format string, args ...interface{}) *StatusError {
	return &StatusError{msg: fmt.Sprintf(format, args...), status: status}
}

// WithStatus wraps err into a StatusError carrying status.
func WithStatus(err error, status int) *StatusError {
	return &StatusError{msg: err.Error(), status: status, cause: err}
}

// WriteError writes a newline-terminated fatal error to w and returns the
// status code to use when exiting. If no *StatusError is found in err's
// chain, StatusFailure is returned.
func WriteError(w io.Writer, err error) int {
	msg := err.Error()
	status := StatusFailure

	var se *StatusError
	if errors.As(err, &se) {
		msg = se.msg
		status = se.status
	}

	if len(msg) > 0 && msg[len(msg)-1] != '\n' {
		msg += "\n"
	}
	io.WriteString(w, msg)

	return status
}
