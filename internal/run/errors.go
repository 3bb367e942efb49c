// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package run

import (
	"fmt"

	"github.com/om-engine/smokerun/internal/run/invoke"
)

// ProgramError is returned by Run when a program exited with a non-zero
// status or was killed on timeout.
type ProgramError struct {
	// Index is the position of the program in the program list.
	Index  int
	Name   string
	Result *invoke.Result
}

func (e *ProgramError) Error() string {
	if e.Result.TimedOut {
		return fmt.Sprintf("%s timed out after %v", e.Name, e.Result.Timeout)
	}
	return fmt.Sprintf("%s exited with status %d", e.Name, e.Result.Status)
}

// LaunchError is returned by Run when a program could not be started. It
// wraps the *invoke.LaunchError describing the attempt.
type LaunchError struct {
	Index int
	Name  string
	Err   *invoke.LaunchError
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("program #%d (%s): %v", e.Index+1, e.Name, e.Err)
}

// Unwrap returns the underlying *invoke.LaunchError.
func (e *LaunchError) Unwrap() error { return e.Err }
