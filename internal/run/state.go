// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package run

import "github.com/om-engine/smokerun/internal/run/reporting"

// State is the state of a run.
type State int

const (
	// NotStarted means no program has been considered yet.
	NotStarted State = iota
	// Running means programs are being invoked.
	Running
	// Succeeded means every program exited with status zero.
	Succeeded
	// FailedAt means the program at Report.Index exited non-zero or timed
	// out.
	FailedAt
	// LaunchErrorAt means the program at Report.Index could not be
	// started.
	LaunchErrorAt
	// Aborted means the run was canceled before or while running the
	// program at Report.Index.
	Aborted
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Running:
		return "running"
	case Succeeded:
		return reporting.StateSucceeded
	case FailedAt:
		return "failed"
	case LaunchErrorAt:
		return "launch_error"
	case Aborted:
		return reporting.StateAborted
	default:
		return "unknown"
	}
}

// Done reports whether s is a final state.
func (s State) Done() bool {
	return s >= Succeeded
}
