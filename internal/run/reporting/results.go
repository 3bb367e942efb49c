// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package reporting writes what a smoke run did: console notices, failure
// diagnostics and result files.
package reporting

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"
)

// ResultsFilename is a file name to be used with WriteResultsJSON.
const ResultsFilename = "results.json"

// Status is the outcome of one program.
type Status string

const (
	// StatusPassed means the program exited with status zero.
	StatusPassed Status = "passed"
	// StatusFailed means the program exited non-zero or was killed on
	// timeout.
	StatusFailed Status = "failed"
	// StatusLaunchError means the program could not be started.
	StatusLaunchError Status = "launch_error"
	// StatusNotRun means the program was never attempted because the run
	// stopped earlier.
	StatusNotRun Status = "not_run"
)

// Final run states recorded in RunResults.State that reporting treats
// specially. Any other state is a failed run.
const (
	StateSucceeded = "succeeded"
	StateAborted   = "aborted"
)

// ProgramResult is the recorded outcome of one program of a run.
type ProgramResult struct {
	Index      int       `json:"index"`
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Status     Status    `json:"status"`
	ExitStatus int       `json:"exitStatus"`
	TimedOut   bool      `json:"timedOut,omitempty"`
	Start      time.Time `json:"start"`
	// End may be zero for programs that never ran.
	End time.Time `json:"end"`
	// Reason is a one-line explanation for failures and skips.
	Reason string `json:"reason,omitempty"`
	// Diagnostic is the multi-line block printed for a failure.
	Diagnostic string `json:"diagnostic,omitempty"`
	// OutDir holds stdout.txt and stderr.txt of the program.
	OutDir string `json:"outDir,omitempty"`
}

// Duration returns how long the program ran.
func (r *ProgramResult) Duration() time.Duration {
	if r.End.IsZero() {
		return 0
	}
	return r.End.Sub(r.Start)
}

// RunResults is the content of results.json.
type RunResults struct {
	ID       string           `json:"id"`
	WorkDir  string           `json:"workDir"`
	Start    time.Time        `json:"start"`
	End      time.Time        `json:"end"`
	State    string           `json:"state"`
	Programs []*ProgramResult `json:"programs"`
}

// NewRunID returns a fresh identifier for a run.
func NewRunID() string {
	return uuid.New().String()
}

// WriteResultsJSON writes res to path in JSON.
func WriteResultsJSON(path string, res *RunResults) error {
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0644)
}

// ReadResultsJSON reads results written by WriteResultsJSON.
func ReadResultsJSON(path string) (*RunResults, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var res RunResults
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
