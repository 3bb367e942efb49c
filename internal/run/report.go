// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package run

import (
	"time"

	"github.com/om-engine/smokerun/internal/run/reporting"
)

// Report is the outcome of a run.
type Report struct {
	ID      string
	WorkDir string
	Start   time.Time
	End     time.Time

	State State
	// Index is the position of the program that stopped the run, or -1.
	Index int
	// Err is the error that stopped the run, or nil if every program
	// passed.
	Err error

	// Results holds one entry per listed program, in list order. Programs
	// that were never attempted have reporting.StatusNotRun.
	Results []*reporting.ProgramResult
}

func newReport(workDir string, progs []string) *Report {
	rep := &Report{
		ID:      reporting.NewRunID(),
		WorkDir: workDir,
		State:   NotStarted,
		Index:   -1,
		Results: make([]*reporting.ProgramResult, len(progs)),
	}
	for i, name := range progs {
		rep.Results[i] = &reporting.ProgramResult{
			Index:  i,
			Name:   name,
			Status: reporting.StatusNotRun,
		}
	}
	return rep
}

// Invoked returns the names of the programs that were attempted, in order.
func (r *Report) Invoked() []string {
	var names []string
	for _, res := range r.Results {
		if res.Status != reporting.StatusNotRun {
			names = append(names, res.Name)
		}
	}
	return names
}

// RunResults converts r to the form written to results.json.
func (r *Report) RunResults() *reporting.RunResults {
	return &reporting.RunResults{
		ID:       r.ID,
		WorkDir:  r.WorkDir,
		Start:    r.Start,
		End:      r.End,
		State:    r.State.String(),
		Programs: r.Results,
	}
}
