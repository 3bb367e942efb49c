// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package reporting

import (
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// WriteSummary renders a table of res to w. The overall outcome is PASS only
// if the run succeeded, and ABORTED if it was canceled. color selects the
// colored style, whose color reflects the overall outcome.
func WriteSummary(w io.Writer, res *RunResults, color bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("smokerun")

	t.AppendHeader(table.Row{"#", "Program", "Status", "Exit", "Duration"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "#", Align: text.AlignRight},
		{Name: "Program", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Exit", Align: text.AlignRight},
		{Name: "Duration", Align: text.AlignRight},
	})

	counts := make(map[Status]int)
	var total time.Duration
	for _, r := range res.Programs {
		counts[r.Status]++
		total += r.Duration()

		exit, dur := "-", "-"
		if r.Status == StatusPassed || r.Status == StatusFailed {
			exit = strconv.Itoa(r.ExitStatus)
			dur = formatDuration(r.Duration())
		}
		t.AppendRow(table.Row{r.Index + 1, r.Name, string(r.Status), exit, dur})
	}

	failed := counts[StatusFailed] + counts[StatusLaunchError]
	overall := "FAIL"
	switch res.State {
	case StateSucceeded:
		overall = "PASS"
	case StateAborted:
		overall = "ABORTED"
	}
	switch {
	case !color:
		t.SetStyle(table.StyleLight)
	case res.State == StateSucceeded:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	t.AppendFooter(table.Row{
		"TOTAL",
		strconv.Itoa(counts[StatusPassed]) + " passed, " + strconv.Itoa(failed) + " failed, " + strconv.Itoa(counts[StatusNotRun]) + " not run",
		overall,
		"",
		formatDuration(total),
	})
	t.Render()
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(10 * time.Millisecond).String()
}
