// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package reporting_test

import (
	"encoding/xml"
	"os"
	"path/filepath"
	gotesting "testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/om-engine/smokerun/internal/run/reporting"
	"github.com/om-engine/smokerun/testutil"
)

func testRunResults() *reporting.RunResults {
	timeZone := time.FixedZone("Local", 9*60*60)
	return &reporting.RunResults{
		ID:      "6f0c4a77-3a2b-4d59-9b4c-0f9f2c1d7e11",
		WorkDir: "/work",
		Start:   time.Date(2024, 2, 3, 19, 0, 0, 0, timeZone),
		End:     time.Date(2024, 2, 3, 19, 0, 9, 0, timeZone),
		State:   "failed",
		Programs: []*reporting.ProgramResult{
			{
				Index:  0,
				Name:   "hello-bin",
				Path:   "/work/hello-bin",
				Status: reporting.StatusPassed,
				Start:  time.Date(2024, 2, 3, 19, 0, 0, 0, timeZone),
				End:    time.Date(2024, 2, 3, 19, 0, 2, 0, timeZone),
			},
			{
				Index:      1,
				Name:       "game-03-3",
				Path:       "/work/game-03-3",
				Status:     reporting.StatusFailed,
				ExitStatus: 1,
				Start:      time.Date(2024, 2, 3, 19, 0, 2, 0, timeZone),
				End:        time.Date(2024, 2, 3, 19, 0, 9, 0, timeZone),
				Reason:     "exited with status 1",
				Diagnostic: "error:\nargs: /work/game-03-3\nstdout: \x1b[31mno display\x1b[0m\nreturncode: 1",
			},
			{
				Index:  2,
				Name:   "game-04-1",
				Path:   "/work/game-04-1",
				Status: reporting.StatusNotRun,
				Reason: "not run: game-03-3 failed",
			},
		},
	}
}

func TestWriteJUnitXML(t *gotesting.T) {
	td := testutil.TempDir(t)
	path := filepath.Join(td, reporting.JUnitXMLFilename)

	if err := reporting.WriteJUnitXML(path, testRunResults()); err != nil {
		t.Fatal("WriteJUnitXML failed: ", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	const want = `<?xml version="1.0" encoding="UTF-8"?>
<testsuites>
  <testsuite name="smokerun" timestamp="2024-02-03T10:00:00Z" tests="3" failures="1" errors="0" skipped="1">
    <testcase name="hello-bin" classname="smokerun" status="run" time="2.0"></testcase>
    <testcase name="game-03-3" classname="smokerun" status="run" time="7.0">
      <failure message="exited with status 1" type="exit_status"><![CDATA[error:
args: /work/game-03-3
stdout: no display
returncode: 1]]></failure>
    </testcase>
    <testcase name="game-04-1" classname="smokerun" status="notrun">
      <skipped message="not run: game-03-3 failed"></skipped>
    </testcase>
  </testsuite>
</testsuites>
`
	if diff := cmp.Diff(string(b), want); diff != "" {
		t.Errorf("junit.xml mismatch (-got +want):\n%s", diff)
	}
}

func TestWriteJUnitXMLLaunchError(t *gotesting.T) {
	td := testutil.TempDir(t)
	path := filepath.Join(td, reporting.JUnitXMLFilename)

	res := &reporting.RunResults{Programs: []*reporting.ProgramResult{{
		Name:       "missing",
		Status:     reporting.StatusLaunchError,
		Reason:     "no such file or directory",
		Diagnostic: "launch error: /work/missing: no such file or directory",
	}}}
	if err := reporting.WriteJUnitXML(path, res); err != nil {
		t.Fatal("WriteJUnitXML failed: ", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	const want = `<?xml version="1.0" encoding="UTF-8"?>
<testsuites>
  <testsuite name="smokerun" tests="1" failures="0" errors="1" skipped="0">
    <testcase name="missing" classname="smokerun" status="run">
      <error message="no such file or directory" type="launch_error"><![CDATA[launch error: /work/missing: no such file or directory]]></error>
    </testcase>
  </testsuite>
</testsuites>
`
	if diff := cmp.Diff(string(b), want); diff != "" {
		t.Errorf("junit.xml mismatch (-got +want):\n%s", diff)
	}
}

// parsedSuites is the part of junit.xml checked after parsing it back.
type parsedSuites struct {
	Suite parsedSuite `xml:"testsuite"`
}

type parsedSuite struct {
	Errors    int `xml:"errors,attr"`
	TestCases []struct {
		Name    string `xml:"name,attr"`
		Status  string `xml:"status,attr"`
		Failure *struct {
			Message string `xml:"message,attr"`
			Details string `xml:",chardata"`
		} `xml:"failure"`
		Error *struct {
			Message string `xml:"message,attr"`
			Type    string `xml:"type,attr"`
		} `xml:"error"`
		Skipped *struct{} `xml:"skipped"`
	} `xml:"testcase"`
}

func writeAndParseJUnitXML(t *gotesting.T, res *reporting.RunResults) *parsedSuite {
	t.Helper()
	path := filepath.Join(testutil.TempDir(t), reporting.JUnitXMLFilename)
	if err := reporting.WriteJUnitXML(path, res); err != nil {
		t.Fatal("WriteJUnitXML failed: ", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var ps parsedSuites
	if err := xml.Unmarshal(b, &ps); err != nil {
		t.Fatalf("junit.xml is not well-formed: %v\n%s", err, b)
	}
	return &ps.Suite
}

func TestWriteJUnitXMLControlCharacters(t *gotesting.T) {
	res := &reporting.RunResults{State: "failed", Programs: []*reporting.ProgramResult{{
		Name:       "game-05-1",
		Status:     reporting.StatusFailed,
		ExitStatus: 1,
		Reason:     "exited with status 1",
		Diagnostic: "error:\nargs: /work/game-05-1\nstdout: a\x01\xffb]]>\x1b[0m\x00\nreturncode: 1",
	}}}

	ps := writeAndParseJUnitXML(t, res)
	if len(ps.TestCases) != 1 || ps.TestCases[0].Failure == nil {
		t.Fatalf("Parsed %+v; want one failed test case", ps.TestCases)
	}
	const want = "error:\nargs: /work/game-05-1\nstdout: a\uFFFDb]]>\nreturncode: 1"
	if got := ps.TestCases[0].Failure.Details; got != want {
		t.Errorf("Failure details = %q; want %q", got, want)
	}
}

func TestWriteJUnitXMLAborted(t *gotesting.T) {
	res := &reporting.RunResults{State: reporting.StateAborted, Programs: []*reporting.ProgramResult{
		{Index: 0, Name: "hello-bin", Status: reporting.StatusNotRun, Reason: "not run: run aborted: context canceled"},
		{Index: 1, Name: "game-03-3", Status: reporting.StatusNotRun, Reason: "not run: run aborted: context canceled"},
	}}

	ps := writeAndParseJUnitXML(t, res)
	if ps.Errors != 1 {
		t.Errorf("errors = %d; want 1", ps.Errors)
	}
	if len(ps.TestCases) != 2 {
		t.Fatalf("Got %d test cases; want 2", len(ps.TestCases))
	}
	if e := ps.TestCases[0].Error; e == nil || e.Type != "aborted" || e.Message != res.Programs[0].Reason {
		t.Errorf("%s error = %+v; want an aborted error", ps.TestCases[0].Name, e)
	}
	if tc := ps.TestCases[1]; tc.Skipped == nil || tc.Error != nil {
		t.Errorf("%s is not just skipped", tc.Name)
	}
}
