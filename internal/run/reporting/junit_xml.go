// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package reporting

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/acarl005/stripansi"
)

// JUnitXMLFilename is a file name to be used with WriteJUnitXML.
const JUnitXMLFilename = "junit.xml"

// testSuites is the top level XML element of JUnit result.
type testSuites struct {
	XMLName   xml.Name
	TestSuite testSuite `xml:"testsuite"`
}

// testSuite is an XML element in JUnit result. Launch errors are counted as
// errors and everything else that went wrong as failures.
type testSuite struct {
	Name      string      `xml:"name,attr"`
	Timestamp string      `xml:"timestamp,attr,omitempty"`
	Tests     int         `xml:"tests,attr"`
	Failures  int         `xml:"failures,attr"`
	Errors    int         `xml:"errors,attr"`
	Skipped   int         `xml:"skipped,attr"`
	TestCase  []*testCase `xml:"testcase"`
}

type testCase struct {
	Name      string `xml:"name,attr"`
	ClassName string `xml:"classname,attr"`
	Status    string `xml:"status,attr"`         // run or notrun
	Time      string `xml:"time,attr,omitempty"` // duration, in seconds (with a decimal point)

	Failure *failure `xml:"failure,omitempty"`
	Error   *failure `xml:"error,omitempty"`
	Skipped *skipped `xml:"skipped,omitempty"`
	// SystemOut holds the failure diagnostic.
	SystemOut string `xml:"system-out,omitempty"`
}

type failure struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Details string `xml:",cdata"`
}

type skipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// WriteJUnitXML saves res to path in the JUnit XML format.
func WriteJUnitXML(path string, res *RunResults) error {
	suites := testSuites{
		XMLName: xml.Name{Local: "testsuites"},
		TestSuite: testSuite{
			Name:  "smokerun",
			Tests: len(res.Programs),
		},
	}
	suite := &suites.TestSuite
	if !res.Start.IsZero() {
		suite.Timestamp = res.Start.UTC().Format(time.RFC3339)
	}
	// In an aborted run, the program the run stopped at is an error even if
	// it never started.
	stopReported := res.State != StateAborted
	for _, r := range res.Programs {
		tc := &testCase{
			Name:      xmlText(r.Name),
			ClassName: "smokerun",
			Status:    "run",
		}
		reason := xmlText(r.Reason)
		details := xmlText(r.Diagnostic)
		switch r.Status {
		case StatusPassed:
			tc.Time = fmt.Sprintf("%.1f", r.Duration().Seconds())
		case StatusFailed:
			tc.Time = fmt.Sprintf("%.1f", r.Duration().Seconds())
			tc.Failure = &failure{Message: reason, Type: "exit_status", Details: details}
			suite.Failures++
			stopReported = true
		case StatusLaunchError:
			tc.Error = &failure{Message: reason, Type: "launch_error", Details: details}
			suite.Errors++
			stopReported = true
		case StatusNotRun:
			tc.Status = "notrun"
			if !stopReported {
				tc.Error = &failure{Message: reason, Type: "aborted"}
				suite.Errors++
				stopReported = true
				break
			}
			tc.Skipped = &skipped{Message: reason}
			suite.Skipped++
		}
		suite.TestCase = append(suite.TestCase, tc)
	}

	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append([]byte(xml.Header), append(data, '\n')...), 0644)
}

// xmlText returns s without ANSI escape sequences, as valid UTF-8, and with
// characters XML 1.0 cannot represent removed.
func xmlText(s string) string {
	s = strings.ToValidUTF8(stripansi.Strip(s), "\uFFFD")
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return r
		case r >= 0x20 && r <= 0xD7FF, r >= 0xE000 && r <= 0xFFFD, r >= 0x10000:
			return r
		}
		return -1
	}, s)
}
