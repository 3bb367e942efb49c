// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package reporting_test

import (
	"path/filepath"
	gotesting "testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/om-engine/smokerun/internal/run/reporting"
	"github.com/om-engine/smokerun/testutil"
)

func TestResultsJSON(t *gotesting.T) {
	td := testutil.TempDir(t)
	path := filepath.Join(td, reporting.ResultsFilename)

	want := testRunResults()
	if err := reporting.WriteResultsJSON(path, want); err != nil {
		t.Fatal("WriteResultsJSON failed: ", err)
	}
	got, err := reporting.ReadResultsJSON(path)
	if err != nil {
		t.Fatal("ReadResultsJSON failed: ", err)
	}
	// Times are compared with Equal since the zone is not preserved exactly.
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Results mismatch (-got +want):\n%s", diff)
	}
}

func TestNewRunID(t *gotesting.T) {
	a, b := reporting.NewRunID(), reporting.NewRunID()
	if a == b {
		t.Errorf("NewRunID returned %q twice", a)
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("NewRunID returned %q, not a UUID: %v", a, err)
	}
}
