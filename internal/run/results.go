// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package run

import (
	"context"
	"path/filepath"

	"github.com/om-engine/smokerun/errors"
	"github.com/om-engine/smokerun/internal/logging"
	"github.com/om-engine/smokerun/internal/run/config"
	"github.com/om-engine/smokerun/internal/run/reporting"
	"github.com/om-engine/smokerun/internal/timing"
)

// WriteResults writes results.json and junit.xml for rep to the results
// directory of cfg, and logs the outcome of each program.
func WriteResults(ctx context.Context, cfg *config.Config, rep *Report) error {
	ctx, st := timing.Start(ctx, "write_results")
	defer st.End()

	res := rep.RunResults()
	if err := reporting.WriteResultsJSON(filepath.Join(cfg.ResDir(), reporting.ResultsFilename), res); err != nil {
		return errors.Wrap(err, "failed to write results")
	}
	if err := reporting.WriteJUnitXML(filepath.Join(cfg.ResDir(), reporting.JUnitXMLFilename), res); err != nil {
		return errors.Wrap(err, "failed to write JUnit results")
	}

	for _, pr := range rep.Results {
		msg := pr.Name + ": " + string(pr.Status)
		if pr.Reason != "" {
			msg += " (" + pr.Reason + ")"
		}
		logging.Debug(ctx, msg)
	}
	logging.Info(ctx, "Results saved to ", cfg.ResDir())
	return nil
}
