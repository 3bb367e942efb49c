// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"

	"github.com/om-engine/smokerun/internal/run"
	"github.com/om-engine/smokerun/internal/run/config"
	"github.com/om-engine/smokerun/internal/run/invoke"
)

// runWrapper is a wrapper that allows functions from the run package to be stubbed out for testing.
type runWrapper interface {
	// run calls run.Run.
	run(ctx context.Context, cfg *config.Config) (*run.Report, error)
	// writeResults calls run.WriteResults.
	writeResults(ctx context.Context, cfg *config.Config, rep *run.Report) error
}

// realRunWrapper is a runWrapper implementation that calls the real functions in the run package.
type realRunWrapper struct{}

func (realRunWrapper) run(ctx context.Context, cfg *config.Config) (*run.Report, error) {
	return run.Run(ctx, cfg, invoke.Exec{})
}

func (realRunWrapper) writeResults(ctx context.Context, cfg *config.Config, rep *run.Report) error {
	return run.WriteResults(ctx, cfg, rep)
}
