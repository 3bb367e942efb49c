// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package logging_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/om-engine/smokerun/internal/logging"
	"github.com/om-engine/smokerun/internal/logging/loggingtest"
)

func TestContextNoLogger(t *testing.T) {
	ctx := context.Background()
	// Logging to a context without loggers is a no-op.
	logging.Info(ctx, "a")
	logging.Debugf(ctx, "%s", "b")
}

func TestAttachLogger(t *testing.T) {
	parent := loggingtest.NewLogger(t, logging.LevelDebug)
	child := loggingtest.NewLogger(t, logging.LevelInfo)

	ctx := logging.AttachLogger(context.Background(), parent)
	ctx2 := logging.AttachLogger(ctx, child)

	logging.Info(ctx, "parent only")
	logging.Infof(ctx2, "both %d", 2)
	logging.Debug(ctx2, "debug")

	if diff := cmp.Diff(parent.Logs(), []string{"parent only", "both 2", "debug"}); diff != "" {
		t.Errorf("Parent logs mismatch (-got +want):\n%s", diff)
	}
	if diff := cmp.Diff(child.Logs(), []string{"both 2"}); diff != "" {
		t.Errorf("Child logs mismatch (-got +want):\n%s", diff)
	}
}

func TestAttachLoggerNoPropagation(t *testing.T) {
	parent := loggingtest.NewLogger(t, logging.LevelDebug)
	child := loggingtest.NewLogger(t, logging.LevelDebug)

	ctx := logging.AttachLogger(context.Background(), parent)
	ctx = logging.AttachLoggerNoPropagation(ctx, child)
	logging.Info(ctx, "quiet")

	if logs := parent.Logs(); len(logs) != 0 {
		t.Errorf("Parent got %q; want nothing", logs)
	}
	if diff := cmp.Diff(child.Logs(), []string{"quiet"}); diff != "" {
		t.Errorf("Child logs mismatch (-got +want):\n%s", diff)
	}
}

func TestWithPrefix(t *testing.T) {
	logger := loggingtest.NewLogger(t, logging.LevelDebug)
	ctx := logging.AttachLogger(context.Background(), logger)
	ctx = logging.WithPrefix(ctx, "[2/3] ")
	logging.Info(ctx, "game-04-1")
	logging.Info(logging.WithPrefix(ctx, "stdout: "), "ok")
	logging.Info(ctx, "bad\xffutf8")

	want := []string{"[2/3] game-04-1", "[2/3] stdout: ok", "[2/3] badutf8"}
	if diff := cmp.Diff(logger.Logs(), want); diff != "" {
		t.Errorf("Logs mismatch (-got +want):\n%s", diff)
	}
}
