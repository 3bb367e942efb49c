// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package logging_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/om-engine/smokerun/internal/logging"
	"github.com/om-engine/smokerun/internal/logging/loggingtest"
)

func TestMultiLogger(t *testing.T) {
	logger1 := loggingtest.NewLogger(t, logging.LevelInfo)
	logger2 := loggingtest.NewLogger(t, logging.LevelDebug)

	logger := logging.NewMultiLogger(logger1, nil, logger2)
	logger.Log(logging.LevelInfo, time.Time{}, "hello-bin")
	logger.Log(logging.LevelDebug, time.Time{}, "env")
	logger.Log(logging.LevelInfo, time.Time{}, "game-03-3")

	if diff := cmp.Diff(logger1.Logs(), []string{"hello-bin", "game-03-3"}); diff != "" {
		t.Errorf("Messages mismatch for logger1 (-got +want):\n%s", diff)
	}
	if diff := cmp.Diff(logger2.Logs(), []string{"hello-bin", "env", "game-03-3"}); diff != "" {
		t.Errorf("Messages mismatch for logger2 (-got +want):\n%s", diff)
	}
}
