// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package loggingtest provides a logging.Logger for unit tests.
package loggingtest

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/om-engine/smokerun/internal/logging"
)

// Logger records messages at or above a level and echoes every message to
// the test log.
type Logger struct {
	tb  testing.TB
	min logging.Level

	mu   sync.Mutex
	msgs []string
}

// NewLogger returns a Logger keeping messages at min or above.
func NewLogger(tb testing.TB, min logging.Level) *Logger {
	return &Logger{tb: tb, min: min}
}

func (l *Logger) Log(level logging.Level, _ time.Time, msg string) {
	l.tb.Helper()
	l.tb.Log(msg)
	if level < l.min {
		return
	}
	l.mu.Lock()
	l.msgs = append(l.msgs, msg)
	l.mu.Unlock()
}

// Logs returns a copy of the messages kept so far.
func (l *Logger) Logs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.msgs...)
}

// String joins the messages kept so far with newlines.
func (l *Logger) String() string {
	return strings.Join(l.Logs(), "\n")
}
