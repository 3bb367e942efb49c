// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package logging provides leveled logging carried by context.Context.
//
// Code emitting logs calls Info/Infof/Debug/Debugf with a context. The
// command-line front end decides where logs go by attaching Loggers to the
// context with AttachLogger; emitting code never holds a logger itself.
package logging

import (
	"time"
)

// Level indicates a logging level. A larger level value means a log is more
// important.
type Level int

const (
	// LevelDebug represents the DEBUG level.
	LevelDebug Level = iota
	// LevelInfo represents the INFO level.
	LevelInfo
)

// Logger consumes logs sent via context.Context.
type Logger interface {
	// Log gets called for a log entry.
	Log(level Level, ts time.Time, msg string)
}

// MultiLogger is a Logger that copies logs to multiple underlying loggers.
// AttachLogger uses it to keep logs flowing to loggers attached earlier.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a MultiLogger. Nil loggers are skipped.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	ml := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			ml.loggers = append(ml.loggers, l)
		}
	}
	return ml
}

// Log copies a log to the underlying loggers in order.
func (ml *MultiLogger) Log(level Level, ts time.Time, msg string) {
	for _, l := range ml.loggers {
		l.Log(level, ts, msg)
	}
}
