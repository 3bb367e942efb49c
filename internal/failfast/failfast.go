// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package failfast decides when a run has seen enough failed programs.
package failfast

import (
	"github.com/om-engine/smokerun/errors"
)

// Counter counts failed programs and reports when the count reaches a
// threshold. A nil Counter never trips.
type Counter struct {
	threshold int
	fails     int
	last      string
}

// NewCounter returns a Counter tripping after threshold failures. A
// non-positive threshold yields nil.
func NewCounter(threshold int) *Counter {
	if threshold <= 0 {
		return nil
	}
	return &Counter{threshold: threshold}
}

// Increment records a failure of the named program.
func (c *Counter) Increment(name string) {
	if c == nil {
		return
	}
	c.fails++
	c.last = name
}

// Failures returns the number of failures recorded so far.
func (c *Counter) Failures() int {
	if c == nil {
		return 0
	}
	return c.fails
}

// Check returns an error once the number of failures is no less than the
// threshold.
func (c *Counter) Check() error {
	if c == nil {
		return nil
	}
	if c.fails >= c.threshold {
		return errors.Errorf("stopping after %d failed program(s), last was %s", c.fails, c.last)
	}
	return nil
}
