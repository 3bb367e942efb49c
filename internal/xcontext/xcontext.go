// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package xcontext provides contexts that are canceled with custom errors.
//
// A smoke run has two timeouts, one for the whole run and one per program.
// Reporting plain context.DeadlineExceeded for both would hide which one
// fired, so both are created here with an error naming the limit.
package xcontext

import (
	"context"
	"sync/atomic"
	"time"

	"code.cloudfoundry.org/clock"
)

// clk is replaced in unit tests to use fake clocks.
var clk = clock.NewClock()

// CancelFunc cancels an associated context with err. Calls after the first
// have no effect. It panics if err is nil.
// When it returns, the context is canceled: Done is closed and Err is non-nil.
type CancelFunc func(err error)

type contextImpl struct {
	parent context.Context

	hasDeadline bool
	deadline    time.Time // valid only if hasDeadline

	done chan struct{} // closed on cancellation

	// req carries the first cancellation request. Its capacity is 1 so the
	// first send never blocks.
	req chan error

	errValue atomic.Value // error returned by Err
}

// newContext returns a new context and starts a goroutine that waits for
// cancellation.
//
// If deadlineErr is nil, the new context inherits the parent's deadline and
// reqDeadline is ignored. Otherwise its deadline is the earlier of reqDeadline
// and the parent's deadline, and it is canceled with deadlineErr when
// reqDeadline is the one that fires.
func newContext(parent context.Context, deadlineErr error, reqDeadline time.Time) (context.Context, CancelFunc) {
	newDeadline := false
	deadline, hasDeadline := parent.Deadline()
	if deadlineErr != nil && (!hasDeadline || reqDeadline.Before(deadline)) {
		deadline = reqDeadline
		hasDeadline = true
		newDeadline = true
	}

	ctx := &contextImpl{
		parent:      parent,
		hasDeadline: hasDeadline,
		deadline:    deadline,
		done:        make(chan struct{}),
		req:         make(chan error, 1),
	}

	var initErr error
	if err := parent.Err(); err != nil {
		initErr = err
	} else if newDeadline && !deadline.After(clk.Now()) {
		initErr = deadlineErr
	}
	if initErr != nil {
		ctx.errValue.Store(initErr)
		close(ctx.done)
		return ctx, ctx.cancel
	}

	go func() {
		var dl <-chan time.Time
		if newDeadline {
			tm := clk.NewTimer(deadline.Sub(clk.Now()))
			defer tm.Stop()
			dl = tm.C()
		}

		var err error
		select {
		case <-parent.Done():
			err = parent.Err()
		case <-dl:
			err = deadlineErr
		case err = <-ctx.req:
		}
		ctx.errValue.Store(err)
		close(ctx.done)
	}()

	return ctx, ctx.cancel
}

func (c *contextImpl) Deadline() (deadline time.Time, ok bool) {
	return c.deadline, c.hasDeadline
}

func (c *contextImpl) Done() <-chan struct{} {
	return c.done
}

// Err returns a non-nil error once the context is canceled. Unlike the
// context.Context contract, the error may be neither context.Canceled nor
// context.DeadlineExceeded.
func (c *contextImpl) Err() error {
	if val := c.errValue.Load(); val != nil {
		return val.(error)
	}
	return nil
}

func (c *contextImpl) Value(key interface{}) interface{} {
	return c.parent.Value(key)
}

func (c *contextImpl) cancel(err error) {
	if err == nil {
		panic("xcontext: Cancel called with nil")
	}
	select {
	case c.req <- err:
	default:
	}
	<-c.done
}

// WithCancel returns a context that can be canceled with arbitrary errors.
func WithCancel(parent context.Context) (context.Context, CancelFunc) {
	return newContext(parent, nil, time.Time{})
}

// WithDeadline returns a context that is canceled with err at t.
// It panics if err is nil.
func WithDeadline(parent context.Context, t time.Time, err error) (context.Context, CancelFunc) {
	if err == nil {
		panic("xcontext: WithDeadline called with nil err")
	}
	return newContext(parent, err, t)
}

// WithTimeout returns a context that is canceled with err after d.
// A non-positive d means no timeout, which differs from context.WithTimeout:
// the returned context then only follows the parent. It panics if err is nil.
func WithTimeout(parent context.Context, d time.Duration, err error) (context.Context, CancelFunc) {
	if err == nil {
		panic("xcontext: WithTimeout called with nil err")
	}
	if d <= 0 {
		return WithCancel(parent)
	}
	return WithDeadline(parent, clk.Now().Add(d), err)
}
