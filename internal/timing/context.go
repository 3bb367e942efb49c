// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package timing

import (
	"context"
)

type ctxKey struct{}

// ctxValue is what a context carries: the Log and the stage new stages are
// nested under.
type ctxValue struct {
	log   *Log
	stage *Stage
}

// NewContext returns a context carrying l, with l.Root as the current stage.
func NewContext(ctx context.Context, l *Log) context.Context {
	return context.WithValue(ctx, ctxKey{}, ctxValue{l, l.Root})
}

// FromContext returns the Log and the current Stage carried by ctx.
func FromContext(ctx context.Context) (*Log, *Stage, bool) {
	v, ok := ctx.Value(ctxKey{}).(ctxValue)
	if !ok {
		return nil, nil, false
	}
	return v.log, v.stage, true
}

// Start begins a stage named name under the current stage of ctx and returns
// a context in which it is current. Without a Log in ctx, the returned stage
// is nil; ending it does nothing.
//
//	ctx, st := timing.Start(ctx, "run")
//	defer st.End()
func Start(ctx context.Context, name string) (context.Context, *Stage) {
	v, ok := ctx.Value(ctxKey{}).(ctxValue)
	if !ok {
		return ctx, nil
	}
	c := v.stage.StartChild(name)
	if c == nil {
		return ctx, nil
	}
	return context.WithValue(ctx, ctxKey{}, ctxValue{v.log, c}), c
}
