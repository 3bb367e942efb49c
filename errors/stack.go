// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package errors

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// maxFrames is the number of frames kept in a trace. Deeper traces end with
// truncatedFrame.
const maxFrames = 8

const truncatedFrame = "\t..."

// callers is a call stack captured when an error is created.
type callers []uintptr

// captureCallers records the stack of its caller's caller, skipping skip
// more frames.
func captureCallers(skip int) callers {
	pcs := make([]uintptr, maxFrames+1)
	n := runtime.Callers(skip+3, pcs)
	return callers(pcs[:n])
}

// String formats c one frame per line, innermost first.
func (c callers) String() string {
	var sb strings.Builder
	frames := runtime.CallersFrames(c)
	for i := 0; ; i++ {
		if i == maxFrames {
			sb.WriteString("\n" + truncatedFrame)
			break
		}
		fr, more := frames.Next()
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "\tat %s (%s:%d)", fr.Function, filepath.Base(fr.File), fr.Line)
		if !more {
			break
		}
	}
	return sb.String()
}
