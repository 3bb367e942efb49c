// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package reporting

import (
	"context"
	"fmt"
	"strings"

	"github.com/acarl005/stripansi"

	"github.com/om-engine/smokerun/internal/logging"
	"github.com/om-engine/smokerun/internal/run/invoke"
	"github.com/om-engine/smokerun/shutil"
)

// Progress logs the notice emitted before a program is started.
func Progress(ctx context.Context, name, dir string) {
	logging.Infof(ctx, "starting: %s in dir: %s", name, dir)
}

// Diagnostic returns the block describing a program that exited non-zero or
// timed out:
//
//	error:
//	args: /work/game-03-3
//	stdout: init failed
//	returncode: 1
//
// A stderr section follows stdout when the program wrote to stderr, and a
// line noting the timeout precedes the return code when it was killed.
func Diagnostic(res *invoke.Result) string {
	var b strings.Builder
	b.WriteString("error:\n")
	fmt.Fprintf(&b, "args: %s\n", shutil.EscapeSlice(res.Args))
	writeOutput(&b, "stdout", res.Stdout)
	if len(res.Stderr) > 0 {
		writeOutput(&b, "stderr", res.Stderr)
	}
	if res.TimedOut {
		fmt.Fprintf(&b, "timed out after %v\n", res.Timeout)
	}
	fmt.Fprintf(&b, "returncode: %d", res.Status)
	return b.String()
}

// writeOutput writes captured output under label. Multi-line output starts
// on the line after the label.
func writeOutput(b *strings.Builder, label string, out []byte) {
	s := strings.TrimRight(stripansi.Strip(string(out)), "\n")
	if strings.Contains(s, "\n") {
		fmt.Fprintf(b, "%s:\n%s\n", label, s)
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, s)
}

// LaunchDiagnostic returns the line describing a program that could not be
// started.
func LaunchDiagnostic(path string, err error) string {
	return fmt.Sprintf("launch error: %s: %v", path, err)
}
