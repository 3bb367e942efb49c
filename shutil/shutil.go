// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package shutil quotes strings for display as shell command lines.
//
// The runner never passes anything through a shell. Quoting is used only to
// print invocation arguments in diagnostics in a form a user can paste back
// into a terminal to reproduce a failure.
package shutil

import (
	"regexp"
	"strings"
)

// safeRE matches an argument that needs no quoting. \w is [0-9A-Za-z_].
// A leading '=' is excluded because zsh expands it.
var safeRE = regexp.MustCompile(`^[-\w@%+:,./][-\w@%+:,./=]*$`)

// Escape quotes s with single quotes unless it is already safe to paste
// into a shell command line.
func Escape(s string) string {
	if safeRE.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// EscapeSlice escapes each of args and joins them with spaces.
func EscapeSlice(args []string) string {
	escaped := make([]string, len(args))
	for i, arg := range args {
		escaped[i] = Escape(arg)
	}
	return strings.Join(escaped, " ")
}

// Env formats environment entries ("K=V") as shell assignments, quoting each
// value as needed, e.g. "LD_LIBRARY_PATH=/w 'A=b c'".
func Env(env []string) string {
	parts := make([]string, len(env))
	for i, kv := range env {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			parts[i] = Escape(kv)
			continue
		}
		parts[i] = k + "=" + Escape(v)
	}
	return strings.Join(parts, " ")
}
