// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package invoke

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/om-engine/smokerun/errors"
	"github.com/om-engine/smokerun/testutil"
)

func TestPath(t *testing.T) {
	td := testutil.TempDir(t)

	got, err := Path(td, "hello-bin")
	if err != nil {
		t.Fatal("Path failed: ", err)
	}
	if want := filepath.Join(td, "hello-bin"); got != want {
		t.Errorf("Path = %q; want %q", got, want)
	}

	for _, name := range []string{"", ".", "..", "sub/hello-bin", "/bin/true"} {
		if _, err := Path(td, name); err == nil {
			t.Errorf("Path(%q) unexpectedly succeeded", name)
		}
	}
}

func TestCheck(t *testing.T) {
	td := testutil.TempDir(t)
	if err := testutil.WriteScripts(td, map[string]string{"exe": "exit 0\n"}); err != nil {
		t.Fatal(err)
	}
	if err := testutil.WriteFiles(td, map[string]string{"plain": "data"}); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(td, "dir"), 0755); err != nil {
		t.Fatal(err)
	}

	if err := Check(filepath.Join(td, "exe")); err != nil {
		t.Error("Check(exe) failed: ", err)
	}

	for _, tc := range []struct {
		name   string
		target error
	}{
		{"missing", fs.ErrNotExist},
		{"plain", fs.ErrPermission},
		{"dir", nil},
	} {
		err := Check(filepath.Join(td, tc.name))
		var le *LaunchError
		if !errors.As(err, &le) {
			t.Errorf("Check(%s) = %v; want *LaunchError", tc.name, err)
			continue
		}
		if le.Path != filepath.Join(td, tc.name) {
			t.Errorf("Check(%s): Path = %q", tc.name, le.Path)
		}
		if tc.target != nil && !errors.Is(err, tc.target) {
			t.Errorf("Check(%s) = %v; want an error wrapping %v", tc.name, err, tc.target)
		}
	}
}

func TestInvokeSuccess(t *testing.T) {
	td := testutil.TempDir(t)
	if err := testutil.WriteScripts(td, map[string]string{
		"hello-bin": "echo hello\necho oops >&2\nexit 0\n",
	}); err != nil {
		t.Fatal(err)
	}

	var tee bytes.Buffer
	res, err := Exec{}.Invoke(context.Background(), &Request{Name: "hello-bin", Dir: td, Stdout: &tee})
	if err != nil {
		t.Fatal("Invoke failed: ", err)
	}
	path := filepath.Join(td, "hello-bin")
	if diff := cmp.Diff(res.Args, []string{path}); diff != "" {
		t.Errorf("Args mismatch (-got +want):\n%s", diff)
	}
	if !res.Passed() {
		t.Errorf("Passed() = false; status %d", res.Status)
	}
	if got := string(res.Stdout); got != "hello\n" {
		t.Errorf("Stdout = %q; want %q", got, "hello\n")
	}
	if got := string(res.Stderr); got != "oops\n" {
		t.Errorf("Stderr = %q; want %q", got, "oops\n")
	}
	if got := tee.String(); got != "hello\n" {
		t.Errorf("Tee got %q; want %q", got, "hello\n")
	}
	if res.End.Before(res.Start) {
		t.Errorf("End %v is before Start %v", res.End, res.Start)
	}
}

func TestInvokeExitStatus(t *testing.T) {
	td := testutil.TempDir(t)
	if err := testutil.WriteScripts(td, map[string]string{
		"fail":   "echo partial\nexit 3\n",
		"killed": "kill -9 $$\n",
	}); err != nil {
		t.Fatal(err)
	}

	for _, tc := range []struct {
		name   string
		status int
	}{
		{"fail", 3},
		{"killed", 128 + 9},
	} {
		res, err := Exec{}.Invoke(context.Background(), &Request{Name: tc.name, Dir: td})
		if err != nil {
			t.Errorf("Invoke(%s) failed: %v", tc.name, err)
			continue
		}
		if res.Status != tc.status {
			t.Errorf("Invoke(%s): Status = %d; want %d", tc.name, res.Status, tc.status)
		}
		if res.Passed() {
			t.Errorf("Invoke(%s): Passed() = true", tc.name)
		}
	}
}

func TestInvokeEnvAndDir(t *testing.T) {
	td := testutil.TempDir(t)
	if err := testutil.WriteScripts(td, map[string]string{
		"show": "pwd\necho \"LD=$LD_LIBRARY_PATH\"\necho \"HOME=${HOME:-unset}\"\n",
	}); err != nil {
		t.Fatal(err)
	}

	env := []string{"LD_LIBRARY_PATH=" + td, "PATH=/usr/bin:/bin"}
	res, err := Exec{}.Invoke(context.Background(), &Request{Name: "show", Dir: td, Env: env})
	if err != nil {
		t.Fatal("Invoke failed: ", err)
	}
	lines := strings.Split(strings.TrimSpace(string(res.Stdout)), "\n")

	// pwd may resolve symlinks in the temporary directory path.
	realDir, err := filepath.EvalSymlinks(td)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{realDir, "LD=" + td, "HOME=unset"}
	if diff := cmp.Diff(lines, want); diff != "" {
		t.Errorf("Child output mismatch (-got +want):\n%s", diff)
	}
}

func TestInvokeNilEnvIsEmpty(t *testing.T) {
	td := testutil.TempDir(t)
	if err := testutil.WriteScripts(td, map[string]string{
		"show": "echo \"${SMOKERUN_INVOKE_TEST:-unset}\"\n",
	}); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SMOKERUN_INVOKE_TEST", "leaked")

	res, err := Exec{}.Invoke(context.Background(), &Request{Name: "show", Dir: td})
	if err != nil {
		t.Fatal("Invoke failed: ", err)
	}
	if got := strings.TrimSpace(string(res.Stdout)); got != "unset" {
		t.Errorf("Child saw host variable: got %q", got)
	}
}

func TestInvokeLaunchError(t *testing.T) {
	td := testutil.TempDir(t)
	if err := testutil.WriteFiles(td, map[string]string{"plain": "data"}); err != nil {
		t.Fatal(err)
	}
	// An executable file without a valid interpreter line fails in exec.
	if err := os.WriteFile(filepath.Join(td, "badformat"), []byte{0x7f, 'E', 'L', 'F', 0, 0}, 0755); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"missing", "plain", "badformat", "../escape"} {
		res, err := Exec{}.Invoke(context.Background(), &Request{Name: name, Dir: td})
		var le *LaunchError
		if !errors.As(err, &le) {
			t.Errorf("Invoke(%s) = %v; want *LaunchError", name, err)
			continue
		}
		if res == nil || res.Name != name {
			t.Errorf("Invoke(%s) returned result %+v", name, res)
		}
	}
}

func TestInvokeTimeout(t *testing.T) {
	td := testutil.TempDir(t)
	if err := testutil.WriteScripts(td, map[string]string{
		"hang": "echo started\nsleep 60\n",
	}); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	res, err := Exec{}.Invoke(context.Background(), &Request{
		Name:    "hang",
		Dir:     td,
		Env:     []string{"PATH=/usr/bin:/bin"},
		Timeout: 200 * time.Millisecond,
	})
	if err != nil {
		t.Fatal("Invoke failed: ", err)
	}
	if elapsed := time.Since(start); elapsed > 30*time.Second {
		t.Errorf("Invoke took %v; the process group was not killed", elapsed)
	}
	if !res.TimedOut {
		t.Error("TimedOut = false")
	}
	if res.Passed() {
		t.Error("Passed() = true for a timed out program")
	}
	if got := string(res.Stdout); got != "started\n" {
		t.Errorf("Stdout = %q; want %q", got, "started\n")
	}
}

// setDrainDelay shortens OutputDrainDelay for the duration of a test.
func setDrainDelay(t *testing.T, d time.Duration) {
	orig := OutputDrainDelay
	OutputDrainDelay = d
	t.Cleanup(func() { OutputDrainDelay = orig })
}

func TestInvokeDescendantHoldsOutput(t *testing.T) {
	setDrainDelay(t, 200*time.Millisecond)
	td := testutil.TempDir(t)
	if err := testutil.WriteScripts(td, map[string]string{
		"spawner": "sleep 10 &\necho hi\n",
	}); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	res, err := Exec{}.Invoke(context.Background(), &Request{
		Name: "spawner",
		Dir:  td,
		Env:  []string{"PATH=/usr/bin:/bin"},
	})
	if err != nil {
		t.Fatal("Invoke failed: ", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Invoke took %v; it waited for the background process", elapsed)
	}
	if !res.Passed() || res.TimedOut {
		t.Errorf("Status = %d, TimedOut = %v; want a pass", res.Status, res.TimedOut)
	}
	if got := string(res.Stdout); got != "hi\n" {
		t.Errorf("Stdout = %q; want %q", got, "hi\n")
	}
}

func TestInvokeTimeoutEscapedDescendant(t *testing.T) {
	if _, err := exec.LookPath("setsid"); err != nil {
		t.Skip("setsid not available: ", err)
	}
	setDrainDelay(t, 200*time.Millisecond)
	td := testutil.TempDir(t)
	if err := testutil.WriteScripts(td, map[string]string{
		// The new session leaves the process group killed on timeout.
		"hang": "setsid sleep 10 &\nsleep 60\n",
	}); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	res, err := Exec{}.Invoke(context.Background(), &Request{
		Name:    "hang",
		Dir:     td,
		Env:     []string{"PATH=/usr/bin:/bin"},
		Timeout: 200 * time.Millisecond,
	})
	if err != nil {
		t.Fatal("Invoke failed: ", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Invoke took %v; it waited for the escaped process", elapsed)
	}
	if !res.TimedOut {
		t.Error("TimedOut = false")
	}
}

func TestInvokeCanceled(t *testing.T) {
	td := testutil.TempDir(t)
	if err := testutil.WriteScripts(td, map[string]string{
		"hang": "sleep 60\n",
	}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := Exec{}.Invoke(ctx, &Request{Name: "hang", Dir: td, Env: []string{"PATH=/usr/bin:/bin"}})
	if err == nil {
		t.Fatal("Invoke succeeded despite cancellation")
	}
	var le *LaunchError
	if errors.As(err, &le) {
		t.Errorf("Invoke returned a launch error for cancellation: %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Invoke = %v; want an error wrapping %v", err, context.DeadlineExceeded)
	}
}
