// Copyright 2024 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package invoke

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/om-engine/smokerun/errors"
	"github.com/om-engine/smokerun/internal/logging"
	"github.com/om-engine/smokerun/internal/xcontext"
	"github.com/om-engine/smokerun/shutil"
)

// OutputDrainDelay is how long Invoke keeps reading output after the child
// has exited.
var OutputDrainDelay = 2 * time.Second

// Exec runs programs as local child processes.
type Exec struct{}

var _ Invoker = Exec{}

// Path returns the absolute path of the program name in dir. name must be a
// bare file name.
func Path(dir, name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsRune(name, filepath.Separator) {
		return "", errors.Errorf("invalid program name %q", name)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(abs, name), nil
}

// Check verifies that path is a regular file with an execute bit set.
// Failures are returned as *LaunchError.
func Check(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return &LaunchError{Path: path, Err: err}
	}
	if !fi.Mode().IsRegular() {
		return &LaunchError{Path: path, Err: errors.Errorf("not a regular file (mode %v)", fi.Mode())}
	}
	if fi.Mode().Perm()&0111 == 0 {
		return &LaunchError{Path: path, Err: errors.Wrapf(fs.ErrPermission, "mode %v has no execute bit", fi.Mode().Perm())}
	}
	return nil
}

// Invoke runs req.Name in req.Dir and waits for it to exit.
func (Exec) Invoke(ctx context.Context, req *Request) (*Result, error) {
	res := &Result{Name: req.Name, Dir: req.Dir, Timeout: req.Timeout, Start: time.Now()}
	defer func() { res.End = time.Now() }()

	path, err := Path(req.Dir, req.Name)
	if err != nil {
		return res, &LaunchError{Path: filepath.Join(req.Dir, req.Name), Err: err}
	}
	res.Path = path
	res.Args = []string{path}

	if err := Check(path); err != nil {
		return res, err
	}

	timeoutErr := errors.Errorf("%s timed out after %v", req.Name, req.Timeout)
	cctx, cancel := xcontext.WithTimeout(ctx, req.Timeout, timeoutErr)
	defer cancel(context.Canceled)

	cmd := exec.CommandContext(cctx, path)
	cmd.Dir = req.Dir
	cmd.Env = req.Env
	if cmd.Env == nil {
		// A nil Env makes os/exec inherit the host environment.
		cmd.Env = []string{}
	}
	// Cancellation kills the child's whole process group.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = OutputDrainDelay
	cmd.Cancel = func() error {
		if err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL); err == unix.ESRCH {
			return os.ErrProcessDone
		} else if err != nil {
			return err
		}
		return nil
	}

	// The child writes straight into os.Pipe files, so Wait returns as soon
	// as it exits even if descendants still hold the write ends.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return res, err
	}
	defer stdoutR.Close()
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdoutW.Close()
		return res, err
	}
	defer stderrR.Close()
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	logging.Debugf(ctx, "Executing %s %s", shutil.Env(req.Env), shutil.EscapeSlice(res.Args))
	startErr := cmd.Start()
	stdoutW.Close()
	stderrW.Close()
	if startErr != nil {
		return res, &LaunchError{Path: path, Err: startErr}
	}

	var outBuf, errBuf bytes.Buffer
	var g errgroup.Group
	g.Go(func() error { return drain(stdoutR, &outBuf, req.Stdout) })
	g.Go(func() error { return drain(stderrR, &errBuf, req.Stderr) })
	waitErr := cmd.Wait()

	// Output still open after the child exited belongs to descendants that
	// outlived it. Read what arrives within OutputDrainDelay and drop the rest.
	deadline := time.Now().Add(OutputDrainDelay)
	stdoutR.SetReadDeadline(deadline)
	stderrR.SetReadDeadline(deadline)
	readErr := g.Wait()
	if errors.Is(readErr, os.ErrDeadlineExceeded) {
		logging.Infof(ctx, "%s exited but its output is still open after %v; ignoring further output", req.Name, OutputDrainDelay)
		readErr = nil
	}

	res.Stdout = outBuf.Bytes()
	res.Stderr = errBuf.Bytes()

	res.Status = exitStatus(cmd.ProcessState)

	// The child context is canceled with timeoutErr only when the
	// per-program limit fired.
	switch cerr := cctx.Err(); {
	case cerr == timeoutErr:
		res.TimedOut = true
		logging.Debugf(ctx, "%s killed after %v", req.Name, req.Timeout)
		return res, nil
	case cerr != nil:
		return res, errors.Wrapf(cerr, "%s interrupted", req.Name)
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return res, errors.Wrapf(waitErr, "failed waiting for %s", req.Name)
		}
	}
	if readErr != nil {
		return res, errors.Wrapf(readErr, "failed reading output of %s", req.Name)
	}
	logging.Debugf(ctx, "%s exited with status %d after %v", req.Name, res.Status, time.Since(res.Start).Round(time.Millisecond))
	return res, nil
}

// drain copies r into buf, and into tee as well when it is non-nil.
func drain(r io.Reader, buf *bytes.Buffer, tee io.Writer) error {
	var w io.Writer = buf
	if tee != nil {
		w = io.MultiWriter(buf, tee)
	}
	_, err := io.Copy(w, r)
	return err
}

// exitStatus returns the shell-style exit status of a finished process.
func exitStatus(ps *os.ProcessState) int {
	if ps == nil {
		return -1
	}
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok {
		if uws := unix.WaitStatus(ws); uws.Signaled() {
			return 128 + int(uws.Signal())
		}
	}
	return ps.ExitCode()
}
