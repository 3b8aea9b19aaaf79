package launch

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	stdruntime "runtime"
	"strings"
	"sync"
	"syscall"
	"testing"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if stdruntime.GOOS == "windows" {
		t.Skip("launch tests rely on unix executables")
	}
}

func TestStartRunsExecutable(t *testing.T) {
	skipOnWindows(t)

	var out bytes.Buffer
	cmd := exec.Command("/bin/echo", "hi")
	cmd.Stdout = &out

	if err := Start(cmd); err != nil {
		t.Fatalf("start: %v", err)
	}
	if cmd.Process == nil {
		t.Fatalf("expected process to be running after successful start")
	}
	if err := cmd.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "hi" {
		t.Fatalf("expected output %q, got %q", "hi", got)
	}
}

func TestStartMissingExecutable(t *testing.T) {
	skipOnWindows(t)

	cmd := exec.Command("/bin/does-not-exist")
	err := Start(cmd)
	if err == nil {
		t.Fatalf("expected launch failure")
	}
	if cmd.Process != nil {
		t.Fatalf("expected no process after failed launch")
	}

	lerr, ok := AsError(err)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if !strings.Contains(lerr.Reason, "No such file") {
		t.Fatalf("expected reason to mention missing file, got %q", lerr.Reason)
	}
	if lerr.Path != "/bin/does-not-exist" {
		t.Fatalf("unexpected path %q", lerr.Path)
	}
	if lerr.Domain != DomainErrno || lerr.Errno != syscall.ENOENT {
		t.Fatalf("expected errno ENOENT, got domain=%q errno=%d", lerr.Domain, lerr.Errno)
	}
	if lerr.Code() != "ENOENT" {
		t.Fatalf("expected code ENOENT, got %q", lerr.Code())
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected error to match fs.ErrNotExist")
	}
	if lerr.ExitCode() != 127 {
		t.Fatalf("expected exit code 127, got %d", lerr.ExitCode())
	}
	if !strings.HasPrefix(err.Error(), "launch /bin/does-not-exist: ") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestStartPermissionDenied(t *testing.T) {
	skipOnWindows(t)

	path := filepath.Join(t.TempDir(), "script.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\necho unreachable\n"), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}

	cmd := exec.Command(path)
	err := Start(cmd)
	if err == nil {
		_ = cmd.Wait()
		t.Fatalf("expected launch failure for non-executable file")
	}
	if cmd.Process != nil {
		t.Fatalf("expected no process after failed launch")
	}

	lerr, ok := AsError(err)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if lerr.Errno != syscall.EACCES {
		t.Fatalf("expected EACCES, got %d (%s)", lerr.Errno, lerr.Reason)
	}
	if !errors.Is(err, fs.ErrPermission) {
		t.Fatalf("expected error to match fs.ErrPermission")
	}
	if errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("permission failure must not look like a missing file")
	}
	if strings.Contains(lerr.Reason, "No such file") {
		t.Fatalf("reason should differ from the not-found case, got %q", lerr.Reason)
	}
	if lerr.ExitCode() != 126 {
		t.Fatalf("expected exit code 126, got %d", lerr.ExitCode())
	}
}

func TestStartNameMissingFromPath(t *testing.T) {
	skipOnWindows(t)

	cmd := exec.Command("procguard-definitely-not-installed")
	err := Start(cmd)
	lerr, ok := AsError(err)
	if !ok {
		t.Fatalf("expected *Error, got %v", err)
	}
	if lerr.Op != "lookpath" || lerr.Domain != DomainExec {
		t.Fatalf("unexpected classification op=%q domain=%q", lerr.Op, lerr.Domain)
	}
	if lerr.Path != "procguard-definitely-not-installed" {
		t.Fatalf("unexpected path %q", lerr.Path)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected lookup failure to match fs.ErrNotExist")
	}
	if !errors.Is(err, exec.ErrNotFound) {
		t.Fatalf("expected underlying exec.ErrNotFound to remain reachable")
	}
}

func TestStartMissingWorkdir(t *testing.T) {
	skipOnWindows(t)

	missing := filepath.Join(t.TempDir(), "gone")
	cmd := exec.Command("/bin/echo", "hi")
	cmd.Dir = missing

	err := Start(cmd)
	lerr, ok := AsError(err)
	if !ok {
		t.Fatalf("expected *Error, got %v", err)
	}
	if lerr.Op != "chdir" {
		t.Fatalf("expected chdir op, got %q", lerr.Op)
	}
	if lerr.Path != "/bin/echo" {
		t.Fatalf("expected path to stay the executable, got %q", lerr.Path)
	}
	if !strings.Contains(lerr.Reason, missing) {
		t.Fatalf("expected reason to name the directory, got %q", lerr.Reason)
	}
}

func TestStartCanceledContext(t *testing.T) {
	skipOnWindows(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd := exec.CommandContext(ctx, "/bin/echo", "hi")
	err := Start(cmd)
	lerr, ok := AsError(err)
	if !ok {
		t.Fatalf("expected *Error, got %v", err)
	}
	if lerr.Domain != DomainContext {
		t.Fatalf("expected context domain, got %q", lerr.Domain)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled to remain reachable")
	}
	if cmd.Process != nil {
		t.Fatalf("expected no process for canceled launch")
	}
}

func TestStartRejectsMisuse(t *testing.T) {
	skipOnWindows(t)

	if err := Start(nil); !errors.Is(err, ErrNilCommand) {
		t.Fatalf("expected ErrNilCommand, got %v", err)
	}

	cmd := exec.Command("/bin/echo", "once")
	cmd.Stdout = new(bytes.Buffer)
	if err := Start(cmd); err != nil {
		t.Fatalf("first start: %v", err)
	}
	t.Cleanup(func() { _ = cmd.Wait() })

	err := Start(cmd)
	if !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
	if _, ok := AsError(err); ok {
		t.Fatalf("misuse must not be reported as a launch failure")
	}
}

func TestStartFailuresAreIndependent(t *testing.T) {
	skipOnWindows(t)

	first := exec.Command("/bin/does-not-exist-a")
	second := exec.Command("/bin/does-not-exist-b")

	errA, okA := AsError(Start(first))
	errB, okB := AsError(Start(second))
	if !okA || !okB {
		t.Fatalf("expected both launches to fail")
	}
	if errA == errB {
		t.Fatalf("expected distinct error values")
	}
	if errA.Path != "/bin/does-not-exist-a" || errB.Path != "/bin/does-not-exist-b" {
		t.Fatalf("paths leaked between attempts: %q, %q", errA.Path, errB.Path)
	}
}

func TestStartConcurrentDescriptions(t *testing.T) {
	skipOnWindows(t)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	cmds := make([]*exec.Cmd, n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			cmds[i] = exec.Command("/bin/echo", "ok")
			cmds[i].Stdout = new(bytes.Buffer)
		} else {
			cmds[i] = exec.Command("/bin/does-not-exist")
		}
	}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = Start(cmds[i])
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		running := cmds[i].Process != nil
		if i%2 == 0 {
			if err != nil || !running {
				t.Fatalf("description %d: expected running process, err=%v", i, err)
			}
			_ = cmds[i].Wait()
			continue
		}
		if err == nil || running {
			t.Fatalf("description %d: expected failure without process, err=%v", i, err)
		}
	}
}
