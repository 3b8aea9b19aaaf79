package shell

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/Paintersrp/procguard/internal/launch"
)

// ExitError reports a command that ran but exited with a non-zero status.
type ExitError struct {
	Command string
	Code    int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command %q returned with error code %d", e.Command, e.Code)
}

// RunAndPrint launches the command with the shell's streams and waits for it.
// A launch failure is returned as *launch.Error, a non-zero exit as
// *ExitError.
func (s *Shell) RunAndPrint(ctx context.Context, name string, args ...string) error {
	cmd := s.Command(ctx, name, args...)
	if err := launch.Start(cmd); err != nil {
		return err
	}
	return finish(cmd)
}

// RunAsync launches the command and returns without waiting for it.
func (s *Shell) RunAsync(ctx context.Context, name string, args ...string) (*Async, error) {
	cmd := s.Command(ctx, name, args...)
	if err := launch.Start(cmd); err != nil {
		return nil, err
	}
	a := &Async{cmd: cmd, done: make(chan struct{})}
	go func() {
		a.err = finish(cmd)
		close(a.done)
	}()
	return a, nil
}

// Async is a command that was launched and may still be running.
type Async struct {
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

// Pid returns the operating system process id.
func (a *Async) Pid() int {
	return a.cmd.Process.Pid
}

// Done is closed once the command has exited.
func (a *Async) Done() <-chan struct{} {
	return a.done
}

// Finish waits for the command and returns *ExitError on a non-zero exit.
func (a *Async) Finish() error {
	<-a.done
	return a.err
}

// ExitCode waits for the command and returns its exit status.
func (a *Async) ExitCode() int {
	return ExitCode(a.Finish())
}

func finish(cmd *exec.Cmd) error {
	err := cmd.Wait()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			// Killed by a signal; report the shell's 128+n convention.
			code = signalExitCode(exitErr)
		}
		return &ExitError{Command: CommandString(cmd.Path, cmd.Args[1:]), Code: code}
	}
	return fmt.Errorf("wait %s: %w", cmd.Path, err)
}

// ExitCode maps an error from this package to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if lerr, ok := launch.AsError(err); ok {
		return lerr.ExitCode()
	}
	return 1
}

// CommandString renders path and args, quoting arguments that contain a
// space.
func CommandString(path string, args []string) string {
	var b strings.Builder
	b.WriteString(path)
	for _, arg := range args {
		b.WriteByte(' ')
		if strings.Contains(arg, " ") {
			b.WriteString(`"` + arg + `"`)
			continue
		}
		b.WriteString(arg)
	}
	return b.String()
}
