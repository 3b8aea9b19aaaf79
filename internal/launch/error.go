package launch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"syscall"
	"unicode"
	"unicode/utf8"
)

// Failure domains.
const (
	DomainErrno   = "errno"
	DomainExec    = "exec"
	DomainContext = "context"
	DomainDocker  = "docker"
)

// Error describes a process that could not be started. It is a plain value:
// nothing in it refers to a live process.
type Error struct {
	// Path is the executable as requested by the caller.
	Path string
	// Op is the step that failed, such as "fork/exec", "chdir" or "lookpath".
	Op string
	// Reason is the human readable cause, e.g. "No such file or directory".
	Reason string
	// Domain classifies where Errno comes from. Empty when unclassified.
	Domain string
	// Errno is the platform code when the failure carries one.
	Errno syscall.Errno
	// Err is the underlying failure.
	Err error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return "launch: " + e.Reason
	}
	return fmt.Sprintf("launch %s: %s", e.Path, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches fs.ErrNotExist, fs.ErrPermission and the other targets the
// platform errno matches, so lookups that never reached the kernel (a name
// missing from PATH, a docker start failure) classify like ones that did.
func (e *Error) Is(target error) bool {
	if e.Errno == 0 {
		return false
	}
	return e.Errno.Is(target)
}

// Code returns the symbolic name of Errno, such as "ENOENT". It is empty when
// the failure has no code or the platform has no name for it.
func (e *Error) Code() string {
	if e.Errno == 0 {
		return ""
	}
	return errnoName(e.Errno)
}

// ExitCode follows the shell convention for commands that could not run:
// 126 when the target exists but cannot be executed, 127 otherwise.
func (e *Error) ExitCode() int {
	if e.Errno != 0 && e.Errno.Is(fs.ErrPermission) {
		return 126
	}
	return 127
}

// NewError builds a *Error for backends that launch through something other
// than exec.Cmd. The reason is taken from err; errno may be zero and only
// supplies the text when err is nil.
func NewError(path, op, domain string, errno syscall.Errno, err error) *Error {
	reason := Reason(err)
	if reason == "" && errno != 0 {
		reason = Reason(errno)
	}
	return &Error{Path: path, Op: op, Reason: reason, Domain: domain, Errno: errno, Err: err}
}

func newError(cmd *exec.Cmd, err error) *Error {
	lerr := &Error{Path: cmd.Path, Op: "start", Reason: Reason(err), Err: err}

	var (
		execErr *exec.Error
		pathErr *fs.PathError
		errno   syscall.Errno
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		lerr.Op = "context"
		lerr.Domain = DomainContext
		return lerr
	case errors.As(err, &execErr):
		lerr.Op = "lookpath"
		lerr.Path = execErr.Name
		lerr.Domain = DomainExec
		lerr.Reason = Reason(execErr.Err)
		if errors.Is(execErr.Err, exec.ErrNotFound) {
			lerr.Errno = syscall.ENOENT
		}
	case errors.As(err, &pathErr):
		lerr.Op = pathErr.Op
		lerr.Reason = Reason(pathErr.Err)
		if pathErr.Path != "" && pathErr.Path != cmd.Path {
			// The failing path is not the executable, e.g. a missing Dir.
			lerr.Reason = fmt.Sprintf("%s %s: %s", pathErr.Op, pathErr.Path, lerr.Reason)
		}
	}

	if errors.As(err, &errno) {
		lerr.Domain = DomainErrno
		lerr.Errno = errno
	}
	return lerr
}

// Reason renders err for humans. Platform codes use strerror style, the
// errno text with its first letter upper-cased ("No such file or
// directory"); any other failure keeps its own text.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return err.Error()
	}
	msg := errno.Error()
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}
	return string(unicode.ToUpper(r)) + msg[size:]
}
