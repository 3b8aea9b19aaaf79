package launch

import (
	"errors"
	"io/fs"
	stdruntime "runtime"
	"syscall"
	"testing"
)

func TestReasonCapitalizesErrnoText(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "errno", err: syscall.ENOENT, want: "No such file or directory"},
		{name: "wrapped errno", err: &fs.PathError{Op: "fork/exec", Path: "/x", Err: syscall.EACCES}, want: "Permission denied"},
		{name: "plain", err: errors.New("exec: no command"), want: "exec: no command"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Reason(tc.err); got != tc.want {
				t.Fatalf("Reason() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNewErrorWithoutErrno(t *testing.T) {
	cause := errors.New("image not found")
	lerr := NewError("alpine", "create", DomainDocker, 0, cause)
	if lerr.Reason != "image not found" {
		t.Fatalf("unexpected reason %q", lerr.Reason)
	}
	if lerr.Code() != "" {
		t.Fatalf("expected empty code, got %q", lerr.Code())
	}
	if lerr.ExitCode() != 127 {
		t.Fatalf("expected exit code 127, got %d", lerr.ExitCode())
	}
	if errors.Is(lerr, fs.ErrNotExist) {
		t.Fatalf("error without errno must not match fs.ErrNotExist")
	}
	if !errors.Is(lerr, cause) {
		t.Fatalf("expected cause to be reachable")
	}
}

func TestNewErrorWithErrno(t *testing.T) {
	lerr := NewError("alpine", "start", DomainDocker, syscall.EACCES, errors.New("oci runtime: permission denied"))
	if lerr.Reason != "oci runtime: permission denied" {
		t.Fatalf("unexpected reason %q", lerr.Reason)
	}
	if !errors.Is(lerr, fs.ErrPermission) {
		t.Fatalf("expected fs.ErrPermission match")
	}
	if lerr.ExitCode() != 126 {
		t.Fatalf("expected exit code 126, got %d", lerr.ExitCode())
	}
	if got := lerr.Error(); got != "launch alpine: oci runtime: permission denied" {
		t.Fatalf("unexpected message %q", got)
	}
	if lerr.Code() != "EACCES" && stdruntime.GOOS != "windows" {
		t.Fatalf("unexpected code %q", lerr.Code())
	}
}

func TestNewErrorReasonFromErrno(t *testing.T) {
	lerr := NewError("/bin/x", "start", DomainErrno, syscall.ENOENT, nil)
	if lerr.Reason != "No such file or directory" {
		t.Fatalf("unexpected reason %q", lerr.Reason)
	}
}
