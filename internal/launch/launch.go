package launch

import (
	"errors"
	"os/exec"
)

var (
	// ErrAlreadyStarted is returned when the description has already been
	// launched. It is a caller error, not a launch failure.
	ErrAlreadyStarted = errors.New("launch: process already started")

	// ErrNilCommand is returned when no description is provided.
	ErrNilCommand = errors.New("launch: nil command")
)

// Start launches cmd. On success the process is running and cmd.Process is
// set. On failure no process exists and the returned error is a *Error.
//
// Start blocks only until the operating system has created the child or
// refused to; it never waits for the child.
func Start(cmd *exec.Cmd) error {
	if cmd == nil {
		return ErrNilCommand
	}
	if cmd.Process != nil {
		return ErrAlreadyStarted
	}
	if err := cmd.Start(); err != nil {
		return newError(cmd, err)
	}
	return nil
}

// AsError reports whether err carries a launch failure and returns it.
func AsError(err error) (*Error, bool) {
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr, true
	}
	return nil, false
}
