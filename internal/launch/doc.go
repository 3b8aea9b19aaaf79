// Package launch starts pre-configured process descriptions and reports
// launch failures as values.
//
// Start is the only place a process is created. It either leaves the process
// running and returns nil, or returns a *Error describing why the operating
// system refused to create it. A *Error is never produced for a process that
// began running: failures after that point (non-zero exit, crash) belong to
// the caller's exec.Cmd.
//
// Misuse is reported separately. Starting an already started description
// returns ErrAlreadyStarted and a nil description returns ErrNilCommand;
// neither is a *Error.
package launch
