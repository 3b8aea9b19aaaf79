package cliutil

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Paintersrp/procguard/internal/launch"
)

// LaunchRecord represents the outcome of one launch attempt ready for JSON
// encoding.
type LaunchRecord struct {
	Timestamp time.Time `json:"ts"`
	Name      string    `json:"name"`
	Runtime   string    `json:"runtime"`
	ID        string    `json:"id,omitempty"`
	Launched  bool      `json:"launched"`
	ExitCode  int       `json:"exitCode"`
	Reason    string    `json:"reason,omitempty"`
	Code      string    `json:"code,omitempty"`
	Domain    string    `json:"domain,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// NewLaunchRecord builds a record for the named command. launchErr is the
// value returned by the runtime's Launch; waitErr the value returned while
// waiting on a launched instance.
func NewLaunchRecord(name, runtime, id string, exitCode int, launchErr, waitErr error) LaunchRecord {
	record := LaunchRecord{
		Timestamp: time.Now(),
		Name:      name,
		Runtime:   runtime,
		ID:        id,
		Launched:  launchErr == nil,
		ExitCode:  exitCode,
	}
	if lerr, ok := launch.AsError(launchErr); ok {
		record.Reason = RedactSecrets(lerr.Reason)
		record.Code = lerr.Code()
		record.Domain = lerr.Domain
		record.ExitCode = lerr.ExitCode()
		return record
	}
	switch {
	case launchErr != nil:
		record.Error = RedactSecrets(launchErr.Error())
	case waitErr != nil:
		record.Error = RedactSecrets(waitErr.Error())
	}
	return record
}

// Failed reports whether the record describes a command that never started.
func (r LaunchRecord) Failed() bool {
	return !r.Launched
}

// EncodeLaunchRecord encodes a launch record to JSON, reporting errors to stderr if needed.
func EncodeLaunchRecord(enc *json.Encoder, stderr io.Writer, record LaunchRecord) {
	if enc == nil {
		return
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	if err := enc.Encode(&record); err != nil {
		fmt.Fprintf(stderr, "error: encode record: %v\n", err)
	}
}

// FormatLaunchRecord renders a one-line human readable summary of record.
func FormatLaunchRecord(record LaunchRecord) string {
	if record.Failed() {
		detail := record.Reason
		if detail == "" {
			detail = record.Error
		}
		if record.Code != "" {
			return fmt.Sprintf("%-16s %-8s FAILED  %s (%s)", record.Name, record.Runtime, detail, record.Code)
		}
		return fmt.Sprintf("%-16s %-8s FAILED  %s", record.Name, record.Runtime, detail)
	}
	if record.Error != "" {
		return fmt.Sprintf("%-16s %-8s started exit=%d %s", record.Name, record.Runtime, record.ExitCode, record.Error)
	}
	return fmt.Sprintf("%-16s %-8s started exit=%d", record.Name, record.Runtime, record.ExitCode)
}
