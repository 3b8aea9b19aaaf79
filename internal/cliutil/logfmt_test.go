package cliutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/Paintersrp/procguard/internal/launch"
)

func TestNewLaunchRecordFromLaunchError(t *testing.T) {
	lerr := launch.NewError("/bin/does-not-exist", "fork/exec", launch.DomainErrno, syscall.ENOENT, nil)

	record := NewLaunchRecord("missing", "process", "", 0, lerr, nil)

	if record.Launched {
		t.Fatalf("expected record to report failed launch")
	}
	if !strings.Contains(record.Reason, "No such file") {
		t.Fatalf("unexpected reason %q", record.Reason)
	}
	if record.Domain != launch.DomainErrno {
		t.Fatalf("unexpected domain %q", record.Domain)
	}
	if record.ExitCode != 127 {
		t.Fatalf("expected exit code 127, got %d", record.ExitCode)
	}
	if !record.Failed() {
		t.Fatalf("expected Failed to be true")
	}
}

func TestNewLaunchRecordStarted(t *testing.T) {
	record := NewLaunchRecord("hello", "process", "1234", 3, nil, nil)
	if !record.Launched || record.Failed() {
		t.Fatalf("expected launched record, got %+v", record)
	}
	if record.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", record.ExitCode)
	}
	if record.Reason != "" || record.Code != "" {
		t.Fatalf("expected no failure detail, got %+v", record)
	}
}

func TestNewLaunchRecordRedactsSecrets(t *testing.T) {
	err := errors.New(`sending ${API_TOKEN} AWS_SECRET_ACCESS_KEY="super-secret"`)

	record := NewLaunchRecord("job", "docker", "", 0, err, nil)

	if record.Launched {
		t.Fatalf("expected configuration error to count as not launched")
	}
	if strings.Contains(record.Error, "${API_TOKEN}") {
		t.Fatalf("expected template placeholder to be redacted, got %q", record.Error)
	}
	if !strings.Contains(record.Error, "${[redacted]}") {
		t.Fatalf("expected template placeholder marker, got %q", record.Error)
	}
	if strings.Contains(record.Error, "super-secret") {
		t.Fatalf("expected secret value to be redacted, got %q", record.Error)
	}
	if !strings.Contains(record.Error, `AWS_SECRET_ACCESS_KEY="[redacted]"`) {
		t.Fatalf("expected known secret key redacted, got %q", record.Error)
	}
}

func TestEncodeLaunchRecord(t *testing.T) {
	var out bytes.Buffer
	var errBuf bytes.Buffer

	record := LaunchRecord{
		Timestamp: time.Unix(0, 0),
		Name:      "denied",
		Runtime:   "process",
		Reason:    "Permission denied",
		Code:      "EACCES",
		ExitCode:  126,
	}
	EncodeLaunchRecord(json.NewEncoder(&out), &errBuf, record)

	if errBuf.Len() != 0 {
		t.Fatalf("unexpected stderr output: %s", errBuf.String())
	}

	var decoded map[string]any
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to unmarshal launch record: %v", err)
	}
	if decoded["launched"] != false {
		t.Fatalf("expected launched=false, got %v", decoded["launched"])
	}
	if decoded["code"] != "EACCES" {
		t.Fatalf("expected code EACCES, got %v", decoded["code"])
	}
	if _, ok := decoded["id"]; ok {
		t.Fatalf("expected empty id to be omitted: %s", out.String())
	}
}

func TestFormatLaunchRecord(t *testing.T) {
	tests := []struct {
		name   string
		record LaunchRecord
		want   []string
	}{
		{
			name:   "failed",
			record: LaunchRecord{Name: "missing", Runtime: "process", Reason: "No such file or directory", Code: "ENOENT"},
			want:   []string{"missing", "FAILED", "No such file or directory", "(ENOENT)"},
		},
		{
			name:   "started",
			record: LaunchRecord{Name: "hello", Runtime: "process", Launched: true},
			want:   []string{"hello", "started", "exit=0"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			line := FormatLaunchRecord(tc.record)
			for _, want := range tc.want {
				if !strings.Contains(line, want) {
					t.Fatalf("expected %q in %q", want, line)
				}
			}
		})
	}
}
