package runtime

import (
	"context"
	"fmt"
	"io"
	"maps"
	"sort"
)

// Spec describes a command to launch through a runtime backend.
type Spec struct {
	Name    string
	Runtime string
	Command []string
	Env     map[string]string
	Workdir string

	// Image, Ports and the resource limits only apply to container
	// runtimes. CPUs and Memory are textual quantities such as "500m" and
	// "256Mi".
	Image  string
	Ports  []string
	CPUs   string
	Memory string

	Stdout io.Writer
	Stderr io.Writer
}

// Clone returns a copy of the spec that shares no mutable state with s.
func (s Spec) Clone() Spec {
	cp := s
	cp.Command = append([]string(nil), s.Command...)
	cp.Env = maps.Clone(s.Env)
	cp.Ports = append([]string(nil), s.Ports...)
	return cp
}

// EnvList renders the spec environment as sorted KEY=VALUE pairs.
func (s Spec) EnvList() []string {
	env := make([]string, 0, len(s.Env))
	for k, v := range s.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(env)
	return env
}

// Instance is a launched command.
type Instance interface {
	// ID identifies the instance within its runtime: a pid for local
	// processes, a container id for containers.
	ID() string

	// Wait blocks until the instance exits and returns its exit status.
	// A non-zero status is not an error.
	Wait(ctx context.Context) (int, error)
}

// Runtime describes a backend capable of launching commands.
type Runtime interface {
	// Launch starts the command described by spec. When the backend cannot
	// start it the returned error is a *launch.Error and nothing is left
	// running.
	Launch(ctx context.Context, spec Spec) (Instance, error)
}
