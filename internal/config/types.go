package config

import (
	"maps"
	"sort"

	"github.com/Paintersrp/procguard/internal/runtime"
)

// Supported runtime identifiers.
const (
	RuntimeProcess = "process"
	RuntimeDocker  = "docker"
)

// Manifest mirrors the procguard.yaml document structure.
type Manifest struct {
	Version  string                  `yaml:"version"`
	Defaults Defaults                `yaml:"defaults"`
	Commands map[string]*CommandSpec `yaml:"commands"`

	// Source is the absolute path the manifest was loaded from.
	Source string `yaml:"-"`
}

// Defaults are merged into every command that does not set the field.
type Defaults struct {
	Runtime string            `yaml:"runtime"`
	Workdir string            `yaml:"workdir"`
	Env     map[string]string `yaml:"env"`
}

// CommandSpec describes a single command to launch.
type CommandSpec struct {
	Runtime     string            `yaml:"runtime"`
	Command     []string          `yaml:"command"`
	Env         map[string]string `yaml:"env"`
	EnvFromFile string            `yaml:"envFromFile"`
	Workdir     string            `yaml:"workdir"`
	Image       string            `yaml:"image"`
	Ports       []string          `yaml:"ports"`
	Resources   *Resources        `yaml:"resources"`

	// ResolvedWorkdir is Workdir made absolute against the manifest
	// directory for local processes. Container commands keep Workdir as
	// given since it names a path inside the image.
	ResolvedWorkdir string `yaml:"-"`
}

// Resources caps what a container may use.
type Resources struct {
	CPU    string `yaml:"cpu"`
	Memory string `yaml:"memory"`
}

// Clone creates a deep copy of the command spec.
func (c *CommandSpec) Clone() *CommandSpec {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Command = append([]string(nil), c.Command...)
	cp.Env = maps.Clone(c.Env)
	cp.Ports = append([]string(nil), c.Ports...)
	if c.Resources != nil {
		res := *c.Resources
		cp.Resources = &res
	}
	return &cp
}

// Names returns command names sorted alphabetically.
func (m *Manifest) Names() []string {
	out := make([]string, 0, len(m.Commands))
	for name := range m.Commands {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Spec converts the named command into a runtime launch spec. The second
// return value is false when the manifest has no such command.
func (m *Manifest) Spec(name string) (runtime.Spec, bool) {
	cmd, ok := m.Commands[name]
	if !ok || cmd == nil {
		return runtime.Spec{}, false
	}
	workdir := cmd.ResolvedWorkdir
	if cmd.Runtime == RuntimeDocker {
		workdir = cmd.Workdir
	}
	spec := runtime.Spec{
		Name:    name,
		Runtime: cmd.Runtime,
		Command: append([]string(nil), cmd.Command...),
		Env:     maps.Clone(cmd.Env),
		Workdir: workdir,
		Image:   cmd.Image,
		Ports:   append([]string(nil), cmd.Ports...),
	}
	if cmd.Resources != nil {
		spec.CPUs = cmd.Resources.CPU
		spec.Memory = cmd.Resources.Memory
	}
	return spec, true
}
