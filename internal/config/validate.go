package config

import (
	"fmt"
	"path"

	"github.com/docker/go-connections/nat"

	"github.com/Paintersrp/procguard/internal/resources"
)

// Validate enforces manifest invariants that the schema cannot express.
func (m *Manifest) Validate() error {
	if m.Version == "" {
		return fmt.Errorf("version is required")
	}
	if len(m.Commands) == 0 {
		return fmt.Errorf("at least one command must be defined")
	}
	for _, name := range m.Names() {
		cmd := m.Commands[name]
		if cmd == nil {
			return fmt.Errorf("command %q is null", name)
		}
		switch cmd.Runtime {
		case RuntimeProcess:
			if len(cmd.Command) == 0 || cmd.Command[0] == "" {
				return fmt.Errorf("%s: process commands require an executable", commandField(name, "command"))
			}
			if cmd.Image != "" {
				return fmt.Errorf("%s: only docker commands may set an image", commandField(name, "image"))
			}
			if len(cmd.Ports) > 0 {
				return fmt.Errorf("%s: only docker commands may publish ports", commandField(name, "ports"))
			}
			if cmd.Resources != nil {
				return fmt.Errorf("%s: only docker commands may set resource limits", commandField(name, "resources"))
			}
		case RuntimeDocker:
			if cmd.Image == "" {
				return fmt.Errorf("%s: docker commands require an image", commandField(name, "image"))
			}
			if cmd.Workdir != "" && !path.IsAbs(cmd.Workdir) {
				return fmt.Errorf("%s: container workdir %q must be absolute", commandField(name, "workdir"), cmd.Workdir)
			}
			for idx, spec := range cmd.Ports {
				if _, err := nat.ParsePortSpec(spec); err != nil {
					return fmt.Errorf("%s: invalid port mapping %q: %w", commandField(name, fmt.Sprintf("ports[%d]", idx)), spec, err)
				}
			}
			if res := cmd.Resources; res != nil {
				if _, err := resources.ParseCPU(res.CPU); err != nil {
					return fmt.Errorf("%s: %w", commandField(name, "resources.cpu"), err)
				}
				if _, err := resources.ParseMemory(res.Memory); err != nil {
					return fmt.Errorf("%s: %w", commandField(name, "resources.memory"), err)
				}
			}
		default:
			return fmt.Errorf("%s: unsupported runtime %q", commandField(name, "runtime"), cmd.Runtime)
		}
	}
	return nil
}
