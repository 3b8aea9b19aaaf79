package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"github.com/Paintersrp/procguard/internal/launch"
	"github.com/Paintersrp/procguard/internal/runtime"
)

func init() {
	runtime.Register("process", New)
}

type runtimeImpl struct{}

// New constructs a runtime that launches commands as local processes.
func New() runtime.Runtime {
	return &runtimeImpl{}
}

func (r *runtimeImpl) Launch(ctx context.Context, spec runtime.Spec) (runtime.Instance, error) {
	cmd, err := buildCommand(ctx, spec)
	if err != nil {
		return nil, err
	}
	if err := launch.Start(cmd); err != nil {
		return nil, err
	}

	inst := &processInstance{
		name:     spec.Name,
		cmd:      cmd,
		waitDone: make(chan struct{}),
	}
	go inst.wait()
	return inst, nil
}

func buildCommand(ctx context.Context, spec runtime.Spec) (*exec.Cmd, error) {
	if len(spec.Command) == 0 {
		return nil, fmt.Errorf("process runtime for command %s requires a command", spec.Name)
	}

	cmd := exec.CommandContext(ctx, spec.Command[0], spec.Command[1:]...)
	cmd.Dir = spec.Workdir

	env := os.Environ()
	if len(spec.Env) > 0 {
		env = append(env, spec.EnvList()...)
	}
	cmd.Env = env

	cmd.Stdout = spec.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = io.Discard
	}
	cmd.Stderr = spec.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = io.Discard
	}

	configureCmdSysProcAttr(cmd)
	return cmd, nil
}

type processInstance struct {
	name string
	cmd  *exec.Cmd

	waitDone chan struct{}
	exitCode int
	waitErr  error
}

func (p *processInstance) ID() string {
	return strconv.Itoa(p.cmd.Process.Pid)
}

func (p *processInstance) wait() {
	defer close(p.waitDone)
	err := p.cmd.Wait()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		p.exitCode = exitErr.ExitCode()
	default:
		p.exitCode = -1
		p.waitErr = fmt.Errorf("wait for command %s: %w", p.name, err)
	}
}

func (p *processInstance) Wait(ctx context.Context) (int, error) {
	select {
	case <-p.waitDone:
		return p.exitCode, p.waitErr
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}
