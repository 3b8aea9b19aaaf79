package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"syscall"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/strslice"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/Paintersrp/procguard/internal/launch"
	"github.com/Paintersrp/procguard/internal/resources"
	"github.com/Paintersrp/procguard/internal/runtime"
)

func init() {
	runtime.Register("docker", New)
}

// apiClient is the subset of the Docker API used to launch containers.
type apiClient interface {
	ImageInspectWithRaw(ctx context.Context, imageID string) (types.ImageInspect, []byte, error)
	ImagePull(ctx context.Context, ref string, options types.ImagePullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options types.ContainerStartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerLogs(ctx context.Context, containerID string, options types.ContainerLogsOptions) (io.ReadCloser, error)
	ContainerRemove(ctx context.Context, containerID string, options types.ContainerRemoveOptions) error
}

type runtimeImpl struct {
	client     apiClient
	clientOnce sync.Once
	clientErr  error
}

// New returns a Docker backed runtime implementation.
func New() runtime.Runtime {
	return &runtimeImpl{}
}

func newWithClient(cli apiClient) *runtimeImpl {
	r := &runtimeImpl{client: cli}
	r.clientOnce.Do(func() {})
	return r
}

func (r *runtimeImpl) getClient() (apiClient, error) {
	r.clientOnce.Do(func() {
		cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
		if err != nil {
			r.clientErr = err
			return
		}
		r.client = cli
	})
	return r.client, r.clientErr
}

func (r *runtimeImpl) Launch(ctx context.Context, spec runtime.Spec) (runtime.Instance, error) {
	if spec.Image == "" {
		return nil, fmt.Errorf("docker runtime for command %s requires an image", spec.Name)
	}
	containerCfg, hostCfg, err := buildConfigs(spec)
	if err != nil {
		return nil, err
	}

	cli, err := r.getClient()
	if err != nil {
		return nil, launch.NewError(spec.Image, "connect", launch.DomainDocker, 0, fmt.Errorf("create docker client: %w", err))
	}

	if err := ensureImage(ctx, cli, spec.Image); err != nil {
		return nil, launch.NewError(spec.Image, "pull", launch.DomainDocker, 0, err)
	}

	created, err := cli.ContainerCreate(ctx, containerCfg, hostCfg, &network.NetworkingConfig{}, nil, "")
	if err != nil {
		return nil, launch.NewError(spec.Image, "create", launch.DomainDocker, 0, fmt.Errorf("container create: %w", err))
	}

	// Subscribe before starting so a container that exits immediately is
	// not missed.
	waitCtx, waitCancel := context.WithCancel(context.Background())
	statusCh, errCh := cli.ContainerWait(waitCtx, created.ID, container.WaitConditionNextExit)

	if err := cli.ContainerStart(ctx, created.ID, types.ContainerStartOptions{}); err != nil {
		waitCancel()
		_ = cli.ContainerRemove(context.Background(), created.ID, types.ContainerRemoveOptions{Force: true})
		return nil, launch.NewError(spec.Image, "start", launch.DomainDocker, classifyStartError(err), fmt.Errorf("container start: %w", err))
	}

	inst := &dockerInstance{
		cli:         cli,
		containerID: created.ID,
		cancelWait:  waitCancel,
		waitDone:    make(chan struct{}),
	}
	go inst.run(ctx, spec, statusCh, errCh)
	return inst, nil
}

// classifyStartError maps the OCI runtime's messages onto errno values, the
// same split the docker CLI uses for its 127 and 126 exit codes.
func classifyStartError(err error) syscall.Errno {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "executable file not found"),
		strings.Contains(msg, "no such file or directory"):
		return syscall.ENOENT
	case strings.Contains(msg, "permission denied"):
		return syscall.EACCES
	default:
		return 0
	}
}

// dockerInstance is removed once it exits, when the launch context ends, or
// when a caller stops waiting on it, mirroring exec.CommandContext for local
// processes.
type dockerInstance struct {
	cli         apiClient
	containerID string
	cancelWait  context.CancelFunc

	removeOnce sync.Once
	removeErr  error

	waitDone chan struct{}
	exitCode int
	waitErr  error
}

func (i *dockerInstance) ID() string {
	return i.containerID
}

func (i *dockerInstance) run(ctx context.Context, spec runtime.Spec, statusCh <-chan container.WaitResponse, errCh <-chan error) {
	defer close(i.waitDone)
	defer i.cancelWait()

	logsDone := i.streamLogs(spec.Stdout, spec.Stderr)

	select {
	case err := <-errCh:
		i.exitCode = -1
		i.waitErr = fmt.Errorf("container wait: %w", err)
	case resp := <-statusCh:
		i.exitCode = int(resp.StatusCode)
		if resp.Error != nil && resp.Error.Message != "" {
			i.waitErr = errors.New(resp.Error.Message)
		}
	case <-ctx.Done():
		i.exitCode = -1
		i.waitErr = ctx.Err()
		// The log stream follows the container and only ends once it is gone.
		_ = i.remove()
	}
	<-logsDone

	if err := i.remove(); err != nil && i.waitErr == nil {
		i.waitErr = err
	}
}

// remove force-removes the container. Only the first call reaches the daemon.
func (i *dockerInstance) remove() error {
	i.removeOnce.Do(func() {
		err := i.cli.ContainerRemove(context.Background(), i.containerID, types.ContainerRemoveOptions{Force: true})
		if err != nil && !client.IsErrNotFound(err) {
			i.removeErr = fmt.Errorf("container remove: %w", err)
		}
	})
	return i.removeErr
}

func (i *dockerInstance) streamLogs(stdout, stderr io.Writer) <-chan struct{} {
	done := make(chan struct{})
	if stdout == nil && stderr == nil {
		close(done)
		return done
	}
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	go func() {
		defer close(done)
		reader, err := i.cli.ContainerLogs(context.Background(), i.containerID, types.ContainerLogsOptions{
			ShowStdout: true,
			ShowStderr: true,
			Follow:     true,
		})
		if err != nil {
			return
		}
		defer reader.Close()
		_, _ = stdcopy.StdCopy(stdout, stderr, reader)
	}()
	return done
}

func (i *dockerInstance) Wait(ctx context.Context) (int, error) {
	select {
	case <-i.waitDone:
		return i.exitCode, i.waitErr
	case <-ctx.Done():
		i.cancelWait()
		_ = i.remove()
		return -1, ctx.Err()
	}
}

func ensureImage(ctx context.Context, cli apiClient, imageName string) error {
	_, _, err := cli.ImageInspectWithRaw(ctx, imageName)
	if err == nil {
		return nil
	}
	if !client.IsErrNotFound(err) {
		return fmt.Errorf("inspect image: %w", err)
	}
	reader, err := cli.ImagePull(ctx, imageName, types.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("pull image: %w", err)
	}
	defer reader.Close()
	_, _ = io.Copy(io.Discard, reader)
	return nil
}

func buildConfigs(spec runtime.Spec) (*container.Config, *container.HostConfig, error) {
	exposed := nat.PortSet{}
	bindings := nat.PortMap{}
	for _, portSpec := range spec.Ports {
		mappings, err := nat.ParsePortSpec(portSpec)
		if err != nil {
			return nil, nil, fmt.Errorf("parse port %q: %w", portSpec, err)
		}
		for _, mapping := range mappings {
			exposed[mapping.Port] = struct{}{}
			bindings[mapping.Port] = append(bindings[mapping.Port], mapping.Binding)
		}
	}

	var cmd strslice.StrSlice
	if len(spec.Command) > 0 {
		cmd = strslice.StrSlice(append([]string(nil), spec.Command...))
	}

	config := &container.Config{
		Image:        spec.Image,
		Env:          spec.EnvList(),
		Cmd:          cmd,
		WorkingDir:   spec.Workdir,
		ExposedPorts: exposed,
	}
	limits, err := resources.Parse(spec.CPUs, spec.Memory)
	if err != nil {
		return nil, nil, err
	}
	host := &container.HostConfig{
		PortBindings: bindings,
		Resources: container.Resources{
			NanoCPUs: limits.NanoCPUs,
			Memory:   limits.MemoryBytes,
		},
	}
	return config, host, nil
}
