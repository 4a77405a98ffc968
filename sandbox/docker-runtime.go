package sandbox

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

// Spec describes one sandbox container to launch.
type Spec struct {
	Image      string
	Name       string
	Env        []string
	Binds      []string // "hostPath:containerPath[:ro]"
	MemLimitMB int
	Port       int // live-stream port, bound host<->container when > 0
	AutoRemove bool
}

// DockerRuntime is a thin wrapper over the docker engine API covering
// exactly what match and compiler sandboxes need.
type DockerRuntime struct {
	cli *client.Client
}

func NewDockerRuntime() (*DockerRuntime, error) {
	cli, err := client.NewClientWithOpts(
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &DockerRuntime{cli: cli}, nil
}

// ListNames returns the names of all containers the engine tracks,
// including stopped ones that have not been removed yet.
func (d *DockerRuntime) ListNames(ctx context.Context) ([]string, error) {
	containers, err := d.cli.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}
	var names []string
	for _, c := range containers {
		for _, name := range c.Names {
			names = append(names, strings.TrimPrefix(name, "/"))
		}
	}
	return names, nil
}

func (d *DockerRuntime) Count(ctx context.Context) (int, error) {
	containers, err := d.cli.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return 0, fmt.Errorf("list containers: %w", err)
	}
	return len(containers), nil
}

// Run creates and starts a container per spec and returns its id.
func (d *DockerRuntime) Run(ctx context.Context, spec Spec) (string, error) {
	cfg := &container.Config{
		Image: spec.Image,
		Env:   spec.Env,
	}
	hostCfg := &container.HostConfig{
		Binds:      spec.Binds,
		AutoRemove: spec.AutoRemove,
		Resources: container.Resources{
			Memory:     int64(spec.MemLimitMB) << 20,
			MemorySwap: int64(spec.MemLimitMB) << 20,
		},
	}
	if spec.Port > 0 {
		port := nat.Port(fmt.Sprintf("%d/tcp", spec.Port))
		cfg.ExposedPorts = nat.PortSet{port: struct{}{}}
		hostCfg.PortBindings = nat.PortMap{
			port: []nat.PortBinding{{
				HostIP:   "0.0.0.0",
				HostPort: strconv.Itoa(spec.Port),
			}},
		}
	}

	resp, err := d.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, spec.Name)
	if err != nil {
		return "", fmt.Errorf("create container %s: %w", spec.Name, err)
	}
	if err := d.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", fmt.Errorf("start container %s: %w", spec.Name, err)
	}
	return resp.ID, nil
}

func (d *DockerRuntime) Stop(ctx context.Context, id string) error {
	if err := d.cli.ContainerStop(ctx, id, container.StopOptions{}); err != nil {
		return fmt.Errorf("stop container %s: %w", id, err)
	}
	return nil
}

// OnExit invokes fn once the container leaves the running state, from
// a dedicated goroutine. fn runs exactly once, also when the wait
// itself fails (the container is gone either way).
func (d *DockerRuntime) OnExit(id string, fn func()) {
	go func() {
		statusCh, errCh := d.cli.ContainerWait(
			context.Background(), id, container.WaitConditionNotRunning)
		select {
		case <-statusCh:
		case <-errCh:
		}
		fn()
	}()
}
