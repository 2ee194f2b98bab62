package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	derrors "git.home.luguber.info/inful/pkgdocs/internal/errors"
	"git.home.luguber.info/inful/pkgdocs/internal/logfields"
)

// execAPI is the subset of the Docker client used by Docker.
type execAPI interface {
	ContainerExecCreate(ctx context.Context, container string, config types.ExecConfig) (types.IDResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, config types.ExecStartCheck) (types.HijackedResponse, error)
	ContainerExecInspect(ctx context.Context, execID string) (types.ContainerExecInspect, error)
}

// Docker runs commands in a running container through the exec API.
type Docker struct {
	Container string
	User      string
	Timeout   time.Duration

	api execAPI
}

// NewDocker connects to the Docker daemon from the environment and verifies it responds.
func NewDocker(ctx context.Context, container, user string, timeout time.Duration) (*Docker, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}
	if _, err := cli.Ping(ctx); err != nil {
		return nil, fmt.Errorf("docker daemon not accessible: %w", err)
	}
	return &Docker{Container: container, User: user, Timeout: timeout, api: cli}, nil
}

// ExecConfig returns the exec request used for cmd.
func (d *Docker) ExecConfig(cmd Command) types.ExecConfig {
	return types.ExecConfig{
		User:         d.User,
		Env:          cmd.EnvList(),
		WorkingDir:   "/home/" + d.User,
		AttachStdout: true,
		AttachStderr: true,
		Cmd:          []string{"sh", "-lc", cmd.Script},
	}
}

// Run executes cmd and returns its demultiplexed output.
func (d *Docker) Run(ctx context.Context, cmd Command) (Result, error) {
	ctx, cancel, timedOut := withTimeout(ctx, d.Timeout)
	defer cancel()

	slog.Debug("Sandbox exec", logfields.Backend("docker"), logfields.Container(d.Container), logfields.Script(cmd.Script))

	created, err := d.api.ContainerExecCreate(ctx, d.Container, d.ExecConfig(cmd))
	if err != nil {
		return Result{}, derrors.SandboxError(cmd.Script, fmt.Errorf("exec create: %w", err))
	}
	attached, err := d.api.ContainerExecAttach(ctx, created.ID, types.ExecStartCheck{})
	if err != nil {
		return Result{}, derrors.SandboxError(cmd.Script, fmt.Errorf("exec attach: %w", err))
	}
	defer attached.Close()

	var out bytes.Buffer
	done := make(chan error, 1)
	go func() {
		_, copyErr := stdcopy.StdCopy(&out, &out, attached.Reader)
		done <- copyErr
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		attached.Close()
		<-done
		if timedOut() {
			return Result{Output: timeoutOutput(out.String(), d.Timeout)}, nil
		}
		return Result{Output: out.String()}, derrors.SandboxError(cmd.Script, ctx.Err())
	}
	if err != nil {
		return Result{Output: out.String()}, derrors.SandboxError(cmd.Script, fmt.Errorf("read exec output: %w", err))
	}

	inspect, err := d.api.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return Result{Output: out.String()}, derrors.SandboxError(cmd.Script, fmt.Errorf("exec inspect: %w", err))
	}
	return Result{Output: out.String(), Success: inspect.ExitCode == 0}, nil
}
