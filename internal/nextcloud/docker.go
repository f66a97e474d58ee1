// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package nextcloud

import (
	"bytes"
	"context"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/qbnc/internal/domain"
)

// execPollInterval is how often a finished stream is checked for its exit code.
const execPollInterval = 100 * time.Millisecond

type dockerAPI interface {
	ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error)
	ContainerExecCreate(ctx context.Context, containerID string, options container.ExecOptions) (types.IDResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, options container.ExecAttachOptions) (types.HijackedResponse, error)
	ContainerExecInspect(ctx context.Context, execID string) (container.ExecInspect, error)
	Close() error
}

// DockerExecutor runs commands in containers through the local Docker daemon.
type DockerExecutor struct {
	api dockerAPI
}

// NewDockerExecutor connects using the standard DOCKER_HOST family of
// environment variables and negotiates the API version with the daemon.
func NewDockerExecutor() (*DockerExecutor, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, errors.Wrap(err, "could not create docker client")
	}

	return &DockerExecutor{api: cli}, nil
}

func (d *DockerExecutor) Close() error {
	return d.api.Close()
}

func (d *DockerExecutor) Resolve(ctx context.Context, name string) (string, error) {
	info, err := d.api.ContainerInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return "", domain.NewError(domain.ErrTargetNotFound, "resolve target", "", name, nil)
		}
		return "", errors.Wrapf(err, "inspect container %s", name)
	}

	if info.ContainerJSONBase == nil || info.State == nil || !info.State.Running {
		return "", domain.NewError(domain.ErrTargetNotFound, "resolve target", "", name+" is not running", nil)
	}

	log.Trace().Str("container", name).Str("id", info.ID).Msg("Resolved exec target")

	return info.ID, nil
}

func (d *DockerExecutor) Exec(ctx context.Context, id, user string, cmd []string) (ExecResult, error) {
	created, err := d.api.ContainerExecCreate(ctx, id, container.ExecOptions{
		User:         user,
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return ExecResult{}, errors.Wrap(err, "create exec")
	}

	attached, err := d.api.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return ExecResult{}, errors.Wrap(err, "attach exec")
	}
	defer attached.Close()

	var output bytes.Buffer
	copyDone := make(chan error, 1)
	go func() {
		_, copyErr := stdcopy.StdCopy(&output, &output, attached.Reader)
		copyDone <- copyErr
	}()

	select {
	case <-ctx.Done():
		return ExecResult{}, errors.Wrap(ctx.Err(), "read exec output")
	case err := <-copyDone:
		if err != nil {
			return ExecResult{}, errors.Wrap(err, "read exec output")
		}
	}

	for {
		inspect, err := d.api.ContainerExecInspect(ctx, created.ID)
		if err != nil {
			return ExecResult{}, errors.Wrap(err, "inspect exec")
		}
		if !inspect.Running {
			return ExecResult{ExitCode: inspect.ExitCode, Output: output.String()}, nil
		}

		select {
		case <-ctx.Done():
			return ExecResult{}, errors.Wrap(ctx.Err(), "wait for exec")
		case <-time.After(execPollInterval):
		}
	}
}
