// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package nextcloud triggers Nextcloud file rescans by running occ inside the
// Nextcloud container.
package nextcloud

import (
	"context"
	"errors"
	"strconv"
	"time"

	shellquote "github.com/Hellseher/go-shellquote"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/qbnc/internal/domain"
	"github.com/autobrr/qbnc/pkg/stringutils"
)

const (
	// OCCPath is occ's location in the official Nextcloud image.
	OCCPath = "/var/www/html/occ"
	// ExecUser is the identity occ must run as.
	ExecUser = "www-data"
)

// RescanRequest asks for one directory to be rescanned. Hash is only used
// for log and error context.
type RescanRequest struct {
	Target string
	Path   string
	Hash   string
}

// ExecResult is the outcome of a finished command.
type ExecResult struct {
	ExitCode int
	Output   string
}

// Executor runs commands inside a named, running execution target.
type Executor interface {
	// Resolve returns the ID of the running target called name. It fails with
	// domain.ErrTargetNotFound when no such target is running.
	Resolve(ctx context.Context, name string) (string, error)
	// Exec runs cmd as user inside the target and waits for it to exit.
	Exec(ctx context.Context, id, user string, cmd []string) (ExecResult, error)
}

// Trigger runs occ files:scan for completed torrents.
type Trigger struct {
	executor       Executor
	user           string
	resolveTimeout time.Duration
	scanTimeout    time.Duration
}

func NewTrigger(cfg *domain.Config, executor Executor) *Trigger {
	return &Trigger{
		executor:       executor,
		user:           cfg.IndexUser,
		resolveTimeout: cfg.RequestTimeout,
		scanTimeout:    cfg.ScanTimeout,
	}
}

// ScanCommand returns the argument vector for a rescan of path.
func ScanCommand(path string) []string {
	return []string{OCCPath, "files:scan", "--path", path}
}

// Rescan validates req.Path, resolves the target and runs the scan. The
// command is passed as an argument vector and never through a shell.
func (t *Trigger) Rescan(ctx context.Context, req RescanRequest) error {
	scanPath, err := ScanPath(t.user, req.Path)
	if err != nil {
		return withHash(err, req.Hash)
	}

	resolveCtx, cancelResolve := context.WithTimeout(ctx, t.resolveTimeout)
	id, err := t.executor.Resolve(resolveCtx, req.Target)
	cancelResolve()
	if err != nil {
		if errors.Is(err, domain.ErrTargetNotFound) {
			return withHash(err, req.Hash)
		}
		return domain.NewError(domain.ErrExec, "resolve target", req.Hash, req.Target, err)
	}

	cmd := ScanCommand(scanPath)
	log.Info().
		Str("hash", req.Hash).
		Str("target", req.Target).
		Str("command", shellquote.Join(cmd...)).
		Msg("Rescan command issued")

	scanCtx, cancelScan := context.WithTimeout(ctx, t.scanTimeout)
	defer cancelScan()

	started := time.Now()
	result, err := t.executor.Exec(scanCtx, id, ExecUser, cmd)
	if err != nil {
		return domain.NewError(domain.ErrExec, "exec rescan", req.Hash, scanPath, err)
	}

	if result.ExitCode != 0 {
		return domain.NewError(domain.ErrExec, "exec rescan", req.Hash,
			scanPath+": "+stringutils.Excerpt(result.Output), exitCodeError(result.ExitCode))
	}

	log.Info().
		Str("hash", req.Hash).
		Str("path", scanPath).
		Dur("duration", time.Since(started)).
		Msg("Rescan success")

	return nil
}

type exitCodeError int

func (e exitCodeError) Error() string {
	return "exit status " + strconv.Itoa(int(e))
}

func withHash(err error, hash string) error {
	var domainErr *domain.Error
	if hash != "" && errors.As(err, &domainErr) && domainErr.Hash == "" {
		clone := *domainErr
		clone.Hash = hash
		return &clone
	}
	return err
}
