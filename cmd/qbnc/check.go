// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/autobrr/qbnc/internal/nextcloud"
	"github.com/autobrr/qbnc/internal/qbittorrent"
)

// CheckCommand validates configuration and connectivity without tagging or
// rescanning anything.
func CheckCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate configuration, qBittorrent login and the Nextcloud container",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appCfg, logCloser, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer logCloser.Close()

			cfg := appCfg.Config
			ctx := cmd.Context()

			auth := qbittorrent.NewAuthenticator(cfg)
			session, err := auth.Acquire(ctx)
			if err != nil {
				return err
			}
			version, err := auth.Verify(ctx, session)
			if err != nil {
				return err
			}
			cmd.Printf("qBittorrent: ok (WebAPI %s)\n", version)

			executor, err := nextcloud.NewDockerExecutor()
			if err != nil {
				return err
			}
			defer executor.Close()

			resolveCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
			defer cancel()

			id, err := executor.Resolve(resolveCtx, cfg.IndexExecTargetName)
			if err != nil {
				return err
			}

			scanPath, err := nextcloud.ScanPath(cfg.IndexUser, cfg.IndexRelPath)
			if err != nil {
				return err
			}

			cmd.Printf("Nextcloud container: ok (%s is %.12s)\n", cfg.IndexExecTargetName, id)
			cmd.Printf("Rescan path: %s\n", scanPath)

			return nil
		},
	}
}
