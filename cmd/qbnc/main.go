// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		log.Error().Err(err).Msg("qbnc exited with an error")
		os.Exit(1)
	}
}

// NewRootCommand builds the CLI. Running the binary without a subcommand is
// the same as "qbnc run".
func NewRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "qbnc",
		Short:         "Tag completed qBittorrent downloads and rescan them in Nextcloud",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBridge(cmd, configPath, false)
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a TOML config file")

	cmd.AddCommand(RunCommand(&configPath))
	cmd.AddCommand(CheckCommand(&configPath))
	cmd.AddCommand(VersionCommand())

	return cmd
}
