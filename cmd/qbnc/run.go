// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/autobrr/qbnc/internal/buildinfo"
	"github.com/autobrr/qbnc/internal/config"
	"github.com/autobrr/qbnc/internal/domain"
	"github.com/autobrr/qbnc/internal/logger"
	"github.com/autobrr/qbnc/internal/metrics"
	"github.com/autobrr/qbnc/internal/nextcloud"
	"github.com/autobrr/qbnc/internal/poller"
	"github.com/autobrr/qbnc/internal/qbittorrent"
	"github.com/autobrr/qbnc/internal/reporting"
)

const shutdownTimeout = 5 * time.Second

var dotEnvFiles = []string{".env.local", ".env"}

func RunCommand(configPath *string) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Poll qBittorrent and trigger Nextcloud rescans until stopped",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBridge(cmd, *configPath, once)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Run a single poll cycle and exit")

	return cmd
}

// bootstrap loads configuration and sets up logging. The returned closer
// must be closed on exit.
func bootstrap(configPath string) (*config.AppConfig, io.Closer, error) {
	if err := config.LoadDotEnv(dotEnvFiles...); err != nil {
		return nil, nil, err
	}

	cfg, err := config.New(configPath)
	if err != nil {
		return nil, nil, err
	}

	logCloser, err := logger.Setup(cfg.Config)
	if err != nil {
		return nil, nil, err
	}

	for _, env := range config.LegacyEnvInUse() {
		log.Warn().Str("env", env).Msg("Deprecated environment variable in use, switch to the new name")
	}

	log.Info().
		Str("version", buildinfo.Version).
		Str("commit", buildinfo.Commit).
		Str("userAgent", buildinfo.UserAgent).
		Msg("Starting qbnc")
	log.Debug().Interface("config", cfg.Config.Redacted()).Msg("Loaded configuration")

	return cfg, logCloser, nil
}

func newController(cfg *domain.Config, executor nextcloud.Executor) *poller.Controller {
	return poller.NewController(
		cfg,
		qbittorrent.NewAuthenticator(cfg),
		qbittorrent.NewCompletionDetector(cfg),
		qbittorrent.NewCompletionMarker(cfg),
		nextcloud.NewTrigger(cfg, executor),
	)
}

func runBridge(cmd *cobra.Command, configPath string, once bool) error {
	appCfg, logCloser, err := bootstrap(configPath)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	cfg := appCfg.Config

	reporter, err := reporting.New(cfg.SentryDSN)
	if err != nil {
		return err
	}
	defer reporter.Flush()

	executor, err := nextcloud.NewDockerExecutor()
	if err != nil {
		reporter.Capture(err, map[string]string{"op": "startup"})
		return err
	}
	defer executor.Close()

	controller := newController(cfg, executor)
	controller.SetReporter(reporter)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if once {
		result, err := controller.RunOnce(ctx)
		if err != nil {
			return err
		}
		log.Info().
			Str("cycle", result.ID).
			Int("found", result.Found).
			Int("processed", result.Processed).
			Int("failed", result.Failed).
			Int("dropped", result.Dropped).
			Msg("Single poll finished")
		if result.Failed > 0 {
			return errors.Errorf("%d torrent(s) failed", result.Failed)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.MetricsEnabled {
		manager := metrics.NewManager(controller)
		controller.SetRecorder(manager)

		server := metrics.NewMetricsServer(manager, cfg.MetricsHost, cfg.MetricsPort, cfg.MetricsBasicAuthUsers)
		g.Go(server.ListenAndServe)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		if err := controller.Run(gctx); err != nil {
			reporter.Capture(err, map[string]string{"op": "startup", "kind": domain.KindOf(err)})
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info().Msg("Shutdown complete")
	return nil
}
