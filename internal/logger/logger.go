// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package logger configures the global zerolog logger.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/autobrr/qbnc/internal/domain"
)

// ParseLevel accepts zerolog level names as well as the WARNING and CRITICAL
// spellings older deployments use. Unknown levels fall back to info.
func ParseLevel(level string) (zerolog.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "TRACE":
		return zerolog.TraceLevel, true
	case "DEBUG":
		return zerolog.DebugLevel, true
	case "INFO", "":
		return zerolog.InfoLevel, true
	case "WARN", "WARNING":
		return zerolog.WarnLevel, true
	case "ERROR":
		return zerolog.ErrorLevel, true
	case "CRITICAL", "FATAL":
		return zerolog.FatalLevel, true
	default:
		return zerolog.InfoLevel, false
	}
}

// Setup points the global logger at stdout and, when LogPath is set, a rotated
// log file. The returned closer flushes the file writer.
func Setup(cfg *domain.Config) (io.Closer, error) {
	return setup(cfg, os.Stdout)
}

func setup(cfg *domain.Config, stdout io.Writer) (io.Closer, error) {
	level, known := ParseLevel(cfg.LogLevel)
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var console io.Writer = stdout
	if f, ok := stdout.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		console = zerolog.ConsoleWriter{Out: f, TimeFormat: time.RFC3339}
	}

	writers := []io.Writer{console}
	var closer io.Closer = nopCloser{}

	if cfg.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0o755); err != nil {
			return nil, err
		}
		rotating := &lumberjack.Logger{
			Filename:   cfg.LogPath,
			MaxSize:    cfg.LogMaxSize,
			MaxBackups: cfg.LogMaxBackups,
		}
		writers = append(writers, rotating)
		closer = rotating
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()

	if !known {
		log.Warn().Str("logLevel", cfg.LogLevel).Msg("Unknown log level, defaulting to INFO")
	}

	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
