// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package config builds the immutable domain.Config from environment
// variables, an optional TOML file and a .env file.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/autobrr/qbnc/internal/buildinfo"
	"github.com/autobrr/qbnc/internal/domain"
)

const (
	DefaultPollInterval   = 15 * time.Second
	DefaultWakeInterval   = time.Second
	DefaultSessionMaxAge  = 55 * time.Minute
	DefaultRequestTimeout = 30 * time.Second
	DefaultScanTimeout    = 10 * time.Minute
	DefaultMetricsPort    = 9074
)

// envBindings maps each config key to the environment variables that set it,
// in precedence order. The second name, where present, is the one used by
// earlier qbnc releases.
var envBindings = map[string][]string{
	"downloadClientUrl":       {"DOWNLOAD_CLIENT_URL", "QBITTORRENT_URL"},
	"downloadClientUsername":  {"DOWNLOAD_CLIENT_USERNAME", "QBITTORRENT_USERNAME"},
	"downloadClientPassword":  {"DOWNLOAD_CLIENT_PASSWORD", "QBITTORRENT_PASSWORD"},
	"downloadClientBasicUser": {"DOWNLOAD_CLIENT_BASIC_USER"},
	"downloadClientBasicPass": {"DOWNLOAD_CLIENT_BASIC_PASS"},
	"doneTag":                 {"DONE_TAG", "QBITTORRENT_DONE_TAG"},
	"indexUser":               {"INDEX_USER", "NEXTCLOUD_USER"},
	"indexRelPath":            {"INDEX_REL_PATH", "NEXTCLOUD_REL_PATH"},
	"indexExecTargetName":     {"INDEX_EXEC_TARGET_NAME", "NEXTCLOUD_CONTAINER_NAME"},
	"indexScanScope":          {"INDEX_SCAN_SCOPE"},
	"pollInterval":            {"POLL_INTERVAL"},
	"wakeInterval":            {"WAKE_INTERVAL"},
	"sessionMaxAge":           {"SESSION_MAX_AGE"},
	"requestTimeout":          {"REQUEST_TIMEOUT"},
	"scanTimeout":             {"SCAN_TIMEOUT"},
	"logLevel":                {"LOG_LEVEL"},
	"logPath":                 {"LOG_PATH"},
	"logMaxSize":              {"LOG_MAX_SIZE"},
	"logMaxBackups":           {"LOG_MAX_BACKUPS"},
	"metricsEnabled":          {"METRICS_ENABLED"},
	"metricsHost":             {"METRICS_HOST"},
	"metricsPort":             {"METRICS_PORT"},
	"metricsBasicAuthUsers":   {"METRICS_BASIC_AUTH_USERS"},
	"sentryDsn":               {"SENTRY_DSN"},
}

// AppConfig holds the loaded configuration and where it came from.
type AppConfig struct {
	Config     *domain.Config
	ConfigPath string
}

// New loads configuration. configPath may be empty, in which case a
// config.toml in the default config directory is used when present.
// Environment variables always win over file values.
func New(configPath string) (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, pkgerrors.Wrapf(err, "could not bind env for %s", key)
		}
	}

	if configPath == "" {
		candidate := filepath.Join(getDefaultConfigDir(), "config.toml")
		if _, err := os.Stat(candidate); err == nil {
			configPath = candidate
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, domain.NewError(domain.ErrConfig, "read config", "", configPath, err)
		}
	}

	cfg := &domain.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, domain.NewError(domain.ErrConfig, "decode config", "", "", err)
	}

	cfg.Version = buildinfo.Version
	cfg.DownloadClientURL = normalizeURL(cfg.DownloadClientURL)
	cfg.IndexScanScope = domain.ScanScope(strings.ToLower(strings.TrimSpace(string(cfg.IndexScanScope))))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &AppConfig{
		Config:     cfg,
		ConfigPath: configPath,
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("indexScanScope", string(domain.ScanScopeRoot))
	v.SetDefault("pollInterval", DefaultPollInterval)
	v.SetDefault("wakeInterval", DefaultWakeInterval)
	v.SetDefault("sessionMaxAge", DefaultSessionMaxAge)
	v.SetDefault("requestTimeout", DefaultRequestTimeout)
	v.SetDefault("scanTimeout", DefaultScanTimeout)
	v.SetDefault("logLevel", "INFO")
	v.SetDefault("logMaxSize", 50)
	v.SetDefault("logMaxBackups", 3)
	v.SetDefault("metricsEnabled", false)
	v.SetDefault("metricsHost", "127.0.0.1")
	v.SetDefault("metricsPort", DefaultMetricsPort)
}

// normalizeURL prepends http:// when the download client URL has no scheme.
func normalizeURL(raw string) string {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return raw
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}

	log.Warn().Msg("downloadClientUrl doesn't specify a protocol, defaulting to plain http")
	return "http://" + raw
}

// getDefaultConfigDir returns the directory searched for config.toml when no
// explicit path is given. Docker images set XDG_CONFIG_HOME=/config.
func getDefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg == "/config" {
		return xdg
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "qbnc")
	}
	return "."
}

// LoadDotEnv loads the given .env files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return pkgerrors.Wrapf(err, "could not load %s", path)
		}
		log.Debug().Str("path", path).Msg("Loaded environment file")
	}
	return nil
}

// LegacyEnvInUse returns the pre-rename environment variables that are set
// while their current counterpart is not.
func LegacyEnvInUse() []string {
	var legacy []string
	for _, envs := range envBindings {
		if len(envs) < 2 {
			continue
		}
		if os.Getenv(envs[0]) != "" {
			continue
		}
		if os.Getenv(envs[1]) != "" {
			legacy = append(legacy, envs[1])
		}
	}
	sort.Strings(legacy)
	return legacy
}
