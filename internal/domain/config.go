// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import (
	"fmt"
	"strings"
	"time"
)

// ScanScope selects which directory is rescanned for a completed torrent.
type ScanScope string

const (
	// ScanScopeRoot rescans the configured relative path for every torrent.
	ScanScopeRoot ScanScope = "root"
	// ScanScopeItem rescans the torrent's own directory below the relative path.
	ScanScopeItem ScanScope = "item"
)

// RemoteSessionExpiry is how long qBittorrent keeps a WebUI session alive.
const RemoteSessionExpiry = 60 * time.Minute

// Config represents the application configuration
type Config struct {
	Version string

	DownloadClientURL       string `toml:"downloadClientUrl" mapstructure:"downloadClientUrl"`
	DownloadClientUsername  string `toml:"downloadClientUsername" mapstructure:"downloadClientUsername"`
	DownloadClientPassword  string `toml:"downloadClientPassword" mapstructure:"downloadClientPassword"`
	DownloadClientBasicUser string `toml:"downloadClientBasicUser" mapstructure:"downloadClientBasicUser"`
	DownloadClientBasicPass string `toml:"downloadClientBasicPass" mapstructure:"downloadClientBasicPass"`
	DoneTag                 string `toml:"doneTag" mapstructure:"doneTag"`

	IndexUser           string    `toml:"indexUser" mapstructure:"indexUser"`
	IndexRelPath        string    `toml:"indexRelPath" mapstructure:"indexRelPath"`
	IndexExecTargetName string    `toml:"indexExecTargetName" mapstructure:"indexExecTargetName"`
	IndexScanScope      ScanScope `toml:"indexScanScope" mapstructure:"indexScanScope"`

	PollInterval   time.Duration `toml:"pollInterval" mapstructure:"pollInterval"`
	WakeInterval   time.Duration `toml:"wakeInterval" mapstructure:"wakeInterval"`
	SessionMaxAge  time.Duration `toml:"sessionMaxAge" mapstructure:"sessionMaxAge"`
	RequestTimeout time.Duration `toml:"requestTimeout" mapstructure:"requestTimeout"`
	ScanTimeout    time.Duration `toml:"scanTimeout" mapstructure:"scanTimeout"`

	LogLevel      string `toml:"logLevel" mapstructure:"logLevel"`
	LogPath       string `toml:"logPath" mapstructure:"logPath"`
	LogMaxSize    int    `toml:"logMaxSize" mapstructure:"logMaxSize"`
	LogMaxBackups int    `toml:"logMaxBackups" mapstructure:"logMaxBackups"`

	MetricsEnabled        bool   `toml:"metricsEnabled" mapstructure:"metricsEnabled"`
	MetricsHost           string `toml:"metricsHost" mapstructure:"metricsHost"`
	MetricsPort           int    `toml:"metricsPort" mapstructure:"metricsPort"`
	MetricsBasicAuthUsers string `toml:"metricsBasicAuthUsers" mapstructure:"metricsBasicAuthUsers"`

	SentryDSN string `toml:"sentryDsn" mapstructure:"sentryDsn"`
}

// RequiredKeys lists the settings that must be present for the bridge to start.
var RequiredKeys = []string{
	"downloadClientUrl",
	"downloadClientUsername",
	"downloadClientPassword",
	"doneTag",
	"indexUser",
	"indexRelPath",
	"indexExecTargetName",
}

// Validate checks required settings and timing invariants. Every problem is
// reported, not just the first.
func (c *Config) Validate() error {
	var problems []string

	required := map[string]string{
		"downloadClientUrl":      c.DownloadClientURL,
		"downloadClientUsername": c.DownloadClientUsername,
		"downloadClientPassword": c.DownloadClientPassword,
		"doneTag":                c.DoneTag,
		"indexUser":              c.IndexUser,
		"indexRelPath":           c.IndexRelPath,
		"indexExecTargetName":    c.IndexExecTargetName,
	}
	for _, key := range RequiredKeys {
		if strings.TrimSpace(required[key]) == "" {
			problems = append(problems, fmt.Sprintf("missing required setting %s", key))
		}
	}

	if strings.Contains(c.DoneTag, ",") {
		problems = append(problems, "doneTag must not contain a comma")
	}

	switch c.IndexScanScope {
	case ScanScopeRoot, ScanScopeItem:
	default:
		problems = append(problems, fmt.Sprintf("indexScanScope must be %q or %q, got %q", ScanScopeRoot, ScanScopeItem, c.IndexScanScope))
	}

	if c.PollInterval <= 0 {
		problems = append(problems, "pollInterval must be positive")
	}
	if c.WakeInterval <= 0 || c.WakeInterval > time.Second {
		problems = append(problems, "wakeInterval must be between 0 and 1s")
	}
	if c.SessionMaxAge <= 0 || c.SessionMaxAge >= RemoteSessionExpiry {
		problems = append(problems, fmt.Sprintf("sessionMaxAge must be positive and below %s", RemoteSessionExpiry))
	}
	if c.RequestTimeout <= 0 {
		problems = append(problems, "requestTimeout must be positive")
	}
	if c.ScanTimeout <= 0 {
		problems = append(problems, "scanTimeout must be positive")
	}

	if len(problems) == 0 {
		return nil
	}

	return NewError(ErrConfig, "validate config", "", strings.Join(problems, "; "), nil)
}
