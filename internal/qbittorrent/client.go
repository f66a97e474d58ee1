// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package qbittorrent

import (
	"context"
	"io"
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	qbt "github.com/autobrr/go-qbittorrent"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/qbnc/internal/domain"
	"github.com/autobrr/qbnc/pkg/redact"
	"github.com/autobrr/qbnc/pkg/stringutils"
)

// MinWebAPIVersion is the first WebAPI release with torrent tags.
const MinWebAPIVersion = "2.3.0"

// Session is an authenticated handle to the qBittorrent WebAPI. It is never
// refreshed in place: a stale session is dropped and a new one acquired.
type Session struct {
	client   *qbt.Client
	IssuedAt time.Time
}

// NewSession wraps an already logged in client.
func NewSession(client *qbt.Client, issuedAt time.Time) *Session {
	return &Session{client: client, IssuedAt: issuedAt}
}

// IsStale reports whether the session is at least maxAge old. A nil session
// is always stale.
func (s *Session) IsStale(now time.Time, maxAge time.Duration) bool {
	if s == nil {
		return true
	}
	return now.Sub(s.IssuedAt) >= maxAge
}

// filteredWriter wraps stderr to filter out HTTP "unsolicited response" errors.
//
// qBittorrent occasionally sends extra HTTP responses after the main request completes,
// which causes Go's HTTP client to log "Unsolicited response received on idle HTTP channel"
// errors to stderr. go-qbittorrent doesn't expose its HTTP client, so the
// message is dropped at the standard library log level.
type filteredWriter struct {
	writer io.Writer
}

func (fw *filteredWriter) Write(p []byte) (n int, err error) {
	if strings.Contains(string(p), "Unsolicited response received on idle HTTP channel") {
		return len(p), nil
	}
	return fw.writer.Write(p)
}

func init() {
	stdlog.SetOutput(&filteredWriter{writer: os.Stderr})
}

// Authenticator logs in to qBittorrent and hands out fresh sessions.
type Authenticator struct {
	cfg     qbt.Config
	timeout time.Duration
	now     func() time.Time
}

// NewAuthenticator builds an Authenticator from the bridge configuration.
func NewAuthenticator(cfg *domain.Config) *Authenticator {
	qbtCfg := qbt.Config{
		Host:     cfg.DownloadClientURL,
		Username: cfg.DownloadClientUsername,
		Password: cfg.DownloadClientPassword,
		Timeout:  int(cfg.RequestTimeout.Seconds()),
	}

	if cfg.DownloadClientBasicUser != "" {
		qbtCfg.BasicUser = cfg.DownloadClientBasicUser
		qbtCfg.BasicPass = cfg.DownloadClientBasicPass
	}

	return &Authenticator{
		cfg:     qbtCfg,
		timeout: cfg.RequestTimeout,
		now:     time.Now,
	}
}

// Acquire logs in with the configured credentials and returns a new session.
func (a *Authenticator) Acquire(ctx context.Context) (*Session, error) {
	client := qbt.NewClient(a.cfg)

	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if err := client.LoginCtx(reqCtx); err != nil {
		return nil, domain.NewError(domain.ErrAuth, "login", "", redact.URL(a.cfg.Host), redact.URLError(err))
	}

	session := NewSession(client, a.now())

	log.Info().
		Str("host", redact.URL(a.cfg.Host)).
		Time("issuedAt", session.IssuedAt).
		Msg("Logged in to qBittorrent")

	return session, nil
}

// Verify checks that the session can reach the WebAPI and that the server is
// new enough to support tags. It returns the reported WebAPI version.
func (a *Authenticator) Verify(ctx context.Context, session *Session) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := session.client.GetWebAPIVersionCtx(reqCtx)
	if err != nil {
		return "", domain.NewError(domain.ErrAuth, "get webapi version", "", "", redact.URLError(err))
	}

	raw = strings.TrimSpace(raw)
	version, err := semver.NewVersion(raw)
	if err != nil {
		return raw, domain.NewError(domain.ErrAuth, "parse webapi version", "", stringutils.Excerpt(raw), err)
	}

	if version.LessThan(semver.MustParse(MinWebAPIVersion)) {
		return raw, domain.NewError(domain.ErrAuth, "check webapi version", "",
			"qBittorrent WebAPI "+raw+" does not support tags, need "+MinWebAPIVersion+" or newer", nil)
	}

	log.Debug().Str("webAPIVersion", raw).Msg("qBittorrent WebAPI version supported")

	return raw, nil
}
