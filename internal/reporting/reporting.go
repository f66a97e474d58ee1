// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package reporting forwards steady-state failures to Sentry when a DSN is
// configured. Without a DSN every call is a no-op.
package reporting

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/qbnc/internal/buildinfo"
)

const flushTimeout = 2 * time.Second

type Reporter struct {
	hub *sentry.Hub
}

// New initialises a Sentry client for dsn. An empty dsn returns a disabled
// Reporter.
func New(dsn string) (*Reporter, error) {
	if dsn == "" {
		return &Reporter{}, nil
	}

	return newReporter(sentry.ClientOptions{
		Dsn:     dsn,
		Release: "qbnc@" + buildinfo.Version,
	})
}

func newReporter(opts sentry.ClientOptions) (*Reporter, error) {
	client, err := sentry.NewClient(opts)
	if err != nil {
		return nil, errors.Wrap(err, "could not initialize sentry")
	}

	log.Info().Msg("Sentry error reporting enabled")

	return &Reporter{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

func (r *Reporter) Enabled() bool {
	return r != nil && r.hub != nil
}

// Capture sends err with the given tags attached.
func (r *Reporter) Capture(err error, tags map[string]string) {
	if !r.Enabled() || err == nil {
		return
	}

	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		r.hub.CaptureException(err)
	})
}

// Flush waits for queued events to be delivered.
func (r *Reporter) Flush() {
	if !r.Enabled() {
		return
	}
	if !r.hub.Flush(flushTimeout) {
		log.Warn().Msg("Timed out flushing Sentry events")
	}
}
