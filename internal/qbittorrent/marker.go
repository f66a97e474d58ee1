// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package qbittorrent

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/qbnc/internal/domain"
	"github.com/autobrr/qbnc/pkg/redact"
)

// CompletionMarker tags torrents as processed. Adding a tag that is already
// present is a no-op on the qBittorrent side.
type CompletionMarker struct {
	doneTag string
	timeout time.Duration
}

func NewCompletionMarker(cfg *domain.Config) *CompletionMarker {
	return &CompletionMarker{
		doneTag: cfg.DoneTag,
		timeout: cfg.RequestTimeout,
	}
}

func (m *CompletionMarker) MarkDone(ctx context.Context, session *Session, hash string) error {
	reqCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := session.client.AddTagsCtx(reqCtx, []string{hash}, m.doneTag); err != nil {
		return domain.NewError(domain.ErrMark, "add done tag", hash, "", redact.URLError(err))
	}

	log.Info().Str("hash", hash).Str("tag", m.doneTag).Msg("Marked torrent as done")

	return nil
}
