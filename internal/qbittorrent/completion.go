// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package qbittorrent

import (
	"context"
	"time"

	qbt "github.com/autobrr/go-qbittorrent"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/qbnc/internal/domain"
	"github.com/autobrr/qbnc/pkg/redact"
	"github.com/autobrr/qbnc/pkg/stringutils"
)

// CompletionDetector lists completed torrents that are not yet tagged done.
type CompletionDetector struct {
	doneTag string
	timeout time.Duration
}

func NewCompletionDetector(cfg *domain.Config) *CompletionDetector {
	return &CompletionDetector{
		doneTag: cfg.DoneTag,
		timeout: cfg.RequestTimeout,
	}
}

// ListCompleted queries completed torrents and drops every one that already
// carries the done tag. No tag filter is sent to qBittorrent: some WebAPI
// versions treat an empty tag filter as "any tag", so the check always
// happens here.
func (d *CompletionDetector) ListCompleted(ctx context.Context, session *Session) ([]domain.TorrentRecord, error) {
	reqCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	torrents, err := session.client.GetTorrentsCtx(reqCtx, qbt.TorrentFilterOptions{
		Filter: qbt.TorrentFilterCompleted,
	})
	if err != nil {
		return nil, domain.NewError(domain.ErrQuery, "list completed torrents", "", "", redact.URLError(err))
	}

	records := make([]domain.TorrentRecord, 0, len(torrents))
	for i := range torrents {
		record := toRecord(&torrents[i])
		if !record.NeedsProcessing(d.doneTag) {
			continue
		}
		records = append(records, record)
	}

	if len(records) > 0 {
		log.Info().
			Int("count", len(records)).
			Int("completed", len(torrents)).
			Msgf("Found %d completed untracked torrent(s)", len(records))
	} else {
		log.Debug().Int("completed", len(torrents)).Msg("Found no completed untracked torrents")
	}

	return records, nil
}

func toRecord(torrent *qbt.Torrent) domain.TorrentRecord {
	state := domain.StateDownloading
	if isTorrentComplete(torrent) {
		state = domain.StateCompleted
	}

	return domain.TorrentRecord{
		Hash:       torrent.Hash,
		Name:       torrent.Name,
		State:      state,
		Tags:       stringutils.ParseTags(torrent.Tags),
		SavePath:   torrent.SavePath,
		OutputPath: torrent.ContentPath,
	}
}

// isTorrentComplete trusts CompletionOn over Progress, which can briefly read
// below 1 while qBittorrent is checking resume data.
func isTorrentComplete(torrent *qbt.Torrent) bool {
	return torrent.CompletionOn > 0 || torrent.Progress >= 1
}
