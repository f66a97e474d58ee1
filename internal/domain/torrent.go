// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import "slices"

// CompletionState is the download state the bridge cares about.
type CompletionState string

const (
	StateDownloading CompletionState = "downloading"
	StateCompleted   CompletionState = "completed"
)

// TorrentRecord is a snapshot of one torrent as reported by the download client.
// It is rebuilt on every poll and never cached.
type TorrentRecord struct {
	Hash       string
	Name       string
	State      CompletionState
	Tags       []string
	SavePath   string
	OutputPath string
}

// HasTag reports whether the record carries tag exactly.
func (t TorrentRecord) HasTag(tag string) bool {
	return slices.Contains(t.Tags, tag)
}

// NeedsProcessing reports whether the record is completed and not yet tagged done.
func (t TorrentRecord) NeedsProcessing(doneTag string) bool {
	return t.State == StateCompleted && !t.HasTag(doneTag)
}
