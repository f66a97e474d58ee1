// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package stringutils holds small string helpers shared by the bridge's clients.
package stringutils

import "strings"

// DefaultExcerptLength is how much of a remote response is kept for log context.
const DefaultExcerptLength = 100

// Truncate returns at most limit runes of s, with surrounding whitespace trimmed.
func Truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return ""
	}

	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}

// Excerpt truncates s to DefaultExcerptLength runes.
func Excerpt(s string) string {
	return Truncate(s, DefaultExcerptLength)
}
