// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package nextcloud

import (
	"path"
	"strings"

	"github.com/autobrr/qbnc/internal/domain"
)

// filesSegment is the fixed directory Nextcloud keeps each user's files under.
const filesSegment = "files"

// SanitizeRelPath rejects parent directory segments and strips leading
// separators. Backslashes count as separators. The result is cleaned and
// relative; an empty result means the user's files root.
func SanitizeRelPath(rel string) (string, error) {
	normalized := strings.ReplaceAll(rel, `\`, "/")

	// Only whole ".." segments traverse; names such as "Movie...2024" are valid.
	for _, segment := range strings.Split(normalized, "/") {
		if segment == ".." {
			return "", domain.NewError(domain.ErrPath, "sanitize path", "", "parent directory segment in "+rel, nil)
		}
	}

	normalized = strings.TrimLeft(normalized, "/")
	if normalized == "" {
		return "", nil
	}

	cleaned := path.Clean(normalized)
	if cleaned == "." {
		return "", nil
	}
	return cleaned, nil
}

// ScanPath builds the path occ files:scan expects: /<user>/files/<rel>.
func ScanPath(user, rel string) (string, error) {
	user = strings.TrimSpace(user)
	if user == "" || strings.ContainsAny(user, `/\`) || user == "." || user == ".." {
		return "", domain.NewError(domain.ErrPath, "scan path", "", "invalid user segment "+user, nil)
	}

	cleanRel, err := SanitizeRelPath(rel)
	if err != nil {
		return "", err
	}

	return "/" + path.Join(user, filesSegment, cleanRel), nil
}
