// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

// RedactedStr is what secrets are replaced with in logs and config dumps.
const RedactedStr = "<redacted>"

// RedactString replaces a non-empty secret with RedactedStr
func RedactString(s string) string {
	if len(s) == 0 {
		return ""
	}

	return RedactedStr
}

// IsRedactedValue checks if a value has already been redacted
func IsRedactedValue(value string) bool {
	return value == RedactedStr
}

// Redacted returns a copy of the config that is safe to print.
func (c Config) Redacted() Config {
	c.DownloadClientPassword = RedactString(c.DownloadClientPassword)
	c.DownloadClientBasicPass = RedactString(c.DownloadClientBasicPass)
	c.MetricsBasicAuthUsers = RedactString(c.MetricsBasicAuthUsers)
	c.SentryDSN = RedactString(c.SentryDSN)
	return c
}
