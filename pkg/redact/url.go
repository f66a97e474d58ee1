// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package redact strips credentials from URLs and URL errors before they are logged.
package redact

import (
	"errors"
	"net/url"
	"strings"
)

const placeholder = "REDACTED"

var sensitiveParams = map[string]struct{}{
	"apikey":   {},
	"api_key":  {},
	"token":    {},
	"passkey":  {},
	"password": {},
	"pass":     {},
	"secret":   {},
}

// URL returns raw with userinfo passwords and sensitive query values replaced.
// Strings that do not parse as URLs are returned unchanged.
func URL(raw string) string {
	if raw == "" {
		return raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	changed := false
	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), placeholder)
			changed = true
		}
	}

	if u.RawQuery != "" {
		query := u.Query()
		for key := range query {
			if _, ok := sensitiveParams[strings.ToLower(key)]; ok {
				query.Set(key, placeholder)
				changed = true
			}
		}
		if changed {
			u.RawQuery = query.Encode()
		}
	}

	if !changed {
		return raw
	}
	return u.String()
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

// URLError redacts the URL inside err if it is, or wraps, a *url.Error.
// A bare *url.Error keeps its type. For wrapped ones the result unwraps to a
// redacted copy of the *url.Error, so no level of the chain carries the
// secret; the underlying cause stays reachable through errors.Is.
func URLError(err error) error {
	if err == nil {
		return nil
	}

	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}

	redacted := URL(urlErr.URL)
	if redacted == urlErr.URL {
		return err
	}

	redactedURLErr := &url.Error{Op: urlErr.Op, URL: redacted, Err: urlErr.Err}
	if err == error(urlErr) {
		return redactedURLErr
	}

	return &redactedError{
		msg: strings.ReplaceAll(err.Error(), urlErr.URL, redacted),
		err: redactedURLErr,
	}
}
