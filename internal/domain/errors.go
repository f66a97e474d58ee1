// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import (
	"errors"
	"strings"
)

// Error kinds. Match them with errors.Is.
var (
	ErrConfig         = errors.New("config error")
	ErrAuth           = errors.New("auth error")
	ErrQuery          = errors.New("query error")
	ErrMark           = errors.New("mark error")
	ErrExec           = errors.New("exec error")
	ErrTargetNotFound = errors.New("target not found")
	ErrPath           = errors.New("path error")
)

var kindNames = map[error]string{
	ErrConfig:         "config",
	ErrAuth:           "auth",
	ErrQuery:          "query",
	ErrMark:           "mark",
	ErrExec:           "exec",
	ErrTargetNotFound: "target_not_found",
	ErrPath:           "path",
}

// Error carries the operation and torrent hash a failure belongs to, plus a
// short excerpt of whatever the remote side answered.
type Error struct {
	Kind   error
	Op     string
	Hash   string
	Detail string
	Err    error
}

// NewError builds an *Error of the given kind.
func NewError(kind error, op, hash, detail string, err error) *Error {
	return &Error{Kind: kind, Op: op, Hash: hash, Detail: detail, Err: err}
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	if e.Kind != nil {
		sb.WriteString(e.Kind.Error())
	}
	if e.Hash != "" {
		sb.WriteString(" (hash ")
		sb.WriteString(e.Hash)
		sb.WriteString(")")
	}
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf returns a stable label for the error's kind, suitable for metrics.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for kind, name := range kindNames {
		if errors.Is(err, kind) {
			return name
		}
	}
	return "unknown"
}
