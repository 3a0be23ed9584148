// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "errors"

// ErrNotFound is returned by a Repository when no record matches a filter.
// The core never surfaces it to callers: a missing record is reported as a
// false/empty result instead.
var ErrNotFound = errors.New("not found")

// ErrDuplicateUsername is returned by a Repository whose store enforces
// username uniqueness and rejected an insert.
var ErrDuplicateUsername = errors.New("duplicate username")

// Error kinds surfaced by the Manager. Every coded error wraps exactly one of
// these, so callers can branch with errors.Is without parsing codes.
var (
	// ErrUsage is an operation invoked in the wrong lifecycle state.
	ErrUsage = errors.New("usage error")

	// ErrAlreadyExists is a create for a username that is already taken.
	ErrAlreadyExists = errors.New("user already exists")

	// ErrInvalidCredential is a bad token, unknown user or wrong password
	// in a flow that requires proof of identity.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrStore is a Repository failure.
	ErrStore = errors.New("store error")

	// ErrCorruptRecord is a stored record that violates a record invariant.
	ErrCorruptRecord = errors.New("corrupt user record")
)

// Error codes attached with oops.Code.
const (
	CodeNotLoaded     = "USAGE_NOT_LOADED"
	CodeAlreadyLoaded = "USAGE_ALREADY_LOADED"
	CodeClosed        = "USAGE_CLOSED"
	CodeUserExists    = "AUTH_USER_EXISTS"
	CodeInvalidToken  = "AUTH_INVALID_TOKEN"
	CodeWrongPassword = "AUTH_WRONG_PASSWORD"
	CodeUnknownUser   = "AUTH_UNKNOWN_USER"
	CodeInvalidInput  = "AUTH_INVALID_INPUT"
	CodeEmptyPassword = "AUTH_EMPTY_PASSWORD"
	CodeSaltFailed    = "AUTH_SALT_FAILED"
	CodeRandomFailed  = "AUTH_RANDOM_FAILED"
	CodeRecordCorrupt = "AUTH_RECORD_CORRUPT"
	CodeInconsistent  = "AUTH_INCONSISTENT"
	CodeStoreFailed   = "STORE_FAILED"
	CodeInvalidUpdate = "STORE_INVALID_UPDATE"
	CodeConnectFailed = "STORE_CONNECT_FAILED"
)
