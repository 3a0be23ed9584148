// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth provides user accounts, password credentials and session
// tokens on top of a pluggable Repository.
//
// # Components
//
// The package is built from small collaborators that share one Repository:
//   - Hasher - PBKDF2-HMAC-SHA512 salt generation, hashing and verification
//   - TokenIssuer - random session tokens and their expiry timestamps
//   - CredentialStore - user creation, password checks and replacement, extras
//   - SessionManager - token issue, validation, lookup and expiry
//
// Manager combines them into the account workflows (authenticate, change and
// reset password) and enforces the Load/Close lifecycle.
//
// # Repositories
//
// Backends live in sub-packages (memory, postgres, redis). They report a
// missing record with ErrNotFound and a taken username with
// ErrDuplicateUsername; the core turns both into results or coded errors.
//
// # Errors
//
// Errors returned from Manager carry an oops code (see the Code* constants)
// and wrap one of the Err* kinds, so callers may use either errors.Is or
// errutil.AssertErrorCode style checks.
package auth
