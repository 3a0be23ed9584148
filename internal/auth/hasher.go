// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"log/slog"

	"github.com/samber/oops"
	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2 parameters.
const (
	SaltLen = 64 // salt length in bytes
	HashLen = 64 // derived key length in bytes

	DefaultHashIterations = 10000
	MinHashIterations     = 1000
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code(CodeEmptyPassword).Errorf("password cannot be empty")

// Hasher derives password hashes with PBKDF2-HMAC-SHA512.
// The iteration count is fixed at construction.
type Hasher struct {
	iterations int
}

// NewHasher creates a Hasher. An iteration count below MinHashIterations is
// replaced by DefaultHashIterations and reported as a warning on logger.
func NewHasher(iterations int, logger *slog.Logger) *Hasher {
	if iterations < MinHashIterations {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("invalid hash iteration count, using default",
			"configured", iterations,
			"minimum", MinHashIterations,
			"default", DefaultHashIterations)
		iterations = DefaultHashIterations
	}
	return &Hasher{iterations: iterations}
}

// Iterations returns the PBKDF2 iteration count in effect.
func (h *Hasher) Iterations() int {
	return h.iterations
}

// SaltAndHash generates a fresh random salt and derives the hash of secret over it.
func (h *Hasher) SaltAndHash(secret string) (salt, hash []byte, err error) {
	if secret == "" {
		return nil, nil, ErrEmptyPassword
	}

	salt = make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, oops.Code(CodeSaltFailed).
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SaltLen).
			Wrap(err)
	}

	hash, err = h.Hash(secret, salt)
	if err != nil {
		return nil, nil, err
	}
	return salt, hash, nil
}

// Hash recomputes the derived key of secret over salt. Same inputs always
// produce byte-identical output.
func (h *Hasher) Hash(secret string, salt []byte) ([]byte, error) {
	if secret == "" {
		return nil, ErrEmptyPassword
	}
	if len(salt) != SaltLen {
		return nil, oops.Code(CodeRecordCorrupt).
			With("salt_len", len(salt)).
			Wrap(ErrCorruptRecord)
	}
	return pbkdf2.Key([]byte(secret), salt, h.iterations, HashLen, sha512.New), nil
}

// Verify checks secret against the stored salt and hash.
// The comparison runs in constant time over the full derived key.
func (h *Hasher) Verify(secret string, salt, expected []byte) (bool, error) {
	if len(expected) != HashLen {
		return false, oops.Code(CodeRecordCorrupt).
			With("hash_len", len(expected)).
			Wrap(ErrCorruptRecord)
	}
	if secret == "" {
		return false, nil
	}

	computed, err := h.Hash(secret, salt)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}
