// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package auth

import (
	"fmt"
	"strings"
)

// ErrIncompatibleHashAlgorithm is returned by VerifyPasswordHash when the
// stored hash isn't one of the two recognized PHC algorithm tags.
var ErrIncompatibleHashAlgorithm = fmt.Errorf("incompatible hash algorithm")

// VerifyPasswordHash dispatches to the argon2id or pbkdf2-sha256 verifier
// based on the PHC algorithm tag embedded in hash. pbkdf2-sha256 is accepted
// here only for backward compatibility with accounts created before argon2id
// became the default; HashPassword never produces it.
func VerifyPasswordHash(password, hash string) (bool, error) {
	parts := strings.SplitN(hash, "$", 3)
	if len(parts) < 2 {
		return false, fmt.Errorf("invalid hash format")
	}

	switch parts[1] {
	case "argon2id":
		return VerifyPassword(password, hash)
	case "pbkdf2-sha256":
		return VerifyPBKDF2Password(password, hash)
	default:
		return false, fmt.Errorf("%w: %q", ErrIncompatibleHashAlgorithm, parts[1])
	}
}
