// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// VerifyPBKDF2Password checks password against a legacy PHC-formatted
// pbkdf2-sha256 hash: $pbkdf2-sha256$i=<iterations>,l=<keylen>$<salt>$<hash>
//
// New hashes are never minted in this format; it exists only so accounts
// created before argon2id became the default can still log in.
func VerifyPBKDF2Password(password, hash string) (bool, error) {
	parts := strings.Split(hash, "$")
	if len(parts) != 5 {
		return false, fmt.Errorf("invalid hash format")
	}

	if parts[1] != "pbkdf2-sha256" {
		return false, fmt.Errorf("incompatible hash algorithm %q", parts[1])
	}

	var iterations, keyLen int
	if _, err := fmt.Sscanf(parts[2], "i=%d,l=%d", &iterations, &keyLen); err != nil {
		return false, fmt.Errorf("failed to parse parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return false, fmt.Errorf("failed to decode salt: %w", err)
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("failed to decode hash: %w", err)
	}

	candidate := pbkdf2.Key([]byte(password), salt, iterations, keyLen, sha256.New)

	return subtle.ConstantTimeCompare(candidate, key) == 1, nil
}
