// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package auth

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// EmailVerificationLifetime bounds how long a "verify your email" link
// stays usable after registration.
const EmailVerificationLifetime = 24 * time.Hour

// emailVerifyClaims is the payload of an email-verification token, distinct
// from Claims (login token) so the two cannot be confused or substituted
// for one another even though both are signed the same way.
type emailVerifyClaims struct {
	UserID int64 `json:"user_id"`
	Exp    int64 `json:"exp"`
}

// SignEmailVerification mints a short-lived token embedding userID, sent to
// the user as a verification link per spec.md's registration flow.
func SignEmailVerification(userID int64, secret string, now time.Time) (string, error) {
	claims := emailVerifyClaims{UserID: userID, Exp: now.Add(EmailVerificationLifetime).Unix()}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal verification claims: %w", err)
	}

	signingInput := b64encode(tokenHeader) + "." + b64encode(payload)
	signature := sign([]byte(signingInput), secret)
	return signingInput + "." + signature, nil
}

// VerifyEmailVerification validates a token minted by SignEmailVerification
// and returns the embedded user id.
func VerifyEmailVerification(token, secret string, now time.Time) (int64, error) {
	if strings.TrimSpace(token) == "" {
		return 0, ErrTokenNotFound
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return 0, ErrTokenInvalid
	}

	signingInput := parts[0] + "." + parts[1]
	expectedSig := sign([]byte(signingInput), secret)
	if subtle.ConstantTimeCompare([]byte(expectedSig), []byte(parts[2])) != 1 {
		return 0, ErrTokenInvalid
	}

	payload, err := b64decode(parts[1])
	if err != nil {
		return 0, ErrTokenInvalid
	}

	var claims emailVerifyClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return 0, ErrTokenInvalid
	}

	if claims.Exp < now.Unix() {
		return 0, ErrTokenExpired
	}

	return claims.UserID, nil
}
