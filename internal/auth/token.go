// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package auth implements the authorization core: password hashing/
// verification and bearer-token issuance, verification and renewal. No JWT
// library is reachable from this module's dependency set, so tokens are a
// hand-rolled HS256 compact serialization (header.payload.signature, each
// segment base64url-encoded without padding) rather than a borrowed one.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// TokenLifetime is how long a freshly signed token remains valid.
	TokenLifetime = 14 * 24 * time.Hour
	// RenewalThreshold is the remaining validity below which Renew mints a
	// new token instead of returning the one it was given.
	RenewalThreshold = 7 * 24 * time.Hour
)

var (
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenInvalid  = errors.New("token invalid")
	ErrTokenExpired  = errors.New("token expired")
)

var tokenHeader = mustMarshal(map[string]string{"alg": "HS256", "typ": "JWT"})

// UserClaims is the principal embedded in a signed token.
type UserClaims struct {
	UserID        int64  `json:"user_id"`
	Username      string `json:"username"`
	Administrator bool   `json:"administrator"`
}

// Claims is the full token payload.
type Claims struct {
	User UserClaims `json:"user"`
	Exp  int64      `json:"exp"`
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func b64encode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func b64decode(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}

func sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return b64encode(h.Sum(nil))
}

// Sign issues a new token for user, valid for TokenLifetime from now.
func Sign(user UserClaims, secret string, now time.Time) (string, error) {
	claims := Claims{User: user, Exp: now.Add(TokenLifetime).Unix()}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}

	signingInput := b64encode(tokenHeader) + "." + b64encode(payload)
	signature := sign([]byte(signingInput), secret)

	return signingInput + "." + signature, nil
}

// Verify validates a token's signature and expiry and returns its claims.
func Verify(token, secret string, now time.Time) (*Claims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrTokenNotFound
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrTokenInvalid
	}

	signingInput := parts[0] + "." + parts[1]
	expectedSig := sign([]byte(signingInput), secret)
	if subtle.ConstantTimeCompare([]byte(expectedSig), []byte(parts[2])) != 1 {
		return nil, ErrTokenInvalid
	}

	payload, err := b64decode(parts[1])
	if err != nil {
		return nil, ErrTokenInvalid
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, ErrTokenInvalid
	}

	if claims.Exp < now.Unix() {
		return nil, ErrTokenExpired
	}

	return &claims, nil
}

// Renew returns token unchanged if it still has more than RenewalThreshold
// left before expiry; otherwise it mints and returns a freshly signed token
// carrying the same user claims and a new 14-day expiry.
func Renew(token, secret string, now time.Time) (string, error) {
	claims, err := Verify(token, secret, now)
	if err != nil {
		return "", err
	}

	remaining := time.Unix(claims.Exp, 0).Sub(now)
	if remaining > RenewalThreshold {
		return token, nil
	}

	return Sign(claims.User, secret, now)
}
