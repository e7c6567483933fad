// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package imageproxy is a content-addressed cache fronting remote cover-image
// fetches, with a size-bounded eviction discipline and a per-user rolling
// byte quota.
package imageproxy

import "errors"

var (
	ErrUnauthenticated = errors.New("image fetch requires authentication")
	ErrUserQuotaMet     = errors.New("user image quota exhausted")
	ErrURLIsUnreachable = errors.New("image url is unreachable")
	ErrURLIsNotAnImage  = errors.New("url did not return an image content type")
	ErrImageTooBig      = errors.New("image exceeds the per-entry size limit")
)
