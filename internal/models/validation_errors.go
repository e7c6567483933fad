// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import "errors"

// Sentinel errors returned by repository methods in this package. Callers at
// the service boundary (internal/index) translate these into a
// domain.ServiceError carrying the matching taxonomy code.
var (
	ErrCategoryNameEmpty     = errors.New("category name is empty")
	ErrCategoryAlreadyExists = errors.New("category already exists")
	ErrCategoryNotFound      = errors.New("category not found")
	ErrCategoryReferenced    = errors.New("category is referenced by at least one torrent")

	ErrTagNameEmpty     = errors.New("tag name is empty")
	ErrTagAlreadyExists = errors.New("tag already exists")
	ErrTagNotFound      = errors.New("tag not found")

	ErrTorrentTitleAlreadyExists           = errors.New("torrent title already exists")
	ErrTorrentInfoHashAlreadyExists        = errors.New("torrent info hash already exists")
	ErrTorrentCanonicalInfoHashAlreadyExists = errors.New("torrent canonical info hash already exists")
	ErrTorrentNotFound                     = errors.New("torrent not found")

	ErrUserNotFound = errors.New("user not found")

	ErrTrackerKeyNotFound = errors.New("tracker key not found")
)
