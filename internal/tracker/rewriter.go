// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package tracker

import (
	"context"
	"fmt"

	"github.com/torrentindex/index/internal/metainfo"
)

// Rewriter rewrites a loaded Torrent's announce URL(s) for a download,
// personalizing them for an authenticated user or falling back to the
// tracker's default public URL for an anonymous one.
type Rewriter struct {
	keyCache   *KeyCache
	defaultURL string
}

func NewRewriter(keyCache *KeyCache, defaultURL string) *Rewriter {
	return &Rewriter{keyCache: keyCache, defaultURL: defaultURL}
}

// Rewrite mutates t in place. userID is nil for an anonymous download.
func (r *Rewriter) Rewrite(ctx context.Context, t *metainfo.Torrent, userID *int64) error {
	if userID == nil {
		t.Announce = r.defaultURL
		return nil
	}

	personal, err := r.keyCache.GetPersonalAnnounceURL(ctx, *userID)
	if err != nil {
		return fmt.Errorf("get personal announce url: %w", err)
	}

	t.Announce = personal
	if len(t.AnnounceList) > 0 {
		t.AnnounceList = prependTier(t.AnnounceList, personal)
	}
	return nil
}

// prependTier removes any existing tier equal to [url] and puts a fresh
// single-tracker tier containing url first. This is a deliberate departure
// from the naive "always prepend" behavior: repeatedly downloading the same
// torrent must not grow the announce list with duplicate personal-URL
// tiers.
func prependTier(tiers [][]string, url string) [][]string {
	out := make([][]string, 0, len(tiers)+1)
	out = append(out, []string{url})
	for _, tier := range tiers {
		if len(tier) == 1 && tier[0] == url {
			continue
		}
		out = append(out, tier)
	}
	return out
}
