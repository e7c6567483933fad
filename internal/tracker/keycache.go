// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/torrentindex/index/internal/models"
)

// safetyMargin is how far before a key's expiry it is no longer handed out,
// so a caller never receives a key that could expire mid-session.
const safetyMargin = time.Hour

// KeyCache implements get_personal_announce_url: it serves a cached,
// not-about-to-expire tracker key when one exists, issuing and persisting a
// new one otherwise. Concurrent calls for the same user are collapsed with
// singleflight so a burst of requests never issues more than one key.
type KeyCache struct {
	client            *Client
	store             *models.TrackerKeyStore
	trackerURL        string
	tokenValidSeconds int
	group             singleflight.Group
}

// NewKeyCache builds a KeyCache. trackerURL is the public announce base
// (distinct from client's admin apiURL) the returned URL is built from.
func NewKeyCache(client *Client, store *models.TrackerKeyStore, trackerURL string, tokenValidSeconds int) *KeyCache {
	return &KeyCache{
		client:            client,
		store:             store,
		trackerURL:        trackerURL,
		tokenValidSeconds: tokenValidSeconds,
	}
}

// GetPersonalAnnounceURL returns "{tracker_url}/{key}" for userID, issuing a
// fresh key via the tracker client when no cached key outlives the safety
// margin.
func (c *KeyCache) GetPersonalAnnounceURL(ctx context.Context, userID int64) (string, error) {
	groupKey := fmt.Sprintf("user:%d", userID)

	v, err, _ := c.group.Do(groupKey, func() (any, error) {
		return c.resolveKey(ctx, userID)
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s", c.trackerURL, v.(string)), nil
}

func (c *KeyCache) resolveKey(ctx context.Context, userID int64) (string, error) {
	cutoff := time.Now().UTC().Add(safetyMargin)

	existing, err := c.store.LatestValidAfter(ctx, userID, cutoff)
	if err == nil {
		return existing.Key, nil
	}
	if !errors.Is(err, models.ErrTrackerKeyNotFound) {
		return "", fmt.Errorf("look up cached tracker key: %w", err)
	}

	issued, err := c.client.IssueUserKey(ctx, c.tokenValidSeconds)
	if err != nil {
		return "", err
	}

	if _, err := c.store.Add(ctx, userID, issued.Key, issued.ValidUntil); err != nil {
		return "", fmt.Errorf("persist issued tracker key: %w", err)
	}
	return issued.Key, nil
}
