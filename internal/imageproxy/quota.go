// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package imageproxy

import (
	"sync"
	"time"
)

// quota tracks one user's rolling byte usage within a fixed-length window.
type quota struct {
	usage         uint64
	windowStart   time.Time
	windowSeconds int64
	maxBytes      uint64
}

// quotaTable is the per-user quota table, guarded by its own lock so it
// never contends with the image-byte cache's lock.
type quotaTable struct {
	mu            sync.RWMutex
	entries       map[int64]*quota
	windowSeconds int64
	maxBytes      uint64
}

func newQuotaTable(windowSeconds int64, maxBytes uint64) *quotaTable {
	return &quotaTable{
		entries:       make(map[int64]*quota),
		windowSeconds: windowSeconds,
		maxBytes:      maxBytes,
	}
}

// reached reports whether userID has no remaining quota in its current
// window, resetting the window first if it has expired.
func (t *quotaTable) reached(userID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	q := t.getOrInit(userID)
	t.resetIfExpired(q)
	return q.usage >= q.maxBytes
}

// charge adds n bytes to userID's usage with saturating addition, resetting
// the window first if it has expired.
func (t *quotaTable) charge(userID int64, n uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	q := t.getOrInit(userID)
	t.resetIfExpired(q)

	sum := q.usage + n
	if sum < q.usage {
		sum = ^uint64(0) // saturate on overflow
	}
	q.usage = sum
}

func (t *quotaTable) getOrInit(userID int64) *quota {
	q, ok := t.entries[userID]
	if !ok {
		q = &quota{windowStart: time.Now().UTC(), windowSeconds: t.windowSeconds, maxBytes: t.maxBytes}
		t.entries[userID] = q
	}
	return q
}

func (t *quotaTable) resetIfExpired(q *quota) {
	now := time.Now().UTC()
	if now.Sub(q.windowStart) > time.Duration(q.windowSeconds)*time.Second {
		q.usage = 0
		q.windowStart = now
	}
}
