// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package imageproxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"
)

// allowedContentTypes are the only Content-Type values an upstream image
// response may carry.
var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Config bundles Proxy's tunables, sourced from the image_cache
// configuration section.
type Config struct {
	Capacity              int64
	PerEntrySizeLimit     int64
	MaxRequestTimeout     time.Duration
	UserQuotaPeriodSeconds int64
	UserQuotaBytes        uint64
}

// Proxy implements get_image_by_url: a cache-first, quota-gated fetch of
// remote cover images.
type Proxy struct {
	httpClient *http.Client
	cache      *byteCache
	quotas     *quotaTable
	perEntry   int64
	fetchGroup singleflight.Group
}

func New(cfg Config) *Proxy {
	return &Proxy{
		httpClient: &http.Client{Timeout: cfg.MaxRequestTimeout},
		cache:      newByteCache(cfg.Capacity),
		quotas:     newQuotaTable(cfg.UserQuotaPeriodSeconds, cfg.UserQuotaBytes),
		perEntry:   cfg.PerEntrySizeLimit,
	}
}

// GetImageByURL returns the image bytes for url. userID is nil for an
// anonymous caller.
func (p *Proxy) GetImageByURL(ctx context.Context, url string, userID *int64) ([]byte, error) {
	if cached, ok := p.cache.get(url); ok {
		return cached, nil
	}

	if userID == nil {
		return nil, ErrUnauthenticated
	}
	if p.quotas.reached(*userID) {
		return nil, ErrUserQuotaMet
	}

	v, err, _ := p.fetchGroup.Do(url, func() (any, error) {
		return p.fetch(ctx, url)
	})
	if err != nil {
		return nil, err
	}
	data := v.([]byte)

	p.cache.put(url, data)
	p.quotas.charge(*userID, uint64(len(data)))
	return data, nil
}

func (p *Proxy) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrURLIsUnreachable, err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrURLIsUnreachable, err)
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if !allowedContentTypes[contentType] {
		return nil, ErrURLIsNotAnImage
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, p.perEntry+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrURLIsUnreachable, err)
	}
	if int64(len(data)) > p.perEntry {
		return nil, ErrImageTooBig
	}
	return data, nil
}
