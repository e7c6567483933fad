// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package tracker is a thin client over the administrative HTTP API of the
// BitTorrent tracker the index personalizes announce URLs against.
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/avast/retry-go"
	"github.com/rs/zerolog"
)

// Sentinel errors matching the taxonomy's external-system kinds.
var (
	ErrTrackerOffline             = errors.New("tracker is offline")
	ErrInvalidToken               = errors.New("tracker rejected the admin token")
	ErrTorrentNotFound            = errors.New("torrent not known to tracker")
	ErrUnexpectedResponseStatus   = errors.New("unexpected tracker response status")
	ErrFailedToParseTrackerResponse = errors.New("failed to parse tracker response")
)

// TorrentInfo is the tracker's view of one torrent's live swarm counts.
type TorrentInfo struct {
	InfoHash  string `json:"info_hash"`
	Seeders   int    `json:"seeders"`
	Completed int    `json:"completed"`
	Leechers  int    `json:"leechers"`
	Peers     []Peer `json:"peers"`
}

// Peer is one entry of TorrentInfo.Peers; the importer never needs more than
// the counts above, but the shape is kept for callers that do.
type Peer struct {
	PeerID string `json:"peer_id"`
	IP     string `json:"ip"`
	Port   int    `json:"port"`
}

// Key is an issued, expiring tracker credential.
type Key struct {
	Key        string    `json:"key"`
	ValidUntil time.Time `json:"valid_until"`
}

// Client talks to the tracker's admin API, authenticated by a single shared
// token carried as a query parameter on every request.
type Client struct {
	httpClient *http.Client
	apiURL     string
	token      string
	log        zerolog.Logger

	attempts uint
	delay    time.Duration
}

// NewClient builds a Client. apiURL is the tracker's admin API base (e.g.
// "http://localhost:1212/api"), without a trailing slash.
func NewClient(apiURL, token string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiURL:     apiURL,
		token:      token,
		log:        log.With().Str("component", "tracker_client").Logger(),
		attempts:   3,
		delay:      100 * time.Millisecond,
	}
}

// WhitelistInfoHash whitelists a canonical info-hash so the tracker will
// accept announces for it.
func (c *Client) WhitelistInfoHash(ctx context.Context, infoHashHex string) error {
	_, err := c.doWithRetry(ctx, http.MethodPost, "/whitelist/"+infoHashHex, nil)
	return err
}

// RemoveFromWhitelist reverses WhitelistInfoHash. Used when a torrent is
// deleted; a failed upload's compensation does not call it.
func (c *Client) RemoveFromWhitelist(ctx context.Context, infoHashHex string) error {
	_, err := c.doWithRetry(ctx, http.MethodDelete, "/whitelist/"+infoHashHex, nil)
	return err
}

// IssueUserKey requests a new tracker key valid for the given duration.
func (c *Client) IssueUserKey(ctx context.Context, validSeconds int) (*Key, error) {
	body, err := c.doWithRetry(ctx, http.MethodPost, "/key/"+strconv.Itoa(validSeconds), nil)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Key        string `json:"key"`
		ValidUntil int64  `json:"valid_until"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToParseTrackerResponse, err)
	}
	return &Key{Key: raw.Key, ValidUntil: time.Unix(raw.ValidUntil, 0).UTC()}, nil
}

// GetTorrent fetches a single torrent's live counts.
func (c *Client) GetTorrent(ctx context.Context, infoHashHex string) (*TorrentInfo, error) {
	body, err := c.doWithRetry(ctx, http.MethodGet, "/torrent/"+infoHashHex, nil)
	if err != nil {
		return nil, err
	}
	var info TorrentInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToParseTrackerResponse, err)
	}
	return &info, nil
}

// GetTorrents is the batched variant used by the statistics importer.
// Torrents the tracker does not know about are simply absent from the
// result; a per-hash TorrentNotFound never aborts the whole batch.
func (c *Client) GetTorrents(ctx context.Context, infoHashesHex []string) (map[string]*TorrentInfo, error) {
	out := make(map[string]*TorrentInfo, len(infoHashesHex))
	for _, hex := range infoHashesHex {
		info, err := c.GetTorrent(ctx, hex)
		if errors.Is(err, ErrTorrentNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[hex] = info
	}
	return out, nil
}

func (c *Client) doWithRetry(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	var result []byte

	err := retry.Do(
		func() error {
			respBody, err := c.do(ctx, method, path, body)
			if err != nil {
				return err
			}
			result = respBody
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, ErrTrackerOffline)
		}),
		retry.LastErrorOnly(true),
	)
	return result, err
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	u := c.apiURL + path
	parsed, err := url.Parse(u)
	if err != nil {
		return nil, fmt.Errorf("build tracker request url: %w", err)
	}
	q := parsed.Query()
	q.Set("token", c.token)
	parsed.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, method, parsed.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build tracker request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("path", path).Msg("tracker request transport failure")
		return nil, fmt.Errorf("%w: %w", ErrTrackerOffline, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTrackerOffline, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return data, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrInvalidToken
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrTorrentNotFound
	default:
		return nil, fmt.Errorf("%w: status %d", ErrUnexpectedResponseStatus, resp.StatusCode)
	}
}
