// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package index composes the metainfo codec, repositories, tracker client
// and announce rewriter into the observable upload/get/update/delete/list
// flows of the torrent index.
package index

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/torrentindex/index/internal/domain"
	"github.com/torrentindex/index/internal/metainfo"
	"github.com/torrentindex/index/internal/models"
	"github.com/torrentindex/index/internal/tracker"
	"github.com/torrentindex/index/pkg/titles"
)

const minTitleLength = 3

// Service composes C1-C7 into the torrent index's observable flows.
type Service struct {
	torrents   *models.TorrentStore
	categories *models.CategoryStore
	tags       *models.TagStore
	client     *tracker.Client
	keyCache   *tracker.KeyCache
	rewriter   *tracker.Rewriter
	parser     *titles.Parser
	trackerURL string
	log        zerolog.Logger
}

func New(
	torrents *models.TorrentStore,
	categories *models.CategoryStore,
	tags *models.TagStore,
	client *tracker.Client,
	keyCache *tracker.KeyCache,
	rewriter *tracker.Rewriter,
	parser *titles.Parser,
	trackerURL string,
	log zerolog.Logger,
) *Service {
	return &Service{
		torrents:   torrents,
		categories: categories,
		tags:       tags,
		client:     client,
		keyCache:   keyCache,
		rewriter:   rewriter,
		parser:     parser,
		trackerURL: trackerURL,
		log:        log.With().Str("component", "index_service").Logger(),
	}
}

// UploadParams carries everything needed to ingest one torrent.
type UploadParams struct {
	MetainfoBytes []byte
	UploaderID    int64
	Title         string
	Description   string
	CategoryName  string
	TagNames      []string
}

// UploadResult is what Upload returns: the stored torrent plus advisory,
// response-only suggested tags derived from the release name.
type UploadResult struct {
	Torrent       *models.Torrent
	SuggestedTags []string
}

// Upload parses, validates, stores and whitelists a new torrent. The
// sequence mirrors the mandated control flow exactly: parse, validate,
// rewrite the announce URL to the configured tracker, store inside a
// transaction, whitelist on the tracker, and compensate with a delete if
// whitelisting fails.
func (s *Service) Upload(ctx context.Context, p UploadParams) (*UploadResult, error) {
	parsed, err := metainfo.Decode(p.MetainfoBytes)
	if err != nil {
		return nil, domain.WrapServiceError(domain.ErrKindValidation, domain.CodeInvalidTorrentFile, err)
	}

	title := strings.TrimSpace(p.Title)
	if len(title) < minTitleLength {
		return nil, domain.NewServiceError(domain.ErrKindValidation, domain.CodeInvalidTorrentTitleLength,
			fmt.Sprintf("title must be at least %d characters", minTitleLength))
	}

	category, err := s.categories.GetByName(ctx, p.CategoryName)
	if err != nil {
		if errors.Is(err, models.ErrCategoryNotFound) {
			return nil, domain.NewServiceError(domain.ErrKindValidation, domain.CodeInvalidCategory, "unknown category")
		}
		return nil, domain.WrapServiceError(domain.ErrKindInternal, domain.CodeDatabaseError, err)
	}

	tagIDs, err := s.resolveOrCreateTags(ctx, p.TagNames)
	if err != nil {
		return nil, err
	}

	originalHash := metainfo.InfoHash(parsed)
	canonicalHash, err := metainfo.CanonicalInfoHash(parsed)
	if err != nil {
		return nil, domain.WrapServiceError(domain.ErrKindValidation, domain.CodeInvalidTorrentFile, err)
	}

	// Stored announce points at this index's configured tracker,
	// irrespective of whatever the uploaded file carried.
	parsed.Announce = s.trackerURL
	parsed.AnnounceList = nil

	record := torrentFromMetainfo(parsed, category.CategoryID, p.UploaderID, canonicalHash.HexString())
	record.TagIDs = tagIDs

	torrentID, err := s.torrents.Add(ctx, record, originalHash.HexString(), models.NewTorrentMetadata{
		Title:       title,
		Description: p.Description,
		TagIDs:      tagIDs,
	})
	if err != nil {
		return nil, translateTorrentStoreError(err)
	}

	if err := s.client.WhitelistInfoHash(ctx, canonicalHash.HexString()); err != nil {
		if delErr := s.torrents.Delete(ctx, torrentID); delErr != nil {
			s.log.Error().Err(delErr).Int64("torrent_id", torrentID).Msg("failed to compensate-delete after whitelist failure")
		}
		if errors.Is(err, tracker.ErrTrackerOffline) {
			return nil, domain.WrapServiceError(domain.ErrKindTrackerOffline, domain.CodeTrackerOffline, err)
		}
		return nil, domain.WrapServiceError(domain.ErrKindExternal, domain.CodeWhitelistingError, err)
	}

	record.TorrentID = torrentID
	suggested := titles.SuggestedTags(s.parser.ParseOne(record.Name))
	return &UploadResult{Torrent: record, SuggestedTags: suggested}, nil
}

func (s *Service) resolveOrCreateTags(ctx context.Context, names []string) ([]int64, error) {
	if len(names) == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		tag, err := s.tags.GetOrCreate(ctx, name)
		if err != nil {
			return nil, domain.WrapServiceError(domain.ErrKindInternal, domain.CodeDatabaseError, err)
		}
		ids = append(ids, tag.TagID)
	}
	return ids, nil
}

// TorrentDetail is the response shape for get_torrent_info.
type TorrentDetail struct {
	Torrent    *models.Torrent
	Category   *models.Category
	MagnetLink string
}

// GetTorrentInfo loads a torrent and its category, prepends the caller's
// personal or default tracker URL, builds a magnet link, and attempts to
// refresh live swarm counts from the tracker - falling back to the stored
// counts if the refresh fails.
func (s *Service) GetTorrentInfo(ctx context.Context, infoHash string, userID *int64) (*TorrentDetail, error) {
	t, err := s.torrents.GetByInfoHash(ctx, infoHash)
	if err != nil {
		if errors.Is(err, models.ErrTorrentNotFound) {
			return nil, domain.NewServiceError(domain.ErrKindNotFound, domain.CodeTorrentNotFound, "torrent not found")
		}
		return nil, domain.WrapServiceError(domain.ErrKindInternal, domain.CodeDatabaseError, err)
	}

	category, err := s.categories.Get(ctx, t.CategoryID)
	if err != nil {
		return nil, domain.WrapServiceError(domain.ErrKindInternal, domain.CodeDatabaseError, err)
	}

	trackerURL, err := s.personalOrDefaultTrackerURL(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to obtain personal tracker url, falling back to default")
		trackerURL = s.trackerURL
	}

	announce := []string{trackerURL}
	for _, u := range t.AnnounceURLs {
		if u != trackerURL {
			announce = append(announce, u)
		}
	}
	t.AnnounceURLs = announce

	magnet := buildMagnetLink(t.CanonicalInfoHash, t.Title, trackerURL)

	if live, err := s.client.GetTorrent(ctx, t.CanonicalInfoHash); err == nil {
		if updErr := s.torrents.UpdateTrackerInfo(ctx, t.TorrentID, "primary", live.Seeders, live.Leechers); updErr != nil {
			s.log.Warn().Err(updErr).Msg("failed to persist refreshed tracker stats")
		}
	} else {
		s.log.Debug().Err(err).Msg("failed to refresh live tracker stats, keeping stored counts")
	}

	return &TorrentDetail{Torrent: t, Category: category, MagnetLink: magnet}, nil
}

func (s *Service) personalOrDefaultTrackerURL(ctx context.Context, userID *int64) (string, error) {
	if userID == nil {
		return s.trackerURL, nil
	}
	return s.keyCache.GetPersonalAnnounceURL(ctx, *userID)
}

func buildMagnetLink(canonicalHash, title, trackerURL string) string {
	v := url.Values{}
	v.Set("dn", title)
	v.Set("tr", trackerURL)
	return fmt.Sprintf("magnet:?xt=urn:btih:%s&%s", canonicalHash, v.Encode())
}

// UpdateParams carries the optional fields of a torrent metadata edit; a nil
// pointer means "leave unchanged".
type UpdateParams struct {
	Title        *string
	Description  *string
	CategoryName *string
	TagNames     []string
}

// UpdateTorrent applies the requested edits to an existing torrent. Only
// fields present in params are touched.
func (s *Service) UpdateTorrent(ctx context.Context, infoHash string, params UpdateParams) (*models.Torrent, error) {
	t, err := s.torrents.GetByInfoHash(ctx, infoHash)
	if err != nil {
		if errors.Is(err, models.ErrTorrentNotFound) {
			return nil, domain.NewServiceError(domain.ErrKindNotFound, domain.CodeTorrentNotFound, "torrent not found")
		}
		return nil, domain.WrapServiceError(domain.ErrKindInternal, domain.CodeDatabaseError, err)
	}

	if params.Title != nil {
		title := strings.TrimSpace(*params.Title)
		if len(title) < minTitleLength {
			return nil, domain.NewServiceError(domain.ErrKindValidation, domain.CodeInvalidTorrentTitleLength,
				fmt.Sprintf("title must be at least %d characters", minTitleLength))
		}
		if err := s.torrents.UpdateTitle(ctx, t.TorrentID, title); err != nil {
			return nil, translateTorrentStoreError(err)
		}
	}

	if params.Description != nil {
		if err := s.torrents.UpdateDescription(ctx, t.TorrentID, *params.Description); err != nil {
			return nil, domain.WrapServiceError(domain.ErrKindInternal, domain.CodeDatabaseError, err)
		}
	}

	if params.CategoryName != nil {
		category, err := s.categories.GetByName(ctx, *params.CategoryName)
		if err != nil {
			if errors.Is(err, models.ErrCategoryNotFound) {
				return nil, domain.NewServiceError(domain.ErrKindValidation, domain.CodeInvalidCategory, "unknown category")
			}
			return nil, domain.WrapServiceError(domain.ErrKindInternal, domain.CodeDatabaseError, err)
		}
		if err := s.torrents.UpdateCategory(ctx, t.TorrentID, category.CategoryID); err != nil {
			return nil, domain.WrapServiceError(domain.ErrKindInternal, domain.CodeDatabaseError, err)
		}
	}

	if params.TagNames != nil {
		tagIDs, err := s.resolveOrCreateTags(ctx, params.TagNames)
		if err != nil {
			return nil, err
		}
		if err := s.torrents.ReplaceTags(ctx, t.TorrentID, tagIDs); err != nil {
			return nil, domain.WrapServiceError(domain.ErrKindInternal, domain.CodeDatabaseError, err)
		}
	}

	return s.torrents.GetByInfoHash(ctx, infoHash)
}

// DownloadResult is what DownloadTorrent returns: the re-encoded metainfo
// bytes, ready to stream as application/x-bittorrent, plus the header
// values the route needs.
type DownloadResult struct {
	Bytes             []byte
	Name              string
	CanonicalInfoHash string
}

// DownloadTorrent loads a torrent, rewrites its announce URL(s) for the
// caller (personalized if userID is set, the default public URL
// otherwise), and re-encodes it to bencoded bytes.
func (s *Service) DownloadTorrent(ctx context.Context, infoHash string, userID *int64) (*DownloadResult, error) {
	t, err := s.torrents.GetByInfoHash(ctx, infoHash)
	if err != nil {
		if errors.Is(err, models.ErrTorrentNotFound) {
			return nil, domain.NewServiceError(domain.ErrKindNotFound, domain.CodeTorrentNotFound, "torrent not found")
		}
		return nil, domain.WrapServiceError(domain.ErrKindInternal, domain.CodeDatabaseError, err)
	}

	parsed := metainfoFromTorrent(t)
	if err := s.rewriter.Rewrite(ctx, parsed, userID); err != nil {
		return nil, domain.WrapServiceError(domain.ErrKindExternal, domain.CodeTrackerOffline, err)
	}

	encoded, err := metainfo.Encode(parsed)
	if err != nil {
		return nil, domain.WrapServiceError(domain.ErrKindInternal, domain.CodeInvalidTorrentFile, err)
	}

	return &DownloadResult{Bytes: encoded, Name: t.Name, CanonicalInfoHash: t.CanonicalInfoHash}, nil
}

func metainfoFromTorrent(t *models.Torrent) *metainfo.Torrent {
	mi := &metainfo.Torrent{
		InfoBytes:   t.InfoBytes,
		Name:        t.Name,
		Comment:     t.Comment,
		CreatedBy:   t.CreatedBy,
		Encoding:    t.Encoding,
	}
	if t.CreationDate.Valid {
		mi.CreationDate = t.CreationDate.Int64
	}
	if len(t.AnnounceURLs) > 0 {
		mi.Announce = t.AnnounceURLs[0]
		mi.AnnounceList = [][]string{{t.AnnounceURLs[0]}}
		for _, url := range t.AnnounceURLs[1:] {
			mi.AnnounceList = append(mi.AnnounceList, []string{url})
		}
	}
	return mi
}

// DeleteTorrent removes a torrent from the index and from the tracker's
// whitelist.
func (s *Service) DeleteTorrent(ctx context.Context, infoHash string) error {
	t, err := s.torrents.GetByInfoHash(ctx, infoHash)
	if err != nil {
		if errors.Is(err, models.ErrTorrentNotFound) {
			return domain.NewServiceError(domain.ErrKindNotFound, domain.CodeTorrentNotFound, "torrent not found")
		}
		return domain.WrapServiceError(domain.ErrKindInternal, domain.CodeDatabaseError, err)
	}

	if err := s.torrents.Delete(ctx, t.TorrentID); err != nil {
		return domain.WrapServiceError(domain.ErrKindInternal, domain.CodeDatabaseError, err)
	}

	if err := s.client.RemoveFromWhitelist(ctx, t.CanonicalInfoHash); err != nil {
		s.log.Warn().Err(err).Str("info_hash", t.CanonicalInfoHash).Msg("failed to remove torrent from tracker whitelist")
	}
	return nil
}

func translateTorrentStoreError(err error) error {
	switch {
	case errors.Is(err, models.ErrTorrentCanonicalInfoHashAlreadyExists):
		return domain.NewServiceError(domain.ErrKindConflict, domain.CodeCanonicalInfoHashAlreadyExists, "torrent already indexed")
	case errors.Is(err, models.ErrTorrentTitleAlreadyExists):
		return domain.NewServiceError(domain.ErrKindConflict, domain.CodeTorrentTitleAlreadyExists, "title already in use")
	default:
		return domain.WrapServiceError(domain.ErrKindInternal, domain.CodeDatabaseError, err)
	}
}

func torrentFromMetainfo(t *metainfo.Torrent, categoryID, uploaderID int64, canonicalHex string) *models.Torrent {
	out := &models.Torrent{
		UploaderID:        uploaderID,
		CategoryID:        categoryID,
		CanonicalInfoHash: canonicalHex,
		InfoBytes:         t.InfoBytes,
		Name:              t.Name,
		Pieces:            t.Pieces,
		PieceLength:       t.PieceLength,
		Private:           t.Private,
		IsBEP30:           t.IsBEP30(),
		Source:            t.Source,
		Comment:           t.Comment,
		CreatedBy:         t.CreatedBy,
		Encoding:          t.Encoding,
		AnnounceURLs:      flattenAnnounceList(t),
	}
	if t.CreationDate != 0 {
		out.CreationDate.Int64 = t.CreationDate
		out.CreationDate.Valid = true
	}
	if len(t.RootHash) > 0 {
		out.RootHash = fmt.Sprintf("%x", t.RootHash)
	}

	if len(t.Files) == 0 {
		out.Size = t.Length
		out.Files = []models.TorrentFile{{Path: t.Name, Length: t.Length}}
		return out
	}

	out.Files = make([]models.TorrentFile, 0, len(t.Files))
	for _, f := range t.Files {
		out.Size += f.Length
		out.Files = append(out.Files, models.TorrentFile{Path: strings.Join(f.Path, "/"), Length: f.Length, MD5Sum: f.MD5Sum})
	}
	return out
}

func flattenAnnounceList(t *metainfo.Torrent) []string {
	if t.Announce != "" {
		return []string{t.Announce}
	}
	var urls []string
	for _, tier := range t.AnnounceList {
		urls = append(urls, tier...)
	}
	return urls
}
