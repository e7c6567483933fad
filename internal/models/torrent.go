// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/torrentindex/index/internal/database"
)

// TorrentFile is one entry of a multi-file torrent (or the single implicit
// entry of a single-file one, recorded the same way for uniform querying).
type TorrentFile struct {
	Path   string
	Length int64
	MD5Sum string
}

// Torrent is the decomposed, persisted form of an uploaded metainfo file.
type Torrent struct {
	TorrentID         int64
	UploaderID        int64
	CategoryID        int64
	CanonicalInfoHash string
	Size              int64
	Name              string
	Pieces            []byte
	RootHash          string
	PieceLength       int64
	Private           bool
	IsBEP30           bool
	Source            string
	Comment           string
	DateUploaded      time.Time
	CreationDate      sql.NullInt64
	CreatedBy         string
	Encoding          string

	// InfoBytes is the raw bencoded info dict exactly as uploaded, kept so a
	// download can re-encode a byte-identical metainfo without re-deriving it
	// from the decomposed fields above.
	InfoBytes []byte

	Title       string
	Description string

	Files        []TorrentFile
	AnnounceURLs []string // flattened, tier order then position order
	HTTPSeeds    []string
	Nodes        []TorrentNode

	TagIDs []int64
}

// TorrentNode is a DHT bootstrap node carried by the metainfo's "nodes" key.
type TorrentNode struct {
	Host string
	Port int
}

// TorrentListing is the read-optimized projection returned by listing and
// search endpoints: a Torrent plus its aggregated tracker statistics.
type TorrentListing struct {
	Torrent
	SeedersTotal  int64
	LeechersTotal int64
}

// NewTorrentMetadata carries the caller-supplied fields of an upload that
// are not derived from the metainfo bytes themselves.
type NewTorrentMetadata struct {
	Title       string
	Description string
	TagIDs      []int64
}

// TorrentStore persists Torrent rows and every table that decomposes one:
// files, announce URLs, http-seeds, nodes, tag links, and the title/
// description pair held in torrent_info.
type TorrentStore struct {
	db       database.TxBeginner
	groups   *InfoHashGroupStore
	maxPage  int
}

func NewTorrentStore(db database.TxBeginner, groups *InfoHashGroupStore, maxPageSize int) *TorrentStore {
	if maxPageSize <= 0 {
		maxPageSize = 50
	}
	return &TorrentStore{db: db, groups: groups, maxPage: maxPageSize}
}

// Add persists a fully-decomposed Torrent inside a single transaction.
// originalInfoHash may differ from t.CanonicalInfoHash when the uploaded
// info dict carried non-standard keys; both are recorded in the group
// store, but only the canonical row is written to the torrents table.
func (s *TorrentStore) Add(ctx context.Context, t *Torrent, originalInfoHash string, meta NewTorrentMetadata) (int64, error) {
	t.Title = strings.TrimSpace(meta.Title)
	t.Description = normalizeDescription(meta.Description)
	t.TagIDs = meta.TagIDs

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO torrents (
			uploader_id, category_id, canonical_info_hash, size, name, pieces, root_hash,
			piece_length, is_private, is_bep_30, source, comment, date_uploaded,
			creation_date, created_by, encoding, info_bytes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.UploaderID, t.CategoryID, t.CanonicalInfoHash, t.Size, t.Name, nullBytes(t.Pieces), nullString(t.RootHash),
		t.PieceLength, t.Private, t.IsBEP30, nullString(t.Source), nullString(t.Comment), time.Now().UTC(),
		t.CreationDate, nullString(t.CreatedBy), nullString(t.Encoding), t.InfoBytes,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return 0, ErrTorrentCanonicalInfoHashAlreadyExists
		}
		return 0, fmt.Errorf("insert torrent: %w", err)
	}

	torrentID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read torrent id: %w", err)
	}
	t.TorrentID = torrentID

	if err := s.addMappingTx(ctx, tx, originalInfoHash, t.CanonicalInfoHash); err != nil {
		return 0, err
	}

	for _, f := range t.Files {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO torrent_files (torrent_id, path, length, md5sum) VALUES (?, ?, ?, ?)`,
			torrentID, f.Path, f.Length, nullString(f.MD5Sum),
		); err != nil {
			return 0, fmt.Errorf("insert torrent file: %w", err)
		}
	}

	for tier, url := range t.AnnounceURLs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO torrent_announce_urls (torrent_id, tracker_url, tier, position) VALUES (?, ?, ?, ?)`,
			torrentID, url, 0, tier,
		); err != nil {
			return 0, fmt.Errorf("insert announce url: %w", err)
		}
	}

	for _, seed := range t.HTTPSeeds {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO torrent_http_seeds (torrent_id, seed_url) VALUES (?, ?)`, torrentID, seed,
		); err != nil {
			return 0, fmt.Errorf("insert http seed: %w", err)
		}
	}

	for _, node := range t.Nodes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO torrent_nodes (torrent_id, host, port) VALUES (?, ?, ?)`, torrentID, node.Host, node.Port,
		); err != nil {
			return 0, fmt.Errorf("insert node: %w", err)
		}
	}

	if err := linkTags(ctx, tx, torrentID, t.TagIDs); err != nil {
		return 0, err
	}

	if t.Title == "" {
		return 0, fmt.Errorf("title must not be empty")
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO torrent_info (torrent_id, title, description) VALUES (?, ?, ?)`,
		torrentID, t.Title, nullString(t.Description),
	); err != nil {
		if isUniqueConstraintError(err) {
			return 0, ErrTorrentTitleAlreadyExists
		}
		return 0, fmt.Errorf("insert torrent info: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return torrentID, nil
}

// addMappingTx is AddMapping run against the caller's transaction rather
// than InfoHashGroupStore's own Querier, so the group row and the Torrent
// row commit or roll back together.
func (s *TorrentStore) addMappingTx(ctx context.Context, tx database.Querier, originalHash, canonicalHash string) error {
	scoped := NewInfoHashGroupStore(tx)
	if originalHash != canonicalHash {
		if err := scoped.AddMapping(ctx, canonicalHash, canonicalHash, false); err != nil {
			return err
		}
	}
	return scoped.AddMapping(ctx, originalHash, canonicalHash, true)
}

// GetByInfoHash resolves any info-hash (original or canonical) via the
// group store, then loads the canonical Torrent row together with its
// title/description and decomposed child rows.
func (s *TorrentStore) GetByInfoHash(ctx context.Context, anyHash string) (*Torrent, error) {
	canonical, err := s.groups.FindCanonical(ctx, anyHash)
	if errors.Is(err, ErrInfoHashNotFound) {
		return nil, ErrTorrentNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.getByCanonicalHash(ctx, canonical)
}

func (s *TorrentStore) getByCanonicalHash(ctx context.Context, canonical string) (*Torrent, error) {
	t := &Torrent{}
	var pieces []byte
	var rootHash, source, comment, createdBy, encoding, description sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT t.torrent_id, t.uploader_id, t.category_id, t.canonical_info_hash, t.size, t.name,
			t.pieces, t.root_hash, t.piece_length, t.is_private, t.is_bep_30, t.source, t.comment,
			t.date_uploaded, t.creation_date, t.created_by, t.encoding, t.info_bytes, i.title, i.description
		FROM torrents t
		JOIN torrent_info i ON i.torrent_id = t.torrent_id
		WHERE t.canonical_info_hash = ?
	`, canonical).Scan(
		&t.TorrentID, &t.UploaderID, &t.CategoryID, &t.CanonicalInfoHash, &t.Size, &t.Name,
		&pieces, &rootHash, &t.PieceLength, &t.Private, &t.IsBEP30, &source, &comment,
		&t.DateUploaded, &t.CreationDate, &createdBy, &encoding, &t.InfoBytes, &t.Title, &description,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTorrentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get torrent: %w", err)
	}
	t.Pieces = pieces
	t.RootHash = rootHash.String
	t.Source = source.String
	t.Comment = comment.String
	t.CreatedBy = createdBy.String
	t.Encoding = encoding.String
	t.Description = description.String

	if err := s.loadChildren(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TorrentStore) loadChildren(ctx context.Context, t *Torrent) error {
	fileRows, err := s.db.QueryContext(ctx,
		`SELECT path, length, md5sum FROM torrent_files WHERE torrent_id = ? ORDER BY id`, t.TorrentID)
	if err != nil {
		return fmt.Errorf("list torrent files: %w", err)
	}
	defer fileRows.Close()
	for fileRows.Next() {
		var f TorrentFile
		var md5 sql.NullString
		if err := fileRows.Scan(&f.Path, &f.Length, &md5); err != nil {
			return fmt.Errorf("scan torrent file: %w", err)
		}
		f.MD5Sum = md5.String
		t.Files = append(t.Files, f)
	}
	if err := fileRows.Err(); err != nil {
		return err
	}

	urlRows, err := s.db.QueryContext(ctx,
		`SELECT tracker_url FROM torrent_announce_urls WHERE torrent_id = ? ORDER BY tier, position`, t.TorrentID)
	if err != nil {
		return fmt.Errorf("list announce urls: %w", err)
	}
	defer urlRows.Close()
	for urlRows.Next() {
		var u string
		if err := urlRows.Scan(&u); err != nil {
			return fmt.Errorf("scan announce url: %w", err)
		}
		t.AnnounceURLs = append(t.AnnounceURLs, u)
	}
	if err := urlRows.Err(); err != nil {
		return err
	}

	seedRows, err := s.db.QueryContext(ctx,
		`SELECT seed_url FROM torrent_http_seeds WHERE torrent_id = ?`, t.TorrentID)
	if err != nil {
		return fmt.Errorf("list http seeds: %w", err)
	}
	defer seedRows.Close()
	for seedRows.Next() {
		var u string
		if err := seedRows.Scan(&u); err != nil {
			return fmt.Errorf("scan http seed: %w", err)
		}
		t.HTTPSeeds = append(t.HTTPSeeds, u)
	}
	if err := seedRows.Err(); err != nil {
		return err
	}

	nodeRows, err := s.db.QueryContext(ctx,
		`SELECT host, port FROM torrent_nodes WHERE torrent_id = ?`, t.TorrentID)
	if err != nil {
		return fmt.Errorf("list nodes: %w", err)
	}
	defer nodeRows.Close()
	for nodeRows.Next() {
		var n TorrentNode
		if err := nodeRows.Scan(&n.Host, &n.Port); err != nil {
			return fmt.Errorf("scan node: %w", err)
		}
		t.Nodes = append(t.Nodes, n)
	}
	return nodeRows.Err()
}

// Delete removes a torrent; every table keyed by torrent_id cascades via
// foreign keys. Its torrent_info_hashes rows are not removed.
func (s *TorrentStore) Delete(ctx context.Context, torrentID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM torrents WHERE torrent_id = ?`, torrentID)
	if err != nil {
		return fmt.Errorf("delete torrent: %w", err)
	}
	return requireRowsAffected(res, ErrTorrentNotFound)
}

func (s *TorrentStore) UpdateTitle(ctx context.Context, torrentID int64, title string) error {
	title = strings.TrimSpace(title)
	res, err := s.db.ExecContext(ctx, `UPDATE torrent_info SET title = ? WHERE torrent_id = ?`, title, torrentID)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrTorrentTitleAlreadyExists
		}
		return fmt.Errorf("update title: %w", err)
	}
	return requireRowsAffected(res, ErrTorrentNotFound)
}

func (s *TorrentStore) UpdateDescription(ctx context.Context, torrentID int64, description string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE torrent_info SET description = ? WHERE torrent_id = ?`, nullString(normalizeDescription(description)), torrentID)
	if err != nil {
		return fmt.Errorf("update description: %w", err)
	}
	return requireRowsAffected(res, ErrTorrentNotFound)
}

func (s *TorrentStore) UpdateCategory(ctx context.Context, torrentID, categoryID int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE torrents SET category_id = ? WHERE torrent_id = ?`, categoryID, torrentID)
	if err != nil {
		if isForeignKeyConstraintError(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("update category: %w", err)
	}
	return requireRowsAffected(res, ErrTorrentNotFound)
}

// ReplaceTags drops every existing torrent_tag_links row for torrentID and
// relinks it against tagIDs, inside one transaction so a failed relink
// can't leave the torrent with no tags at all.
func (s *TorrentStore) ReplaceTags(ctx context.Context, torrentID int64, tagIDs []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM torrent_tag_links WHERE torrent_id = ?`, torrentID); err != nil {
		return fmt.Errorf("clear tags: %w", err)
	}

	if err := linkTags(ctx, tx, torrentID, tagIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// TorrentSort enumerates the sort orders search_sorted_paginated accepts.
type TorrentSort string

const (
	SortUploadedAsc  TorrentSort = "uploaded_asc"
	SortUploadedDesc TorrentSort = "uploaded_desc"
	SortSeedersAsc   TorrentSort = "seeders_asc"
	SortSeedersDesc  TorrentSort = "seeders_desc"
	SortLeechersAsc  TorrentSort = "leechers_asc"
	SortLeechersDesc TorrentSort = "leechers_desc"
	SortNameAsc      TorrentSort = "name_asc"
	SortNameDesc     TorrentSort = "name_desc"
	SortSizeAsc      TorrentSort = "size_asc"
	SortSizeDesc     TorrentSort = "size_desc"
)

var sortColumns = map[TorrentSort]string{
	SortUploadedAsc:  "t.date_uploaded ASC",
	SortUploadedDesc: "t.date_uploaded DESC",
	SortSeedersAsc:   "seeders_total ASC",
	SortSeedersDesc:  "seeders_total DESC",
	SortLeechersAsc:  "leechers_total ASC",
	SortLeechersDesc: "leechers_total DESC",
	SortNameAsc:      "t.name ASC",
	SortNameDesc:     "t.name DESC",
	SortSizeAsc:      "t.size ASC",
	SortSizeDesc:     "t.size DESC",
}

// SearchParams bundles search_sorted_paginated's filters.
type SearchParams struct {
	Search     string
	Categories []string
	Tags       []string
	Sort       TorrentSort
	Offset     int
	Limit      int
}

// SearchSortedPaginated implements the listing/search contract: a
// case-insensitive substring match on title, an OR filter over valid
// category and tag names (unknown names are silently dropped), and a
// clamp on limit by the configured page size ceiling.
func (s *TorrentStore) SearchSortedPaginated(ctx context.Context, p SearchParams) (int64, []*TorrentListing, error) {
	limit := p.Limit
	if limit <= 0 || limit > s.maxPage {
		limit = s.maxPage
	}
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}

	orderBy, ok := sortColumns[p.Sort]
	if !ok {
		orderBy = sortColumns[SortUploadedDesc]
	}

	categoryIDs, err := s.resolveCategoryIDs(ctx, p.Categories)
	if err != nil {
		return 0, nil, err
	}
	tagIDs, err := s.resolveTagIDs(ctx, p.Tags)
	if err != nil {
		return 0, nil, err
	}

	where := []string{"i.title LIKE ?"}
	args := []any{"%" + p.Search + "%"}

	if len(p.Categories) > 0 {
		if len(categoryIDs) == 0 {
			return 0, nil, nil
		}
		where = append(where, "t.category_id IN ("+placeholders(len(categoryIDs))+")")
		args = append(args, toAnySlice(categoryIDs)...)
	}
	if len(p.Tags) > 0 {
		if len(tagIDs) == 0 {
			return 0, nil, nil
		}
		where = append(where, "t.torrent_id IN (SELECT torrent_id FROM torrent_tag_links WHERE tag_id IN ("+placeholders(len(tagIDs))+"))")
		args = append(args, toAnySlice(tagIDs)...)
	}

	whereClause := strings.Join(where, " AND ")

	var total int64
	countQuery := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM torrents t
		JOIN torrent_info i ON i.torrent_id = t.torrent_id
		WHERE %s
	`, whereClause)
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return 0, nil, fmt.Errorf("count torrents: %w", err)
	}
	if total == 0 {
		return 0, nil, nil
	}

	listQuery := fmt.Sprintf(`
		SELECT t.torrent_id, t.canonical_info_hash, t.size, t.name, t.category_id, t.date_uploaded,
			i.title, i.description,
			COALESCE(SUM(s.seeders), 0) AS seeders_total,
			COALESCE(SUM(s.leechers), 0) AS leechers_total
		FROM torrents t
		JOIN torrent_info i ON i.torrent_id = t.torrent_id
		LEFT JOIN torrent_tracker_stats s ON s.torrent_id = t.torrent_id
		WHERE %s
		GROUP BY t.torrent_id
		ORDER BY %s
		LIMIT ? OFFSET ?
	`, whereClause, orderBy)
	listArgs := append(append([]any{}, args...), limit, offset)

	rows, err := s.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return 0, nil, fmt.Errorf("search torrents: %w", err)
	}
	defer rows.Close()

	var out []*TorrentListing
	for rows.Next() {
		l := &TorrentListing{}
		var description sql.NullString
		if err := rows.Scan(
			&l.TorrentID, &l.CanonicalInfoHash, &l.Size, &l.Name, &l.CategoryID, &l.DateUploaded,
			&l.Title, &description, &l.SeedersTotal, &l.LeechersTotal,
		); err != nil {
			return 0, nil, fmt.Errorf("scan listing: %w", err)
		}
		l.Description = description.String
		out = append(out, l)
	}
	return total, out, rows.Err()
}

func (s *TorrentStore) resolveCategoryIDs(ctx context.Context, names []string) ([]int64, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var ids []int64
	for _, name := range names {
		cat, err := (&CategoryStore{db: s.db}).GetByName(ctx, name)
		if errors.Is(err, ErrCategoryNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, cat.CategoryID)
	}
	return ids, nil
}

func (s *TorrentStore) resolveTagIDs(ctx context.Context, names []string) ([]int64, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var ids []int64
	for _, name := range names {
		tag, err := (&TagStore{db: s.db}).GetByName(ctx, name)
		if errors.Is(err, ErrTagNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, tag.TagID)
	}
	return ids, nil
}

// GetTorrentsWithStatsNotUpdatedSince returns torrents whose newest
// torrent_tracker_stats.updated_at is older than cutoff, or that have no
// stats row at all, oldest first. Used by the statistics importer to pick
// its next batch.
func (s *TorrentStore) GetTorrentsWithStatsNotUpdatedSince(ctx context.Context, cutoff time.Time, limit int) ([]*Torrent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.torrent_id, t.canonical_info_hash
		FROM torrents t
		LEFT JOIN (
			SELECT torrent_id, MAX(updated_at) AS last_updated
			FROM torrent_tracker_stats
			GROUP BY torrent_id
		) s ON s.torrent_id = t.torrent_id
		WHERE s.last_updated IS NULL OR s.last_updated < ?
		ORDER BY COALESCE(s.last_updated, '1970-01-01')
		LIMIT ?
	`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale torrents: %w", err)
	}
	defer rows.Close()

	var out []*Torrent
	for rows.Next() {
		t := &Torrent{}
		if err := rows.Scan(&t.TorrentID, &t.CanonicalInfoHash); err != nil {
			return nil, fmt.Errorf("scan stale torrent: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTrackerInfo upserts the per-tracker seeder/leecher count for a
// torrent, keyed by (torrent_id, tracker_url). Implemented as
// select-then-write rather than a dialect-specific upsert statement.
func (s *TorrentStore) UpdateTrackerInfo(ctx context.Context, torrentID int64, trackerURL string, seeders, leechers int) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM torrent_tracker_stats WHERE torrent_id = ? AND tracker_url = ?`, torrentID, trackerURL,
	).Scan(&exists)

	now := time.Now().UTC()
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO torrent_tracker_stats (torrent_id, tracker_url, seeders, leechers, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`, torrentID, trackerURL, seeders, leechers, now)
	case err == nil:
		_, err = s.db.ExecContext(ctx, `
			UPDATE torrent_tracker_stats SET seeders = ?, leechers = ?, updated_at = ?
			WHERE torrent_id = ? AND tracker_url = ?
		`, seeders, leechers, now, torrentID, trackerURL)
	}
	if err != nil {
		return fmt.Errorf("update tracker info: %w", err)
	}
	return nil
}

func normalizeDescription(description string) string {
	return strings.TrimSpace(description)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

func placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = "?"
	}
	return strings.Join(ph, ", ")
}

func toAnySlice(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
