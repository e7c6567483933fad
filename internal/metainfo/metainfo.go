// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package metainfo decodes and encodes bencoded .torrent files and computes
// the two info-hashes an uploaded torrent carries: the hash of the info dict
// exactly as submitted, and the canonical hash of that dict with any
// non-standard keys stripped. The typed representation reuses
// anacrolix/torrent's metainfo and bencode codecs; canonicalization operates
// on the raw bencode tree directly since anacrolix/torrent's Info struct has
// no notion of "unknown key" to strip and does not model BEP-30 root hashes.
package metainfo

import (
	"bytes"
	"crypto/sha1"
	"errors"
	"fmt"
	"sort"

	anametainfo "github.com/anacrolix/torrent/metainfo"
	"github.com/zeebo/bencode"
)

var (
	ErrInvalidBencode      = errors.New("invalid bencode")
	ErrMissingInfo         = errors.New("metainfo is missing the info dict")
	ErrInvalidPiecesLength = errors.New("pieces length is not a multiple of 20 and no root hash is present")
)

// standardInfoKeys are the only keys retained when computing a canonical
// info-hash. "pieces" and "root hash" are mutually exclusive in practice
// (BEP-30), but both are allowed through the filter; whichever is present
// survives.
var standardInfoKeys = map[string]bool{
	"name":         true,
	"pieces":       true,
	"root hash":    true,
	"piece length": true,
	"length":       true,
	"files":        true,
	"md5sum":       true,
	"private":      true,
	"source":       true,
}

var standardFileKeys = map[string]bool{
	"path":   true,
	"length": true,
	"md5sum": true,
}

// Hash is a 20-byte SHA-1 info-hash.
type Hash [20]byte

func (h Hash) HexString() string {
	return fmt.Sprintf("%x", h[:])
}

// File describes one file within a multi-file torrent.
type File struct {
	Path   []string
	Length int64
	MD5Sum string
}

// Torrent is the decoded, typed form of a bencoded metainfo file.
type Torrent struct {
	// InfoBytes holds the raw bencoding of the info dict exactly as decoded,
	// non-standard keys included. info_hash is computed over these bytes
	// unmodified; canonical_info_hash is computed over a filtered copy.
	InfoBytes []byte

	Name        string
	PieceLength int64
	Pieces      []byte // empty when IsBEP30
	RootHash    []byte // non-empty only when IsBEP30
	Length      int64  // single-file torrents only
	Files       []File // multi-file torrents only
	Private     bool
	Source      string
	MD5Sum      string

	Announce     string
	AnnounceList [][]string
	Comment      string
	CreatedBy    string
	CreationDate int64
	Encoding     string
}

// IsBEP30 reports whether this torrent uses a per-file Merkle root instead
// of a flat SHA-1 piece list.
func (t *Torrent) IsBEP30() bool {
	return len(t.Pieces) == 0 && len(t.RootHash) > 0
}

// Decode parses a bencoded metainfo byte stream into a Torrent.
func Decode(data []byte) (*Torrent, error) {
	mi, err := anametainfo.Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBencode, err)
	}
	if len(mi.InfoBytes) == 0 {
		return nil, ErrMissingInfo
	}

	info, err := mi.UnmarshalInfo()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBencode, err)
	}

	rootHash, err := extractRootHash(mi.InfoBytes)
	if err != nil {
		return nil, err
	}

	if len(info.Pieces)%20 != 0 {
		return nil, ErrInvalidPiecesLength
	}
	if len(info.Pieces) == 0 && len(rootHash) == 0 {
		return nil, ErrInvalidPiecesLength
	}

	t := &Torrent{
		InfoBytes:   mi.InfoBytes,
		Name:        info.Name,
		PieceLength: info.PieceLength,
		Pieces:      info.Pieces,
		RootHash:    rootHash,
		Length:      info.Length,
		Source:      info.Source,
		Announce:    mi.Announce,
		Comment:     mi.Comment,
		CreatedBy:   mi.CreatedBy,
		CreationDate: mi.CreationDate,
		Encoding:    mi.Encoding,
	}
	if info.Private != nil {
		t.Private = *info.Private
	}
	for _, f := range info.Files {
		t.Files = append(t.Files, File{Path: f.Path, Length: f.Length})
	}
	for _, tier := range mi.AnnounceList {
		t.AnnounceList = append(t.AnnounceList, append([]string(nil), tier...))
	}

	return t, nil
}

// extractRootHash looks for a BEP-30 "root hash" key in the raw info dict,
// since anacrolix/torrent's Info struct has no field for it.
func extractRootHash(infoBytes []byte) ([]byte, error) {
	var raw map[string]bencode.RawMessage
	if err := bencode.DecodeBytes(infoBytes, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBencode, err)
	}
	rh, ok := raw["root hash"]
	if !ok {
		return nil, nil
	}
	var s string
	if err := bencode.DecodeBytes(rh, &s); err != nil {
		return nil, fmt.Errorf("%w: root hash is not a string", ErrInvalidBencode)
	}
	return []byte(s), nil
}

// Encode re-serializes a Torrent into bencoded bytes. Dict keys are sorted
// and integers use fixed decimal encoding, matching bencode.Marshal's
// standard behavior for map[string]interface{} and struct values.
func Encode(t *Torrent) ([]byte, error) {
	mi := anametainfo.MetaInfo{
		InfoBytes:    t.InfoBytes,
		Announce:     t.Announce,
		Comment:      t.Comment,
		CreatedBy:    t.CreatedBy,
		CreationDate: t.CreationDate,
		Encoding:     t.Encoding,
	}
	for _, tier := range t.AnnounceList {
		mi.AnnounceList = append(mi.AnnounceList, append([]string(nil), tier...))
	}

	var buf bytes.Buffer
	if err := mi.Write(&buf); err != nil {
		return nil, fmt.Errorf("encode metainfo: %w", err)
	}
	return buf.Bytes(), nil
}

// InfoHash returns the SHA-1 hash of the info dict exactly as submitted.
func InfoHash(t *Torrent) Hash {
	return Hash(sha1.Sum(t.InfoBytes))
}

// CanonicalInfoHash returns the SHA-1 hash of the info dict after stripping
// every key not in the standard set, recursively applied to each entry of
// "files".
func CanonicalInfoHash(t *Torrent) (Hash, error) {
	canonical, err := canonicalizeInfoBytes(t.InfoBytes)
	if err != nil {
		return Hash{}, err
	}
	return Hash(sha1.Sum(canonical)), nil
}

func canonicalizeInfoBytes(infoBytes []byte) ([]byte, error) {
	var raw map[string]bencode.RawMessage
	if err := bencode.DecodeBytes(infoBytes, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBencode, err)
	}

	filtered := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		if !standardInfoKeys[k] {
			continue
		}
		if k == "files" {
			files, err := canonicalizeFiles(v)
			if err != nil {
				return nil, err
			}
			filtered[k] = files
			continue
		}
		var decoded interface{}
		if err := bencode.DecodeBytes(v, &decoded); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBencode, err)
		}
		filtered[k] = decoded
	}

	return bencode.EncodeBytes(filtered)
}

func canonicalizeFiles(raw bencode.RawMessage) ([]map[string]interface{}, error) {
	var rawFiles []map[string]bencode.RawMessage
	if err := bencode.DecodeBytes(raw, &rawFiles); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBencode, err)
	}

	out := make([]map[string]interface{}, 0, len(rawFiles))
	for _, rf := range rawFiles {
		entry := make(map[string]interface{}, len(rf))
		for k, v := range rf {
			if !standardFileKeys[k] {
				continue
			}
			var decoded interface{}
			if err := bencode.DecodeBytes(v, &decoded); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidBencode, err)
			}
			entry[k] = decoded
		}
		out = append(out, entry)
	}
	return out, nil
}

// sortedKeys is retained for documentation purposes: bencode.EncodeBytes
// already sorts map[string]interface{} keys lexicographically, which is
// what makes Encode/canonicalizeInfoBytes deterministic.
func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
