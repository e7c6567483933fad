// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metainfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/bencode"
)

func buildMetainfo(t *testing.T, info map[string]interface{}) []byte {
	t.Helper()
	infoBytes, err := bencode.EncodeBytes(info)
	require.NoError(t, err)

	full := map[string]interface{}{
		"announce": "https://tracker.example/announce",
		"info":     bencode.RawMessage(infoBytes),
	}
	raw, err := bencode.EncodeBytes(full)
	require.NoError(t, err)
	return raw
}

func singleFileInfo() map[string]interface{} {
	return map[string]interface{}{
		"name":         "MandelbrotSet",
		"piece length": int64(262144),
		"pieces":       string(make([]byte, 20)),
		"length":       int64(1024),
	}
}

func TestDecode_RoundTripsStandardFields(t *testing.T) {
	data := buildMetainfo(t, singleFileInfo())

	tr, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "MandelbrotSet", tr.Name)
	assert.Equal(t, int64(262144), tr.PieceLength)
	assert.Equal(t, int64(1024), tr.Length)
	assert.False(t, tr.IsBEP30())
	assert.Equal(t, "https://tracker.example/announce", tr.Announce)

	encoded, err := Encode(tr)
	require.NoError(t, err)
	assert.NotEmpty(t, encoded)

	again, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, tr.Name, again.Name)
	assert.Equal(t, InfoHash(tr), InfoHash(again))
}

func TestDecode_MissingInfo(t *testing.T) {
	raw, err := bencode.EncodeBytes(map[string]interface{}{"announce": "https://tracker.example/announce"})
	require.NoError(t, err)

	_, err = Decode(raw)
	assert.ErrorIs(t, err, ErrMissingInfo)
}

func TestDecode_InvalidPiecesLength(t *testing.T) {
	info := singleFileInfo()
	info["pieces"] = "short"
	data := buildMetainfo(t, info)

	_, err := Decode(data)
	assert.ErrorIs(t, err, ErrInvalidPiecesLength)
}

func TestDecode_BEP30RootHashWithoutPieces(t *testing.T) {
	info := map[string]interface{}{
		"name":         "MandelbrotSet",
		"piece length": int64(262144),
		"root hash":    string(make([]byte, 32)),
		"length":       int64(1024),
	}
	data := buildMetainfo(t, info)

	tr, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, tr.IsBEP30())
	assert.Empty(t, tr.Pieces)
}

func TestCanonicalInfoHash_IgnoresNonStandardKeys(t *testing.T) {
	base := singleFileInfo()
	baseData := buildMetainfo(t, base)
	baseTr, err := Decode(baseData)
	require.NoError(t, err)
	baseCanonical, err := CanonicalInfoHash(baseTr)
	require.NoError(t, err)

	withExtra := singleFileInfo()
	withExtra["custom"] = "gratuitous-duplicate-marker"
	withExtra["uniqueId"] = int64(42)
	extraData := buildMetainfo(t, withExtra)
	extraTr, err := Decode(extraData)
	require.NoError(t, err)
	extraCanonical, err := CanonicalInfoHash(extraTr)
	require.NoError(t, err)

	assert.Equal(t, baseCanonical, extraCanonical, "non-standard keys must not affect the canonical hash")
	assert.NotEqual(t, InfoHash(baseTr), InfoHash(extraTr), "the original info-hash must still differ")
}

func TestCanonicalInfoHash_StripsNonStandardFileKeys(t *testing.T) {
	info := map[string]interface{}{
		"name":         "multi",
		"piece length": int64(262144),
		"pieces":       string(make([]byte, 40)),
		"files": []interface{}{
			map[string]interface{}{"path": []interface{}{"a.bin"}, "length": int64(512), "attr": "x"},
			map[string]interface{}{"path": []interface{}{"b.bin"}, "length": int64(512)},
		},
	}
	data := buildMetainfo(t, info)
	tr, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, tr.Files, 2)

	h1, err := CanonicalInfoHash(tr)
	require.NoError(t, err)

	withoutAttr := map[string]interface{}{
		"name":         "multi",
		"piece length": int64(262144),
		"pieces":       string(make([]byte, 40)),
		"files": []interface{}{
			map[string]interface{}{"path": []interface{}{"a.bin"}, "length": int64(512)},
			map[string]interface{}{"path": []interface{}{"b.bin"}, "length": int64(512)},
		},
	}
	data2 := buildMetainfo(t, withoutAttr)
	tr2, err := Decode(data2)
	require.NoError(t, err)
	h2, err := CanonicalInfoHash(tr2)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
}

func TestInfoHash_IsDeterministic(t *testing.T) {
	data := buildMetainfo(t, singleFileInfo())
	tr1, err := Decode(data)
	require.NoError(t, err)
	tr2, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, InfoHash(tr1), InfoHash(tr2))
	assert.Len(t, InfoHash(tr1).HexString(), 40)
}
