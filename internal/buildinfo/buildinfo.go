// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package buildinfo exposes version metadata stamped in at link time via
// -ldflags, falling back to "dev" values for local builds.
package buildinfo

import (
	"encoding/json"
	"fmt"
	"runtime"
)

var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// UserAgent identifies this binary and its platform, set once at package
// init. The tracker client and the image fetcher do not send it.
var UserAgent string

func init() {
	UserAgent = fmt.Sprintf("indexd/%s (%s; %s)", Version, runtime.GOOS, runtime.GOARCH)
}

// String renders a short, human-readable build summary.
func String() string {
	return fmt.Sprintf("Version: %s\nCommit: %s\nBuild date: %s\n", Version, Commit, Date)
}

type info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// JSON renders the same build metadata as a JSON object.
func JSON() ([]byte, error) {
	return json.Marshal(info{Version: Version, Commit: Commit, Date: Date})
}
