// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Command indexd runs the torrent index server and its supporting
// operator tooling: database migrations, administrator bootstrap and a
// one-shot statistics import, alongside the long-running serve command.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/torrentindex/index/internal/buildinfo"
)

const defaultConfigPath = "config.toml"

func main() {
	root := &cobra.Command{
		Use:     "indexd",
		Short:   "Torrent index server",
		Version: buildinfo.Version,
	}

	root.AddCommand(RunServeCommand())
	root.AddCommand(RunDBCommand())
	root.AddCommand(RunUserCommand())
	root.AddCommand(RunImporterCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
