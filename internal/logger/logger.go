// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package logger configures the process-wide zerolog logger from
// domain.LoggingConfig: console output to stderr, or rotating JSON files
// via lumberjack when a log path is configured.
package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/torrentindex/index/internal/domain"
)

// Configure sets zerolog's global level and output writer and returns the
// resulting logger. Callers pass it on to components that take an explicit
// zerolog.Logger (index.Service, users.Service, tracker.Client, ...); the
// rest of the codebase logs through the global log.Logger this sets.
func Configure(cfg domain.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Threshold))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var writer zerolog.ConsoleWriter
	if cfg.Path == "" {
		writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	} else {
		maxSize := cfg.MaxSize
		if maxSize <= 0 {
			maxSize = 50
		}
		maxBackups := cfg.MaxBackups
		if maxBackups <= 0 {
			maxBackups = 3
		}
		writer = zerolog.ConsoleWriter{
			Out: &lumberjack.Logger{
				Filename:   cfg.Path,
				MaxSize:    maxSize,
				MaxBackups: maxBackups,
				Compress:   true,
			},
			NoColor:    true,
			TimeFormat: "15:04:05",
		}
	}

	logger := zerolog.New(writer).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}
