// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"fmt"
	"regexp"
	"strings"
)

// UpdateLogSettingsInTOML rewrites the threshold/path/max_size/max_backups
// keys inside a document's [logging] table, editing existing lines -
// commented-out or not - in place rather than appending a duplicate section
// at the end of the file. A missing [logging] table is created.
func UpdateLogSettingsInTOML(content, threshold, path string, maxSize, maxBackups int) string {
	lines := strings.Split(content, "\n")

	start, end := findSection(lines, "logging")
	if start == -1 {
		if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) != "" {
			lines = append(lines, "")
		}
		lines = append(lines, "[logging]")
		start = len(lines) - 1
		end = len(lines)
	}

	body := append([]string(nil), lines[start+1:end]...)
	body = setTOMLKey(body, "threshold", quoteTOMLString(threshold))
	body = setTOMLKey(body, "path", quoteTOMLString(path))
	body = setTOMLKey(body, "max_size", fmt.Sprintf("%d", maxSize))
	body = setTOMLKey(body, "max_backups", fmt.Sprintf("%d", maxBackups))

	out := make([]string, 0, len(lines)+4)
	out = append(out, lines[:start+1]...)
	out = append(out, body...)
	out = append(out, lines[end:]...)
	return strings.Join(out, "\n")
}

// findSection returns the line index of "[name]" and the line index one
// past the end of its body (the next top-level table header, or len(lines)).
// It returns -1, -1 if the table is absent.
func findSection(lines []string, name string) (start, end int) {
	header := "[" + name + "]"
	start = -1
	for i, l := range lines {
		trimmed := strings.TrimSpace(l)
		if trimmed == header {
			start = i
			continue
		}
		if start != -1 && i > start && strings.HasPrefix(trimmed, "[") {
			return start, i
		}
	}
	if start == -1 {
		return -1, -1
	}
	return start, len(lines)
}

// setTOMLKey rewrites the first line in body matching "key = ..." (commented
// or not) to an active "key = value" line, or appends one if absent.
func setTOMLKey(body []string, key, value string) []string {
	pattern := regexp.MustCompile(`^\s*#?\s*` + regexp.QuoteMeta(key) + `\s*=`)
	for i, l := range body {
		if pattern.MatchString(l) {
			body[i] = fmt.Sprintf("%s = %s", key, value)
			return body
		}
	}
	return append(body, fmt.Sprintf("%s = %s", key, value))
}

func quoteTOMLString(s string) string {
	return fmt.Sprintf("%q", s)
}
