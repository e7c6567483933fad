// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package auth

import "errors"

// Action identifies an operation gated by Authorize.
type Action string

const (
	ActionGetImageByUrl  Action = "GetImageByUrl"
	ActionBanUser        Action = "BanUser"
	ActionManageCategory Action = "ManageCategory"
	ActionManageTag      Action = "ManageTag"
	ActionUpdateSettings Action = "UpdateSettings"
	ActionDeleteTorrent  Action = "DeleteTorrent"
	ActionUpdateTorrent  Action = "UpdateTorrent"
)

// ErrUnauthorized is returned by Authorize when the acting user's role (and,
// for UpdateTorrent, ownership) does not permit the action.
var ErrUnauthorized = errors.New("unauthorized")

// adminOnly lists actions only an administrator may perform.
var adminOnly = map[Action]bool{
	ActionBanUser:        true,
	ActionManageCategory: true,
	ActionManageTag:      true,
	ActionUpdateSettings: true,
	ActionDeleteTorrent:  true,
}

// Authorize gates action for the caller described by claims. ownerID is the
// uploader_id of the torrent being acted on; it matters only for
// UpdateTorrent, where a non-administrator caller must be that uploader.
// Any action not in the known set is denied rather than silently allowed.
func Authorize(action Action, claims UserClaims, ownerID *int64) error {
	switch action {
	case ActionGetImageByUrl:
		return nil
	case ActionUpdateTorrent:
		if claims.Administrator || (ownerID != nil && *ownerID == claims.UserID) {
			return nil
		}
		return ErrUnauthorized
	default:
		if !adminOnly[action] {
			return ErrUnauthorized
		}
		if !claims.Administrator {
			return ErrUnauthorized
		}
		return nil
	}
}
