// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the gwen packages.
//
// # Key Functions
//
//   - AtomicWriteFile: crash-safe file writing with fsync (config files, exports)
//   - TruncateRunes: UTF-8 safe truncation with a trailing ellipsis
//   - TruncateWidth: display-width truncation for terminal columns
//
// # Usage
//
//	name := util.TruncateRunes(firstMessage, 30)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
