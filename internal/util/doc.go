// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the loz packages.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// String Utilities:
//   - TruncateWidth: display-width aware truncation with ellipsis
//   - OneLine: collapse whitespace runs for single-line listings
//
// # Usage
//
//	err := util.AtomicWriteFile(path, data, 0o600)
//	display := util.TruncateWidth(util.OneLine(answer), 60)
package util
