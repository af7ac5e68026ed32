// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides history persistence for loz.
//
// A History is the append-only record of the prompt/answer pairs of one run.
// At shutdown it is written whole to a timestamped JSON file and recorded in
// a sqlite archive that backs the --history listing.
//
// # Key Types
//
//   - ChatTurn: one recorded prompt/answer exchange
//   - History: ordered turns of the current run
//   - Store: timestamped JSON files in a log directory
//   - Archive: sqlite archive of every saved turn
//
// # Usage
//
//	h := storage.NewHistory()
//	h.Append(storage.ChatTurn{Mode: "default", Prompt: p, Answer: a})
//	path, err := storage.NewStore(paths.HistoryDir).SaveHistory(h)
package storage
