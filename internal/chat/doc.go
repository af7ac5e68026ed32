// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the interactive command loop.
//
// The loop reads one line at a time and classifies it:
//
//   - "exit" or "quit" ends the session
//   - "config", "config <key>" and "config <key> <value>" inspect or edit
//     the session configuration without contacting the provider
//   - any other non-empty line is sent to the provider, prefixed with the
//     instruction of the current mode, and the streamed answer is printed
//   - empty lines are ignored
//
// Only one completion is ever outstanding and no line is read while it
// runs. An interrupt cancels the in-flight completion and ends the session.
// On exit the session configuration and the history are persisted exactly
// once.
//
// # Key Types
//
//   - Loop: the command loop
//   - LineReader: source of input lines (liner in production)
//   - Persister: shutdown persistence of config and history
//
// # Usage
//
//	loop := chat.New(chat.Options{
//	    Reader:    reader,
//	    Pipeline:  pipeline.New(client, os.Stdout, os.Stderr),
//	    Config:    cfg,
//	    History:   storage.NewHistory(),
//	    Defaults:  settings.Params(identity, settings.Completion.MaxTokens),
//	    Persister: persister,
//	})
//	err := loop.Run(ctx)
package chat
