// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the per-session key/value configuration the user
// edits with the "config" command of the interactive loop.
//
// Keys are unique and keep their insertion order for printing. Two keys are
// reserved: "mode" selects the prompt prefix applied to every interactive
// prompt, and "api" selects the provider at startup. The optional "model"
// key overrides the provider's default model.
//
// # Key Types
//
//   - Config: ordered, unique key/value entries
//   - Entry: one key/value pair
//   - Store: JSON persistence of a Config at a fixed path
//
// # Usage
//
//	store := session.NewStore(paths.SessionConfig)
//	cfg, err := store.Load()
//	if err != nil {
//	    return err
//	}
//	prev, existed := cfg.Set("mode", "esl")
//	defer store.Save(cfg)
package session
