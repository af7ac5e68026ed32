// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides application settings loading for loz.
//
// Settings are read from an optional TOML file, filled with defaults,
// overridden from the environment and validated. They are distinct from the
// per-session key/value configuration managed by package session, which the
// user edits from inside the interactive loop.
//
// # Key Types
//
//   - Settings: complete application settings
//   - OpenAIConfig / OllamaConfig: provider settings
//   - CompletionConfig: default completion parameters
//   - Paths: where loz keeps its files (dev or installed layout)
//
// # Configuration Precedence
//
// Settings are loaded from (in order of precedence):
//   - Environment variables (OPENAI_API_KEY, OPENAI_BASE_URL, OLLAMA_HOST, LOZ_DEBUG)
//   - ~/.loz/settings.toml
//   - Built-in defaults
//
// # Usage
//
//	settings, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	paths, err := config.ResolvePaths()
package config
