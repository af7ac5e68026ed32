// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package llm defines the provider-neutral completion contract used by loz.
//
// Every backend (the hosted OpenAI-compatible API, the local Ollama daemon)
// implements Client. The rest of the program only ever talks to this
// interface, so the active backend can be swapped without touching the
// command loop or the commit flow.
//
// # Key Types
//
//   - Client: polymorphic completion interface (complete / stream complete)
//   - Params: immutable per-invocation completion parameters
//   - Completion: the materialized answer and the model that produced it
//   - Identity: which backend is active ("openai", "ollama")
//
// # Errors
//
// Transport failures are reported as *TransportError. Authentication (401)
// and rate limiting (429) failures match ErrAuth and ErrRateLimited through
// errors.Is. A stream that breaks after delivering fragments is reported
// as *StreamError carrying the partial text.
package llm
