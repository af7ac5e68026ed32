// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama implements llm.Client for a locally running Ollama daemon.
//
// Completions go through the /api/generate endpoint, which streams one JSON
// object per line until an object with "done": true arrives. The daemon
// only ever streams for loz, so Complete is served by collecting a stream.
//
// # Key Types
//
//   - Client: HTTP client for the generate endpoint
//   - GenerateRequest / GenerateResponse: wire types
//   - StreamReader: line-delimited JSON reader with an accumulator
//
// # Usage
//
//	if err := ollama.Probe(ctx, ""); err != nil {
//	    return err // daemon binary missing
//	}
//	client := ollama.NewClient()
//	completion, err := client.StreamComplete(ctx, params, func(s string) {
//	    fmt.Print(s)
//	})
package ollama
