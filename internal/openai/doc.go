// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package openai implements llm.Client for the hosted OpenAI chat
// completions API and any server speaking the same wire format.
//
// Requests carry the whole prompt as a single user message. Streaming
// responses are read as Server-Sent Events until the "[DONE]" sentinel.
// Outgoing requests pass through a token-bucket limiter when a request
// rate is configured.
//
// # Usage
//
//	client, err := openai.New(openai.Config{APIKey: os.Getenv("OPENAI_API_KEY")})
//	if err != nil {
//	    return err
//	}
//	completion, err := client.StreamComplete(ctx, params, func(s string) {
//	    fmt.Print(s)
//	})
package openai
