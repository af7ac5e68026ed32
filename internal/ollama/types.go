// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import "time"

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Options contains model parameters for inference.
type Options struct {
	Temperature      float64  `json:"temperature"`                 // 0.0-2.0
	TopP             float64  `json:"top_p,omitempty"`             // 0.0-1.0
	PresencePenalty  float64  `json:"presence_penalty,omitempty"`  // Default 0.0
	FrequencyPenalty float64  `json:"frequency_penalty,omitempty"` // Default 0.0
	NumPredict       int      `json:"num_predict,omitempty"`       // Max tokens to generate
	Stop             []string `json:"stop,omitempty"`              // Stop sequences
}

// GenerateRequest is the request body for the /api/generate endpoint.
type GenerateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	System  string   `json:"system,omitempty"`
	Options *Options `json:"options,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// GenerateResponse is one line of a /api/generate stream.
type GenerateResponse struct {
	Model           string    `json:"model"`
	CreatedAt       time.Time `json:"created_at"`
	Response        string    `json:"response"`
	Done            bool      `json:"done"`
	DoneReason      string    `json:"done_reason,omitempty"`
	TotalDuration   int64     `json:"total_duration,omitempty"`
	PromptEvalCount int       `json:"prompt_eval_count,omitempty"`
	EvalCount       int       `json:"eval_count,omitempty"`
	EvalDuration    int64     `json:"eval_duration,omitempty"`
	Error           string    `json:"error,omitempty"`
}

// StreamChunk is the parsed form of one stream line delivered to callbacks.
type StreamChunk struct {
	Content string
	Model   string
	Done    bool

	// Populated on the final chunk.
	EvalCount     int
	TotalDuration time.Duration
}

// StreamCallback is called for each chunk received during streaming.
type StreamCallback func(chunk StreamChunk)

// OllamaError is the error body returned by the daemon.
type OllamaError struct {
	Error string `json:"error"`
}
