// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/loz/internal/llm"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the Ollama client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches sentinel errors by Type so wrapped causes still compare equal.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return t.Type == e.Type && t.Type != ErrTypeUnknown
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotRunning
	ErrTypeNotInstalled
	ErrTypeTimeout
	ErrTypeModelNotFound
	ErrTypeConnection
	ErrTypeInvalidResponse
)

// Sentinel errors for easy checking.
var (
	ErrNotRunning    = &ClientError{Type: ErrTypeNotRunning, Message: "Ollama is not running"}
	ErrNotInstalled  = &ClientError{Type: ErrTypeNotInstalled, Message: "Ollama is not installed"}
	ErrTimeout       = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrModelNotFound = &ClientError{Type: ErrTypeModelNotFound, Message: "model not found"}
)

const providerName = "ollama"

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// Default configuration values.
const (
	// DefaultBaseURL uses an explicit IPv4 address instead of localhost to
	// avoid IPv6 resolution issues on Windows.
	DefaultBaseURL = "http://127.0.0.1:11434"

	// DefaultModel is used when Params.Model is empty.
	DefaultModel = "llama2"

	// DefaultConnectTimeout bounds health checks.
	DefaultConnectTimeout = 5 * time.Second
)

// ClientConfig holds configuration options for the Ollama client.
type ClientConfig struct {
	// BaseURL is the Ollama API base URL (default: http://127.0.0.1:11434)
	BaseURL string

	// ConnectTimeout for health checks (default: 5s). Generation itself is
	// bounded only by the caller's context.
	ConnectTimeout time.Duration

	// DefaultModel to use if none specified (default: "llama2")
	DefaultModel string

	// HTTPClient overrides the transport. Mostly useful in tests.
	HTTPClient *http.Client
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:        DefaultBaseURL,
		ConnectTimeout: DefaultConnectTimeout,
		DefaultModel:   DefaultModel,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the Ollama API.
//
// The Client is thread-safe for concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

var _ llm.Client = (*Client)(nil)

// NewClient creates a new Ollama client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new Ollama client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	if config.DefaultModel == "" {
		config.DefaultModel = DefaultModel
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{config: config, httpClient: httpClient}
}

// Name returns the provider identity.
func (c *Client) Name() string {
	return providerName
}

// Capabilities reports that the daemon is only driven in streaming mode.
func (c *Client) Capabilities() llm.Capability {
	return llm.CanStream
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// CheckRunning verifies that Ollama is reachable and running.
func (c *Client) CheckRunning(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL, nil)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout
		}
		return &ClientError{Type: ErrTypeNotRunning, Message: ErrNotRunning.Message, Cause: err}
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &ClientError{
			Type:    ErrTypeConnection,
			Message: "unexpected status from Ollama: " + resp.Status,
		}
	}

	return nil
}

// =============================================================================
// GENERATE
// =============================================================================

// newRequest maps provider-neutral params onto a generate request.
func (c *Client) newRequest(params llm.Params) GenerateRequest {
	model := params.Model
	if model == "" {
		model = c.config.DefaultModel
	}
	return GenerateRequest{
		Model:  model,
		Prompt: params.Prompt,
		Stream: true,
		Options: &Options{
			Temperature:      params.Temperature,
			TopP:             params.TopP,
			PresencePenalty:  params.PresencePenalty,
			FrequencyPenalty: params.FrequencyPenalty,
			NumPredict:       params.MaxTokens,
			Stop:             params.Stop,
		},
	}
}

// Complete collects a streamed generation into one Completion.
func (c *Client) Complete(ctx context.Context, params llm.Params) (llm.Completion, error) {
	return c.StreamComplete(ctx, params, nil)
}

// StreamComplete sends a streaming generate request and calls onFragment for
// each non-empty fragment, synchronously and in arrival order.
func (c *Client) StreamComplete(ctx context.Context, params llm.Params, onFragment llm.FragmentFunc) (llm.Completion, error) {
	reqBody := c.newRequest(params)

	body, err := json.Marshal(reqBody)
	if err != nil {
		return llm.Completion{}, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return llm.Completion{}, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return llm.Completion{}, ctx.Err()
		}
		return llm.Completion{}, &llm.TransportError{
			Provider: providerName,
			Message:  "request failed",
			Err:      &ClientError{Type: ErrTypeNotRunning, Message: ErrNotRunning.Message, Cause: err},
		}
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return llm.Completion{}, c.handleErrorResponse(resp)
	}

	reader := NewStreamReader(resp.Body)
	var evalCount int
	err = reader.Process(ctx, func(chunk StreamChunk) {
		if chunk.Content != "" && onFragment != nil {
			onFragment(chunk.Content)
		}
		if chunk.Done {
			evalCount = chunk.EvalCount
		}
	})

	model := reader.Model()
	if model == "" {
		model = reqBody.Model
	}
	text := reader.Content()

	if err != nil {
		if text != "" {
			return llm.Completion{Text: text, Model: model}, &llm.StreamError{Partial: text, Err: err}
		}
		if ctx.Err() != nil {
			return llm.Completion{}, ctx.Err()
		}
		return llm.Completion{}, &llm.TransportError{Provider: providerName, Status: resp.StatusCode, Message: "stream failed", Err: err}
	}

	log.Debug().Str("model", model).Int("eval_count", evalCount).Dur("dur", time.Since(start)).Msg("ollama generate finished")
	return llm.Completion{Text: text, Model: model}, nil
}

// handleErrorResponse converts a non-2xx response into a TransportError.
func (c *Client) handleErrorResponse(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	msg := strings.TrimSpace(string(data))
	var oe OllamaError
	if json.Unmarshal(data, &oe) == nil && oe.Error != "" {
		msg = oe.Error
	}
	if msg == "" {
		msg = resp.Status
	}

	te := llm.NewStatusError(providerName, resp.StatusCode, msg)
	if resp.StatusCode == http.StatusNotFound {
		te.Err = &ClientError{Type: ErrTypeModelNotFound, Message: ErrModelNotFound.Message, Cause: errors.New(msg)}
	}
	return te
}

// =============================================================================
// UTILITY METHODS
// =============================================================================

// IsNotRunning checks if an error indicates Ollama is not running.
func IsNotRunning(err error) bool {
	return errors.Is(err, ErrNotRunning)
}

// IsNotInstalled checks if an error indicates the Ollama binary is missing.
func IsNotInstalled(err error) bool {
	return errors.Is(err, ErrNotInstalled)
}

// drainAndClose drains the response body so the connection can be reused.
func drainAndClose(r io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(r, 64*1024))
	r.Close()
}
