// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jeranaias/loz/internal/llm"
)

// Configuration constants for the chat completions API.
const (
	// DefaultBaseURL is the base URL of the hosted API.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when Params.Model is empty.
	DefaultModel = "gpt-3.5-turbo"

	// DefaultTimeout bounds non-streaming requests.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the number of attempts for transient (5xx) failures.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay is the maximum delay for exponential backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize caps how much of a non-streaming body is read.
	MaxResponseSize = 10 * 1024 * 1024

	providerName = "openai"
)

// ErrNotConfigured indicates no API key was supplied.
var ErrNotConfigured = errors.New("OPENAI_API_KEY is not set")

// Config holds the client configuration.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int

	// RequestsPerMinute paces outgoing requests. Zero means unlimited.
	RequestsPerMinute int

	// HTTPClient overrides the transport. Mostly useful in tests.
	HTTPClient *http.Client
}

// Client talks to an OpenAI-compatible chat completions endpoint.
// It is safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	maxRetries int
	http       *http.Client
	stream     *http.Client
	limiter    *rate.Limiter
}

var _ llm.Client = (*Client)(nil)

// New creates a client, filling unset fields with defaults.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	httpClient := cfg.HTTPClient
	streamClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
		// No timeout for streaming; the context controls it.
		streamClient = &http.Client{}
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxRetries: cfg.MaxRetries,
		http:       httpClient,
		stream:     streamClient,
		limiter:    newLimiter(cfg.RequestsPerMinute),
	}, nil
}

// newLimiter returns a token bucket allowing rpm requests per minute with
// a burst of one, or an unlimited bucket when rpm is not positive.
func newLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
}

// Name returns the provider identity.
func (c *Client) Name() string {
	return providerName
}

// Capabilities reports that both call styles are served natively.
func (c *Client) Capabilities() llm.Capability {
	return llm.CanComplete | llm.CanStream
}

// newRequest builds the chat request body from params.
func newRequest(params llm.Params, stream bool) ChatRequest {
	model := params.Model
	if model == "" {
		model = DefaultModel
	}
	return ChatRequest{
		Model:            model,
		Messages:         []Message{{Role: "user", Content: params.Prompt}},
		MaxTokens:        params.MaxTokens,
		Temperature:      params.Temperature,
		TopP:             params.TopP,
		FrequencyPenalty: params.FrequencyPenalty,
		PresencePenalty:  params.PresencePenalty,
		Stop:             params.Stop,
		Stream:           stream,
	}
}

// setHeaders sets the headers every request needs.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "loz")
}

// =============================================================================
// NON-STREAMING COMPLETION
// =============================================================================

// Complete performs a single non-streaming completion request.
// Transient server errors are retried with exponential backoff; 401 and 429
// are returned immediately so the caller can surface a precise diagnostic.
func (c *Client) Complete(ctx context.Context, params llm.Params) (llm.Completion, error) {
	reqBody := newRequest(params, false)

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := calculateBackoff(attempt)
			log.Debug().Int("attempt", attempt).Dur("delay", delay).Msg("retrying completion")
			select {
			case <-ctx.Done():
				return llm.Completion{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := c.doRequest(ctx, reqBody)
		if err != nil {
			if isRetryable(err) {
				lastErr = err
				continue
			}
			return llm.Completion{}, err
		}

		model := resp.Model
		if model == "" {
			model = reqBody.Model
		}
		return llm.Completion{Text: resp.GetContent(), Model: model}, nil
	}

	return llm.Completion{}, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// doRequest performs one HTTP round trip against /chat/completions.
func (c *Client) doRequest(ctx context.Context, reqBody ChatRequest) (*ChatResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &llm.TransportError{Provider: providerName, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	log.Debug().Int("status", resp.StatusCode).Dur("dur", time.Since(start)).Str("model", reqBody.Model).Msg("openai completion")

	body, err := readResponse(resp)
	if err != nil {
		return nil, &llm.TransportError{Provider: providerName, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, handleErrorResponse(resp.StatusCode, body)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, &llm.TransportError{Provider: providerName, Status: resp.StatusCode, Message: "failed to parse response", Err: err}
	}
	return &chatResp, nil
}

// readResponse reads the body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// handleErrorResponse converts a non-2xx response into a TransportError.
// The status is preserved so 401 and 429 match llm.ErrAuth and
// llm.ErrRateLimited.
func handleErrorResponse(statusCode int, body []byte) error {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return llm.NewStatusError(providerName, statusCode, apiErr.Error.Message)
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(statusCode)
	}
	return llm.NewStatusError(providerName, statusCode, msg)
}

// isRetryable reports whether a failed request should be attempted again.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var te *llm.TransportError
	if errors.As(err, &te) {
		return te.Status >= 500 && te.Status < 600
	}
	return false
}

// calculateBackoff returns the delay before the given retry attempt.
func calculateBackoff(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(attempt))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}
