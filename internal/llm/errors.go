// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for easy checking.
var (
	// ErrAuth indicates the provider rejected the credential (HTTP 401).
	ErrAuth = errors.New("invalid API key")

	// ErrRateLimited indicates the provider throttled the request (HTTP 429).
	ErrRateLimited = errors.New("API request limit reached")

	// ErrUnsupported indicates the client cannot serve the requested call style.
	ErrUnsupported = errors.New("operation not supported by provider")

	// ErrEmptyResponse indicates the provider answered without any content.
	ErrEmptyResponse = errors.New("empty response from provider")
)

// TransportError is any failure talking to a provider: network errors,
// timeouts and unexpected responses. Status is zero when no HTTP response
// was received.
type TransportError struct {
	Provider string
	Status   int
	Message  string
	Err      error
}

func (e *TransportError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s", e.Provider, msg)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is lets 401 and 429 transport errors match ErrAuth and ErrRateLimited.
func (e *TransportError) Is(target error) bool {
	switch target {
	case ErrAuth:
		return e.Status == http.StatusUnauthorized
	case ErrRateLimited:
		return e.Status == http.StatusTooManyRequests
	}
	return false
}

// NewStatusError builds a TransportError for a non-2xx HTTP response.
func NewStatusError(provider string, status int, message string) *TransportError {
	return &TransportError{Provider: provider, Status: status, Message: message}
}

// StreamError reports a stream that failed after some fragments were
// already delivered. Partial holds exactly what onFragment received.
type StreamError struct {
	Partial string
	Err     error
}

func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream interrupted after %d chars: %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream interrupted: %v", e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool {
	return errors.Is(err, ErrAuth)
}

// IsRateLimited reports whether err is a rate limit failure.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
