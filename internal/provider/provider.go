// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider selects and constructs the active llm.Client.
//
// New performs the startup checks for the chosen provider: the hosted
// provider needs a credential, the local daemon needs its binary to answer
// a version probe. Both checks run before any file is written, so a failed
// start leaves no trace on disk.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/loz/internal/config"
	"github.com/jeranaias/loz/internal/llm"
	"github.com/jeranaias/loz/internal/ollama"
	"github.com/jeranaias/loz/internal/openai"
)

var (
	// ErrMissingCredential means the hosted provider has no API key.
	ErrMissingCredential = errors.New("missing credential")

	// ErrDaemonUnavailable means the local daemon failed its version probe.
	ErrDaemonUnavailable = errors.New("local daemon unavailable")
)

// ProbeFunc checks that a daemon binary is installed.
type ProbeFunc func(ctx context.Context, binary string) error

type options struct {
	probe      ProbeFunc
	httpClient *http.Client
}

// Option customizes New.
type Option func(*options)

// WithProbe replaces the daemon version probe.
func WithProbe(probe ProbeFunc) Option {
	return func(o *options) { o.probe = probe }
}

// WithHTTPClient sets the transport used by the constructed client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// New returns the client for id configured from settings.
func New(ctx context.Context, id llm.Identity, settings *config.Settings, opts ...Option) (llm.Client, error) {
	o := options{probe: ollama.Probe}
	for _, opt := range opts {
		opt(&o)
	}

	switch id {
	case llm.OpenAI:
		if settings.APIKey == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", ErrMissingCredential)
		}
		client, err := openai.New(openai.Config{
			APIKey:            settings.APIKey,
			BaseURL:           settings.OpenAI.BaseURL,
			Timeout:           settings.OpenAI.Timeout,
			RequestsPerMinute: settings.OpenAI.RequestsPerMinute,
			HTTPClient:        o.httpClient,
		})
		if err != nil {
			if errors.Is(err, openai.ErrNotConfigured) {
				return nil, fmt.Errorf("%w: %w", ErrMissingCredential, err)
			}
			return nil, err
		}
		log.Debug().Str("provider", string(id)).Str("model", settings.OpenAI.Model).Msg("provider ready")
		return client, nil

	case llm.Ollama:
		if err := o.probe(ctx, settings.Ollama.Binary); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDaemonUnavailable, err)
		}
		client := ollama.NewClientWithConfig(&ollama.ClientConfig{
			BaseURL:      settings.Ollama.URL,
			DefaultModel: settings.Ollama.Model,
			HTTPClient:   o.httpClient,
		})
		// The daemon may be started after loz; only the probe is fatal.
		if err := client.CheckRunning(ctx); err != nil {
			msg := "ollama health check failed"
			if ollama.IsNotRunning(err) {
				msg = "ollama daemon is not running yet"
			}
			log.Warn().Err(err).Str("url", settings.Ollama.URL).Msg(msg)
		}
		log.Debug().Str("provider", string(id)).Str("model", settings.Ollama.Model).Msg("provider ready")
		return client, nil

	default:
		return nil, fmt.Errorf("%w: provider %q", llm.ErrUnsupported, id)
	}
}
