// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"context"
	"fmt"
	"strings"
)

// =============================================================================
// PROVIDER IDENTITY
// =============================================================================

// Identity selects which Client implementation is active for a session.
type Identity string

const (
	// OpenAI is the hosted, metered chat completions API.
	OpenAI Identity = "openai"

	// Ollama is the locally reachable Ollama daemon.
	Ollama Identity = "ollama"
)

// ParseIdentity maps a configuration value to an Identity.
// The empty string selects OpenAI, matching the default "api" entry.
func ParseIdentity(s string) (Identity, error) {
	switch Identity(strings.ToLower(strings.TrimSpace(s))) {
	case "", OpenAI:
		return OpenAI, nil
	case Ollama:
		return Ollama, nil
	default:
		return "", fmt.Errorf("unknown api %q (expected %q or %q)", s, OpenAI, Ollama)
	}
}

func (id Identity) String() string {
	return string(id)
}

// =============================================================================
// COMPLETION PARAMETERS
// =============================================================================

// Params holds everything a single completion call needs.
// It is passed by value and never shared between invocations.
type Params struct {
	Prompt           string
	Model            string
	MaxTokens        int
	Temperature      float64
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
	Stop             []string
	Stream           bool
}

// Clone returns a copy whose Stop slice does not alias p's.
func (p Params) Clone() Params {
	if p.Stop != nil {
		p.Stop = append([]string(nil), p.Stop...)
	}
	return p
}

// Completion is a fully materialized answer.
type Completion struct {
	Text  string
	Model string
}

// =============================================================================
// CLIENT
// =============================================================================

// Capability is a bit set describing which call styles a Client serves natively.
type Capability uint8

const (
	// CanComplete means Complete is served by a single non-streaming request.
	CanComplete Capability = 1 << iota

	// CanStream means StreamComplete delivers fragments as they arrive.
	CanStream
)

// Has reports whether c includes all bits of other.
func (c Capability) Has(other Capability) bool {
	return c&other == other
}

// FragmentFunc receives streamed text fragments in arrival order.
type FragmentFunc func(fragment string)

// Client is implemented by every completion backend.
//
// StreamComplete must invoke onFragment once per received fragment, in
// order, and return the concatenation of all fragments. Implementations that
// cannot stream natively still implement both methods; Capabilities tells the
// caller which one is the native path.
type Client interface {
	Name() string
	Capabilities() Capability
	Complete(ctx context.Context, params Params) (Completion, error)
	StreamComplete(ctx context.Context, params Params, onFragment FragmentFunc) (Completion, error)
}
