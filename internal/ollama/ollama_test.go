// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/loz/internal/llm"
)

// generateServer streams fragments as NDJSON and records the request.
func generateServer(t *testing.T, fragments []string, got *GenerateRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			w.WriteHeader(http.StatusOK)
			return
		}
		if got != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, f := range fragments {
			line, _ := json.Marshal(GenerateResponse{Model: "llama2:latest", Response: f})
			fmt.Fprintf(w, "%s\n", line)
		}
		fmt.Fprint(w, `{"model":"llama2:latest","response":"","done":true,"eval_count":7}`+"\n")
	}))
}

// =============================================================================
// CONFIG TESTS
// =============================================================================

func TestNewClientWithConfigFillsDefaults(t *testing.T) {
	c := NewClientWithConfig(&ClientConfig{BaseURL: "http://example:11434/"})
	cfg := c.config

	if cfg.BaseURL != "http://example:11434" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", cfg.BaseURL)
	}
	if cfg.DefaultModel != DefaultModel {
		t.Errorf("DefaultModel = %q, want %q", cfg.DefaultModel, DefaultModel)
	}
	if cfg.ConnectTimeout != DefaultConnectTimeout {
		t.Errorf("ConnectTimeout = %v, want %v", cfg.ConnectTimeout, DefaultConnectTimeout)
	}
}

func TestCapabilitiesStreamOnly(t *testing.T) {
	c := NewClient()
	if !c.Capabilities().Has(llm.CanStream) {
		t.Error("expected streaming capability")
	}
	if c.Capabilities().Has(llm.CanComplete) {
		t.Error("ollama client should not advertise native non-streaming completion")
	}
	if c.Name() != "ollama" {
		t.Errorf("Name() = %q, want ollama", c.Name())
	}
}

// =============================================================================
// GENERATE TESTS
// =============================================================================

func TestStreamCompleteDeliversFragments(t *testing.T) {
	var req GenerateRequest
	srv := generateServer(t, []string{"Why ", "is ", "the sky ", "blue?"}, &req)
	defer srv.Close()

	c := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL})
	var received []string
	completion, err := c.StreamComplete(context.Background(), llm.Params{
		Prompt:      "ask",
		MaxTokens:   4000,
		Temperature: 0,
		TopP:        1,
	}, func(s string) { received = append(received, s) })
	require.NoError(t, err)

	assert.Equal(t, []string{"Why ", "is ", "the sky ", "blue?"}, received)
	assert.Equal(t, "Why is the sky blue?", completion.Text)
	assert.Equal(t, "llama2:latest", completion.Model)

	assert.Equal(t, DefaultModel, req.Model)
	assert.Equal(t, "ask", req.Prompt)
	assert.True(t, req.Stream)
	require.NotNil(t, req.Options)
	assert.Equal(t, 4000, req.Options.NumPredict)
	assert.Equal(t, 1.0, req.Options.TopP)
}

func TestCompleteCollectsStream(t *testing.T) {
	srv := generateServer(t, []string{"a", "b", "c"}, nil)
	defer srv.Close()

	c := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL, DefaultModel: "mistral"})
	completion, err := c.Complete(context.Background(), llm.Params{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "abc", completion.Text)
}

func TestStreamCompleteModelNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"model 'nope' not found, try pulling it first"}`)
	}))
	defer srv.Close()

	c := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL})
	_, err := c.StreamComplete(context.Background(), llm.Params{Prompt: "x", Model: "nope"}, nil)
	require.Error(t, err)

	if !errors.Is(err, ErrModelNotFound) {
		t.Errorf("errors.Is(%v, ErrModelNotFound) = false, want true", err)
	}
	var te *llm.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusNotFound, te.Status)
	assert.Contains(t, te.Error(), "not found")
}

func TestStreamCompleteNotRunning(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClientWithConfig(&ClientConfig{BaseURL: url})
	_, err := c.StreamComplete(context.Background(), llm.Params{Prompt: "x"}, nil)
	require.Error(t, err)
	assert.True(t, IsNotRunning(err), "got %v", err)
}

func TestStreamCompleteErrorLineAfterFragments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"response":"par"}`+"\n")
		fmt.Fprint(w, `{"error":"out of memory"}`+"\n")
	}))
	defer srv.Close()

	c := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL})
	var got strings.Builder
	_, err := c.StreamComplete(context.Background(), llm.Params{Prompt: "x"}, func(s string) { got.WriteString(s) })

	var se *llm.StreamError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, "par", se.Partial)
	assert.Equal(t, "par", got.String())
}

func TestStreamCompleteTruncatedBodyIsStreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"model":"llama2:latest","response":"Hel"}`+"\n")
	}))
	defer srv.Close()

	c := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL})
	var got strings.Builder
	_, err := c.StreamComplete(context.Background(), llm.Params{Prompt: "x"}, func(s string) { got.WriteString(s) })

	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, "Hel", got.String())

	var se *llm.StreamError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, "Hel", se.Partial)
}

func TestStreamCompleteEmptyBodyIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL})
	_, err := c.StreamComplete(context.Background(), llm.Params{Prompt: "x"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	var te *llm.TransportError
	assert.True(t, errors.As(err, &te), "got %v", err)
}

func TestCheckRunning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Ollama is running")
	}))
	defer srv.Close()

	c := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL})
	assert.NoError(t, c.CheckRunning(context.Background()))

	srv.Close()
	assert.True(t, IsNotRunning(c.CheckRunning(context.Background())))
}

// =============================================================================
// STREAM READER TESTS
// =============================================================================

func TestStreamReaderSkipsMalformedLines(t *testing.T) {
	input := "{\"response\":\"a\"}\n\nnot json\n{\"response\":\"b\",\"done\":true}\n{\"response\":\"ignored\"}\n"
	r := NewStreamReader(strings.NewReader(input))

	var chunks []StreamChunk
	require.NoError(t, r.Process(context.Background(), func(c StreamChunk) { chunks = append(chunks, c) }))

	require.Len(t, chunks, 2)
	assert.True(t, chunks[1].Done)
	assert.Equal(t, "ab", r.Content())
}

func TestStreamReaderRequiresDoneLine(t *testing.T) {
	r := NewStreamReader(strings.NewReader("{\"response\":\"a\"}\n{\"response\":\"b\"}\n"))
	err := r.Process(context.Background(), func(StreamChunk) {})
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, "ab", r.Content())
}

func TestStreamReaderHandlesMissingTrailingNewline(t *testing.T) {
	r := NewStreamReader(strings.NewReader(`{"response":"tail","done":true}`))
	require.NoError(t, r.Process(context.Background(), func(StreamChunk) {}))
	assert.Equal(t, "tail", r.Content())
}

// =============================================================================
// PROBE TESTS
// =============================================================================

// writeScript writes an executable shell script into dir.
func writeScript(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "fake-ollama")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestProbe(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}

	t.Run("version output", func(t *testing.T) {
		bin := writeScript(t, t.TempDir(), `echo "ollama version is 0.1.17"`)
		assert.NoError(t, Probe(context.Background(), bin))
	})

	t.Run("daemon down still prints version", func(t *testing.T) {
		bin := writeScript(t, t.TempDir(), `echo "Warning: could not connect to a running Ollama instance"; echo "Warning: client version is 0.1.17"; echo "ollama version is 0.1.17" 1>&2; exit 1`)
		assert.NoError(t, Probe(context.Background(), bin))
	})

	t.Run("wrong binary", func(t *testing.T) {
		bin := writeScript(t, t.TempDir(), `echo "something else 1.0"`)
		err := Probe(context.Background(), bin)
		assert.True(t, IsNotInstalled(err), "got %v", err)
	})

	t.Run("missing binary", func(t *testing.T) {
		err := Probe(context.Background(), filepath.Join(t.TempDir(), "does-not-exist"))
		assert.True(t, IsNotInstalled(err), "got %v", err)
	})
}
