// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/loz/internal/llm"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Settings represents the complete loz application settings.
type Settings struct {
	// Debug enables debug logging to stderr.
	Debug bool `toml:"debug"`

	OpenAI     OpenAIConfig     `toml:"openai"`
	Ollama     OllamaConfig     `toml:"ollama"`
	Completion CompletionConfig `toml:"completion"`
	UI         UIConfig         `toml:"ui"`

	// APIKey comes from OPENAI_API_KEY only and is never written anywhere.
	APIKey string `toml:"-"`
}

// OpenAIConfig configures the hosted provider.
type OpenAIConfig struct {
	BaseURL           string        `toml:"base_url"`
	Model             string        `toml:"model"`
	RequestsPerMinute int           `toml:"requests_per_minute"`
	Timeout           time.Duration `toml:"timeout"`
}

// OllamaConfig configures the local daemon provider.
type OllamaConfig struct {
	URL    string `toml:"url"`
	Model  string `toml:"model"`
	Binary string `toml:"binary"`
}

// CompletionConfig holds the default completion parameters.
type CompletionConfig struct {
	Temperature      float64 `toml:"temperature"`
	TopP             float64 `toml:"top_p"`
	FrequencyPenalty float64 `toml:"frequency_penalty"`
	PresencePenalty  float64 `toml:"presence_penalty"`

	// MaxTokens applies to interactive and single-shot prompts.
	MaxTokens int `toml:"max_tokens"`

	// CommitMaxTokens applies to commit message generation. It must be
	// higher than MaxTokens since the prompt carries a whole diff.
	CommitMaxTokens int `toml:"commit_max_tokens"`

	// PipeMaxTokens applies to piped prompts.
	PipeMaxTokens int `toml:"pipe_max_tokens"`
}

// UIConfig controls terminal output.
type UIConfig struct {
	// Markdown renders non-streamed answers with glamour.
	Markdown bool `toml:"markdown"`

	// Color is one of "auto", "always" or "never".
	Color string `toml:"color"`
}

// Default values.
const (
	DefaultOpenAIURL       = "https://api.openai.com/v1"
	DefaultOpenAIModel     = "gpt-3.5-turbo"
	DefaultOpenAITimeout   = 60 * time.Second
	DefaultOllamaURL       = "http://127.0.0.1:11434"
	DefaultOllamaModel     = "llama2"
	DefaultOllamaBinary    = "ollama"
	DefaultMaxTokens       = 4000
	DefaultCommitMaxTokens = 8000
	DefaultPipeMaxTokens   = 500
	DefaultTopP            = 1.0
	DefaultColor           = "auto"
)

// Default returns the built-in settings.
func Default() *Settings {
	return &Settings{
		OpenAI: OpenAIConfig{
			BaseURL: DefaultOpenAIURL,
			Model:   DefaultOpenAIModel,
			Timeout: DefaultOpenAITimeout,
		},
		Ollama: OllamaConfig{
			URL:    DefaultOllamaURL,
			Model:  DefaultOllamaModel,
			Binary: DefaultOllamaBinary,
		},
		Completion: CompletionConfig{
			Temperature:     0,
			TopP:            DefaultTopP,
			MaxTokens:       DefaultMaxTokens,
			CommitMaxTokens: DefaultCommitMaxTokens,
			PipeMaxTokens:   DefaultPipeMaxTokens,
		},
		UI: UIConfig{
			Color: DefaultColor,
		},
	}
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads ~/.loz/settings.toml when present, then applies environment
// overrides and validates the result. A missing file is not an error.
func Load() (*Settings, error) {
	path, err := SettingsPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads settings from a specific TOML file.
func LoadFromPath(path string) (*Settings, error) {
	s := Default()

	if _, statErr := os.Stat(path); statErr == nil {
		meta, err := toml.DecodeFile(path, s)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			return nil, fmt.Errorf("%s: unknown settings: %s", path, strings.Join(keys, ", "))
		}
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", path, statErr)
	}

	s.ApplyEnvOverrides()
	s.SetDefaults()
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported variables:
//   - OPENAI_API_KEY: the hosted provider credential
//   - OPENAI_BASE_URL: overrides openai.base_url
//   - OLLAMA_HOST: overrides ollama.url (a bare host:port gets http://)
//   - LOZ_DEBUG: enables debug logging
func (s *Settings) ApplyEnvOverrides() {
	s.APIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))

	if u := os.Getenv("OPENAI_BASE_URL"); u != "" {
		s.OpenAI.BaseURL = u
	}

	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		if !strings.Contains(host, "://") {
			host = "http://" + host
		}
		s.Ollama.URL = host
	}

	if debug := os.Getenv("LOZ_DEBUG"); debug != "" {
		s.Debug = isTrue(debug)
	}
}

// SetDefaults fills zero values left by a partial settings file.
func (s *Settings) SetDefaults() {
	d := Default()
	if s.OpenAI.BaseURL == "" {
		s.OpenAI.BaseURL = d.OpenAI.BaseURL
	}
	if s.OpenAI.Model == "" {
		s.OpenAI.Model = d.OpenAI.Model
	}
	if s.OpenAI.Timeout == 0 {
		s.OpenAI.Timeout = d.OpenAI.Timeout
	}
	if s.Ollama.URL == "" {
		s.Ollama.URL = d.Ollama.URL
	}
	if s.Ollama.Model == "" {
		s.Ollama.Model = d.Ollama.Model
	}
	if s.Ollama.Binary == "" {
		s.Ollama.Binary = d.Ollama.Binary
	}
	if s.Completion.MaxTokens == 0 {
		s.Completion.MaxTokens = d.Completion.MaxTokens
	}
	if s.Completion.CommitMaxTokens == 0 {
		s.Completion.CommitMaxTokens = d.Completion.CommitMaxTokens
	}
	if s.Completion.PipeMaxTokens == 0 {
		s.Completion.PipeMaxTokens = d.Completion.PipeMaxTokens
	}
	if s.UI.Color == "" {
		s.UI.Color = d.UI.Color
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a settings validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks value ranges and URLs.
func (s *Settings) Validate() error {
	var errs ValidateErrors

	for field, raw := range map[string]string{
		"openai.base_url": s.OpenAI.BaseURL,
		"ollama.url":      s.Ollama.URL,
	} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("invalid URL %q", raw)})
		}
	}

	c := s.Completion
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, ValidationError{Field: "completion.temperature", Message: "must be between 0 and 2"})
	}
	if c.TopP < 0 || c.TopP > 1 {
		errs = append(errs, ValidationError{Field: "completion.top_p", Message: "must be between 0 and 1"})
	}
	if c.FrequencyPenalty < -2 || c.FrequencyPenalty > 2 {
		errs = append(errs, ValidationError{Field: "completion.frequency_penalty", Message: "must be between -2 and 2"})
	}
	if c.PresencePenalty < -2 || c.PresencePenalty > 2 {
		errs = append(errs, ValidationError{Field: "completion.presence_penalty", Message: "must be between -2 and 2"})
	}
	for field, v := range map[string]int{
		"completion.max_tokens":        c.MaxTokens,
		"completion.commit_max_tokens": c.CommitMaxTokens,
		"completion.pipe_max_tokens":   c.PipeMaxTokens,
	} {
		if v < 0 {
			errs = append(errs, ValidationError{Field: field, Message: "must be positive"})
		}
	}

	if c.CommitMaxTokens <= c.MaxTokens {
		errs = append(errs, ValidationError{
			Field:   "completion.commit_max_tokens",
			Message: fmt.Sprintf("must be higher than completion.max_tokens (%d)", c.MaxTokens),
		})
	}

	if s.OpenAI.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{Field: "openai.requests_per_minute", Message: "must not be negative"})
	}

	switch strings.ToLower(s.UI.Color) {
	case "auto", "always", "never":
	default:
		errs = append(errs, ValidationError{Field: "ui.color", Message: fmt.Sprintf("invalid value %q, must be one of: auto, always, never", s.UI.Color)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// COMPLETION PARAMETERS
// =============================================================================

// Model returns the configured default model for a provider.
func (s *Settings) Model(id llm.Identity) string {
	if id == llm.Ollama {
		return s.Ollama.Model
	}
	return s.OpenAI.Model
}

// Params builds completion parameters for a provider with the given token
// budget. Prompt and Stream are left for the caller.
func (s *Settings) Params(id llm.Identity, maxTokens int) llm.Params {
	return llm.Params{
		Model:            s.Model(id),
		MaxTokens:        maxTokens,
		Temperature:      s.Completion.Temperature,
		TopP:             s.Completion.TopP,
		FrequencyPenalty: s.Completion.FrequencyPenalty,
		PresencePenalty:  s.Completion.PresencePenalty,
	}
}

func isTrue(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "1" || v == "true" || v == "yes"
}
