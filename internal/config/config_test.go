// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/loz/internal/llm"
)

// clearEnv unsets every variable ApplyEnvOverrides reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"OPENAI_API_KEY", "OPENAI_BASE_URL", "OLLAMA_HOST", "LOZ_DEBUG", "LOZ_DEV"} {
		t.Setenv(k, "")
	}
}

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromPathMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	s, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultOpenAIModel, s.OpenAI.Model)
	assert.Equal(t, DefaultOllamaModel, s.Ollama.Model)
	assert.Equal(t, DefaultMaxTokens, s.Completion.MaxTokens)
	assert.Equal(t, DefaultCommitMaxTokens, s.Completion.CommitMaxTokens)
	assert.Equal(t, DefaultPipeMaxTokens, s.Completion.PipeMaxTokens)
	assert.Equal(t, 1.0, s.Completion.TopP)
	assert.Equal(t, 0.0, s.Completion.Temperature)
	assert.Empty(t, s.APIKey)
	assert.False(t, s.Debug)
}

func TestLoadFromPathDecodesTOML(t *testing.T) {
	clearEnv(t)
	path := writeSettings(t, `
debug = true

[openai]
model = "gpt-4o-mini"
requests_per_minute = 20
timeout = "30s"

[ollama]
model = "mistral"

[completion]
temperature = 0.7
max_tokens = 1000

[ui]
markdown = true
color = "never"
`)

	s, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.True(t, s.Debug)
	assert.Equal(t, "gpt-4o-mini", s.OpenAI.Model)
	assert.Equal(t, 20, s.OpenAI.RequestsPerMinute)
	assert.Equal(t, 30*time.Second, s.OpenAI.Timeout)
	assert.Equal(t, "mistral", s.Ollama.Model)
	assert.Equal(t, DefaultOllamaURL, s.Ollama.URL)
	assert.Equal(t, 0.7, s.Completion.Temperature)
	assert.Equal(t, 1000, s.Completion.MaxTokens)
	assert.Equal(t, DefaultCommitMaxTokens, s.Completion.CommitMaxTokens)
	assert.True(t, s.UI.Markdown)
	assert.Equal(t, "never", s.UI.Color)
}

func TestLoadFromPathRejectsUnknownKeys(t *testing.T) {
	clearEnv(t)
	path := writeSettings(t, "[openai]\nmodle = \"typo\"\n")

	_, err := LoadFromPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai.modle")
}

func TestLoadFromPathRejectsMalformedTOML(t *testing.T) {
	clearEnv(t)
	_, err := LoadFromPath(writeSettings(t, "debug = = true"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		field  string
	}{
		{"temperature", func(s *Settings) { s.Completion.Temperature = 3 }, "completion.temperature"},
		{"top_p", func(s *Settings) { s.Completion.TopP = 1.5 }, "completion.top_p"},
		{"max tokens", func(s *Settings) { s.Completion.MaxTokens = -1 }, "completion.max_tokens"},
		{"color", func(s *Settings) { s.UI.Color = "rainbow" }, "ui.color"},
		{"ollama url", func(s *Settings) { s.Ollama.URL = "not a url" }, "ollama.url"},
		{"rpm", func(s *Settings) { s.OpenAI.RequestsPerMinute = -5 }, "openai.requests_per_minute"},
		{"commit budget equal", func(s *Settings) { s.Completion.CommitMaxTokens = s.Completion.MaxTokens }, "completion.commit_max_tokens"},
		{"commit budget lower", func(s *Settings) { s.Completion.CommitMaxTokens = 100 }, "completion.commit_max_tokens"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.mutate(s)
			err := s.Validate()
			require.Error(t, err)

			var errs ValidateErrors
			require.ErrorAs(t, err, &errs)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestDefaultCommitBudgetExceedsInteractive(t *testing.T) {
	c := Default().Completion
	assert.Greater(t, c.CommitMaxTokens, c.MaxTokens)
}

func TestLoadFromPathRejectsCommitBudgetBelowInteractive(t *testing.T) {
	clearEnv(t)
	path := writeSettings(t, "[completion]\nmax_tokens = 9000\n")

	_, err := LoadFromPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "completion.commit_max_tokens")
}

func TestApplyEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "  sk-abc  ")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:8080/v1")
	t.Setenv("OLLAMA_HOST", "10.0.0.2:11434")
	t.Setenv("LOZ_DEBUG", "true")

	s := Default()
	s.ApplyEnvOverrides()

	assert.Equal(t, "sk-abc", s.APIKey)
	assert.Equal(t, "http://localhost:8080/v1", s.OpenAI.BaseURL)
	assert.Equal(t, "http://10.0.0.2:11434", s.Ollama.URL)
	assert.True(t, s.Debug)
}

func TestParams(t *testing.T) {
	s := Default()
	s.Completion.Temperature = 0.2

	p := s.Params(llm.Ollama, 500)
	assert.Equal(t, DefaultOllamaModel, p.Model)
	assert.Equal(t, 500, p.MaxTokens)
	assert.Equal(t, 0.2, p.Temperature)
	assert.Equal(t, 1.0, p.TopP)
	assert.Empty(t, p.Prompt)

	assert.Equal(t, DefaultOpenAIModel, s.Params(llm.OpenAI, 1).Model)
}

// =============================================================================
// PATH TESTS
// =============================================================================

func TestResolvePathsInstalled(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	exe := filepath.Join(t.TempDir(), "bin", "loz")
	p, err := resolvePaths(exe, false)
	require.NoError(t, err)

	assert.False(t, p.Dev)
	assert.Equal(t, filepath.Join(home, ".loz", "config.json"), p.SessionConfig)
	assert.Equal(t, filepath.Join(home, ".loz"), p.HistoryDir)
	assert.Equal(t, filepath.Join(home, ".loz", "history.db"), p.Archive)

	// Resolution must not create anything.
	_, statErr := os.Stat(filepath.Join(home, ".loz"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestResolvePathsDevCheckout(t *testing.T) {
	repo := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(repo, ".git"), 0o755))

	// Binary built into <repo>/bin, one level below the checkout.
	p, err := resolvePaths(filepath.Join(repo, "bin", "loz"), false)
	require.NoError(t, err)

	assert.True(t, p.Dev)
	assert.Equal(t, filepath.Join(repo, ".loz", "config.json"), p.SessionConfig)
	assert.Equal(t, filepath.Join(repo, "logs"), p.HistoryDir)
	assert.Equal(t, filepath.Join(repo, "logs", "history.db"), p.Archive)
}

func TestResolvePathsForcedDev(t *testing.T) {
	wd := t.TempDir()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(wd))
	t.Cleanup(func() { _ = os.Chdir(prev) })
	t.Setenv("PWD", wd)

	p, err := resolvePaths(filepath.Join(t.TempDir(), "loz"), true)
	require.NoError(t, err)
	assert.True(t, p.Dev)
	assert.Equal(t, filepath.Join(wd, "logs"), p.HistoryDir)
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
