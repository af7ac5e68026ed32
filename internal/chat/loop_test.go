// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/loz/internal/llm"
	"github.com/jeranaias/loz/internal/llm/llmtest"
	"github.com/jeranaias/loz/internal/pipeline"
	"github.com/jeranaias/loz/internal/session"
	"github.com/jeranaias/loz/internal/storage"
)

// scriptReader returns lines in order, then end (io.EOF by default).
type scriptReader struct {
	lines []string
	end   error
	reads int
}

func (r *scriptReader) ReadLine(prompt string) (string, error) {
	r.reads++
	if len(r.lines) == 0 {
		if r.end != nil {
			return "", r.end
		}
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

type countingPersister struct {
	configSaves  int
	historySaves int
	savedConfig  []session.Entry
	savedTurns   []storage.ChatTurn
	configErr    error
}

func (p *countingPersister) SaveConfig(cfg *session.Config) error {
	p.configSaves++
	p.savedConfig = cfg.Entries()
	return p.configErr
}

func (p *countingPersister) SaveHistory(h *storage.History) error {
	p.historySaves++
	p.savedTurns = h.Turns()
	return nil
}

type harness struct {
	loop      *Loop
	client    *llmtest.Client
	reader    *scriptReader
	persister *countingPersister
	cfg       *session.Config
	out       *bytes.Buffer
	errOut    *bytes.Buffer
}

func newHarness(lines []string, replies ...llmtest.Reply) *harness {
	h := &harness{
		client:    llmtest.New(replies...),
		reader:    &scriptReader{lines: lines},
		persister: &countingPersister{},
		cfg:       session.Defaults(),
		out:       &bytes.Buffer{},
		errOut:    &bytes.Buffer{},
	}
	h.loop = New(Options{
		Reader:    h.reader,
		Pipeline:  pipeline.New(h.client, h.out, h.errOut),
		Config:    h.cfg,
		History:   storage.NewHistory(),
		Defaults:  llm.Params{Model: "gpt-3.5-turbo", MaxTokens: 4000, TopP: 1},
		Persister: h.persister,
		Out:       h.out,
		ErrOut:    h.errOut,
	})
	return h
}

func TestLoopExitPersistsOnce(t *testing.T) {
	for _, word := range []string{"exit", "quit"} {
		t.Run(word, func(t *testing.T) {
			h := newHarness([]string{word, "never read"})
			require.NoError(t, h.loop.Run(context.Background()))

			assert.Equal(t, 1, h.reader.reads)
			assert.Empty(t, h.client.Calls())
			assert.Equal(t, 1, h.persister.configSaves)
			assert.Equal(t, 1, h.persister.historySaves)
			assert.True(t, strings.HasSuffix(h.out.String(), "Good bye!\n"))

			// A second shutdown is a no-op.
			require.NoError(t, h.loop.Shutdown())
			assert.Equal(t, 1, h.persister.configSaves)
			assert.Equal(t, 1, h.persister.historySaves)
		})
	}
}

func TestLoopEndOfInputTerminates(t *testing.T) {
	h := newHarness(nil)
	require.NoError(t, h.loop.Run(context.Background()))
	assert.Equal(t, 1, h.persister.configSaves)
	assert.Contains(t, h.out.String(), Goodbye)
}

func TestLoopAbortedPromptTerminates(t *testing.T) {
	h := newHarness(nil)
	h.reader.end = ErrInterrupted
	require.NoError(t, h.loop.Run(context.Background()))
	assert.Equal(t, 1, h.persister.configSaves)
	assert.Equal(t, 1, h.persister.historySaves)

	require.NoError(t, h.loop.Shutdown())
	assert.Equal(t, 1, h.persister.configSaves)
	assert.Equal(t, 1, h.persister.historySaves)
}

func TestLoopReadErrorIsReturned(t *testing.T) {
	h := newHarness(nil)
	h.reader.end = errors.New("tty gone")
	err := h.loop.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tty gone")
	assert.Equal(t, 1, h.persister.configSaves)
}

func TestLoopPromptAppendsTurn(t *testing.T) {
	h := newHarness([]string{"hello", "exit"}, llmtest.Reply{Fragments: []string{"Hi", " there"}})
	require.NoError(t, h.loop.Run(context.Background()))

	require.Len(t, h.client.Calls(), 1)
	call := h.client.Calls()[0]
	assert.Equal(t, "hello", call.Prompt)
	assert.True(t, call.Stream)
	assert.Equal(t, 4000, call.MaxTokens)
	assert.Equal(t, "gpt-3.5-turbo", call.Model)

	assert.Equal(t, "Hi there\nGood bye!\n", h.out.String())
	assert.Equal(t, []storage.ChatTurn{{Mode: "default", Prompt: "hello", Answer: "Hi there"}}, h.persister.savedTurns)
}

func TestLoopEmptyLineIgnored(t *testing.T) {
	h := newHarness([]string{"", "", "exit"})
	require.NoError(t, h.loop.Run(context.Background()))
	assert.Empty(t, h.client.Calls())
	assert.Equal(t, 3, h.reader.reads)
	assert.Equal(t, 0, h.loop.History().Len())
}

func TestLoopFailedCompletionContinues(t *testing.T) {
	h := newHarness([]string{"first", "second", "exit"},
		llmtest.Failure(llm.ErrAuth),
		llmtest.Text("ok"),
	)
	require.NoError(t, h.loop.Run(context.Background()))

	assert.Equal(t, []string{"first", "second"}, h.client.Prompts())
	assert.Equal(t, "Invalid API key\n", h.errOut.String())
	assert.Equal(t, []storage.ChatTurn{{Mode: "default", Prompt: "second", Answer: "ok"}}, h.persister.savedTurns)
}

func TestLoopTruncatedStreamNotRecorded(t *testing.T) {
	h := newHarness([]string{"hello", "exit"},
		llmtest.Reply{Fragments: []string{"Hel"}, Err: io.ErrUnexpectedEOF},
	)
	require.NoError(t, h.loop.Run(context.Background()))

	assert.Contains(t, h.out.String(), "Hel")
	assert.Contains(t, h.errOut.String(), "Response interrupted")
	assert.Equal(t, 0, h.loop.History().Len())
	assert.Empty(t, h.persister.savedTurns)
}

func TestLoopModePrefixes(t *testing.T) {
	tests := []struct {
		mode   string
		prefix string
	}{
		{"default", ""},
		{"esl", ESLPrefix},
		{"proofread", ProofreadPrefix},
		{"something-else", ""},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			h := newHarness([]string{"config mode " + tt.mode, "how are you", "exit"}, llmtest.Text("fine"))
			require.NoError(t, h.loop.Run(context.Background()))

			require.Len(t, h.client.Calls(), 1)
			assert.Equal(t, tt.prefix+"how are you", h.client.Calls()[0].Prompt)

			// The turn records the raw line and the mode in effect.
			require.Len(t, h.persister.savedTurns, 1)
			assert.Equal(t, tt.mode, h.persister.savedTurns[0].Mode)
			assert.Equal(t, "how are you", h.persister.savedTurns[0].Prompt)
		})
	}
}

func TestLoopModelOverride(t *testing.T) {
	h := newHarness([]string{"config model gpt-4", "hi", "exit"}, llmtest.Text("yo"))
	require.NoError(t, h.loop.Run(context.Background()))
	require.Len(t, h.client.Calls(), 1)
	assert.Equal(t, "gpt-4", h.client.Calls()[0].Model)
}

func TestLoopConfigCommands(t *testing.T) {
	h := newHarness([]string{
		"config",
		"config mode",
		"config color",
		"config mode esl",
		"config color blue",
		"config color",
		"exit",
	})
	require.NoError(t, h.loop.Run(context.Background()))

	assert.Empty(t, h.client.Calls(), "config commands never reach the provider")
	want := "mode: default\n" +
		"api: openai\n" +
		"default\n" +
		"undefined\n" +
		"default will be updated with esl\n" +
		"blue\n" +
		"Good bye!\n"
	assert.Equal(t, want, h.out.String())

	assert.Equal(t, []session.Entry{
		{Name: "mode", Value: "esl"},
		{Name: "api", Value: "openai"},
		{Name: "color", Value: "blue"},
	}, h.persister.savedConfig)
}

func TestLoopLongConfigLineIsPrompt(t *testing.T) {
	h := newHarness([]string{"config is what I want to ask about", "exit"}, llmtest.Text("sure"))
	require.NoError(t, h.loop.Run(context.Background()))
	assert.Equal(t, []string{"config is what I want to ask about"}, h.client.Prompts())
}

func TestLoopInterruptDuringCompletion(t *testing.T) {
	interrupts := make(chan os.Signal, 1)
	h := newHarness([]string{"long question", "never read"}, llmtest.Reply{Fragments: []string{"a", "b"}})
	h.loop.opts.Interrupts = interrupts
	h.client.OnCall = func(ctx context.Context, _ llm.Params) {
		interrupts <- os.Interrupt
		<-ctx.Done()
	}

	require.NoError(t, h.loop.Run(context.Background()))

	assert.Equal(t, 1, h.reader.reads)
	assert.Equal(t, 0, h.loop.History().Len())
	assert.Equal(t, 1, h.persister.configSaves)
	assert.Equal(t, 1, h.persister.historySaves)
	assert.Contains(t, h.out.String(), Goodbye)
}

func TestLoopPendingInterruptStopsBeforeRead(t *testing.T) {
	interrupts := make(chan os.Signal, 1)
	interrupts <- os.Interrupt
	h := newHarness([]string{"hello"})
	h.loop.opts.Interrupts = interrupts

	require.NoError(t, h.loop.Run(context.Background()))
	assert.Equal(t, 0, h.reader.reads)
	assert.Equal(t, 1, h.persister.configSaves)
	assert.Equal(t, 1, h.persister.historySaves)

	require.NoError(t, h.loop.Shutdown())
	assert.Equal(t, 1, h.persister.configSaves)
	assert.Equal(t, 1, h.persister.historySaves)
}

func TestLoopCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := newHarness([]string{"hello"})
	require.NoError(t, h.loop.Run(ctx))
	assert.Empty(t, h.client.Calls())
}

func TestLoopShutdownErrorReported(t *testing.T) {
	h := newHarness([]string{"exit"})
	h.persister.configErr = errors.New("disk full")
	err := h.loop.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save config: disk full")
	assert.Equal(t, 1, h.persister.historySaves, "history is saved even when config fails")
}

func TestBuildParamsDoesNotMutateDefaults(t *testing.T) {
	defaults := llm.Params{Model: "base", Stop: []string{"x"}}
	cfg := session.Defaults()
	cfg.Set(session.KeyMode, ModeESL)
	cfg.Set(session.KeyModel, "override")

	p := BuildParams(defaults, cfg, "q")
	p.Stop[0] = "changed"

	assert.Equal(t, ESLPrefix+"q", p.Prompt)
	assert.Equal(t, "override", p.Model)
	assert.Equal(t, "base", defaults.Model)
	assert.Equal(t, "x", defaults.Stop[0])
	assert.Empty(t, defaults.Prompt)
}

func TestStylesApplied(t *testing.T) {
	var out bytes.Buffer
	cfg := session.New(session.Entry{Name: "mode", Value: "esl"})
	PrintConfig(&out, cfg, Styles{Key: strings.ToUpper})
	assert.Equal(t, "MODE: esl\n", out.String())
}
