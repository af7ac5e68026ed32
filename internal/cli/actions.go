// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/jeranaias/loz/internal/chat"
	"github.com/jeranaias/loz/internal/commit"
	"github.com/jeranaias/loz/internal/git"
	"github.com/jeranaias/loz/internal/llm"
	"github.com/jeranaias/loz/internal/storage"
)

// defaults returns the completion parameters for this run with the given
// token budget. The session "model" key overrides the settings model.
func (r *runState) defaults(maxTokens int) llm.Params {
	p := r.app.Settings.Params(r.id, maxTokens)
	if model := r.cfg.Model(); model != "" {
		p.Model = model
	}
	return p
}

// =============================================================================
// INTERACTIVE
// =============================================================================

func (r *runState) interactive(ctx context.Context) error {
	a := r.app
	defaults := r.defaults(a.Settings.Completion.MaxTokens)

	fmt.Fprintln(a.Stdout, TitleStyle.Render(Banner))
	fmt.Fprintf(a.Stdout, "%s %s  %s %s\n",
		DimStyle.Render("provider:"), HighlightStyle.Render(r.id.String()),
		DimStyle.Render("model:"), HighlightStyle.Render(defaults.Model))
	chat.PrintConfig(a.Stdout, r.cfg, chatStyles())

	reader, closeReader := a.NewLineReader(filepath.Dir(a.Paths.SessionConfig))
	defer closeReader()

	loop := chat.New(chat.Options{
		Reader:     reader,
		Pipeline:   r.pipeline,
		Config:     r.cfg,
		History:    r.history,
		Defaults:   defaults,
		Persister:  r.persist,
		Interrupts: a.Interrupts,
		Out:        a.Stdout,
		ErrOut:     a.Stderr,
		Styles:     chatStyles(),
	})
	return loop.Run(ctx)
}

// =============================================================================
// SINGLE-SHOT AND PIPED PROMPTS
// =============================================================================

// singleShot answers one prompt from the command line. Markdown rendering
// replaces streaming when enabled and stdout is a terminal.
func (r *runState) singleShot(ctx context.Context, prompt string) error {
	a := r.app
	markdown := a.Settings.UI.Markdown && a.StdoutTTY

	params := r.defaults(a.Settings.Completion.MaxTokens)
	params.Prompt = prompt
	params.Stream = !markdown

	answer := r.pipeline.Run(ctx, params)
	if !answer.OK() {
		return nil
	}
	if markdown {
		fmt.Fprint(a.Stdout, renderMarkdown(answer.Text, GetTerminalWidth()))
	}

	r.history.Append(storage.ChatTurn{Mode: r.cfg.Mode(), Prompt: prompt, Answer: answer.Text})
	return r.persist.SaveHistory(r.history)
}

// pipedPrompt reads stdin to the end and asks prompt about it. Exactly one
// completion runs per invocation.
func (r *runState) pipedPrompt(ctx context.Context, prompt string) error {
	a := r.app
	data, err := io.ReadAll(a.Stdin)
	if err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}

	params := r.defaults(a.Settings.Completion.PipeMaxTokens)
	params.Prompt = fmt.Sprintf(pipedTemplate, prompt, data)

	answer := r.pipeline.Run(ctx, params)
	if answer.OK() {
		fmt.Fprintln(a.Stdout, answer.Text)
	}
	return nil
}

// =============================================================================
// COMMIT MESSAGES
// =============================================================================

func (r *runState) commitFlow(history *storage.History) *commit.Flow {
	a := r.app
	flow := &commit.Flow{
		Git:      a.Git,
		Pipeline: r.pipeline,
		Defaults: r.defaults(a.Settings.Completion.CommitMaxTokens),
		History:  history,
		Out:      a.Stdout,
	}
	if a.StdoutTTY && ColorsEnabled() {
		flow.RenderHEAD = highlightDiff
	}
	return flow
}

// commit generates a message for the staged changes and commits. Git and
// provider failures abort the flow without failing the process.
func (r *runState) commit(ctx context.Context) error {
	if err := r.commitFlow(r.history).Run(ctx); err != nil {
		r.reportRecoverable(err)
		return nil
	}
	return r.persist.SaveHistory(r.history)
}

// template prints a message suggested for piped diff text.
func (r *runState) template(ctx context.Context) error {
	if err := r.commitFlow(nil).RunFromTemplate(ctx, r.app.Stdin); err != nil {
		r.reportRecoverable(err)
	}
	return nil
}

// reportRecoverable prints a diagnostic for a failed commit flow. Provider
// failures were already reported by the pipeline.
func (r *runState) reportRecoverable(err error) {
	var msg string
	switch {
	case errors.Is(err, commit.ErrNoMessage):
		return
	case errors.Is(err, git.ErrNoStagedChanges):
		msg = "No staged changes to commit"
	case errors.Is(err, git.ErrNotRepository):
		msg = "Not inside a git repository"
	case errors.Is(err, commit.ErrEmptyInput):
		msg = GitUsageHint
	default:
		msg = err.Error()
	}
	fmt.Fprintln(r.app.Stderr, ErrorStyle.Render(msg))
}
