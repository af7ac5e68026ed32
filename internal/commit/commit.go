// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commit turns staged changes into a commit message with the active
// provider and records the commit.
//
// Run reads the staged diff from git, asks the provider for a message,
// commits with that message and prints the resulting HEAD commit.
// RunFromTemplate reads diff or log text from a reader instead and only
// prints the suggested message.
package commit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/loz/internal/llm"
	"github.com/jeranaias/loz/internal/pipeline"
	"github.com/jeranaias/loz/internal/storage"
)

// Instruction prefixes the staged diff.
const Instruction = "Generate a commit message for the following code changes:\n"

// TemplateInstruction prefixes piped diff text and asks for a title and a
// description separated by a blank line.
const TemplateInstruction = "Generate a commit message for the following code changes like this:\ntitle\n\ndescription\n"

// Mode tags history turns produced by this package.
const Mode = "commit mode"

var (
	// ErrNoMessage means the provider produced no usable message. The
	// pipeline has already reported the cause.
	ErrNoMessage = errors.New("no commit message generated")

	// ErrEmptyInput means the piped input held nothing to describe.
	ErrEmptyInput = errors.New("no input to describe")
)

// Git is the subset of the git collaborator the flow uses.
type Git interface {
	StagedDiff(ctx context.Context) (string, error)
	Commit(ctx context.Context, message string) error
	ShowHEAD(ctx context.Context) (string, error)
}

// Flow generates commit messages.
type Flow struct {
	Git      Git
	Pipeline *pipeline.Pipeline

	// Defaults carries the model and the commit token budget.
	Defaults llm.Params

	// History receives one turn per generated message. May be nil.
	History *storage.History

	Out io.Writer

	// RenderHEAD decorates the HEAD description before printing. May be nil.
	RenderHEAD func(string) string
}

// Run commits the staged changes with a generated message. The commit is
// attempted only once a non-empty message exists.
func (f *Flow) Run(ctx context.Context) error {
	diff, err := f.Git.StagedDiff(ctx)
	if err != nil {
		return fmt.Errorf("read staged diff: %w", err)
	}

	answer := f.complete(ctx, Instruction+StripFirstLine(diff))
	if !answer.OK() {
		return fmt.Errorf("%w: %w", ErrNoMessage, answer.Err)
	}

	message := WithProvenance(answer.Text, answer.Model)
	if err := f.Git.Commit(ctx, message); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	f.record(Instruction, answer.Text)
	log.Debug().Str("model", answer.Model).Int("chars", len(message)).Msg("committed generated message")

	head, err := f.Git.ShowHEAD(ctx)
	if err != nil {
		return fmt.Errorf("show HEAD: %w", err)
	}
	if f.RenderHEAD != nil {
		head = f.RenderHEAD(head)
	}
	fmt.Fprintln(f.out(), strings.TrimRight(head, "\n"))
	return nil
}

// RunFromTemplate reads diff or log text from r, drops its first line and
// any author or date lines, and prints the suggested message. Nothing is
// committed.
func (f *Flow) RunFromTemplate(ctx context.Context, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	text := StripProvenance(StripFirstLine(string(data)))
	if strings.TrimSpace(text) == "" {
		return ErrEmptyInput
	}

	answer := f.complete(ctx, TemplateInstruction+text)
	if !answer.OK() {
		return fmt.Errorf("%w: %w", ErrNoMessage, answer.Err)
	}
	f.record(TemplateInstruction, answer.Text)
	fmt.Fprintln(f.out(), answer.Text)
	return nil
}

func (f *Flow) complete(ctx context.Context, prompt string) pipeline.Answer {
	params := f.Defaults.Clone()
	params.Prompt = prompt
	params.Stream = false
	answer := f.Pipeline.Run(ctx, params)
	if answer.Model == "" {
		answer.Model = params.Model
	}
	return answer
}

func (f *Flow) record(prompt, answer string) {
	if f.History != nil {
		f.History.Append(storage.ChatTurn{Mode: Mode, Prompt: prompt, Answer: answer})
	}
}

func (f *Flow) out() io.Writer {
	if f.Out == nil {
		return io.Discard
	}
	return f.Out
}

// StripFirstLine removes everything up to and including the first newline.
// Text without a newline is returned unchanged.
func StripFirstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// StripProvenance removes "Author: " and "Date: " lines.
func StripProvenance(s string) string {
	lines := strings.SplitAfter(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(line, "Author: ") || strings.HasPrefix(line, "Date: ") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "")
}

// WithProvenance appends a trailer naming the model that wrote message.
func WithProvenance(message, model string) string {
	message = strings.TrimRight(message, "\n")
	if model == "" {
		return message
	}
	return message + "\n\nGenerated by " + model
}
