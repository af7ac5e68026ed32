// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pipeline turns completion parameters into a final answer using the
// active provider, writing streamed fragments to an output sink as they
// arrive.
//
// The pipeline never returns an error past its boundary: failures are
// reported on the error sink and surface as an Answer with empty Text and a
// non-nil Err. It never touches the history; the caller decides whether a
// turn is recorded.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/loz/internal/llm"
)

// Answer is the outcome of one pipeline run. Text is empty if and only if
// the run failed.
type Answer struct {
	Text  string
	Model string
	Err   error

	// Streamed reports whether Text was already written to the output sink.
	Streamed bool
}

// OK reports whether the run produced a usable answer.
func (a Answer) OK() bool {
	return a.Err == nil && a.Text != ""
}

// Pipeline drives one provider.
type Pipeline struct {
	client     llm.Client
	out        io.Writer
	errOut     io.Writer
	errorStyle func(string) string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithErrorStyle decorates diagnostics before they are written.
func WithErrorStyle(style func(string) string) Option {
	return func(p *Pipeline) {
		p.errorStyle = style
	}
}

// New creates a pipeline writing fragments to out and diagnostics to errOut.
func New(client llm.Client, out, errOut io.Writer, opts ...Option) *Pipeline {
	p := &Pipeline{
		client:     client,
		out:        out,
		errOut:     errOut,
		errorStyle: func(s string) string { return s },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run performs one completion.
//
// With params.Stream set, fragments are written to the output sink as they
// arrive, followed by a newline. A provider without native streaming is
// called once and its whole answer is written as a single fragment. Without
// params.Stream nothing is written to the output sink; a stream-only
// provider is drained silently.
func (p *Pipeline) Run(ctx context.Context, params llm.Params) (answer Answer) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			answer = p.fail(fmt.Errorf("provider panic: %v", r))
		}
	}()

	caps := p.client.Capabilities()
	var completion llm.Completion
	var err error

	switch {
	case params.Stream && caps.Has(llm.CanStream):
		wrote := false
		completion, err = p.client.StreamComplete(ctx, params, func(fragment string) {
			wrote = true
			io.WriteString(p.out, fragment)
		})
		if wrote {
			io.WriteString(p.out, "\n")
		}
		answer.Streamed = true
	case params.Stream:
		completion, err = p.client.Complete(ctx, params)
		if err == nil && completion.Text != "" {
			io.WriteString(p.out, completion.Text)
			io.WriteString(p.out, "\n")
		}
		answer.Streamed = true
	case caps.Has(llm.CanComplete):
		completion, err = p.client.Complete(ctx, params)
	default:
		completion, err = p.client.StreamComplete(ctx, params, nil)
	}

	if err == nil && completion.Text == "" {
		err = llm.ErrEmptyResponse
	}
	if err != nil {
		failed := p.fail(err)
		failed.Streamed = answer.Streamed
		return failed
	}

	log.Debug().
		Str("provider", p.client.Name()).
		Str("model", completion.Model).
		Bool("stream", params.Stream).
		Int("chars", len(completion.Text)).
		Dur("dur", time.Since(start)).
		Msg("completion finished")

	answer.Text = completion.Text
	answer.Model = completion.Model
	return answer
}

// fail reports err on the error sink and returns a failed Answer.
func (p *Pipeline) fail(err error) Answer {
	log.Debug().Err(err).Str("provider", p.client.Name()).Msg("completion failed")
	fmt.Fprintln(p.errOut, p.errorStyle(Describe(err)))
	return Answer{Err: err}
}

// Describe returns the user-facing diagnostic for a provider error.
func Describe(err error) string {
	var se *llm.StreamError
	switch {
	case llm.IsAuth(err):
		return "Invalid API key"
	case llm.IsRateLimited(err):
		return "API request limit reached"
	case errors.Is(err, context.Canceled):
		return "Request cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "Request timed out"
	case errors.Is(err, llm.ErrEmptyResponse):
		return "The provider returned an empty answer"
	case errors.As(err, &se):
		return fmt.Sprintf("Response interrupted: %v", se.Err)
	default:
		return fmt.Sprintf("Request failed: %v", err)
	}
}
