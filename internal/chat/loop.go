// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/loz/internal/llm"
	"github.com/jeranaias/loz/internal/pipeline"
	"github.com/jeranaias/loz/internal/session"
	"github.com/jeranaias/loz/internal/storage"
)

// DefaultPrompt is shown before every input line.
const DefaultPrompt = "> "

// Goodbye is printed when the loop terminates.
const Goodbye = "Good bye!"

// ErrInterrupted is returned by a LineReader when the user aborts input
// (Ctrl+C at the prompt).
var ErrInterrupted = errors.New("interrupted")

// LineReader supplies input lines. ReadLine returns io.EOF at end of input
// and ErrInterrupted when the user aborts the prompt.
type LineReader interface {
	ReadLine(prompt string) (string, error)
}

// Persister saves session state at shutdown.
type Persister interface {
	SaveConfig(cfg *session.Config) error
	SaveHistory(h *storage.History) error
}

// Styles decorates loop output. Nil fields leave text unchanged.
type Styles struct {
	Key   func(string) string
	Value func(string) string
	Dim   func(string) string
}

func (s Styles) apply(f func(string) string, text string) string {
	if f == nil {
		return text
	}
	return f(text)
}

// Options configures a Loop.
type Options struct {
	Reader    LineReader
	Pipeline  *pipeline.Pipeline
	Config    *session.Config
	History   *storage.History
	Defaults  llm.Params
	Persister Persister

	// Interrupts delivers terminal interrupts (SIGINT). May be nil.
	Interrupts <-chan os.Signal

	Out    io.Writer
	ErrOut io.Writer
	Prompt string
	Styles Styles
}

// Loop is the interactive command loop.
type Loop struct {
	opts         Options
	shutdownOnce sync.Once
	shutdownErr  error
}

// New creates a loop. Out and ErrOut default to os.Stdout and os.Stderr.
func New(opts Options) *Loop {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.ErrOut == nil {
		opts.ErrOut = os.Stderr
	}
	if opts.Prompt == "" {
		opts.Prompt = DefaultPrompt
	}
	if opts.History == nil {
		opts.History = storage.NewHistory()
	}
	if opts.Config == nil {
		opts.Config = session.Defaults()
	}
	return &Loop{opts: opts}
}

// History returns the history the loop appends to.
func (l *Loop) History() *storage.History {
	return l.opts.History
}

// Run reads and dispatches lines until the session terminates, then
// persists the configuration and history. Cancelling ctx terminates the
// loop at the next suspension point.
func (l *Loop) Run(ctx context.Context) error {
	err := l.run(ctx)
	fmt.Fprintln(l.opts.Out, Goodbye)
	if shutdownErr := l.Shutdown(); shutdownErr != nil {
		return errors.Join(err, shutdownErr)
	}
	return err
}

func (l *Loop) run(ctx context.Context) error {
	for {
		if l.interrupted(ctx) {
			return nil
		}

		line, err := l.opts.Reader.ReadLine(l.opts.Prompt)
		if err != nil {
			if errors.Is(err, ErrInterrupted) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		if l.interrupted(ctx) {
			return nil
		}

		if l.dispatch(ctx, line) {
			return nil
		}
	}
}

// interrupted reports, without blocking, whether the session should end.
func (l *Loop) interrupted(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	select {
	case <-l.opts.Interrupts:
		return true
	default:
		return false
	}
}

// dispatch acts on one line and reports whether the loop must terminate.
func (l *Loop) dispatch(ctx context.Context, line string) bool {
	if line == "exit" || line == "quit" {
		return true
	}

	if tokens := strings.Fields(line); len(tokens) >= 1 && len(tokens) <= 3 && tokens[0] == "config" {
		l.configCommand(tokens[1:])
		return false
	}

	if line == "" {
		return false
	}

	return l.complete(ctx, line)
}

// complete runs one completion for line and records the turn on success.
// It reports whether an interrupt arrived while the completion ran.
func (l *Loop) complete(ctx context.Context, line string) bool {
	cfg := l.opts.Config
	params := BuildParams(l.opts.Defaults, cfg, line)
	mode := cfg.Mode()

	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	interrupted := make(chan bool, 1)
	go func() {
		select {
		case <-l.opts.Interrupts:
			cancel()
			interrupted <- true
		case <-cctx.Done():
			interrupted <- false
		case <-done:
			interrupted <- false
		}
	}()

	answer := l.opts.Pipeline.Run(cctx, params)
	close(done)
	stop := <-interrupted || ctx.Err() != nil

	if answer.OK() {
		l.opts.History.Append(storage.ChatTurn{Mode: mode, Prompt: line, Answer: answer.Text})
	}

	log.Debug().Bool("ok", answer.OK()).Bool("interrupted", stop).Int("turns", l.opts.History.Len()).Msg("interactive turn")
	return stop
}

// Shutdown persists the session configuration and the history. Only the
// first call does any work; later calls return the first result.
func (l *Loop) Shutdown() error {
	l.shutdownOnce.Do(func() {
		if l.opts.Persister == nil {
			return
		}
		var errs []error
		if err := l.opts.Persister.SaveConfig(l.opts.Config); err != nil {
			errs = append(errs, fmt.Errorf("save config: %w", err))
		}
		if err := l.opts.Persister.SaveHistory(l.opts.History); err != nil {
			errs = append(errs, fmt.Errorf("save history: %w", err))
		}
		l.shutdownErr = errors.Join(errs...)
	})
	return l.shutdownErr
}
