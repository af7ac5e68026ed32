// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/loz/internal/chat"
	"github.com/jeranaias/loz/internal/commit"
	"github.com/jeranaias/loz/internal/config"
	"github.com/jeranaias/loz/internal/llm"
	"github.com/jeranaias/loz/internal/ollama"
	"github.com/jeranaias/loz/internal/pipeline"
	"github.com/jeranaias/loz/internal/provider"
	"github.com/jeranaias/loz/internal/session"
	"github.com/jeranaias/loz/internal/storage"
)

// User-facing messages.
const (
	Banner        = "Loz: a simple CLI for LLM"
	PromptHint    = "Input your prompt:"
	GitUsageHint  = "Run loz like this: git diff | loz --git"
	pipedTemplate = "Based on the data provided below, %s:\n%s"
)

// Invocation is a parsed command line.
type Invocation struct {
	// Prompt is the positional argument; empty when absent.
	Prompt string

	// Git is the --git flag.
	Git bool

	// History is the --history count; zero when absent.
	History int
}

// ClientFactory constructs the provider client for an identity.
type ClientFactory func(ctx context.Context, id llm.Identity, settings *config.Settings) (llm.Client, error)

// App holds everything a run needs from the process environment.
type App struct {
	Stdin     io.Reader
	Stdout    io.Writer
	Stderr    io.Writer
	StdinTTY  bool
	StdoutTTY bool

	Settings *config.Settings
	Paths    config.Paths

	NewClient     ClientFactory
	NewLineReader func(dir string) (chat.LineReader, func())
	Git           commit.Git

	// Interrupts delivers SIGINT. May be nil.
	Interrupts <-chan os.Signal
}

type action int

const (
	actInteractive action = iota
	actSingleShot
	actPipedPrompt
	actCommit
	actTemplate
)

func (a action) String() string {
	return [...]string{"interactive", "single-shot", "piped-prompt", "commit", "template"}[a]
}

// runState is the state of one run after the startup checks passed.
type runState struct {
	app      *App
	cfg      *session.Config
	id       llm.Identity
	pipeline *pipeline.Pipeline
	history  *storage.History
	persist  *persister
}

// Run executes one invocation.
func (a *App) Run(ctx context.Context, inv Invocation) error {
	if inv.History > 0 {
		return a.listHistory(ctx, inv.History)
	}

	act, ok := a.classify(inv)
	if !ok {
		return nil
	}
	log.Debug().Stringer("action", act).Msg("dispatch")

	s, err := a.start(ctx)
	if err != nil {
		return err
	}

	if act != actInteractive {
		var cancel context.CancelFunc
		ctx, cancel = a.cancelOnInterrupt(ctx)
		defer cancel()
	}

	switch act {
	case actSingleShot:
		return s.singleShot(ctx, inv.Prompt)
	case actPipedPrompt:
		return s.pipedPrompt(ctx, inv.Prompt)
	case actCommit:
		return s.commit(ctx)
	case actTemplate:
		return s.template(ctx)
	default:
		return s.interactive(ctx)
	}
}

// classify picks the action for inv. It returns false after printing a
// usage hint when there is nothing to do.
func (a *App) classify(inv Invocation) (action, bool) {
	switch {
	case inv.Prompt == "commit":
		return actCommit, true
	case inv.Prompt != "" && !a.StdinTTY:
		return actPipedPrompt, true
	case inv.Prompt != "":
		return actSingleShot, true
	case inv.Git && !a.StdinTTY:
		return actTemplate, true
	case inv.Git:
		fmt.Fprintln(a.Stdout, GitUsageHint)
		return 0, false
	case !a.StdinTTY:
		fmt.Fprintln(a.Stdout, PromptHint)
		return 0, false
	default:
		return actInteractive, true
	}
}

// start loads the session config and builds the provider client. Nothing
// is written to disk until both succeed.
func (a *App) start(ctx context.Context) (*runState, error) {
	store := session.NewStore(a.Paths.SessionConfig)
	cfg, err := store.Load()
	if err != nil {
		return nil, &ConfigError{Reason: "invalid session config " + store.Path(), Err: err}
	}

	id, err := llm.ParseIdentity(cfg.API())
	if err != nil {
		return nil, &ConfigError{Reason: "invalid session config " + store.Path(), Err: err}
	}

	client, err := a.NewClient(ctx, id, a.Settings)
	switch {
	case errors.Is(err, provider.ErrMissingCredential):
		return nil, &ConfigError{Reason: "Please set OPENAI_API_KEY in your environment variables", Err: err}
	case errors.Is(err, provider.ErrDaemonUnavailable):
		reason := "Ollama is not available"
		if ollama.IsNotInstalled(err) {
			reason = "Ollama is not installed, get it from https://ollama.com/download"
		}
		return nil, &EnvironmentError{Reason: reason, Err: err}
	case err != nil:
		return nil, &ConfigError{Reason: "cannot use provider " + string(id), Err: err}
	}

	for _, dir := range []string{filepath.Dir(a.Paths.SessionConfig), a.Paths.HistoryDir} {
		if err := config.EnsureDir(dir); err != nil {
			return nil, err
		}
	}

	return &runState{
		app:      a,
		cfg:      cfg,
		id:       id,
		pipeline: pipeline.New(client, a.Stdout, a.Stderr, pipeline.WithErrorStyle(renderFunc(ErrorStyle))),
		history:  storage.NewHistory(),
		persist: &persister{
			sessions:    store,
			histories:   storage.NewStore(a.Paths.HistoryDir),
			archivePath: a.Paths.Archive,
		},
	}, nil
}

// cancelOnInterrupt derives a context cancelled by the first interrupt.
func (a *App) cancelOnInterrupt(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	if a.Interrupts == nil {
		return ctx, cancel
	}
	go func() {
		select {
		case <-a.Interrupts:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
