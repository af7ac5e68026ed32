// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jeranaias/loz/internal/chat"
	"github.com/jeranaias/loz/internal/config"
	"github.com/jeranaias/loz/internal/git"
	"github.com/jeranaias/loz/internal/llm"
	"github.com/jeranaias/loz/internal/logging"
	"github.com/jeranaias/loz/internal/provider"
)

// Version information (set at build time)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// Execute runs loz with the process arguments and returns the exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	err := newRootCmd(runProcess).ExecuteContext(ctx)
	if err != nil {
		DisplayError(os.Stderr, err)
	}
	return ExitCode(err)
}

// newRootCmd builds the command line. run receives the parsed invocation.
func newRootCmd(run func(ctx context.Context, inv Invocation) error) *cobra.Command {
	var inv Invocation

	cmd := &cobra.Command{
		Use:   "loz [prompt]",
		Short: Banner,
		Long: Banner + `

  loz                            Start an interactive session
  loz "what is a monad?"         Answer one prompt
  cat notes.txt | loz "summarize" Ask about piped data
  loz commit                     Commit staged changes with a generated message
  git diff | loz --git           Suggest a commit message for piped changes
  loz --history 20               Show the last 20 archived turns`,
		Version:       fmt.Sprintf("%s (%s)", Version, GitCommit),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.MaximumNArgs(1)(cmd, args); err != nil {
				return &UsageError{Err: err}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				inv.Prompt = args[0]
			}
			if inv.History < 0 {
				return &UsageError{Err: errors.New("--history must not be negative")}
			}
			return run(cmd.Context(), inv)
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})
	cmd.Flags().BoolVarP(&inv.Git, "git", "g", false, "Generate a Git commit message that summarizes the changes made in the diff")
	cmd.Flags().IntVar(&inv.History, "history", 0, "Print the last N archived turns and exit")
	return cmd
}

// runProcess wires the App to the real process environment.
func runProcess(ctx context.Context, inv Invocation) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &ConfigError{Reason: "cannot read .env", Err: err}
	}

	settings, err := config.Load()
	if err != nil {
		return &ConfigError{Reason: "cannot load settings", Err: err}
	}
	logging.Setup(settings.Debug, os.Stderr)
	ApplyColorMode(settings.UI.Color)

	paths, err := config.ResolvePaths()
	if err != nil {
		return &ConfigError{Reason: "cannot locate the loz directory", Err: err}
	}

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	app := &App{
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		StdinTTY:  IsTTY(),
		StdoutTTY: IsStdoutTTY(),
		Settings:  settings,
		Paths:     paths,
		NewClient: func(ctx context.Context, id llm.Identity, s *config.Settings) (llm.Client, error) {
			return provider.New(ctx, id, s)
		},
		NewLineReader: func(dir string) (chat.LineReader, func()) {
			r := newLineReader(dir)
			return r, r.Close
		},
		Git:        git.New(""),
		Interrupts: interrupts,
	}
	return app.Run(ctx, inv)
}
