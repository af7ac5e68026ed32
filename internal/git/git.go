// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package git runs the git commands the commit flow needs.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	// ErrNoStagedChanges is returned by StagedDiff when nothing is staged.
	ErrNoStagedChanges = errors.New("no staged changes")

	// ErrNotRepository is returned when the working directory is not inside
	// a git repository.
	ErrNotRepository = errors.New("not a git repository")
)

// Error describes a failed git invocation.
type Error struct {
	Op       string // diff, commit, show
	ExitCode int
	Stderr   string
	Err      error
}

func (e *Error) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.ExitCode > 0 {
		return fmt.Sprintf("git %s failed (exit %d): %s", e.Op, e.ExitCode, msg)
	}
	return fmt.Sprintf("git %s failed: %s", e.Op, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CLI invokes the git executable.
type CLI struct {
	// Binary defaults to "git".
	Binary string

	// Dir is the working directory; empty means the process directory.
	Dir string
}

// New returns a CLI rooted at dir.
func New(dir string) *CLI {
	return &CLI{Binary: "git", Dir: dir}
}

// StagedDiff returns the output of "git diff --staged".
func (c *CLI) StagedDiff(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "diff", nil, "diff", "--staged")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", ErrNoStagedChanges
	}
	return out, nil
}

// Commit records the staged changes with message. The message is passed on
// stdin so it may span lines and contain any characters.
func (c *CLI) Commit(ctx context.Context, message string) error {
	_, err := c.run(ctx, "commit", strings.NewReader(message), "commit", "--quiet", "--file", "-")
	return err
}

// ShowHEAD returns the description and patch of the HEAD commit.
func (c *CLI) ShowHEAD(ctx context.Context) (string, error) {
	return c.run(ctx, "show", nil, "show", "--no-color", "HEAD")
}

// run executes git with args and returns stdout.
// CANCELLATION: ctx kills the child process.
func (c *CLI) run(ctx context.Context, op string, stdin *strings.Reader, args ...string) (string, error) {
	binary := c.Binary
	if binary == "" {
		binary = "git"
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = c.Dir
	if stdin != nil {
		cmd.Stdin = stdin
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	log.Debug().Str("op", op).Dur("dur", time.Since(start)).Err(err).Msg("git")
	if err == nil {
		return stdout.String(), nil
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	gerr := &Error{Op: op, Stderr: stderr.String(), Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		gerr.ExitCode = exitErr.ExitCode()
	}
	if strings.Contains(strings.ToLower(gerr.Stderr), "not a git repository") {
		gerr.Err = ErrNotRepository
	}
	return "", gerr
}
