// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// linereader.go - Line editing and input history for the interactive loop.
//
// USABILITY: Supports arrow keys for history navigation and line editing.
// Ctrl+C at the prompt aborts the session, Ctrl+D ends input.

package cli

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/loz/internal/chat"
)

// inputHistoryFile keeps previously entered lines across sessions.
const inputHistoryFile = "input_history"

// lineReader implements chat.LineReader on top of liner.
type lineReader struct {
	line        *liner.State
	historyFile string
}

var _ chat.LineReader = (*lineReader)(nil)

// newLineReader puts the terminal under liner's control and loads the
// input history from dir.
func newLineReader(dir string) *lineReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	r := &lineReader{
		line:        line,
		historyFile: filepath.Join(dir, inputHistoryFile),
	}
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

// ReadLine reads one line. Ctrl+C yields chat.ErrInterrupted.
func (r *lineReader) ReadLine(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", chat.ErrInterrupted
		}
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		return "", err
	}

	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves the input history and restores the terminal.
func (r *lineReader) Close() {
	f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err == nil {
		if _, err := r.line.WriteHistory(f); err != nil {
			log.Debug().Err(err).Msg("failed to write input history")
		}
		f.Close()
	}
	r.line.Close()
}
