// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// versionMarker appears in the output of `ollama --version` on every
// released build.
const versionMarker = "ollama version"

// probeTimeout bounds the version probe.
const probeTimeout = 5 * time.Second

// Probe verifies that the Ollama binary is installed by running
// `<binary> --version` and looking for the version marker in its output.
// An empty binary or "ollama" searches PATH and the common install
// locations for the platform.
func Probe(ctx context.Context, binary string) error {
	path := binary
	if path == "" || path == "ollama" {
		found, err := findOllamaExecutable()
		if err != nil {
			return &ClientError{Type: ErrTypeNotInstalled, Message: ErrNotInstalled.Message, Cause: err}
		}
		path = found
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, path, "--version")
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	output := strings.TrimSpace(out.String())
	log.Debug().Str("binary", path).Str("output", output).Msg("ollama version probe")

	// The binary exits non-zero when the daemon is down but still prints
	// its client version, which is all the probe needs.
	if strings.Contains(strings.ToLower(output), versionMarker) {
		return nil
	}
	if err != nil {
		return &ClientError{Type: ErrTypeNotInstalled, Message: ErrNotInstalled.Message, Cause: fmt.Errorf("%s --version: %w", path, err)}
	}
	return &ClientError{Type: ErrTypeNotInstalled, Message: ErrNotInstalled.Message, Cause: fmt.Errorf("unexpected version output %q", output)}
}
