// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Fatal error types and exit codes for loz.
//
// STANDARDIZED PATTERN:
//   - Startup failures are returned as *ConfigError or *EnvironmentError
//   - Execute maps them to an exit code and prints one line
//   - Provider and git failures during a run are recoverable and never
//     reach this file

package cli

import (
	"errors"
	"fmt"
	"io"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates a missing credential or unreadable configuration
	ExitConfigError = 3
	// ExitEnvironmentError indicates a required local daemon is unavailable
	ExitEnvironmentError = 5
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ConfigError reports a missing credential or an invalid settings, session
// config or .env file. It is fatal before any loop starts.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// EnvironmentError reports that the local daemon failed its startup probe.
type EnvironmentError struct {
	Reason string
	Err    error
}

func (e *EnvironmentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *EnvironmentError) Unwrap() error {
	return e.Err
}

// UsageError reports invalid arguments or flags.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string {
	return e.Err.Error()
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return ExitConfigError
	}

	var envErr *EnvironmentError
	if errors.As(err, &envErr) {
		return ExitEnvironmentError
	}

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return ExitUsageError
	}

	return ExitGeneralError
}

// DisplayError writes the one-line fatal diagnostic for err.
func DisplayError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(w, ErrorStyle.Render("loz: "+err.Error()))
}
