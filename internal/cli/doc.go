// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the loz command line.
//
// A single root command takes an optional prompt and picks what to do from
// the prompt, the --git flag and whether stdin is a terminal:
//
//	prompt "commit"            generate a message and commit staged changes
//	prompt, stdin piped        ask the prompt about the piped data
//	prompt, stdin a terminal   answer the prompt once
//	--git, stdin piped         suggest a message for the piped diff
//	--git, stdin a terminal    print a usage hint
//	nothing, stdin piped       print a usage hint
//	nothing, stdin a terminal  start the interactive loop
//
// --history N lists archived turns and never contacts a provider.
//
// Startup checks (session config, credential, daemon probe) run before any
// file is written. Their failures are fatal and map to exit codes in
// errors.go; everything after them is recoverable.
//
// # Key Types
//
//   - App: one run, with the process environment injected
//   - Invocation: parsed arguments
//   - ConfigError / EnvironmentError / UsageError: fatal errors
//
// # Usage
//
//	func main() {
//	    os.Exit(cli.Execute())
//	}
package cli
