// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// =============================================================================
// PATHS
// =============================================================================

// DirName is the per-user loz directory under $HOME.
const DirName = ".loz"

// Paths describes where loz keeps its files. In the installed layout
// everything lives in ~/.loz; in the dev layout the session config lives in
// <repo>/.loz and history files go to <repo>/logs.
type Paths struct {
	Dev bool

	// Root is ~/.loz (installed) or the repository root (dev).
	Root string

	// SessionConfig is the persisted session key/value file.
	SessionConfig string

	// HistoryDir receives one timestamped JSON file per session.
	HistoryDir string

	// Archive is the sqlite history archive.
	Archive string
}

// ConfigDir returns the loz configuration directory path (~/.loz).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// SettingsPath returns the path of the optional TOML settings file.
func SettingsPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "settings.toml"), nil
}

// ResolvePaths picks the dev or installed layout for the running binary.
// Nothing is created on disk.
func ResolvePaths() (Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		exe = ""
	} else if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return resolvePaths(exe, isTrue(os.Getenv("LOZ_DEV")))
}

// resolvePaths does the work of ResolvePaths for a given executable path.
func resolvePaths(exe string, forceDev bool) (Paths, error) {
	repo := ""
	if exe != "" {
		repo = findCheckout(filepath.Dir(exe))
	}
	if repo == "" && forceDev {
		wd, err := os.Getwd()
		if err != nil {
			return Paths{}, fmt.Errorf("could not determine working directory: %w", err)
		}
		repo = wd
	}

	if repo != "" {
		return DevPaths(repo), nil
	}

	dir, err := ConfigDir()
	if err != nil {
		return Paths{}, err
	}
	return InstalledPaths(dir), nil
}

// DevPaths returns the dev layout rooted at a repository checkout.
func DevPaths(repo string) Paths {
	return Paths{
		Dev:           true,
		Root:          repo,
		SessionConfig: filepath.Join(repo, DirName, "config.json"),
		HistoryDir:    filepath.Join(repo, "logs"),
		Archive:       filepath.Join(repo, "logs", "history.db"),
	}
}

// InstalledPaths returns the installed layout rooted at dir (normally ~/.loz).
func InstalledPaths(dir string) Paths {
	return Paths{
		Root:          dir,
		SessionConfig: filepath.Join(dir, "config.json"),
		HistoryDir:    dir,
		Archive:       filepath.Join(dir, "history.db"),
	}
}

// findCheckout returns the repository root when dir or its parent holds a
// .git directory, or "" otherwise.
func findCheckout(dir string) string {
	for _, candidate := range []string{dir, filepath.Dir(dir)} {
		if info, err := os.Stat(filepath.Join(candidate, ".git")); err == nil && info.IsDir() {
			return candidate
		}
	}
	return ""
}

// EnsureDir creates dir with user-only permissions if it does not exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return nil
}
