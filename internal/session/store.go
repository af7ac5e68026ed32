// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/loz/internal/util"
)

// Store persists a Config as JSON at a fixed path.
type Store struct {
	path string
}

// NewStore creates a store for the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted config. A missing file yields Defaults(); a file
// that cannot be read or parsed is an error. The reserved keys are filled
// with their defaults when absent. Load never writes.
func (s *Store) Load() (*Config, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Debug().Str("path", s.path).Msg("no session config, using defaults")
			return Defaults(), nil
		}
		return nil, fmt.Errorf("failed to read session config: %w", err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid session config %s: %w", s.path, err)
	}
	cfg.SetDefault(KeyMode, DefaultMode)
	cfg.SetDefault(KeyAPI, DefaultAPI)

	log.Debug().Str("path", s.path).Int("entries", cfg.Len()).Msg("loaded session config")
	return cfg, nil
}

// Save writes cfg atomically, creating the parent directory if needed.
func (s *Store) Save(cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session config: %w", err)
	}
	if err := util.AtomicWriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to save session config: %w", err)
	}
	return nil
}
