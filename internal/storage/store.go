// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/loz/internal/util"
)

// =============================================================================
// HISTORY STORE
// =============================================================================

// Store writes histories as JSON files into a log directory.
type Store struct {
	// Dir is the log directory. It is created on the first save.
	Dir string

	now func() time.Time
}

// NewStore creates a store writing into dir.
func NewStore(dir string) *Store {
	return &Store{Dir: dir, now: time.Now}
}

// FileName returns the history file name for t: year, month, day, hour,
// minute and second joined by dashes, without zero padding.
func FileName(t time.Time) string {
	return fmt.Sprintf("%d-%d-%d-%d-%d-%d.json",
		t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
}

// SaveHistory stamps h with the current time and writes it to
// <Dir>/<FileName(now)>. It returns the written path.
func (s *Store) SaveHistory(h *History) (string, error) {
	now := s.now()
	h.Date = now.Format(time.RFC1123Z)

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal history: %w", err)
	}

	path := filepath.Join(s.Dir, FileName(now))
	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	if err := util.AtomicWriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to save history: %w", err)
	}

	log.Debug().Str("path", path).Int("turns", h.Len()).Msg("saved history")
	return path, nil
}
