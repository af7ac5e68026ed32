// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/loz/internal/chat"
	"github.com/jeranaias/loz/internal/session"
	"github.com/jeranaias/loz/internal/storage"
)

// archiveTimeout bounds the sqlite write at shutdown.
const archiveTimeout = 5 * time.Second

// persister writes the session config and history at shutdown. The history
// goes to a timestamped JSON file and, best effort, to the sqlite archive.
type persister struct {
	sessions    *session.Store
	histories   *storage.Store
	archivePath string
}

var _ chat.Persister = (*persister)(nil)

func (p *persister) SaveConfig(cfg *session.Config) error {
	return p.sessions.Save(cfg)
}

func (p *persister) SaveHistory(h *storage.History) error {
	if _, err := p.histories.SaveHistory(h); err != nil {
		return err
	}
	p.archive(h)
	return nil
}

// archive records h in the sqlite archive. Failures are logged only; the
// JSON file is the record of truth.
func (p *persister) archive(h *storage.History) {
	if p.archivePath == "" || h.Len() == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()

	a, err := storage.OpenArchive(ctx, p.archivePath)
	if err != nil {
		log.Warn().Err(err).Str("path", p.archivePath).Msg("history archive unavailable")
		return
	}
	defer a.Close()

	if err := a.Record(ctx, h); err != nil {
		log.Warn().Err(err).Msg("failed to archive history")
	}
}
