// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// SQLITE ARCHIVE
// =============================================================================

// archiveSchema creates the turns table.
const archiveSchema = `
CREATE TABLE IF NOT EXISTS turns (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT    NOT NULL,
	seq        INTEGER NOT NULL,
	mode       TEXT    NOT NULL,
	prompt     TEXT    NOT NULL,
	answer     TEXT    NOT NULL,
	created_at TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id);
`

// ErrArchiveClosed is returned by operations on a closed archive.
var ErrArchiveClosed = errors.New("history archive is closed")

// ArchivedTurn is a turn read back from the archive.
type ArchivedTurn struct {
	ID        int64
	SessionID string
	Seq       int
	ChatTurn
	CreatedAt time.Time
}

// Archive is a sqlite database holding every saved turn.
type Archive struct {
	db *sql.DB
}

// OpenArchive opens (or creates) the archive at path.
func OpenArchive(ctx context.Context, path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, archiveSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Archive{db: db}, nil
}

// Record inserts every turn of h in one transaction. An empty history is
// a no-op.
func (a *Archive) Record(ctx context.Context, h *History) error {
	if a.db == nil {
		return ErrArchiveClosed
	}
	if h.Len() == 0 {
		return nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO turns (session_id, seq, mode, prompt, answer, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	createdAt := time.Now().UTC().Format(time.RFC3339Nano)
	for i, turn := range h.Dialogue {
		if _, err := stmt.ExecContext(ctx, h.SessionID, i, turn.Mode, turn.Prompt, turn.Answer, createdAt); err != nil {
			return fmt.Errorf("failed to archive turn %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Recent returns up to n most recent turns, oldest first.
func (a *Archive) Recent(ctx context.Context, n int) ([]ArchivedTurn, error) {
	if a.db == nil {
		return nil, ErrArchiveClosed
	}
	if n <= 0 {
		return nil, nil
	}

	rows, err := a.db.QueryContext(ctx,
		`SELECT id, session_id, seq, mode, prompt, answer, created_at FROM turns ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query archive: %w", err)
	}
	defer rows.Close()

	var turns []ArchivedTurn
	for rows.Next() {
		var t ArchivedTurn
		var created string
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Seq, &t.Mode, &t.Prompt, &t.Answer, &created); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		t.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Oldest first.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// Close closes the archive. It is safe to call more than once.
func (a *Archive) Close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}
