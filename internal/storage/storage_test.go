// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// HISTORY TESTS
// =============================================================================

func TestNewHistory(t *testing.T) {
	h := NewHistory()

	_, err := uuid.Parse(h.SessionID)
	assert.NoError(t, err, "session ID should be a UUID")
	assert.Equal(t, 0, h.Len())
}

func TestHistoryAppendKeepsOrder(t *testing.T) {
	h := NewHistory()
	h.Append(ChatTurn{Mode: "default", Prompt: "one", Answer: "1"})
	h.Append(ChatTurn{Mode: "esl", Prompt: "two", Answer: "2"})

	turns := h.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, "one", turns[0].Prompt)
	assert.Equal(t, "two", turns[1].Prompt)

	// Turns is a copy.
	turns[0].Prompt = "mutated"
	assert.Equal(t, "one", h.Dialogue[0].Prompt)
}

// =============================================================================
// STORE TESTS
// =============================================================================

func TestFileName(t *testing.T) {
	ts := time.Date(2024, time.March, 5, 7, 8, 9, 0, time.Local)
	if got := FileName(ts); got != "2024-3-5-7-8-9.json" {
		t.Errorf("FileName = %q, want %q", got, "2024-3-5-7-8-9.json")
	}

	ts = time.Date(2023, time.December, 31, 23, 59, 58, 0, time.Local)
	if got := FileName(ts); got != "2023-12-31-23-59-58.json" {
		t.Errorf("FileName = %q, want %q", got, "2023-12-31-23-59-58.json")
	}
}

func TestSaveHistory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	fixed := time.Date(2024, time.January, 2, 3, 4, 5, 0, time.Local)
	store := NewStore(dir)
	store.now = func() time.Time { return fixed }

	h := NewHistory()
	h.Append(ChatTurn{Mode: "commit mode", Prompt: "Generate a commit message", Answer: "Fix bug"})

	path, err := store.SaveHistory(h)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2024-1-2-3-4-5.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded struct {
		SessionID string     `json:"session_id"`
		Date      string     `json:"date"`
		Dialogue  []ChatTurn `json:"dialogue"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, h.SessionID, decoded.SessionID)
	assert.NotEmpty(t, decoded.Date)
	assert.Equal(t, h.Dialogue, decoded.Dialogue)
}

func TestSaveHistoryEmptyDialogue(t *testing.T) {
	store := NewStore(t.TempDir())
	path, err := store.SaveHistory(NewHistory())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"dialogue": []`)
}

// =============================================================================
// ARCHIVE TESTS
// =============================================================================

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := OpenArchive(context.Background(), filepath.Join(t.TempDir(), "logs", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestArchiveRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	a := openTestArchive(t)

	first := NewHistory()
	first.Append(ChatTurn{Mode: "default", Prompt: "a", Answer: "A"})
	first.Append(ChatTurn{Mode: "default", Prompt: "b", Answer: "B"})
	require.NoError(t, a.Record(ctx, first))

	second := NewHistory()
	second.Append(ChatTurn{Mode: "esl", Prompt: "c", Answer: "C"})
	require.NoError(t, a.Record(ctx, second))

	recent, err := a.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	assert.Equal(t, "b", recent[0].Prompt)
	assert.Equal(t, first.SessionID, recent[0].SessionID)
	assert.Equal(t, 1, recent[0].Seq)
	assert.Equal(t, "c", recent[1].Prompt)
	assert.Equal(t, "esl", recent[1].Mode)
	assert.Equal(t, second.SessionID, recent[1].SessionID)
	assert.False(t, recent[1].CreatedAt.IsZero())

	all, err := a.Recent(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestArchiveEmptyHistoryIsNoop(t *testing.T) {
	ctx := context.Background()
	a := openTestArchive(t)

	require.NoError(t, a.Record(ctx, NewHistory()))
	recent, err := a.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestArchiveClosed(t *testing.T) {
	a := openTestArchive(t)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	_, err := a.Recent(context.Background(), 1)
	assert.ErrorIs(t, err, ErrArchiveClosed)
	assert.ErrorIs(t, a.Record(context.Background(), NewHistory()), ErrArchiveClosed)
}
