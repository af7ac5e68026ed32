// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import "github.com/google/uuid"

// ChatTurn is one completed prompt/answer exchange. Values are immutable
// once appended.
type ChatTurn struct {
	Mode   string `json:"mode"`
	Prompt string `json:"prompt"`
	Answer string `json:"answer"`
}

// History is the ordered record of the turns of one run. Turns are only
// ever appended, in completion order.
type History struct {
	SessionID string     `json:"session_id"`
	Date      string     `json:"date"`
	Dialogue  []ChatTurn `json:"dialogue"`
}

// NewHistory starts an empty history with a fresh session ID.
func NewHistory() *History {
	return &History{
		SessionID: uuid.NewString(),
		Dialogue:  []ChatTurn{},
	}
}

// Append records a completed turn.
func (h *History) Append(turn ChatTurn) {
	h.Dialogue = append(h.Dialogue, turn)
}

// Turns returns a copy of the recorded turns.
func (h *History) Turns() []ChatTurn {
	out := make([]ChatTurn, len(h.Dialogue))
	copy(out, h.Dialogue)
	return out
}

// Len returns the number of recorded turns.
func (h *History) Len() int {
	return len(h.Dialogue)
}
