// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/loz/internal/llm"
	"github.com/jeranaias/loz/internal/session"
)

// Known modes.
const (
	ModeDefault   = session.DefaultMode
	ModeESL       = "esl"
	ModeProofread = "proofread"
)

// Instruction prefixes applied to interactive prompts.
const (
	ESLPrefix       = "Rephrase the following question to make it sound more natural and answer the question: \n"
	ProofreadPrefix = "Can you proofread the following sentence? Show me the difference between the given sentence and your correction.\n"
)

// Prefix returns the instruction prefix for mode. Unknown modes, including
// the default mode, have no prefix.
func Prefix(mode string) string {
	switch mode {
	case ModeESL:
		return ESLPrefix
	case ModeProofread:
		return ProofreadPrefix
	default:
		return ""
	}
}

// BuildParams derives the parameters for one interactive prompt. The result
// is a fresh value: defaults is never modified. The session "model" key,
// when set, overrides the default model.
func BuildParams(defaults llm.Params, cfg *session.Config, line string) llm.Params {
	p := defaults.Clone()
	p.Prompt = Prefix(cfg.Mode()) + line
	p.Stream = true
	if model := cfg.Model(); model != "" {
		p.Model = model
	}
	return p
}
