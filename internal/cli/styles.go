// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Centralized styling for loz output.
//
// Color handling:
// - Colors are disabled for non-TTY output (piped, redirected)
// - Respects NO_COLOR environment variable (https://no-color.org/)
// - Supports FORCE_COLOR environment variable to override detection
// - The [ui] color setting ("always", "never", "auto") wins over both

package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/loz/internal/chat"
)

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for the startup banner
	// Color: Cyan (#39)
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")) // Cyan

	// KeyStyle is used for session config keys
	// Color: Light gray (#245)
	KeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")) // Light gray

	// ValueStyle is used for regular values and text
	// Color: White (#252)
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")) // Off-white

	// ErrorStyle is used for diagnostics
	// Color: Red (#196)
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")). // Red
			Bold(true)

	// DimStyle is used for secondary information and hints
	// Color: Dim gray (#242)
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")) // Dim gray

	// HighlightStyle is used for the active provider and model
	// Color: Bright green (#82)
	HighlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")) // Bright green
)

// ApplyColorMode configures the lipgloss color profile for a [ui] color
// setting.
// USABILITY: TTY detection for proper terminal handling
func ApplyColorMode(mode string) {
	switch mode {
	case "always":
		ForceColorsEnabled(true)
	case "never":
		ForceColorsEnabled(false)
	}
	lipgloss.SetColorProfile(GetColorProfile())
}

// chatStyles adapts the shared styles for the command loop.
func chatStyles() chat.Styles {
	return chat.Styles{
		Key:   renderFunc(KeyStyle),
		Value: renderFunc(ValueStyle),
		Dim:   renderFunc(DimStyle),
	}
}

// renderFunc adapts a style's variadic Render to func(string) string.
func renderFunc(style lipgloss.Style) func(string) string {
	return func(s string) string { return style.Render(s) }
}
