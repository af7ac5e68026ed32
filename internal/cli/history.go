// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/jeranaias/loz/internal/storage"
	"github.com/jeranaias/loz/internal/util"
)

const (
	timestampLayout = "2006-01-02 15:04"
	modeColumnWidth = 10
)

// listHistory prints the last n archived turns, oldest first. No provider
// is contacted.
func (a *App) listHistory(ctx context.Context, n int) error {
	if _, err := os.Stat(a.Paths.Archive); errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(a.Stdout, DimStyle.Render("No archived history yet"))
		return nil
	}

	archive, err := storage.OpenArchive(ctx, a.Paths.Archive)
	if err != nil {
		return err
	}
	defer archive.Close()

	turns, err := archive.Recent(ctx, n)
	if err != nil {
		return err
	}

	width := DefaultTerminalWidth
	if a.StdoutTTY {
		width = GetTerminalWidth()
	}
	promptWidth := width - len(timestampLayout) - modeColumnWidth - 2

	for _, t := range turns {
		fmt.Fprintf(a.Stdout, "%s %s %s\n",
			DimStyle.Render(t.CreatedAt.Local().Format(timestampLayout)),
			KeyStyle.Render(util.PadRight(util.TruncateWidth(t.Mode, modeColumnWidth), modeColumnWidth)),
			util.TruncateWidth(util.OneLine(t.Prompt), promptWidth))
		fmt.Fprintf(a.Stdout, "  %s\n", ValueStyle.Render(util.TruncateWidth(util.OneLine(t.Answer), width-2)))
	}
	return nil
}
