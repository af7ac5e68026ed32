// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"io"

	"github.com/jeranaias/loz/internal/session"
)

// undefined is printed for a key that has no value.
const undefined = "undefined"

// configCommand handles "config", "config <key>" and "config <key> <value>".
// args holds the tokens after "config". It never fails and never ends the
// session.
func (l *Loop) configCommand(args []string) {
	cfg := l.opts.Config
	out := l.opts.Out
	st := l.opts.Styles

	switch len(args) {
	case 0:
		PrintConfig(out, cfg, st)
	case 1:
		if v, ok := cfg.Get(args[0]); ok {
			fmt.Fprintln(out, st.apply(st.Value, v))
		} else {
			fmt.Fprintln(out, st.apply(st.Dim, undefined))
		}
	case 2:
		key, value := args[0], args[1]
		if prev, ok := cfg.Get(key); ok {
			fmt.Fprintf(out, "%s will be updated with %s\n", st.apply(st.Value, prev), st.apply(st.Value, value))
		}
		cfg.Set(key, value)
	}
}

// PrintConfig writes every entry of cfg as "key: value", one per line.
func PrintConfig(w io.Writer, cfg *session.Config, st Styles) {
	for _, e := range cfg.Entries() {
		fmt.Fprintf(w, "%s: %s\n", st.apply(st.Key, e.Name), st.apply(st.Value, e.Value))
	}
}
