package tui

import (
	"os"

	"golang.org/x/term"
)

// Interactive reports whether stdout is attached to a terminal.
// Rendered markdown and banners are reserved for interactive runs;
// piped output stays plain so it remains grep-friendly.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
