package main

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

const (
	enterAltScreen = "\x1b[?1049h"
	leaveAltScreen = "\x1b[?1049l"
	hideCursor     = "\x1b[?25l"
	showCursor     = "\x1b[?25h"
	enableMouse    = "\x1b[?1000h"
	disableMouse   = "\x1b[?1000l"
)

// terminalSession owns the raw-mode/alternate-screen lifecycle and
// guarantees restoration on any exit path, including panics (spec §5
// "Cancellation and shutdown": "the renderer restores the terminal
// (disable raw mode, leave alternate screen, show cursor) on any exit
// path, including panics"). Grounded on
// ehrlich-b-wingthing/cmd/wt/egg.go's term.MakeRaw/defer term.Restore
// pattern.
type terminalSession struct {
	fd       int
	oldState *term.State
}

func openTerminalSession() (*terminalSession, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("cmd/scope: stdin is not a terminal")
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("cmd/scope: cannot enter raw mode: %w", err)
	}
	fmt.Fprint(os.Stdout, enterAltScreen, hideCursor, enableMouse)
	return &terminalSession{fd: fd, oldState: oldState}, nil
}

// restore is idempotent-safe to call from both a normal return path and a
// recover() handler.
func (t *terminalSession) restore() {
	fmt.Fprint(os.Stdout, disableMouse, showCursor, leaveAltScreen)
	_ = term.Restore(t.fd, t.oldState)
}

func (t *terminalSession) size() (cols, rows int) {
	cols, rows = 80, 24
	if w, h, err := term.GetSize(t.fd); err == nil {
		cols, rows = w, h
	}
	return cols, rows
}
