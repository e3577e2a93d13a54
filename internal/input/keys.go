// Package input implements spec §4.E: the command-line buffer and its
// derived state (cursor, history, autocomplete, hint), the Normal/Search
// mode switch, and the Enter-dispatch rules. Grounded on
// original_source/src/inputs/inputs_task.rs's InputsShared field set
// (command_line, cursor, history_len, current_hint, autocomplete_list,
// pattern) and original_source/src/inputs/history.rs's History/
// PersistHistory, with the dispatch rules from spec §4.E/§6 (the
// crossterm-based old/command_bar.rs is the superseded version per §9
// Design Notes and is not replicated).
package input

// Key is one decoded keystroke, abstracted from any one terminal library's
// event type so this package has no dependency on a specific input driver
// (cmd/scope's raw-mode reader decodes escape sequences into these).
type Key struct {
	Kind KeyKind
	Rune rune
}

type KeyKind int

const (
	KeyChar KeyKind = iota
	KeyBackspace
	KeyDelete
	KeyLeft
	KeyRight
	KeyHome
	KeyEnd
	KeyUp
	KeyDown
	KeyTab
	KeyEnter
	KeyEscape

	// KeySearchNext and KeySearchPrev are the dedicated search-navigation
	// keys spec §4.E calls "n/N (or configured keys)" — decoded by
	// cmd/scope from Ctrl-N/Ctrl-P, so they never collide with a literal
	// 'n'/'N' typed into the search query.
	KeySearchNext
	KeySearchPrev

	// KeySearchEnter switches from Normal to Search mode (cmd/scope binds
	// Ctrl-F, since '/' is already the command-dispatch prefix).
	KeySearchEnter
)
