package input

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// NavResult is what navigating history one step yields (spec §3
// "CommandHistory": "supports up/down navigation with a stashed draft
// captured on the first upward move"). Grounded on
// original_source/src/inputs/history.rs's HistoryNavResult.
type NavResult int

const (
	// NavEmpty: history has no entries; nothing to navigate.
	NavEmpty NavResult = iota
	// NavEntry: show History.Entry().
	NavEntry
	// NavRestoreDraft: navigated past the newest entry; restore the draft
	// captured on the first upward move.
	NavRestoreDraft
)

// History is the in-memory append-only command log with consecutive-
// duplicate suppression and up/down navigation (spec invariant 4, §4.E
// "Command history"). Grounded on
// original_source/src/inputs/history.rs's History.
type History struct {
	entries []string
	index   int // -1 means "not navigating"
	draft   string
}

// NewHistory returns an empty History.
func NewHistory() *History {
	return &History{index: -1}
}

// Push appends entry unless it duplicates the last pushed entry (spec
// invariant 4: "no two adjacent persisted entries are equal"). Reports
// whether it was added.
func (h *History) Push(entry string) bool {
	if len(h.entries) > 0 && h.entries[len(h.entries)-1] == entry {
		return false
	}
	h.entries = append(h.entries, entry)
	return true
}

// NavigateUp moves toward older entries, saving currentLine as the draft on
// the first call (spec §8 S6).
func (h *History) NavigateUp(currentLine string) (NavResult, string) {
	if len(h.entries) == 0 {
		return NavEmpty, ""
	}
	if h.index < 0 {
		h.draft = currentLine
		h.index = len(h.entries) - 1
	} else if h.index > 0 {
		h.index--
	}
	return NavEntry, h.entries[h.index]
}

// NavigateDown moves toward newer entries, restoring the draft once past
// the newest (spec §8 S6).
func (h *History) NavigateDown() (NavResult, string) {
	if len(h.entries) == 0 {
		return NavEmpty, ""
	}
	if h.index < 0 {
		return NavEmpty, ""
	}
	if h.index == len(h.entries)-1 {
		h.index = -1
		return NavRestoreDraft, h.draft
	}
	h.index++
	return NavEntry, h.entries[h.index]
}

// ResetIndex exits navigation (e.g. after Enter dispatches or the user
// types).
func (h *History) ResetIndex() { h.index = -1 }

// Commit is Push adapted to the historySource interface State uses; an
// in-memory History never fails to commit.
func (h *History) Commit(entry string) error {
	h.Push(entry)
	return nil
}

// Entries returns every pushed entry in order (diagnostics/tests).
func (h *History) Entries() []string { return append([]string(nil), h.entries...) }

// IsEmpty reports whether any entry has been pushed.
func (h *History) IsEmpty() bool { return len(h.entries) == 0 }

// PersistHistory is a History mirrored to a file under the platform data
// directory (spec §3 "CommandHistory": "optionally mirrored to a file under
// the user's data directory"), loaded at construction and appended to on
// every Push. Grounded on
// original_source/src/inputs/history.rs's PersistHistory.
type PersistHistory struct {
	inner *History
	path  string
}

// OpenPersistHistory loads existing entries from path (creating it if
// absent) and returns a history that appends new pushes to it.
func OpenPersistHistory(path string) (*PersistHistory, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("input: cannot create history dir %q: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("input: cannot open history file %q: %w", path, err)
	}
	defer f.Close()

	h := NewHistory()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		h.entries = append(h.entries, line)
	}
	return &PersistHistory{inner: h, path: path}, nil
}

// Push appends entry to the in-memory history and, if it was not a
// consecutive duplicate, to the file (spec invariant 4).
func (p *PersistHistory) Push(entry string) error {
	if !p.inner.Push(entry) {
		return nil
	}
	f, err := os.OpenFile(p.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("input: cannot append to history file %q: %w", p.path, err)
	}
	defer f.Close()
	_, err = fmt.Fprintln(f, entry)
	return err
}

// Commit is an alias for Push under the name historySource expects.
func (p *PersistHistory) Commit(entry string) error { return p.Push(entry) }

func (p *PersistHistory) NavigateUp(currentLine string) (NavResult, string) {
	return p.inner.NavigateUp(currentLine)
}
func (p *PersistHistory) NavigateDown() (NavResult, string) { return p.inner.NavigateDown() }
func (p *PersistHistory) ResetIndex()                       { p.inner.ResetIndex() }
func (p *PersistHistory) Entries() []string                 { return p.inner.Entries() }
func (p *PersistHistory) IsEmpty() bool                     { return p.inner.IsEmpty() }
