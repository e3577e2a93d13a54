package input

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func typeString(t *testing.T, s *State, text string) {
	for _, r := range text {
		s.HandleNormal(Key{Kind: KeyChar, Rune: r})
	}
}

func TestNormalModeInsertAndCursorMovement(t *testing.T) {
	s := NewState(NewHistory(), 10)
	typeString(t, s, "hello")
	require.Equal(t, "hello", string(s.Buffer))
	require.Equal(t, 5, s.Cursor)

	s.HandleNormal(Key{Kind: KeyLeft})
	s.HandleNormal(Key{Kind: KeyLeft})
	require.Equal(t, 3, s.Cursor)

	s.HandleNormal(Key{Kind: KeyBackspace})
	require.Equal(t, "helo", string(s.Buffer))
	require.Equal(t, 2, s.Cursor)

	s.HandleNormal(Key{Kind: KeyDelete})
	require.Equal(t, "heo", string(s.Buffer))

	s.HandleNormal(Key{Kind: KeyHome})
	require.Equal(t, 0, s.Cursor)
	s.HandleNormal(Key{Kind: KeyEnd})
	require.Equal(t, 3, s.Cursor)
}

func TestEnterDispatchesAndClearsBuffer(t *testing.T) {
	s := NewState(NewHistory(), 10)
	typeString(t, s, "/reset extra")
	action := s.HandleNormal(Key{Kind: KeyEnter})
	require.Equal(t, ActionCommand, action.Kind)
	require.Equal(t, "reset", action.Name)
	require.Equal(t, "extra", action.Body)
	require.Empty(t, s.Buffer)
	require.Equal(t, 0, s.Cursor)
}

func TestUpDownHistoryNavigationRestoresDraft(t *testing.T) {
	h := NewHistory()
	h.Push("earlier")
	s := NewState(h, 10)
	typeString(t, s, "wip")

	s.HandleNormal(Key{Kind: KeyUp})
	require.Equal(t, "earlier", string(s.Buffer))

	s.HandleNormal(Key{Kind: KeyDown})
	require.Equal(t, "wip", string(s.Buffer))
}

func TestTabAcceptsHint(t *testing.T) {
	s := NewState(NewHistory(), 10)
	s.SetCandidates(Candidates{MetaCommands: []string{"clear", "commands"}})
	typeString(t, s, "cl")
	require.Equal(t, "clear", s.Autocomplete.Hint)

	s.HandleNormal(Key{Kind: KeyTab})
	require.Equal(t, "clear", string(s.Buffer))
	require.Empty(t, s.Autocomplete.Hint)
}

func TestAutocompleteEmptiesOnDivergence(t *testing.T) {
	s := NewState(NewHistory(), 10)
	s.SetCandidates(Candidates{MetaCommands: []string{"clear"}})
	typeString(t, s, "cl")
	require.Equal(t, "clear", s.Autocomplete.Hint)
	typeString(t, s, "z")
	require.Empty(t, s.Autocomplete.Hint)
}

func TestSearchEnterKeySwitchesModeFromNormal(t *testing.T) {
	s := NewState(NewHistory(), 10)
	s.HandleNormal(Key{Kind: KeySearchEnter})
	require.Equal(t, ModeSearch, s.Mode)
}

func TestSearchModeEditsBufferAndCommits(t *testing.T) {
	s := NewState(NewHistory(), 10)
	s.EnterSearch()
	require.Equal(t, ModeSearch, s.Mode)

	for _, r := range "alpha" {
		kind := s.HandleSearch(Key{Kind: KeyChar, Rune: r})
		require.Equal(t, SearchEditQueryChanged, kind)
	}
	require.Equal(t, "alpha", s.Query())

	kind := s.HandleSearch(Key{Kind: KeyEnter})
	require.Equal(t, SearchEditCommit, kind)
	require.Equal(t, ModeNormal, s.Mode)
}

func TestSearchModeEscapeCancels(t *testing.T) {
	s := NewState(NewHistory(), 10)
	s.EnterSearch()
	s.HandleSearch(Key{Kind: KeyChar, Rune: 'x'})
	kind := s.HandleSearch(Key{Kind: KeyEscape})
	require.Equal(t, SearchEditCancel, kind)
	require.Equal(t, ModeNormal, s.Mode)
}

func TestSearchNavigationKeysDoNotCollideWithTyping(t *testing.T) {
	s := NewState(NewHistory(), 10)
	s.EnterSearch()
	s.HandleSearch(Key{Kind: KeyChar, Rune: 'n'})
	require.Equal(t, "n", s.Query())

	kind := s.HandleSearch(Key{Kind: KeySearchNext})
	require.Equal(t, SearchEditNext, kind)
	require.Equal(t, "n", s.Query()) // unchanged by the dedicated nav key
}
