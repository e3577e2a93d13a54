package input

// Mode mirrors the command-line's own Normal/Search switch (spec §3
// "Command-line state": "mode: Normal | Search"). Distinct from
// screen.Mode, which tracks the viewport's own Normal/Search switch —
// the two are driven in lockstep by cmd/scope but are separate state
// machines per §9 Design Notes.
type Mode int

const (
	ModeNormal Mode = iota
	ModeSearch
)

// SearchEditKind tells cmd/scope what a Search-mode keystroke should do
// to the Screen's own search state.
type SearchEditKind int

const (
	SearchEditNone SearchEditKind = iota
	SearchEditQueryChanged
	SearchEditCommit
	SearchEditNext
	SearchEditPrev
	SearchEditCancel
)

// State is the command-line buffer and its derived state (spec §3
// "Command-line state: { buffer, cursor, history cursor, autocomplete
// list + pattern, hint, mode: Normal | Search, search buffer + cursor +
// case flag }. Invariant: cursor ≤ |buffer|"). Grounded on
// original_source/src/inputs/inputs_task.rs's InputsShared.
type State struct {
	Buffer []rune
	Cursor int
	Mode   Mode

	SearchBuffer []rune
	SearchCursor int
	CaseSensitive bool

	Autocomplete Autocomplete

	history    historySource
	candidates Candidates
	maxHint    int
}

// historySource lets State work against either a bare History or a
// PersistHistory without caring which.
type historySource interface {
	NavigateUp(currentLine string) (NavResult, string)
	NavigateDown() (NavResult, string)
	ResetIndex()
	Commit(entry string) error
}

// NewState returns an empty Normal-mode command line backed by history.
func NewState(history historySource, maxHintItems int) *State {
	return &State{history: history, maxHint: maxHintItems}
}

// SetCandidates replaces the autocomplete union and recomputes the current
// hint/list against it. cmd/scope calls it once, at session start.
func (s *State) SetCandidates(c Candidates) {
	s.candidates = c
	s.refreshAutocomplete()
}

func (s *State) refreshAutocomplete() {
	token := CurrentToken(s.Buffer, s.Cursor)
	s.Autocomplete = Rebuild(token, s.candidates, s.maxHint)
}

func (s *State) insert(r rune) {
	s.Buffer = append(s.Buffer, 0)
	copy(s.Buffer[s.Cursor+1:], s.Buffer[s.Cursor:])
	s.Buffer[s.Cursor] = r
	s.Cursor++
}

func (s *State) backspace() {
	if s.Cursor == 0 {
		return
	}
	s.Buffer = append(s.Buffer[:s.Cursor-1], s.Buffer[s.Cursor:]...)
	s.Cursor--
}

func (s *State) delete() {
	if s.Cursor >= len(s.Buffer) {
		return
	}
	s.Buffer = append(s.Buffer[:s.Cursor], s.Buffer[s.Cursor+1:]...)
}

// HandleNormal processes one keystroke in Normal mode (spec §4.E step 1),
// returning the dispatch Action when Enter commits a line (ActionKind
// ActionNone otherwise).
func (s *State) HandleNormal(k Key) Action {
	switch k.Kind {
	case KeyChar:
		s.insert(k.Rune)
		s.history.ResetIndex()
		s.refreshAutocomplete()

	case KeyBackspace:
		s.backspace()
		s.history.ResetIndex()
		s.refreshAutocomplete()

	case KeyDelete:
		s.delete()
		s.refreshAutocomplete()

	case KeyLeft:
		if s.Cursor > 0 {
			s.Cursor--
		}
	case KeyRight:
		if s.Cursor < len(s.Buffer) {
			s.Cursor++
		}
	case KeyHome:
		s.Cursor = 0
	case KeyEnd:
		s.Cursor = len(s.Buffer)

	case KeyUp:
		result, text := s.history.NavigateUp(string(s.Buffer))
		if result != NavEmpty {
			s.Buffer = []rune(text)
			s.Cursor = len(s.Buffer)
			s.refreshAutocomplete()
		}
	case KeyDown:
		result, text := s.history.NavigateDown()
		if result != NavEmpty {
			s.Buffer = []rune(text)
			s.Cursor = len(s.Buffer)
			s.refreshAutocomplete()
		}

	case KeyTab:
		if s.Autocomplete.Hint != "" {
			s.acceptHint()
		}

	case KeySearchNext:
		return Action{Kind: ActionSearchNext}
	case KeySearchPrev:
		return Action{Kind: ActionSearchPrev}
	case KeySearchEnter:
		s.EnterSearch()

	case KeyEnter:
		line := string(s.Buffer)
		s.history.ResetIndex()
		if line != "" {
			_ = s.history.Commit(line)
		}
		s.Buffer = nil
		s.Cursor = 0
		s.Autocomplete = Autocomplete{}
		return Dispatch(line)
	}
	return Action{Kind: ActionNone}
}

// acceptHint replaces the current token with the hint (spec §4.E "Tab
// accepts the current hint").
func (s *State) acceptHint() {
	token := CurrentToken(s.Buffer, s.Cursor)
	extension := []rune(s.Autocomplete.Hint[len(token):])
	rest := append(extension, s.Buffer[s.Cursor:]...)
	s.Buffer = append(s.Buffer[:s.Cursor], rest...)
	s.Cursor += len(extension)
	s.refreshAutocomplete()
}

// EnterSearch switches to Search mode with an empty query (spec §4.E
// step 3).
func (s *State) EnterSearch() {
	s.Mode = ModeSearch
	s.SearchBuffer = nil
	s.SearchCursor = 0
}

// HandleSearch processes one keystroke in Search mode, returning what the
// Screen's own search state machine should do (spec §4.E step 3).
func (s *State) HandleSearch(k Key) SearchEditKind {
	switch k.Kind {
	case KeyChar:
		s.SearchBuffer = append(s.SearchBuffer, 0)
		copy(s.SearchBuffer[s.SearchCursor+1:], s.SearchBuffer[s.SearchCursor:])
		s.SearchBuffer[s.SearchCursor] = k.Rune
		s.SearchCursor++
		return SearchEditQueryChanged

	case KeyBackspace:
		if s.SearchCursor == 0 {
			return SearchEditNone
		}
		s.SearchBuffer = append(s.SearchBuffer[:s.SearchCursor-1], s.SearchBuffer[s.SearchCursor:]...)
		s.SearchCursor--
		return SearchEditQueryChanged

	case KeyLeft:
		if s.SearchCursor > 0 {
			s.SearchCursor--
		}
		return SearchEditNone
	case KeyRight:
		if s.SearchCursor < len(s.SearchBuffer) {
			s.SearchCursor++
		}
		return SearchEditNone

	case KeyEnter:
		s.Mode = ModeNormal
		return SearchEditCommit

	case KeyEscape:
		s.Mode = ModeNormal
		return SearchEditCancel

	case KeySearchNext:
		return SearchEditNext
	case KeySearchPrev:
		return SearchEditPrev

	default:
		return SearchEditNone
	}
}

// Query reports the current search buffer as a string, for Screen.SetQuery.
func (s *State) Query() string { return string(s.SearchBuffer) }
