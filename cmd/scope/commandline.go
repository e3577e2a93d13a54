package main

import (
	"strings"

	"github.com/mwhite/scope-go/internal/input"
)

// renderCommandLine draws the bottom input row: the buffer with its hint
// shown dimmed past the cursor, followed by the autocomplete drop-down
// (spec §4.E "the drop-down list is the full filtered set, alphabetized,
// truncated to half the screen height").
func renderCommandLine(s *input.State) string {
	prompt := "> "
	if s.Mode == input.ModeSearch {
		prompt = "/ "
	}

	var b strings.Builder
	b.WriteString("\x1b[K")
	b.WriteString(prompt)

	switch s.Mode {
	case input.ModeSearch:
		b.WriteString(string(s.SearchBuffer))
	default:
		b.WriteString(string(s.Buffer))
		if hint := s.Autocomplete.Hint; hint != "" {
			token := input.CurrentToken(s.Buffer, s.Cursor)
			if strings.HasPrefix(hint, token) {
				b.WriteString("\x1b[2m")
				b.WriteString(hint[len(token):])
				b.WriteString("\x1b[0m")
			}
		}
	}
	b.WriteString("\r\n")

	for _, candidate := range s.Autocomplete.List {
		b.WriteString("\x1b[K  ")
		b.WriteString(candidate)
		b.WriteString("\r\n")
	}
	return b.String()
}
