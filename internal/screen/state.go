package screen

import (
	"strings"

	"github.com/mwhite/scope-go/internal/messages"
)

// Mode is spec §3 Screen state's mode: Normal or Search.
type Mode int

const (
	ModeNormal Mode = iota
	ModeSearch
)

// SearchState holds the active query and its hits (spec §3 "Search{query,
// case_sensitive, hits, current_hit}").
type SearchState struct {
	Query         string
	CaseSensitive bool
	Hits          []messages.BufferPosition
	CurrentHit    int
}

// Viewport is the visible rect in ring-lines/columns.
type Viewport struct {
	Width, Height int
}

// State is spec §3's "Screen state": the scroll/search/selection state
// machine coupled to the ring. Grounded on
// original_source/src/graphics/screen.rs's Screen/ScreenMode.
type State struct {
	TopLine    int
	LeftCol    int
	AutoScroll bool
	Mode       Mode
	Search     SearchState
	Decoder    Decoder
	Viewport   Viewport
}

// NewState returns a fresh Normal-mode state with auto-scroll engaged,
// matching Screen::default (auto_scroll: true, mode: Normal).
func NewState() *State {
	return &State{AutoScroll: true, Decoder: DecoderAscii}
}

// maxTop is the highest top_line that still shows a full page, per the
// invariant "top_line ≤ max(0, ring_size − visible_height)".
func maxTop(ringLen, visibleHeight int) int {
	m := ringLen - visibleHeight
	if m < 0 {
		m = 0
	}
	return m
}

func (s *State) visibleHeight() int {
	h := s.Viewport.Height
	if h <= 0 {
		h = 1
	}
	return h
}

func (s *State) clamp(ringLen int) {
	top := maxTop(ringLen, s.visibleHeight())
	if s.TopLine > top {
		s.TopLine = top
	}
	if s.TopLine < 0 {
		s.TopLine = 0
	}
	if s.TopLine == top {
		s.AutoScroll = true
	}
}

// ScrollVertical moves top_line by delta lines (positive = down), clearing
// auto_scroll on any upward motion and re-engaging it once scrolled to the
// bottom (spec §4.D "Any user-initiated upward motion clears auto_scroll").
func (s *State) ScrollVertical(delta, ringLen int) {
	if delta < 0 {
		s.TopLine -= -delta
		if s.TopLine < 0 {
			s.TopLine = 0
		}
		if s.TopLine < maxTop(ringLen, s.visibleHeight()) {
			s.AutoScroll = false
		}
		return
	}
	s.TopLine += delta
	s.clamp(ringLen)
}

// ScrollHorizontal moves left_col by delta columns.
func (s *State) ScrollHorizontal(delta, ringLen int) {
	if delta < 0 {
		s.LeftCol -= -delta
		if s.LeftCol < 0 {
			s.LeftCol = 0
		}
		if s.LeftCol == 0 && s.TopLine == maxTop(ringLen, s.visibleHeight()) {
			s.AutoScroll = true
			return
		}
	} else {
		s.LeftCol += delta
	}
	s.AutoScroll = false
}

// PageUp/PageDown move by a full viewport height; JumpToStart/JumpToEnd move
// to the extremes (spec §4.D "PageUp/PageDown; JumpToStart/JumpToEnd").
func (s *State) PageUp(ringLen int)   { s.ScrollVertical(-s.visibleHeight(), ringLen) }
func (s *State) PageDown(ringLen int) { s.ScrollVertical(s.visibleHeight(), ringLen) }

func (s *State) JumpToStart() {
	s.TopLine = 0
	s.AutoScroll = false
}

func (s *State) JumpToEnd(ringLen int) {
	s.TopLine = maxTop(ringLen, s.visibleHeight())
	s.AutoScroll = true
}

// Clear resets scroll state (spec §4.E "!clear clears the screen"),
// matching Screen::clear.
func (s *State) Clear() {
	s.AutoScroll = true
	s.TopLine = 0
	s.LeftCol = 0
}

// OnNewLines pins top_line to the bottom when auto_scroll is set, per spec
// §4.D "New frames arriving while auto_scroll is true pin top_line to the
// last visible region" (Screen::update_after_new_lines). Search mode never
// follows new frames.
func (s *State) OnNewLines(ringLen int) {
	if s.AutoScroll && s.Mode != ModeSearch {
		s.TopLine = maxTop(ringLen, s.visibleHeight())
	}
}

// EnterSearch switches to Search mode and rebuilds hits by scanning every rx
// line (spec §4.D "Entering search rebuilds the hits list ... scan every rx
// line (only)").
func (s *State) EnterSearch(query string, caseSensitive bool, ring *Ring) {
	s.Mode = ModeSearch
	s.Search = SearchState{Query: query, CaseSensitive: caseSensitive}
	s.rescan(ring)
}

// SetQuery updates the query while already in Search mode and rescans.
func (s *State) SetQuery(query string, caseSensitive bool, ring *Ring) {
	s.Search.Query = query
	s.Search.CaseSensitive = caseSensitive
	s.rescan(ring)
}

func (s *State) rescan(ring *Ring) {
	s.Search.Hits = nil
	s.Search.CurrentHit = 0
	if s.Search.Query == "" {
		return
	}
	query := s.Search.Query
	if !s.Search.CaseSensitive {
		query = strings.ToLower(query)
	}
	for i, line := range ring.Range(0, ring.Len()) {
		if line.Kind != KindRx {
			continue
		}
		text := s.Decoder.Decode(line.Raw)
		haystack := text
		if !s.Search.CaseSensitive {
			haystack = strings.ToLower(haystack)
		}
		col := 0
		for {
			idx := strings.Index(haystack[col:], query)
			if idx < 0 {
				break
			}
			col += idx
			s.Search.Hits = append(s.Search.Hits, messages.BufferPosition{Line: i, Column: col})
			col += len(query)
		}
	}
}

// ExitSearch returns to Normal mode, clamping top_line back to the Normal
// bound (spec §4.D "on exit, clamp top_line back to the Normal-mode bound").
func (s *State) ExitSearch(ringLen int) {
	s.Mode = ModeNormal
	s.clamp(ringLen)
}

// NextSearch/PrevSearch advance the current hit modulo |hits| and re-center
// the viewport (spec §4.D, invariant "NextSearch → current_hit = 1").
func (s *State) NextSearch(ringLen int) {
	if len(s.Search.Hits) == 0 {
		return
	}
	s.Search.CurrentHit = (s.Search.CurrentHit + 1) % len(s.Search.Hits)
	s.centerOnCurrentHit(ringLen)
}

func (s *State) PrevSearch(ringLen int) {
	if len(s.Search.Hits) == 0 {
		return
	}
	s.Search.CurrentHit = (s.Search.CurrentHit - 1 + len(s.Search.Hits)) % len(s.Search.Hits)
	s.centerOnCurrentHit(ringLen)
}

func (s *State) centerOnCurrentHit(ringLen int) {
	hit := s.Search.Hits[s.Search.CurrentHit]
	s.TopLine = saturatingSub(hit.Line, s.visibleHeight()/2)
	s.LeftCol = saturatingSub(hit.Column, s.Viewport.Width/2)
	s.clamp(ringLen)
	s.AutoScroll = false
}

func saturatingSub(a, b int) int {
	if b >= a {
		return 0
	}
	return a - b
}
