package screen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mwhite/scope-go/internal/messages"
)

func ringWithRxLines(t *testing.T, lines ...string) *Ring {
	t.Helper()
	r := NewRing(0)
	for _, l := range lines {
		r.Push(Line{Timestamp: time.Now(), Kind: KindRx, Raw: []byte(l)})
	}
	return r
}

func TestSearchFindsHitsAndNavigates(t *testing.T) {
	r := ringWithRxLines(t, "alpha", "beta", "alpha", "gamma")
	s := NewState()
	s.Viewport = Viewport{Width: 80, Height: 10}

	s.EnterSearch("alpha", true, r)
	require.Equal(t, []messages.BufferPosition{{Line: 0, Column: 0}, {Line: 2, Column: 0}}, s.Search.Hits)
	require.Equal(t, 0, s.Search.CurrentHit)

	s.NextSearch(r.Len())
	require.Equal(t, 1, s.Search.CurrentHit)

	s.NextSearch(r.Len())
	require.Equal(t, 0, s.Search.CurrentHit)
}

func TestSearchPrevWrapsBackward(t *testing.T) {
	r := ringWithRxLines(t, "alpha", "beta", "alpha")
	s := NewState()
	s.Viewport = Viewport{Width: 80, Height: 10}
	s.EnterSearch("alpha", true, r)

	s.PrevSearch(r.Len())
	require.Equal(t, 1, s.Search.CurrentHit)
}

func TestRingEvictionRenumbersSequenceIndex(t *testing.T) {
	r := NewRing(3)
	for i := 0; i < 5; i++ {
		r.Push(Line{Raw: []byte{byte(i)}})
	}
	require.Equal(t, 3, r.Len())
	for i, l := range r.Range(0, r.Len()) {
		require.Equal(t, i, l.SequenceIndex)
	}
}

func TestAutoScrollPinsToBottomOnNewLines(t *testing.T) {
	r := NewRing(0)
	s := NewState()
	s.Viewport = Viewport{Width: 80, Height: 5}

	for i := 0; i < 20; i++ {
		r.Push(Line{Raw: []byte("x")})
		s.OnNewLines(r.Len())
	}
	require.Equal(t, maxTop(r.Len(), 5), s.TopLine)
	require.True(t, s.AutoScroll)
}

func TestScrollUpClearsAutoScroll(t *testing.T) {
	r := NewRing(0)
	for i := 0; i < 20; i++ {
		r.Push(Line{Raw: []byte("x")})
	}
	s := NewState()
	s.Viewport = Viewport{Width: 80, Height: 5}
	s.OnNewLines(r.Len())
	require.True(t, s.AutoScroll)

	s.ScrollVertical(-2, r.Len())
	require.False(t, s.AutoScroll)
}

func TestJumpToEndReengagesAutoScroll(t *testing.T) {
	r := NewRing(0)
	for i := 0; i < 20; i++ {
		r.Push(Line{Raw: []byte("x")})
	}
	s := NewState()
	s.Viewport = Viewport{Width: 80, Height: 5}
	s.ScrollVertical(-5, r.Len())
	require.False(t, s.AutoScroll)

	s.JumpToEnd(r.Len())
	require.True(t, s.AutoScroll)
	require.Equal(t, maxTop(r.Len(), 5), s.TopLine)
}

func TestSearchModeDoesNotAutoFollow(t *testing.T) {
	r := ringWithRxLines(t, "one", "two")
	s := NewState()
	s.Viewport = Viewport{Width: 80, Height: 5}
	s.EnterSearch("one", true, r)
	r.Push(Line{Kind: KindRx, Raw: []byte("three")})
	// Search mode never auto-follows new frames.
	require.Equal(t, 0, s.TopLine)
}
