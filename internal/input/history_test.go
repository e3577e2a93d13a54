package input

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHistorySuppressesConsecutiveDuplicates(t *testing.T) {
	h := NewHistory()
	require.True(t, h.Push("ping"))
	require.False(t, h.Push("ping"))
	require.True(t, h.Push("status"))
	require.True(t, h.Push("ping"))
	require.Equal(t, []string{"ping", "status", "ping"}, h.Entries())
}

func TestHistoryNavigationCapturesAndRestoresDraft(t *testing.T) {
	h := NewHistory()
	h.Push("one")
	h.Push("two")

	res, text := h.NavigateUp("draft-in-progress")
	require.Equal(t, NavEntry, res)
	require.Equal(t, "two", text)

	res, text = h.NavigateUp("draft-in-progress")
	require.Equal(t, NavEntry, res)
	require.Equal(t, "one", text)

	// at the oldest entry, further Up stays put.
	res, text = h.NavigateUp("draft-in-progress")
	require.Equal(t, NavEntry, res)
	require.Equal(t, "one", text)

	res, text = h.NavigateDown()
	require.Equal(t, NavEntry, res)
	require.Equal(t, "two", text)

	res, text = h.NavigateDown()
	require.Equal(t, NavRestoreDraft, res)
	require.Equal(t, "draft-in-progress", text)
}

func TestHistoryNavigateOnEmptyHistoryIsNoop(t *testing.T) {
	h := NewHistory()
	res, _ := h.NavigateUp("x")
	require.Equal(t, NavEmpty, res)
	res, _ = h.NavigateDown()
	require.Equal(t, NavEmpty, res)
}

func TestPersistHistoryReloadsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history")

	p, err := OpenPersistHistory(path)
	require.NoError(t, err)
	require.NoError(t, p.Push("alpha"))
	require.NoError(t, p.Push("beta"))
	require.NoError(t, p.Push("beta")) // suppressed duplicate

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "alpha\nbeta\n", string(data))

	reopened, err := OpenPersistHistory(path)
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "beta"}, reopened.Entries())
}
