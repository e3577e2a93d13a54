package input

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRebuildFindsShortestPrefixMatchAsHint(t *testing.T) {
	c := Candidates{
		MetaCommands: []string{"clear", "commands"},
	}
	ac := Rebuild("c", c, 10)
	require.Equal(t, "clear", ac.Hint)
	require.Equal(t, []string{"clear", "commands"}, ac.List)
}

func TestRebuildHintIsEmptyWhenTokenIsExactMatch(t *testing.T) {
	c := Candidates{MetaCommands: []string{"clear"}}
	ac := Rebuild("clear", c, 10)
	require.Empty(t, ac.Hint)
	require.Equal(t, []string{"clear"}, ac.List)
}

func TestRebuildEmptyTokenYieldsNoAutocomplete(t *testing.T) {
	c := Candidates{MetaCommands: []string{"clear"}}
	ac := Rebuild("", c, 10)
	require.Empty(t, ac.Hint)
	require.Nil(t, ac.List)
}

func TestRebuildTruncatesToMaxItems(t *testing.T) {
	c := Candidates{MetaCommands: []string{"aa", "ab", "ac", "ad"}}
	ac := Rebuild("a", c, 2)
	require.Len(t, ac.List, 2)
}

func TestRebuildNamespacesPluginUserCommands(t *testing.T) {
	c := Candidates{
		PluginUserCommands: map[string][]string{"demo": {"ping"}},
	}
	ac := Rebuild("demo.p", c, 10)
	require.Equal(t, "demo.ping", ac.Hint)
}

func TestCandidatesIncludeTagsAndCommandKeys(t *testing.T) {
	c := Candidates{TagKeys: []string{"reset"}, CommandKeys: []string{"status"}}
	ac := Rebuild("@re", c, 10)
	require.Equal(t, "@reset", ac.Hint)

	ac = Rebuild("/st", c, 10)
	require.Equal(t, "/status", ac.Hint)
}
