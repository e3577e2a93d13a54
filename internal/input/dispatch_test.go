package input

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDispatchCommand(t *testing.T) {
	a := Dispatch("/ping hello world")
	require.Equal(t, ActionCommand, a.Kind)
	require.Equal(t, "ping", a.Name)
	require.Equal(t, "hello world", a.Body)
}

func TestDispatchMetaClearAndUnknown(t *testing.T) {
	require.Equal(t, ActionMetaClear, Dispatch("!clear").Kind)

	a := Dispatch("!bogus")
	require.Equal(t, ActionMetaError, a.Kind)
	require.Contains(t, a.Body, "bogus")
}

func TestDispatchPluginSubcommands(t *testing.T) {
	a := Dispatch("!plugin load /path/to/plugin.lua")
	require.Equal(t, ActionPluginLoad, a.Kind)
	require.Equal(t, "/path/to/plugin.lua", a.Body)

	a = Dispatch("!plugin unload demo")
	require.Equal(t, ActionPluginUnload, a.Kind)
	require.Equal(t, "demo", a.Name)

	a = Dispatch("!plugin demo.ping arg1 arg2")
	require.Equal(t, ActionPluginUserCommand, a.Kind)
	require.Equal(t, "demo", a.Name)
	require.Equal(t, "ping arg1 arg2", a.Body)
}

func TestDispatchTagAndData(t *testing.T) {
	a := Dispatch("@reset")
	require.Equal(t, ActionTag, a.Kind)
	require.Equal(t, "reset", a.Name)

	a = Dispatch("plain data")
	require.Equal(t, ActionData, a.Kind)
	require.Equal(t, "plain data", a.Body)

	require.Equal(t, ActionNone, Dispatch("").Kind)
}

func TestCurrentTokenStopsAtSpace(t *testing.T) {
	buf := []rune("!plugin demo.pi")
	require.Equal(t, "demo.pi", CurrentToken(buf, len(buf)))
	require.Equal(t, "!plugin", CurrentToken(buf, 7))
}
