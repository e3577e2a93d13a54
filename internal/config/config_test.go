package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCommandTableParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "commands.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reset: RST\nping: PING\n"), 0o644))

	table, err := LoadCommandTable(path)
	require.NoError(t, err)

	v, ok := table.Lookup("reset")
	require.True(t, ok)
	require.Equal(t, "RST", v)

	_, ok = table.Lookup("missing")
	require.False(t, ok)
}

func TestLoadCommandTableMissingFileDegradesGracefully(t *testing.T) {
	table, err := LoadCommandTable(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Empty(t, table.Keys())
}

func TestLoadCommandTableMalformedYAMLErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(": : :not yaml"), 0o644))

	_, err := LoadCommandTable(path)
	require.Error(t, err)
}

func TestCommandTableReloadPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "commands.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reset: RST\n"), 0o644))

	table, err := LoadCommandTable(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("reset: NEWRST\n"), 0o644))
	require.NoError(t, table.Reload())

	v, _ := table.Lookup("reset")
	require.Equal(t, "NEWRST", v)
}

func TestLoadTagTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tags.yaml")
	require.NoError(t, os.WriteFile(path, []byte("boot: AT+RST\n"), 0o644))

	table, err := LoadTagTable(path)
	require.NoError(t, err)
	v, ok := table.Lookup("boot")
	require.True(t, ok)
	require.Equal(t, "AT+RST", v)
}

func TestHistoryFilePathUsesXDGDataHome(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")
	path, err := HistoryFilePath()
	require.NoError(t, err)
	require.Equal(t, "/tmp/xdg-data/scope/history", path)
}
