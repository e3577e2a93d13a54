package config

import (
	"os"
	"path/filepath"
)

// DataDir resolves the directory scope's own files live under:
// $XDG_DATA_HOME/scope when XDG_DATA_HOME is set, otherwise scope under
// os.UserConfigDir() (on Linux that is $XDG_CONFIG_HOME or ~/.config, not
// ~/.local/share). Grounded on original_source/src/inputs/history.rs's
// dirs::data_dir().
func DataDir() (string, error) {
	switch {
	case os.Getenv("XDG_DATA_HOME") != "":
		return filepath.Join(os.Getenv("XDG_DATA_HOME"), "scope"), nil
	default:
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "scope"), nil
	}
}

// HistoryFilePath returns <data>/scope/history.
func HistoryFilePath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history"), nil
}
