// Package config loads the YAML-backed command/tag tables and resolves the
// platform data directory, as spec §6 "Files" describes: "Command file —
// YAML mapping from key (no leading '/') to a literal payload string.
// Reloaded on demand" and "Tag file — YAML mapping tag name (no leading
// '@') to replacement string." Grounded on the YAML-struct-tag convention
// used across the example pack (e.g. the MQTT lab's Config).
package config

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// CommandTable is the reloadable `/command` lookup table.
type CommandTable struct {
	mu      sync.RWMutex
	path    string
	entries map[string]string
}

// LoadCommandTable reads and parses path. A missing file is not an error —
// commands simply fail to resolve until one is loaded (spec §7
// "Configuration" errors: "feature degrades ... but does not abort").
func LoadCommandTable(path string) (*CommandTable, error) {
	t := &CommandTable{path: path}
	if err := t.Reload(); err != nil {
		return nil, err
	}
	return t, nil
}

// Reload re-reads the backing file (spec §6: "Reloaded on demand").
func (t *CommandTable) Reload() error {
	entries, err := loadYAMLMap(t.path)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.entries = entries
	t.mu.Unlock()
	return nil
}

// Lookup returns the payload for key and whether it was found.
func (t *CommandTable) Lookup(key string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.entries[key]
	return v, ok
}

// Keys returns every command key, unordered (input.Candidates.CommandKeys
// feeds directly from this).
func (t *CommandTable) Keys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys := make([]string, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	return keys
}

// TagTable is the `@tag` expansion table; same shape as CommandTable but
// kept distinct so the two files are never confused by cmd/scope.
type TagTable struct {
	mu      sync.RWMutex
	path    string
	entries map[string]string
}

// LoadTagTable reads and parses path, tolerating a missing file.
func LoadTagTable(path string) (*TagTable, error) {
	t := &TagTable{path: path}
	if err := t.Reload(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *TagTable) Reload() error {
	entries, err := loadYAMLMap(t.path)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.entries = entries
	t.mu.Unlock()
	return nil
}

func (t *TagTable) Lookup(key string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.entries[key]
	return v, ok
}

func (t *TagTable) Keys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys := make([]string, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	return keys
}

func loadYAMLMap(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: cannot read %q: %w", path, err)
	}
	var m map[string]string
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("config: malformed YAML in %q: %w", path, err)
	}
	if m == nil {
		m = map[string]string{}
	}
	return m, nil
}
