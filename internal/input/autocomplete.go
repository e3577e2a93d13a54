package input

import "sort"

// Candidates is the union spec §4.E names: "meta commands, loaded plugin
// names, user commands per plugin, tag keys, command keys". cmd/scope
// builds this once, at session start, from internal/config and
// internal/plugin state; plugins loaded later are not added. The input
// package itself is agnostic to where the strings came from.
type Candidates struct {
	MetaCommands []string
	PluginNames  []string
	PluginUserCommands map[string][]string // plugin name -> its commands, rendered "plugin.cmd"
	TagKeys      []string
	CommandKeys  []string
}

// all flattens the union into one alphabetized slice (spec §4.E: "the
// drop-down list is the full filtered set, alphabetized").
func (c Candidates) all() []string {
	var out []string
	out = append(out, c.MetaCommands...)
	out = append(out, c.PluginNames...)
	for plugin, cmds := range c.PluginUserCommands {
		for _, cmd := range cmds {
			out = append(out, plugin+"."+cmd)
		}
	}
	for _, t := range c.TagKeys {
		out = append(out, "@"+t)
	}
	for _, k := range c.CommandKeys {
		out = append(out, "/"+k)
	}
	sort.Strings(out)
	return out
}

// Autocomplete is the hint + drop-down list derived from the current token
// (spec §4.E "Autocomplete"). Grounded on
// original_source/src/inputs/inputs_task.rs's autocomplete_list/pattern
// fields in InputsShared.
type Autocomplete struct {
	Pattern string
	Hint    string
	List    []string
}

// Rebuild recomputes the hint and drop-down list for token against
// candidates, keeping only the first maxItems matches when maxItems > 0
// (cmd/scope passes half the terminal height). No marker is added to the
// list for the matches that were cut. An empty token clears the autocomplete state (no drop-down shown).
func Rebuild(token string, candidates Candidates, maxItems int) Autocomplete {
	ac := Autocomplete{Pattern: token}
	if token == "" {
		return ac
	}
	var matches []string
	for _, cand := range candidates.all() {
		if hasPrefixCaseSensitiveForToken(cand, token) {
			matches = append(matches, cand)
		}
	}
	if len(matches) == 0 {
		return ac
	}
	ac.Hint = matches[0]
	for _, m := range matches[1:] {
		if len(m) < len(ac.Hint) {
			ac.Hint = m
		}
	}
	// invariant 7: hint must be a proper extension of the token.
	if ac.Hint == token {
		ac.Hint = ""
	}
	if maxItems > 0 && len(matches) > maxItems {
		matches = matches[:maxItems]
	}
	ac.List = matches
	return ac
}

func hasPrefixCaseSensitiveForToken(candidate, token string) bool {
	if len(candidate) < len(token) {
		return false
	}
	return candidate[:len(token)] == token
}
