package input

import "strings"

// ActionKind classifies what an Enter-dispatch (or search-mode commit)
// produces (spec §4.E "Enter dispatch rules").
type ActionKind int

const (
	// ActionNone: nothing to do (e.g. an empty line).
	ActionNone ActionKind = iota
	// ActionData: send Body as a data frame, CRLF-terminated.
	ActionData
	// ActionCommand: leading '/', looked up by Name in the command table;
	// Body is whatever followed the command word.
	ActionCommand
	// ActionMetaClear: "!clear" - clear the screen.
	ActionMetaClear
	// ActionMetaCommands: "!commands" - list known commands.
	ActionMetaCommands
	// ActionPluginLoad: "!plugin load <path>".
	ActionPluginLoad
	// ActionPluginReload: "!plugin reload <path>".
	ActionPluginReload
	// ActionPluginUnload: "!plugin unload <name>".
	ActionPluginUnload
	// ActionPluginUserCommand: "!plugin <plugin>.<user_command> args...".
	ActionPluginUserCommand
	// ActionTag: leading '@tag', expanded via the tag table.
	ActionTag
	// ActionMetaError: an unrecognized "!" meta command.
	ActionMetaError
	// ActionSearchNext/ActionSearchPrev: the dedicated navigation keys,
	// pressed in Normal mode against an already-committed search (spec
	// §4.E "n/N ... invoke NextSearch/PrevSearch via the Screen").
	ActionSearchNext
	ActionSearchPrev
)

// Action is what dispatching one committed line produces. cmd/scope
// interprets it against the live transport/plugin-engine/config state.
type Action struct {
	Kind ActionKind
	Name string // command name, plugin name, tag key
	Body string // command body, plugin args, meta error text
}

// Dispatch implements spec §4.E's Enter dispatch rules over a committed
// Normal-mode line.
func Dispatch(line string) Action {
	switch {
	case strings.HasPrefix(line, "/"):
		rest := line[1:]
		name, body, _ := strings.Cut(rest, " ")
		return Action{Kind: ActionCommand, Name: name, Body: body}

	case strings.HasPrefix(line, "!plugin"):
		return dispatchPlugin(strings.TrimSpace(strings.TrimPrefix(line, "!plugin")))

	case strings.HasPrefix(line, "!"):
		return dispatchMeta(strings.TrimSpace(line[1:]))

	case strings.HasPrefix(line, "@"):
		return Action{Kind: ActionTag, Name: line[1:]}

	default:
		if line == "" {
			return Action{Kind: ActionNone}
		}
		return Action{Kind: ActionData, Body: line}
	}
}

func dispatchMeta(rest string) Action {
	switch rest {
	case "clear":
		return Action{Kind: ActionMetaClear}
	case "commands":
		return Action{Kind: ActionMetaCommands}
	default:
		return Action{Kind: ActionMetaError, Body: "unknown meta command: " + rest}
	}
}

func dispatchPlugin(rest string) Action {
	sub, arg, _ := strings.Cut(rest, " ")
	switch sub {
	case "load":
		return Action{Kind: ActionPluginLoad, Body: arg}
	case "reload":
		return Action{Kind: ActionPluginReload, Body: arg}
	case "unload":
		return Action{Kind: ActionPluginUnload, Name: arg}
	default:
		// "<plugin>.<user_command> args..." — sub is "plugin.cmd".
		plugin, cmd, ok := strings.Cut(sub, ".")
		if !ok {
			return Action{Kind: ActionMetaError, Body: "malformed plugin command: " + rest}
		}
		return Action{Kind: ActionPluginUserCommand, Name: plugin, Body: cmd + " " + arg}
	}
}

// CurrentToken returns the word under the cursor that autocomplete should
// match against — the run of non-space runes ending at cursor (spec §4.E
// "after each edit, match the current token").
func CurrentToken(buffer []rune, cursor int) string {
	if cursor > len(buffer) {
		cursor = len(buffer)
	}
	start := cursor
	for start > 0 && buffer[start-1] != ' ' {
		start--
	}
	return string(buffer[start:cursor])
}
