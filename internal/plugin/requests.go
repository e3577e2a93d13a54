package plugin

import (
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/mwhite/scope-go/internal/messages"
)

// Request is whatever a script coroutine yields, parsed from the Lua table
// `{id, ...args}` ABI in spec §4.C/§7: "A script requests engine services by
// yielding tables of the form {id, …args}". Grounded on
// original_source/src/plugin/messages.rs's PluginRequest parsing, adapted
// from mlua::Table to gopher-lua's *lua.LTable.
type Request struct {
	Kind RequestKind

	// populated depending on Kind
	Message      string
	Level        messages.Level
	Bytes        []byte
	TimeoutMS    uint64
	SleepMS      uint64
	Cmd          string
	Program      string
	Pattern      string
	PatternTable []string
	Address      uint32
	Size         int
	FnName       string
}

type RequestKind int

const (
	ReqUnknown RequestKind = iota

	// Internal: resolved without leaving the engine goroutine.
	ReqSysSleep
	ReqReLiteral
	ReqReMatches
	ReqReMatch
	ReqShellRun
	ReqShellExist

	// External: require engine arbitration (transport, bus, subprocess).
	ReqSerialInfo
	ReqSerialSend
	ReqSerialRecv
	ReqReadMemory
	ReqLog
	ReqFinish
)

// IsInternal reports whether req can be resolved synchronously inside the
// scheduler turn, vs. needing the engine's external arbitration (spec §4.C
// "Internal, engine-local" vs "External, requiring engine arbitration").
func (k RequestKind) IsInternal() bool {
	switch k {
	case ReqSysSleep, ReqReLiteral, ReqReMatches, ReqReMatch, ReqShellRun, ReqShellExist:
		return true
	default:
		return false
	}
}

// ParseRequest decodes a yielded Lua value into a Request. Unrecognized ids
// error the coroutine, per spec §7 ABI note.
func ParseRequest(v lua.LValue) (Request, error) {
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return Request{}, fmt.Errorf("plugin: yielded value is not a request table")
	}
	id, ok := tbl.RawGetInt(1).(lua.LString)
	if !ok {
		return Request{}, fmt.Errorf("plugin: request table missing string id")
	}

	switch string(id) {
	case ":log.debug":
		return logRequest(tbl, messages.LevelDebug)
	case ":log.info":
		return logRequest(tbl, messages.LevelInfo)
	case ":log.success":
		return logRequest(tbl, messages.LevelSuccess)
	case ":log.warning":
		return logRequest(tbl, messages.LevelWarning)
	case ":log.error":
		return logRequest(tbl, messages.LevelError)

	case ":serial.info":
		return Request{Kind: ReqSerialInfo}, nil
	case ":serial.send":
		msg, err := argString(tbl, 2)
		if err != nil {
			return Request{}, err
		}
		return Request{Kind: ReqSerialSend, Bytes: []byte(msg)}, nil
	case ":serial.recv":
		opts, ok := tbl.RawGetInt(2).(*lua.LTable)
		if !ok {
			return Request{}, fmt.Errorf("plugin: serial.recv expects an options table")
		}
		timeout := opts.RawGetString("timeout_ms")
		ms := uint64(0)
		if n, ok := timeout.(lua.LNumber); ok {
			ms = uint64(n)
		} else {
			ms = uint64(time.Hour / time.Millisecond)
		}
		return Request{Kind: ReqSerialRecv, TimeoutMS: ms}, nil
	case ":rtt.read_memory":
		addr, err := argNumber(tbl, 2)
		if err != nil {
			return Request{}, err
		}
		size, err := argNumber(tbl, 3)
		if err != nil {
			return Request{}, err
		}
		return Request{Kind: ReqReadMemory, Address: uint32(addr), Size: int(size)}, nil

	case ":sys.sleep":
		ms, err := argNumber(tbl, 2)
		if err != nil {
			return Request{}, err
		}
		return Request{Kind: ReqSysSleep, SleepMS: uint64(ms)}, nil

	case ":shell.run":
		cmd, err := argString(tbl, 2)
		if err != nil {
			return Request{}, err
		}
		return Request{Kind: ReqShellRun, Cmd: cmd}, nil
	case ":shell.exist":
		prog, err := argString(tbl, 2)
		if err != nil {
			return Request{}, err
		}
		return Request{Kind: ReqShellExist, Program: prog}, nil

	case ":re.literal":
		s, err := argString(tbl, 2)
		if err != nil {
			return Request{}, err
		}
		return Request{Kind: ReqReLiteral, Pattern: s}, nil
	case ":re.matches":
		s, err := argString(tbl, 2)
		if err != nil {
			return Request{}, err
		}
		pats, ok := tbl.RawGetInt(3).(*lua.LTable)
		if !ok {
			return Request{}, fmt.Errorf("plugin: re.matches expects a pattern table")
		}
		var list []string
		pats.ForEach(func(_, value lua.LValue) {
			if s, ok := value.(lua.LString); ok {
				list = append(list, string(s))
			}
		})
		return Request{Kind: ReqReMatches, Pattern: s, PatternTable: list}, nil
	case ":re.match":
		s, err := argString(tbl, 2)
		if err != nil {
			return Request{}, err
		}
		p, err := argString(tbl, 3)
		if err != nil {
			return Request{}, err
		}
		return Request{Kind: ReqReMatch, Message: s, Pattern: p}, nil

	case ":finish":
		fn, err := argString(tbl, 2)
		if err != nil {
			return Request{}, err
		}
		return Request{Kind: ReqFinish, FnName: fn}, nil

	default:
		return Request{}, fmt.Errorf("plugin: unrecognized request id %q", id)
	}
}

func logRequest(tbl *lua.LTable, level messages.Level) (Request, error) {
	msg, err := argString(tbl, 2)
	if err != nil {
		return Request{}, err
	}
	return Request{Kind: ReqLog, Level: level, Message: msg}, nil
}

func argString(tbl *lua.LTable, idx int) (string, error) {
	s, ok := tbl.RawGetInt(idx).(lua.LString)
	if !ok {
		return "", fmt.Errorf("plugin: request argument %d is not a string", idx)
	}
	return string(s), nil
}

func argNumber(tbl *lua.LTable, idx int) (float64, error) {
	n, ok := tbl.RawGetInt(idx).(lua.LNumber)
	if !ok {
		return 0, fmt.Errorf("plugin: request argument %d is not a number", idx)
	}
	return float64(n), nil
}

// Response is what the engine resumes a coroutine with, mirroring
// original_source/src/plugin/messages.rs's PluginResponse.
type Response struct {
	Kind RequestKind

	Err       string
	Port      string
	Baud      uint32
	Bytes     []byte
	Literal   string
	Matched   string
	HasMatch  bool
	IsMatch   bool
	Stdout    string
	Stderr    string
	Exists    bool
}

// ToLua converts a Response into the value(s) a coroutine resumes with.
func (r Response) ToLua(L *lua.LState) []lua.LValue {
	switch r.Kind {
	case ReqSerialInfo:
		return []lua.LValue{lua.LString(r.Port), lua.LNumber(r.Baud)}
	case ReqSerialSend, ReqLog, ReqSysSleep:
		return nil
	case ReqSerialRecv, ReqReadMemory:
		return []lua.LValue{lua.LString(r.Err), lua.LString(string(r.Bytes))}
	case ReqReLiteral:
		return []lua.LValue{lua.LString(r.Literal)}
	case ReqReMatches:
		if !r.HasMatch {
			return []lua.LValue{lua.LNil}
		}
		return []lua.LValue{lua.LString(r.Matched)}
	case ReqReMatch:
		return []lua.LValue{lua.LBool(r.IsMatch)}
	case ReqShellRun:
		return []lua.LValue{lua.LString(r.Stdout), lua.LString(r.Stderr)}
	case ReqShellExist:
		return []lua.LValue{lua.LBool(r.Exists)}
	default:
		return nil
	}
}
