package plugin

import (
	"testing"

	lua "github.com/yuin/gopher-lua"
	"github.com/stretchr/testify/require"

	"github.com/mwhite/scope-go/internal/messages"
)

func tableOf(L *lua.LState, values ...lua.LValue) *lua.LTable {
	tbl := L.NewTable()
	for i, v := range values {
		tbl.RawSetInt(i+1, v)
	}
	return tbl
}

func TestParseRequestLog(t *testing.T) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	tbl := tableOf(L, lua.LString(":log.warning"), lua.LString("low battery"))
	req, err := ParseRequest(tbl)
	require.NoError(t, err)
	require.Equal(t, ReqLog, req.Kind)
	require.Equal(t, messages.LevelWarning, req.Level)
	require.Equal(t, "low battery", req.Message)
}

func TestParseRequestSerialSend(t *testing.T) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	tbl := tableOf(L, lua.LString(":serial.send"), lua.LString("AT\r\n"))
	req, err := ParseRequest(tbl)
	require.NoError(t, err)
	require.Equal(t, ReqSerialSend, req.Kind)
	require.Equal(t, []byte("AT\r\n"), req.Bytes)
	require.False(t, req.Kind.IsInternal())
}

func TestParseRequestSerialRecvUsesOptionsTable(t *testing.T) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	opts := L.NewTable()
	opts.RawSetString("timeout_ms", lua.LNumber(250))
	tbl := tableOf(L, lua.LString(":serial.recv"), opts)

	req, err := ParseRequest(tbl)
	require.NoError(t, err)
	require.Equal(t, ReqSerialRecv, req.Kind)
	require.Equal(t, uint64(250), req.TimeoutMS)
}

func TestParseRequestReMatches(t *testing.T) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	pats := L.NewTable()
	pats.RawSetInt(1, lua.LString("^ERR"))
	pats.RawSetInt(2, lua.LString("^OK"))
	tbl := tableOf(L, lua.LString(":re.matches"), lua.LString("OK ready"), pats)

	req, err := ParseRequest(tbl)
	require.NoError(t, err)
	require.Equal(t, ReqReMatches, req.Kind)
	require.True(t, req.Kind.IsInternal())
	require.ElementsMatch(t, []string{"^ERR", "^OK"}, req.PatternTable)
}

func TestParseRequestUnknownIDErrors(t *testing.T) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	tbl := tableOf(L, lua.LString(":bogus"))
	_, err := ParseRequest(tbl)
	require.Error(t, err)
}

func TestParseRequestNonTableErrors(t *testing.T) {
	_, err := ParseRequest(lua.LString("not a table"))
	require.Error(t, err)
}
