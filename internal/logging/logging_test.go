package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mwhite/scope-go/internal/messages"
)

func TestInitializeWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scope.log")
	require.NoError(t, Initialize(path))
	defer Sync()

	FromRecord(messages.LogRecord{
		Timestamp: time.Now(),
		Level:     messages.LevelError,
		Source:    "demo-plugin",
		ID:        "send",
		Message:   "boom",
	})
	require.NoError(t, Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "boom")
	require.Contains(t, string(data), "demo-plugin")
}

func TestFromRecordMapsEverySeverityWithoutPanicking(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scope.log")
	require.NoError(t, Initialize(path))
	defer Sync()

	for _, lvl := range []messages.Level{
		messages.LevelDebug, messages.LevelInfo, messages.LevelSuccess,
		messages.LevelWarning, messages.LevelError,
	} {
		require.NotPanics(t, func() {
			FromRecord(messages.LogRecord{Timestamp: time.Now(), Level: lvl, Message: lvl.String()})
		})
	}
}
