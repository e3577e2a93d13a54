// Package logging sets up the diagnostic logger scope writes to a file
// (never stdout — the alternate screen owns the terminal while the TUI
// runs) and forwards messages.LogRecord into that logger. Grounded on teranos-QNTX/logger/logger.go's
// Initialize(jsonOutput) pattern, adapted: this package always logs to a
// file (a package-global Logger aimed at stdout would collide with the
// terminal the renderer owns).
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mwhite/scope-go/internal/messages"
)

// Logger is the process-wide diagnostic sink. It is a safe no-op until
// Initialize is called, mirroring the teacher's "never nil" package-load
// guarantee.
var Logger *zap.SugaredLogger

func init() {
	Logger = zap.NewNop().Sugar()
}

// Initialize points Logger at path, truncating any prior content.
// Diagnostics are one JSON object per line so they can be tailed
// alongside a running session without disturbing its raw-mode terminal.
func Initialize(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("logging: cannot open %q: %w", path, err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(f), zap.DebugLevel)

	Logger = zap.New(core).Sugar()
	return nil
}

// FromRecord forwards a messages.LogRecord to the zap sink at the matching
// level, preserving Source/ID as structured fields (spec §7 "Plugin
// runtime [errors are] logged as Error with the script identifier").
func FromRecord(r messages.LogRecord) {
	fields := []interface{}{"timestamp", r.Timestamp}
	if r.Source != "" {
		fields = append(fields, "source", r.Source)
	}
	if r.ID != "" {
		fields = append(fields, "id", r.ID)
	}

	switch r.Level {
	case messages.LevelDebug:
		Logger.Debugw(r.Message, fields...)
	case messages.LevelWarning:
		Logger.Warnw(r.Message, fields...)
	case messages.LevelError:
		Logger.Errorw(r.Message, fields...)
	default: // Info, Success
		Logger.Infow(r.Message, fields...)
	}
}

// Sync flushes any buffered log entries; call on shutdown.
func Sync() error {
	return Logger.Sync()
}
