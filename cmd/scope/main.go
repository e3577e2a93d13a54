// Command scope is the terminal serial/debug monitor spec §6 describes:
// a raw-mode, alternate-screen TUI over a serial port, RTT debug-probe
// channel, or loopback session, with a Lua plugin engine and a YAML-backed
// command-line interpreter. Grounded on teranos-QNTX/cmd/qntx/main.go's
// cobra root-command-plus-subcommand layout.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mwhite/scope-go/internal/config"
)

var flags = config.DefaultFlags()

var rootCmd = &cobra.Command{
	Use:   "scope",
	Short: "Interactive serial/debug monitor",
	Long: `scope is a terminal monitor for serial ports and SEGGER RTT debug
channels: scrollback with ANSI-aware rendering, Lua plugins, and a
YAML-backed command/tag shorthand for the outgoing line.`,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.Int64Var(&flags.LatencyMicros, "latency", flags.LatencyMicros, "render loop and plugin engine quantum in microseconds")
	pf.BoolVar(&flags.TrueColor, "true-color", flags.TrueColor, "enable 24-bit color instead of the 16-color palette")
	pf.StringVar(&flags.CommandFile, "command-file", flags.CommandFile, "path to the YAML /command table")
	pf.StringVar(&flags.TagFile, "tag-file", flags.TagFile, "path to the YAML @tag table")
	pf.IntVar(&flags.Capacity, "capacity", flags.Capacity, "ring buffer capacity in lines (0 = unbounded)")
	pf.StringVar(&flags.SaveFile, "save-file", flags.SaveFile, "base filename for the save/record files")

	rootCmd.AddCommand(serialCmd, rttCmd, loopbackCmd, listCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps an error to spec §6's exit codes: 1 for fatal I/O or
// terminal-startup failure, 2 for a configuration error.
func exitCodeFor(err error) int {
	switch err.(type) {
	case *configError:
		return 2
	default:
		return 1
	}
}

// configError marks an error as spec §6's "Configuration error (malformed
// YAML, missing file referenced by flag)" exit class.
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }
