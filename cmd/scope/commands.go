package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mwhite/scope-go/internal/transport"
)

var serialCmd = &cobra.Command{
	Use:   "serial <port> <baud>",
	Short: "Open a serial session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		baud, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return &configError{fmt.Errorf("invalid baud rate %q: %w", args[1], err)}
		}
		return runSerial(transport.SerialParams{
			Port:     args[0],
			Baud:     uint32(baud),
			DataBits: transport.DataBits8,
			Parity:   transport.ParityNone,
			StopBits: transport.StopBitsOne,
		})
	},
}

var rttCmd = &cobra.Command{
	Use:   "rtt <target> <channel>",
	Short: "Open a SEGGER RTT session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		channel, err := strconv.Atoi(args[1])
		if err != nil {
			return &configError{fmt.Errorf("invalid channel %q: %w", args[1], err)}
		}
		return runRTT(transport.RTTParams{Target: args[0], Channel: channel})
	},
}

var loopbackCmd = &cobra.Command{
	Use:   "loopback",
	Short: "Open a synthetic loopback session (demo/testing)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoopback()
	},
}

var listVerbose bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Enumerate USB serial ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(listVerbose)
	},
}

func init() {
	listCmd.Flags().BoolVarP(&listVerbose, "verbose", "v", false, "show each port's file mode")
}
