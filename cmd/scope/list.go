package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// runList implements `scope list [-v]` (spec §6: "enumerate USB serial
// ports; exit 0 on success, non-zero on enumeration failure"). goserial
// exposes no port-discovery API (it wraps one already-named device path),
// so this globs the conventional Linux USB-serial device names directly —
// the one piece of this command with no library in the retrieval pack to
// ground on.
func runList(verbose bool) error {
	var ports []string
	for _, pattern := range []string{"/dev/ttyUSB*", "/dev/ttyACM*"} {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return err
		}
		ports = append(ports, matches...)
	}
	sort.Strings(ports)

	if len(ports) == 0 {
		fmt.Fprintln(os.Stdout, "no USB serial ports found")
		return nil
	}
	for _, p := range ports {
		if verbose {
			info, err := os.Stat(p)
			if err != nil {
				fmt.Fprintf(os.Stdout, "%s (unreadable: %v)\n", p, err)
				continue
			}
			fmt.Fprintf(os.Stdout, "%s  mode=%s\n", p, info.Mode())
			continue
		}
		fmt.Fprintln(os.Stdout, p)
	}
	return nil
}
