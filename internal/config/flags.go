package config

// Flags mirrors spec §6's "Global flags" surface:
// `--latency <us>`, `--true-color`, `--command-file <path>`,
// `--tag-file <path>`, `--capacity <N>`, `--save-file <base>`.
// cmd/scope registers these on the cobra root command's persistent flag
// set and passes the populated struct down to the wiring that builds the
// ring, screen state, and save stats.
type Flags struct {
	LatencyMicros int64
	TrueColor     bool
	CommandFile   string
	TagFile       string
	Capacity      int
	SaveFile      string
}

// DefaultFlags returns the values spec §5 "Timeouts" and the ring's own
// zero-means-unbounded convention imply absent any CLI override.
func DefaultFlags() Flags {
	return Flags{
		LatencyMicros: 16_000,
		TrueColor:     false,
		Capacity:      10_000,
		SaveFile:      "scope_session",
	}
}
