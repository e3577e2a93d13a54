package infra

import "fmt"

// FormatByteSize renders a byte count the way the screen header displays
// save-file size, matching original_source/src/infra/mod.rs's
// into_byte_format (Bytes/KB/MB/GB, one decimal place above the byte tier).
func FormatByteSize(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d Bytes", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	case n < 1024*1024*1024:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	default:
		return fmt.Sprintf("%.1f GB", float64(n)/(1024*1024*1024))
	}
}
