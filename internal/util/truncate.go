package util

import "fmt"

// DefaultLogMaxLen caps provider payload echoes in verbose logs at 1KB.
const DefaultLogMaxLen = 1024

// TruncateLog truncates long strings for verbose logging so provider
// payloads do not balloon the log file.
func TruncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + fmt.Sprintf("... [truncated, %d bytes total]", len(s))
}

// TruncateBytes is a convenience wrapper for TruncateLog that accepts []byte
// and uses DefaultLogMaxLen.
func TruncateBytes(b []byte) string {
	return TruncateLog(string(b), DefaultLogMaxLen)
}
