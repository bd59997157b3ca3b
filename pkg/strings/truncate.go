// Package strings provides small string helpers shared across packages.
package strings

import (
	"strings"
)

// DefaultLogTextLen is the default maximum length of message text included
// in log output. Long bot replies are truncated so a single activity cannot
// flood a log line.
const DefaultLogTextLen = 60

// MinTruncateLen is the smallest usable maxLen for Truncate. Anything
// shorter leaves no room for content plus "...".
const MinTruncateLen = 4

// Truncate flattens s to a single line and caps it at maxLen runes,
// appending "..." when cut. Newlines become spaces and runs of whitespace
// collapse, so the result is safe inside a log line. Operates on runes, not
// bytes, so multi-byte characters are never split.
func Truncate(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	flat := strings.Join(strings.Fields(s), " ")

	runes := []rune(flat)
	if len(runes) <= maxLen {
		return flat
	}
	return string(runes[:maxLen-3]) + "..."
}
