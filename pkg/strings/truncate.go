package strings

import (
	"strings"
)

// DefaultBodyMaxLen is the default maximum length of a response body quoted
// in an error message.
const DefaultBodyMaxLen = 512

// MinTruncateLen is the minimum maxLen value for Truncate.
// Values smaller than this would not leave room for meaningful content plus "...".
const MinTruncateLen = 4

// Truncate shortens s to maxLen runes and flattens it to a single line, so
// that server responses can be embedded in errors and log lines. Runs of
// whitespace collapse to one space and "..." marks a cut.
//
// maxLen is clamped to MinTruncateLen.
func Truncate(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}
