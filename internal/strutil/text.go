// SPDX-License-Identifier: MIT
package strutil

import "strings"

// FirstLine returns the first non-empty line of s, trimmed. Multi-line git
// output is reduced to this single summary before being recorded.
func FirstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}

// Truncate shortens s to at most max bytes, appending "..." when cut.
func Truncate(s string, max int) string {
	if max <= 3 || len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
