// SPDX-License-Identifier: MIT

// Package strutil provides small string helpers shared across commands.
package strutil

import "strings"

// SplitCSV splits a comma-separated flag value into trimmed, non-empty parts.
// Returns nil for an empty input.
func SplitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var parts []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
