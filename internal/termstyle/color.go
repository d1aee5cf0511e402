// SPDX-License-Identifier: MIT

// Package termstyle provides ANSI color helpers for tabular output.
package termstyle

import "github.com/liggitt/tabwriter"

const (
	Reset = "\x1b[0m"
	Green = "\x1b[32m"
	Brown = "\x1b[33m"
	Red   = "\x1b[31m"
	Blue  = "\x1b[34m"

	// Semantic aliases used by table and fleet output.
	Healthy = Green
	Warn    = Brown
	Error   = Red
	Info    = Blue
)

// esc brackets styled cells so tabwriter measures only the visible text.
const esc = string(rune(tabwriter.Escape))

func bracket(seq string) string {
	return esc + seq + esc
}

// Colorize wraps value in color and reset sequences when enabled. Empty
// values and empty colors pass through untouched.
func Colorize(enabled bool, value, color string) string {
	if !enabled || color == "" || value == "" {
		return value
	}
	return bracket(color) + value + bracket(Reset)
}
