package cliio

import (
	"fmt"
	"io"
	"strings"
)

// Progress renders transient "[index/total] message" lines on a terminal
// stream. Each step overwrites the previous line and Done erases it, so
// long scans show incremental progress without leaving output behind.
type Progress struct {
	out     io.Writer
	enabled bool
	lastLen int
}

// NewProgress returns a progress writer. When enabled is false every method
// is a no-op, which keeps piped and quiet output clean.
func NewProgress(out io.Writer, enabled bool) *Progress {
	return &Progress{out: out, enabled: enabled}
}

// Stepf replaces the current progress line.
func (p *Progress) Stepf(index, total int, format string, args ...any) {
	if !p.enabled {
		return
	}
	line := fmt.Sprintf("[%d/%d] ", index, total) + fmt.Sprintf(format, args...)
	pad := ""
	if n := p.lastLen - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	fmt.Fprintf(p.out, "\r%s%s", line, pad)
	p.lastLen = len(line)
}

// Done erases the progress line.
func (p *Progress) Done() {
	if !p.enabled || p.lastLen == 0 {
		return
	}
	fmt.Fprintf(p.out, "\r%s\r", strings.Repeat(" ", p.lastLen))
	p.lastLen = 0
}
