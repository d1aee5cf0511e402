// Package gitx shells out to the installed git binary and parses what it
// prints. Every command takes a context and runs under a per-command
// deadline when wrapped with WithTimeout.
package gitx

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultCommandTimeout bounds each individual git invocation so a single
// hung remote cannot stall an entire run.
const DefaultCommandTimeout = 60 * time.Second

// Runner runs one git command inside dir and returns the combined
// stdout/stderr output, trimmed.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// GitRunner is the production Runner backed by os/exec.
type GitRunner struct {
	// GitBin overrides the git binary path. Empty means "git" from PATH.
	GitBin string
}

// Run executes a git command. On failure the returned error carries the
// command's output so callers can classify and summarize it.
func (g *GitRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	bin := "git"
	if g.GitBin != "" {
		bin = g.GitBin
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	text := strings.TrimSpace(string(out))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		if text != "" {
			return text, fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, text)
		}
		return text, fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return text, nil
}

// WithTimeout wraps a Runner so every command runs under its own deadline.
// A timeout of zero or less selects DefaultCommandTimeout.
func WithTimeout(r Runner, timeout time.Duration) Runner {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &timeoutRunner{inner: r, timeout: timeout}
}

type timeoutRunner struct {
	inner   Runner
	timeout time.Duration
}

func (t *timeoutRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Run(ctx, dir, args...)
}
