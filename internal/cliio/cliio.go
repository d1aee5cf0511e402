// Package cliio holds the interactive bits of the CLI: confirmation
// prompts and transient progress lines. Callers point these at stderr so
// command output stays machine-consumable.
package cliio

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// PromptYesNo prints prompt and reads one line from in. Only an explicit
// "y" or "yes" (any case) confirms; EOF or anything else declines.
func PromptYesNo(out io.Writer, in io.Reader, prompt string) (bool, error) {
	if _, err := fmt.Fprint(out, prompt); err != nil {
		return false, err
	}
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return false, scanner.Err()
	}
	switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
