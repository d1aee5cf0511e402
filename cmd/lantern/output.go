package lantern

import (
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// logOutputWriteFailure records non-fatal output write/flush failures.
// CLI consumers frequently pipe to tools that close early (for example `head`),
// so we log and continue instead of treating these as command failures.
func logOutputWriteFailure(cmd *cobra.Command, context string, err error) {
	if err == nil {
		return
	}
	debugf(cmd, "ignored output write failure (%s): %v", context, err)
}

// writeDocument sends rendered output to the --output path when given,
// creating parent directories, and to stdout otherwise.
func writeDocument(cmd *cobra.Command, outputPath string, data []byte) error {
	if outputPath == "" || outputPath == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		logOutputWriteFailure(cmd, "stdout document", err)
		return nil
	}
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(outputPath, data, 0o644)
}

func isTerminalWriter(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isTerminalFD(int(file.Fd()))
}

func formatCell(value string, max int) string {
	if max <= 0 {
		return value
	}
	return truncateASCII(value, max)
}

func truncateASCII(value string, max int) string {
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}
