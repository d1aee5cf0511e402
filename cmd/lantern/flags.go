package lantern

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/skaphos/lantern/internal/gitx"
	"github.com/skaphos/lantern/internal/strutil"
)

const (
	excludeUsage   = "directory names or root-relative globs to skip (repeatable, doublestar patterns)"
	noHeadersUsage = "when using table format, do not print headers"
	columnsUsage   = "comma-separated record columns to select"
)

// addLocateFlags registers the repository discovery flags shared by every
// command that walks a workspace root.
func addLocateFlags(cmd *cobra.Command) {
	cmd.Flags().String("root", ".", "workspace root to scan")
	cmd.Flags().Int("max-depth", 3, "directory depth to descend below the root")
	cmd.Flags().Bool("include-hidden", false, "descend into dot-directories")
	cmd.Flags().StringArray("exclude", nil, excludeUsage)
}

func addTimeoutFlag(cmd *cobra.Command) {
	cmd.Flags().Duration("timeout", gitx.DefaultCommandTimeout, "per git command timeout")
}

func addFormatFlag(cmd *cobra.Command, usage string) {
	cmd.Flags().StringP("format", "o", "table", usage)
}

func addNoHeadersFlag(cmd *cobra.Command) {
	cmd.Flags().Bool("no-headers", false, noHeadersUsage)
}

func addColumnsFlag(cmd *cobra.Command) {
	cmd.Flags().String("columns", "", columnsUsage)
}

// locateFlags carries the resolved discovery flag values.
type locateFlags struct {
	Root          string
	MaxDepth      int
	IncludeHidden bool
	Exclude       []string
}

func locateFlagsFrom(cmd *cobra.Command) locateFlags {
	root, _ := cmd.Flags().GetString("root")
	maxDepth, _ := cmd.Flags().GetInt("max-depth")
	includeHidden, _ := cmd.Flags().GetBool("include-hidden")
	exclude, _ := cmd.Flags().GetStringArray("exclude")
	return locateFlags{
		Root:          root,
		MaxDepth:      maxDepth,
		IncludeHidden: includeHidden,
		Exclude:       exclude,
	}
}

func timeoutFrom(cmd *cobra.Command) time.Duration {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	return timeout
}

func columnsFrom(cmd *cobra.Command) []string {
	raw, _ := cmd.Flags().GetString("columns")
	return strutil.SplitCSV(raw)
}
