package lantern

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/skaphos/lantern/internal/cliio"
	"github.com/skaphos/lantern/internal/engine"
	"github.com/skaphos/lantern/internal/tableutil"
	"github.com/skaphos/lantern/internal/termstyle"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run fetch/pull/push rounds across every repository",
	Long:  "Sync walks the root and applies the selected git actions to each repository in name order. With no action flags only fetch runs. Pulls are fast-forward only and failures never stop the run.",
	RunE: func(cmd *cobra.Command, args []string) error {
		debugf(cmd, "starting sync")
		locate := locateFlagsFrom(cmd)
		fetch, _ := cmd.Flags().GetBool("fetch")
		pull, _ := cmd.Flags().GetBool("pull")
		push, _ := cmd.Flags().GetBool("push")
		onlyClean, _ := cmd.Flags().GetBool("only-clean")
		onlyUpstream, _ := cmd.Flags().GetBool("only-upstream")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		noHeaders, _ := cmd.Flags().GetBool("no-headers")

		progress := cliio.NewProgress(cmd.ErrOrStderr(), !flagQuiet && isTerminalWriter(cmd.ErrOrStderr()))
		eng := engine.New(nil)
		rep, err := eng.Sync(cmd.Context(), engine.SyncOptions{
			Root:          locate.Root,
			MaxDepth:      locate.MaxDepth,
			IncludeHidden: locate.IncludeHidden,
			Exclude:       locate.Exclude,
			Fetch:         fetch,
			Pull:          pull,
			Push:          push,
			OnlyClean:     onlyClean,
			OnlyUpstream:  onlyUpstream,
			DryRun:        dryRun,
			Timeout:       timeoutFrom(cmd),
			Progress: func(step, total int, action, name string) {
				progress.Stepf(step, total, "sync: %s %s", action, name)
			},
		})
		progress.Done()
		if err != nil {
			return err
		}

		setColorOutputMode(cmd, "table")
		w := tableutil.New(cmd.OutOrStdout())
		if err := tableutil.Headers(w, noHeaders, "name", "result", "path"); err != nil {
			logOutputWriteFailure(cmd, "sync table", err)
			return nil
		}
		nameMax := adaptiveCellLimit(cmd, 0, 32, 24)
		for _, outcome := range rep.Outcomes {
			if err := tableutil.Row(w, formatCell(outcome.Name, nameMax), colorResultCell(outcome.Result), outcome.Path); err != nil {
				logOutputWriteFailure(cmd, "sync table", err)
				return nil
			}
		}
		logOutputWriteFailure(cmd, "sync table", w.Flush())

		if rep.LogPath != "" {
			infof(cmd, "sync issues logged to %s", rep.LogPath)
		}
		infof(cmd, "sync completed: %d repos, %d issues", len(rep.Outcomes), len(rep.Issues))
		return nil
	},
}

func init() {
	addLocateFlags(syncCmd)
	addTimeoutFlag(syncCmd)
	syncCmd.Flags().Bool("fetch", false, "fetch with prune")
	syncCmd.Flags().Bool("pull", false, "pull with --ff-only")
	syncCmd.Flags().Bool("push", false, "push the current branch")
	syncCmd.Flags().Bool("only-clean", false, "skip repositories with an in-progress git operation")
	syncCmd.Flags().Bool("only-upstream", false, "skip repositories without an upstream")
	syncCmd.Flags().Bool("dry-run", false, "report planned actions without running git")
	addNoHeadersFlag(syncCmd)
	rootCmd.AddCommand(syncCmd)
}

func colorResultCell(result string) string {
	switch {
	case strings.Contains(result, ":fail"):
		return termstyle.Colorize(colorOutputEnabled, result, termstyle.Error)
	case strings.HasPrefix(result, "skip:"):
		return termstyle.Colorize(colorOutputEnabled, result, termstyle.Warn)
	default:
		return result
	}
}
