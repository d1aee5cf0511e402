package lantern

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skaphos/lantern/internal/cliio"
	"github.com/skaphos/lantern/internal/fleet"
	"github.com/skaphos/lantern/internal/strutil"
	"github.com/skaphos/lantern/internal/tableutil"
)

var fleetApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Execute the fleet plan: clone, pull, push and checkout",
	Long:  "Apply builds the fleet plan and executes it repository by repository. Without selection flags it clones missing repos, pulls behind ones and pushes ahead ones. Every run writes an execution log.",
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := fleetScan(cmd)
		if err != nil {
			return err
		}
		listing, sc, err := fleetListing(cmd)
		if err != nil {
			return err
		}

		locate := locateFlagsFrom(cmd)
		plan := fleet.BuildPlan(cmd.Context(), records, listing.Repos, fleet.PlanOptions{
			Root:   locate.Root,
			Server: serverLabel(listing.Server, sc),
		})

		repos, _ := cmd.Flags().GetString("repos")
		cloneMissing, _ := cmd.Flags().GetBool("clone-missing")
		pullBehind, _ := cmd.Flags().GetBool("pull-behind")
		pushAhead, _ := cmd.Flags().GetBool("push-ahead")
		checkoutBranch, _ := cmd.Flags().GetString("checkout-branch")
		checkoutPR, _ := cmd.Flags().GetInt("checkout-pr")
		onlyClean, _ := cmd.Flags().GetBool("only-clean")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		logPath, _ := cmd.Flags().GetString("log-json")

		progress := cliio.NewProgress(cmd.ErrOrStderr(), !flagQuiet && isTerminalWriter(cmd.ErrOrStderr()))
		var resolver fleet.BranchResolver
		if github := githubResolver(sc); github != nil {
			resolver = github
		}
		applier := fleet.NewApplier(nil, resolver)
		rep, err := applier.Apply(cmd.Context(), plan, fleet.ApplyOptions{
			Root:           locate.Root,
			Server:         serverLabel(listing.Server, sc),
			Repos:          strutil.SplitCSV(repos),
			CloneMissing:   cloneMissing,
			PullBehind:     pullBehind,
			PushAhead:      pushAhead,
			CheckoutBranch: checkoutBranch,
			CheckoutPR:     checkoutPR,
			OnlyClean:      onlyClean,
			DryRun:         dryRun,
			LogPath:        logPath,
			Timeout:        timeoutFrom(cmd),
			Progress: func(done, total int, name string) {
				progress.Stepf(done, total, "fleet-apply: %s", name)
			},
		})
		progress.Done()
		if err != nil {
			return err
		}

		if len(rep.Log.Results) == 0 {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "No repositories selected.")
			logOutputWriteFailure(cmd, "fleet apply empty", err)
			infof(cmd, "fleet log written to %s", rep.LogPath)
			return nil
		}

		noHeaders, _ := cmd.Flags().GetBool("no-headers")
		setColorOutputMode(cmd, "table")
		w := tableutil.New(cmd.OutOrStdout())
		if err := tableutil.Headers(w, noHeaders, "repo", "state", "result", "path"); err != nil {
			logOutputWriteFailure(cmd, "fleet apply table", err)
			return nil
		}
		nameMax := adaptiveCellLimit(cmd, 0, 32, 24)
		for _, result := range rep.Log.Results {
			if err := tableutil.Row(w,
				formatCell(result.Name, nameMax),
				string(result.State),
				colorResultCell(result.Result),
				result.Path,
			); err != nil {
				logOutputWriteFailure(cmd, "fleet apply table", err)
				return nil
			}
		}
		logOutputWriteFailure(cmd, "fleet apply table", w.Flush())

		summary := rep.Log.Summary
		infof(cmd, "fleet apply: %d targeted, %d updated, %d branch updates",
			summary.ReposTargeted, summary.ReposUpdated, summary.BranchUpdates)
		infof(cmd, "fleet log written to %s", rep.LogPath)
		return nil
	},
}

func init() {
	addLocateFlags(fleetApplyCmd)
	addTimeoutFlag(fleetApplyCmd)
	addFleetSourceFlags(fleetApplyCmd)
	fleetApplyCmd.Flags().Bool("fetch", false, "run fetch --prune per repository before planning")
	fleetApplyCmd.Flags().String("repos", "", "comma-separated repository names to act on")
	fleetApplyCmd.Flags().Bool("clone-missing", false, "clone repositories that exist remotely but not locally")
	fleetApplyCmd.Flags().Bool("pull-behind", false, "pull repositories that are behind their remote")
	fleetApplyCmd.Flags().Bool("push-ahead", false, "push repositories that are ahead of their remote")
	fleetApplyCmd.Flags().String("checkout-branch", "", "switch every targeted repository to this branch")
	fleetApplyCmd.Flags().Int("checkout-pr", 0, "switch to the head branch of this pull request number (GitHub)")
	fleetApplyCmd.Flags().Bool("only-clean", false, "skip repositories with an in-progress git operation")
	fleetApplyCmd.Flags().Bool("dry-run", false, "report planned actions without running git")
	fleetApplyCmd.Flags().String("log-json", "", "write the execution log to this path instead of the default")
	addNoHeadersFlag(fleetApplyCmd)
	fleetCmd.AddCommand(fleetApplyCmd)
}

func serverLabel(listingServer string, sc serverContext) string {
	if listingServer != "" {
		return listingServer
	}
	return sc.Server.Name
}
