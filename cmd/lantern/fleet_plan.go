package lantern

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skaphos/lantern/internal/fleet"
	"github.com/skaphos/lantern/internal/model"
	"github.com/skaphos/lantern/internal/report"
	"github.com/skaphos/lantern/internal/tableutil"
	"github.com/skaphos/lantern/internal/termstyle"
)

var fleetPlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "Compare local checkouts against the server's repositories",
	RunE: func(cmd *cobra.Command, args []string) error {
		infof(cmd, "building fleet plan")
		records, err := fleetScan(cmd)
		if err != nil {
			return err
		}
		listing, sc, err := fleetListing(cmd)
		if err != nil {
			return err
		}

		locate := locateFlagsFrom(cmd)
		withPRs, _ := cmd.Flags().GetBool("with-prs")
		staleDays, _ := cmd.Flags().GetInt("pr-stale-days")
		opts := fleet.PlanOptions{
			Root:        locate.Root,
			Server:      serverLabel(listing.Server, sc),
			PRStaleDays: staleDays,
		}
		if withPRs {
			if github := githubResolver(sc); github != nil {
				opts.PullRequests = github
			} else {
				infof(cmd, "warning: --with-prs needs a GitHub server, skipping enrichment")
			}
		}
		plan := fleet.BuildPlan(cmd.Context(), records, listing.Repos, opts)

		format, _ := cmd.Flags().GetString("format")
		switch strings.ToLower(strings.TrimSpace(format)) {
		case "table":
			setColorOutputMode(cmd, format)
			noHeaders, _ := cmd.Flags().GetBool("no-headers")
			logOutputWriteFailure(cmd, "fleet plan table", writeFleetPlanTable(cmd, plan, withPRs, noHeaders))
			if len(plan.Entries) > 0 {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "\nserver=%s local=%d remote=%d total=%d\n",
					orDash(plan.Server), len(records), len(listing.Repos), len(plan.Entries))
				logOutputWriteFailure(cmd, "fleet plan summary", err)
			}
		case "json":
			setColorOutputMode(cmd, format)
			data, err := json.MarshalIndent(plan, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			logOutputWriteFailure(cmd, "fleet plan json", err)
		default:
			return fmt.Errorf("unsupported format %q", format)
		}
		infof(cmd, "fleet plan ready: %d rows", len(plan.Entries))
		return nil
	},
}

func init() {
	addLocateFlags(fleetPlanCmd)
	addTimeoutFlag(fleetPlanCmd)
	addFleetSourceFlags(fleetPlanCmd)
	fleetPlanCmd.Flags().Bool("fetch", false, "run fetch --prune per repository before inspecting")
	fleetPlanCmd.Flags().Bool("with-prs", false, "include fresh open PR numbers and branches (GitHub)")
	fleetPlanCmd.Flags().Int("pr-stale-days", 30, "ignore pull requests older than this many days")
	addFormatFlag(fleetPlanCmd, "output format: table or json")
	addNoHeadersFlag(fleetPlanCmd)
	fleetCmd.AddCommand(fleetPlanCmd)
}

func writeFleetPlanTable(cmd *cobra.Command, plan *model.FleetPlan, withPRs, noHeaders bool) error {
	if len(plan.Entries) == 0 {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "No records.")
		return err
	}
	headers := []string{"repo", "state", "up", "clean", "action"}
	if withPRs {
		headers = append(headers, "latest_branch", "prs")
	}
	headers = append(headers, "path")
	w := tableutil.New(cmd.OutOrStdout())
	if err := tableutil.Headers(w, noHeaders, headers...); err != nil {
		return err
	}
	nameMax := adaptiveCellLimit(cmd, 0, 32, 24)
	for _, entry := range plan.Entries {
		cells := []string{
			formatCell(entry.Name, nameMax),
			colorFleetState(entry.State),
			report.DivergenceCell(entry.UpAhead, entry.UpBehind),
			entry.Clean,
			fleetActionCell(entry.Action),
		}
		if withPRs {
			cells = append(cells, orDash(entry.LatestBranch), prNumbersCell(entry.PullRequests))
		}
		cells = append(cells, entry.Path)
		if err := tableutil.Row(w, cells...); err != nil {
			return err
		}
	}
	return w.Flush()
}

func colorFleetState(state model.FleetState) string {
	switch state {
	case model.FleetDiverged:
		return termstyle.Colorize(colorOutputEnabled, string(state), termstyle.Error)
	case model.FleetBehind, model.FleetAhead:
		return termstyle.Colorize(colorOutputEnabled, string(state), termstyle.Warn)
	case model.FleetInSync:
		return termstyle.Colorize(colorOutputEnabled, string(state), termstyle.Healthy)
	case model.FleetMissingLocal:
		return termstyle.Colorize(colorOutputEnabled, string(state), termstyle.Info)
	default:
		return string(state)
	}
}

func fleetActionCell(action model.FleetAction) string {
	if action == model.FleetActionNone {
		return "-"
	}
	return string(action)
}

// prNumbersCell joins up to eight open PR numbers for the table cell.
func prNumbersCell(prs []model.PullRequest) string {
	if len(prs) == 0 {
		return "-"
	}
	limit := len(prs)
	if limit > 8 {
		limit = 8
	}
	numbers := make([]string, 0, limit)
	for _, pr := range prs[:limit] {
		numbers = append(numbers, strconv.Itoa(pr.Number))
	}
	return strings.Join(numbers, ",")
}
