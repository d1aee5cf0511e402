package lantern

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/skaphos/lantern/internal/fleet"
	"github.com/skaphos/lantern/internal/tableutil"
)

var fleetLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Inspect fleet apply execution logs",
}

var fleetLogsLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Print the most recent execution log",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, _ := cmd.Flags().GetString("root")
		path, err := fleet.LatestLog(root)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		debugf(cmd, "latest fleet log %s", path)
		_, err = cmd.OutOrStdout().Write(data)
		logOutputWriteFailure(cmd, "fleet logs latest", err)
		return nil
	},
}

var fleetLogsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List execution logs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, _ := cmd.Flags().GetString("root")
		limit, _ := cmd.Flags().GetInt("limit")
		logs, err := fleet.ListLogs(root)
		if err != nil {
			return err
		}
		if len(logs) == 0 {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "No fleet logs found in: %s\n", filepath.Join(root, "data", "fleet-logs"))
			logOutputWriteFailure(cmd, "fleet logs empty", err)
			return nil
		}
		if limit > 0 && len(logs) > limit {
			logs = logs[:limit]
		}

		noHeaders, _ := cmd.Flags().GetBool("no-headers")
		setColorOutputMode(cmd, "table")
		w := tableutil.New(cmd.OutOrStdout())
		if err := tableutil.Headers(w, noHeaders, "name", "modified", "size", "path"); err != nil {
			logOutputWriteFailure(cmd, "fleet logs table", err)
			return nil
		}
		for _, log := range logs {
			if err := tableutil.Row(w,
				log.Name,
				log.ModTime.UTC().Format("2006-01-02 15:04:05"),
				strconv.FormatInt(log.Size, 10),
				log.Path,
			); err != nil {
				logOutputWriteFailure(cmd, "fleet logs table", err)
				return nil
			}
		}
		logOutputWriteFailure(cmd, "fleet logs table", w.Flush())
		return nil
	},
}

func init() {
	fleetLogsLatestCmd.Flags().String("root", ".", "workspace root the logs were written under")
	fleetLogsListCmd.Flags().String("root", ".", "workspace root the logs were written under")
	fleetLogsListCmd.Flags().Int("limit", 10, "maximum number of logs to list")
	addNoHeadersFlag(fleetLogsListCmd)
	fleetLogsCmd.AddCommand(fleetLogsLatestCmd)
	fleetLogsCmd.AddCommand(fleetLogsListCmd)
	fleetCmd.AddCommand(fleetLogsCmd)
}
