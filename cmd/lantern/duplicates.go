package lantern

import (
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skaphos/lantern/internal/tableutil"
)

var duplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "Report origin URLs checked out more than once",
	RunE: func(cmd *cobra.Command, args []string) error {
		debugf(cmd, "starting duplicates")
		rows, err := locateRepoRows(cmd.Context(), locateFlagsFrom(cmd), timeoutFrom(cmd))
		if err != nil {
			return err
		}

		groups := map[string][]string{}
		for _, row := range rows {
			if row.Origin == "" {
				continue
			}
			groups[row.Origin] = append(groups[row.Origin], row.Path)
		}
		origins := make([]string, 0, len(groups))
		for origin, paths := range groups {
			if len(paths) < 2 {
				continue
			}
			origins = append(origins, origin)
		}
		sort.Strings(origins)

		noHeaders, _ := cmd.Flags().GetBool("no-headers")
		setColorOutputMode(cmd, "table")
		w := tableutil.New(cmd.OutOrStdout())
		if err := tableutil.Headers(w, noHeaders, "count", "origin", "paths"); err != nil {
			logOutputWriteFailure(cmd, "duplicates table", err)
			return nil
		}
		for _, origin := range origins {
			paths := groups[origin]
			sort.Strings(paths)
			if err := tableutil.Row(w, strconv.Itoa(len(paths)), origin, strings.Join(paths, " | ")); err != nil {
				logOutputWriteFailure(cmd, "duplicates table", err)
				return nil
			}
		}
		logOutputWriteFailure(cmd, "duplicates table", w.Flush())
		return nil
	},
}

func init() {
	addLocateFlags(duplicatesCmd)
	addTimeoutFlag(duplicatesCmd)
	addNoHeadersFlag(duplicatesCmd)
	rootCmd.AddCommand(duplicatesCmd)
}
