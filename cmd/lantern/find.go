package lantern

import (
	"strings"

	"github.com/spf13/cobra"
)

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Locate repositories by name or remote substring",
	RunE: func(cmd *cobra.Command, args []string) error {
		debugf(cmd, "starting find")
		rows, err := locateRepoRows(cmd.Context(), locateFlagsFrom(cmd), timeoutFrom(cmd))
		if err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("name")
		remote, _ := cmd.Flags().GetString("remote")

		matched := rows[:0]
		for _, row := range rows {
			if name != "" && !strings.Contains(row.Name, name) {
				continue
			}
			if remote != "" && (row.Origin == "" || !strings.Contains(row.Origin, remote)) {
				continue
			}
			matched = append(matched, row)
		}

		noHeaders, _ := cmd.Flags().GetBool("no-headers")
		setColorOutputMode(cmd, "table")
		logOutputWriteFailure(cmd, "find table", writeRepoRows(cmd, matched, noHeaders))
		return nil
	},
}

func init() {
	addLocateFlags(findCmd)
	addTimeoutFlag(findCmd)
	findCmd.Flags().String("name", "", "keep repositories whose name contains this substring")
	findCmd.Flags().String("remote", "", "keep repositories whose origin URL contains this substring")
	addNoHeadersFlag(findCmd)
	rootCmd.AddCommand(findCmd)
}
