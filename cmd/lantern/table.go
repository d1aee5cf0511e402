package lantern

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/skaphos/lantern/internal/report"
	"github.com/skaphos/lantern/internal/sortutil"
)

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Render a scan snapshot as the status table",
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")
		records, err := report.Load(input)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "No records.")
			logOutputWriteFailure(cmd, "table empty", err)
			return nil
		}
		sortutil.SortRecords(records)

		columns := columnsFrom(cmd)
		if len(columns) == 0 {
			columns = slices.Clone(report.StatusColumns)
		}
		noHeaders, _ := cmd.Flags().GetBool("no-headers")
		setColorOutputMode(cmd, "table")
		logOutputWriteFailure(cmd, "table output", writeRecordTable(cmd, records, columns, noHeaders))
		return nil
	},
}

func init() {
	tableCmd.Flags().String("input", "", "scan snapshot to render")
	_ = tableCmd.MarkFlagRequired("input")
	addColumnsFlag(tableCmd)
	addNoHeadersFlag(tableCmd)
	rootCmd.AddCommand(tableCmd)
}
