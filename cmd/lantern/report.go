package lantern

import (
	"bytes"

	"github.com/spf13/cobra"

	"github.com/skaphos/lantern/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render a scan snapshot as csv, json, md or yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")
		formatRaw, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		format, err := report.ParseFormat(formatRaw)
		if err != nil {
			return err
		}
		records, err := report.Load(input)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := report.Render(&buf, records, report.Options{
			Format:  format,
			Columns: columnsFrom(cmd),
		}); err != nil {
			return err
		}
		if err := writeDocument(cmd, output, buf.Bytes()); err != nil {
			return err
		}
		if output != "" && output != "-" {
			infof(cmd, "wrote %s", output)
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().String("input", "", "scan snapshot to render")
	_ = reportCmd.MarkFlagRequired("input")
	reportCmd.Flags().StringP("format", "o", "csv", "report format: csv, json, md or yaml")
	addColumnsFlag(reportCmd)
	reportCmd.Flags().String("output", "", "write the report to a file instead of stdout")
	rootCmd.AddCommand(reportCmd)
}
