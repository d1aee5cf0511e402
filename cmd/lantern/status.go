// SPDX-License-Identifier: MIT
package lantern

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skaphos/lantern/internal/cliio"
	"github.com/skaphos/lantern/internal/engine"
	"github.com/skaphos/lantern/internal/model"
	"github.com/skaphos/lantern/internal/report"
	"github.com/skaphos/lantern/internal/tableutil"
	"github.com/skaphos/lantern/internal/termstyle"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Scan the root and tabulate branch and divergence state",
	RunE: func(cmd *cobra.Command, args []string) error {
		debugf(cmd, "starting status")
		locate := locateFlagsFrom(cmd)
		fetch, _ := cmd.Flags().GetBool("fetch")
		format, _ := cmd.Flags().GetString("format")
		noHeaders, _ := cmd.Flags().GetBool("no-headers")

		progress := cliio.NewProgress(cmd.ErrOrStderr(), !flagQuiet && isTerminalWriter(cmd.ErrOrStderr()))
		eng := engine.New(nil)
		records, err := eng.Scan(cmd.Context(), engine.ScanOptions{
			Root:          locate.Root,
			MaxDepth:      locate.MaxDepth,
			IncludeHidden: locate.IncludeHidden,
			Exclude:       locate.Exclude,
			Fetch:         fetch,
			Timeout:       timeoutFrom(cmd),
			Progress: func(done, total int, name string) {
				progress.Stepf(done, total, "status: %s", name)
			},
		})
		progress.Done()
		if err != nil {
			return err
		}

		switch strings.ToLower(strings.TrimSpace(format)) {
		case "table":
			setColorOutputMode(cmd, format)
			logOutputWriteFailure(cmd, "status table", writeRecordTable(cmd, records, report.StatusColumns, noHeaders))
		case "json":
			setColorOutputMode(cmd, format)
			data, err := json.MarshalIndent(records, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			logOutputWriteFailure(cmd, "status json", err)
		default:
			return fmt.Errorf("unsupported format %q", format)
		}
		infof(cmd, "status completed: %d repos", len(records))
		return nil
	},
}

func init() {
	addLocateFlags(statusCmd)
	addTimeoutFlag(statusCmd)
	statusCmd.Flags().Bool("fetch", false, "run fetch --prune per repository before inspecting")
	addFormatFlag(statusCmd, "output format: table or json")
	addNoHeadersFlag(statusCmd)
	rootCmd.AddCommand(statusCmd)
}

// writeRecordTable renders scan records with the given columns, coloring the
// derived divergence cells when color output is on.
func writeRecordTable(cmd *cobra.Command, records []model.RepositoryRecord, columns []string, noHeaders bool) error {
	w := tableutil.New(cmd.OutOrStdout())
	if err := tableutil.Headers(w, noHeaders, columns...); err != nil {
		return err
	}
	nameMax := adaptiveCellLimit(cmd, 0, 32, 24)
	branchMax := adaptiveCellLimit(cmd, 0, 24, 16)
	for i := range records {
		cells := make([]string, 0, len(columns))
		for _, col := range columns {
			cell := report.Cell(records[i], col)
			switch col {
			case "name":
				cell = formatCell(cell, nameMax)
			case "branch", "upstream":
				cell = formatCell(cell, branchMax)
			case "up", "main":
				cell = colorDivergenceCell(cell)
			case "error", "error_class":
				cell = termstyle.Colorize(colorOutputEnabled && cell != "-" && cell != "", cell, termstyle.Error)
			}
			cells = append(cells, cell)
		}
		if err := tableutil.Row(w, cells...); err != nil {
			return err
		}
	}
	return w.Flush()
}

func colorDivergenceCell(cell string) string {
	switch {
	case cell == "≡":
		return termstyle.Colorize(colorOutputEnabled, cell, termstyle.Healthy)
	case cell == "-" || cell == "":
		return cell
	default:
		return termstyle.Colorize(colorOutputEnabled, cell, termstyle.Warn)
	}
}
