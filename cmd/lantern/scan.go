// SPDX-License-Identifier: MIT
package lantern

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/skaphos/lantern/internal/cliio"
	"github.com/skaphos/lantern/internal/engine"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Walk the root for git repos and write a JSON snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		debugf(cmd, "starting scan")
		locate := locateFlagsFrom(cmd)
		fetch, _ := cmd.Flags().GetBool("fetch")
		output, _ := cmd.Flags().GetString("output")

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
				progress.Stepf(done, total, "scan: %s", name)
			},
		})
		progress.Done()
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return err
		}
		if err := writeDocument(cmd, output, append(data, '\n')); err != nil {
			return err
		}
		infof(cmd, "scan completed: %d repos", len(records))
		return nil
	},
}

func init() {
	addLocateFlags(scanCmd)
	addTimeoutFlag(scanCmd)
	scanCmd.Flags().Bool("fetch", false, "run fetch --prune per repository before inspecting")
	scanCmd.Flags().String("output", "", "write the snapshot to a file instead of stdout")
	rootCmd.AddCommand(scanCmd)
}
