// SPDX-License-Identifier: MIT
package lantern

import (
	"context"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/skaphos/lantern/internal/discovery"
	"github.com/skaphos/lantern/internal/gitx"
	"github.com/skaphos/lantern/internal/sortutil"
	"github.com/skaphos/lantern/internal/tableutil"
)

// repoRow is one located repository with its origin URL, the shape shared by
// the repos, find and duplicates commands.
type repoRow struct {
	Name   string
	Path   string
	Origin string
}

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "List repositories under the root",
	RunE: func(cmd *cobra.Command, args []string) error {
		debugf(cmd, "starting repos")
		rows, err := locateRepoRows(cmd.Context(), locateFlagsFrom(cmd), timeoutFrom(cmd))
		if err != nil {
			return err
		}
		noHeaders, _ := cmd.Flags().GetBool("no-headers")
		setColorOutputMode(cmd, "table")
		logOutputWriteFailure(cmd, "repos table", writeRepoRows(cmd, rows, noHeaders))
		return nil
	},
}

func init() {
	addLocateFlags(reposCmd)
	addTimeoutFlag(reposCmd)
	addNoHeadersFlag(reposCmd)
	rootCmd.AddCommand(reposCmd)
}

// locateRepoRows walks the root and probes each repository's origin URL.
// Rows come back sorted by (lowercased name, path).
func locateRepoRows(ctx context.Context, locate locateFlags, timeout time.Duration) ([]repoRow, error) {
	paths, err := discovery.Locate(discovery.Options{
		Root:          locate.Root,
		MaxDepth:      locate.MaxDepth,
		IncludeHidden: locate.IncludeHidden,
		Exclude:       locate.Exclude,
	})
	if err != nil {
		return nil, err
	}
	r := gitx.WithTimeout(&gitx.GitRunner{}, timeout)
	rows := make([]repoRow, 0, len(paths))
	for _, path := range paths {
		origin, _ := gitx.RemoteURL(ctx, r, path, "origin")
		rows = append(rows, repoRow{
			Name:   filepath.Base(path),
			Path:   path,
			Origin: origin,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return sortutil.LessNamePath(rows[i].Name, rows[i].Path, rows[j].Name, rows[j].Path)
	})
	return rows, nil
}

func writeRepoRows(cmd *cobra.Command, rows []repoRow, noHeaders bool) error {
	w := tableutil.New(cmd.OutOrStdout())
	if err := tableutil.Headers(w, noHeaders, "name", "path", "origin"); err != nil {
		return err
	}
	for _, row := range rows {
		origin := row.Origin
		if origin == "" {
			origin = "-"
		}
		if err := tableutil.Row(w, row.Name, row.Path, origin); err != nil {
			return err
		}
	}
	return w.Flush()
}
