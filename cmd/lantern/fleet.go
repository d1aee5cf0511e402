// SPDX-License-Identifier: MIT
package lantern

import (
	"github.com/spf13/cobra"

	"github.com/skaphos/lantern/internal/cliio"
	"github.com/skaphos/lantern/internal/engine"
	"github.com/skaphos/lantern/internal/forge"
	"github.com/skaphos/lantern/internal/model"
)

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Reconcile the local tree against a forge listing",
}

func init() {
	rootCmd.AddCommand(fleetCmd)
}

func addFleetSourceFlags(cmd *cobra.Command) {
	addServerFlags(cmd)
	cmd.Flags().String("input", "", "use a saved listing payload instead of querying the server")
	cmd.Flags().Bool("include-forks", false, "keep forked repositories in a live listing")
}

// fleetListing returns the remote side of a fleet operation, either loaded
// from --input or fetched live from the selected server.
func fleetListing(cmd *cobra.Command) (*model.RemoteListing, serverContext, error) {
	sc, err := resolveServerContext(cmd)
	if err != nil {
		return nil, serverContext{}, err
	}
	input, _ := cmd.Flags().GetString("input")
	if input != "" {
		listing, err := forge.LoadListing(input)
		if err != nil {
			return nil, serverContext{}, err
		}
		debugf(cmd, "loaded listing %s: %d repos", input, len(listing.Repos))
		return listing, sc, nil
	}
	listing, err := fetchListing(cmd)
	if err != nil {
		return nil, serverContext{}, err
	}
	return listing, sc, nil
}

// fleetScan inspects the local side of a fleet operation.
func fleetScan(cmd *cobra.Command) ([]model.RepositoryRecord, error) {
	locate := locateFlagsFrom(cmd)
	fetch, _ := cmd.Flags().GetBool("fetch")
	progress := cliio.NewProgress(cmd.ErrOrStderr(), !flagQuiet && isTerminalWriter(cmd.ErrOrStderr()))
	defer progress.Done()
	eng := engine.New(nil)
	return eng.Scan(cmd.Context(), engine.ScanOptions{
		Root:          locate.Root,
		MaxDepth:      locate.MaxDepth,
		IncludeHidden: locate.IncludeHidden,
		Exclude:       locate.Exclude,
		Fetch:         fetch,
		Timeout:       timeoutFrom(cmd),
		Progress: func(done, total int, name string) {
			progress.Stepf(done, total, "scanning %s", name)
		},
	})
}

// githubResolver returns the PR branch resolver when the server is a GitHub
// provider, nil otherwise.
func githubResolver(sc serverContext) *forge.GitHub {
	provider, err := sc.provider()
	if err != nil {
		return nil
	}
	github, ok := provider.(*forge.GitHub)
	if !ok {
		return nil
	}
	return github
}
