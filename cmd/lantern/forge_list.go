package lantern

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/skaphos/lantern/internal/forge"
	"github.com/skaphos/lantern/internal/model"
	"github.com/skaphos/lantern/internal/tableutil"
)

var forgeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the server's repositories",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		if output == "" && cmd.Flags().Changed("output") {
			return errors.New("output path cannot be empty, use --output - for stdout or omit --output to render a table")
		}
		listing, err := fetchListing(cmd)
		if err != nil {
			return err
		}

		switch {
		case output == "-":
			data, err := json.MarshalIndent(listing, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			logOutputWriteFailure(cmd, "forge list json", err)
		case output != "":
			if err := forge.SaveListing(listing, output); err != nil {
				return err
			}
			infof(cmd, "wrote %s: %d repos", output, len(listing.Repos))
		default:
			noHeaders, _ := cmd.Flags().GetBool("no-headers")
			setColorOutputMode(cmd, "table")
			logOutputWriteFailure(cmd, "forge list table", writeRemoteRepoTable(cmd, listing.Repos, noHeaders))
		}
		return nil
	},
}

func init() {
	addServerFlags(forgeListCmd)
	forgeListCmd.Flags().Bool("include-forks", false, "keep forked repositories in the listing")
	forgeListCmd.Flags().String("output", "", "write the listing JSON to a file, - for stdout")
	addNoHeadersFlag(forgeListCmd)
	forgeCmd.AddCommand(forgeListCmd)
}

// fetchListing pulls the repository listing for the selected server. A failed
// org listing degrades to a warning and a non-zero warning exit code.
func fetchListing(cmd *cobra.Command) (*model.RemoteListing, error) {
	sc, err := resolveServerContext(cmd)
	if err != nil {
		return nil, err
	}
	provider, err := sc.provider()
	if err != nil {
		return nil, err
	}
	includeForks, _ := cmd.Flags().GetBool("include-forks")
	repos, err := provider.ListRepos(cmd.Context(), forge.ListOptions{
		IncludeForks: includeForks,
		Warn: func(msg string) {
			infof(cmd, "warning: %s", msg)
			raiseExitCode(1)
		},
	})
	if err != nil {
		return nil, err
	}
	serverName := sc.Server.Name
	if serverName == "" {
		serverName = provider.Name()
	}
	return &model.RemoteListing{
		GeneratedAt: time.Now().UTC(),
		Server:      serverName,
		Provider:    provider.Name(),
		BaseURL:     sc.BaseURL,
		User:        sc.User,
		Repos:       repos,
	}, nil
}

func writeRemoteRepoTable(cmd *cobra.Command, repos []model.RemoteRepo, noHeaders bool) error {
	if len(repos) == 0 {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "No records.")
		return err
	}
	w := tableutil.New(cmd.OutOrStdout())
	if err := tableutil.Headers(w, noHeaders, "name", "private", "default_branch", "ssh_url", "html_url"); err != nil {
		return err
	}
	for _, repo := range repos {
		if err := tableutil.Row(w,
			repo.Name,
			strconv.FormatBool(repo.Private),
			orDash(repo.DefaultBranch),
			orDash(repo.SSHURL),
			orDash(repo.HTMLURL),
		); err != nil {
			return err
		}
	}
	return w.Flush()
}
