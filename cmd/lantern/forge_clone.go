package lantern

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skaphos/lantern/internal/cliio"
	"github.com/skaphos/lantern/internal/config"
	"github.com/skaphos/lantern/internal/forge"
	"github.com/skaphos/lantern/internal/gitx"
	"github.com/skaphos/lantern/internal/sortutil"
	"github.com/skaphos/lantern/internal/tableutil"
)

var forgeCloneCmd = &cobra.Command{
	Use:   "clone",
	Short: "Clone listing entries missing under the root",
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")
		root, _ := cmd.Flags().GetString("root")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		assumeYes, _ := cmd.Flags().GetBool("yes")

		listing, err := forge.LoadListing(input)
		if err != nil {
			return err
		}
		if err := validateListingServer(cmd, listing.Server, listing.Provider, listing.BaseURL); err != nil {
			return err
		}
		if err := os.MkdirAll(root, 0o755); err != nil {
			return err
		}

		type cloneRow struct {
			Name   string
			Status string
			Path   string
			Source string
		}
		rows := make([]cloneRow, 0, len(listing.Repos))
		missing := 0
		for _, repo := range listing.Repos {
			if repo.Name == "" {
				continue
			}
			dest := filepath.Join(root, repo.Name)
			src := repo.SSHURL
			if src == "" {
				src = repo.CloneURL
			}
			status := ""
			switch {
			case src == "":
				status = "missing-url"
			case pathExists(dest):
				status = "exists"
			default:
				missing++
			}
			rows = append(rows, cloneRow{Name: repo.Name, Status: status, Path: dest, Source: src})
		}
		sort.SliceStable(rows, func(i, j int) bool {
			return sortutil.LessNamePath(rows[i].Name, rows[i].Path, rows[j].Name, rows[j].Path)
		})

		if missing > 0 && !dryRun && !assumeYes {
			prompt := fmt.Sprintf("Clone %d missing repositories under %s? [y/N]: ", missing, root)
			confirmed, err := cliio.PromptYesNo(cmd.ErrOrStderr(), cmd.InOrStdin(), prompt)
			if err != nil {
				return err
			}
			if !confirmed {
				infof(cmd, "forge clone cancelled")
				return nil
			}
		}

		r := gitx.WithTimeout(&gitx.GitRunner{}, timeoutFrom(cmd))
		for i := range rows {
			if rows[i].Status != "" {
				continue
			}
			if dryRun {
				rows[i].Status = "dry-run"
				infof(cmd, "[dry-run] git clone %s %s", rows[i].Source, rows[i].Path)
				continue
			}
			if parent := filepath.Dir(rows[i].Path); parent != "." {
				if err := os.MkdirAll(parent, 0o755); err != nil {
					return err
				}
			}
			if err := gitx.Clone(cmd.Context(), r, "", rows[i].Source, rows[i].Path); err != nil {
				rows[i].Status = "fail"
				debugf(cmd, "clone %s: %v", rows[i].Name, err)
				continue
			}
			rows[i].Status = "cloned"
		}

		noHeaders, _ := cmd.Flags().GetBool("no-headers")
		setColorOutputMode(cmd, "table")
		w := tableutil.New(cmd.OutOrStdout())
		if err := tableutil.Headers(w, noHeaders, "name", "status", "path"); err != nil {
			logOutputWriteFailure(cmd, "forge clone table", err)
			return nil
		}
		for _, row := range rows {
			if err := tableutil.Row(w, row.Name, row.Status, row.Path); err != nil {
				logOutputWriteFailure(cmd, "forge clone table", err)
				return nil
			}
		}
		logOutputWriteFailure(cmd, "forge clone table", w.Flush())
		return nil
	},
}

func init() {
	forgeCloneCmd.Flags().String("input", "", "listing payload to clone from")
	_ = forgeCloneCmd.MarkFlagRequired("input")
	forgeCloneCmd.Flags().String("root", ".", "destination root for clones")
	forgeCloneCmd.Flags().String("server", "", "require the listing to match this configured server")
	forgeCloneCmd.Flags().Bool("dry-run", false, "print clone commands without running them")
	forgeCloneCmd.Flags().BoolP("yes", "y", false, "clone without asking for confirmation")
	addTimeoutFlag(forgeCloneCmd)
	addNoHeadersFlag(forgeCloneCmd)
	forgeCmd.AddCommand(forgeCloneCmd)
}

// validateListingServer rejects a listing that was produced for a different
// server than the one named on the command line. Empty fields on either side
// are not compared.
func validateListingServer(cmd *cobra.Command, server, provider, baseURL string) error {
	requested, _ := cmd.Flags().GetString("server")
	if requested == "" {
		return nil
	}
	path, err := config.ResolvePath(flagConfig)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	srv, err := cfg.SelectServer(requested)
	if err != nil {
		return err
	}
	if server != "" && srv.Name != "" && server != srv.Name {
		return fmt.Errorf("input server %q does not match requested %q", server, srv.Name)
	}
	if provider != "" && srv.Provider != "" && provider != srv.Provider {
		return fmt.Errorf("input provider %q does not match requested %q", provider, srv.Provider)
	}
	want := strings.TrimRight(srv.BaseURL, "/")
	got := strings.TrimRight(baseURL, "/")
	if got != "" && want != "" && got != want {
		return fmt.Errorf("input base_url %q does not match requested %q", got, want)
	}
	return nil
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
