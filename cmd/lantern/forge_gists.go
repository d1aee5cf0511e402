package lantern

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skaphos/lantern/internal/forge"
	"github.com/skaphos/lantern/internal/model"
	"github.com/skaphos/lantern/internal/tableutil"
)

// gistPayload is the JSON document the gists command emits.
type gistPayload struct {
	User  string       `json:"user"`
	Gists []model.Gist `json:"gists"`
}

var forgeGistsCmd = &cobra.Command{
	Use:   "gists",
	Short: "List the server's gists (GitHub only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := resolveServerContext(cmd)
		if err != nil {
			return err
		}
		provider, err := sc.provider()
		if err != nil {
			return err
		}
		github, ok := provider.(*forge.GitHub)
		if !ok {
			return errors.New("gists are only supported for GitHub servers")
		}
		gists, err := github.ListGists(cmd.Context())
		if err != nil {
			return err
		}

		output, _ := cmd.Flags().GetString("output")
		if output != "" {
			data, err := json.MarshalIndent(gistPayload{User: sc.User, Gists: gists}, "", "  ")
			if err != nil {
				return err
			}
			return writeDocument(cmd, output, append(data, '\n'))
		}

		noHeaders, _ := cmd.Flags().GetBool("no-headers")
		setColorOutputMode(cmd, "table")
		if len(gists) == 0 {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "No records.")
			logOutputWriteFailure(cmd, "forge gists empty", err)
			return nil
		}
		w := tableutil.New(cmd.OutOrStdout())
		if err := tableutil.Headers(w, noHeaders, "id", "description", "public", "files", "updated_at"); err != nil {
			logOutputWriteFailure(cmd, "forge gists table", err)
			return nil
		}
		for _, gist := range gists {
			if err := tableutil.Row(w,
				gist.ID,
				orDash(gist.Description),
				strconv.FormatBool(gist.Public),
				strings.Join(gist.Files, ", "),
				gist.UpdatedAt,
			); err != nil {
				logOutputWriteFailure(cmd, "forge gists table", err)
				return nil
			}
		}
		logOutputWriteFailure(cmd, "forge gists table", w.Flush())
		return nil
	},
}

func init() {
	addServerFlags(forgeGistsCmd)
	forgeGistsCmd.Flags().String("output", "", "write the gists JSON to a file, - for stdout")
	addNoHeadersFlag(forgeGistsCmd)
	forgeCmd.AddCommand(forgeGistsCmd)
}
