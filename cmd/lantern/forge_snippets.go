package lantern

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/skaphos/lantern/internal/forge"
	"github.com/skaphos/lantern/internal/model"
	"github.com/skaphos/lantern/internal/tableutil"
)

// snippetPayload is the JSON document the snippets command emits.
type snippetPayload struct {
	User     string          `json:"user"`
	Snippets []model.Snippet `json:"snippets"`
}

var forgeSnippetsCmd = &cobra.Command{
	Use:   "snippets",
	Short: "List the server's snippets (GitLab only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := resolveServerContext(cmd)
		if err != nil {
			return err
		}
		provider, err := sc.provider()
		if err != nil {
			return err
		}
		gitlab, ok := provider.(*forge.GitLab)
		if !ok {
			return errors.New("snippets are only supported for GitLab servers")
		}
		snippets, err := gitlab.ListSnippets(cmd.Context())
		if err != nil {
			return err
		}

		output, _ := cmd.Flags().GetString("output")
		if output != "" {
			data, err := json.MarshalIndent(snippetPayload{User: sc.User, Snippets: snippets}, "", "  ")
			if err != nil {
				return err
			}
			return writeDocument(cmd, output, append(data, '\n'))
		}

		noHeaders, _ := cmd.Flags().GetBool("no-headers")
		setColorOutputMode(cmd, "table")
		if len(snippets) == 0 {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "No records.")
			logOutputWriteFailure(cmd, "forge snippets empty", err)
			return nil
		}
		w := tableutil.New(cmd.OutOrStdout())
		if err := tableutil.Headers(w, noHeaders, "id", "title", "file_name", "visibility", "updated_at"); err != nil {
			logOutputWriteFailure(cmd, "forge snippets table", err)
			return nil
		}
		for _, snippet := range snippets {
			if err := tableutil.Row(w,
				strconv.Itoa(snippet.ID),
				orDash(snippet.Title),
				orDash(snippet.FileName),
				orDash(snippet.Visibility),
				snippet.UpdatedAt,
			); err != nil {
				logOutputWriteFailure(cmd, "forge snippets table", err)
				return nil
			}
		}
		logOutputWriteFailure(cmd, "forge snippets table", w.Flush())
		return nil
	},
}

func init() {
	addServerFlags(forgeSnippetsCmd)
	forgeSnippetsCmd.Flags().String("output", "", "write the snippets JSON to a file, - for stdout")
	addNoHeadersFlag(forgeSnippetsCmd)
	forgeCmd.AddCommand(forgeSnippetsCmd)
}
