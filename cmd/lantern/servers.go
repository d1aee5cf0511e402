package lantern

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skaphos/lantern/internal/config"
	"github.com/skaphos/lantern/internal/tableutil"
)

var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "List configured forge servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.ResolvePath(flagConfig)
		if err != nil {
			return err
		}
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		names := cfg.ServerNames()
		if len(names) == 0 {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "No servers configured.")
			logOutputWriteFailure(cmd, "servers empty", err)
			return nil
		}

		noHeaders, _ := cmd.Flags().GetBool("no-headers")
		setColorOutputMode(cmd, "table")
		w := tableutil.New(cmd.OutOrStdout())
		if err := tableutil.Headers(w, noHeaders, "name", "provider", "base_url", "user"); err != nil {
			logOutputWriteFailure(cmd, "servers table", err)
			return nil
		}
		for _, name := range names {
			srv := cfg.Servers[name]
			provider := srv.Provider
			if provider == "" {
				provider = config.InferProvider(name)
			}
			if err := tableutil.Row(w, name, provider, orDash(srv.BaseURL), orDash(srv.User)); err != nil {
				logOutputWriteFailure(cmd, "servers table", err)
				return nil
			}
		}
		logOutputWriteFailure(cmd, "servers table", w.Flush())
		return nil
	},
}

func init() {
	addNoHeadersFlag(serversCmd)
	rootCmd.AddCommand(serversCmd)
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
