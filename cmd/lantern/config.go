// SPDX-License-Identifier: MIT
package lantern

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skaphos/lantern/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Export, import and locate the lantern configuration",
}

var configExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the server configuration to a shareable file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.ResolvePath(flagConfig)
		if err != nil {
			return err
		}
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		includeSecrets, _ := cmd.Flags().GetBool("include-secrets")
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = "git-lantern-servers.json"
		}

		hadSecrets := configHasSecrets(cfg)
		out := cfg
		if !includeSecrets {
			out = cfg.Redacted()
			if hadSecrets {
				infof(cmd, "redacted secrets from export, use --include-secrets to keep tokens")
			}
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		data = append(data, '\n')

		if output == "-" {
			if includeSecrets {
				return errors.New("refusing to write secrets to stdout, use --output <path> or omit --include-secrets")
			}
			_, err := cmd.OutOrStdout().Write(data)
			logOutputWriteFailure(cmd, "config export stdout", err)
			return nil
		}
		if includeSecrets {
			if err := config.WriteSecure(output, data); err != nil {
				return err
			}
		} else {
			if err := writeDocument(cmd, output, data); err != nil {
				return err
			}
		}
		infof(cmd, "wrote %s", output)
		return nil
	},
}

var configImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Merge servers from an exported file into the configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")
		replace, _ := cmd.Flags().GetBool("replace")

		data, err := os.ReadFile(input)
		if err != nil {
			return err
		}
		incoming := config.Empty()
		if err := json.Unmarshal(data, incoming); err != nil {
			return fmt.Errorf("parse %s: %w", input, err)
		}

		path, err := config.ResolvePath(flagConfig)
		if err != nil {
			return err
		}
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg.Merge(incoming, replace)
		if err := config.Save(cfg, path); err != nil {
			return err
		}
		infof(cmd, "updated %s: %d servers", path, len(cfg.Servers))
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the resolved configuration file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.ResolvePath(flagConfig)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
		logOutputWriteFailure(cmd, "config path", err)
		return nil
	},
}

func init() {
	configExportCmd.Flags().String("output", "", "export destination, - for stdout (default git-lantern-servers.json)")
	configExportCmd.Flags().Bool("include-secrets", false, "keep tokens in the exported file")
	configImportCmd.Flags().String("input", "", "exported server file to import")
	_ = configImportCmd.MarkFlagRequired("input")
	configImportCmd.Flags().Bool("replace", false, "replace the configured servers instead of merging")
	configCmd.AddCommand(configExportCmd)
	configCmd.AddCommand(configImportCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func configHasSecrets(cfg *config.Config) bool {
	for _, srv := range cfg.Servers {
		if srv.Token != "" {
			return true
		}
		for _, org := range srv.Orgs {
			if org.Token != "" {
				return true
			}
		}
	}
	return false
}
