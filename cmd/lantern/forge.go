// SPDX-License-Identifier: MIT
package lantern

import (
	"github.com/spf13/cobra"

	"github.com/skaphos/lantern/internal/config"
	"github.com/skaphos/lantern/internal/forge"
)

var forgeCmd = &cobra.Command{
	Use:   "forge",
	Short: "Talk to GitHub, GitLab or Bitbucket servers",
}

func init() {
	rootCmd.AddCommand(forgeCmd)
}

func addServerFlags(cmd *cobra.Command) {
	cmd.Flags().String("server", "", "configured server to use (default from config or LANTERN_SERVER)")
	cmd.Flags().String("user", "", "override the account user")
	cmd.Flags().String("token", "", "override the API token")
}

// serverContext is the resolved forge target for one command invocation.
type serverContext struct {
	Server   config.Server
	Provider string
	BaseURL  string
	User     string
	Token    string
}

// resolveServerContext loads the config, selects the server and resolves
// credentials from flags, environment and the server entry.
func resolveServerContext(cmd *cobra.Command) (serverContext, error) {
	path, err := config.ResolvePath(flagConfig)
	if err != nil {
		return serverContext{}, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return serverContext{}, err
	}
	debugf(cmd, "using config %s", path)

	serverName, _ := cmd.Flags().GetString("server")
	srv, err := cfg.SelectServer(serverName)
	if err != nil {
		return serverContext{}, err
	}
	flagUser, _ := cmd.Flags().GetString("user")
	flagToken, _ := cmd.Flags().GetString("token")
	user, token := srv.ResolveCredentials(flagUser, flagToken)

	baseURL := srv.BaseURL
	if baseURL == "" {
		baseURL = forge.DefaultBaseURL(srv.Provider)
	}
	return serverContext{
		Server:   srv,
		Provider: srv.Provider,
		BaseURL:  baseURL,
		User:     user,
		Token:    token,
	}, nil
}

// provider builds the forge client for the resolved server.
func (sc serverContext) provider() (forge.Provider, error) {
	creds := forge.Credentials{
		User:     sc.User,
		Token:    sc.Token,
		AuthType: sc.Server.AuthType(),
	}
	for _, org := range sc.Server.Orgs {
		creds.Orgs = append(creds.Orgs, forge.OrgCredential{Name: org.Name, Token: org.Token})
	}
	return forge.New(sc.Provider, sc.Server.BaseURL, creds)
}
