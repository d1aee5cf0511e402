// Package forge provides HTTP clients for listing repositories, gists and
// snippets from GitHub, GitLab and Bitbucket behind a common Provider
// interface.
package forge

import (
	"context"
	"fmt"
	"strings"

	"github.com/skaphos/lantern/internal/model"
)

// OrgCredential is a per-organization token override.
type OrgCredential struct {
	Name  string
	Token string
}

// Credentials carries the resolved auth material for one provider.
type Credentials struct {
	User  string
	Token string
	// AuthType selects the Bitbucket header style: "basic" for
	// user:token Basic auth, anything else for a Bearer token.
	AuthType string
	// Orgs extends GitHub listings with organization repositories.
	Orgs []OrgCredential
}

// ListOptions controls a repository listing.
type ListOptions struct {
	// IncludeForks keeps forked repositories in the listing.
	IncludeForks bool
	// Warn receives non-fatal notices, such as a failed org listing.
	Warn func(string)
}

// Provider lists repositories from one forge.
type Provider interface {
	Name() string
	ListRepos(ctx context.Context, opts ListOptions) ([]model.RemoteRepo, error)
}

// New returns the provider implementation for the given kind. An empty kind
// selects GitHub.
func New(kind, baseURL string, creds Credentials) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "github":
		return NewGitHub(baseURL, creds), nil
	case "gitlab":
		return NewGitLab(baseURL, creds), nil
	case "bitbucket":
		return NewBitbucket(baseURL, creds), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q (supported: github,gitlab,bitbucket)", kind)
	}
}

// DefaultBaseURL returns the API root a provider uses when the server entry
// has no base_url of its own.
func DefaultBaseURL(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "github":
		return "https://api.github.com"
	case "gitlab":
		return "https://gitlab.com/api/v4"
	case "bitbucket":
		return "https://api.bitbucket.org/2.0"
	default:
		return ""
	}
}

func warn(opts ListOptions, msg string) {
	if opts.Warn != nil {
		opts.Warn(msg)
	}
}
