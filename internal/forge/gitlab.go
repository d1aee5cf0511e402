package forge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/skaphos/lantern/internal/model"
	"github.com/skaphos/lantern/internal/sortutil"
)

// GitLab lists projects and snippets from the GitLab API.
type GitLab struct {
	baseURL string
	creds   Credentials
	client  *http.Client
}

// NewGitLab returns a GitLab provider. An empty baseURL selects gitlab.com.
func NewGitLab(baseURL string, creds Credentials) *GitLab {
	if baseURL == "" {
		baseURL = DefaultBaseURL("gitlab")
	}
	return &GitLab{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		client:  newClient(),
	}
}

func (g *GitLab) Name() string { return "gitlab" }

func (g *GitLab) header() http.Header {
	h := http.Header{}
	if g.creds.Token != "" {
		h.Set("PRIVATE-TOKEN", g.creds.Token)
	}
	return h
}

type glProject struct {
	Path          string `json:"path"`
	Visibility    string `json:"visibility"`
	DefaultBranch string `json:"default_branch"`
	SSHURL        string `json:"ssh_url_to_repo"`
	HTTPURL       string `json:"http_url_to_repo"`
	WebURL        string `json:"web_url"`
	ForkedFrom    *struct {
		ID int `json:"id"`
	} `json:"forked_from_project"`
}

// ListRepos returns the account's projects. With a token and no user the
// membership listing is used; otherwise the public projects of the user.
func (g *GitLab) ListRepos(ctx context.Context, opts ListOptions) ([]model.RemoteRepo, error) {
	var base string
	switch {
	case g.creds.Token != "" && g.creds.User == "":
		base = g.baseURL + "/projects?membership=true&per_page=100"
	case g.creds.User != "":
		base = g.baseURL + "/users/" + url.PathEscape(g.creds.User) + "/projects?per_page=100"
	default:
		return nil, errors.New("gitlab: a user or a token is required")
	}

	var out []model.RemoteRepo
	for page := 1; ; page++ {
		var projects []glProject
		if err := getJSON(ctx, g.client, fmt.Sprintf("%s&page=%d", base, page), g.header(), &projects); err != nil {
			return nil, err
		}
		if len(projects) == 0 {
			break
		}
		for _, p := range projects {
			if p.ForkedFrom != nil && !opts.IncludeForks {
				continue
			}
			out = append(out, model.RemoteRepo{
				Name:          p.Path,
				Private:       p.Visibility != "public",
				DefaultBranch: p.DefaultBranch,
				SSHURL:        p.SSHURL,
				CloneURL:      p.HTTPURL,
				HTMLURL:       p.WebURL,
			})
		}
	}

	sortutil.SortRemoteRepos(out)
	return out, nil
}

type glSnippet struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	FileName   string `json:"file_name"`
	Visibility string `json:"visibility"`
	WebURL     string `json:"web_url"`
	UpdatedAt  string `json:"updated_at"`
}

// ListSnippets returns the account's personal snippets. A token is required.
func (g *GitLab) ListSnippets(ctx context.Context) ([]model.Snippet, error) {
	if g.creds.Token == "" {
		return nil, errors.New("gitlab: a token is required for snippets")
	}

	var out []model.Snippet
	for page := 1; ; page++ {
		var snippets []glSnippet
		u := fmt.Sprintf("%s/snippets?per_page=100&page=%d", g.baseURL, page)
		if err := getJSON(ctx, g.client, u, g.header(), &snippets); err != nil {
			return nil, err
		}
		if len(snippets) == 0 {
			break
		}
		for _, s := range snippets {
			out = append(out, model.Snippet{
				ID:         s.ID,
				Title:      s.Title,
				FileName:   s.FileName,
				Visibility: s.Visibility,
				URL:        s.WebURL,
				UpdatedAt:  s.UpdatedAt,
			})
		}
	}
	return out, nil
}
