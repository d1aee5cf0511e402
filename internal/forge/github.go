package forge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/skaphos/lantern/internal/model"
	"github.com/skaphos/lantern/internal/sortutil"
)

// GitHub lists repositories, gists and pull requests from the GitHub API.
type GitHub struct {
	baseURL string
	creds   Credentials
	client  *http.Client
}

// NewGitHub returns a GitHub provider. An empty baseURL selects api.github.com.
func NewGitHub(baseURL string, creds Credentials) *GitHub {
	if baseURL == "" {
		baseURL = DefaultBaseURL("github")
	}
	return &GitHub{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		client:  newClient(),
	}
}

func (g *GitHub) Name() string { return "github" }

func (g *GitHub) header(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "token "+token)
	}
	return h
}

type ghRepo struct {
	Name          string `json:"name"`
	Private       bool   `json:"private"`
	Fork          bool   `json:"fork"`
	DefaultBranch string `json:"default_branch"`
	SSHURL        string `json:"ssh_url"`
	CloneURL      string `json:"clone_url"`
	HTMLURL       string `json:"html_url"`
	Owner         struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// ListRepos returns the user's repositories plus any configured organization
// listings. A failed org listing is reported through opts.Warn and skipped;
// a failed user listing is an error.
func (g *GitHub) ListRepos(ctx context.Context, opts ListOptions) ([]model.RemoteRepo, error) {
	if g.creds.Token == "" && g.creds.User == "" {
		return nil, errors.New("github: a user or a token is required")
	}

	base := g.baseURL + "/users/" + url.PathEscape(g.creds.User) + "/repos?type=owner&per_page=100"
	if g.creds.Token != "" {
		base = g.baseURL + "/user/repos?affiliation=owner&per_page=100"
	}

	var out []model.RemoteRepo
	seen := map[string]struct{}{}
	for page := 1; ; page++ {
		var repos []ghRepo
		if err := getJSON(ctx, g.client, fmt.Sprintf("%s&page=%d", base, page), g.header(g.creds.Token), &repos); err != nil {
			return nil, err
		}
		if len(repos) == 0 {
			break
		}
		for _, r := range repos {
			// /user/repos includes repos shared with the user; keep only
			// the account's own when the user name is known.
			if g.creds.Token != "" && g.creds.User != "" && !strings.EqualFold(r.Owner.Login, g.creds.User) {
				continue
			}
			if r.Fork && !opts.IncludeForks {
				continue
			}
			appendRepo(&out, seen, model.RemoteRepo{
				Name:          r.Name,
				Private:       r.Private,
				DefaultBranch: r.DefaultBranch,
				SSHURL:        r.SSHURL,
				CloneURL:      r.CloneURL,
				HTMLURL:       r.HTMLURL,
			})
		}
	}

	for _, org := range g.creds.Orgs {
		token := org.Token
		if token == "" {
			token = g.creds.Token
		}
		orgBase := fmt.Sprintf("%s/orgs/%s/repos?type=all&per_page=100", g.baseURL, url.PathEscape(org.Name))
		for page := 1; ; page++ {
			var repos []ghRepo
			if err := getJSON(ctx, g.client, fmt.Sprintf("%s&page=%d", orgBase, page), g.header(token), &repos); err != nil {
				warn(opts, fmt.Sprintf("org %s: %v", org.Name, err))
				break
			}
			if len(repos) == 0 {
				break
			}
			for _, r := range repos {
				if r.Fork && !opts.IncludeForks {
					continue
				}
				appendRepo(&out, seen, model.RemoteRepo{
					Name:          org.Name + "/" + r.Name,
					Org:           org.Name,
					Private:       r.Private,
					DefaultBranch: r.DefaultBranch,
					SSHURL:        r.SSHURL,
					CloneURL:      r.CloneURL,
					HTMLURL:       r.HTMLURL,
				})
			}
		}
	}

	sortutil.SortRemoteRepos(out)
	return out, nil
}

func appendRepo(out *[]model.RemoteRepo, seen map[string]struct{}, repo model.RemoteRepo) {
	if _, ok := seen[repo.Name]; ok {
		return
	}
	seen[repo.Name] = struct{}{}
	*out = append(*out, repo)
}

type ghGist struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
	HTMLURL     string `json:"html_url"`
	UpdatedAt   string `json:"updated_at"`
	Files       map[string]struct {
		Filename string `json:"filename"`
	} `json:"files"`
}

// ListGists returns the account's gists. With a token the personal endpoint
// is used; otherwise the public gists of the configured user.
func (g *GitHub) ListGists(ctx context.Context) ([]model.Gist, error) {
	path := "/gists"
	if g.creds.Token == "" {
		if g.creds.User == "" {
			return nil, errors.New("github: a user or a token is required for gists")
		}
		path = "/users/" + url.PathEscape(g.creds.User) + "/gists"
	}

	var out []model.Gist
	for page := 1; ; page++ {
		var gists []ghGist
		u := fmt.Sprintf("%s%s?per_page=100&page=%d", g.baseURL, path, page)
		if err := getJSON(ctx, g.client, u, g.header(g.creds.Token), &gists); err != nil {
			return nil, err
		}
		if len(gists) == 0 {
			break
		}
		for _, gist := range gists {
			files := make([]string, 0, len(gist.Files))
			for name := range gist.Files {
				files = append(files, name)
			}
			sort.Strings(files)
			out = append(out, model.Gist{
				ID:          gist.ID,
				Description: gist.Description,
				Public:      gist.Public,
				Files:       files,
				URL:         gist.HTMLURL,
				UpdatedAt:   gist.UpdatedAt,
			})
		}
	}
	return out, nil
}

type ghPull struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	HTMLURL   string `json:"html_url"`
	UpdatedAt string `json:"updated_at"`
	Head      struct {
		Ref string `json:"ref"`
	} `json:"head"`
}

// OpenPullRequests returns the open pull requests of repo ("owner/name"),
// newest first, dropping entries not updated since the cutoff. A zero cutoff
// keeps everything.
func (g *GitHub) OpenPullRequests(ctx context.Context, repo string, updatedSince time.Time) ([]model.PullRequest, error) {
	u := fmt.Sprintf("%s/repos/%s/pulls?state=open&sort=updated&direction=desc&per_page=100", g.baseURL, repo)
	var pulls []ghPull
	if err := getJSON(ctx, g.client, u, g.header(g.creds.Token), &pulls); err != nil {
		return nil, err
	}
	var out []model.PullRequest
	for _, p := range pulls {
		if !updatedSince.IsZero() {
			updated, err := time.Parse(time.RFC3339, p.UpdatedAt)
			if err == nil && updated.Before(updatedSince) {
				// Results are sorted by update time descending.
				break
			}
		}
		out = append(out, model.PullRequest{
			Number:    p.Number,
			Title:     p.Title,
			HeadRef:   p.Head.Ref,
			URL:       p.HTMLURL,
			UpdatedAt: p.UpdatedAt,
		})
	}
	return out, nil
}

// PullRequestHead returns the head branch name of one pull request of repo
// ("owner/name").
func (g *GitHub) PullRequestHead(ctx context.Context, repo string, number int) (string, error) {
	u := fmt.Sprintf("%s/repos/%s/pulls/%d", g.baseURL, repo, number)
	var pull ghPull
	if err := getJSON(ctx, g.client, u, g.header(g.creds.Token), &pull); err != nil {
		return "", err
	}
	if pull.Head.Ref == "" {
		return "", fmt.Errorf("pull request %s#%d has no head branch", repo, number)
	}
	return pull.Head.Ref, nil
}
