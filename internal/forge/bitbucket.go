package forge

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/skaphos/lantern/internal/model"
	"github.com/skaphos/lantern/internal/sortutil"
)

// Bitbucket lists repositories from the Bitbucket Cloud API.
type Bitbucket struct {
	baseURL string
	creds   Credentials
	client  *http.Client
}

// NewBitbucket returns a Bitbucket provider. An empty baseURL selects
// api.bitbucket.org.
func NewBitbucket(baseURL string, creds Credentials) *Bitbucket {
	if baseURL == "" {
		baseURL = DefaultBaseURL("bitbucket")
	}
	return &Bitbucket{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		client:  newClient(),
	}
}

func (b *Bitbucket) Name() string { return "bitbucket" }

func (b *Bitbucket) header() http.Header {
	h := http.Header{}
	if b.creds.Token == "" {
		return h
	}
	if b.creds.AuthType == "basic" {
		raw := b.creds.User + ":" + b.creds.Token
		h.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(raw)))
	} else {
		h.Set("Authorization", "Bearer "+b.creds.Token)
	}
	return h
}

type bbRepo struct {
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	IsPrivate  bool   `json:"is_private"`
	Mainbranch *struct {
		Name string `json:"name"`
	} `json:"mainbranch"`
	Parent *struct {
		FullName string `json:"full_name"`
	} `json:"parent"`
	Links struct {
		Clone []struct {
			Name string `json:"name"`
			Href string `json:"href"`
		} `json:"clone"`
		HTML struct {
			Href string `json:"href"`
		} `json:"html"`
	} `json:"links"`
}

type bbPage struct {
	Values []bbRepo `json:"values"`
	Next   string   `json:"next"`
}

// ListRepos returns the user's repositories, following the API's next links
// until the last page.
func (b *Bitbucket) ListRepos(ctx context.Context, opts ListOptions) ([]model.RemoteRepo, error) {
	if b.creds.User == "" {
		return nil, errors.New("bitbucket: a user is required")
	}

	next := b.baseURL + "/repositories/" + url.PathEscape(b.creds.User) + "?pagelen=100"
	var out []model.RemoteRepo
	for next != "" {
		var page bbPage
		if err := getJSON(ctx, b.client, next, b.header(), &page); err != nil {
			return nil, err
		}
		for _, r := range page.Values {
			if r.Parent != nil && !opts.IncludeForks {
				continue
			}
			name := r.Slug
			if name == "" {
				name = r.Name
			}
			repo := model.RemoteRepo{
				Name:    name,
				Private: r.IsPrivate,
				HTMLURL: r.Links.HTML.Href,
			}
			if r.Mainbranch != nil {
				repo.DefaultBranch = r.Mainbranch.Name
			}
			for _, clone := range r.Links.Clone {
				switch clone.Name {
				case "ssh":
					repo.SSHURL = clone.Href
				case "https":
					repo.CloneURL = clone.Href
				}
			}
			out = append(out, repo)
		}
		next = page.Next
	}

	sortutil.SortRemoteRepos(out)
	return out, nil
}
