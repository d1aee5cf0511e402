// Package fleet reconciles the locally checked-out repositories against a
// forge's repository listing: it plans clone/pull/push actions, applies
// them, and logs every run.
package fleet

import (
	"context"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/skaphos/lantern/internal/gitx"
	"github.com/skaphos/lantern/internal/model"
	"github.com/skaphos/lantern/internal/sortutil"
)

// PullRequestLister resolves a repository's open pull requests. The GitHub
// provider implements it; plans built against other providers skip
// enrichment.
type PullRequestLister interface {
	OpenPullRequests(ctx context.Context, repo string, updatedSince time.Time) ([]model.PullRequest, error)
}

// PlanOptions configures fleet plan construction.
type PlanOptions struct {
	Root   string
	Server string

	// PullRequests, when set, enriches local rows with open pull requests.
	PullRequests PullRequestLister
	// PRStaleDays drops pull requests not updated within the window.
	// Zero selects 30 days.
	PRStaleDays int
}

// BuildPlan pairs local scan records with a remote listing by normalized
// repository URL and assigns each repository one reconciliation action.
// Local repositories without a remote counterpart are reported but never
// touched; remote repositories without a local clone plan a clone into
// `<root>/<name>`. Planning is read-only: the same inputs always produce
// the same plan.
func BuildPlan(ctx context.Context, records []model.RepositoryRecord, repos []model.RemoteRepo, opts PlanOptions) *model.FleetPlan {
	remoteByKey := make(map[string]*model.RemoteRepo)
	for i := range repos {
		for _, key := range remoteKeys(repos[i]) {
			remoteByKey[key] = &repos[i]
		}
	}

	matched := make(map[string]bool)
	entries := make([]model.FleetEntry, 0, len(records)+len(repos))
	enricher := newPREnricher(opts)

	for _, rec := range records {
		key := gitx.NormalizeURL(rec.Origin)
		var remote *model.RemoteRepo
		if key != "" {
			remote = remoteByKey[key]
		}
		if remote != nil {
			matched[key] = true
		}
		entry := model.FleetEntry{
			Name:     rec.Name,
			UpAhead:  rec.UpAhead,
			UpBehind: rec.UpBehind,
			Clean:    cleanFlag(rec.Path),
			Path:     rec.Path,
		}
		entry.State, entry.Action = classify(remote != nil, rec.UpAhead, rec.UpBehind)
		if remote != nil {
			entry.DefaultBranch = remote.DefaultBranch
		}
		enricher.enrich(ctx, &entry, rec.Origin)
		entries = append(entries, entry)
	}

	for _, repo := range repos {
		keys := remoteKeys(repo)
		if repo.Name == "" || len(keys) == 0 || anyMatched(matched, keys) {
			continue
		}
		entries = append(entries, model.FleetEntry{
			Name:          repo.Name,
			State:         model.FleetMissingLocal,
			Action:        model.FleetActionClone,
			Clean:         "-",
			Path:          filepath.Join(opts.Root, repo.Name),
			CloneURL:      cloneSource(repo),
			DefaultBranch: repo.DefaultBranch,
		})
	}

	sortutil.SortFleetEntries(entries)

	return &model.FleetPlan{
		GeneratedAt: time.Now().UTC(),
		Server:      opts.Server,
		Root:        opts.Root,
		Entries:     entries,
	}
}

func classify(hasRemote bool, upAhead, upBehind *int) (model.FleetState, model.FleetAction) {
	if !hasRemote {
		return model.FleetLocalOnly, model.FleetActionNone
	}
	ahead, behind := counterValue(upAhead), counterValue(upBehind)
	switch {
	case ahead > 0 && behind > 0:
		return model.FleetDiverged, model.FleetActionManual
	case behind > 0:
		return model.FleetBehind, model.FleetActionPull
	case ahead > 0:
		return model.FleetAhead, model.FleetActionPush
	default:
		return model.FleetInSync, model.FleetActionNone
	}
}

func counterValue(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}

// remoteKeys returns the distinct normalized URL identities of one remote
// repository, covering its ssh, https and web forms.
func remoteKeys(repo model.RemoteRepo) []string {
	var keys []string
	for _, raw := range []string{repo.SSHURL, repo.CloneURL, repo.HTMLURL} {
		key := gitx.NormalizeURL(raw)
		if key != "" && !slices.Contains(keys, key) {
			keys = append(keys, key)
		}
	}
	return keys
}

func anyMatched(matched map[string]bool, keys []string) bool {
	for _, key := range keys {
		if matched[key] {
			return true
		}
	}
	return false
}

func cloneSource(repo model.RemoteRepo) string {
	if repo.SSHURL != "" {
		return repo.SSHURL
	}
	return repo.CloneURL
}

// cleanFlag reports whether a multi-step git operation is underway in the
// repository. Untracked or modified files do not count as unclean.
func cleanFlag(path string) string {
	if _, busy := gitx.OperationInProgress(path); busy {
		return "no"
	}
	return "yes"
}

// ownerRepo reduces a remote URL to the "owner/name" form forge APIs expect,
// keeping the last two path segments.
func ownerRepo(remoteURL string) string {
	key := gitx.NormalizeURL(remoteURL)
	parts := strings.Split(key, "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[len(parts)-2] + "/" + parts[len(parts)-1]
}

type prEnricher struct {
	lister PullRequestLister
	cutoff time.Time
	cache  map[string][]model.PullRequest
}

func newPREnricher(opts PlanOptions) *prEnricher {
	if opts.PullRequests == nil {
		return &prEnricher{}
	}
	days := opts.PRStaleDays
	if days <= 0 {
		days = 30
	}
	return &prEnricher{
		lister: opts.PullRequests,
		cutoff: time.Now().UTC().AddDate(0, 0, -days),
		cache:  make(map[string][]model.PullRequest),
	}
}

// enrich fills the pull-request fields of a local entry. Lookup failures
// leave the entry unenriched; a plan never fails on API errors.
func (p *prEnricher) enrich(ctx context.Context, entry *model.FleetEntry, origin string) {
	if p.lister == nil {
		return
	}
	repo := ownerRepo(origin)
	if repo == "" {
		return
	}
	prs, cached := p.cache[repo]
	if !cached {
		var err error
		prs, err = p.lister.OpenPullRequests(ctx, repo, p.cutoff)
		if err != nil {
			prs = nil
		}
		p.cache[repo] = prs
	}
	if len(prs) == 0 {
		return
	}
	entry.LatestBranch = prs[0].HeadRef
	entry.PullRequests = prs
}
