package fleet_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/lantern/internal/fleet"
	"github.com/skaphos/lantern/internal/model"
)

type fakePRLister struct {
	calls int
	prs   map[string][]model.PullRequest
	err   error
}

func (f *fakePRLister) OpenPullRequests(_ context.Context, repo string, _ time.Time) ([]model.PullRequest, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.prs[repo], nil
}

func counter(n int) *int { return &n }

var _ = Describe("BuildPlan", func() {
	It("pairs local repositories with remote entries by normalized URL", func() {
		records := []model.RepositoryRecord{{
			Name:     "widgets",
			Path:     "/work/widgets",
			Origin:   "git@github.com:acme/widgets.git",
			UpAhead:  counter(0),
			UpBehind: counter(0),
		}}
		repos := []model.RemoteRepo{{
			Name:          "widgets",
			DefaultBranch: "main",
			CloneURL:      "https://github.com/acme/widgets.git",
			HTMLURL:       "https://github.com/acme/widgets",
		}}

		plan := fleet.BuildPlan(context.Background(), records, repos, fleet.PlanOptions{Root: "/work", Server: "hub"})
		Expect(plan.Server).To(Equal("hub"))
		Expect(plan.Root).To(Equal("/work"))
		Expect(plan.GeneratedAt).NotTo(BeZero())
		Expect(plan.Entries).To(HaveLen(1))

		entry := plan.Entries[0]
		Expect(entry.State).To(Equal(model.FleetInSync))
		Expect(entry.Action).To(Equal(model.FleetActionNone))
		Expect(entry.DefaultBranch).To(Equal("main"))
		Expect(entry.Clean).To(Equal("yes"))
	})

	It("classifies divergence into pull, push and manual actions", func() {
		records := []model.RepositoryRecord{
			{Name: "ahead", Origin: "git@example.com:org/ahead.git", UpAhead: counter(3), UpBehind: counter(0)},
			{Name: "behind", Origin: "git@example.com:org/behind.git", UpAhead: counter(0), UpBehind: counter(2)},
			{Name: "diverged", Origin: "git@example.com:org/diverged.git", UpAhead: counter(1), UpBehind: counter(1)},
			{Name: "quiet", Origin: "git@example.com:org/quiet.git"},
		}
		repos := []model.RemoteRepo{
			{Name: "ahead", SSHURL: "git@example.com:org/ahead.git"},
			{Name: "behind", SSHURL: "git@example.com:org/behind.git"},
			{Name: "diverged", SSHURL: "git@example.com:org/diverged.git"},
			{Name: "quiet", SSHURL: "git@example.com:org/quiet.git"},
		}

		plan := fleet.BuildPlan(context.Background(), records, repos, fleet.PlanOptions{})
		states := map[string][2]string{}
		for _, entry := range plan.Entries {
			states[entry.Name] = [2]string{string(entry.State), string(entry.Action)}
		}
		Expect(states).To(Equal(map[string][2]string{
			"ahead":    {"ahead-remote", "push"},
			"behind":   {"behind-remote", "pull"},
			"diverged": {"diverged", "manual"},
			"quiet":    {"in-sync", "none"},
		}))
	})

	It("plans clones for remote repositories that are missing locally", func() {
		repos := []model.RemoteRepo{{
			Name:          "tools",
			DefaultBranch: "develop",
			SSHURL:        "git@github.com:acme/tools.git",
			CloneURL:      "https://github.com/acme/tools.git",
		}}

		plan := fleet.BuildPlan(context.Background(), nil, repos, fleet.PlanOptions{Root: "/work"})
		Expect(plan.Entries).To(HaveLen(1))

		entry := plan.Entries[0]
		Expect(entry.State).To(Equal(model.FleetMissingLocal))
		Expect(entry.Action).To(Equal(model.FleetActionClone))
		Expect(entry.Path).To(Equal(filepath.Join("/work", "tools")))
		Expect(entry.CloneURL).To(Equal("git@github.com:acme/tools.git"))
		Expect(entry.DefaultBranch).To(Equal("develop"))
		Expect(entry.Clean).To(Equal("-"))
	})

	It("falls back to the https URL when a remote has no ssh URL", func() {
		repos := []model.RemoteRepo{{
			Name:     "docs",
			CloneURL: "https://github.com/acme/docs.git",
		}}

		plan := fleet.BuildPlan(context.Background(), nil, repos, fleet.PlanOptions{Root: "/work"})
		Expect(plan.Entries).To(HaveLen(1))
		Expect(plan.Entries[0].CloneURL).To(Equal("https://github.com/acme/docs.git"))
	})

	It("keeps local-only repositories with no planned action", func() {
		records := []model.RepositoryRecord{
			{Name: "scratch", Path: "/work/scratch"},
			{Name: "fork", Path: "/work/fork", Origin: "git@github.com:me/fork.git"},
		}
		repos := []model.RemoteRepo{{Name: "widgets", SSHURL: "git@github.com:acme/widgets.git"}}

		plan := fleet.BuildPlan(context.Background(), records, repos, fleet.PlanOptions{Root: "/work"})
		Expect(plan.Entries).To(HaveLen(3))
		states := map[string]model.FleetState{}
		for _, entry := range plan.Entries {
			states[entry.Name] = entry.State
		}
		Expect(states["scratch"]).To(Equal(model.FleetLocalOnly))
		Expect(states["fork"]).To(Equal(model.FleetLocalOnly))
		Expect(states["widgets"]).To(Equal(model.FleetMissingLocal))
	})

	It("orders entries by lowercased name", func() {
		records := []model.RepositoryRecord{
			{Name: "Zulu", Path: "/work/Zulu"},
			{Name: "Beta", Path: "/work/Beta"},
		}
		repos := []model.RemoteRepo{{Name: "alpha", SSHURL: "git@example.com:org/alpha.git"}}

		plan := fleet.BuildPlan(context.Background(), records, repos, fleet.PlanOptions{Root: "/work"})
		var names []string
		for _, entry := range plan.Entries {
			names = append(names, entry.Name)
		}
		Expect(names).To(Equal([]string{"alpha", "Beta", "Zulu"}))
	})

	It("flags repositories with an operation in progress as unclean", func() {
		root := GinkgoT().TempDir()
		busy := filepath.Join(root, "busy")
		Expect(os.MkdirAll(filepath.Join(busy, ".git"), 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(busy, ".git", "MERGE_HEAD"), []byte("abc\n"), 0o644)).To(Succeed())
		calm := filepath.Join(root, "calm")
		Expect(os.MkdirAll(filepath.Join(calm, ".git"), 0o755)).To(Succeed())

		records := []model.RepositoryRecord{
			{Name: "busy", Path: busy},
			{Name: "calm", Path: calm},
		}

		plan := fleet.BuildPlan(context.Background(), records, nil, fleet.PlanOptions{Root: root})
		Expect(plan.Entries[0].Clean).To(Equal("no"))
		Expect(plan.Entries[1].Clean).To(Equal("yes"))
	})

	It("enriches local rows with open pull requests, one lookup per origin", func() {
		lister := &fakePRLister{prs: map[string][]model.PullRequest{
			"acme/widgets": {
				{Number: 12, HeadRef: "feature/login", Title: "Add login"},
				{Number: 9, HeadRef: "fix/crash", Title: "Fix crash"},
			},
		}}
		records := []model.RepositoryRecord{
			{Name: "widgets", Path: "/work/widgets", Origin: "git@github.com:acme/widgets.git"},
			{Name: "widgets-copy", Path: "/tmp/widgets", Origin: "https://github.com/acme/widgets.git"},
		}

		plan := fleet.BuildPlan(context.Background(), records, nil, fleet.PlanOptions{Root: "/work", PullRequests: lister})
		Expect(plan.Entries).To(HaveLen(2))
		for _, entry := range plan.Entries {
			Expect(entry.LatestBranch).To(Equal("feature/login"))
			Expect(entry.PullRequests).To(HaveLen(2))
		}
		Expect(lister.calls).To(Equal(1))
	})

	It("leaves entries unenriched when the pull request lookup fails", func() {
		lister := &fakePRLister{err: errors.New("api: rate limited")}
		records := []model.RepositoryRecord{
			{Name: "widgets", Path: "/work/widgets", Origin: "git@github.com:acme/widgets.git"},
		}

		plan := fleet.BuildPlan(context.Background(), records, nil, fleet.PlanOptions{Root: "/work", PullRequests: lister})
		Expect(plan.Entries[0].LatestBranch).To(BeEmpty())
		Expect(plan.Entries[0].PullRequests).To(BeEmpty())
	})
})
