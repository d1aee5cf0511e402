package fleet_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/lantern/internal/fleet"
	"github.com/skaphos/lantern/internal/model"
)

type mockRunner struct {
	responses map[string]mockResponse
}

type mockResponse struct {
	out string
	err error
}

func (m *mockRunner) Run(_ context.Context, dir string, args ...string) (string, error) {
	key := dir + ":" + strings.Join(args, " ")
	if resp, ok := m.responses[key]; ok {
		return resp.out, resp.err
	}
	return "", errors.New("unexpected call: " + key)
}

type fakeResolver struct {
	heads map[string]string
	err   error
}

func (f *fakeResolver) PullRequestHead(_ context.Context, repo string, number int) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.heads[fmt.Sprintf("%s#%d", repo, number)], nil
}

func readFleetLog(path string) *model.FleetLog {
	data, err := os.ReadFile(path)
	Expect(err).NotTo(HaveOccurred())
	var log model.FleetLog
	Expect(json.Unmarshal(data, &log)).To(Succeed())
	return &log
}

var _ = Describe("Apply", func() {
	It("defaults to clone, pull and push when no action is selected", func() {
		root := GinkgoT().TempDir()
		dest := filepath.Join(root, "new")
		lag := filepath.Join(root, "lag")
		lead := filepath.Join(root, "lead")
		runner := &mockRunner{responses: map[string]mockResponse{
			":clone --quiet git@github.com:acme/new.git " + dest: {},
			dest + ":rev-parse --abbrev-ref HEAD":                {out: "main"},
			lag + ":rev-parse --abbrev-ref HEAD":                 {out: "main"},
			lag + ":pull --ff-only":                              {},
			lead + ":rev-parse --abbrev-ref HEAD":                {out: "main"},
			lead + ":push":                                       {},
		}}
		plan := &model.FleetPlan{Entries: []model.FleetEntry{
			{Name: "new", State: model.FleetMissingLocal, Path: dest, CloneURL: "git@github.com:acme/new.git"},
			{Name: "lag", State: model.FleetBehind, Path: lag},
			{Name: "lead", State: model.FleetAhead, Path: lead},
		}}

		report, err := fleet.NewApplier(runner, nil).Apply(context.Background(), plan, fleet.ApplyOptions{Root: root})
		Expect(err).NotTo(HaveOccurred())

		results := report.Log.Results
		Expect(results).To(HaveLen(3))
		Expect(results[0].Result).To(Equal("clone:ok"))
		Expect(results[0].BranchAfter).To(Equal("main"))
		Expect(results[1].Result).To(Equal("pull:ok"))
		Expect(results[2].Result).To(Equal("push:ok"))

		Expect(report.LogPath).To(HavePrefix(filepath.Join(root, "data", "fleet-logs")))
		log := readFleetLog(report.LogPath)
		Expect(log.Command).To(Equal("fleet apply"))
		Expect(log.Options.CloneMissing).To(BeTrue())
		Expect(log.Options.PullBehind).To(BeTrue())
		Expect(log.Options.PushAhead).To(BeTrue())
		Expect(log.Summary.ReposTargeted).To(Equal(3))
		Expect(log.Summary.ReposProcessed).To(Equal(3))
		Expect(log.Summary.ReposUpdated).To(Equal(3))
		Expect(log.Summary.ActionTotals).To(HaveKeyWithValue("clone:ok", 1))
		Expect(log.Summary.ActionTotals).To(HaveKeyWithValue("pull:ok", 1))
		Expect(log.Summary.ActionTotals).To(HaveKeyWithValue("push:ok", 1))
	})

	It("executes no mutating command during a dry run", func() {
		root := GinkgoT().TempDir()
		lag := filepath.Join(root, "lag")
		// Only the branch probe is answered, so any clone, pull or push
		// would fail the result assertions below.
		runner := &mockRunner{responses: map[string]mockResponse{
			lag + ":rev-parse --abbrev-ref HEAD": {out: "main"},
		}}
		plan := &model.FleetPlan{Entries: []model.FleetEntry{
			{Name: "new", State: model.FleetMissingLocal, Path: filepath.Join(root, "new"), CloneURL: "git@github.com:acme/new.git"},
			{Name: "lag", State: model.FleetBehind, Path: lag},
		}}

		report, err := fleet.NewApplier(runner, nil).Apply(context.Background(), plan, fleet.ApplyOptions{Root: root, DryRun: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Log.Results[0].Result).To(Equal("clone:dry-run"))
		Expect(report.Log.Results[1].Result).To(Equal("pull:dry-run"))

		log := readFleetLog(report.LogPath)
		Expect(log.Summary.ReposUpdated).To(Equal(2))
		Expect(log.Summary.ActionTotals).To(HaveKeyWithValue("clone:dry-run", 1))
	})

	It("removes a partially created clone and records the rollback", func() {
		root := GinkgoT().TempDir()
		dest := filepath.Join(root, "new")
		Expect(os.MkdirAll(dest, 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dest, "partial"), []byte("x"), 0o644)).To(Succeed())
		runner := &mockRunner{responses: map[string]mockResponse{
			":clone --quiet git@github.com:acme/new.git " + dest: {err: errors.New("fatal: early EOF")},
		}}
		plan := &model.FleetPlan{Entries: []model.FleetEntry{
			{Name: "new", State: model.FleetMissingLocal, Path: dest, CloneURL: "git@github.com:acme/new.git"},
		}}

		report, err := fleet.NewApplier(runner, nil).Apply(context.Background(), plan, fleet.ApplyOptions{Root: root, CloneMissing: true})
		Expect(err).NotTo(HaveOccurred())

		res := report.Log.Results[0]
		Expect(res.Result).To(Equal("clone:fail"))
		Expect(res.Steps[0].Error).To(ContainSubstring("early EOF"))
		Expect(res.Steps[0].Rollback).To(Equal("removed partial clone"))
		_, statErr := os.Stat(dest)
		Expect(os.IsNotExist(statErr)).To(BeTrue())
	})

	It("records no rollback when the failed clone left nothing behind", func() {
		root := GinkgoT().TempDir()
		dest := filepath.Join(root, "new")
		runner := &mockRunner{responses: map[string]mockResponse{
			":clone --quiet git@github.com:acme/new.git " + dest: {err: errors.New("fatal: repository not found")},
		}}
		plan := &model.FleetPlan{Entries: []model.FleetEntry{
			{Name: "new", State: model.FleetMissingLocal, Path: dest, CloneURL: "git@github.com:acme/new.git"},
		}}

		report, err := fleet.NewApplier(runner, nil).Apply(context.Background(), plan, fleet.ApplyOptions{Root: root, CloneMissing: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Log.Results[0].Result).To(Equal("clone:fail"))
		Expect(report.Log.Results[0].Steps[0].Rollback).To(BeEmpty())
	})

	It("reports a missing clone URL instead of invoking git", func() {
		root := GinkgoT().TempDir()
		runner := &mockRunner{responses: map[string]mockResponse{}}
		plan := &model.FleetPlan{Entries: []model.FleetEntry{
			{Name: "new", State: model.FleetMissingLocal, Path: filepath.Join(root, "new")},
		}}

		report, err := fleet.NewApplier(runner, nil).Apply(context.Background(), plan, fleet.ApplyOptions{Root: root, CloneMissing: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Log.Results[0].Result).To(Equal("clone:missing-url"))
	})

	It("skips repositories mid-operation when only-clean is set", func() {
		root := GinkgoT().TempDir()
		busy := filepath.Join(root, "busy")
		Expect(os.MkdirAll(filepath.Join(busy, ".git"), 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(busy, ".git", "MERGE_HEAD"), []byte("abc\n"), 0o644)).To(Succeed())
		calm := filepath.Join(root, "calm")
		Expect(os.MkdirAll(filepath.Join(calm, ".git"), 0o755)).To(Succeed())
		runner := &mockRunner{responses: map[string]mockResponse{
			busy + ":rev-parse --abbrev-ref HEAD": {out: "main"},
			calm + ":rev-parse --abbrev-ref HEAD": {out: "main"},
			calm + ":pull --ff-only":              {},
		}}
		plan := &model.FleetPlan{Entries: []model.FleetEntry{
			{Name: "busy", State: model.FleetBehind, Path: busy},
			{Name: "calm", State: model.FleetBehind, Path: calm},
		}}

		report, err := fleet.NewApplier(runner, nil).Apply(context.Background(), plan, fleet.ApplyOptions{Root: root, OnlyClean: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Log.Results[0].Result).To(Equal("pull:skip-dirty"))
		Expect(report.Log.Results[0].Clean).To(Equal("no"))
		Expect(report.Log.Results[1].Result).To(Equal("pull:ok"))
	})

	It("checks out a branch tracked from origin and strips the origin/ prefix", func() {
		root := GinkgoT().TempDir()
		repo := filepath.Join(root, "widgets")
		runner := &mockRunner{responses: map[string]mockResponse{
			repo + ":rev-parse --abbrev-ref HEAD":                         {out: "main"},
			repo + ":fetch --prune --quiet":                               {},
			repo + ":rev-parse --verify --quiet origin/feature":           {},
			repo + ":checkout --quiet -b feature --track origin/feature":  {},
			repo + ":pull --ff-only":                                      {},
		}}
		plan := &model.FleetPlan{Entries: []model.FleetEntry{
			{Name: "widgets", State: model.FleetInSync, Path: repo},
		}}

		report, err := fleet.NewApplier(runner, nil).Apply(context.Background(), plan, fleet.ApplyOptions{
			Root:           root,
			CheckoutBranch: "origin/feature",
		})
		Expect(err).NotTo(HaveOccurred())

		res := report.Log.Results[0]
		Expect(res.Result).To(Equal("checkout:feature:ok"))
		Expect(res.Steps).To(HaveLen(1))
		Expect(res.Steps[0].Branch).To(Equal("feature"))

		log := readFleetLog(report.LogPath)
		Expect(log.Options.CheckoutBranch).To(Equal("feature"))
		Expect(log.BranchUpdates).To(Equal([]model.FleetBranchUpdate{{Repo: "widgets", Branch: "feature"}}))
		Expect(log.Summary.BranchUpdates).To(Equal(1))
		Expect(log.Summary.ReposUpdated).To(Equal(1))
	})

	It("skips the checkout when the branch has no origin counterpart", func() {
		root := GinkgoT().TempDir()
		repo := filepath.Join(root, "widgets")
		runner := &mockRunner{responses: map[string]mockResponse{
			repo + ":rev-parse --abbrev-ref HEAD": {out: "main"},
			repo + ":fetch --prune --quiet":       {},
		}}
		plan := &model.FleetPlan{Entries: []model.FleetEntry{
			{Name: "widgets", State: model.FleetInSync, Path: repo},
		}}

		report, err := fleet.NewApplier(runner, nil).Apply(context.Background(), plan, fleet.ApplyOptions{
			Root:           root,
			CheckoutBranch: "ghost",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Log.Results[0].Result).To(Equal("checkout:ghost:skip-no-remote"))
	})

	It("skips the checkout in a repository that was never cloned", func() {
		root := GinkgoT().TempDir()
		dest := filepath.Join(root, "new")
		runner := &mockRunner{responses: map[string]mockResponse{
			":clone --quiet git@github.com:acme/new.git " + dest: {err: errors.New("fatal: repository not found")},
		}}
		plan := &model.FleetPlan{Entries: []model.FleetEntry{
			{Name: "new", State: model.FleetMissingLocal, Path: dest, CloneURL: "git@github.com:acme/new.git"},
		}}

		report, err := fleet.NewApplier(runner, nil).Apply(context.Background(), plan, fleet.ApplyOptions{
			Root:           root,
			CloneMissing:   true,
			CheckoutBranch: "feature",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Log.Results[0].Result).To(Equal("clone:fail checkout:feature:skip-not-cloned"))
	})

	It("restores the previous branch when the fast-forward fails after switching", func() {
		root := GinkgoT().TempDir()
		repo := filepath.Join(root, "widgets")
		runner := &mockRunner{responses: map[string]mockResponse{
			repo + ":rev-parse --abbrev-ref HEAD":                  {out: "main"},
			repo + ":fetch --prune --quiet":                        {},
			repo + ":rev-parse --verify --quiet origin/feature":    {},
			repo + ":show-ref --verify --quiet refs/heads/feature": {},
			repo + ":checkout --quiet feature":                     {},
			repo + ":pull --ff-only":                               {err: errors.New("fatal: Not possible to fast-forward, aborting.")},
			repo + ":checkout --quiet main":                        {},
		}}
		plan := &model.FleetPlan{Entries: []model.FleetEntry{
			{Name: "widgets", State: model.FleetInSync, Path: repo},
		}}

		report, err := fleet.NewApplier(runner, nil).Apply(context.Background(), plan, fleet.ApplyOptions{
			Root:           root,
			CheckoutBranch: "feature",
		})
		Expect(err).NotTo(HaveOccurred())

		res := report.Log.Results[0]
		Expect(res.Result).To(Equal("checkout:feature:fail"))
		Expect(res.Steps[0].Error).To(ContainSubstring("fast-forward"))
		Expect(res.Steps[0].Rollback).To(Equal("restored branch main"))

		log := readFleetLog(report.LogPath)
		Expect(log.BranchUpdates).To(BeEmpty())
		Expect(log.Summary.ReposUpdated).To(BeZero())
	})

	It("resolves a pull request to its head branch before checkout", func() {
		root := GinkgoT().TempDir()
		repo := filepath.Join(root, "widgets")
		runner := &mockRunner{responses: map[string]mockResponse{
			repo + ":rev-parse --abbrev-ref HEAD":                           {out: "main"},
			repo + ":remote get-url origin":                                 {out: "git@github.com:acme/widgets.git"},
			repo + ":fetch --prune --quiet":                                 {},
			repo + ":rev-parse --verify --quiet origin/pr/login":            {},
			repo + ":checkout --quiet -b pr/login --track origin/pr/login":  {},
			repo + ":pull --ff-only":                                        {},
		}}
		resolver := &fakeResolver{heads: map[string]string{"acme/widgets#7": "pr/login"}}
		plan := &model.FleetPlan{Entries: []model.FleetEntry{
			{Name: "widgets", State: model.FleetInSync, Path: repo},
		}}

		report, err := fleet.NewApplier(runner, resolver).Apply(context.Background(), plan, fleet.ApplyOptions{
			Root:       root,
			CheckoutPR: 7,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Log.Results[0].Result).To(Equal("checkout:pr/login:ok"))
	})

	It("marks checkout-pr unsupported without a resolver", func() {
		root := GinkgoT().TempDir()
		repo := filepath.Join(root, "widgets")
		runner := &mockRunner{responses: map[string]mockResponse{
			repo + ":rev-parse --abbrev-ref HEAD": {out: "main"},
		}}
		plan := &model.FleetPlan{Entries: []model.FleetEntry{
			{Name: "widgets", State: model.FleetInSync, Path: repo},
		}}

		report, err := fleet.NewApplier(runner, nil).Apply(context.Background(), plan, fleet.ApplyOptions{
			Root:       root,
			CheckoutPR: 7,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Log.Results[0].Result).To(Equal("checkout-pr:7:unsupported"))
	})

	It("marks an unknown pull request as not-found", func() {
		root := GinkgoT().TempDir()
		repo := filepath.Join(root, "widgets")
		runner := &mockRunner{responses: map[string]mockResponse{
			repo + ":rev-parse --abbrev-ref HEAD": {out: "main"},
			repo + ":remote get-url origin":       {out: "git@github.com:acme/widgets.git"},
		}}
		resolver := &fakeResolver{heads: map[string]string{}}
		plan := &model.FleetPlan{Entries: []model.FleetEntry{
			{Name: "widgets", State: model.FleetInSync, Path: repo},
		}}

		report, err := fleet.NewApplier(runner, resolver).Apply(context.Background(), plan, fleet.ApplyOptions{
			Root:       root,
			CheckoutPR: 9,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Log.Results[0].Result).To(Equal("checkout-pr:9:not-found"))
	})

	It("filters execution to the requested repositories", func() {
		root := GinkgoT().TempDir()
		beta := filepath.Join(root, "beta")
		runner := &mockRunner{responses: map[string]mockResponse{
			beta + ":rev-parse --abbrev-ref HEAD": {out: "main"},
		}}
		plan := &model.FleetPlan{Entries: []model.FleetEntry{
			{Name: "alpha", State: model.FleetInSync, Path: filepath.Join(root, "alpha")},
			{Name: "beta", State: model.FleetInSync, Path: beta},
			{Name: "gamma", State: model.FleetInSync, Path: filepath.Join(root, "gamma")},
		}}

		report, err := fleet.NewApplier(runner, nil).Apply(context.Background(), plan, fleet.ApplyOptions{
			Root:  root,
			Repos: []string{" beta ", ""},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Log.Results).To(HaveLen(1))
		Expect(report.Log.Results[0].Name).To(Equal("beta"))
		Expect(report.Log.Results[0].Result).To(Equal("skip"))
		Expect(report.Log.Summary.ReposTargeted).To(Equal(1))
	})

	It("writes the execution log to an explicit path", func() {
		root := GinkgoT().TempDir()
		repo := filepath.Join(root, "widgets")
		logPath := filepath.Join(root, "out", "run.json")
		runner := &mockRunner{responses: map[string]mockResponse{
			repo + ":rev-parse --abbrev-ref HEAD": {out: "main"},
		}}
		plan := &model.FleetPlan{Entries: []model.FleetEntry{
			{Name: "widgets", State: model.FleetInSync, Path: repo},
		}}

		report, err := fleet.NewApplier(runner, nil).Apply(context.Background(), plan, fleet.ApplyOptions{
			Root:    root,
			LogPath: logPath,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(report.LogPath).To(Equal(logPath))
		Expect(readFleetLog(logPath).Summary.ReposProcessed).To(Equal(1))
	})

	It("streams results and reports progress", func() {
		root := GinkgoT().TempDir()
		alpha := filepath.Join(root, "alpha")
		beta := filepath.Join(root, "beta")
		runner := &mockRunner{responses: map[string]mockResponse{
			alpha + ":rev-parse --abbrev-ref HEAD": {out: "main"},
			beta + ":rev-parse --abbrev-ref HEAD":  {out: "main"},
		}}
		plan := &model.FleetPlan{Entries: []model.FleetEntry{
			{Name: "alpha", State: model.FleetInSync, Path: alpha},
			{Name: "beta", State: model.FleetInSync, Path: beta},
		}}

		var progress []string
		var streamed []string
		_, err := fleet.NewApplier(runner, nil).Apply(context.Background(), plan, fleet.ApplyOptions{
			Root: root,
			Progress: func(done, total int, name string) {
				progress = append(progress, fmt.Sprintf("%d/%d %s", done, total, name))
			},
			OnResult: func(res model.FleetResult) {
				streamed = append(streamed, res.Name)
			},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(progress).To(Equal([]string{"1/2 alpha", "2/2 beta"}))
		Expect(streamed).To(Equal([]string{"alpha", "beta"}))
	})
})
