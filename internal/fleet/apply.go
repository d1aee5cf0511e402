package fleet

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/skaphos/lantern/internal/gitx"
	"github.com/skaphos/lantern/internal/model"
	"github.com/skaphos/lantern/internal/strutil"
)

const logTimeFormat = "20060102T150405Z"

// BranchResolver resolves the head branch of one pull request. The GitHub
// provider implements it.
type BranchResolver interface {
	PullRequestHead(ctx context.Context, repo string, number int) (string, error)
}

// ApplyOptions configures a fleet apply run.
type ApplyOptions struct {
	Root   string
	Server string
	// Repos limits execution to the named plan entries.
	Repos          []string
	CloneMissing   bool
	PullBehind     bool
	PushAhead      bool
	CheckoutBranch string
	CheckoutPR     int
	OnlyClean      bool
	DryRun         bool
	// LogPath overrides the default execution log location.
	LogPath string
	Timeout time.Duration

	// Progress, when set, is invoked before each repository is processed.
	Progress func(done, total int, name string)
	// OnResult, when set, receives each result as it is produced.
	OnResult func(model.FleetResult)
}

// ApplyReport couples the execution log with the path it was written to.
type ApplyReport struct {
	Log     *model.FleetLog
	LogPath string
}

// Applier executes fleet plans.
type Applier struct {
	runner   gitx.Runner
	resolver BranchResolver
}

// NewApplier creates an Applier. A nil runner selects the installed git
// binary; a nil resolver makes --checkout-pr report unsupported.
func NewApplier(runner gitx.Runner, resolver BranchResolver) *Applier {
	if runner == nil {
		runner = &gitx.GitRunner{}
	}
	return &Applier{runner: runner, resolver: resolver}
}

// Apply executes the plan repository by repository in plan order. A failure
// in one repository never stops the rest; every run ends with the execution
// log written to disk. When no action selection flag is set the run
// defaults to clone+pull+push.
func (a *Applier) Apply(ctx context.Context, plan *model.FleetPlan, opts ApplyOptions) (*ApplyReport, error) {
	opts.CheckoutBranch = strings.TrimPrefix(strings.TrimSpace(opts.CheckoutBranch), "origin/")
	if !opts.CloneMissing && !opts.PullBehind && !opts.PushAhead &&
		opts.CheckoutBranch == "" && opts.CheckoutPR == 0 {
		opts.CloneMissing, opts.PullBehind, opts.PushAhead = true, true, true
	}

	targets := selectEntries(plan.Entries, opts.Repos)
	r := gitx.WithTimeout(a.runner, opts.Timeout)

	log := &model.FleetLog{
		Command: "fleet apply",
		Options: runOptions(opts),
		Results: make([]model.FleetResult, 0, len(targets)),
	}
	report := &ApplyReport{Log: log}
	for i, entry := range targets {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if opts.Progress != nil {
			opts.Progress(i+1, len(targets), entry.Name)
		}
		result := a.applyOne(ctx, r, entry, opts)
		log.Results = append(log.Results, result)
		if opts.OnResult != nil {
			opts.OnResult(result)
		}
	}

	log.GeneratedAt = time.Now().UTC()
	summarize(log, len(targets))
	path, err := writeFleetLog(opts.Root, opts.LogPath, log)
	if err != nil {
		return report, fmt.Errorf("write fleet log: %w", err)
	}
	report.LogPath = path
	return report, nil
}

func (a *Applier) applyOne(ctx context.Context, r gitx.Runner, entry model.FleetEntry, opts ApplyOptions) model.FleetResult {
	res := model.FleetResult{Name: entry.Name, State: entry.State, Path: entry.Path}
	clean := "-"
	if entry.State != model.FleetMissingLocal {
		clean = cleanFlag(entry.Path)
		if branch, ok := gitx.CurrentBranch(ctx, r, entry.Path); ok {
			res.BranchBefore = branch
		}
	}
	res.Clean = clean

	var tokens []string
	cloneOK := entry.State != model.FleetMissingLocal
	switch {
	case entry.State == model.FleetMissingLocal && opts.CloneMissing:
		var step model.FleetStep
		var token string
		token, step, cloneOK = a.clone(ctx, r, entry, opts)
		tokens = append(tokens, token)
		res.Steps = append(res.Steps, step)
	case entry.State == model.FleetBehind && opts.PullBehind:
		tokens = appendGated(tokens, &res, "pull", clean, opts, func() error {
			return gitx.PullFFOnly(ctx, r, entry.Path)
		})
	case entry.State == model.FleetAhead && opts.PushAhead:
		tokens = appendGated(tokens, &res, "push", clean, opts, func() error {
			return gitx.Push(ctx, r, entry.Path)
		})
	}

	branch := opts.CheckoutBranch
	if opts.CheckoutPR > 0 {
		var token string
		branch, token = a.resolvePR(ctx, r, entry, opts.CheckoutPR, &res)
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	if branch != "" {
		tokens = append(tokens, a.checkout(ctx, r, entry, branch, clean, cloneOK, opts, &res))
	}

	if len(tokens) == 0 {
		tokens = append(tokens, "skip")
		res.Steps = append(res.Steps, model.FleetStep{Action: "skip", Status: "none"})
	}
	res.Result = strings.Join(tokens, " ")
	if cloneOK || entry.State != model.FleetMissingLocal {
		if after, ok := gitx.CurrentBranch(ctx, r, entry.Path); ok {
			res.BranchAfter = after
		}
	}
	return res
}

// appendGated runs one mutating action behind the only-clean and dry-run
// gates shared by pull and push.
func appendGated(tokens []string, res *model.FleetResult, action, clean string, opts ApplyOptions, run func() error) []string {
	switch {
	case opts.OnlyClean && clean != "yes":
		res.Steps = append(res.Steps, model.FleetStep{Action: action, Status: "skip-dirty"})
		return append(tokens, action+":skip-dirty")
	case opts.DryRun:
		res.Steps = append(res.Steps, model.FleetStep{Action: action, Status: "dry-run"})
		return append(tokens, action+":dry-run")
	}
	if err := run(); err != nil {
		res.Steps = append(res.Steps, model.FleetStep{Action: action, Status: "fail", Error: failureSummary(err)})
		return append(tokens, action+":fail")
	}
	res.Steps = append(res.Steps, model.FleetStep{Action: action, Status: "ok"})
	return append(tokens, action+":ok")
}

func (a *Applier) clone(ctx context.Context, r gitx.Runner, entry model.FleetEntry, opts ApplyOptions) (string, model.FleetStep, bool) {
	if opts.DryRun {
		return "clone:dry-run", model.FleetStep{Action: "clone", Status: "dry-run"}, false
	}
	if entry.CloneURL == "" {
		return "clone:missing-url", model.FleetStep{Action: "clone", Status: "missing-url"}, false
	}
	if parent := filepath.Dir(entry.Path); parent != "." {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return "clone:fail", model.FleetStep{Action: "clone", Status: "fail", Error: failureSummary(err)}, false
		}
	}
	if err := gitx.Clone(ctx, r, "", entry.CloneURL, entry.Path); err != nil {
		step := model.FleetStep{Action: "clone", Status: "fail", Error: failureSummary(err)}
		if _, statErr := os.Stat(entry.Path); statErr == nil {
			if os.RemoveAll(entry.Path) == nil {
				step.Rollback = "removed partial clone"
			}
		}
		return "clone:fail", step, false
	}
	return "clone:ok", model.FleetStep{Action: "clone", Status: "ok"}, true
}

// resolvePR maps a pull request number to its head branch via the origin
// repository. It returns the branch to check out, or an empty branch plus
// the failure token.
func (a *Applier) resolvePR(ctx context.Context, r gitx.Runner, entry model.FleetEntry, number int, res *model.FleetResult) (string, string) {
	prefix := fmt.Sprintf("checkout-pr:%d:", number)
	origin, ok := gitx.RemoteURL(ctx, r, entry.Path, "origin")
	repo := ownerRepo(origin)
	if a.resolver == nil || !ok || repo == "" {
		res.Steps = append(res.Steps, model.FleetStep{Action: "checkout-pr", Status: "unsupported"})
		return "", prefix + "unsupported"
	}
	head, err := a.resolver.PullRequestHead(ctx, repo, number)
	if err != nil || head == "" {
		res.Steps = append(res.Steps, model.FleetStep{Action: "checkout-pr", Status: "not-found"})
		return "", prefix + "not-found"
	}
	return head, ""
}

func (a *Applier) checkout(ctx context.Context, r gitx.Runner, entry model.FleetEntry, branch, clean string, cloneOK bool, opts ApplyOptions, res *model.FleetResult) string {
	prefix := "checkout:" + branch + ":"
	step := model.FleetStep{Action: "checkout", Branch: branch}
	switch {
	case opts.OnlyClean && clean != "yes":
		step.Status = "skip-dirty"
	case !cloneOK && !opts.DryRun:
		step.Status = "skip-not-cloned"
	case opts.DryRun:
		step.Status = "dry-run"
	default:
		step = a.runCheckout(ctx, r, entry.Path, branch, step)
	}
	res.Steps = append(res.Steps, step)
	return prefix + step.Status
}

// runCheckout switches the repository to branch and fast-forwards it. A
// pull failure after the switch restores the previous branch so the
// repository is not left mid-change.
func (a *Applier) runCheckout(ctx context.Context, r gitx.Runner, path, branch string, step model.FleetStep) model.FleetStep {
	_ = gitx.Fetch(ctx, r, path)
	if !gitx.HasRemoteBranch(ctx, r, path, branch) {
		step.Status = "skip-no-remote"
		return step
	}
	previous, _ := gitx.CurrentBranch(ctx, r, path)

	var err error
	if gitx.HasLocalBranch(ctx, r, path, branch) {
		err = gitx.Checkout(ctx, r, path, branch)
	} else {
		err = gitx.CheckoutTrack(ctx, r, path, branch)
	}
	if err != nil {
		step.Status = "fail"
		step.Error = failureSummary(err)
		return step
	}
	if err := gitx.PullFFOnly(ctx, r, path); err != nil {
		step.Status = "fail"
		step.Error = failureSummary(err)
		if previous != "" && gitx.Checkout(ctx, r, path, previous) == nil {
			step.Rollback = "restored branch " + previous
		}
		return step
	}
	step.Status = "ok"
	return step
}

func selectEntries(entries []model.FleetEntry, names []string) []model.FleetEntry {
	want := make(map[string]bool, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			want[name] = true
		}
	}
	if len(want) == 0 {
		return entries
	}
	var out []model.FleetEntry
	for _, entry := range entries {
		if want[entry.Name] {
			out = append(out, entry)
		}
	}
	return out
}

func runOptions(opts ApplyOptions) model.FleetRunOptions {
	return model.FleetRunOptions{
		Root:           opts.Root,
		Server:         opts.Server,
		Repos:          opts.Repos,
		CloneMissing:   opts.CloneMissing,
		PullBehind:     opts.PullBehind,
		PushAhead:      opts.PushAhead,
		CheckoutBranch: opts.CheckoutBranch,
		CheckoutPR:     opts.CheckoutPR,
		OnlyClean:      opts.OnlyClean,
		DryRun:         opts.DryRun,
	}
}

func summarize(log *model.FleetLog, targeted int) {
	totals := make(map[string]int)
	branchUpdates := []model.FleetBranchUpdate{}
	updated := 0
	for _, res := range log.Results {
		changed := false
		for _, step := range res.Steps {
			totals[step.Action+":"+step.Status]++
			if !mutatingAction(step.Action) {
				continue
			}
			if step.Status == "ok" || step.Status == "dry-run" {
				changed = true
				if step.Action == "checkout" && step.Branch != "" {
					branchUpdates = append(branchUpdates, model.FleetBranchUpdate{Repo: res.Name, Branch: step.Branch})
				}
			}
		}
		if changed {
			updated++
		}
	}
	log.Summary = model.FleetSummary{
		ReposTargeted:  targeted,
		ReposProcessed: len(log.Results),
		ReposUpdated:   updated,
		BranchUpdates:  len(branchUpdates),
		ActionTotals:   totals,
	}
	log.BranchUpdates = branchUpdates
}

func mutatingAction(action string) bool {
	switch action {
	case "clone", "pull", "push", "checkout":
		return true
	}
	return false
}

func writeFleetLog(root, explicit string, log *model.FleetLog) (string, error) {
	path := explicit
	if path == "" {
		dir := filepath.Join(root, "data", "fleet-logs")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
		path = filepath.Join(dir, "fleet-apply-"+log.GeneratedAt.Format(logTimeFormat)+".json")
	} else if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, append(data, '\n'), 0o644)
}

func failureSummary(err error) string {
	return strutil.Truncate(strutil.FirstLine(err.Error()), 200)
}
