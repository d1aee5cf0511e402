// SPDX-License-Identifier: MIT
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/skaphos/lantern/internal/discovery"
	"github.com/skaphos/lantern/internal/gitx"
	"github.com/skaphos/lantern/internal/model"
)

// Result tokens reported for repositories the sync filters exclude.
const (
	SkipDirty      = "skip:dirty"
	SkipNoUpstream = "skip:no-upstream"
)

const logTimeFormat = "20060102T150405Z"

// SyncOptions configures a sync operation. When none of Fetch, Pull and Push
// are set the action set defaults to fetch only.
type SyncOptions struct {
	Root          string
	MaxDepth      int
	IncludeHidden bool
	Exclude       []string

	Fetch bool
	Pull  bool
	Push  bool

	OnlyClean    bool
	OnlyUpstream bool
	DryRun       bool

	Timeout time.Duration

	// Progress, when set, is invoked before each git action runs.
	Progress func(step, total int, action, name string)
	// OnResult, when set, is invoked with each outcome as it is produced.
	OnResult func(model.SyncOutcome)
}

// SyncReport is the aggregate result of one sync run.
type SyncReport struct {
	// Root is the resolved workspace root the run operated on.
	Root string
	// Outcomes holds one entry per located repository, in name order.
	Outcomes []model.SyncOutcome
	// Issues lists every failed action from the run.
	Issues []model.SyncIssue
	// LogPath is the persisted issue log, empty when nothing failed.
	LogPath string
}

type syncAction struct {
	name string
	run  func(context.Context, gitx.Runner, string) error
}

// Sync applies the selected actions to every repository under the root, one
// repository at a time in name order. Action failures are recorded in the
// outcome and never stop the run; when any action fails, an issue log is
// written under <root>/data/sync-logs.
func (e *Engine) Sync(ctx context.Context, opts SyncOptions) (*SyncReport, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", discovery.ErrInvalidRoot, opts.Root)
	}
	paths, err := discovery.Locate(discovery.Options{
		Root:          root,
		MaxDepth:      opts.MaxDepth,
		IncludeHidden: opts.IncludeHidden,
		Exclude:       opts.Exclude,
	})
	if err != nil {
		return nil, err
	}

	if !opts.Fetch && !opts.Pull && !opts.Push {
		opts.Fetch = true
	}
	actions := make([]syncAction, 0, 3)
	if opts.Fetch {
		actions = append(actions, syncAction{"fetch", gitx.Fetch})
	}
	if opts.Pull {
		actions = append(actions, syncAction{"pull", gitx.PullFFOnly})
	}
	if opts.Push {
		actions = append(actions, syncAction{"push", gitx.Push})
	}

	r := gitx.WithTimeout(e.runner, opts.Timeout)
	report := &SyncReport{Root: root, Outcomes: make([]model.SyncOutcome, 0, len(paths))}
	total := len(paths) * len(actions)
	step := 0
	tick := func(action, name string) {
		step++
		if opts.Progress != nil {
			opts.Progress(step, total, action, name)
		}
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		outcome, issues := syncOne(ctx, r, path, actions, opts, tick)
		report.Outcomes = append(report.Outcomes, outcome)
		report.Issues = append(report.Issues, issues...)
		if opts.OnResult != nil {
			opts.OnResult(outcome)
		}
	}

	if len(report.Issues) > 0 {
		logPath, err := writeSyncIssueLog(root, time.Now().UTC(), report.Issues)
		if err != nil {
			return report, fmt.Errorf("write sync issue log: %w", err)
		}
		report.LogPath = logPath
	}
	return report, nil
}

// syncOne applies the action list to a single repository. Each action runs
// regardless of whether the previous one succeeded; fetch and a fast-forward
// pull either fully apply or leave the repository untouched, so there is
// nothing to roll back.
func syncOne(ctx context.Context, r gitx.Runner, path string, actions []syncAction, opts SyncOptions, tick func(action, name string)) (model.SyncOutcome, []model.SyncIssue) {
	name := filepath.Base(path)
	outcome := model.SyncOutcome{Name: name, Path: path}

	if opts.OnlyClean {
		if op, busy := gitx.OperationInProgress(path); busy {
			outcome.Result = SkipDirty
			outcome.Actions = []model.SyncAction{{Action: "skip", Status: "dirty", Error: op + " in progress"}}
			return outcome, nil
		}
	}
	if opts.OnlyUpstream {
		if _, ok := gitx.Upstream(ctx, r, path); !ok {
			outcome.Result = SkipNoUpstream
			outcome.Actions = []model.SyncAction{{Action: "skip", Status: "no-upstream"}}
			return outcome, nil
		}
	}

	var issues []model.SyncIssue
	tokens := make([]string, 0, len(actions))
	for _, action := range actions {
		tick(action.name, name)
		if opts.DryRun {
			tokens = append(tokens, action.name+":dry-run")
			outcome.Actions = append(outcome.Actions, model.SyncAction{Action: action.name, Status: "dry-run"})
			continue
		}
		if err := action.run(ctx, r, path); err != nil {
			summary := errorSummary(err)
			tokens = append(tokens, action.name+":fail")
			outcome.Actions = append(outcome.Actions, model.SyncAction{Action: action.name, Status: "fail", Error: summary})
			issues = append(issues, model.SyncIssue{Name: name, Action: action.name, Error: summary, Path: path})
			continue
		}
		tokens = append(tokens, action.name+":ok")
		outcome.Actions = append(outcome.Actions, model.SyncAction{Action: action.name, Status: "ok"})
	}
	outcome.Result = strings.Join(tokens, " ")
	return outcome, issues
}

func writeSyncIssueLog(root string, now time.Time, issues []model.SyncIssue) (string, error) {
	dir := filepath.Join(root, "data", "sync-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	doc := model.SyncIssueLog{GeneratedAt: now, Root: root, Issues: issues}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "sync-issues-"+now.Format(logTimeFormat)+".json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
