// Package engine orchestrates the scan and sync operations across the
// repositories found under a workspace root. It coordinates between the
// discovery, gitx, and model packages.
package engine

import (
	"context"
	"path/filepath"
	"slices"
	"time"

	"github.com/skaphos/lantern/internal/discovery"
	"github.com/skaphos/lantern/internal/gitx"
	"github.com/skaphos/lantern/internal/model"
	"github.com/skaphos/lantern/internal/strutil"
)

// Engine is the core orchestrator for lantern operations.
type Engine struct {
	runner gitx.Runner
}

// New creates an Engine. A nil runner selects the installed git binary.
func New(runner gitx.Runner) *Engine {
	if runner == nil {
		runner = &gitx.GitRunner{}
	}
	return &Engine{runner: runner}
}

// Runner returns the git runner commands execute through.
func (e *Engine) Runner() gitx.Runner { return e.runner }

// ScanOptions configures a scan operation.
type ScanOptions struct {
	Root          string
	MaxDepth      int
	IncludeHidden bool
	Exclude       []string
	Fetch         bool
	Timeout       time.Duration

	// Progress, when set, is invoked before each repository is inspected.
	Progress func(done, total int, name string)
}

// Scan locates every repository under the root and inspects each one in
// name order. Per-repository failures are recorded on the record itself;
// only an unusable root aborts the scan.
func (e *Engine) Scan(ctx context.Context, opts ScanOptions) ([]model.RepositoryRecord, error) {
	paths, err := discovery.Locate(discovery.Options{
		Root:          opts.Root,
		MaxDepth:      opts.MaxDepth,
		IncludeHidden: opts.IncludeHidden,
		Exclude:       opts.Exclude,
	})
	if err != nil {
		return nil, err
	}

	r := gitx.WithTimeout(e.runner, opts.Timeout)
	records := make([]model.RepositoryRecord, 0, len(paths))
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		if opts.Progress != nil {
			opts.Progress(i+1, len(paths), filepath.Base(path))
		}
		rec := model.RepositoryRecord{Name: filepath.Base(path), Path: path}
		if opts.Fetch {
			if err := gitx.Fetch(ctx, r, path); err != nil {
				rec.Error = errorSummary(err)
				rec.ErrorClass = gitx.ClassifyError(err)
			}
		}
		inspect(ctx, r, &rec)
		records = append(records, rec)
	}
	// Locate returns name-sorted paths, so records inherit the order.
	return records, nil
}

// inspect fills the branch, upstream, divergence, default-ref and origin
// fields of rec. Probes that fail leave their fields absent; only a failed
// remote listing is recorded as the repository's error.
func inspect(ctx context.Context, r gitx.Runner, rec *model.RepositoryRecord) {
	branch, ok := gitx.CurrentBranch(ctx, r, rec.Path)
	if !ok {
		branch = model.DetachedBranch
	}
	rec.Branch = branch

	if upstream, ok := gitx.Upstream(ctx, r, rec.Path); ok {
		rec.Upstream = upstream
		if ahead, behind, err := gitx.AheadBehind(ctx, r, rec.Path, upstream); err == nil {
			rec.UpAhead, rec.UpBehind = &ahead, &behind
		}
	}

	remotes, err := gitx.Remotes(ctx, r, rec.Path)
	if err != nil {
		// The first recorded failure wins; a fetch error is not overwritten.
		if rec.Error == "" {
			rec.Error = errorSummary(err)
			rec.ErrorClass = gitx.ClassifyError(err)
		}
		return
	}

	var refs []string
	mainRef := ""
	for _, remote := range remotes {
		ref, ok := gitx.DefaultRef(ctx, r, rec.Path, remote)
		if !ok {
			continue
		}
		if remote == "origin" {
			mainRef = ref
		}
		if !slices.Contains(refs, ref) {
			refs = append(refs, ref)
		}
	}
	rec.DefaultRefs = refs
	if mainRef == "" && len(refs) > 0 {
		// git lists remotes in name order, so the first candidate is the
		// first remote's.
		mainRef = refs[0]
	}
	if mainRef != "" {
		rec.MainRef = mainRef
		if ahead, behind, err := gitx.AheadBehind(ctx, r, rec.Path, mainRef); err == nil {
			rec.MainAhead, rec.MainBehind = &ahead, &behind
		}
	}

	if url, ok := gitx.RemoteURL(ctx, r, rec.Path, "origin"); ok {
		rec.Origin = url
	}
}

// errorSummary reduces git failure output to a single recordable line.
func errorSummary(err error) string {
	return strutil.Truncate(strutil.FirstLine(err.Error()), 200)
}
