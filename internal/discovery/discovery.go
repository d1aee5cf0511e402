// Package discovery walks a directory tree to locate Git repositories.
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/skaphos/lantern/internal/gitx"
	"github.com/skaphos/lantern/internal/sortutil"
)

// ErrInvalidRoot is returned when the scan root does not exist or is not a
// directory.
var ErrInvalidRoot = errors.New("invalid root")

// Options configures a repository walk.
type Options struct {
	// Root is the directory the walk starts from.
	Root string
	// MaxDepth bounds how many levels below Root are examined. Root itself
	// is depth 0; directories deeper than MaxDepth are never visited.
	// Negative values are treated as 0.
	MaxDepth int
	// IncludeHidden visits dot-directories, which are skipped otherwise.
	IncludeHidden bool
	// Exclude holds glob patterns matched against each directory's
	// root-relative path and against its base name.
	Exclude []string
}

// Locate returns the repository roots found under opts.Root, ordered by
// directory name. The walk never descends into a repository, so nested
// checkouts inside a working tree are not reported. Unreadable subtrees
// below the root are skipped.
func Locate(opts Options) ([]string, error) {
	info, err := os.Stat(opts.Root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRoot, opts.Root)
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRoot, opts.Root)
	}
	maxDepth := opts.MaxDepth
	if maxDepth < 0 {
		maxDepth = 0
	}

	var repos []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root {
			name := d.Name()
			if name == ".git" {
				return fs.SkipDir
			}
			if !opts.IncludeHidden && strings.HasPrefix(name, ".") {
				return fs.SkipDir
			}
			if MatchesExclude(root, path, opts.Exclude) {
				return fs.SkipDir
			}
		}
		if IsRepoRoot(path) {
			repos = append(repos, path)
			return fs.SkipDir
		}
		if pathDepth(root, path) >= maxDepth {
			return fs.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(repos, func(i, j int) bool {
		return sortutil.LessNamePath(filepath.Base(repos[i]), repos[i], filepath.Base(repos[j]), repos[j])
	})
	return repos, nil
}

// IsRepoRoot reports whether dir is the top of a Git repository: a working
// tree with a .git directory, a linked worktree whose .git file points at a
// real git dir, or a bare repository. Submodule checkouts are excluded so
// that only the parent repository is reported.
func IsRepoRoot(dir string) bool {
	if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		if info.IsDir() {
			return true
		}
		target, err := gitx.GitDir(dir)
		if err != nil {
			return false
		}
		if strings.Contains(filepath.ToSlash(target), "/.git/modules/") {
			return false
		}
		return true
	}

	// Bare repo heuristic: HEAD file and objects dir.
	head, err := os.Stat(filepath.Join(dir, "HEAD"))
	if err != nil || head.IsDir() {
		return false
	}
	objects, err := os.Stat(filepath.Join(dir, "objects"))
	return err == nil && objects.IsDir()
}

// MatchesExclude checks whether path matches any of the given exclude glob
// patterns. Each pattern is tried against the slash-separated path relative
// to root and against the base name, so "**/vendor/**" and "vendor" both
// skip a vendor directory.
func MatchesExclude(root, path string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	base := filepath.Base(path)
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if match, err := doublestar.Match(pattern, rel); err == nil && match {
			return true
		}
		if match, err := doublestar.Match(pattern, base); err == nil && match {
			return true
		}
	}
	return false
}

func pathDepth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}
