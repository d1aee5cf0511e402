package gitx

import (
	"context"
	"strings"
)

// CurrentBranch returns the checked-out branch name. The second return is
// false when HEAD is detached or the repository has no commits yet.
func CurrentBranch(ctx context.Context, r Runner, dir string) (string, bool) {
	out, err := r.Run(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil || out == "" || out == "HEAD" {
		return "", false
	}
	return out, true
}

// Upstream returns the tracking ref configured for the current branch
// (for example, "origin/main"), or false when none is configured.
func Upstream(ctx context.Context, r Runner, dir string) (string, bool) {
	out, err := r.Run(ctx, dir, "rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{u}")
	if err != nil || out == "" {
		return "", false
	}
	return out, true
}

// AheadBehind counts the commits reachable from HEAD but not ref (ahead) and
// from ref but not HEAD (behind).
func AheadBehind(ctx context.Context, r Runner, dir, ref string) (int, int, error) {
	out, err := r.Run(ctx, dir, "rev-list", "--left-right", "--count", "HEAD..."+ref)
	if err != nil {
		return 0, 0, err
	}
	ahead, behind := ParseRevListCount(out)
	return ahead, behind, nil
}

// Remotes returns the configured remote names.
func Remotes(ctx context.Context, r Runner, dir string) ([]string, error) {
	out, err := r.Run(ctx, dir, "remote")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}

// RemoteURL returns the fetch URL of the named remote, or false when the
// remote does not exist.
func RemoteURL(ctx context.Context, r Runner, dir, name string) (string, bool) {
	out, err := r.Run(ctx, dir, "remote", "get-url", name)
	if err != nil || out == "" {
		return "", false
	}
	return out, true
}

// DefaultRef infers the default-branch ref for one remote. It prefers the
// remote's own reported HEAD and falls back to common branch names.
func DefaultRef(ctx context.Context, r Runner, dir, remote string) (string, bool) {
	out, err := r.Run(ctx, dir, "symbolic-ref", "-q", "--short", "refs/remotes/"+remote+"/HEAD")
	if err == nil && out != "" {
		return out, true
	}
	for _, name := range []string{"main", "master"} {
		ref := remote + "/" + name
		if _, err := r.Run(ctx, dir, "rev-parse", "--verify", "--quiet", ref); err == nil {
			return ref, true
		}
	}
	return "", false
}

// HasLocalBranch reports whether the repository has a local branch with the
// given name.
func HasLocalBranch(ctx context.Context, r Runner, dir, branch string) bool {
	_, err := r.Run(ctx, dir, "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	return err == nil
}

// HasRemoteBranch reports whether origin has advertised the given branch in
// the local remote-tracking refs.
func HasRemoteBranch(ctx context.Context, r Runner, dir, branch string) bool {
	_, err := r.Run(ctx, dir, "rev-parse", "--verify", "--quiet", "origin/"+branch)
	return err == nil
}
