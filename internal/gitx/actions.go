package gitx

import "context"

// Fetch updates remote-tracking refs, pruning refs deleted upstream.
func Fetch(ctx context.Context, r Runner, dir string) error {
	_, err := r.Run(ctx, dir, "fetch", "--prune", "--quiet")
	return err
}

// PullFFOnly fast-forwards the current branch to its upstream. A pull that
// would require a merge commit fails instead of merging.
func PullFFOnly(ctx context.Context, r Runner, dir string) error {
	_, err := r.Run(ctx, dir, "pull", "--ff-only")
	return err
}

// Push publishes the current branch to its upstream.
func Push(ctx context.Context, r Runner, dir string) error {
	_, err := r.Run(ctx, dir, "push")
	return err
}

// Clone clones url into dest. The command runs outside any repository, so
// dir is the parent directory the clone is created under.
func Clone(ctx context.Context, r Runner, dir, url, dest string) error {
	_, err := r.Run(ctx, dir, "clone", "--quiet", url, dest)
	return err
}

// Checkout switches to an existing local branch.
func Checkout(ctx context.Context, r Runner, dir, branch string) error {
	_, err := r.Run(ctx, dir, "checkout", "--quiet", branch)
	return err
}

// CheckoutTrack creates a local branch tracking origin/<branch> and switches
// to it.
func CheckoutTrack(ctx context.Context, r Runner, dir, branch string) error {
	_, err := r.Run(ctx, dir, "checkout", "--quiet", "-b", branch, "--track", "origin/"+branch)
	return err
}
