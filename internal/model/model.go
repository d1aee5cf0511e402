// Package model defines the core data types used throughout Lantern.
package model

import "time"

// DetachedBranch is the branch sentinel recorded when HEAD is not on a branch.
const DetachedBranch = "detached"

// RepositoryRecord is the full inspection result for a single local repository.
// Records are serialized as a JSON array by the scan command and read back by
// the table and report commands.
type RepositoryRecord struct {
	// Name is the repository directory name.
	Name string `json:"name" yaml:"name"`
	// Path is the absolute local filesystem path to the repository.
	Path string `json:"path" yaml:"path"`
	// Branch is the current branch name, or "detached" when HEAD is not on a branch.
	Branch string `json:"branch" yaml:"branch"`
	// Upstream is the tracking ref configured for the current branch (for example, "origin/main").
	Upstream string `json:"upstream,omitempty" yaml:"upstream,omitempty"`
	// UpAhead is the number of commits local is ahead of upstream. Nil when no upstream.
	UpAhead *int `json:"up_ahead,omitempty" yaml:"up_ahead,omitempty"`
	// UpBehind is the number of commits local is behind upstream. Nil when no upstream.
	UpBehind *int `json:"up_behind,omitempty" yaml:"up_behind,omitempty"`
	// MainRef is the inferred default-branch ref, preferring the origin remote.
	MainRef string `json:"main_ref,omitempty" yaml:"main_ref,omitempty"`
	// MainAhead is the number of commits local is ahead of MainRef. Nil when MainRef is absent.
	MainAhead *int `json:"main_ahead,omitempty" yaml:"main_ahead,omitempty"`
	// MainBehind is the number of commits local is behind MainRef. Nil when MainRef is absent.
	MainBehind *int `json:"main_behind,omitempty" yaml:"main_behind,omitempty"`
	// DefaultRefs lists the distinct default-branch candidates across all remotes.
	DefaultRefs []string `json:"default_refs,omitempty" yaml:"default_refs,omitempty"`
	// Origin is the fetch URL of the remote named "origin", empty when no such remote exists.
	Origin string `json:"origin,omitempty" yaml:"origin,omitempty"`
	// Error holds repository-specific inspect or fetch error text.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
	// ErrorClass is a coarse category for Error (for example, auth/network/corrupt).
	ErrorClass string `json:"error_class,omitempty" yaml:"error_class,omitempty"`
}

// SyncAction is one executed (or skipped) action within a sync outcome.
type SyncAction struct {
	// Action is the git action name (fetch, pull, push) or "skip".
	Action string `json:"action" yaml:"action"`
	// Status is "ok", "fail", "dry-run" or a skip reason.
	Status string `json:"status" yaml:"status"`
	// Error is the failure summary when Status is "fail".
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// SyncOutcome records the per-repository result of one sync run. Result is a
// space-joined sequence of action tokens such as "fetch:ok pull:ok" or a
// single skip token such as "skip:dirty".
type SyncOutcome struct {
	// Name is the repository directory name.
	Name string `json:"name" yaml:"name"`
	// Result is the composed action status string.
	Result string `json:"result" yaml:"result"`
	// Path is the absolute repository path.
	Path string `json:"path" yaml:"path"`
	// Actions holds the structured steps behind Result.
	Actions []SyncAction `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// SyncIssue is one failed action captured for the persisted issue log.
type SyncIssue struct {
	// Name is the repository directory name.
	Name string `json:"name" yaml:"name"`
	// Action is the git action that failed (fetch, pull or push).
	Action string `json:"action" yaml:"action"`
	// Error is a short summary of the failure output.
	Error string `json:"error" yaml:"error"`
	// Path is the absolute repository path.
	Path string `json:"path" yaml:"path"`
}

// SyncIssueLog is the JSON document written under the sync-log directory when
// a run reports any non-success outcome.
type SyncIssueLog struct {
	// GeneratedAt is the timestamp when the run finished.
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	// Root is the scan root the run operated on.
	Root string `json:"root" yaml:"root"`
	// Issues lists every failed action from the run.
	Issues []SyncIssue `json:"issues" yaml:"issues"`
}

// FleetState classifies a repository's local/remote relationship in a fleet plan.
type FleetState string

const (
	FleetMissingLocal FleetState = "missing-local"
	FleetBehind       FleetState = "behind-remote"
	FleetAhead        FleetState = "ahead-remote"
	FleetDiverged     FleetState = "diverged"
	FleetInSync       FleetState = "in-sync"
	FleetLocalOnly    FleetState = "local-only"
)

// FleetAction is the single reconciliation action planned for a repository.
type FleetAction string

const (
	FleetActionClone  FleetAction = "clone"
	FleetActionPull   FleetAction = "pull"
	FleetActionPush   FleetAction = "push"
	FleetActionManual FleetAction = "manual"
	FleetActionNone   FleetAction = "none"
)

// FleetEntry is one repository row of a fleet plan.
type FleetEntry struct {
	// Name is the repository name, org-qualified for organization repos.
	Name string `json:"name" yaml:"name"`
	// State is the computed local/remote relationship.
	State FleetState `json:"state" yaml:"state"`
	// Action is the planned reconciliation action.
	Action FleetAction `json:"action" yaml:"action"`
	// UpAhead mirrors the local record's upstream ahead count. Nil when not local.
	UpAhead *int `json:"up_ahead,omitempty" yaml:"up_ahead,omitempty"`
	// UpBehind mirrors the local record's upstream behind count. Nil when not local.
	UpBehind *int `json:"up_behind,omitempty" yaml:"up_behind,omitempty"`
	// Clean reports the in-progress-operation check for local repos ("yes", "no" or "-").
	Clean string `json:"clean" yaml:"clean"`
	// Path is the local repository path, or the path a clone would create.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
	// CloneURL is the remote URL a clone action would use.
	CloneURL string `json:"clone_url,omitempty" yaml:"clone_url,omitempty"`
	// DefaultBranch is the remote's reported default branch.
	DefaultBranch string `json:"default_branch,omitempty" yaml:"default_branch,omitempty"`
	// LatestBranch is the head branch of the most recently updated open pull
	// request, populated only when the plan is enriched with PR data.
	LatestBranch string `json:"latest_branch,omitempty" yaml:"latest_branch,omitempty"`
	// PullRequests lists open pull requests when the plan is enriched.
	PullRequests []PullRequest `json:"prs,omitempty" yaml:"prs,omitempty"`
}

// FleetPlan is the reconciliation plan produced by comparing a local scan
// against a remote listing.
type FleetPlan struct {
	// GeneratedAt is the timestamp when the plan was computed.
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	// Server is the config server name the remote listing came from.
	Server string `json:"server" yaml:"server"`
	// Root is the local workspace root the plan applies to.
	Root string `json:"root" yaml:"root"`
	// Entries holds one row per repository, ordered by name.
	Entries []FleetEntry `json:"entries" yaml:"entries"`
}

// FleetStep is one executed action within a fleet apply result.
type FleetStep struct {
	// Action is the executed action name (clone, pull, push, checkout,
	// checkout-pr or skip).
	Action string `json:"action" yaml:"action"`
	// Status is "ok", "fail", "dry-run" or a skip reason.
	Status string `json:"status" yaml:"status"`
	// Branch is the branch a checkout step targeted.
	Branch string `json:"branch,omitempty" yaml:"branch,omitempty"`
	// Rollback describes any cleanup performed after a failure.
	Rollback string `json:"rollback,omitempty" yaml:"rollback,omitempty"`
	// Error is the failure summary when Status is "fail".
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// FleetResult is the execution record for one repository in a fleet apply run.
type FleetResult struct {
	// Name is the repository name from the plan entry.
	Name string `json:"name" yaml:"name"`
	// State is the plan state the execution acted on.
	State FleetState `json:"state" yaml:"state"`
	// Path is the local repository path.
	Path string `json:"path" yaml:"path"`
	// Clean is the in-progress-operation check at execution time ("yes", "no" or "-").
	Clean string `json:"clean,omitempty" yaml:"clean,omitempty"`
	// Steps lists the executed actions in order.
	Steps []FleetStep `json:"actions" yaml:"actions"`
	// Result is the space-joined sequence of action tokens, such as
	// "clone:ok" or "pull:skip-dirty checkout:feature:ok", or "skip".
	Result string `json:"result" yaml:"result"`
	// BranchBefore is the branch checked out before execution, when local.
	BranchBefore string `json:"branch_before,omitempty" yaml:"branch_before,omitempty"`
	// BranchAfter is the branch checked out after execution, when local.
	BranchAfter string `json:"branch_after,omitempty" yaml:"branch_after,omitempty"`
}

// FleetBranchUpdate records one repository whose checked-out branch changed
// during a fleet apply run.
type FleetBranchUpdate struct {
	// Repo is the repository name.
	Repo string `json:"repo" yaml:"repo"`
	// Branch is the branch checked out by the run.
	Branch string `json:"branch" yaml:"branch"`
}

// FleetRunOptions echoes the apply invocation options into the execution log.
type FleetRunOptions struct {
	Root           string   `json:"root" yaml:"root"`
	Server         string   `json:"server" yaml:"server"`
	Repos          []string `json:"repos,omitempty" yaml:"repos,omitempty"`
	CloneMissing   bool     `json:"clone_missing" yaml:"clone_missing"`
	PullBehind     bool     `json:"pull_behind" yaml:"pull_behind"`
	PushAhead      bool     `json:"push_ahead" yaml:"push_ahead"`
	CheckoutBranch string   `json:"checkout_branch,omitempty" yaml:"checkout_branch,omitempty"`
	CheckoutPR     int      `json:"checkout_pr,omitempty" yaml:"checkout_pr,omitempty"`
	OnlyClean      bool     `json:"only_clean" yaml:"only_clean"`
	DryRun         bool     `json:"dry_run" yaml:"dry_run"`
}

// FleetSummary aggregates a fleet apply run for the execution log.
type FleetSummary struct {
	// ReposTargeted is the number of plan entries selected for execution.
	ReposTargeted int `json:"repos_targeted" yaml:"repos_targeted"`
	// ReposProcessed is the number of entries the applier actually visited.
	ReposProcessed int `json:"repos_processed" yaml:"repos_processed"`
	// ReposUpdated is the number of entries with at least one successful mutating action.
	ReposUpdated int `json:"repos_updated" yaml:"repos_updated"`
	// BranchUpdates is the number of repositories whose branch changed.
	BranchUpdates int `json:"branch_updates" yaml:"branch_updates"`
	// ActionTotals counts executed actions by name.
	ActionTotals map[string]int `json:"action_totals" yaml:"action_totals"`
}

// FleetLog is the JSON execution log written after every fleet apply run.
type FleetLog struct {
	// GeneratedAt is the timestamp when the run finished.
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	// Command is the subcommand that produced the log.
	Command string `json:"command" yaml:"command"`
	// Options echoes the invocation options.
	Options FleetRunOptions `json:"options" yaml:"options"`
	// Summary aggregates the run.
	Summary FleetSummary `json:"summary" yaml:"summary"`
	// BranchUpdates lists repositories whose branch changed.
	BranchUpdates []FleetBranchUpdate `json:"branch_updates" yaml:"branch_updates"`
	// Results holds one record per processed repository, ordered by name.
	Results []FleetResult `json:"results" yaml:"results"`
}

// RemoteRepo is one repository entry returned by a forge listing.
type RemoteRepo struct {
	// Name is the repository name, org-qualified ("org/name") for organization repos.
	Name string `json:"name" yaml:"name"`
	// Org labels entries that came from an organization listing.
	Org string `json:"org,omitempty" yaml:"org,omitempty"`
	// Private reports whether the repository is non-public.
	Private bool `json:"private" yaml:"private"`
	// DefaultBranch is the branch the forge reports as primary.
	DefaultBranch string `json:"default_branch" yaml:"default_branch"`
	// SSHURL is the SSH clone URL.
	SSHURL string `json:"ssh_url" yaml:"ssh_url"`
	// CloneURL is the HTTPS clone URL.
	CloneURL string `json:"clone_url" yaml:"clone_url"`
	// HTMLURL is the web page URL.
	HTMLURL string `json:"html_url" yaml:"html_url"`
}

// RemoteListing is a forge repository listing, persisted as the fleet planner's
// remote snapshot.
type RemoteListing struct {
	// GeneratedAt is the timestamp when the listing was fetched.
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	// Server is the config server name the listing came from.
	Server string `json:"server" yaml:"server"`
	// Provider is the forge kind (github, gitlab or bitbucket).
	Provider string `json:"provider" yaml:"provider"`
	// BaseURL is the API base URL used for the fetch.
	BaseURL string `json:"base_url" yaml:"base_url"`
	// User is the account the listing belongs to.
	User string `json:"user" yaml:"user"`
	// Repos holds the listed repositories, ordered by name.
	Repos []RemoteRepo `json:"repos" yaml:"repos"`
}

// Gist is one GitHub gist entry.
type Gist struct {
	ID          string   `json:"id" yaml:"id"`
	Description string   `json:"description" yaml:"description"`
	Public      bool     `json:"public" yaml:"public"`
	Files       []string `json:"files" yaml:"files"`
	URL         string   `json:"html_url" yaml:"html_url"`
	UpdatedAt   string   `json:"updated_at" yaml:"updated_at"`
}

// Snippet is one GitLab snippet entry.
type Snippet struct {
	ID         int    `json:"id" yaml:"id"`
	Title      string `json:"title" yaml:"title"`
	FileName   string `json:"file_name" yaml:"file_name"`
	Visibility string `json:"visibility" yaml:"visibility"`
	URL        string `json:"web_url" yaml:"web_url"`
	UpdatedAt  string `json:"updated_at" yaml:"updated_at"`
}

// PullRequest is one open pull request entry from a forge.
type PullRequest struct {
	// Number is the pull request number.
	Number int `json:"number" yaml:"number"`
	// Title is the pull request title.
	Title string `json:"title" yaml:"title"`
	// HeadRef is the source branch name, used by fleet checkout.
	HeadRef string `json:"head_ref" yaml:"head_ref"`
	// URL is the web page URL.
	URL string `json:"html_url" yaml:"html_url"`
	// UpdatedAt is the forge-reported last update timestamp.
	UpdatedAt string `json:"updated_at" yaml:"updated_at"`
}
