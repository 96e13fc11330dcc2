// Package git provides repository-scoped primitives for the isolation layer.
package git

// RepoOperations defines repository-level inspection.
type RepoOperations interface {
	// IsRepo returns true if the path is inside a git repository.
	IsRepo() bool
	// CommitCount returns the number of commits reachable from HEAD.
	// Returns 0 for a repository with no commits.
	CommitCount() (int, error)
	// CurrentBranch returns the name of the current branch.
	CurrentBranch() (string, error)
}

// BranchOperations defines branch management.
type BranchOperations interface {
	// BranchExists returns true if the local branch exists.
	BranchExists(name string) (bool, error)
	// CreateBranchFrom creates a branch at the given start point without
	// checking it out.
	CreateBranchFrom(name, startPoint string) error
	// DeleteBranch force-deletes a local branch.
	DeleteBranch(name string) error
	// DeleteRemoteBranch deletes a branch on origin. Returns nil when no
	// remote is configured.
	DeleteRemoteBranch(name string) error
	// Checkout switches the working tree to the given branch.
	Checkout(name string) error
}

// StatusOperations defines working-tree inspection.
type StatusOperations interface {
	// Status returns the output of git status --porcelain.
	Status() (string, error)
	// HasChanges returns true if there are uncommitted changes.
	HasChanges() (bool, error)
	// ConflictedFiles returns files with unmerged changes.
	ConflictedFiles() ([]string, error)
}

// CommitOperations defines staging and committing.
type CommitOperations interface {
	// AddAll stages every change in the working tree.
	AddAll() error
	// Commit creates a commit with the given message.
	Commit(message string) error
}

// MergeOperations defines merge, rebase, and the non-mutating probe.
type MergeOperations interface {
	// Merge merges the branch into the current branch, fast-forward allowed.
	Merge(branch string) error
	// MergeNoFFMessage merges with --no-ff and an explicit message.
	MergeNoFFMessage(branch, message string) error
	// MergeSquash stages the squashed result of merging branch; the caller
	// commits it.
	MergeSquash(branch string) error
	// MergeAbort aborts an in-progress merge.
	MergeAbort() error
	// MergeBase returns the common ancestor of two refs.
	MergeBase(ref1, ref2 string) (string, error)
	// MergeTree runs the three-way merge-tree comparison of two branches
	// against their merge base and returns the raw output. It never
	// touches the index or working tree; conflict markers in the output
	// are the only signal.
	MergeTree(base, ours, theirs string) (string, error)
	// Rebase rebases the current branch onto the given base.
	Rebase(base string) error
	// RebaseAbort aborts an in-progress rebase.
	RebaseAbort() error
}

// WorktreeOperations defines worktree management.
type WorktreeOperations interface {
	// WorktreeAdd checks out an existing branch into a new worktree.
	WorktreeAdd(path, branch string) error
	// WorktreeAddNewBranch creates a branch at startPoint and checks it
	// out into a new worktree.
	WorktreeAddNewBranch(path, branch, startPoint string) error
	// WorktreeRemove removes the worktree, optionally forcing past
	// uncommitted changes.
	WorktreeRemove(path string, force bool) error
	// WorktreeListPorcelain returns the raw porcelain listing.
	WorktreeListPorcelain() (string, error)
	// WorktreePrune drops stale worktree metadata immediately.
	WorktreePrune() error
}

// Runner is the complete git surface the orchestrator depends on.
// Consumers should prefer the focused interfaces where possible.
type Runner interface {
	RepoOperations
	BranchOperations
	StatusOperations
	CommitOperations
	MergeOperations
	WorktreeOperations
	// Path returns the repository path this runner operates on.
	Path() string
	// WithDir returns a runner bound to a different directory of the same
	// repository, used to run commands inside a worktree.
	WithDir(dir string) Runner
}
