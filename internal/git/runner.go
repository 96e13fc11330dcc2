package git

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dhaslem/armada/internal/exec"
)

// ExecRunner implements Runner by shelling out to the git binary.
type ExecRunner struct {
	dir string
	cmd exec.CommandRunner
}

// NewRunner creates a runner operating on the repository at the given path.
func NewRunner(path string) *ExecRunner {
	return &ExecRunner{dir: path, cmd: exec.NewRunner()}
}

// NewRunnerWith creates a runner with an injected command executor.
func NewRunnerWith(path string, cmd exec.CommandRunner) *ExecRunner {
	return &ExecRunner{dir: path, cmd: cmd}
}

// run executes a git command and returns its trimmed output.
func (r *ExecRunner) run(args ...string) (string, error) {
	out, err := r.cmd.Run(context.Background(), r.dir, "git", args...)
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, string(out))
	}
	return strings.TrimSpace(string(out)), nil
}

// runSilent executes a git command, discarding output on success.
func (r *ExecRunner) runSilent(args ...string) error {
	_, err := r.run(args...)
	return err
}

// Path returns the repository path this runner operates on.
func (r *ExecRunner) Path() string {
	return r.dir
}

// WithDir returns a runner bound to a different directory.
func (r *ExecRunner) WithDir(dir string) Runner {
	return &ExecRunner{dir: dir, cmd: r.cmd}
}

// IsRepo returns true if the path is inside a git repository.
func (r *ExecRunner) IsRepo() bool {
	_, err := r.cmd.Run(context.Background(), r.dir, "git", "rev-parse", "--git-dir")
	return err == nil
}

// CommitCount returns the number of commits reachable from HEAD.
func (r *ExecRunner) CommitCount() (int, error) {
	out, err := r.run("rev-list", "--count", "HEAD")
	if err != nil {
		// A repo with no commits has no HEAD to count from.
		if strings.Contains(err.Error(), "unknown revision") ||
			strings.Contains(err.Error(), "ambiguous argument") {
			return 0, nil
		}
		return 0, err
	}
	n, err := strconv.Atoi(out)
	if err != nil {
		return 0, fmt.Errorf("parse commit count %q: %w", out, err)
	}
	return n, nil
}

// CurrentBranch returns the name of the current branch.
func (r *ExecRunner) CurrentBranch() (string, error) {
	return r.run("rev-parse", "--abbrev-ref", "HEAD")
}

// BranchExists returns true if the local branch exists.
func (r *ExecRunner) BranchExists(name string) (bool, error) {
	_, err := r.cmd.Run(context.Background(), r.dir, "git", "show-ref", "--verify", "--quiet", "refs/heads/"+name)
	if err != nil {
		// Exit code 1 means the ref does not exist.
		var exitErr interface{ ExitCode() int }
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return false, nil
		}
		return false, fmt.Errorf("check branch %s: %w", name, err)
	}
	return true, nil
}

// CreateBranchFrom creates a branch at startPoint without checking it out.
func (r *ExecRunner) CreateBranchFrom(name, startPoint string) error {
	return r.runSilent("branch", name, startPoint)
}

// DeleteBranch force-deletes a local branch.
func (r *ExecRunner) DeleteBranch(name string) error {
	return r.runSilent("branch", "-D", name)
}

// DeleteRemoteBranch deletes a branch on origin.
// Returns nil when no remote is configured.
func (r *ExecRunner) DeleteRemoteBranch(name string) error {
	if _, err := r.run("remote", "get-url", "origin"); err != nil {
		return nil
	}
	return r.runSilent("push", "origin", "--delete", name)
}

// Checkout switches the working tree to the given branch.
func (r *ExecRunner) Checkout(name string) error {
	return r.runSilent("checkout", name)
}

// Status returns the output of git status --porcelain.
func (r *ExecRunner) Status() (string, error) {
	return r.run("status", "--porcelain")
}

// HasChanges returns true if there are uncommitted changes.
func (r *ExecRunner) HasChanges() (bool, error) {
	status, err := r.Status()
	if err != nil {
		return false, err
	}
	return len(status) > 0, nil
}

// ConflictedFiles returns files with unmerged changes.
func (r *ExecRunner) ConflictedFiles() ([]string, error) {
	out, err := r.run("diff", "--name-only", "--diff-filter=U")
	if err != nil || out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// AddAll stages every change in the working tree.
func (r *ExecRunner) AddAll() error {
	return r.runSilent("add", "-A")
}

// Commit creates a commit with the given message.
func (r *ExecRunner) Commit(message string) error {
	return r.runSilent("commit", "-m", message)
}

// Merge merges the branch into the current branch, fast-forward allowed.
func (r *ExecRunner) Merge(branch string) error {
	return r.runSilent("merge", branch)
}

// MergeNoFFMessage merges with --no-ff and an explicit message.
func (r *ExecRunner) MergeNoFFMessage(branch, message string) error {
	return r.runSilent("merge", "--no-ff", "-m", message, branch)
}

// MergeSquash stages the squashed result of merging branch.
func (r *ExecRunner) MergeSquash(branch string) error {
	return r.runSilent("merge", "--squash", branch)
}

// MergeAbort aborts an in-progress merge.
func (r *ExecRunner) MergeAbort() error {
	return r.runSilent("merge", "--abort")
}

// MergeBase returns the common ancestor of two refs.
func (r *ExecRunner) MergeBase(ref1, ref2 string) (string, error) {
	return r.run("merge-base", ref1, ref2)
}

// MergeTree runs the three-way merge-tree comparison and returns the raw
// output. merge-tree only reads objects, so this is guaranteed side-effect
// free regardless of outcome.
func (r *ExecRunner) MergeTree(base, ours, theirs string) (string, error) {
	out, err := r.cmd.Run(context.Background(), r.dir, "git", "merge-tree", base, ours, theirs)
	if err != nil {
		return "", fmt.Errorf("git merge-tree %s %s %s: %w: %s", base, ours, theirs, err, string(out))
	}
	// Keep the raw text: conflict markers are the signal the caller parses.
	return string(out), nil
}

// Rebase rebases the current branch onto the given base.
func (r *ExecRunner) Rebase(base string) error {
	return r.runSilent("rebase", base)
}

// RebaseAbort aborts an in-progress rebase.
func (r *ExecRunner) RebaseAbort() error {
	return r.runSilent("rebase", "--abort")
}

// WorktreeAdd checks out an existing branch into a new worktree.
func (r *ExecRunner) WorktreeAdd(path, branch string) error {
	return r.runSilent("worktree", "add", path, branch)
}

// WorktreeAddNewBranch creates a branch at startPoint and checks it out
// into a new worktree.
func (r *ExecRunner) WorktreeAddNewBranch(path, branch, startPoint string) error {
	return r.runSilent("worktree", "add", "-b", branch, path, startPoint)
}

// WorktreeRemove removes the worktree, optionally forcing.
func (r *ExecRunner) WorktreeRemove(path string, force bool) error {
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, path)
	return r.runSilent(args...)
}

// WorktreeListPorcelain returns the raw porcelain listing.
func (r *ExecRunner) WorktreeListPorcelain() (string, error) {
	return r.run("worktree", "list", "--porcelain")
}

// WorktreePrune drops stale worktree metadata immediately.
func (r *ExecRunner) WorktreePrune() error {
	return r.runSilent("worktree", "prune", "--expire", "now")
}

// Verify ExecRunner implements Runner at compile time.
var _ Runner = (*ExecRunner)(nil)
