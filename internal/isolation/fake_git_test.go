package isolation

import (
	"fmt"

	"github.com/dhaslem/armada/internal/git"
)

// fakeGit implements git.Runner in memory, recording every mutating call
// so tests can assert on the exact command sequence.
type fakeGit struct {
	dir           string
	branches      map[string]bool
	currentBranch string
	hasChanges    bool
	mergeTreeOut  string
	worktreeList  string

	failMerge  bool
	failRebase bool
	failAbort  bool

	calls *[]string
}

func newFakeGit() *fakeGit {
	calls := make([]string, 0)
	return &fakeGit{
		dir:           "/repo",
		branches:      map[string]bool{"main": true},
		currentBranch: "main",
		calls:         &calls,
	}
}

func (f *fakeGit) record(format string, args ...any) {
	*f.calls = append(*f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeGit) IsRepo() bool                   { return true }
func (f *fakeGit) CommitCount() (int, error)      { return 1, nil }
func (f *fakeGit) CurrentBranch() (string, error) { return f.currentBranch, nil }
func (f *fakeGit) Path() string                   { return f.dir }

func (f *fakeGit) BranchExists(name string) (bool, error) { return f.branches[name], nil }

func (f *fakeGit) CreateBranchFrom(name, startPoint string) error {
	f.record("branch %s %s", name, startPoint)
	f.branches[name] = true
	return nil
}

func (f *fakeGit) DeleteBranch(name string) error {
	f.record("branch -D %s", name)
	delete(f.branches, name)
	return nil
}

func (f *fakeGit) DeleteRemoteBranch(name string) error {
	f.record("push origin --delete %s", name)
	return nil
}

func (f *fakeGit) Checkout(name string) error {
	f.record("checkout %s", name)
	f.currentBranch = name
	return nil
}

func (f *fakeGit) Status() (string, error)            { return "", nil }
func (f *fakeGit) HasChanges() (bool, error)          { return f.hasChanges, nil }
func (f *fakeGit) ConflictedFiles() ([]string, error) { return nil, nil }

func (f *fakeGit) AddAll() error {
	f.record("add -A [%s]", f.dir)
	return nil
}

func (f *fakeGit) Commit(message string) error {
	f.record("commit %q [%s]", message, f.dir)
	f.hasChanges = false
	return nil
}

func (f *fakeGit) Merge(branch string) error {
	f.record("merge %s", branch)
	if f.failMerge {
		return fmt.Errorf("merge failed")
	}
	return nil
}

func (f *fakeGit) MergeNoFFMessage(branch, message string) error {
	f.record("merge --no-ff %s", branch)
	if f.failMerge {
		return fmt.Errorf("merge failed")
	}
	return nil
}

func (f *fakeGit) MergeSquash(branch string) error {
	f.record("merge --squash %s", branch)
	if f.failMerge {
		return fmt.Errorf("merge failed")
	}
	return nil
}

func (f *fakeGit) MergeAbort() error {
	f.record("merge --abort")
	if f.failAbort {
		return fmt.Errorf("abort failed")
	}
	return nil
}

func (f *fakeGit) MergeBase(ref1, ref2 string) (string, error) { return "abc123", nil }

func (f *fakeGit) MergeTree(base, ours, theirs string) (string, error) {
	return f.mergeTreeOut, nil
}

func (f *fakeGit) Rebase(base string) error {
	f.record("rebase %s [%s]", base, f.dir)
	if f.failRebase {
		return fmt.Errorf("rebase failed")
	}
	return nil
}

func (f *fakeGit) RebaseAbort() error {
	f.record("rebase --abort [%s]", f.dir)
	return nil
}

func (f *fakeGit) WorktreeAdd(path, branch string) error {
	f.record("worktree add %s %s", path, branch)
	return nil
}

func (f *fakeGit) WorktreeAddNewBranch(path, branch, startPoint string) error {
	f.record("worktree add -b %s %s %s", branch, path, startPoint)
	f.branches[branch] = true
	return nil
}

func (f *fakeGit) WorktreeRemove(path string, force bool) error {
	f.record("worktree remove %s force=%t", path, force)
	return nil
}

func (f *fakeGit) WorktreeListPorcelain() (string, error) { return f.worktreeList, nil }

func (f *fakeGit) WorktreePrune() error {
	f.record("worktree prune")
	return nil
}

// WithDir shares state with the parent so tests observe one call stream.
func (f *fakeGit) WithDir(dir string) git.Runner {
	clone := *f
	clone.dir = dir
	return &clone
}

var _ git.Runner = (*fakeGit)(nil)
