package isolation

import (
	"errors"
	"fmt"

	"github.com/dhaslem/armada/internal/git"
	"github.com/dhaslem/armada/pkg/models"
)

// MergeStrategy selects how completed task work lands on the parent branch.
type MergeStrategy string

const (
	// MergeStrategyMerge creates a no-ff merge commit.
	MergeStrategyMerge MergeStrategy = "merge"
	// MergeStrategySquash collapses the task branch into one commit.
	MergeStrategySquash MergeStrategy = "squash"
	// MergeStrategyRebase replays the task branch onto the parent and
	// fast-forwards.
	MergeStrategyRebase MergeStrategy = "rebase"
)

// Valid returns true if the strategy is a known value.
func (s MergeStrategy) Valid() bool {
	switch s {
	case MergeStrategyMerge, MergeStrategySquash, MergeStrategyRebase:
		return true
	default:
		return false
	}
}

// ErrMergeConflicts signals that the pre-merge probe found conflicts.
// Nothing was merged; resolution is a human decision.
var ErrMergeConflicts = errors.New("merge would conflict")

// MergeResult reports what a MergeWork call did, or why it refused.
type MergeResult struct {
	// Merged is true if the task branch landed on the target.
	Merged bool
	// Committed is true if uncommitted agent work was checkpointed first.
	Committed bool
	// Conflicts is populated when the probe refused the merge.
	Conflicts ConflictReport
}

// MergeWork lands an agent's completed work on the worktree's base branch.
//
// Uncommitted changes in the worktree are committed first so nothing the
// agent produced is lost. The merge is then probed; if the probe reports
// conflicts the merge is refused with ErrMergeConflicts and the conflicting
// files in the result. Conflicts are never auto-resolved.
func (m *Manager) MergeWork(ref *models.WorktreeRef, taskID string, strategy MergeStrategy) (MergeResult, error) {
	if !strategy.Valid() {
		return MergeResult{}, fmt.Errorf("unknown merge strategy %q", strategy)
	}

	var result MergeResult

	wt := m.git.WithDir(ref.Path)
	dirty, err := wt.HasChanges()
	if err != nil {
		return result, fmt.Errorf("inspect worktree %s: %w", ref.Path, err)
	}
	if dirty {
		if err := wt.AddAll(); err != nil {
			return result, fmt.Errorf("stage agent changes in %s: %w", ref.Path, err)
		}
		if err := wt.Commit(fmt.Sprintf("%s: checkpoint agent work", models.NormalizeID(taskID))); err != nil {
			return result, fmt.Errorf("commit agent changes in %s: %w", ref.Path, err)
		}
		result.Committed = true
	}

	report, err := m.detector.DetectConflicts(ref.BaseBranch, ref.Branch)
	if err != nil {
		return result, err
	}
	if report.HasConflicts {
		result.Conflicts = report
		return result, fmt.Errorf("%w: %s into %s", ErrMergeConflicts, ref.Branch, ref.BaseBranch)
	}

	switch strategy {
	case MergeStrategyMerge:
		err = m.mergeTaskBranch(ref, taskID, false)
	case MergeStrategySquash:
		err = m.mergeTaskBranch(ref, taskID, true)
	case MergeStrategyRebase:
		err = m.rebaseTaskBranch(wt, ref)
	}
	if err != nil {
		return result, err
	}

	result.Merged = true
	return result, nil
}

// mergeTaskBranch merges the task branch into its base from the primary
// checkout, restoring the previous branch afterwards. An unexpected
// failure mid-merge is aborted so the base branch is left clean.
func (m *Manager) mergeTaskBranch(ref *models.WorktreeRef, taskID string, squash bool) error {
	current, err := m.git.CurrentBranch()
	if err != nil {
		return fmt.Errorf("current branch: %w", err)
	}
	if err := m.git.Checkout(ref.BaseBranch); err != nil {
		return fmt.Errorf("checkout %s: %w", ref.BaseBranch, err)
	}

	message := fmt.Sprintf("%s: merge agent work from %s", models.NormalizeID(taskID), ref.Branch)

	var mergeErr error
	if squash {
		if mergeErr = m.git.MergeSquash(ref.Branch); mergeErr == nil {
			mergeErr = m.git.Commit(message)
		}
	} else {
		mergeErr = m.git.MergeNoFFMessage(ref.Branch, message)
	}
	if mergeErr != nil {
		mergeErr = fmt.Errorf("merge %s into %s: %w", ref.Branch, ref.BaseBranch, mergeErr)
		if abortErr := m.git.MergeAbort(); abortErr != nil {
			mergeErr = fmt.Errorf("%w; abort failed, %s left mid-merge: %v", mergeErr, ref.BaseBranch, abortErr)
		}
	}

	if current != "" && current != ref.BaseBranch {
		if err := m.git.Checkout(current); err != nil && mergeErr == nil {
			mergeErr = fmt.Errorf("restore branch %s: %w", current, err)
		}
	}
	return mergeErr
}

// rebaseTaskBranch replays the task branch onto its base inside the
// worktree, then fast-forwards the base from the primary checkout.
func (m *Manager) rebaseTaskBranch(wt git.Runner, ref *models.WorktreeRef) error {
	if err := wt.Rebase(ref.BaseBranch); err != nil {
		err = fmt.Errorf("rebase %s onto %s: %w", ref.Branch, ref.BaseBranch, err)
		if abortErr := wt.RebaseAbort(); abortErr != nil {
			err = fmt.Errorf("%w; abort failed, %s left mid-rebase: %v", err, ref.Branch, abortErr)
		}
		return err
	}
	return m.mergeInto(ref.BaseBranch, ref.Branch, "", false)
}
