package isolation

import (
	"fmt"
	"os"

	"github.com/dhaslem/armada/internal/git"
	"github.com/dhaslem/armada/internal/haven"
	"github.com/dhaslem/armada/pkg/models"
)

// Manager owns worktree and branch-hierarchy operations for one repository.
//
// Merges into shared hierarchy branches are a contention point: Manager
// provides no internal locking, so concurrent merges into the same target
// branch must be serialized by the caller.
type Manager struct {
	git        git.Runner
	haven      *haven.Haven
	detector   ConflictDetector
	mainBranch string
}

// NewManager creates a manager over the repository's git runner and haven.
func NewManager(g git.Runner, h *haven.Haven, mainBranch string) *Manager {
	if mainBranch == "" {
		mainBranch = "main"
	}
	return &Manager{
		git:        g,
		haven:      h,
		detector:   NewMergeTreeDetector(g),
		mainBranch: mainBranch,
	}
}

// SetConflictDetector replaces the default merge-tree detector.
func (m *Manager) SetConflictDetector(d ConflictDetector) {
	m.detector = d
}

// MainBranch returns the configured main branch name.
func (m *Manager) MainBranch() string {
	return m.mainBranch
}

// ParentBranch derives the upstream branch for a task under the context.
func (m *Manager) ParentBranch(ctx Context) (string, error) {
	return ParentBranch(m.mainBranch, ctx)
}

// EnsureBranchHierarchy idempotently creates any missing ancestor branch
// for the context, each cut from its own parent. Existing branches are
// never disturbed.
func (m *Manager) EnsureBranchHierarchy(ctx Context) error {
	chain, err := AncestorChain(m.mainBranch, ctx)
	if err != nil {
		return err
	}

	for i := 1; i < len(chain); i++ {
		name, parent := chain[i], chain[i-1]
		exists, err := m.git.BranchExists(name)
		if err != nil {
			return fmt.Errorf("check branch %s: %w", name, err)
		}
		if exists {
			continue
		}
		if err := m.git.CreateBranchFrom(name, parent); err != nil {
			return fmt.Errorf("create branch %s from %s: %w", name, parent, err)
		}
	}
	return nil
}

// SyncParentBranch fast-forwards the task's immediate parent branch from
// its own upstream, exactly one level, so a new agent starts from fresh
// context without a full top-to-bottom resync.
func (m *Manager) SyncParentBranch(ctx Context) error {
	chain, err := AncestorChain(m.mainBranch, ctx)
	if err != nil {
		return err
	}
	if len(chain) < 2 {
		// Parent is main; there is no level above to sync from.
		return nil
	}

	parent := chain[len(chain)-1]
	upstream := chain[len(chain)-2]
	return m.mergeInto(parent, upstream, fmt.Sprintf("sync %s from %s", parent, upstream), false)
}

// SyncUpwardHierarchy propagates a completed level's branch one step up:
// the epic branch into its parent, or the PRD branch into main.
func (m *Manager) SyncUpwardHierarchy(level string, ctx Context) error {
	var source, target string
	switch level {
	case "epic":
		if ctx.EpicID == "" {
			return fmt.Errorf("sync upward: context has no epic id")
		}
		source = EpicBranch(ctx.EpicID)
		if ctx.Strategy == StrategyPRD && ctx.PrdID != "" {
			target = PrdBranch(ctx.PrdID)
		} else {
			target = m.mainBranch
		}
	case "prd":
		if ctx.PrdID == "" {
			return fmt.Errorf("sync upward: context has no prd id")
		}
		source = PrdBranch(ctx.PrdID)
		target = m.mainBranch
	default:
		return fmt.Errorf("sync upward: unknown level %q", level)
	}

	return m.mergeInto(target, source, fmt.Sprintf("promote %s into %s", source, target), true)
}

// mergeInto merges source into target, restoring the previously checked
// out branch afterwards. noFF controls whether a merge commit is forced.
func (m *Manager) mergeInto(target, source, message string, noFF bool) error {
	current, err := m.git.CurrentBranch()
	if err != nil {
		return fmt.Errorf("current branch: %w", err)
	}

	if err := m.git.Checkout(target); err != nil {
		return fmt.Errorf("checkout %s: %w", target, err)
	}

	var mergeErr error
	if noFF {
		mergeErr = m.git.MergeNoFFMessage(source, message)
	} else {
		mergeErr = m.git.Merge(source)
	}

	if current != "" && current != target {
		if err := m.git.Checkout(current); err != nil && mergeErr == nil {
			mergeErr = fmt.Errorf("restore branch %s: %w", current, err)
		}
	}

	if mergeErr != nil {
		return fmt.Errorf("merge %s into %s: %w", source, target, mergeErr)
	}
	return nil
}

// CreateWorktree creates the isolated working copy for a task, cutting
// the task branch from its derived parent if it does not already exist.
func (m *Manager) CreateWorktree(taskID string, ctx Context) (*models.WorktreeRef, error) {
	parent, err := m.ParentBranch(ctx)
	if err != nil {
		return nil, err
	}

	branch := TaskBranch(taskID)
	path := m.haven.WorktreePath(models.NormalizeID(taskID))

	exists, err := m.git.BranchExists(branch)
	if err != nil {
		return nil, fmt.Errorf("check branch %s: %w", branch, err)
	}

	if exists {
		if err := m.git.WorktreeAdd(path, branch); err != nil {
			return nil, fmt.Errorf("add worktree for %s: %w", branch, err)
		}
	} else {
		if err := m.git.WorktreeAddNewBranch(path, branch, parent); err != nil {
			return nil, fmt.Errorf("add worktree with new branch %s: %w", branch, err)
		}
	}

	return &models.WorktreeRef{Path: path, Branch: branch, BaseBranch: parent}, nil
}

// RemoveWorktree removes a worktree. The branch is retained unless
// keepBranch is false.
func (m *Manager) RemoveWorktree(ref *models.WorktreeRef, force, keepBranch bool) error {
	if err := m.git.WorktreeRemove(ref.Path, force); err != nil {
		return fmt.Errorf("remove worktree %s: %w", ref.Path, err)
	}
	if err := m.git.WorktreePrune(); err != nil {
		return fmt.Errorf("prune worktrees: %w", err)
	}
	if keepBranch {
		return nil
	}
	if err := m.git.DeleteBranch(ref.Branch); err != nil {
		return fmt.Errorf("delete branch %s: %w", ref.Branch, err)
	}
	return nil
}

// CleanupWorktree removes the worktree and deletes both the local and the
// remote task branch.
func (m *Manager) CleanupWorktree(ref *models.WorktreeRef) error {
	if err := m.RemoveWorktree(ref, true, false); err != nil {
		return err
	}
	if err := m.git.DeleteRemoteBranch(ref.Branch); err != nil {
		return fmt.Errorf("delete remote branch %s: %w", ref.Branch, err)
	}
	return nil
}

// VerifyWorktree checks that the worktree directory recorded for an agent
// actually exists on disk. A missing directory without a recorded teardown
// is a fatal inconsistency surfaced to the caller, never silently healed.
func (m *Manager) VerifyWorktree(ref *models.WorktreeRef) error {
	if ref == nil {
		return nil
	}
	info, err := os.Stat(ref.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("worktree %s recorded but missing on disk: state is inconsistent", ref.Path)
		}
		return fmt.Errorf("stat worktree %s: %w", ref.Path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("worktree path %s is not a directory", ref.Path)
	}
	return nil
}

// DetectConflicts probes whether merging source into target would
// conflict, with zero side effects.
func (m *Manager) DetectConflicts(target, source string) (ConflictReport, error) {
	return m.detector.DetectConflicts(target, source)
}
