package isolation

import (
	"fmt"
	"strings"
)

// WorktreeEntry is one checkout reported by the porcelain listing.
type WorktreeEntry struct {
	// Path is the worktree directory.
	Path string
	// Branch is the checked out branch, empty for a detached HEAD.
	Branch string
}

// ListWorktrees returns every worktree git knows about, the primary
// checkout included.
func (m *Manager) ListWorktrees() ([]WorktreeEntry, error) {
	out, err := m.git.WorktreeListPorcelain()
	if err != nil {
		return nil, fmt.Errorf("list worktrees: %w", err)
	}
	return parseWorktreeList(out), nil
}

// Orphans returns managed worktrees with no live agent attached to their
// branch. Only checkouts under the haven worktree directory are
// considered; the primary checkout is never an orphan.
func (m *Manager) Orphans(liveBranches map[string]bool) ([]WorktreeEntry, error) {
	entries, err := m.ListWorktrees()
	if err != nil {
		return nil, err
	}

	prefix := m.haven.WorktreeDir() + "/"
	var orphans []WorktreeEntry
	for _, e := range entries {
		if !strings.HasPrefix(e.Path, prefix) {
			continue
		}
		if liveBranches[e.Branch] {
			continue
		}
		orphans = append(orphans, e)
	}
	return orphans, nil
}

// parseWorktreeList parses `git worktree list --porcelain` output, where
// entries are blank-line separated blocks of "key value" lines.
func parseWorktreeList(out string) []WorktreeEntry {
	var entries []WorktreeEntry
	var current WorktreeEntry

	flush := func() {
		if current.Path != "" {
			entries = append(entries, current)
		}
		current = WorktreeEntry{}
	}

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "worktree "):
			flush()
			current.Path = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "branch "):
			ref := strings.TrimPrefix(line, "branch ")
			current.Branch = strings.TrimPrefix(ref, "refs/heads/")
		}
	}
	flush()
	return entries
}
