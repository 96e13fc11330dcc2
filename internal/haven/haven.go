// Package haven manages the per-project on-disk root where orchestration
// state lives: agent records, run sentinels, missions, logs, and the
// worktree base directory.
package haven

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the haven directory created at the project root.
const DirName = ".armada"

// Haven is the on-disk layout rooted at <project>/.armada.
type Haven struct {
	projectRoot string
}

// New returns the haven for a project root without touching the disk.
func New(projectRoot string) *Haven {
	return &Haven{projectRoot: projectRoot}
}

// Ensure creates the haven directory tree if it does not exist.
func (h *Haven) Ensure() error {
	dirs := []string{
		h.Root(),
		h.SentinelDir(),
		h.MissionDir(),
		h.LogDir(),
		h.WorktreeDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create haven directory %s: %w", dir, err)
		}
	}
	return nil
}

// ProjectRoot returns the project root the haven belongs to.
func (h *Haven) ProjectRoot() string {
	return h.projectRoot
}

// Root returns the haven directory path.
func (h *Haven) Root() string {
	return filepath.Join(h.projectRoot, DirName)
}

// RecordDBPath returns the agent record store database path.
func (h *Haven) RecordDBPath() string {
	return filepath.Join(h.Root(), "records.db")
}

// BacklogPath returns the file-backed task snapshot path.
func (h *Haven) BacklogPath() string {
	return filepath.Join(h.Root(), "backlog.yaml")
}

// SentinelDir returns the directory agents write completion sentinels to.
func (h *Haven) SentinelDir() string {
	return filepath.Join(h.Root(), "sentinels")
}

// SentinelPath returns the per-task completion sentinel path.
func (h *Haven) SentinelPath(taskID string) string {
	return filepath.Join(h.SentinelDir(), taskID+".json")
}

// MissionDir returns the directory mission descriptors are written to.
func (h *Haven) MissionDir() string {
	return filepath.Join(h.Root(), "missions")
}

// MissionPath returns the per-task mission descriptor path.
func (h *Haven) MissionPath(taskID string) string {
	return filepath.Join(h.MissionDir(), taskID+".yaml")
}

// LogDir returns the directory agent and orchestrator logs live in.
func (h *Haven) LogDir() string {
	return filepath.Join(h.Root(), "logs")
}

// AgentLogPath returns the per-task agent output log path.
func (h *Haven) AgentLogPath(taskID string) string {
	return filepath.Join(h.LogDir(), taskID+".log")
}

// DebugLogPath returns the orchestrator debug log path.
func (h *Haven) DebugLogPath() string {
	return filepath.Join(h.LogDir(), "orchestrator-debug.log")
}

// WorktreeDir returns the base directory task worktrees are created under.
func (h *Haven) WorktreeDir() string {
	return filepath.Join(h.Root(), "worktrees")
}

// WorktreePath returns the worktree path for a task id.
func (h *Haven) WorktreePath(taskID string) string {
	return filepath.Join(h.WorktreeDir(), taskID)
}
