package models

import "time"

// AgentStatus represents the lifecycle state of an agent subprocess.
type AgentStatus string

const (
	// AgentStatusSpawned indicates the subprocess has been launched.
	AgentStatusSpawned AgentStatus = "spawned"
	// AgentStatusRunning indicates the subprocess is alive and working.
	AgentStatusRunning AgentStatus = "running"
	// AgentStatusCompleted indicates the subprocess exited and wrote a result.
	AgentStatusCompleted AgentStatus = "completed"
	// AgentStatusError indicates the subprocess exited without a usable result.
	AgentStatusError AgentStatus = "error"
	// AgentStatusReaped indicates the agent's work has been merged and recorded.
	AgentStatusReaped AgentStatus = "reaped"
	// AgentStatusKilled indicates the subprocess was terminated by the operator.
	AgentStatusKilled AgentStatus = "killed"
	// AgentStatusRejected indicates the agent's work was discarded unmerged.
	AgentStatusRejected AgentStatus = "rejected"
)

// Valid returns true if the status is a known value.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentStatusSpawned, AgentStatusRunning, AgentStatusCompleted,
		AgentStatusError, AgentStatusReaped, AgentStatusKilled, AgentStatusRejected:
		return true
	default:
		return false
	}
}

// Live returns true for states in which the record should carry a pid.
func (s AgentStatus) Live() bool {
	return s == AgentStatusSpawned || s == AgentStatusRunning
}

// Terminal returns true for states the lifecycle machine never leaves
// except through clear().
func (s AgentStatus) Terminal() bool {
	return s == AgentStatusReaped || s == AgentStatusKilled || s == AgentStatusRejected
}

// ResultStatus is the outcome an agent reports through its completion sentinel.
type ResultStatus string

const (
	// ResultCompleted indicates the agent finished its task.
	ResultCompleted ResultStatus = "completed"
	// ResultBlocked indicates the agent could not finish and needs help.
	ResultBlocked ResultStatus = "blocked"
)

// WorktreeRef describes the isolated working copy assigned to an agent.
type WorktreeRef struct {
	// Path is the absolute path to the worktree directory.
	Path string `json:"path"`
	// Branch is the task branch checked out in the worktree.
	Branch string `json:"branch"`
	// BaseBranch is the branch the task branch was cut from.
	BaseBranch string `json:"base_branch"`
}

// AgentRecord is the durable per-task record of an agent subprocess.
// One record exists per task id; clear() deletes it.
type AgentRecord struct {
	// TaskID is the task this agent is working on.
	TaskID string `json:"task_id"`
	// AgentID is the unique id assigned at spawn.
	AgentID string `json:"agent_id"`
	// Status is the lifecycle state.
	Status AgentStatus `json:"status"`
	// PID is the subprocess id. Present only while Status is live;
	// liveness is always re-verified by signaling, never trusted from here.
	PID int `json:"pid,omitempty"`
	// Worktree is set when worktree isolation is enabled.
	Worktree *WorktreeRef `json:"worktree,omitempty"`
	// SpawnedAt is when the subprocess was launched.
	SpawnedAt time.Time `json:"spawned_at"`
	// EndedAt is when the subprocess was observed to have exited.
	EndedAt *time.Time `json:"ended_at,omitempty"`
	// ExitCode is the subprocess exit code, if observed.
	ExitCode *int `json:"exit_code,omitempty"`
	// Result is the outcome read from the completion sentinel.
	Result ResultStatus `json:"result,omitempty"`
}
