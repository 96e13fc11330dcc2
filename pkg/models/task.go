package models

import "strings"

// Status represents the workflow state of a task, epic, or PRD.
type Status string

const (
	// StatusDraft indicates a PRD that has not been approved yet.
	StatusDraft Status = "draft"
	// StatusApproved indicates a PRD that is approved but not started.
	StatusApproved Status = "approved"
	// StatusNotStarted indicates work has not begun.
	StatusNotStarted Status = "not_started"
	// StatusInProgress indicates work is underway.
	StatusInProgress Status = "in_progress"
	// StatusBlocked indicates work cannot proceed without intervention.
	StatusBlocked Status = "blocked"
	// StatusDone indicates a human-confirmed completion.
	StatusDone Status = "done"
	// StatusCancelled indicates work was abandoned intentionally.
	StatusCancelled Status = "cancelled"
	// StatusAutoDone indicates completion inferred from children, pending review.
	StatusAutoDone Status = "auto_done"
)

// Valid returns true if the status is a known value.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusApproved, StatusNotStarted, StatusInProgress,
		StatusBlocked, StatusDone, StatusCancelled, StatusAutoDone:
		return true
	default:
		return false
	}
}

// Terminal returns true for statuses that satisfy a blocker: Done or Cancelled.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusCancelled
}

// Finished returns true for statuses that count toward parent completion.
// Unlike Terminal, this includes Auto-Done.
func (s Status) Finished() bool {
	return s == StatusDone || s == StatusCancelled || s == StatusAutoDone
}

// Started returns true once work has visibly begun.
func (s Status) Started() bool {
	switch s {
	case StatusInProgress, StatusBlocked, StatusDone, StatusCancelled, StatusAutoDone:
		return true
	default:
		return false
	}
}

// NormalizeID canonicalizes a task/epic/PRD identifier for map keying.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Task is a leaf unit of work in the PRD -> Epic -> Task hierarchy.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id" yaml:"id"`
	// EpicID is the ID of the owning epic.
	EpicID string `json:"epic_id,omitempty" yaml:"epic,omitempty"`
	// PrdID is the ID of the owning PRD.
	PrdID string `json:"prd_id,omitempty" yaml:"prd,omitempty"`
	// Title is the short description of the task.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
	// Status is the current workflow state.
	Status Status `json:"status" yaml:"status"`
	// BlockedBy lists task IDs that must be Done or Cancelled first.
	BlockedBy []string `json:"blocked_by,omitempty" yaml:"blocked_by,omitempty"`
	// Tags are free-form labels used for filtering.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Epic groups tasks under a PRD.
type Epic struct {
	// ID is the unique identifier for this epic.
	ID string `json:"id" yaml:"id"`
	// PrdID is the ID of the owning PRD.
	PrdID string `json:"prd_id,omitempty" yaml:"prd,omitempty"`
	// Title is the short description of the epic.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
	// Status is the current workflow state.
	Status Status `json:"status" yaml:"status"`
}

// PRD is the root planning artefact of the hierarchy.
type PRD struct {
	// ID is the unique identifier for this PRD.
	ID string `json:"id" yaml:"id"`
	// Title is the short description of the PRD.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
	// Status is the current workflow state.
	Status Status `json:"status" yaml:"status"`
}
