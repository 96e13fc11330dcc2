package cascade

import (
	"fmt"

	"github.com/dhaslem/armada/pkg/models"
)

// Engine applies status transitions up the hierarchy. Both operations
// read current status before writing and only write on an actual
// transition, so re-running after a crash or retry is safe.
type Engine struct {
	repo ArtefactRepository
}

// NewEngine creates a cascade engine over the repository.
func NewEngine(repo ArtefactRepository) *Engine {
	return &Engine{repo: repo}
}

// Result reports which parent transitions a cascade performed.
type Result struct {
	// EpicAutoDone is true if the epic was set to Auto-Done.
	EpicAutoDone bool
	// PrdAutoDone is true if the PRD was set to Auto-Done.
	PrdAutoDone bool
	// PrdStarted is true if the PRD was bumped to In Progress.
	PrdStarted bool
}

// EscalateOnTaskStart marks the owning epic and PRD as started when a
// task begins. A parent that has already started is left alone.
func (e *Engine) EscalateOnTaskStart(task *models.Task) error {
	if task.EpicID != "" {
		epic, err := e.repo.GetEpic(task.EpicID)
		if err != nil {
			return fmt.Errorf("escalate start of %s: %w", task.ID, err)
		}
		if epic.Status == models.StatusNotStarted {
			if err := e.repo.UpdateEpicStatus(epic.ID, models.StatusInProgress); err != nil {
				return fmt.Errorf("start epic %s: %w", epic.ID, err)
			}
		}
	}

	if task.PrdID != "" {
		prd, err := e.repo.GetPrd(task.PrdID)
		if err != nil {
			return fmt.Errorf("escalate start of %s: %w", task.ID, err)
		}
		switch prd.Status {
		case models.StatusDraft, models.StatusApproved, models.StatusNotStarted:
			if err := e.repo.UpdatePrdStatus(prd.ID, models.StatusInProgress); err != nil {
				return fmt.Errorf("start prd %s: %w", prd.ID, err)
			}
		}
	}

	return nil
}

// CascadeTaskCompletion re-evaluates the parents of a completed task.
// When every sibling task is Done or Cancelled the epic becomes Auto-Done,
// which signals "ready for review" rather than a human-confirmed Done.
// An epic with no tasks never auto-completes.
func (e *Engine) CascadeTaskCompletion(task *models.Task) (Result, error) {
	var result Result
	if task.EpicID == "" {
		return result, nil
	}

	epic, err := e.repo.GetEpic(task.EpicID)
	if err != nil {
		return result, fmt.Errorf("cascade completion of %s: %w", task.ID, err)
	}

	siblings, err := e.repo.TasksForEpic(epic.ID)
	if err != nil {
		return result, fmt.Errorf("cascade completion of %s: %w", task.ID, err)
	}
	if !allTasksTerminal(siblings) {
		return result, nil
	}

	if epic.Status != models.StatusAutoDone && epic.Status != models.StatusDone {
		if err := e.repo.UpdateEpicStatus(epic.ID, models.StatusAutoDone); err != nil {
			return result, fmt.Errorf("auto-done epic %s: %w", epic.ID, err)
		}
		result.EpicAutoDone = true
	}

	// The PRD is re-evaluated whenever the epic is complete, not only on
	// the write, so a crash between the two updates heals on retry.
	if task.PrdID == "" {
		return result, nil
	}
	prdResult, err := e.cascadeEpicCompletion(task.PrdID)
	if err != nil {
		return result, err
	}
	result.PrdAutoDone = prdResult.PrdAutoDone
	result.PrdStarted = prdResult.PrdStarted
	return result, nil
}

// cascadeEpicCompletion re-evaluates a PRD after one of its epics
// finished. A PRD with no epics never auto-completes.
func (e *Engine) cascadeEpicCompletion(prdID string) (Result, error) {
	var result Result

	prd, err := e.repo.GetPrd(prdID)
	if err != nil {
		return result, fmt.Errorf("cascade epic completion: %w", err)
	}

	epics, err := e.repo.EpicsForPrd(prd.ID)
	if err != nil {
		return result, fmt.Errorf("cascade epic completion: %w", err)
	}

	if allEpicsFinished(epics) {
		if prd.Status != models.StatusAutoDone && prd.Status != models.StatusDone {
			if err := e.repo.UpdatePrdStatus(prd.ID, models.StatusAutoDone); err != nil {
				return result, fmt.Errorf("auto-done prd %s: %w", prd.ID, err)
			}
			result.PrdAutoDone = true
		}
		return result, nil
	}

	// Work continues elsewhere in the PRD; a PRD still in its planning
	// states is bumped to In Progress.
	switch prd.Status {
	case models.StatusDraft, models.StatusApproved:
		if err := e.repo.UpdatePrdStatus(prd.ID, models.StatusInProgress); err != nil {
			return result, fmt.Errorf("start prd %s: %w", prd.ID, err)
		}
		result.PrdStarted = true
	}
	return result, nil
}

func allTasksTerminal(tasks []*models.Task) bool {
	if len(tasks) == 0 {
		return false
	}
	for _, t := range tasks {
		if !t.Status.Terminal() {
			return false
		}
	}
	return true
}

func allEpicsFinished(epics []*models.Epic) bool {
	if len(epics) == 0 {
		return false
	}
	for _, e := range epics {
		if !e.Status.Finished() {
			return false
		}
	}
	return true
}
