// Package cascade propagates task status transitions up the epic and PRD
// hierarchy so parent artefacts reflect the state of their children.
package cascade

import "github.com/dhaslem/armada/pkg/models"

// ArtefactRepository is the read/write surface the cascade engine needs
// over the artefact store. Dependencies are injected at construction;
// the engine never reaches for global state.
type ArtefactRepository interface {
	// GetTask returns the task for the id, or an error if unknown.
	GetTask(id string) (*models.Task, error)
	// GetEpic returns the epic for the id, or an error if unknown.
	GetEpic(id string) (*models.Epic, error)
	// GetPrd returns the PRD for the id, or an error if unknown.
	GetPrd(id string) (*models.PRD, error)
	// TasksForEpic returns every task under the epic.
	TasksForEpic(epicID string) ([]*models.Task, error)
	// EpicsForPrd returns every epic under the PRD.
	EpicsForPrd(prdID string) ([]*models.Epic, error)
	// UpdateTaskStatus persists a task status change.
	UpdateTaskStatus(id string, status models.Status) error
	// UpdateEpicStatus persists an epic status change.
	UpdateEpicStatus(id string, status models.Status) error
	// UpdatePrdStatus persists a PRD status change.
	UpdatePrdStatus(id string, status models.Status) error
}
