package graph

import (
	"sort"

	"github.com/dhaslem/armada/pkg/models"
)

// ReadyOptions controls the ready-task query.
type ReadyOptions struct {
	// IncludeInProgress also returns tasks already being worked on.
	IncludeInProgress bool
}

// BlockersResolved reports whether every blocked_by reference of the task
// resolves to a known task whose status is Done or Cancelled.
//
// A reference that does not resolve to any known task fails the check:
// an unknown blocker is unresolved, never ignored.
func (g *Graph) BlockersResolved(task *models.Task) bool {
	for _, blocker := range task.BlockedBy {
		dep := g.nodes[models.NormalizeID(blocker)]
		if dep == nil {
			return false
		}
		if !dep.Status.Terminal() {
			return false
		}
	}
	return true
}

// Ready returns the tasks that can be scheduled now: not started (or also
// in progress, per options) with every blocker resolved. Results are
// sorted by descending impact, tie-broken by descending critical-path
// length, then by id for determinism.
func (g *Graph) Ready(opts ReadyOptions) []*models.Task {
	var ready []*models.Task
	for _, id := range g.IDs() {
		task := g.nodes[id]
		switch task.Status {
		case models.StatusNotStarted:
		case models.StatusInProgress:
			if !opts.IncludeInProgress {
				continue
			}
		default:
			continue
		}
		if !g.BlockersResolved(task) {
			continue
		}
		ready = append(ready, task)
	}

	sort.SliceStable(ready, func(i, j int) bool {
		a, b := ready[i], ready[j]
		ia, ib := g.Impact(a.ID), g.Impact(b.ID)
		if ia != ib {
			return ia > ib
		}
		la, lb := g.LongestPath(a.ID), g.LongestPath(b.ID)
		if la != lb {
			return la > lb
		}
		return models.NormalizeID(a.ID) < models.NormalizeID(b.ID)
	})

	return ready
}
