// Package graph builds the task dependency graph and answers scheduling
// queries: cycle detection, readiness, critical-path length, and impact.
//
// A Graph is a pure snapshot. It is rebuilt from the task collection on
// every query rather than mutated in place, so it can never go stale
// against the artefact store.
package graph

import (
	"sort"

	"github.com/dhaslem/armada/pkg/models"
)

// Graph is a dependency snapshot over a flat task collection.
// Edges follow blocked_by references; the blocks index is the reverse.
type Graph struct {
	// nodes maps normalized task id to the task.
	nodes map[string]*models.Task
	// blocks maps normalized task id to the ids of tasks it blocks.
	blocks map[string][]string
	// longestMemo caches LongestPath results for this snapshot.
	longestMemo map[string]int
}

// Build constructs a graph from a task collection in O(n + e).
// Unknown blocked_by references are kept as dangling edges; they fail the
// readiness check and are reported by Validate rather than dropped.
func Build(tasks []*models.Task) *Graph {
	g := &Graph{
		nodes:       make(map[string]*models.Task, len(tasks)),
		blocks:      make(map[string][]string),
		longestMemo: make(map[string]int),
	}

	for _, task := range tasks {
		g.nodes[models.NormalizeID(task.ID)] = task
	}

	for _, task := range tasks {
		id := models.NormalizeID(task.ID)
		for _, blocker := range task.BlockedBy {
			bid := models.NormalizeID(blocker)
			if _, known := g.nodes[bid]; !known {
				continue
			}
			g.blocks[bid] = append(g.blocks[bid], id)
		}
	}

	// Deterministic edge order for stable traversals and test output.
	for id := range g.blocks {
		sort.Strings(g.blocks[id])
	}

	return g
}

// Task returns the task for a normalized id, or nil if unknown.
func (g *Graph) Task(id string) *models.Task {
	return g.nodes[models.NormalizeID(id)]
}

// Size returns the number of tasks in the graph.
func (g *Graph) Size() int {
	return len(g.nodes)
}

// Blocks returns the ids of tasks directly blocked by the given task.
func (g *Graph) Blocks(id string) []string {
	return g.blocks[models.NormalizeID(id)]
}

// Blockers returns the normalized blocked_by ids of the given task,
// including ids that do not resolve to any known task.
func (g *Graph) Blockers(id string) []string {
	task := g.Task(id)
	if task == nil {
		return nil
	}
	blockers := make([]string, 0, len(task.BlockedBy))
	for _, b := range task.BlockedBy {
		blockers = append(blockers, models.NormalizeID(b))
	}
	return blockers
}

// IDs returns all task ids in the graph, sorted.
func (g *Graph) IDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
