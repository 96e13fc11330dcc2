package graph

import "github.com/dhaslem/armada/pkg/models"

// LongestPath returns the critical-path length from the given task to a
// sink, counted in edges along the blocks index. A task nothing depends on
// has length 0. Results are memoized for the lifetime of the snapshot.
//
// Only meaningful on an acyclic graph; run DetectCycles first.
func (g *Graph) LongestPath(id string) int {
	return g.longestPath(models.NormalizeID(id))
}

func (g *Graph) longestPath(id string) int {
	if cached, ok := g.longestMemo[id]; ok {
		return cached
	}

	longest := 0
	for _, blocked := range g.blocks[id] {
		if depth := g.longestPath(blocked) + 1; depth > longest {
			longest = depth
		}
	}

	g.longestMemo[id] = longest
	return longest
}

// Impact counts the tasks transitively unblocked by finishing the given
// task: everything reachable through the blocks index, excluding the task
// itself. It is the primary scheduling priority signal.
func (g *Graph) Impact(id string) int {
	start := models.NormalizeID(id)
	visited := make(map[string]bool)
	g.reach(start, visited)
	delete(visited, start)
	return len(visited)
}

func (g *Graph) reach(id string, visited map[string]bool) {
	if visited[id] {
		return
	}
	visited[id] = true
	for _, blocked := range g.blocks[id] {
		g.reach(blocked, visited)
	}
}
