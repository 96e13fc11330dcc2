package graph

import (
	"sort"
	"strings"
)

// DetectCycles reports every distinct dependency cycle as an ordered id
// sequence. An empty result means the graph is a DAG and readiness and
// critical-path queries can be trusted.
//
// Traversal is depth-first over blocked_by edges with an explicit recursion
// stack. Every strongly-connected cyclic component contains at least one
// back edge in the DFS forest, so each such component yields at least one
// reported cycle.
func (g *Graph) DetectCycles() [][]string {
	const (
		white = iota // unvisited
		gray         // on the current DFS path
		black        // fully explored
	)

	colors := make(map[string]int, len(g.nodes))
	var path []string
	onPath := make(map[string]int) // id -> index in path

	var cycles [][]string
	seen := make(map[string]bool) // canonical cycle keys for dedup

	record := func(cycle []string) {
		key := canonicalCycleKey(cycle)
		if seen[key] {
			return
		}
		seen[key] = true
		cycles = append(cycles, cycle)
	}

	// frame tracks a node and its next unexplored edge.
	type frame struct {
		id   string
		next int
	}

	for _, start := range g.IDs() {
		if colors[start] != white {
			continue
		}

		stack := []frame{{id: start}}
		colors[start] = gray
		onPath[start] = len(path)
		path = append(path, start)

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			edges := g.Blockers(top.id)

			if top.next < len(edges) {
				dep := edges[top.next]
				top.next++

				if _, known := g.nodes[dep]; !known {
					continue // dangling reference, reported by Validate
				}

				switch colors[dep] {
				case gray:
					// Back edge: the cycle is the path suffix from dep.
					from := onPath[dep]
					cycle := make([]string, len(path)-from)
					copy(cycle, path[from:])
					record(cycle)
				case white:
					colors[dep] = gray
					onPath[dep] = len(path)
					path = append(path, dep)
					stack = append(stack, frame{id: dep})
				}
				continue
			}

			colors[top.id] = black
			delete(onPath, top.id)
			path = path[:len(path)-1]
			stack = stack[:len(stack)-1]
		}
	}

	sort.Slice(cycles, func(i, j int) bool {
		return canonicalCycleKey(cycles[i]) < canonicalCycleKey(cycles[j])
	})
	return cycles
}

// canonicalCycleKey rotates a cycle so its smallest id comes first,
// making equal cycles compare equal regardless of traversal entry point.
func canonicalCycleKey(cycle []string) string {
	if len(cycle) == 0 {
		return ""
	}
	min := 0
	for i, id := range cycle {
		if id < cycle[min] {
			min = i
		}
	}
	rotated := make([]string, 0, len(cycle))
	rotated = append(rotated, cycle[min:]...)
	rotated = append(rotated, cycle[:min]...)
	return strings.Join(rotated, "->")
}
