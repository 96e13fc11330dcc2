package graph

import (
	"fmt"

	"github.com/dhaslem/armada/pkg/models"
)

// IssueKind classifies a validation finding.
type IssueKind string

const (
	// IssueUnknownBlocker is a blocked_by reference to a nonexistent task.
	IssueUnknownBlocker IssueKind = "unknown_blocker"
	// IssueSelfBlocker is a task listed in its own blocked_by set.
	IssueSelfBlocker IssueKind = "self_blocker"
	// IssueCycle is a circular dependency.
	IssueCycle IssueKind = "cycle"
)

// Issue is a single validation finding.
type Issue struct {
	// Kind classifies the finding.
	Kind IssueKind
	// TaskID is the task the finding is attached to.
	TaskID string
	// Ref is the offending reference, for blocker issues.
	Ref string
	// Cycle is the offending id sequence, for cycle issues.
	Cycle []string
}

// String renders the issue for operator output.
func (i Issue) String() string {
	switch i.Kind {
	case IssueUnknownBlocker:
		return fmt.Sprintf("task %s is blocked by unknown task %s", i.TaskID, i.Ref)
	case IssueSelfBlocker:
		return fmt.Sprintf("task %s is blocked by itself", i.TaskID)
	case IssueCycle:
		return fmt.Sprintf("dependency cycle: %v", i.Cycle)
	default:
		return fmt.Sprintf("unknown issue on task %s", i.TaskID)
	}
}

// Validate reports structural problems in the graph: dangling blocked_by
// references, self-references, and dependency cycles. None of these are
// silently dropped anywhere else; this pass is how they surface.
func (g *Graph) Validate() []Issue {
	var issues []Issue

	for _, id := range g.IDs() {
		task := g.nodes[id]
		for _, blocker := range task.BlockedBy {
			bid := models.NormalizeID(blocker)
			if bid == id {
				issues = append(issues, Issue{Kind: IssueSelfBlocker, TaskID: task.ID, Ref: blocker})
				continue
			}
			if _, known := g.nodes[bid]; !known {
				issues = append(issues, Issue{Kind: IssueUnknownBlocker, TaskID: task.ID, Ref: blocker})
			}
		}
	}

	for _, cycle := range g.DetectCycles() {
		issues = append(issues, Issue{Kind: IssueCycle, Cycle: cycle})
	}

	return issues
}
