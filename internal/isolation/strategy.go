// Package isolation manages per-task working copies and the branch
// hierarchy that keeps concurrent agents from corrupting shared history.
package isolation

import (
	"fmt"

	"github.com/dhaslem/armada/pkg/models"
)

// Strategy controls how many ancestor branches sit between a task branch
// and the main branch.
type Strategy string

const (
	// StrategyFlat branches every task directly off main.
	StrategyFlat Strategy = "flat"
	// StrategyEpic gives each epic a branch off main; tasks branch off
	// their epic.
	StrategyEpic Strategy = "epic"
	// StrategyPRD builds the full chain main -> prd -> epic -> task.
	StrategyPRD Strategy = "prd"
)

// Valid returns true if the strategy is a known value.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyFlat, StrategyEpic, StrategyPRD:
		return true
	default:
		return false
	}
}

// Context carries the hierarchy coordinates needed to derive branch names.
type Context struct {
	// PrdID is the owning PRD id.
	PrdID string
	// EpicID is the owning epic id.
	EpicID string
	// Strategy is the configured branching strategy.
	Strategy Strategy
}

// TaskBranch returns the branch name for a task id.
// Branch names are pure functions of (id, strategy); no state involved.
func TaskBranch(taskID string) string {
	return "task/" + models.NormalizeID(taskID)
}

// EpicBranch returns the branch name for an epic id.
func EpicBranch(epicID string) string {
	return "epic/" + models.NormalizeID(epicID)
}

// PrdBranch returns the branch name for a PRD id.
func PrdBranch(prdID string) string {
	return "prd/" + models.NormalizeID(prdID)
}

// ParentBranch derives the upstream branch a task branch is cut from.
func ParentBranch(mainBranch string, ctx Context) (string, error) {
	switch ctx.Strategy {
	case StrategyFlat:
		return mainBranch, nil
	case StrategyEpic:
		if ctx.EpicID == "" {
			return mainBranch, nil
		}
		return EpicBranch(ctx.EpicID), nil
	case StrategyPRD:
		if ctx.EpicID != "" {
			return EpicBranch(ctx.EpicID), nil
		}
		if ctx.PrdID != "" {
			return PrdBranch(ctx.PrdID), nil
		}
		return mainBranch, nil
	default:
		return "", fmt.Errorf("unknown branching strategy %q", ctx.Strategy)
	}
}

// AncestorChain returns the branch chain from main down to the task's
// immediate parent, mainBranch first. Missing hierarchy ids shorten the
// chain rather than producing empty branch names.
func AncestorChain(mainBranch string, ctx Context) ([]string, error) {
	switch ctx.Strategy {
	case StrategyFlat:
		return []string{mainBranch}, nil
	case StrategyEpic:
		chain := []string{mainBranch}
		if ctx.EpicID != "" {
			chain = append(chain, EpicBranch(ctx.EpicID))
		}
		return chain, nil
	case StrategyPRD:
		chain := []string{mainBranch}
		if ctx.PrdID != "" {
			chain = append(chain, PrdBranch(ctx.PrdID))
		}
		if ctx.EpicID != "" {
			chain = append(chain, EpicBranch(ctx.EpicID))
		}
		return chain, nil
	default:
		return nil, fmt.Errorf("unknown branching strategy %q", ctx.Strategy)
	}
}
