package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dhaslem/armada/internal/haven"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up the armada haven in the current project",
	Long: `Create the .armada/ directory tree in the current project: the agent
record store, sentinel and mission directories, log directory, and the
worktree base. Writes a starter backlog.yaml if none exists.`,
	RunE: runInit,
}

const starterBacklog = `# Armada backlog: PRDs, epics, and tasks.
# Task statuses: not_started, in_progress, blocked, done, cancelled.
# blocked_by lists task ids that must be done or cancelled first.
#
# prds:
#   - id: PRD-001
#     title: Example product requirement
#     status: approved
# epics:
#   - id: E1
#     prd: PRD-001
#     title: Example epic
#     status: not_started
# tasks:
#   - id: T1
#     epic: E1
#     prd: PRD-001
#     title: Example task
#     status: not_started
#   - id: T2
#     epic: E1
#     prd: PRD-001
#     title: Depends on T1
#     status: not_started
#     blocked_by: [T1]
`

func runInit(cmd *cobra.Command, args []string) error {
	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	h := haven.New(root)
	if err := h.Ensure(); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Printf("✓ created %s\n", h.Root())

	if _, err := os.Stat(h.BacklogPath()); os.IsNotExist(err) {
		if err := os.WriteFile(h.BacklogPath(), []byte(starterBacklog), 0644); err != nil {
			return fmt.Errorf("write starter backlog: %w", err)
		}
		green.Printf("✓ wrote starter backlog at %s\n", h.BacklogPath())
	}

	fmt.Println("\nNext, describe your backlog in", h.BacklogPath())
	fmt.Println("then run `armada ready` to see what is unblocked.")
	return nil
}
