package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dhaslem/armada/internal/lifecycle"
	"github.com/dhaslem/armada/pkg/models"
)

var (
	reapNoWait       bool
	reapKeepWorktree bool
	reapTimeout      time.Duration
)

var reapCmd = &cobra.Command{
	Use:   "reap <task-id>",
	Short: "Merge a finished agent's work and advance the backlog",
	Long: `Collect a finished agent: read its result, merge its branch into the
parent branch per the configured strategy, tear down the worktree, and
advance the task's status through the epic/PRD cascade.

If the probe finds merge conflicts nothing is merged; the task is marked
blocked and the conflicting files are listed with manual-resolution steps.
Reaping an already-reaped task is a no-op success.

Concurrent reaps that merge into the same parent branch contend on shared
git state; run one reap at a time per target branch.`,
	Args: cobra.ExactArgs(1),
	RunE: runReap,
}

func init() {
	reapCmd.Flags().BoolVar(&reapNoWait, "no-wait", false, "refuse instead of waiting if the agent is still running")
	reapCmd.Flags().BoolVar(&reapKeepWorktree, "keep-worktree", false, "leave the worktree and branch in place after merging")
	reapCmd.Flags().DurationVar(&reapTimeout, "timeout", 0, "bound the implicit wait on a running agent")
}

func runReap(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	result, esc, err := a.machine.Reap(cmd.Context(), args[0], lifecycle.ReapOptions{
		NonBlocking:  reapNoWait,
		KeepWorktree: reapKeepWorktree,
		Timeout:      reapTimeout,
	})
	if err != nil {
		return err
	}
	if esc != nil {
		printEscalation(esc)
		if result.TaskStatus == models.StatusBlocked {
			color.Yellow("task %s is now blocked", args[0])
		}
		return fmt.Errorf("reap refused")
	}

	green := color.New(color.FgGreen, color.Bold)
	if result.AlreadyReaped {
		green.Printf("✓ %s was already reaped\n", args[0])
		return nil
	}

	green.Printf("✓ %s reaped: %s\n", args[0], result.TaskStatus)
	if result.Merged {
		fmt.Println("  work merged into the parent branch")
	}
	if result.Cascade.EpicAutoDone {
		fmt.Println("  epic is auto-done: every task is finished, ready for review")
	}
	if result.Cascade.PrdAutoDone {
		fmt.Println("  PRD is auto-done: every epic is finished, ready for review")
	}
	return nil
}
