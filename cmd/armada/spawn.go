package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var spawnCmd = &cobra.Command{
	Use:   "spawn <task-id>",
	Short: "Launch an agent for a task",
	Long: `Launch an agent subprocess for the given task.

With worktree isolation enabled (the default), the task's branch hierarchy
is created as needed, its parent branch is refreshed from upstream, and the
agent runs in a dedicated worktree on its own branch. The agent receives a
mission descriptor naming its task, working directory, and the sentinel
path it must write its result to.`,
	Args: cobra.ExactArgs(1),
	RunE: runSpawn,
}

func runSpawn(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	record, esc, err := a.machine.Spawn(args[0])
	if err != nil {
		return err
	}
	if esc != nil {
		printEscalation(esc)
		return fmt.Errorf("spawn refused")
	}

	green := color.New(color.FgGreen, color.Bold)
	green.Printf("✓ agent %s spawned for %s (pid %d)\n", record.AgentID[:8], record.TaskID, record.PID)
	if record.Worktree != nil {
		fmt.Printf("  worktree %s on %s (base %s)\n",
			record.Worktree.Path, record.Worktree.Branch, record.Worktree.BaseBranch)
	}
	fmt.Printf("  follow it: armada logs %s -f\n", record.TaskID)
	return nil
}
