package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "armada",
	Short: "Parallel coding-agent orchestrator",
	Long: `Armada orchestrates autonomous coding agents against a PRD -> Epic -> Task
backlog. Each agent runs in its own git worktree on its own branch; armada
schedules unblocked tasks by downstream impact, merges finished work up the
branch hierarchy, and cascades completion through the backlog.

Typical flow:
  armada init                 set up .armada/ in the current repository
  armada ready                see which tasks are unblocked, in priority order
  armada spawn <task-id>      launch an agent for a task
  armada wait <task-id>       block until the agent reports a result
  armada reap <task-id>       merge the agent's work and advance the backlog
  armada watch                live dashboard of agents and events`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(spawnCmd)
	rootCmd.AddCommand(waitCmd)
	rootCmd.AddCommand(reapCmd)
	rootCmd.AddCommand(killCmd)
	rootCmd.AddCommand(rejectCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(readyCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	Execute()
}
