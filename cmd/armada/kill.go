package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var killCmd = &cobra.Command{
	Use:   "kill <task-id>",
	Short: "Terminate a task's agent",
	Long: `Send the task's agent SIGTERM, wait out the configured grace period,
and escalate to SIGKILL if it survives. A process that already exited
counts as success.`,
	Args: cobra.ExactArgs(1),
	RunE: runKill,
}

func runKill(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	esc, err := a.machine.Kill(args[0])
	if err != nil {
		return err
	}
	if esc != nil {
		printEscalation(esc)
		return fmt.Errorf("kill refused")
	}

	color.New(color.FgGreen, color.Bold).Printf("✓ agent for %s killed\n", args[0])
	fmt.Printf("  discard the attempt: armada reject %s\n", args[0])
	fmt.Printf("  or free the task:    armada clear %s\n", args[0])
	return nil
}
