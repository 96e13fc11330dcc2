package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear <task-id>",
	Short: "Delete a task's agent record",
	Long: `Delete the task's agent record, returning the task to absent so a new
agent can be spawned. A task with a live agent must be killed first.
Clearing a task with no record is a no-op.`,
	Args: cobra.ExactArgs(1),
	RunE: runClear,
}

func runClear(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	esc, err := a.machine.Clear(args[0])
	if err != nil {
		return err
	}
	if esc != nil {
		printEscalation(esc)
		return fmt.Errorf("clear refused")
	}

	color.New(color.FgGreen, color.Bold).Printf("✓ %s cleared\n", args[0])
	return nil
}
