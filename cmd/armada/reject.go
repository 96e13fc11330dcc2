package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var rejectReason string

var rejectCmd = &cobra.Command{
	Use:   "reject <task-id>",
	Short: "Abandon an agent's work without merging",
	Long: `Discard the task's agent unconditionally: stop the process if it is
still running, delete the worktree and its branches, and mark the record
rejected. Nothing is merged.`,
	Args: cobra.ExactArgs(1),
	RunE: runReject,
}

func init() {
	rejectCmd.Flags().StringVar(&rejectReason, "reason", "", "why the work was rejected")
}

func runReject(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.machine.Reject(args[0], rejectReason); err != nil {
		return err
	}

	color.New(color.FgGreen, color.Bold).Printf("✓ work on %s rejected and discarded\n", args[0])
	return nil
}
