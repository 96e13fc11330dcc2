package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var waitTimeout time.Duration

var waitCmd = &cobra.Command{
	Use:   "wait <task-id>",
	Short: "Block until a task's agent reports a result",
	Long: `Block until the task's agent writes its completion sentinel.

Passing --timeout bounds the wait; on timeout the command reports it and
exits, but the agent keeps running. Waiting never kills anything.`,
	Args: cobra.ExactArgs(1),
	RunE: runWait,
}

func init() {
	waitCmd.Flags().DurationVar(&waitTimeout, "timeout", 0, "give up waiting after this long (0 waits forever)")
}

func runWait(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	timeout := waitTimeout
	if timeout == 0 {
		timeout = a.cfg.Timeouts.Wait
	}

	result, err := a.machine.Wait(cmd.Context(), args[0], timeout)
	if err != nil {
		return err
	}

	switch {
	case result.TimedOut:
		color.Yellow("still running after %s; the agent was not killed", timeout)
		fmt.Printf("  wait longer: armada wait %s\n", args[0])
		fmt.Printf("  or stop it:  armada kill %s\n", args[0])
	case result.AgentDied:
		color.Red("the agent exited without reporting a result")
		fmt.Printf("  inspect its log: armada logs %s\n", args[0])
	default:
		green := color.New(color.FgGreen, color.Bold)
		green.Printf("✓ agent finished: %s\n", result.Result)
		if result.Sentinel != nil && result.Sentinel.Summary != "" {
			fmt.Printf("  %s\n", result.Sentinel.Summary)
		}
		fmt.Printf("  collect the work: armada reap %s\n", args[0])
	}
	return nil
}
