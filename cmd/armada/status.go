package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dhaslem/armada/internal/logs"
	"github.com/dhaslem/armada/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status [task-id]",
	Short: "Show the backlog hierarchy and agent activity",
	Long: `With no argument, show the PRD -> Epic -> Task hierarchy with current
statuses plus every agent record. With a task id, show that task's agent
record in detail along with the tail of its log.

Agent liveness is re-verified against the OS on every call; a record whose
process died since the last look is shown as errored, not running.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	if len(args) == 1 {
		return printTaskStatus(a, args[0])
	}
	return printOverview(a)
}

func printOverview(a *app) error {
	stale, err := a.machine.RecoverStaleRecords()
	if err != nil {
		return err
	}
	for _, rec := range stale {
		color.Yellow("agent for %s died without reporting; marked errored", rec.TaskID)
	}

	bold := color.New(color.Bold)
	prds := a.backlog.Prds()
	if len(prds) == 0 && len(a.backlog.Tasks()) == 0 {
		fmt.Println("The backlog is empty. Describe it in", a.haven.BacklogPath())
		return nil
	}

	for _, prd := range prds {
		bold.Printf("%s %s %s\n", prd.ID, statusBadge(prd.Status), prd.Title)
		epics, err := a.backlog.EpicsForPrd(prd.ID)
		if err != nil {
			return err
		}
		for _, epic := range epics {
			fmt.Printf("  %s %s %s\n", epic.ID, statusBadge(epic.Status), epic.Title)
			tasks, err := a.backlog.TasksForEpic(epic.ID)
			if err != nil {
				return err
			}
			for _, task := range tasks {
				fmt.Printf("    %s %s %s\n", task.ID, statusBadge(task.Status), task.Title)
			}
		}
	}

	records, err := a.records.List()
	if err != nil {
		return err
	}
	if len(records) > 0 {
		fmt.Println()
		bold.Println("Agents:")
		for _, rec := range records {
			line := fmt.Sprintf("  %s  %s", rec.TaskID, rec.Status)
			if rec.Status.Live() {
				line += fmt.Sprintf(" (pid %d, up %s)", rec.PID, time.Since(rec.SpawnedAt).Round(time.Second))
			}
			if rec.Worktree != nil {
				line += " on " + rec.Worktree.Branch
			}
			fmt.Println(line)
		}
	}
	return nil
}

func printTaskStatus(a *app, taskID string) error {
	rec, err := a.machine.Status(taskID)
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)
	bold.Printf("%s: %s\n", rec.TaskID, rec.Status)
	fmt.Printf("  agent    %s\n", rec.AgentID)
	fmt.Printf("  spawned  %s\n", rec.SpawnedAt.Format(time.RFC3339))
	if rec.Status.Live() {
		fmt.Printf("  pid      %d\n", rec.PID)
	}
	if rec.EndedAt != nil {
		fmt.Printf("  ended    %s\n", rec.EndedAt.Format(time.RFC3339))
	}
	if rec.Result != "" {
		fmt.Printf("  result   %s\n", rec.Result)
	}
	if rec.Worktree != nil {
		fmt.Printf("  worktree %s\n", rec.Worktree.Path)
		fmt.Printf("  branch   %s (base %s)\n", rec.Worktree.Branch, rec.Worktree.BaseBranch)
	}

	lines, err := logs.TailLines(a.haven.AgentLogPath(models.NormalizeID(taskID)), 10)
	if err == nil && len(lines) > 0 {
		fmt.Println("\nRecent log:")
		for _, line := range lines {
			fmt.Printf("  %s\n", line)
		}
	}
	return nil
}

// statusBadge colors a backlog status for terminal output.
func statusBadge(s models.Status) string {
	switch s {
	case models.StatusDone, models.StatusAutoDone:
		return color.GreenString("[%s]", s)
	case models.StatusInProgress:
		return color.CyanString("[%s]", s)
	case models.StatusBlocked:
		return color.RedString("[%s]", s)
	case models.StatusCancelled:
		return color.New(color.Faint).Sprintf("[%s]", s)
	default:
		return fmt.Sprintf("[%s]", s)
	}
}
