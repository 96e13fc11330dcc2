package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dhaslem/armada/internal/graph"
)

var readyIncludeInProgress bool

var readyCmd = &cobra.Command{
	Use:   "ready",
	Short: "List unblocked tasks in scheduling order",
	Long: `List the tasks that can be scheduled now: not started, with every
blocked_by dependency done or cancelled.

Tasks are sorted by descending impact (how many tasks finishing this one
transitively unblocks), tie-broken by descending critical-path length.
The backlog is validated first; dangling references and dependency cycles
are reported and block the query.`,
	RunE: runReady,
}

func init() {
	readyCmd.Flags().BoolVar(&readyIncludeInProgress, "in-progress", false, "also list tasks already being worked on")
}

func runReady(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	g := graph.Build(a.backlog.Tasks())
	if issues := g.Validate(); len(issues) > 0 {
		red := color.New(color.FgRed, color.Bold)
		red.Fprintln(os.Stderr, "✗ the backlog has dependency problems:")
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "  - %s\n", issue)
		}
		return fmt.Errorf("backlog validation failed")
	}

	ready := g.Ready(graph.ReadyOptions{IncludeInProgress: readyIncludeInProgress})
	if len(ready) == 0 {
		fmt.Println("No tasks are ready. Run `armada status` to see what is blocking.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TASK\tIMPACT\tCRITICAL PATH\tEPIC\tTITLE")
	for _, task := range ready {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n",
			task.ID, g.Impact(task.ID), g.LongestPath(task.ID), task.EpicID, task.Title)
	}
	return w.Flush()
}
