package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dhaslem/armada/internal/logs"
	"github.com/dhaslem/armada/pkg/models"
)

var (
	logsFollow bool
	logsTailN  int
)

var logsCmd = &cobra.Command{
	Use:   "logs <task-id>",
	Short: "Show or follow a task's agent log",
	Long: `Print the last lines of the task's agent log. With --follow, keep the
log open and stream new lines as the agent writes them; a follower can
join mid-run and still see the most recent output first.`,
	Args: cobra.ExactArgs(1),
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "keep streaming new lines")
	logsCmd.Flags().IntVarP(&logsTailN, "tail", "n", 20, "number of trailing lines to start from")
}

func runLogs(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	path := a.haven.AgentLogPath(models.NormalizeID(args[0]))

	if !logsFollow {
		lines, err := logs.TailLines(path, logsTailN)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			fmt.Printf("no log for %s yet\n", args[0])
			return nil
		}
		for _, line := range lines {
			fmt.Println(line)
		}
		return nil
	}

	tailer := logs.NewTailer(path, logs.DefaultPollInterval)
	lines, unsubscribe, err := tailer.Subscribe(logsTailN)
	if err != nil {
		return err
	}
	defer unsubscribe()

	go tailer.Follow(cmd.Context())

	for line := range lines {
		fmt.Println(line)
	}
	return nil
}
