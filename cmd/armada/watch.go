package main

import (
	"github.com/spf13/cobra"

	"github.com/dhaslem/armada/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live dashboard of agents, backlog, and events",
	Long: `Open a full-screen dashboard showing agent records with liveness,
backlog progress with the current ready queue, and a scrolling feed of
lifecycle transitions. Press q to quit.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	dashboard := tui.New(a.records, a.backlog, a.bus, a.cfg.TUI.RefreshRate)
	return dashboard.Run(cmd.Context())
}
