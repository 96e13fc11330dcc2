package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/dhaslem/armada/internal/artefacts"
	"github.com/dhaslem/armada/internal/cascade"
	"github.com/dhaslem/armada/internal/config"
	"github.com/dhaslem/armada/internal/events"
	"github.com/dhaslem/armada/internal/exec"
	"github.com/dhaslem/armada/internal/git"
	"github.com/dhaslem/armada/internal/haven"
	"github.com/dhaslem/armada/internal/isolation"
	"github.com/dhaslem/armada/internal/lifecycle"
	"github.com/dhaslem/armada/internal/store"
)

// app bundles the collaborators every lifecycle command needs, wired once
// per invocation from the project in the current working directory.
type app struct {
	cfg     *config.Config
	haven   *haven.Haven
	backlog *artefacts.Backlog
	records *store.DB
	bus     *events.Bus
	machine *lifecycle.Machine
}

// openApp wires the orchestration stack for the current directory.
func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	root, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	h := haven.New(root)
	if err := h.Ensure(); err != nil {
		return nil, err
	}

	backlog, err := artefacts.Load(h.BacklogPath())
	if err != nil {
		return nil, err
	}

	records, err := store.Open(h.RecordDBPath())
	if err != nil {
		return nil, err
	}
	if err := records.Migrate(); err != nil {
		records.Close()
		return nil, err
	}

	gitRunner := git.NewRunner(root)
	iso := isolation.NewManager(gitRunner, h, cfg.Git.MainBranch)
	engine := cascade.NewEngine(backlog)
	bus := events.NewBus()
	launcher := exec.NewLauncher()

	machine := lifecycle.NewMachine(records, backlog, engine, iso, launcher, gitRunner, h, bus, lifecycle.Options{
		WorktreeMode:  cfg.Git.Worktrees,
		Branching:     isolation.Strategy(cfg.Git.Branching),
		MergeStrategy: isolation.MergeStrategy(cfg.Git.MergeStrategy),
		SyncParent:    cfg.Git.SyncParent,
		PollInterval:  cfg.Timeouts.Poll,
		KillGrace:     cfg.Timeouts.KillGrace,
		AgentCommand:  cfg.Agent.Command,
		AgentArgs:     cfg.Agent.Args,
	})

	return &app{
		cfg:     cfg,
		haven:   h,
		backlog: backlog,
		records: records,
		bus:     bus,
		machine: machine,
	}, nil
}

// close releases the app's resources.
func (a *app) close() {
	a.records.Close()
}

// printEscalation renders an escalation as reason plus numbered next
// steps. Escalations are remediation advice, never stack traces.
func printEscalation(esc *lifecycle.Escalation) {
	yellow := color.New(color.FgYellow, color.Bold)
	yellow.Fprintf(os.Stderr, "✗ %s\n", esc.Reason)
	if len(esc.NextSteps) > 0 {
		fmt.Fprintln(os.Stderr, "\nNext steps:")
		for i, step := range esc.NextSteps {
			fmt.Fprintf(os.Stderr, "  %d. %s\n", i+1, step)
		}
	}
}

// printError renders an infrastructure error.
func printError(err error) {
	red := color.New(color.FgRed, color.Bold)
	red.Fprintf(os.Stderr, "error: %v\n", err)
}
