// Package tui renders the armada watch dashboard: live agent activity,
// backlog progress, and the lifecycle event feed.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dhaslem/armada/internal/artefacts"
	"github.com/dhaslem/armada/internal/events"
	"github.com/dhaslem/armada/internal/store"
	"github.com/dhaslem/armada/pkg/models"
)

// refreshMsg asks the app to reload records and backlog state.
type refreshMsg time.Time

// eventMsg wraps a lifecycle event from the bus.
type eventMsg events.Event

// App is the bubbletea model for the watch dashboard.
type App struct {
	records store.RecordStore
	backlog *artefacts.Backlog
	bus     *events.Bus
	emitter *events.Emitter
	refresh time.Duration

	// seen tracks the last observed status per task so that transitions
	// read back from the record store become feed events. Lifecycle
	// operations usually run in sibling processes; the durable store is
	// the only channel their transitions reach the dashboard on.
	seen map[string]models.AgentStatus

	header  *Header
	agents  *AgentsPanel
	tasks   *TasksPanel
	feed    *EventFeed
	footer  *Footer
	spin    spinner.Model

	width    int
	height   int
	quitting bool
}

// New builds the dashboard over the record store, backlog, and event bus.
func New(records store.RecordStore, backlog *artefacts.Backlog, bus *events.Bus, refresh time.Duration) *App {
	if refresh <= 0 {
		refresh = 100 * time.Millisecond
	}
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return &App{
		records: records,
		backlog: backlog,
		bus:     bus,
		emitter: events.NewEmitter(bus, 256),
		refresh: refresh,
		seen:    make(map[string]models.AgentStatus),
		header:  NewHeader(),
		agents:  NewAgentsPanel(),
		tasks:   NewTasksPanel(),
		feed:    NewEventFeed(),
		footer:  NewFooter(),
		spin:    sp,
	}
}

// Run starts the dashboard and blocks until the user quits or the
// context ends.
func (a *App) Run(ctx context.Context) error {
	program := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.tick(), a.nextEvent(), a.spin.Tick)
}

func (a *App) tick() tea.Cmd {
	return tea.Tick(a.refresh, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

// nextEvent waits for one lifecycle event from the bus.
func (a *App) nextEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-a.emitter.Events()
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			a.quitting = true
			return a, tea.Quit
		case "up", "k":
			a.feed.ScrollUp()
		case "down", "j":
			a.feed.ScrollDown()
		}
		return a, nil

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.layout()
		return a, nil

	case refreshMsg:
		a.reload()
		return a, a.tick()

	case eventMsg:
		a.feed.Append(events.Event(msg))
		return a, a.nextEvent()

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd
	}
	return a, nil
}

// reload refreshes agent records and backlog state from their stores.
func (a *App) reload() {
	if records, err := a.records.List(); err == nil {
		a.agents.SetRecords(records)
		a.header.SetCounts(countLive(records), len(records))
		a.publishTransitions(records)
	}
	a.tasks.SetBacklog(a.backlog)
}

// publishTransitions turns newly observed record statuses into feed
// events.
func (a *App) publishTransitions(records []*models.AgentRecord) {
	for _, rec := range records {
		prev, known := a.seen[rec.TaskID]
		a.seen[rec.TaskID] = rec.Status
		if known && prev == rec.Status {
			continue
		}
		if typ, ok := eventTypeFor(rec.Status); ok {
			a.bus.Publish(events.Event{
				Type:    typ,
				TaskID:  rec.TaskID,
				AgentID: rec.AgentID,
				Message: fmt.Sprintf("task %s is %s", rec.TaskID, rec.Status),
			})
		}
	}
}

// eventTypeFor maps a record status to the lifecycle event announcing it.
func eventTypeFor(s models.AgentStatus) (events.Type, bool) {
	switch s {
	case models.AgentStatusSpawned, models.AgentStatusRunning:
		return events.AgentSpawned, true
	case models.AgentStatusCompleted, models.AgentStatusError:
		return events.AgentCompleted, true
	case models.AgentStatusReaped:
		return events.AgentReaped, true
	case models.AgentStatusKilled:
		return events.AgentKilled, true
	case models.AgentStatusRejected:
		return events.AgentRejected, true
	default:
		return "", false
	}
}

// layout distributes the terminal space among the panels.
func (a *App) layout() {
	a.header.SetWidth(a.width)
	a.footer.SetWidth(a.width)

	body := a.height - a.header.Height() - a.footer.Height()
	if body < 6 {
		body = 6
	}
	half := a.width / 2
	a.agents.SetSize(half, body/2)
	a.tasks.SetSize(a.width-half, body/2)
	a.feed.SetSize(a.width, body-body/2)
}

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		return ""
	}
	top := lipgloss.JoinHorizontal(lipgloss.Top, a.agents.View(), a.tasks.View())
	return lipgloss.JoinVertical(lipgloss.Left,
		a.header.View(a.spin.View()),
		top,
		a.feed.View(),
		a.footer.View(),
	)
}

func countLive(records []*models.AgentRecord) int {
	live := 0
	for _, rec := range records {
		if rec.Status.Live() {
			live++
		}
	}
	return live
}
