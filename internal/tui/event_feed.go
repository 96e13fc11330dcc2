package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/dhaslem/armada/internal/events"
)

// feedCapacity bounds how many events the feed retains.
const feedCapacity = 500

// EventFeed is a scrollable log of lifecycle events.
type EventFeed struct {
	view   viewport.Model
	lines  []string
	width  int
	height int
	pinned bool
}

// NewEventFeed creates the feed, pinned to the newest event.
func NewEventFeed() *EventFeed {
	return &EventFeed{
		view:   viewport.New(80, 10),
		pinned: true,
	}
}

// SetSize sets the feed dimensions.
func (f *EventFeed) SetSize(width, height int) {
	f.width = width
	f.height = height
	f.view.Width = width - 4
	f.view.Height = height - 3
	f.refresh()
}

// Append adds an event to the feed.
func (f *EventFeed) Append(ev events.Event) {
	line := fmt.Sprintf("%s %s %s",
		dimStyle.Render(ev.Timestamp.Format("15:04:05")),
		eventTypeStyle(ev.Type).Render(string(ev.Type)),
		ev.Message)
	if ev.Err != nil {
		line += lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(" " + ev.Err.Error())
	}
	f.lines = append(f.lines, line)
	if len(f.lines) > feedCapacity {
		f.lines = f.lines[len(f.lines)-feedCapacity:]
	}
	f.refresh()
}

// ScrollUp moves the feed view up and unpins it from the newest event.
func (f *EventFeed) ScrollUp() {
	f.pinned = false
	f.view.LineUp(1)
}

// ScrollDown moves the feed view down, re-pinning at the bottom.
func (f *EventFeed) ScrollDown() {
	f.view.LineDown(1)
	if f.view.AtBottom() {
		f.pinned = true
	}
}

func (f *EventFeed) refresh() {
	f.view.SetContent(strings.Join(f.lines, "\n"))
	if f.pinned {
		f.view.GotoBottom()
	}
}

// View renders the feed.
func (f *EventFeed) View() string {
	title := panelTitleStyle.Render("Events")
	body := f.view.View()
	if len(f.lines) == 0 {
		body = dimStyle.Render("waiting for lifecycle events")
	}
	return panelStyle.Width(f.width - 2).Height(f.height - 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, body))
}

// eventTypeStyle colors an event type.
func eventTypeStyle(t events.Type) lipgloss.Style {
	switch t {
	case events.AgentSpawned:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	case events.AgentCompleted, events.AgentReaped:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	case events.AgentKilled, events.AgentRejected:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	default:
		return dimStyle
	}
}
