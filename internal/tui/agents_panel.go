package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dhaslem/armada/pkg/models"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

// AgentsPanel lists every agent record with status and uptime.
type AgentsPanel struct {
	width   int
	height  int
	records []*models.AgentRecord
}

// NewAgentsPanel creates the agents panel.
func NewAgentsPanel() *AgentsPanel {
	return &AgentsPanel{width: 40, height: 10}
}

// SetSize sets the panel dimensions.
func (p *AgentsPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetRecords replaces the displayed records.
func (p *AgentsPanel) SetRecords(records []*models.AgentRecord) {
	p.records = records
}

// View renders the panel.
func (p *AgentsPanel) View() string {
	lines := []string{panelTitleStyle.Render("Agents")}

	if len(p.records) == 0 {
		lines = append(lines, dimStyle.Render("none spawned"))
	}
	max := p.height - 3
	for i, rec := range p.records {
		if i >= max {
			lines = append(lines, dimStyle.Render(fmt.Sprintf("… %d more", len(p.records)-i)))
			break
		}
		lines = append(lines, p.renderRecord(rec))
	}

	return panelStyle.Width(p.width - 2).Height(p.height - 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (p *AgentsPanel) renderRecord(rec *models.AgentRecord) string {
	status := agentStatusStyle(rec.Status).Render(string(rec.Status))
	line := fmt.Sprintf("%s %s", status, rec.TaskID)
	if rec.Status.Live() {
		line += dimStyle.Render(fmt.Sprintf(" pid %d, up %s",
			rec.PID, time.Since(rec.SpawnedAt).Round(time.Second)))
	} else if rec.Result != "" {
		line += dimStyle.Render(" → " + string(rec.Result))
	}
	return line
}

// agentStatusStyle colors an agent lifecycle status.
func agentStatusStyle(s models.AgentStatus) lipgloss.Style {
	switch s {
	case models.AgentStatusRunning, models.AgentStatusSpawned:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	case models.AgentStatusCompleted, models.AgentStatusReaped:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	case models.AgentStatusError, models.AgentStatusKilled, models.AgentStatusRejected:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	default:
		return lipgloss.NewStyle()
	}
}
