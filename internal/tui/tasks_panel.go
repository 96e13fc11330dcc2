package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/dhaslem/armada/internal/artefacts"
	"github.com/dhaslem/armada/internal/graph"
	"github.com/dhaslem/armada/pkg/models"
)

// TasksPanel summarizes backlog progress and the current ready queue.
type TasksPanel struct {
	width  int
	height int

	counts map[models.Status]int
	total  int
	ready  []*models.Task
}

// NewTasksPanel creates the backlog panel.
func NewTasksPanel() *TasksPanel {
	return &TasksPanel{width: 40, height: 10}
}

// SetSize sets the panel dimensions.
func (p *TasksPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetBacklog recomputes the summary from the backlog snapshot. A backlog
// with dependency problems shows no ready queue; the ready command
// reports the specifics.
func (p *TasksPanel) SetBacklog(backlog *artefacts.Backlog) {
	tasks := backlog.Tasks()
	p.counts = make(map[models.Status]int)
	p.total = len(tasks)
	for _, t := range tasks {
		p.counts[t.Status]++
	}

	g := graph.Build(tasks)
	if len(g.Validate()) == 0 {
		p.ready = g.Ready(graph.ReadyOptions{})
	} else {
		p.ready = nil
	}
}

// View renders the panel.
func (p *TasksPanel) View() string {
	lines := []string{panelTitleStyle.Render("Backlog")}

	if p.total == 0 {
		lines = append(lines, dimStyle.Render("empty"))
	} else {
		lines = append(lines, fmt.Sprintf("%d tasks: %d done, %d in progress, %d blocked",
			p.total,
			p.counts[models.StatusDone],
			p.counts[models.StatusInProgress],
			p.counts[models.StatusBlocked]))
	}

	if len(p.ready) > 0 {
		lines = append(lines, panelTitleStyle.Render("Ready"))
		max := p.height - len(lines) - 3
		for i, task := range p.ready {
			if i >= max {
				lines = append(lines, dimStyle.Render(fmt.Sprintf("… %d more", len(p.ready)-i)))
				break
			}
			lines = append(lines, fmt.Sprintf("%s %s", task.ID, dimStyle.Render(task.Title)))
		}
	}

	return panelStyle.Width(p.width - 2).Height(p.height - 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
