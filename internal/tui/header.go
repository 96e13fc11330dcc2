package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	headerInfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Padding(0, 1)
)

// Header is the dashboard title bar with live agent counts.
type Header struct {
	width int
	live  int
	total int
}

// NewHeader creates the title bar.
func NewHeader() *Header {
	return &Header{width: 80}
}

// SetWidth sets the header width.
func (h *Header) SetWidth(width int) {
	h.width = width
}

// SetCounts updates the live/total agent counts.
func (h *Header) SetCounts(live, total int) {
	h.live = live
	h.total = total
}

// Height returns the rendered line count.
func (h *Header) Height() int {
	return 1
}

// View renders the header; spin is the activity indicator frame.
func (h *Header) View(spin string) string {
	title := headerStyle.Render("armada")
	info := headerInfoStyle.Render(fmt.Sprintf("%s %d live / %d agents", spin, h.live, h.total))
	gap := h.width - lipgloss.Width(title) - lipgloss.Width(info)
	if gap < 0 {
		gap = 0
	}
	return title + lipgloss.NewStyle().Width(gap).Render("") + info
}
