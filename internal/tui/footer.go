package tui

import "github.com/charmbracelet/lipgloss"

var footerStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("243")).
	Padding(0, 1)

// Footer is the key-binding help line.
type Footer struct {
	width int
}

// NewFooter creates the help line.
func NewFooter() *Footer {
	return &Footer{width: 80}
}

// SetWidth sets the footer width.
func (f *Footer) SetWidth(width int) {
	f.width = width
}

// Height returns the rendered line count.
func (f *Footer) Height() int {
	return 1
}

// View renders the footer.
func (f *Footer) View() string {
	return footerStyle.Width(f.width).Render("↑/↓ scroll events · q quit")
}
