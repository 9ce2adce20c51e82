package tui

import "github.com/charmbracelet/lipgloss"

var (
	// HeaderStyle styles the column header row.
	HeaderStyle = lipgloss.NewStyle().Bold(true)

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))

	statusStyles = map[string]lipgloss.Style{
		// Terminal states
		"opened":    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"aligned":   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"extracted": lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"composed":  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"exported":  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"complete":  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),

		// Active states
		"probing":   lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"aligning":  lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"composing": lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"exporting": lipgloss.NewStyle().Foreground(lipgloss.Color("4")),

		// Skipped / warning
		"skipped":  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		"inferred": lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		"warning":  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),

		// Error
		"error":     lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		"cancelled": lipgloss.NewStyle().Foreground(lipgloss.Color("1")),

		// Pending
		"pending": lipgloss.NewStyle().Faint(true),
	}
)

// StatusStyle returns the lipgloss style for the given status string.
func StatusStyle(status string) lipgloss.Style {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return lipgloss.NewStyle()
}
