package tui

import "github.com/charmbracelet/lipgloss"

// View renders the TUI interface
func (m Model) View() string {
	parts := []string{m.renderHeaderPanel(), m.renderProcessPanel()}
	if journal := m.renderJournalPanel(); journal != "" {
		parts = append(parts, journal)
	}
	parts = append(parts, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
