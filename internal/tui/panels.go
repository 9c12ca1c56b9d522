package tui

import (
	"fmt"
	"strings"

	"github.com/rusenback/procmon/internal/report"
)

const (
	pidWidth       = 7
	cpuWidth       = 6
	rssWidth       = 10
	containerWidth = 16
)

// renderHeaderPanel renders the system panel
func (m Model) renderHeaderPanel() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("procmon") + dimStyle.Render(fmt.Sprintf("  every %s  sort %s", m.mon.Interval(), m.sortKey)))
	if m.filter != "" {
		s.WriteString(dimStyle.Render(fmt.Sprintf("  filter %q", m.filter)))
	}
	s.WriteString("\n")

	if !m.haveFrame {
		s.WriteString("Sampling...")
	} else {
		s.WriteString(RenderSystem(m.frame.System, m.cpuHistory, m.frame.Warmup, m.width-4))
	}

	return panelStyle.Width(max(m.width-2, 20)).Render(s.String())
}

// renderProcessPanel renders the ranked process table
func (m Model) renderProcessPanel() string {
	width := max(m.width-6, 40)
	nameWidth := width - pidWidth - cpuWidth - rssWidth - 4
	if m.containers {
		nameWidth -= containerWidth + 1
	}
	nameWidth = max(nameWidth, 8)

	var s strings.Builder
	s.WriteString(titleStyle.Render(fmt.Sprintf("Processes (%d shown)", len(m.rows))) + "\n")

	header := fmt.Sprintf("%*s %s %*s %*s", pidWidth, "PID", pad("NAME", nameWidth), cpuWidth, "CPU%", rssWidth, "RSS")
	if m.containers {
		header += " " + pad("CONTAINER", containerWidth)
	}
	s.WriteString(headerStyle.Render(header) + "\n")

	if len(m.rows) == 0 {
		if m.haveFrame && m.filter != "" {
			s.WriteString(dimStyle.Render(fmt.Sprintf("No processes matched filter %q", m.filter)))
		}
		return panelStyle.Width(max(m.width-2, 20)).Render(s.String())
	}

	start, end := m.window()
	for i := start; i < end; i++ {
		r := m.rows[i]
		line := fmt.Sprintf("%*d %s %*.1f %*s",
			pidWidth, r.ID,
			pad(r.Label, nameWidth),
			cpuWidth, r.CPUPercent,
			rssWidth, report.FormatKb(r.ResidentMemoryKb))
		if m.containers {
			container := r.Container
			if container == "" {
				container = "-"
			}
			line += " " + pad(container, containerWidth)
		}

		if i == m.cursor {
			s.WriteString(selectedStyle.Render(line))
		} else {
			s.WriteString(line)
		}
		if i < end-1 {
			s.WriteString("\n")
		}
	}

	return panelStyle.Width(max(m.width-2, 20)).Render(s.String())
}

// renderJournalPanel lists the latest termination requests
func (m Model) renderJournalPanel() string {
	if len(m.recent) == 0 {
		return ""
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("Recent kills") + "\n")
	for i, t := range m.recent {
		line := fmt.Sprintf("%s  %s %d %s", t.Timestamp.Format("15:04:05"), t.Signal, t.PID, truncate(t.Label, 24))
		if t.Error != "" {
			s.WriteString(errorStyle.Render(line + ": " + t.Error))
		} else {
			s.WriteString(okStyle.Render(line))
		}
		if i < len(m.recent)-1 {
			s.WriteString("\n")
		}
	}
	return panelStyle.Width(max(m.width-2, 20)).Render(s.String())
}

// renderFooter renders the prompt or the status line, then the key help
func (m Model) renderFooter() string {
	var s strings.Builder

	switch {
	case m.mode != modeNormal:
		s.WriteString(promptStyle.Render(m.input.View()))
	case m.status.Message != "":
		if m.status.Level == "error" {
			s.WriteString(errorStyle.Render(m.status.Message))
		} else {
			s.WriteString(okStyle.Render(m.status.Message))
		}
	}
	s.WriteString("\n")

	help := "[↑/↓] select  [+/-] interval  [s] sort  [f] filter  [k] kill  [q] quit"
	if m.mode != modeNormal {
		help = "[enter] confirm  [esc] cancel"
	}
	s.WriteString(helpStyle.Render(help))
	return s.String()
}
