package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	graphAxisStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	cpuGraphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#89B4FA"))
)

var sparkChars = []string{"▁", "▂", "▃", "▄", "▅", "▆", "▇", "█"}

// renderSparkline draws the last width points on a fixed 0-100 scale so
// heights stay comparable between refreshes. Missing history is left-padded.
func renderSparkline(data []float64, width int) string {
	if width <= 0 {
		return ""
	}

	start := 0
	if len(data) > width {
		start = len(data) - width
	}
	displayData := data[start:]

	var result strings.Builder
	result.WriteString(strings.Repeat(" ", width-len(displayData)))

	for _, value := range displayData {
		charIndex := int(value / 100 * float64(len(sparkChars)-1))
		charIndex = clamp(charIndex, 0, len(sparkChars)-1)
		result.WriteString(sparkChars[charIndex])
	}

	return result.String()
}

// renderCPUGraph is the sparkline with its legend
func renderCPUGraph(data []float64, width int) string {
	if len(data) == 0 {
		return graphAxisStyle.Render("CPU history: waiting for data...")
	}

	lo, hi := data[0], data[0]
	for _, v := range data {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	legend := fmt.Sprintf(" min %.1f%% max %.1f%%", lo, hi)

	graphWidth := max(width-len(legend), 10)
	return cpuGraphStyle.Render(renderSparkline(data, graphWidth)) + graphAxisStyle.Render(legend)
}
