package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rusenback/procmon/internal/model"
	"github.com/rusenback/procmon/internal/report"
)

func renderBar(percent float64, length int) string {
	filled := clamp(int(percent/100*float64(length)), 0, length)
	return strings.Repeat("█", filled) + strings.Repeat("─", length-filled)
}

func colorize(percent float64, text string) string {
	var color string
	switch {
	case percent > 80:
		color = "#F38BA8" // red/pink
	case percent > 50:
		color = "#FAB387" // orange
	default:
		color = "#A6E3A1" // green
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(text)
}

// RenderSystem renders the system-wide block of the header panel
func RenderSystem(sys model.SystemMetrics, history []float64, warmup bool, width int) string {
	barLength := clamp(width-40, 10, 40)

	cpuStr := fmt.Sprintf("CPU %6.2f%% |%s|", sys.CPUPercent, renderBar(sys.CPUPercent, barLength))
	memStr := fmt.Sprintf("MEM %6.2f%% |%s| %s / %s",
		sys.MemoryPercent, renderBar(sys.MemoryPercent, barLength),
		report.FormatKb(sys.UsedMemoryKb), report.FormatKb(sys.TotalMemoryKb))

	info := dimStyle.Render(fmt.Sprintf("up %s  cpus %d  procs %d",
		report.FormatUptime(sys.Uptime), sys.CPUCount, sys.Entities))
	if warmup {
		info += dimStyle.Render("  (collecting baseline)")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		colorize(sys.CPUPercent, cpuStr),
		colorize(sys.MemoryPercent, memStr),
		info,
		renderCPUGraph(history, width-4),
	)
}
