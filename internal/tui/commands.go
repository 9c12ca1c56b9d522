package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rusenback/procmon/internal/monitor"
)

// tickCmd waits one refresh interval
func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// sampleCmd runs one sampling cycle off the update loop
func sampleCmd(ctx context.Context, mon *monitor.Monitor) tea.Cmd {
	return func() tea.Msg {
		frame, err := mon.Sample(ctx)
		return frameMsg{frame: frame, err: err}
	}
}

// killCmd signals pid and waits for the acknowledgment in the background
func killCmd(ctx context.Context, t Terminator, pid int, label string) tea.Cmd {
	return func() tea.Msg {
		return killMsg{result: t.Terminate(ctx, pid, label)}
	}
}

// loadJournalCmd reads the most recent termination records
func loadJournalCmd(ctx context.Context, j Journal) tea.Cmd {
	if j == nil {
		return nil
	}
	return func() tea.Msg {
		entries, err := j.Recent(ctx, recentJournal)
		return journalMsg{entries: entries, err: err}
	}
}
