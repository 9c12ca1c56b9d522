package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rusenback/procmon/internal/model"
	"github.com/rusenback/procmon/internal/monitor"
	"github.com/rusenback/procmon/internal/rank"
	"github.com/rusenback/procmon/internal/storage"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Update handles messages and updates the model state
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if m.mode != modeNormal {
			return m.updatePrompt(msg)
		}
		return m.updateKeys(msg)

	case tickMsg:
		return m, sampleCmd(m.ctx, m.mon)

	case frameMsg:
		return m.applyFrame(msg)

	case killMsg:
		res := msg.result
		if res.Err != nil {
			m.setStatus("error", res.Message())
		} else {
			m.setStatus("info", res.Message())
		}
		if m.journal != nil {
			entry := storage.Termination{
				Timestamp: time.Now(),
				PID:       res.PID,
				Label:     res.Label,
				Signal:    res.Signal,
			}
			if res.Err != nil {
				entry.Error = res.Err.Error()
			}
			m.journal.Write(entry)
			m.recent = append([]storage.Termination{entry}, m.recent...)
			if len(m.recent) > recentJournal {
				m.recent = m.recent[:recentJournal]
			}
		}

	case journalMsg:
		if msg.err != nil {
			m.logger.Warn("journal read failed", zap.Error(msg.err))
			return m, nil
		}
		// a kill may have landed before the startup load finished
		m.recent = mergeRecent(m.recent, msg.entries)
	}

	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "up":
		if m.cursor > 0 {
			m.cursor--
			m.selected = m.rows[m.cursor].ID
		}

	case "down":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
			m.selected = m.rows[m.cursor].ID
		}

	case "+", "=":
		d := m.mon.SetInterval(m.mon.Interval() + intervalStep)
		m.setStatus("info", fmt.Sprintf("Refresh interval %s", d))

	case "-", "_":
		d := m.mon.SetInterval(m.mon.Interval() - intervalStep)
		m.setStatus("info", fmt.Sprintf("Refresh interval %s", d))

	case "s":
		m.sortKey = m.sortKey.Toggle()
		m.rerank()
		m.setStatus("info", fmt.Sprintf("Sorted by %s", m.sortKey))

	case "f":
		m.mode = modeFilter
		m.input.Prompt = "Filter: "
		m.input.Placeholder = "substring, empty clears"
		m.input.SetValue(m.filter)
		m.input.CursorEnd()
		cmd := m.input.Focus()
		return m, cmd

	case "k":
		m.mode = modeKill
		m.input.Prompt = "Kill PID: "
		m.input.Placeholder = "pid"
		m.input.SetValue("")
		if len(m.rows) > 0 {
			m.input.SetValue(strconv.Itoa(m.rows[m.cursor].ID))
		}
		m.input.CursorEnd()
		cmd := m.input.Focus()
		return m, cmd
	}

	return m, nil
}

// updatePrompt routes keys to the active text input
func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "esc":
		m.closePrompt()
		return m, nil

	case "enter":
		value := strings.TrimSpace(m.input.Value())
		mode := m.mode
		m.closePrompt()

		switch mode {
		case modeFilter:
			m.filter = value
			m.cursor = 0
			m.rerank()
			if value == "" {
				m.setStatus("info", "Filter cleared")
			} else {
				m.setStatus("info", fmt.Sprintf("Filter %q", value))
			}
			return m, nil

		case modeKill:
			pid, err := strconv.Atoi(value)
			if err != nil || pid <= 0 {
				m.setStatus("error", fmt.Sprintf("Invalid PID %q", value))
				return m, nil
			}
			m.setStatus("info", fmt.Sprintf("Sending SIGTERM to %d...", pid))
			return m, killCmd(m.ctx, m.terminator, pid, m.labelOf(pid))
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) closePrompt() {
	m.mode = modeNormal
	m.input.Blur()
	m.input.SetValue("")
}

// applyFrame stores a sampling result and schedules the next cycle
func (m Model) applyFrame(msg frameMsg) (tea.Model, tea.Cmd) {
	switch {
	case errors.Is(msg.err, monitor.ErrSourceExhausted):
		m.err = msg.err
		return m, tea.Quit
	case errors.Is(msg.err, context.Canceled), errors.Is(msg.err, context.DeadlineExceeded):
		return m, tea.Quit
	case msg.err != nil:
		m.setStatus("error", fmt.Sprintf("Sample skipped: %v", msg.err))
		return m, tickCmd(m.mon.Interval())
	}

	m.frame = msg.frame
	m.haveFrame = true
	if !msg.frame.Warmup {
		m.cpuHistory = append(m.cpuHistory, msg.frame.System.CPUPercent)
		if len(m.cpuHistory) > maxDataPoints {
			m.cpuHistory = m.cpuHistory[len(m.cpuHistory)-maxDataPoints:]
		}
	}
	m.rerank()
	return m, tickCmd(m.mon.Interval())
}

// rerank rebuilds the visible rows and keeps the cursor on the same pid
func (m *Model) rerank() {
	m.rows = rank.Apply(m.frame.Records, m.filter, m.sortKey, m.limit)

	if len(m.rows) == 0 {
		m.cursor = 0
		m.selected = 0
		return
	}
	for i, r := range m.rows {
		if r.ID == m.selected {
			m.cursor = i
			return
		}
	}
	m.cursor = clamp(m.cursor, 0, len(m.rows)-1)
	m.selected = m.rows[m.cursor].ID
}

func (m Model) labelOf(pid int) string {
	for _, r := range m.frame.Records {
		if r.ID == pid {
			return r.Label
		}
	}
	return ""
}

func (m *Model) setStatus(level, message string) {
	m.status = model.Event{Timestamp: time.Now(), Message: message, Level: level}
}

// mergeRecent combines termination entries newest first, without duplicates,
// capped to the panel size.
func mergeRecent(current, loaded []storage.Termination) []storage.Termination {
	merged := lo.UniqBy(append(slices.Clone(current), loaded...), func(t storage.Termination) string {
		return fmt.Sprintf("%d/%d", t.Timestamp.UnixNano(), t.PID)
	})
	slices.SortStableFunc(merged, func(a, b storage.Termination) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if len(merged) > recentJournal {
		merged = merged[:recentJournal]
	}
	return merged
}
