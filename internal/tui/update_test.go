package tui

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rusenback/procmon/internal/control"
	"github.com/rusenback/procmon/internal/model"
	"github.com/rusenback/procmon/internal/monitor"
	"github.com/rusenback/procmon/internal/rank"
	"github.com/rusenback/procmon/internal/source"
	"github.com/rusenback/procmon/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct{ snap model.Snapshot }

func (s staticSource) SampleSystem(context.Context) (model.SystemCounterSample, error) {
	return s.snap.System, nil
}
func (s staticSource) SampleMemory(context.Context) (model.MemorySample, error) {
	return s.snap.Memory, nil
}
func (s staticSource) SampleEntities(context.Context) (map[int]model.EntityCounterSample, error) {
	return s.snap.Entities, nil
}
func (s staticSource) SampleUptime(context.Context) (time.Duration, error) {
	return s.snap.Uptime, nil
}
func (s staticSource) Snapshot(context.Context) (model.Snapshot, error) { return s.snap, nil }

var _ source.CounterSource = staticSource{}

type fakeTerminator struct{ err error }

func (f fakeTerminator) Terminate(_ context.Context, pid int, label string) control.Result {
	return control.Result{PID: pid, Label: label, Signal: "SIGTERM", Exited: f.err == nil, Err: f.err}
}

type memJournal struct{ written []storage.Termination }

func (j *memJournal) Write(t storage.Termination) { j.written = append(j.written, t) }
func (j *memJournal) Recent(context.Context, int) ([]storage.Termination, error) {
	return j.written, nil
}

func testFrame() model.Frame {
	return model.Frame{
		System: model.SystemMetrics{CPUPercent: 40, CPUCount: 2, TotalMemoryKb: 1000, UsedMemoryKb: 400, MemoryPercent: 40},
		Records: []model.DerivedMetricRecord{
			{ID: 1, Label: "systemd", CPUPercent: 1, ResidentMemoryKb: 9000},
			{ID: 2, Label: "chromium", CPUPercent: 30, ResidentMemoryKb: 500},
			{ID: 3, Label: "chrome_crashpad", CPUPercent: 5, ResidentMemoryKb: 100},
		},
	}
}

func newTestModel(t *testing.T, journal Journal) Model {
	t.Helper()
	mon := monitor.New(staticSource{}, monitor.Options{Interval: 2 * time.Second})
	m := NewModel(context.Background(), Options{
		Monitor:    mon,
		Terminator: fakeTerminator{},
		Journal:    journal,
		SortKey:    rank.ByCPU,
	})
	updated, cmd := m.Update(frameMsg{frame: testFrame()})
	require.NotNil(t, cmd)
	return updated.(Model)
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "backspace":
			msg = tea.KeyMsg{Type: tea.KeyBackspace}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m, cmd
}

func ids(rows []model.DerivedMetricRecord) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func TestFrameIsRankedAndRecorded(t *testing.T) {
	m := newTestModel(t, nil)

	assert.Equal(t, []int{2, 3, 1}, ids(m.rows))
	assert.Equal(t, []float64{40}, m.cpuHistory)
	assert.Equal(t, 2, m.selected)
}

func TestWarmupFrameSkipsHistory(t *testing.T) {
	m := newTestModel(t, nil)
	frame := testFrame()
	frame.Warmup = true

	next, _ := m.Update(frameMsg{frame: frame})
	assert.Len(t, next.(Model).cpuHistory, 1)
}

func TestSortToggleKeepsSelection(t *testing.T) {
	m := newTestModel(t, nil)
	m, _ = press(t, m, "down")
	require.Equal(t, 3, m.selected)

	m, _ = press(t, m, "s")
	assert.Equal(t, rank.ByMemory, m.sortKey)
	assert.Equal(t, []int{1, 2, 3}, ids(m.rows))
	assert.Equal(t, 2, m.cursor)
	assert.Equal(t, 3, m.rows[m.cursor].ID)
}

func TestCursorBounds(t *testing.T) {
	m := newTestModel(t, nil)
	m, _ = press(t, m, "up", "up")
	assert.Zero(t, m.cursor)

	m, _ = press(t, m, "down", "down", "down", "down")
	assert.Equal(t, 2, m.cursor)
}

func TestIntervalKeys(t *testing.T) {
	m := newTestModel(t, nil)

	m, _ = press(t, m, "+")
	assert.Equal(t, 3*time.Second, m.mon.Interval())

	m, _ = press(t, m, "-", "-", "-", "-")
	assert.Equal(t, time.Second, m.mon.Interval())

	for i := 0; i < 20; i++ {
		m, _ = press(t, m, "+")
	}
	assert.Equal(t, 10*time.Second, m.mon.Interval())
}

func TestFilterPrompt(t *testing.T) {
	m := newTestModel(t, nil)

	m, _ = press(t, m, "f")
	assert.Equal(t, modeFilter, m.mode)

	m, _ = press(t, m, "c", "h", "r", "o", "m", "enter")
	assert.Equal(t, modeNormal, m.mode)
	assert.Equal(t, "chrom", m.filter)
	assert.Equal(t, []int{2, 3}, ids(m.rows))

	// an empty filter clears it
	m, _ = press(t, m, "f")
	for range "chrom" {
		m, _ = press(t, m, "backspace")
	}
	m, _ = press(t, m, "enter")
	assert.Empty(t, m.filter)
	assert.Len(t, m.rows, 3)
}

func TestEscCancelsPrompt(t *testing.T) {
	m := newTestModel(t, nil)

	m, _ = press(t, m, "f", "x", "esc")
	assert.Equal(t, modeNormal, m.mode)
	assert.Empty(t, m.filter)
}

func TestKillPromptDefaultsToSelection(t *testing.T) {
	m := newTestModel(t, nil)

	m, _ = press(t, m, "k")
	assert.Equal(t, modeKill, m.mode)
	assert.Equal(t, "2", m.input.Value())

	m, cmd := press(t, m, "enter")
	require.NotNil(t, cmd)
	msg := cmd()
	require.IsType(t, killMsg{}, msg)
	assert.Equal(t, 2, msg.(killMsg).result.PID)
	assert.Equal(t, "chromium", msg.(killMsg).result.Label)
	assert.Equal(t, modeNormal, m.mode)
}

func TestKillPromptRejectsGarbage(t *testing.T) {
	m := newTestModel(t, nil)

	m, _ = press(t, m, "k", "backspace", "x", "enter")
	assert.Equal(t, "error", m.status.Level)
	assert.Contains(t, m.status.Message, "Invalid PID")
}

func TestKillResultIsJournaled(t *testing.T) {
	j := &memJournal{}
	m := newTestModel(t, j)

	denied := fmt.Errorf("%w: pid 1: operation not permitted", control.ErrTerminate)
	next, _ := m.Update(killMsg{result: control.Result{PID: 1, Label: "systemd", Signal: "SIGTERM", Err: denied}})
	m = next.(Model)

	require.Len(t, j.written, 1)
	assert.Equal(t, 1, j.written[0].PID)
	assert.Contains(t, j.written[0].Error, "operation not permitted")
	assert.Equal(t, "error", m.status.Level)
	require.Len(t, m.recent, 1)
	assert.Contains(t, m.View(), "Recent kills")
}

func TestSkippedCycleShowsStatusAndRetries(t *testing.T) {
	m := newTestModel(t, nil)

	err := fmt.Errorf("%w: %w", monitor.ErrCycleSkipped, source.ErrUnavailable)
	next, cmd := m.Update(frameMsg{err: err})
	m = next.(Model)

	assert.NotNil(t, cmd)
	assert.NoError(t, m.Err())
	assert.Equal(t, "error", m.status.Level)
	// the last good frame is still shown
	assert.Len(t, m.rows, 3)
}

func TestExhaustedSourceQuits(t *testing.T) {
	m := newTestModel(t, nil)

	err := fmt.Errorf("%w: %w", monitor.ErrSourceExhausted, errors.New("no proc"))
	next, cmd := m.Update(frameMsg{err: err})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.ErrorIs(t, next.(Model).Err(), monitor.ErrSourceExhausted)
}

func TestQuitKey(t *testing.T) {
	m := newTestModel(t, nil)

	_, cmd := press(t, m, "q")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestViewRendersTable(t *testing.T) {
	m := newTestModel(t, nil)
	out := m.View()

	assert.Contains(t, out, "chromium")
	assert.Contains(t, out, "PID")
	assert.NotContains(t, out, "CONTAINER")
}

func TestJournalLoadKeepsEarlierKill(t *testing.T) {
	m := newTestModel(t, &memJournal{})

	next, _ := m.Update(killMsg{result: control.Result{PID: 77, Label: "worker", Signal: "SIGTERM", Exited: true}})
	m = next.(Model)
	require.Len(t, m.recent, 1)
	justKilled := m.recent[0]

	older := storage.Termination{Timestamp: justKilled.Timestamp.Add(-time.Hour), PID: 5, Signal: "SIGTERM"}
	next, _ = m.Update(journalMsg{entries: []storage.Termination{justKilled, older}})
	m = next.(Model)

	require.Len(t, m.recent, 2)
	assert.Equal(t, 77, m.recent[0].PID)
	assert.Equal(t, 5, m.recent[1].PID)
}

func TestMergeRecentCapsPanel(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var loaded []storage.Termination
	for i := 0; i < recentJournal+3; i++ {
		loaded = append(loaded, storage.Termination{Timestamp: base.Add(time.Duration(i) * time.Second), PID: 100 + i})
	}

	got := mergeRecent(nil, loaded)
	require.Len(t, got, recentJournal)
	assert.Equal(t, 100+recentJournal+2, got[0].PID)
}
