package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rusenback/procmon/internal/control"
	"github.com/rusenback/procmon/internal/model"
	"github.com/rusenback/procmon/internal/monitor"
	"github.com/rusenback/procmon/internal/rank"
	"github.com/rusenback/procmon/internal/storage"
	"go.uber.org/zap"
)

// Journal records termination requests.
type Journal interface {
	Write(t storage.Termination)
	Recent(ctx context.Context, limit int) ([]storage.Termination, error)
}

// Terminator delivers termination requests.
type Terminator interface {
	Terminate(ctx context.Context, pid int, label string) control.Result
}

type inputMode int

const (
	modeNormal inputMode = iota
	modeFilter
	modeKill
)

const (
	maxDataPoints = 120
	recentJournal = 5
	intervalStep  = time.Second
)

// Options wires a Model to the rest of the program.
type Options struct {
	Monitor    *monitor.Monitor
	Terminator Terminator
	Journal    Journal // optional
	Logger     *zap.Logger

	SortKey    rank.SortKey
	Filter     string
	Limit      int
	Containers bool
}

// Model represents the TUI application state
type Model struct {
	ctx        context.Context
	mon        *monitor.Monitor
	terminator Terminator
	journal    Journal
	logger     *zap.Logger

	frame     model.Frame
	haveFrame bool
	rows      []model.DerivedMetricRecord

	// system CPU% of recent cycles, oldest first
	cpuHistory []float64

	sortKey    rank.SortKey
	filter     string
	limit      int
	containers bool

	cursor   int
	selected int // pid under the cursor, kept across refreshes

	mode  inputMode
	input textinput.Model

	status model.Event
	recent []storage.Termination
	err    error

	width  int
	height int
}

// Message types for Bubbletea update loop
type tickMsg time.Time

type frameMsg struct {
	frame model.Frame
	err   error
}

type killMsg struct {
	result control.Result
}

type journalMsg struct {
	entries []storage.Termination
	err     error
}

// NewModel creates a new TUI model. ctx bounds every background command.
func NewModel(ctx context.Context, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	input := textinput.New()
	input.CharLimit = 64

	return Model{
		ctx:        ctx,
		mon:        opts.Monitor,
		terminator: opts.Terminator,
		journal:    opts.Journal,
		logger:     opts.Logger,
		cpuHistory: make([]float64, 0, maxDataPoints),
		sortKey:    opts.SortKey,
		filter:     opts.Filter,
		limit:      opts.Limit,
		containers: opts.Containers,
		input:      input,
		width:      100,
		height:     30,
	}
}

// Init initializes the model and returns initial commands
func (m Model) Init() tea.Cmd {
	return tea.Batch(sampleCmd(m.ctx, m.mon), loadJournalCmd(m.ctx, m.journal))
}

// Err is the terminal error that ended the program, if any.
func (m Model) Err() error {
	return m.err
}
