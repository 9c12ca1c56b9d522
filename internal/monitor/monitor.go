// Package monitor runs the sampling cycle: read counters, compute deltas,
// commit and prune the snapshot store.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rusenback/procmon/internal/engine"
	"github.com/rusenback/procmon/internal/model"
	"github.com/rusenback/procmon/internal/snapshot"
	"github.com/rusenback/procmon/internal/source"
	"go.uber.org/zap"
)

const (
	MinInterval     = time.Second
	MaxInterval     = 10 * time.Second
	DefaultInterval = time.Second

	DefaultMaxFailures = 5
)

var (
	// ErrCycleSkipped wraps a source failure that only cost one cycle.
	ErrCycleSkipped = errors.New("sampling cycle skipped")
	// ErrSourceExhausted is terminal: the source failed MaxFailures cycles in a
	// row, the last of them included.
	ErrSourceExhausted = errors.New("counter source exhausted retry budget")
	// ErrStop can be returned by a Run sink to end the loop without error.
	ErrStop = errors.New("stop sampling")
)

// Attributor maps host process ids to a container name.
type Attributor interface {
	Attribute(ctx context.Context) (map[int]string, error)
}

// Options tunes a Monitor
type Options struct {
	Interval    time.Duration
	MaxFailures int
	Attributor  Attributor
	Logger      *zap.Logger

	// OnSkip is called by Run for every skipped cycle, with the error
	// wrapping ErrCycleSkipped.
	OnSkip func(error)
}

// Monitor owns one snapshot store. Sample calls are serialized, so a UI that
// samples from background commands never interleaves two commits.
type Monitor struct {
	mu         sync.Mutex
	source     source.CounterSource
	store      *snapshot.Store
	attributor Attributor
	logger     *zap.Logger
	onSkip     func(error)

	interval    atomic.Int64
	maxFailures int
	failures    int
}

func New(src source.CounterSource, opts Options) *Monitor {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = DefaultMaxFailures
	}
	if opts.Interval == 0 {
		opts.Interval = DefaultInterval
	}

	m := &Monitor{
		source:      src,
		store:       snapshot.NewStore(),
		attributor:  opts.Attributor,
		logger:      opts.Logger,
		onSkip:      opts.OnSkip,
		maxFailures: opts.MaxFailures,
	}
	m.SetInterval(opts.Interval)
	return m
}

// ClampInterval bounds d to [MinInterval, MaxInterval].
func ClampInterval(d time.Duration) time.Duration {
	switch {
	case d < MinInterval:
		return MinInterval
	case d > MaxInterval:
		return MaxInterval
	default:
		return d
	}
}

// Interval is the current refresh interval.
func (m *Monitor) Interval() time.Duration {
	return time.Duration(m.interval.Load())
}

// SetInterval stores d clamped to the allowed range and returns the value
// that took effect.
func (m *Monitor) SetInterval(d time.Duration) time.Duration {
	d = ClampInterval(d)
	m.interval.Store(int64(d))
	return d
}

// Tracked is the number of processes the snapshot store holds.
func (m *Monitor) Tracked() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Len()
}

// Sample runs one cycle. On a source failure the store keeps the previous
// snapshot untouched and the error wraps ErrCycleSkipped, or
// ErrSourceExhausted once the retry budget is spent.
func (m *Monitor) Sample(ctx context.Context) (model.Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap, err := m.source.Snapshot(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return model.Frame{}, ctxErr
		}
		m.failures++
		if m.failures >= m.maxFailures {
			m.logger.Error("counter source keeps failing", zap.Int("failures", m.failures), zap.Error(err))
			return model.Frame{}, fmt.Errorf("%w after %d cycles: %w", ErrSourceExhausted, m.failures, err)
		}
		m.logger.Warn("skipping cycle", zap.Int("failures", m.failures), zap.Error(err))
		return model.Frame{}, fmt.Errorf("%w: %w", ErrCycleSkipped, err)
	}
	m.failures = 0

	prev, havePrev := m.store.Commit(snap)
	frame := engine.Compute(prev, snap, havePrev)
	pruned := m.store.PruneStale(snap.IDs())

	m.logger.Debug("cycle complete",
		zap.Int("entities", len(snap.Entities)),
		zap.Int("pruned", pruned),
		zap.Bool("warmup", frame.Warmup),
		zap.Float64("cpu_percent", frame.System.CPUPercent),
	)

	if m.attributor != nil {
		m.attribute(ctx, frame.Records)
	}
	return frame, nil
}

func (m *Monitor) attribute(ctx context.Context, records []model.DerivedMetricRecord) {
	owners, err := m.attributor.Attribute(ctx)
	if err != nil {
		m.logger.Warn("container attribution failed", zap.Error(err))
		return
	}
	for i := range records {
		records[i].Container = owners[records[i].ID]
	}
}

// Run samples until ctx is done, handing every completed frame to sink.
// Shutdown is only observed between cycles. Skipped cycles are reported to
// OnSkip and retried on the next tick; the loop ends with an error when the
// source is exhausted or sink fails.
func (m *Monitor) Run(ctx context.Context, sink func(model.Frame) error) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		frame, err := m.Sample(ctx)
		switch {
		case errors.Is(err, ErrSourceExhausted):
			return err
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		case err != nil:
			// try again next cycle
			if m.onSkip != nil {
				m.onSkip(err)
			}
		default:
			if err := sink(frame); err != nil {
				if errors.Is(err, ErrStop) {
					return nil
				}
				return err
			}
		}

		timer := time.NewTimer(m.Interval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}
