package source

import (
	"context"
	"errors"
	"time"

	"github.com/rusenback/procmon/internal/model"
)

var (
	// ErrUnavailable means the counter interface could not be opened this cycle.
	ErrUnavailable = errors.New("counter source unavailable")
	// ErrMalformed means the aggregate counters could not be parsed.
	ErrMalformed = errors.New("malformed counter sample")
)

// CounterSource reads raw cumulative counters. Implementations hold no
// sampling state; every call takes a fresh reading.
type CounterSource interface {
	SampleSystem(ctx context.Context) (model.SystemCounterSample, error)
	SampleMemory(ctx context.Context) (model.MemorySample, error)
	SampleEntities(ctx context.Context) (map[int]model.EntityCounterSample, error)
	SampleUptime(ctx context.Context) (time.Duration, error)
	Snapshot(ctx context.Context) (model.Snapshot, error)
}

// Make sure both backends satisfy the interface
var (
	_ CounterSource = (*ProcFS)(nil)
	_ CounterSource = (*Gopsutil)(nil)
)
