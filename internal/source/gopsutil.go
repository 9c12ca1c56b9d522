package source

import (
	"context"
	"fmt"
	"time"

	"github.com/rusenback/procmon/internal/model"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Gopsutil reads counters through gopsutil, for hosts where no procfs mount
// can be addressed directly.
type Gopsutil struct {
	workers int
	logger  *zap.Logger
	now     func() time.Time
}

func NewGopsutil(workers int, logger *zap.Logger) *Gopsutil {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gopsutil{workers: workers, logger: logger, now: time.Now}
}

func (g *Gopsutil) SampleSystem(ctx context.Context) (model.SystemCounterSample, error) {
	times, err := cpu.TimesWithContext(ctx, false)
	if err != nil {
		return model.SystemCounterSample{}, fmt.Errorf("%w: cpu times: %w", ErrUnavailable, err)
	}
	if len(times) == 0 {
		return model.SystemCounterSample{}, fmt.Errorf("%w: no aggregate cpu times", ErrMalformed)
	}
	t := times[0]
	return model.SystemCounterSample{
		User:      secondsToTicks(t.User),
		Nice:      secondsToTicks(t.Nice),
		System:    secondsToTicks(t.System),
		Idle:      secondsToTicks(t.Idle),
		IOWait:    secondsToTicks(t.Iowait),
		IRQ:       secondsToTicks(t.Irq),
		SoftIRQ:   secondsToTicks(t.Softirq),
		Steal:     secondsToTicks(t.Steal),
		Guest:     secondsToTicks(t.Guest),
		GuestNice: secondsToTicks(t.GuestNice),
	}, nil
}

func (g *Gopsutil) SampleMemory(ctx context.Context) (model.MemorySample, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return model.MemorySample{}, fmt.Errorf("%w: virtual memory: %w", ErrUnavailable, err)
	}
	if vm.Total == 0 {
		return model.MemorySample{}, fmt.Errorf("%w: zero total memory", ErrMalformed)
	}
	return model.MemorySample{
		TotalKb:      vm.Total / 1024,
		FreeKb:       vm.Free / 1024,
		AvailableKb:  vm.Available / 1024,
		HasAvailable: vm.Available > 0,
	}, nil
}

func (g *Gopsutil) SampleUptime(ctx context.Context) (time.Duration, error) {
	secs, err := host.UptimeWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: uptime: %w", ErrUnavailable, err)
	}
	return time.Duration(secs) * time.Second, nil
}

func (g *Gopsutil) SampleEntities(ctx context.Context) (map[int]model.EntityCounterSample, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing processes: %w", ErrUnavailable, err)
	}

	results := make([]*model.EntityCounterSample, len(procs))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i, proc := range procs {
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sample, err := readProcess(gctx, proc)
			if err != nil {
				g.logger.Debug("dropping process", zap.Int32("pid", proc.Pid), zap.Error(err))
				return nil
			}
			results[i] = &sample
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	entities := make(map[int]model.EntityCounterSample, len(procs))
	for _, sample := range results {
		if sample != nil {
			entities[sample.ID] = *sample
		}
	}
	return entities, nil
}

func readProcess(ctx context.Context, proc *process.Process) (model.EntityCounterSample, error) {
	name, err := proc.NameWithContext(ctx)
	if err != nil {
		return model.EntityCounterSample{}, err
	}
	times, err := proc.TimesWithContext(ctx)
	if err != nil {
		return model.EntityCounterSample{}, err
	}
	memInfo, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return model.EntityCounterSample{}, err
	}

	var started uint64
	if created, err := proc.CreateTimeWithContext(ctx); err == nil && created > 0 {
		started = uint64(created)
	}

	return model.EntityCounterSample{
		ID:               int(proc.Pid),
		Label:            name,
		CPUTicks:         secondsToTicks(times.User + times.System),
		ResidentMemoryKb: memInfo.RSS / 1024,
		StartTicks:       started,
	}, nil
}

func (g *Gopsutil) Snapshot(ctx context.Context) (model.Snapshot, error) {
	system, err := g.SampleSystem(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}
	memory, err := g.SampleMemory(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}
	uptime, err := g.SampleUptime(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}
	entities, err := g.SampleEntities(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}

	cpus, err := cpu.CountsWithContext(ctx, true)
	if err != nil || cpus <= 0 {
		cpus = 1
	}

	return model.Snapshot{
		System:     system,
		Memory:     memory,
		Entities:   entities,
		Uptime:     uptime,
		CPUCount:   cpus,
		CapturedAt: g.now(),
	}, nil
}
