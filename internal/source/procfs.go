package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/prometheus/procfs"
	"github.com/rusenback/procmon/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ProcFS reads counters from a procfs mount.
type ProcFS struct {
	fs      procfs.FS
	root    string
	workers int
	logger  *zap.Logger
	now     func() time.Time
}

// NewProcFS opens the procfs mounted at root. Nothing is read until the
// first Sample call.
func NewProcFS(root string, workers int, logger *zap.Logger) (*ProcFS, error) {
	pfs, err := procfs.NewFS(root)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", ErrUnavailable, root, err)
	}
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProcFS{
		fs:      pfs,
		root:    root,
		workers: workers,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// classify maps a procfs error onto the source taxonomy: anything that failed
// at the filesystem level is unavailable, everything else is a parse failure.
func classify(op string, err error) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrMalformed, op, err)
}

func (p *ProcFS) stat() (procfs.Stat, error) {
	st, err := p.fs.Stat()
	if err != nil {
		return procfs.Stat{}, classify("reading stat", err)
	}
	return st, nil
}

func systemFromStat(st procfs.Stat) (model.SystemCounterSample, error) {
	c := st.CPUTotal
	sample := model.SystemCounterSample{
		User:      secondsToTicks(c.User),
		Nice:      secondsToTicks(c.Nice),
		System:    secondsToTicks(c.System),
		Idle:      secondsToTicks(c.Idle),
		IOWait:    secondsToTicks(c.Iowait),
		IRQ:       secondsToTicks(c.IRQ),
		SoftIRQ:   secondsToTicks(c.SoftIRQ),
		Steal:     secondsToTicks(c.Steal),
		Guest:     secondsToTicks(c.Guest),
		GuestNice: secondsToTicks(c.GuestNice),
	}
	if sample.TotalTicks() == 0 {
		return model.SystemCounterSample{}, fmt.Errorf("%w: no aggregate cpu line", ErrMalformed)
	}
	return sample, nil
}

func (p *ProcFS) uptimeFromStat(st procfs.Stat) (time.Duration, error) {
	if st.BootTime == 0 {
		return 0, fmt.Errorf("%w: missing btime", ErrMalformed)
	}
	up := p.now().Sub(time.Unix(int64(st.BootTime), 0))
	if up < 0 {
		up = 0
	}
	return up.Truncate(time.Second), nil
}

// SampleSystem reads the aggregate cpu line.
func (p *ProcFS) SampleSystem(ctx context.Context) (model.SystemCounterSample, error) {
	st, err := p.stat()
	if err != nil {
		return model.SystemCounterSample{}, err
	}
	return systemFromStat(st)
}

// SampleUptime derives uptime from the boot time in stat.
func (p *ProcFS) SampleUptime(ctx context.Context) (time.Duration, error) {
	st, err := p.stat()
	if err != nil {
		return 0, err
	}
	return p.uptimeFromStat(st)
}

// SampleMemory reads meminfo.
func (p *ProcFS) SampleMemory(ctx context.Context) (model.MemorySample, error) {
	mi, err := p.fs.Meminfo()
	if err != nil {
		return model.MemorySample{}, classify("reading meminfo", err)
	}
	if mi.MemTotal == nil {
		return model.MemorySample{}, fmt.Errorf("%w: MemTotal not found in meminfo", ErrMalformed)
	}

	sample := model.MemorySample{TotalKb: *mi.MemTotal}
	if mi.MemFree != nil {
		sample.FreeKb = *mi.MemFree
	}
	if mi.MemAvailable != nil {
		sample.AvailableKb = *mi.MemAvailable
		sample.HasAvailable = true
	}
	return sample, nil
}

// SampleEntities enumerates live processes and reads each one's stat file on
// the worker pool. The returned map is built only after every worker is done.
func (p *ProcFS) SampleEntities(ctx context.Context) (map[int]model.EntityCounterSample, error) {
	procs, err := p.fs.AllProcs()
	if err != nil {
		return nil, classify("listing processes", err)
	}

	results := make([]*model.EntityCounterSample, len(procs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, proc := range procs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sample, err := readEntity(proc)
			if err != nil {
				// Exited between listing and reading, or a garbled stat file.
				p.logger.Debug("dropping process", zap.Int("pid", proc.PID), zap.Error(err))
				return nil
			}
			results[i] = &sample
			return nil
		})
	}
	if err := g.Wait(); err != nil {
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

func readEntity(proc procfs.Proc) (model.EntityCounterSample, error) {
	st, err := proc.Stat()
	if err != nil {
		return model.EntityCounterSample{}, err
	}

	rssKb := uint64(0)
	if rss := st.ResidentMemory(); rss > 0 {
		rssKb = uint64(rss) / 1024
	}

	return model.EntityCounterSample{
		ID:               proc.PID,
		Label:            st.Comm,
		CPUTicks:         uint64(st.UTime) + uint64(st.STime),
		ResidentMemoryKb: rssKb,
		StartTicks:       st.Starttime,
	}, nil
}

// Snapshot takes one full reading. Any aggregate failure fails the whole
// snapshot; the caller skips the cycle.
func (p *ProcFS) Snapshot(ctx context.Context) (model.Snapshot, error) {
	st, err := p.stat()
	if err != nil {
		return model.Snapshot{}, err
	}
	system, err := systemFromStat(st)
	if err != nil {
		return model.Snapshot{}, err
	}
	uptime, err := p.uptimeFromStat(st)
	if err != nil {
		return model.Snapshot{}, err
	}
	memory, err := p.SampleMemory(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}
	entities, err := p.SampleEntities(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}

	cpus := len(st.CPU)
	if cpus == 0 {
		cpus = 1
	}

	return model.Snapshot{
		System:     system,
		Memory:     memory,
		Entities:   entities,
		Uptime:     uptime,
		CPUCount:   cpus,
		CapturedAt: p.now(),
	}, nil
}
