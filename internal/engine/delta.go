// Package engine turns two successive counter snapshots into percentages.
//
// Every percentage shares one denominator: the aggregate tick delta of the
// whole system across all cores. A process saturating one core of an
// eight-core host therefore reads about 12.5%, and the per-process figures
// of one cycle sum to roughly the system CPU%.
package engine

import "github.com/rusenback/procmon/internal/model"

// Delta is max(0, cur-prev). Counters that went backwards (reset, wrap,
// reused id) contribute nothing.
func Delta(prev, cur uint64) uint64 {
	if cur < prev {
		return 0
	}
	return cur - prev
}

// SystemTicks returns the clamped total and idle deltas between two samples.
func SystemTicks(prev, cur model.SystemCounterSample) (totalDelta, idleDelta uint64) {
	return Delta(prev.TotalTicks(), cur.TotalTicks()), Delta(prev.IdleTicks(), cur.IdleTicks())
}

// SystemCPUPercent is the busy share of the total tick delta.
func SystemCPUPercent(prev, cur model.SystemCounterSample) float64 {
	totalDelta, idleDelta := SystemTicks(prev, cur)
	if totalDelta == 0 {
		return 0
	}
	if idleDelta > totalDelta {
		// idle advanced while total regressed in another bucket
		return 0
	}
	return clampPercent(float64(totalDelta-idleDelta) * 100 / float64(totalDelta))
}

// EntityCPUPercent charges a process's tick delta against the system total
// delta. A process never seen before passes prev == 0.
func EntityCPUPercent(prevTicks, curTicks, totalDelta uint64) float64 {
	if totalDelta == 0 {
		return 0
	}
	return clampPercent(float64(Delta(prevTicks, curTicks)) * 100 / float64(totalDelta))
}

// MemoryUsage returns used and total memory in kB plus the used percentage.
// Available memory is preferred; without it, free memory is used, which
// overstates usage on hosts with a large page cache.
func MemoryUsage(mem model.MemorySample) (usedKb, totalKb uint64, percent float64) {
	headroom := mem.FreeKb
	if mem.HasAvailable {
		headroom = mem.AvailableKb
	}
	usedKb = Delta(headroom, mem.TotalKb)
	if mem.TotalKb == 0 {
		return usedKb, 0, 0
	}
	return usedKb, mem.TotalKb, clampPercent(float64(usedKb) * 100 / float64(mem.TotalKb))
}

func clampPercent(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
