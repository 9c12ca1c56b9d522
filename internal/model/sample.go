package model

import "time"

// TicksPerSecond is the USER_HZ the kernel reports cumulative CPU time in.
const TicksPerSecond = 100

// SystemCounterSample holds the aggregate CPU counters at one instant, in ticks.
type SystemCounterSample struct {
	User      uint64
	Nice      uint64
	System    uint64
	Idle      uint64
	IOWait    uint64
	IRQ       uint64
	SoftIRQ   uint64
	Steal     uint64
	Guest     uint64
	GuestNice uint64
}

// WorkTicks sums every category counted as busy.
func (s SystemCounterSample) WorkTicks() uint64 {
	return s.User + s.Nice + s.System + s.IRQ + s.SoftIRQ + s.Steal + s.Guest + s.GuestNice
}

// IdleTicks sums idle and I/O wait.
func (s SystemCounterSample) IdleTicks() uint64 {
	return s.Idle + s.IOWait
}

// TotalTicks is WorkTicks + IdleTicks.
func (s SystemCounterSample) TotalTicks() uint64 {
	return s.WorkTicks() + s.IdleTicks()
}

// MemorySample is the system memory gauge in kilobytes.
type MemorySample struct {
	TotalKb      uint64
	FreeKb       uint64
	AvailableKb  uint64
	HasAvailable bool // false on kernels without MemAvailable
}

// Snapshot is one complete, timestamped reading of system and per-process counters.
type Snapshot struct {
	System     SystemCounterSample
	Memory     MemorySample
	Entities   map[int]EntityCounterSample
	Uptime     time.Duration
	CPUCount   int
	CapturedAt time.Time
}

// IDs returns the set of entity ids present in the snapshot.
func (s Snapshot) IDs() map[int]struct{} {
	ids := make(map[int]struct{}, len(s.Entities))
	for id := range s.Entities {
		ids[id] = struct{}{}
	}
	return ids
}
