// internal/model/stats.go
package model

import "time"

// SystemMetrics is the system-wide view of one cycle
type SystemMetrics struct {
	// CPU
	CPUPercent float64
	CPUCount   int

	// Memory
	UsedMemoryKb  uint64
	TotalMemoryKb uint64
	MemoryPercent float64

	Uptime   time.Duration
	Entities int // processes seen this cycle, before filtering
}

// Frame is the output of one completed sampling cycle.
type Frame struct {
	System  SystemMetrics
	Records []DerivedMetricRecord

	// Warmup is set on the first cycle, before two samples exist.
	// All percentages are zero then.
	Warmup bool

	// Timestamp for rate calculations
	CapturedAt time.Time
}
