package model

// EntityCounterSample is the raw counter reading for one process
type EntityCounterSample struct {
	ID               int
	Label            string
	CPUTicks         uint64 // utime + stime, cumulative since process start
	ResidentMemoryKb uint64
	StartTicks       uint64 // start marker in source units; 0 when the source cannot tell
}

// DerivedMetricRecord is what one process looks like after a delta cycle.
// Records are recomputed every cycle.
type DerivedMetricRecord struct {
	ID               int
	Label            string
	CPUPercent       float64
	ResidentMemoryKb uint64
	Container        string // empty unless container attribution is enabled
}
