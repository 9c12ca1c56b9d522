package engine

import "github.com/rusenback/procmon/internal/model"

// Compute derives one frame from the previous and current snapshots. Without
// a previous snapshot (havePrev false) every percentage is zero and the frame
// is marked as warmup. Records come out in no particular order.
func Compute(prev model.Snapshot, cur model.Snapshot, havePrev bool) model.Frame {
	usedKb, totalKb, memPercent := MemoryUsage(cur.Memory)

	frame := model.Frame{
		System: model.SystemMetrics{
			CPUCount:      cur.CPUCount,
			UsedMemoryKb:  usedKb,
			TotalMemoryKb: totalKb,
			Uptime:        cur.Uptime,
			Entities:      len(cur.Entities),
		},
		Records:    make([]model.DerivedMetricRecord, 0, len(cur.Entities)),
		Warmup:     !havePrev,
		CapturedAt: cur.CapturedAt,
	}

	var totalDelta uint64
	if havePrev {
		totalDelta, _ = SystemTicks(prev.System, cur.System)
		frame.System.CPUPercent = SystemCPUPercent(prev.System, cur.System)
		frame.System.MemoryPercent = memPercent
	}

	for id, entity := range cur.Entities {
		record := model.DerivedMetricRecord{
			ID:               id,
			Label:            entity.Label,
			ResidentMemoryKb: entity.ResidentMemoryKb,
		}
		if havePrev {
			// absent from prev: new process, charged from zero
			record.CPUPercent = EntityCPUPercent(prev.Entities[id].CPUTicks, entity.CPUTicks, totalDelta)
		}
		frame.Records = append(frame.Records, record)
	}

	return frame
}
