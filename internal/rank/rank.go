// Package rank orders and filters the records of one frame.
package rank

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/rusenback/procmon/internal/model"
	"github.com/samber/lo"
)

// SortKey selects the primary ordering of the process table
type SortKey int

const (
	ByCPU SortKey = iota
	ByMemory
)

func (k SortKey) String() string {
	switch k {
	case ByCPU:
		return "cpu"
	case ByMemory:
		return "mem"
	default:
		return "unknown"
	}
}

// Toggle switches between CPU and memory ordering.
func (k SortKey) Toggle() SortKey {
	if k == ByCPU {
		return ByMemory
	}
	return ByCPU
}

// ParseSortKey accepts "cpu", "mem" or "memory".
func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cpu", "":
		return ByCPU, nil
	case "mem", "memory":
		return ByMemory, nil
	default:
		return ByCPU, fmt.Errorf("unknown sort key %q", s)
	}
}

// Sort orders records in place: the active key descending, the other metric
// descending on ties, then id ascending so the order is fully deterministic.
func Sort(records []model.DerivedMetricRecord, key SortKey) {
	slices.SortFunc(records, func(a, b model.DerivedMetricRecord) int {
		byCPU := cmp.Compare(b.CPUPercent, a.CPUPercent)
		byMem := cmp.Compare(b.ResidentMemoryKb, a.ResidentMemoryKb)

		primary, secondary := byCPU, byMem
		if key == ByMemory {
			primary, secondary = byMem, byCPU
		}
		if primary != 0 {
			return primary
		}
		if secondary != 0 {
			return secondary
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// Filter keeps records whose label contains substr (case-sensitive).
// An empty filter keeps everything.
func Filter(records []model.DerivedMetricRecord, substr string) []model.DerivedMetricRecord {
	if substr == "" {
		return records
	}
	return lo.Filter(records, func(r model.DerivedMetricRecord, _ int) bool {
		return strings.Contains(r.Label, substr)
	})
}

// Apply filters, sorts and truncates to limit (0 means no limit). The input
// slice is not modified.
func Apply(records []model.DerivedMetricRecord, substr string, key SortKey, limit int) []model.DerivedMetricRecord {
	out := slices.Clone(Filter(records, substr))
	Sort(out, key)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
