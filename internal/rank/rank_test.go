package rank

import (
	"testing"

	"github.com/rusenback/procmon/internal/model"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(records []model.DerivedMetricRecord) []int {
	return lo.Map(records, func(r model.DerivedMetricRecord, _ int) int { return r.ID })
}

func TestSortByCPUBreaksTiesOnMemory(t *testing.T) {
	records := []model.DerivedMetricRecord{
		{ID: 1, CPUPercent: 50, ResidentMemoryKb: 100},
		{ID: 2, CPUPercent: 50, ResidentMemoryKb: 200},
		{ID: 3, CPUPercent: 80, ResidentMemoryKb: 10},
	}
	Sort(records, ByCPU)
	assert.Equal(t, []int{3, 2, 1}, ids(records))
}

func TestSortByMemoryBreaksTiesOnCPU(t *testing.T) {
	records := []model.DerivedMetricRecord{
		{ID: 1, CPUPercent: 1, ResidentMemoryKb: 500},
		{ID: 2, CPUPercent: 9, ResidentMemoryKb: 500},
		{ID: 3, CPUPercent: 80, ResidentMemoryKb: 10},
	}
	Sort(records, ByMemory)
	assert.Equal(t, []int{2, 1, 3}, ids(records))
}

func TestSortFallsBackToID(t *testing.T) {
	records := []model.DerivedMetricRecord{
		{ID: 9, CPUPercent: 5, ResidentMemoryKb: 5},
		{ID: 4, CPUPercent: 5, ResidentMemoryKb: 5},
		{ID: 7, CPUPercent: 5, ResidentMemoryKb: 5},
	}
	Sort(records, ByCPU)
	assert.Equal(t, []int{4, 7, 9}, ids(records))
	Sort(records, ByMemory)
	assert.Equal(t, []int{4, 7, 9}, ids(records))
}

func TestFilter(t *testing.T) {
	records := []model.DerivedMetricRecord{
		{ID: 1, Label: "chrome"},
		{ID: 2, Label: "chromium"},
		{ID: 3, Label: "bash"},
	}

	got := Filter(records, "chrom")
	assert.ElementsMatch(t, []string{"chrome", "chromium"},
		lo.Map(got, func(r model.DerivedMetricRecord, _ int) string { return r.Label }))

	assert.Len(t, Filter(records, ""), 3)
	assert.Empty(t, Filter(records, "Chrom"), "filter is case-sensitive")
}

func TestApplyFiltersSortsAndLimits(t *testing.T) {
	records := []model.DerivedMetricRecord{
		{ID: 1, Label: "chrome", CPUPercent: 3},
		{ID: 2, Label: "chromium", CPUPercent: 9},
		{ID: 3, Label: "bash", CPUPercent: 50},
		{ID: 4, Label: "chrome", CPUPercent: 1},
	}

	got := Apply(records, "chrom", ByCPU, 2)
	require.Len(t, got, 2)
	assert.Equal(t, []int{2, 1}, ids(got))
	assert.Equal(t, []int{1, 2, 3, 4}, ids(records), "input must stay untouched")
}

func TestSortKeyParseAndToggle(t *testing.T) {
	key, err := ParseSortKey("Memory")
	require.NoError(t, err)
	assert.Equal(t, ByMemory, key)
	assert.Equal(t, ByCPU, key.Toggle())
	assert.Equal(t, "mem", key.String())

	_, err = ParseSortKey("pid")
	assert.Error(t, err)
}
