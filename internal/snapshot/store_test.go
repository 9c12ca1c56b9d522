package snapshot

import (
	"testing"

	"github.com/rusenback/procmon/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(total, idle uint64, procs ...model.EntityCounterSample) model.Snapshot {
	entities := make(map[int]model.EntityCounterSample, len(procs))
	for _, p := range procs {
		entities[p.ID] = p
	}
	return model.Snapshot{
		System:   model.SystemCounterSample{User: total - idle, Idle: idle},
		Entities: entities,
	}
}

func proc(id int, ticks uint64) model.EntityCounterSample {
	return model.EntityCounterSample{ID: id, Label: "p", CPUTicks: ticks}
}

func TestFirstCommitHasNoPrevious(t *testing.T) {
	store := NewStore()
	assert.False(t, store.Primed())

	prev, ok := store.Commit(sample(1000, 800, proc(1, 10)))
	assert.False(t, ok)
	assert.Empty(t, prev.Entities)
	assert.True(t, store.Primed())
	assert.Equal(t, 1, store.Len())
}

func TestCommitReturnsPreviousCounters(t *testing.T) {
	store := NewStore()
	store.Commit(sample(1000, 800, proc(1, 10), proc(2, 20)))

	prev, ok := store.Commit(sample(1100, 860, proc(1, 15), proc(3, 5)))
	require.True(t, ok)
	assert.Equal(t, uint64(1000), prev.System.TotalTicks())
	assert.Equal(t, uint64(800), prev.System.IdleTicks())

	// only ids present in the new sample are handed back
	require.Len(t, prev.Entities, 1)
	assert.Equal(t, uint64(10), prev.Entities[1].CPUTicks)
	assert.NotContains(t, prev.Entities, 3)
}

func TestPruneDropsVanishedEntity(t *testing.T) {
	store := NewStore()
	first := sample(1000, 800, proc(1, 10), proc(417, 50))
	store.Commit(first)
	store.PruneStale(first.IDs())
	require.True(t, store.Has(417))

	second := sample(1100, 860, proc(1, 12))
	store.Commit(second)
	removed := store.PruneStale(second.IDs())

	assert.Equal(t, 1, removed)
	assert.False(t, store.Has(417))
	assert.Equal(t, 1, store.Len())
}

func TestBookkeepingBoundedByLiveSet(t *testing.T) {
	store := NewStore()
	// heavy churn: every cycle sees a fresh block of ids
	for cycle := 0; cycle < 50; cycle++ {
		procs := make([]model.EntityCounterSample, 0, 10)
		for i := 0; i < 10; i++ {
			procs = append(procs, proc(cycle*10+i+1, uint64(cycle)))
		}
		snap := sample(uint64(1000+cycle*100), 800, procs...)
		store.Commit(snap)
		store.PruneStale(snap.IDs())
		assert.LessOrEqual(t, store.Len(), 10)
	}
}

func TestReusedIDIsChargedFromZero(t *testing.T) {
	store := NewStore()
	old := proc(42, 900)
	old.StartTicks = 100
	store.Commit(sample(1000, 800, old))

	reborn := proc(42, 3)
	reborn.StartTicks = 5000
	prev, ok := store.Commit(sample(1100, 860, reborn))
	require.True(t, ok)
	assert.NotContains(t, prev.Entities, 42)
}

func TestReset(t *testing.T) {
	store := NewStore()
	store.Commit(sample(1000, 800, proc(1, 10)))
	store.Reset()

	assert.False(t, store.Primed())
	assert.Zero(t, store.Len())
	_, ok := store.Commit(sample(1100, 860, proc(1, 12)))
	assert.False(t, ok)
}
