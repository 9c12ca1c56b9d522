// Package snapshot retains the one previous sample the delta engine needs.
package snapshot

import (
	"time"

	"github.com/rusenback/procmon/internal/model"
)

// Store keeps the most recently committed system counters and a per-process
// table of the last observed counters. The table is only compacted by
// PruneStale, so it stays bounded by the number of live processes as long as
// every commit is followed by a prune.
//
// A Store is owned by exactly one monitoring loop and is not safe for
// concurrent use.
type Store struct {
	system   model.SystemCounterSample
	memory   model.MemorySample
	uptime   time.Duration
	cpus     int
	captured time.Time
	primed   bool

	entities map[int]model.EntityCounterSample
}

func NewStore() *Store {
	return &Store{entities: make(map[int]model.EntityCounterSample)}
}

// Commit makes next the current sample and returns what was current before.
// ok is false on the first commit, when no previous sample exists yet.
//
// The returned snapshot only carries entities that are also in next and were
// known to the store for the same process: an id whose start marker changed
// belongs to a new process and is left out, so it is charged from zero.
func (s *Store) Commit(next model.Snapshot) (model.Snapshot, bool) {
	prev := model.Snapshot{
		System:     s.system,
		Memory:     s.memory,
		Uptime:     s.uptime,
		CPUCount:   s.cpus,
		CapturedAt: s.captured,
		Entities:   make(map[int]model.EntityCounterSample, len(next.Entities)),
	}
	ok := s.primed

	for id, cur := range next.Entities {
		old, known := s.entities[id]
		if known && sameProcess(old, cur) {
			prev.Entities[id] = old
		}
		s.entities[id] = cur
	}

	s.system = next.System
	s.memory = next.Memory
	s.uptime = next.Uptime
	s.cpus = next.CPUCount
	s.captured = next.CapturedAt
	s.primed = true

	if !ok {
		return model.Snapshot{Entities: map[int]model.EntityCounterSample{}}, false
	}
	return prev, true
}

func sameProcess(old, cur model.EntityCounterSample) bool {
	if old.StartTicks == 0 || cur.StartTicks == 0 {
		return true
	}
	return old.StartTicks == cur.StartTicks
}

// PruneStale drops bookkeeping for every id not in live and reports how many
// entries were removed.
func (s *Store) PruneStale(live map[int]struct{}) int {
	removed := 0
	for id := range s.entities {
		if _, ok := live[id]; !ok {
			delete(s.entities, id)
			removed++
		}
	}
	return removed
}

// Len is the number of processes the store currently tracks.
func (s *Store) Len() int {
	return len(s.entities)
}

// Has reports whether id is tracked.
func (s *Store) Has(id int) bool {
	_, ok := s.entities[id]
	return ok
}

// Primed reports whether at least one sample has been committed.
func (s *Store) Primed() bool {
	return s.primed
}

// Reset forgets everything; the next Commit behaves like the first.
func (s *Store) Reset() {
	*s = Store{entities: make(map[int]model.EntityCounterSample)}
}
