package bcache

import (
	"fmt"

	"github.com/tuannm99/novacache/internal/storage"
)

// Stats is a point-in-time snapshot of the cache.
type Stats struct {
	Capacity int
	Resident int // valid slots
	Dirty    int
	Metadata int // valid slots classified as metadata

	Hits       uint64
	Misses     uint64
	Evictions  uint64 // valid slots reclaimed by the clock sweep
	WriteBacks uint64 // device writes caused by eviction
	Flushed    uint64 // device writes caused by Flush
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Stats{
		Capacity:   len(c.slots),
		Hits:       c.stats.hits,
		Misses:     c.stats.misses,
		Evictions:  c.stats.evictions,
		WriteBacks: c.stats.writeBacks,
		Flushed:    c.stats.flushed,
	}
	for _, s := range c.slots {
		if !s.valid {
			continue
		}
		st.Resident++
		if s.dirty {
			st.Dirty++
		}
		if s.metadata {
			st.Metadata++
		}
	}
	return st
}

// Verify checks the slot table invariants and returns the first violation.
func (c *Cache) Verify() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.verify()
}

func (c *Cache) verify() error {
	if h := c.hand.Hand(); h < 0 || h >= len(c.slots) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrHandOutOfRange, h, len(c.slots))
	}

	seen := make(map[storage.SectorID]int, len(c.slots))
	for i, s := range c.slots {
		if s.dirty && !s.valid {
			return fmt.Errorf("%w: slot %d", ErrDirtyInvalid, i)
		}
		if !s.valid {
			continue
		}
		if j, dup := seen[s.sector]; dup {
			return fmt.Errorf("%w: sector %d in slots %d and %d", ErrDuplicateSector, s.sector, j, i)
		}
		seen[s.sector] = i
	}
	return nil
}
