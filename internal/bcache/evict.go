package bcache

import (
	"github.com/tuannm99/novacache/internal/storage"
	"github.com/tuannm99/novacache/pkg/clockx"
)

// lookup scans the table for the valid slot holding sector.
// Linear on purpose: the table is small and fixed.
func (c *Cache) lookup(sector storage.SectorID) (int, bool) {
	for i, s := range c.slots {
		if s.valid && s.sector == sector {
			return i, true
		}
	}
	return -1, false
}

// evict picks a slot for reuse with the clock algorithm and returns it
// invalid and clean. Caller holds c.mu.
//
// Under the hand:
//   - free slot: claimed as is;
//   - accessed slot: bit cleared (second chance), hand moves on;
//   - unaccessed metadata slot: skipped, hand moves on;
//   - unaccessed data slot: written back if dirty, invalidated, claimed.
//
// The hand stays on the claimed slot. If a dirty victim cannot be written
// back it stays valid and dirty and the error is returned.
func (c *Cache) evict() (int, error) {
	var wbErr error

	idx, ok := c.hand.Sweep(func(i int) clockx.Verdict {
		s := c.slots[i]
		switch {
		case !s.valid:
			return clockx.Claim
		case s.accessed:
			s.accessed = false
			return clockx.Advance
		case s.metadata:
			return clockx.Advance
		}

		wasDirty := s.dirty
		if wasDirty {
			if err := c.writeBack(s); err != nil {
				wbErr = err
				return clockx.Claim
			}
			c.stats.writeBacks++
		}
		s.valid = false
		c.stats.evictions++

		c.log.Debug("bcache: evict", "slot", i, "sector", s.sector, "dirty", wasDirty)
		return clockx.Claim
	})

	if wbErr != nil {
		return -1, wbErr
	}
	if !ok {
		c.log.Error("bcache: eviction found no victim", "capacity", len(c.slots))
		return -1, ErrNoEvictableSlot
	}
	return idx, nil
}
