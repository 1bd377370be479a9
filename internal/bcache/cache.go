// Package bcache is a fixed-capacity buffer cache of device sectors.
//
// All cache traffic is serialized by one cache-wide mutex, including the
// device I/O performed on a miss, on eviction of a dirty slot and on flush.
// Writes are deferred: the device only sees a sector again when its slot is
// evicted or flushed.
package bcache

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tuannm99/novacache/internal/storage"
	"github.com/tuannm99/novacache/pkg/clockx"
)

var (
	DefaultCapacity = 64

	ErrBadBufferSize   = errors.New("bcache: buffer size != SectorSize")
	ErrNoEvictableSlot = errors.New("bcache: no evictable slot (every slot holds metadata)")
	ErrDuplicateSector = errors.New("bcache: sector resident in more than one slot")
	ErrDirtyInvalid    = errors.New("bcache: dirty slot is not valid")
	ErrHandOutOfRange  = errors.New("bcache: clock hand out of range")
)

type Config struct {
	// Capacity is the number of slots. <= 0 uses DefaultCapacity.
	Capacity int
	// CheckInvariants runs Verify at the end of every operation and panics
	// on a violation.
	CheckInvariants bool
	Logger          *slog.Logger
}

// slot holds at most one sector.
// mu is only taken while Cache.mu is held.
type slot struct {
	mu sync.Mutex

	valid    bool
	dirty    bool
	accessed bool
	metadata bool

	sector storage.SectorID
	data   [storage.SectorSize]byte
}

type counters struct {
	hits       uint64
	misses     uint64
	evictions  uint64
	writeBacks uint64
	flushed    uint64
}

type Cache struct {
	dev   storage.Device
	log   *slog.Logger
	check bool

	mu    sync.Mutex
	slots []*slot       // len == capacity
	hand  *clockx.Clock // eviction sweep position over slots
	stats counters
}

// New creates a cache in front of dev and initializes it.
func New(dev storage.Device, cfg Config) *Cache {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	c := &Cache{
		dev:   dev,
		log:   cfg.Logger,
		check: cfg.CheckInvariants,
		slots: make([]*slot, cfg.Capacity),
		hand:  clockx.New(cfg.Capacity),
	}
	c.Init()
	return c
}

// Init empties every slot, resets the clock hand to slot 0 and clears stats.
// Cached data, dirty or not, is dropped: callers that care must Flush first.
func (c *Cache) Init() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.slots {
		c.slots[i] = &slot{}
	}
	c.hand.Reset()
	c.stats = counters{}
}

func (c *Cache) Capacity() int { return len(c.slots) }

// release unlocks the cache, checking invariants first when enabled.
func (c *Cache) release() {
	var err error
	if c.check {
		err = c.verify()
	}
	c.mu.Unlock()
	if err != nil {
		panic(err)
	}
}

// Read copies the current contents of sector into dst.
func (c *Cache) Read(sector storage.SectorID, dst []byte) error {
	if len(dst) != storage.SectorSize {
		return ErrBadBufferSize
	}

	c.mu.Lock()
	defer c.release()

	idx, err := c.load(sector)
	if err != nil {
		return err
	}

	s := c.slots[idx]
	s.mu.Lock()
	s.accessed = true
	copy(dst, s.data[:])
	s.mu.Unlock()
	return nil
}

// Write replaces the whole sector with src and marks it dirty. metadata
// reclassifies the slot on every call.
func (c *Cache) Write(sector storage.SectorID, src []byte, metadata bool) error {
	if len(src) != storage.SectorSize {
		return ErrBadBufferSize
	}

	c.mu.Lock()
	defer c.release()

	idx, err := c.load(sector)
	if err != nil {
		return err
	}

	s := c.slots[idx]
	s.mu.Lock()
	copy(s.data[:], src)
	s.accessed = true
	s.dirty = true
	s.metadata = metadata
	s.mu.Unlock()
	return nil
}

// Flush writes every dirty slot back to the device. Slots stay resident.
// It stops at the first device error; that slot stays dirty.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.release()

	for _, s := range c.slots {
		if !s.valid || !s.dirty {
			continue
		}
		if err := c.writeBack(s); err != nil {
			return err
		}
		c.stats.flushed++
	}
	return nil
}

// Close performs the final flush. The device is left open: it belongs to
// the caller.
func (c *Cache) Close() error {
	if err := c.Flush(); err != nil {
		return fmt.Errorf("bcache: final flush: %w", err)
	}
	c.log.Debug("bcache: closed", "capacity", len(c.slots))
	return nil
}

// Resident reports whether sector currently occupies a slot.
func (c *Cache) Resident(sector storage.SectorID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.lookup(sector)
	return ok
}

// load returns the slot holding sector, reading it from the device into an
// evicted slot on a miss. Caller holds c.mu.
func (c *Cache) load(sector storage.SectorID) (int, error) {
	// 1) HIT
	if idx, ok := c.lookup(sector); ok {
		c.stats.hits++
		return idx, nil
	}
	c.stats.misses++

	// 2) MISS: reuse a slot
	idx, err := c.evict()
	if err != nil {
		return -1, err
	}

	s := c.slots[idx]
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := c.dev.ReadSector(sector, s.data[:]); err != nil {
		// slot stays invalid and is claimed first by the next eviction
		return -1, fmt.Errorf("bcache: load sector %d: %w", sector, err)
	}
	s.valid = true
	s.dirty = false
	s.metadata = false
	s.sector = sector
	return idx, nil
}

// writeBack writes a valid slot to its sector and marks it clean.
func (c *Cache) writeBack(s *slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := c.dev.WriteSector(s.sector, s.data[:]); err != nil {
		return fmt.Errorf("bcache: write back sector %d: %w", s.sector, err)
	}
	s.dirty = false
	return nil
}
