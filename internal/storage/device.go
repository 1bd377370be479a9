package storage

import (
	"sync"
	"sync/atomic"
)

// Device is a fixed-size sector read/write primitive.
// Both calls transfer exactly SectorSize bytes.
type Device interface {
	ReadSector(sector SectorID, dst []byte) error
	WriteSector(sector SectorID, src []byte) error
}

var _ Device = (*MemDevice)(nil)

// MemDevice is a ramdisk holding a fixed number of sectors.
// It counts device operations so callers can observe cache traffic.
type MemDevice struct {
	mu   sync.RWMutex
	data []byte

	reads  atomic.Uint64
	writes atomic.Uint64
}

func NewMemDevice(sectors uint32) *MemDevice {
	return &MemDevice{data: make([]byte, int(sectors)*SectorSize)}
}

func (d *MemDevice) Sectors() uint32 {
	return uint32(len(d.data) / SectorSize)
}

func (d *MemDevice) span(sector SectorID, n int) (int, error) {
	if n != SectorSize {
		return 0, ErrBadSectorSize
	}
	if uint64(sector) >= uint64(d.Sectors()) {
		return 0, ErrSectorOutOfRange
	}
	return int(sector) * SectorSize, nil
}

func (d *MemDevice) ReadSector(sector SectorID, dst []byte) error {
	off, err := d.span(sector, len(dst))
	if err != nil {
		return err
	}
	d.mu.RLock()
	copy(dst, d.data[off:off+SectorSize])
	d.mu.RUnlock()

	d.reads.Add(1)
	return nil
}

func (d *MemDevice) WriteSector(sector SectorID, src []byte) error {
	off, err := d.span(sector, len(src))
	if err != nil {
		return err
	}
	d.mu.Lock()
	copy(d.data[off:off+SectorSize], src)
	d.mu.Unlock()

	d.writes.Add(1)
	return nil
}

// Reads returns the number of successful ReadSector calls.
func (d *MemDevice) Reads() uint64 { return d.reads.Load() }

// Writes returns the number of successful WriteSector calls.
func (d *MemDevice) Writes() uint64 { return d.writes.Load() }
