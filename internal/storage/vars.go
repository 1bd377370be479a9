package storage

import (
	"errors"
)

const (
	OneB  = 1
	OneKB = 1024
	OneMB = OneKB * 1024
	OneGB = OneMB * 1024
)

const (
	// 512B sector, the unit of device I/O and of caching.
	SectorSize = 512

	// Segment files are capped at 1 GiB.
	SegmentSize              = 1 * OneGB
	DefaultSectorsPerSegment = SegmentSize / SectorSize
)

const (
	FileMode0644 = 0o644 // rw-r--r--
	FileMode0755 = 0o755 // rwxr-xr-x
)

// SectorID addresses one sector on a single device.
type SectorID uint32

var (
	ErrBadSectorSize    = errors.New("storage: buffer size != SectorSize")
	ErrSectorOutOfRange = errors.New("storage: sector out of range")
	ErrDeviceClosed     = errors.New("storage: device is closed")
)
