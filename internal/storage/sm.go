package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

type FileSet interface {
	OpenSegment(segNo int32) (*os.File, error)
}

var _ FileSet = (*LocalFileSet)(nil)

// LocalFileSet represents a local directory + base file name.
// Segments are stored as: Base, Base.1, Base.2, ...
type LocalFileSet struct {
	Dir  string
	Base string
}

func (lfs LocalFileSet) segmentPath(segNo int32) string {
	name := lfs.Base
	if segNo > 0 {
		name = fmt.Sprintf("%s.%d", lfs.Base, segNo)
	}
	return filepath.Join(lfs.Dir, name)
}

func (lfs LocalFileSet) OpenSegment(segNo int32) (*os.File, error) {
	if err := os.MkdirAll(lfs.Dir, FileMode0755); err != nil {
		return nil, err
	}
	// RDWR | CREATE (no truncate)
	return os.OpenFile(lfs.segmentPath(segNo), os.O_RDWR|os.O_CREATE, FileMode0644)
}

var _ Device = (*FileDevice)(nil)

// FileDevice maps a SectorID -> (segment, offset) inside a FileSet.
// Segment files are opened on first use and stay open until Close.
type FileDevice struct {
	fs    FileSet
	sps   int32  // sectors per segment
	limit uint32 // 0 = unbounded

	mu     sync.Mutex
	segs   map[int32]*os.File
	closed bool
}

// NewFileDevice creates a device over fs. sectorsPerSegment <= 0 uses
// DefaultSectorsPerSegment. A non-zero sectors caps the device size like
// MemDevice does: I/O at or past it fails with ErrSectorOutOfRange.
func NewFileDevice(fs FileSet, sectorsPerSegment int, sectors uint32) *FileDevice {
	if sectorsPerSegment <= 0 {
		sectorsPerSegment = DefaultSectorsPerSegment
	}
	return &FileDevice{
		fs:    fs,
		sps:   int32(sectorsPerSegment),
		limit: sectors,
		segs:  make(map[int32]*os.File),
	}
}

func (d *FileDevice) locate(sector SectorID) (segNo int32, offset int64, err error) {
	if d.limit > 0 && uint32(sector) >= d.limit {
		return 0, 0, ErrSectorOutOfRange
	}
	s := int64(sector)
	segNo = int32(s / int64(d.sps))
	offset = (s % int64(d.sps)) * SectorSize
	return segNo, offset, nil
}

func (d *FileDevice) segment(segNo int32) (*os.File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrDeviceClosed
	}
	if f, ok := d.segs[segNo]; ok {
		return f, nil
	}
	f, err := d.fs.OpenSegment(segNo)
	if err != nil {
		return nil, fmt.Errorf("open segment %d: %w", segNo, err)
	}
	d.segs[segNo] = f
	return f, nil
}

// ReadSector reads exactly one sector into dst.
// If the underlying file is smaller than offset+SectorSize the remainder is
// zero-filled, so never-written sectors read back as zeros.
func (d *FileDevice) ReadSector(sector SectorID, dst []byte) error {
	if len(dst) != SectorSize {
		return ErrBadSectorSize
	}
	segNo, off, err := d.locate(sector)
	if err != nil {
		return err
	}
	f, err := d.segment(segNo)
	if err != nil {
		return err
	}

	n, err := f.ReadAt(dst, off)
	if err != nil && err != io.EOF {
		return err
	}
	for i := n; i < SectorSize; i++ {
		dst[i] = 0
	}
	return nil
}

// WriteSector writes exactly one sector from src.
func (d *FileDevice) WriteSector(sector SectorID, src []byte) error {
	if len(src) != SectorSize {
		return ErrBadSectorSize
	}
	segNo, off, err := d.locate(sector)
	if err != nil {
		return err
	}
	f, err := d.segment(segNo)
	if err != nil {
		return err
	}

	n, err := f.WriteAt(src, off)
	if err != nil {
		return err
	}
	if n != SectorSize {
		return io.ErrShortWrite
	}
	return nil
}

// CountSectors computes total sectors for a LocalFileSet by scanning all
// existing segments.
func CountSectors(lfs LocalFileSet) (uint64, error) {
	var total uint64

	for segNo := int32(0); ; segNo++ {
		f, err := os.Open(lfs.segmentPath(segNo))
		if err != nil {
			if os.IsNotExist(err) {
				break
			}
			return 0, err
		}

		info, statErr := f.Stat()
		_ = f.Close()
		if statErr != nil {
			return 0, statErr
		}
		total += uint64(info.Size() / SectorSize)
	}

	return total, nil
}

// Close syncs and closes every open segment. Further I/O fails with
// ErrDeviceClosed.
func (d *FileDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	var errs []error
	for segNo, f := range d.segs {
		if err := f.Sync(); err != nil {
			errs = append(errs, fmt.Errorf("sync segment %d: %w", segNo, err))
		}
		if err := f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close segment %d: %w", segNo, err))
		}
	}
	d.segs = nil
	return errors.Join(errs...)
}
