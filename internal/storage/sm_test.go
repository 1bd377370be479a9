package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sectorOf(b byte) []byte {
	return bytes.Repeat([]byte{b}, SectorSize)
}

func newTestFileDevice(t *testing.T, sps int) (*FileDevice, LocalFileSet) {
	t.Helper()

	fs := LocalFileSet{Dir: t.TempDir(), Base: "disk"}
	dev := NewFileDevice(fs, sps, 0)
	t.Cleanup(func() { _ = dev.Close() })
	return dev, fs
}

func TestFileDevice_WriteThenRead(t *testing.T) {
	dev, _ := newTestFileDevice(t, 0)

	require.NoError(t, dev.WriteSector(3, sectorOf(0xAB)))

	got := make([]byte, SectorSize)
	require.NoError(t, dev.ReadSector(3, got))
	require.Equal(t, sectorOf(0xAB), got)
}

func TestFileDevice_ReadPastEOF_ZeroFilled(t *testing.T) {
	dev, _ := newTestFileDevice(t, 0)

	// Dirty the destination so zero-fill is observable.
	got := sectorOf(0xFF)
	require.NoError(t, dev.ReadSector(100, got))
	require.Equal(t, make([]byte, SectorSize), got)
}

func TestFileDevice_SplitsSegments(t *testing.T) {
	dev, fs := newTestFileDevice(t, 4)

	require.NoError(t, dev.WriteSector(1, sectorOf(1)))
	require.NoError(t, dev.WriteSector(5, sectorOf(5)))

	// sector 5 -> segment 1, offset 1*SectorSize
	info, err := os.Stat(filepath.Join(fs.Dir, "disk.1"))
	require.NoError(t, err)
	assert.Equal(t, int64(2*SectorSize), info.Size())

	got := make([]byte, SectorSize)
	require.NoError(t, dev.ReadSector(5, got))
	require.Equal(t, sectorOf(5), got)
	require.NoError(t, dev.ReadSector(1, got))
	require.Equal(t, sectorOf(1), got)
}

func TestFileDevice_SectorLimit(t *testing.T) {
	fs := LocalFileSet{Dir: t.TempDir(), Base: "disk"}
	dev := NewFileDevice(fs, 4, 6)
	defer func() { _ = dev.Close() }()

	for s := SectorID(0); s < 6; s++ {
		require.NoError(t, dev.WriteSector(s, sectorOf(byte(s))))
	}
	require.ErrorIs(t, dev.WriteSector(6, sectorOf(6)), ErrSectorOutOfRange)
	require.ErrorIs(t, dev.ReadSector(100, make([]byte, SectorSize)), ErrSectorOutOfRange)

	// The rejected write must not grow the image.
	n, err := CountSectors(fs)
	require.NoError(t, err)
	require.Equal(t, uint64(6), n)
}

func TestFileDevice_BadBufferSize(t *testing.T) {
	dev, _ := newTestFileDevice(t, 0)

	require.ErrorIs(t, dev.ReadSector(0, make([]byte, 10)), ErrBadSectorSize)
	require.ErrorIs(t, dev.WriteSector(0, make([]byte, SectorSize+1)), ErrBadSectorSize)
}

func TestFileDevice_ClosedRejectsIO(t *testing.T) {
	dev, _ := newTestFileDevice(t, 0)

	require.NoError(t, dev.WriteSector(0, sectorOf(7)))
	require.NoError(t, dev.Close())
	// Close is idempotent.
	require.NoError(t, dev.Close())

	require.ErrorIs(t, dev.ReadSector(0, make([]byte, SectorSize)), ErrDeviceClosed)
}

func TestFileDevice_PersistsAcrossReopen(t *testing.T) {
	fs := LocalFileSet{Dir: t.TempDir(), Base: "disk"}

	dev := NewFileDevice(fs, 0, 0)
	require.NoError(t, dev.WriteSector(9, sectorOf(9)))
	require.NoError(t, dev.Close())

	dev2 := NewFileDevice(fs, 0, 0)
	defer func() { _ = dev2.Close() }()

	got := make([]byte, SectorSize)
	require.NoError(t, dev2.ReadSector(9, got))
	require.Equal(t, sectorOf(9), got)
}

func TestCountSectors(t *testing.T) {
	dev, fs := newTestFileDevice(t, 4)

	n, err := CountSectors(fs)
	require.NoError(t, err)
	require.Equal(t, uint64(0), n)

	// Fill segment 0 completely and one sector of segment 1.
	for s := SectorID(0); s < 5; s++ {
		require.NoError(t, dev.WriteSector(s, sectorOf(byte(s))))
	}

	n, err = CountSectors(fs)
	require.NoError(t, err)
	require.Equal(t, uint64(5), n)
}

func TestCreateImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "img", "disk")

	require.NoError(t, CreateImage(path, 16))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, 16*SectorSize)
	require.Equal(t, make([]byte, 16*SectorSize), data)

	// The image is segment 0 of a FileSet named after it.
	n, err := CountSectors(LocalFileSet{Dir: filepath.Dir(path), Base: "disk"})
	require.NoError(t, err)
	require.Equal(t, uint64(16), n)

	// Recreating replaces the old image.
	require.NoError(t, CreateImage(path, 2))
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(2*SectorSize), info.Size())
}
