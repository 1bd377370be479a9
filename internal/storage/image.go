package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

// CreateImage atomically writes a zero-filled image of the given number of
// sectors at path. An existing file is replaced.
func CreateImage(path string, sectors uint32) error {
	if err := os.MkdirAll(filepath.Dir(path), FileMode0755); err != nil {
		return err
	}
	size := int64(sectors) * SectorSize
	if err := atomic.WriteFile(path, io.LimitReader(zeroReader{}, size)); err != nil {
		return fmt.Errorf("create image %s: %w", path, err)
	}
	return nil
}
