package storage

import (
	"context"

	"golang.org/x/time/rate"
)

var _ Device = (*ThrottledDevice)(nil)

// ThrottledDevice limits the sector operation rate of an inner Device.
// Reads and writes share one token bucket.
type ThrottledDevice struct {
	inner   Device
	limiter *rate.Limiter
}

// NewThrottledDevice wraps inner with a limit of opsPerSec sector operations.
// opsPerSec <= 0 returns inner unchanged.
func NewThrottledDevice(inner Device, opsPerSec int) Device {
	if opsPerSec <= 0 {
		return inner
	}
	return &ThrottledDevice{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(opsPerSec), opsPerSec),
	}
}

func (d *ThrottledDevice) ReadSector(sector SectorID, dst []byte) error {
	if err := d.limiter.Wait(context.Background()); err != nil {
		return err
	}
	return d.inner.ReadSector(sector, dst)
}

func (d *ThrottledDevice) WriteSector(sector SectorID, src []byte) error {
	if err := d.limiter.Wait(context.Background()); err != nil {
		return err
	}
	return d.inner.WriteSector(sector, src)
}
