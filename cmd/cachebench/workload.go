package main

import (
	"context"
	"fmt"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"

	"github.com/tuannm99/novacache/internal/storage"
)

// sectorCache is the part of the buffer cache a workload drives.
type sectorCache interface {
	Capacity() int
	Read(sector storage.SectorID, dst []byte) error
	Write(sector storage.SectorID, src []byte, metadata bool) error
}

// workload issues random reads and writes from several clients.
type workload struct {
	Workers      int
	Ops          int
	WritePercent int
	// Writes to sectors below MetadataSectors are usually classified as
	// metadata, sometimes as data.
	MetadataSectors uint32
	Sectors         uint32
	Seed            uint64
}

func defaultWorkload() workload {
	return workload{
		Workers:         4,
		Ops:             10000,
		WritePercent:    30,
		MetadataSectors: 16,
		Seed:            1,
	}
}

// Run blocks until every client finished its ops, one failed, or ctx is done.
func (w workload) Run(ctx context.Context, c sectorCache) error {
	if w.Sectors == 0 {
		return fmt.Errorf("workload: no sectors")
	}
	// At least one slot must stay non-metadata or eviction has no victim.
	if int64(w.MetadataSectors) >= int64(c.Capacity()) {
		return fmt.Errorf("workload: %d metadata sectors would pin all %d cache slots",
			w.MetadataSectors, c.Capacity())
	}

	g, ctx := errgroup.WithContext(ctx)
	for id := 0; id < w.Workers; id++ {
		g.Go(func() error {
			return w.client(ctx, c, id)
		})
	}
	return g.Wait()
}

func (w workload) client(ctx context.Context, c sectorCache, id int) error {
	rng := rand.New(rand.NewPCG(w.Seed, uint64(id)))
	buf := make([]byte, storage.SectorSize)

	for i := 0; i < w.Ops; i++ {
		if ctx.Err() != nil {
			return nil
		}

		sector := storage.SectorID(rng.Uint32N(w.Sectors))
		if rng.IntN(100) >= w.WritePercent {
			if err := c.Read(sector, buf); err != nil {
				return fmt.Errorf("client %d: read sector %d: %w", id, sector, err)
			}
			continue
		}

		stamp(buf, id, i)
		metadata := w.metadataSector(sector) && rng.IntN(4) != 0
		if err := c.Write(sector, buf, metadata); err != nil {
			return fmt.Errorf("client %d: write sector %d: %w", id, sector, err)
		}
	}
	return nil
}

func (w workload) metadataSector(sector storage.SectorID) bool {
	return uint32(sector) < w.MetadataSectors
}

// stamp fills buf with a pattern identifying the writer and op.
func stamp(buf []byte, client, op int) {
	for i := range buf {
		buf[i] = byte(client*131 + op + i)
	}
}
