// Package metrics exports buffer cache stats as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tuannm99/novacache/internal/bcache"
)

type StatsSource interface {
	Stats() bcache.Stats
}

var _ prometheus.Collector = (*Collector)(nil)

// Collector reads one stats snapshot per scrape.
type Collector struct {
	src StatsSource

	hits       *prometheus.Desc
	misses     *prometheus.Desc
	evictions  *prometheus.Desc
	writeBacks *prometheus.Desc
	flushed    *prometheus.Desc

	capacity *prometheus.Desc
	resident *prometheus.Desc
	dirty    *prometheus.Desc
	metadata *prometheus.Desc
}

func NewCollector(namespace string, src StatsSource) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "bcache", name), help, nil, nil)
	}
	return &Collector{
		src: src,

		hits:       desc("hits_total", "Reads and writes served by a resident slot."),
		misses:     desc("misses_total", "Reads and writes that loaded a sector from the device."),
		evictions:  desc("evictions_total", "Valid slots reclaimed by the clock sweep."),
		writeBacks: desc("write_backs_total", "Device writes of dirty victims during eviction."),
		flushed:    desc("flushed_total", "Device writes performed by flush."),

		capacity: desc("slots", "Number of slots in the cache."),
		resident: desc("resident_slots", "Slots holding a sector."),
		dirty:    desc("dirty_slots", "Slots whose data is not yet on the device."),
		metadata: desc("metadata_slots", "Resident slots classified as metadata."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.evictions
	ch <- c.writeBacks
	ch <- c.flushed
	ch <- c.capacity
	ch <- c.resident
	ch <- c.dirty
	ch <- c.metadata
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.src.Stats()

	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	gauge := func(d *prometheus.Desc, v int) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v))
	}

	counter(c.hits, st.Hits)
	counter(c.misses, st.Misses)
	counter(c.evictions, st.Evictions)
	counter(c.writeBacks, st.WriteBacks)
	counter(c.flushed, st.Flushed)

	gauge(c.capacity, st.Capacity)
	gauge(c.resident, st.Resident)
	gauge(c.dirty, st.Dirty)
	gauge(c.metadata, st.Metadata)
}
