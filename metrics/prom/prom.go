package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/boundedmap/boundedmap/cache"
)

// Adapter implements cache.Metrics and exports Prometheus counters/gauges.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter struct {
	hits          prometheus.Counter
	misses        prometheus.Counter
	evictions     prometheus.Counter
	evictedWeight prometheus.Counter
	droppedReads  prometheus.Counter
	drains        prometheus.Counter
	drainedEvents prometheus.Counter
	sizeEntries   prometheus.Gauge
	sizeWeight    prometheus.Gauge
}

// New constructs a Prometheus metrics adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "hits_total",
			Help:        "Cache hits",
			ConstLabels: constLabels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "misses_total",
			Help:        "Cache misses",
			ConstLabels: constLabels,
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "evictions_total",
			Help:        "Entries evicted to satisfy the capacity bound",
			ConstLabels: constLabels,
		}),
		evictedWeight: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "evicted_weight_total",
			Help:        "Total weight reclaimed by evictions",
			ConstLabels: constLabels,
		}),
		droppedReads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "dropped_reads_total",
			Help:        "Recency events shed by full read buffers",
			ConstLabels: constLabels,
		}),
		drains: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "drains_total",
			Help:        "Completed maintenance passes",
			ConstLabels: constLabels,
		}),
		drainedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "drained_events_total",
			Help:        "Buffered events applied by maintenance passes",
			ConstLabels: constLabels,
		}),
		sizeEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "size_entries",
			Help:        "Number of resident entries",
			ConstLabels: constLabels,
		}),
		sizeWeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "size_weight",
			Help:        "Total resident weight",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(
		a.hits, a.misses,
		a.evictions, a.evictedWeight,
		a.droppedReads,
		a.drains, a.drainedEvents,
		a.sizeEntries, a.sizeWeight,
	)
	return a
}

// RecordHit increments the hit counter.
func (a *Adapter) RecordHit() { a.hits.Inc() }

// RecordMiss increments the miss counter.
func (a *Adapter) RecordMiss() { a.misses.Inc() }

// RecordEviction counts one eviction and the weight it reclaimed.
func (a *Adapter) RecordEviction(weight int64) {
	a.evictions.Inc()
	a.evictedWeight.Add(float64(weight))
}

// RecordDrop counts a recency event shed by a full read buffer.
func (a *Adapter) RecordDrop() { a.droppedReads.Inc() }

// RecordDrain counts a maintenance pass and the events it applied.
func (a *Adapter) RecordDrain(events int) {
	a.drains.Inc()
	a.drainedEvents.Add(float64(events))
}

// RecordSize updates gauges for the number of entries and total weight.
func (a *Adapter) RecordSize(entries int, weighted int64) {
	a.sizeEntries.Set(float64(entries))
	a.sizeWeight.Set(float64(weighted))
}

// Compile-time check: ensure Adapter implements cache.Metrics.
var _ cache.Metrics = (*Adapter)(nil)
