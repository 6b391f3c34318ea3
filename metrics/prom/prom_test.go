package prom_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/boundedmap/boundedmap/cache"
	"github.com/boundedmap/boundedmap/metrics/prom"
)

// gatherValues flattens a registry into name -> value for single-sample
// counters and gauges.
func gatherValues(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				values[mf.GetName()] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[mf.GetName()] = m.GetGauge().GetValue()
			}
		}
	}
	return values
}

func TestAdapterRecordsSignals(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := prom.New(reg, "boundedmap", "test", nil)

	a.RecordHit()
	a.RecordHit()
	a.RecordMiss()
	a.RecordEviction(7)
	a.RecordEviction(3)
	a.RecordDrop()
	a.RecordDrain(5)
	a.RecordSize(42, 99)

	values := gatherValues(t, reg)
	require.Equal(t, 2.0, values["boundedmap_test_hits_total"])
	require.Equal(t, 1.0, values["boundedmap_test_misses_total"])
	require.Equal(t, 2.0, values["boundedmap_test_evictions_total"])
	require.Equal(t, 10.0, values["boundedmap_test_evicted_weight_total"])
	require.Equal(t, 1.0, values["boundedmap_test_dropped_reads_total"])
	require.Equal(t, 1.0, values["boundedmap_test_drains_total"])
	require.Equal(t, 5.0, values["boundedmap_test_drained_events_total"])
	require.Equal(t, 42.0, values["boundedmap_test_size_entries"])
	require.Equal(t, 99.0, values["boundedmap_test_size_weight"])
}

func TestAdapterDrivenByCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := prom.New(reg, "boundedmap", "cache", nil)

	c := cache.New[string, string](cache.Options[string, string]{
		Capacity: 2,
		Metrics:  a,
	})
	c.Put("a", "1")
	c.Put("b", "2")
	c.Put("c", "3") // evicts a
	c.Get("b")
	c.Get("missing")
	c.Drain()

	values := gatherValues(t, reg)
	require.Equal(t, 1.0, values["boundedmap_cache_hits_total"])
	require.Equal(t, 1.0, values["boundedmap_cache_misses_total"])
	require.Equal(t, 1.0, values["boundedmap_cache_evictions_total"])
	require.Equal(t, 2.0, values["boundedmap_cache_size_entries"])
	require.Equal(t, 2.0, values["boundedmap_cache_size_weight"])
}
