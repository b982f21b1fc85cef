package overlay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gobeaver/cowkit"
)

// Metrics holds the Prometheus collectors of an overlay. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	resolutions     *prometheus.CounterVec
	tombstoneWrites *prometheus.CounterVec
	copyUps         *prometheus.CounterVec
	listedEntries   *prometheus.CounterVec
	baseCacheHits   *prometheus.CounterVec
}

// NewMetrics registers the overlay collectors with reg.
// Registering twice with the same registerer panics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		resolutions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cowkit_layer_resolutions_total",
				Help: "Total number of file reads resolved per layer",
			},
			[]string{"layer"}, // "base", "top"
		),
		tombstoneWrites: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cowkit_tombstone_writes_total",
				Help: "Total number of tombstone blob writes by kind and status",
			},
			[]string{"kind", "status"}, // kind: "file", "directory"; status: "success", "error"
		),
		copyUps: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cowkit_copy_ups_total",
				Help: "Total number of files copied from the base layer into the top layer",
			},
			[]string{"operation"}, // "move", "copy", "setvisibility"
		),
		listedEntries: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cowkit_listed_entries_total",
				Help: "Total number of entries yielded by merged listings per layer",
			},
			[]string{"layer"},
		),
		baseCacheHits: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cowkit_base_cache_lookups_total",
				Help: "Total number of base layer metadata lookups by operation and result",
			},
			[]string{"operation", "result"}, // result: "hit", "miss"
		),
	}
}

func (m *Metrics) resolved(layer cowkit.Layer) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(string(layer)).Inc()
}

func (m *Metrics) tombstoneWrite(kind string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.tombstoneWrites.WithLabelValues(kind, status).Inc()
}

func (m *Metrics) copyUp(op string) {
	if m == nil {
		return
	}
	m.copyUps.WithLabelValues(op).Inc()
}

func (m *Metrics) listed(layer cowkit.Layer) {
	if m == nil {
		return
	}
	m.listedEntries.WithLabelValues(string(layer)).Inc()
}

func (m *Metrics) baseCache(op string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.baseCacheHits.WithLabelValues(op, result).Inc()
}
