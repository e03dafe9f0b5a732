package blade

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	rendersTotal   *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	loads          prometheus.Counter
}

// NewMetrics registers the collectors with reg. A nil reg uses the default
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		rendersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blade_renders_total",
				Help: "Total number of template renders",
			},
			[]string{"template", "status"},
		),
		renderDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "blade_render_duration_seconds",
				Help:    "Template render duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"template"},
		),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "blade_store_cache_hits_total",
			Help: "Total number of template loads served from the cache",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "blade_store_cache_misses_total",
			Help: "Total number of template loads missing the cache",
		}),
		loads: factory.NewCounter(prometheus.CounterOpts{
			Name: "blade_store_loads_total",
			Help: "Total number of template files read",
		}),
	}
}

func (m *Metrics) observeRender(name string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.rendersTotal.WithLabelValues(name, status).Inc()
	m.renderDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
}

func (m *Metrics) cacheHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

func (m *Metrics) cacheMiss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

func (m *Metrics) load() {
	if m != nil {
		m.loads.Inc()
	}
}
