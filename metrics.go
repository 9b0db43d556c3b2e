package folio

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Cache outcomes recorded by ContentCache.
const (
	outcomeHit      = "hit"
	outcomeMiss     = "miss"
	outcomeShared   = "shared"
	outcomeStale    = "stale"
	outcomeSnapshot = "snapshot"
	outcomeEmpty    = "empty"
)

// Metrics holds the app's Prometheus collectors on a private registry, so
// several Apps (and tests) can coexist in one process. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	cache         *prometheus.CounterVec
	images        *prometheus.CounterVec
}

// NewMetrics registers the folio collectors plus Go runtime and process
// collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "folio",
			Name:      "cms_fetches_total",
			Help:      "CMS entry fetches by content type and result.",
		}, []string{"content_type", "result"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "folio",
			Name:      "cms_fetch_duration_seconds",
			Help:      "CMS entry fetch latency by content type.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"content_type"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "folio",
			Name:      "content_cache_total",
			Help:      "Content cache lookups by content type and outcome.",
		}, []string{"content_type", "outcome"}),
		images: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "folio",
			Name:      "image_proxy_total",
			Help:      "Image proxy requests by outcome.",
		}, []string{"outcome"}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.fetches,
		m.fetchDuration,
		m.cache,
		m.images,
	)
	return m
}

func (m *Metrics) observeFetch(contentType string, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.fetches.WithLabelValues(contentType, result).Inc()
	m.fetchDuration.WithLabelValues(contentType).Observe(d.Seconds())
}

func (m *Metrics) cacheOutcome(contentType, outcome string) {
	if m == nil {
		return
	}
	m.cache.WithLabelValues(contentType, outcome).Inc()
}

func (m *Metrics) imageOutcome(outcome string) {
	if m == nil {
		return
	}
	m.images.WithLabelValues(outcome).Inc()
}
