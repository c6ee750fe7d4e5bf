package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Layout inventory, refreshed by the Collector
	ScopesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "portal_scopes_total",
			Help: "Number of scopes holding at least one page",
		},
	)

	PagesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "portal_pages_total",
			Help: "Total number of pages across all scopes",
		},
	)

	PlacementsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "portal_placements_total",
			Help: "Total number of widget placements across all scopes",
		},
	)

	// Read cache metrics
	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "portal_cache_hits_total",
			Help: "Scope lookups served from the read cache",
		},
	)

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "portal_cache_misses_total",
			Help: "Scope lookups that loaded from the store",
		},
	)

	CacheEvictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_cache_evictions_total",
			Help: "Scope evictions by origin (commit, remote)",
		},
		[]string{"origin"},
	)

	CacheLoadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "portal_cache_load_duration_seconds",
			Help:    "Time taken to load a scope snapshot from the store",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Writer metrics
	WriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_write_duration_seconds",
			Help:    "Layout write duration in seconds by operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	WriteConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_write_conflicts_total",
			Help: "Writes that failed with an optimistic conflict by operation",
		},
		[]string{"op"},
	)

	RacesSwallowed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "portal_ensure_races_swallowed_total",
			Help: "Concurrent page creations resolved in favour of the other writer",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(ScopesTotal)
	prometheus.MustRegister(PagesTotal)
	prometheus.MustRegister(PlacementsTotal)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(CacheEvictions)
	prometheus.MustRegister(CacheLoadDuration)
	prometheus.MustRegister(WriteDuration)
	prometheus.MustRegister(WriteConflicts)
	prometheus.MustRegister(RacesSwallowed)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
