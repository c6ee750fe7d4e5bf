/*
Package metrics provides Prometheus metrics and health endpoints for the portal
layout service.

All metrics are registered with the default Prometheus registry at package
init and exposed by Handler on /metrics.

# Metrics

Inventory gauges, refreshed by Collector from the store:

	portal_scopes_total
	portal_pages_total
	portal_placements_total

Read cache:

	portal_cache_hits_total
	portal_cache_misses_total
	portal_cache_evictions_total{origin="commit|remote"}
	portal_cache_load_duration_seconds

Writer:

	portal_write_duration_seconds{op}
	portal_write_conflicts_total{op}
	portal_ensure_races_swallowed_total

A burst of portal_write_conflicts_total usually means two editors are
reordering the same scope; clients are expected to reload and retry.

# Timing

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.WriteDuration, "swap_pages")

# Health

HealthChecker runs registered probes on each request. Critical probes gate
/ready; every probe contributes to /health. /live only reports that the
process is up.

	health := metrics.NewHealthChecker(version)
	health.Register("store", true, store.Ping)
	health.Register("notifier", false, notifier.Ping)

	mux.Handle("/health", health.HealthHandler())
	mux.Handle("/ready", health.ReadyHandler())
	mux.Handle("/live", health.LivenessHandler())
*/
package metrics
