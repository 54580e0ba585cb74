// Package health reports the health of caches and other components.
//
// A Checker reports a Status: Healthy, Degraded, or Unhealthy. Caches expose
// one through their Checker method: a closed cache is unhealthy, and a cache
// holding resources that were dropped from its map but are still referenced
// is degraded.
//
// # Aggregating Health Checks
//
// Use Aggregator to combine checks into a single composite status:
//
//	agg := health.NewAggregator()
//	agg.RegisterChecker(files.Checker())
//	agg.RegisterChecker(conns.Checker())
//
//	results := agg.CheckAll(ctx)
//	overall := agg.OverallStatus(results)
//
// Checks run concurrently unless AggregatorConfig.Sequential is set. A check
// that does not return before the aggregator timeout is reported unhealthy
// with ErrCheckTimeout.
//
// # HTTP Endpoints
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, agg)
//
// registers /healthz (liveness), /readyz (readiness), /health (JSON detail)
// and /health/{name} (one check).
package health
