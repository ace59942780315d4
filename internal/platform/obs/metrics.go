package obs

import "github.com/prometheus/client_golang/prometheus"

var (
	// ProviderRequests counts remote distance-matrix calls by outcome
	// (ok, partial, unavailable, breaker_open).
	ProviderRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "route_provider_requests_total",
			Help: "Remote distance provider calls by outcome",
		},
		[]string{"outcome"},
	)
	// FallbackPairs counts origin/destination pairs answered by the local estimator.
	FallbackPairs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "route_fallback_pairs_total",
			Help: "Pairs estimated locally after the remote provider was unavailable",
		},
	)
	// CacheLookups counts distance cache lookups by tier (memory, store) and result (hit, miss).
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "route_distance_cache_lookups_total",
			Help: "Distance cache lookups by tier and result",
		},
		[]string{"tier", "result"},
	)
	// OptimizerRuns counts single-day optimizations by algorithm.
	OptimizerRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "route_optimizer_runs_total",
			Help: "Single-day optimizations by algorithm",
		},
		[]string{"algorithm"},
	)
	// HoursResolutions counts business-hours resolutions by provenance.
	HoursResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "route_business_hours_resolutions_total",
			Help: "Business-hours resolutions by provenance",
		},
		[]string{"provenance"},
	)
)

func init() {
	prometheus.MustRegister(ProviderRequests, FallbackPairs, CacheLookups, OptimizerRuns, HoursResolutions)
}
