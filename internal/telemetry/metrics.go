// Package telemetry exposes Prometheus metrics for routing attempts, cache
// coherence, and the GEPA Pareto frontier, following
// DatanoiseTV-aigateway's handlers.metrics.go promauto-registered
// CounterVec/Gauge/HistogramVec convention rather than hand-rolled /metrics
// text (the teacher repo has no metrics package of its own).
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RoutingAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatewaycore_routing_attempts_total",
			Help: "Total number of gateway inference calls by target function or model and outcome.",
		},
		[]string{"function", "provider", "outcome"},
	)

	RoutingLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gatewaycore_routing_latency_seconds",
			Help:    "Latency of a single provider inference attempt.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"function", "provider"},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatewaycore_cache_lookups_total",
			Help: "Total response-cache lookups by outcome (hit, miss, stale, error).",
		},
		[]string{"outcome"},
	)

	ParetoFrontierSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gatewaycore_pareto_frontier_size",
			Help: "Number of non-dominated candidates currently held in a GEPA frontier.",
		},
		[]string{"optimization"},
	)

	ParetoGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatewaycore_pareto_generations_total",
			Help: "Total number of GEPA generations evaluated.",
		},
		[]string{"optimization"},
	)

	TokensEstimatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatewaycore_tokens_estimated_total",
			Help: "Total tokens estimated by the adaptive rate limiter's token estimator.",
		},
		[]string{"model_family"},
	)
)

// Handler returns the promhttp handler to mount at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
