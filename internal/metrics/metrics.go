// Package metrics holds the Prometheus collectors shared by the solver,
// the distance provider, the caches and the HTTP server.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry served at /metrics
	Registry = prometheus.NewRegistry()

	// Solves counts finished solves by kind (tour, path, walk) and outcome
	Solves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tourplan_solves_total", Help: "Finished solves by kind and outcome."},
		[]string{"kind", "outcome"},
	)
	// SolveIterations records subtour-elimination iterations per solve
	SolveIterations = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "tourplan_solve_iterations", Help: "Subtour elimination iterations per solve.", Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34, 55}},
	)
	// SolveDuration records solve wall time in seconds by kind
	SolveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "tourplan_solve_duration_seconds", Help: "Solve duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"kind"},
	)
	// SubtourCuts counts subtour cuts added across all solves
	SubtourCuts = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "tourplan_subtour_cuts_total", Help: "Subtour elimination cuts added."},
	)
	// ILPNodes counts branch-and-bound nodes explored
	ILPNodes = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "tourplan_ilp_nodes_total", Help: "Branch-and-bound nodes explored."},
	)

	// ProviderRequests counts distance provider requests by provider and status
	ProviderRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tourplan_provider_requests_total", Help: "Distance provider requests by provider and status."},
		[]string{"provider", "status"},
	)
	// CacheLookups counts distance cache lookups by backend and result (hit, miss)
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tourplan_cache_lookups_total", Help: "Distance cache lookups by backend and result."},
		[]string{"backend", "result"},
	)

	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)
)

var regOnce sync.Once

// RegisterDefault registers every collector, plus the Go and process
// collectors, on Registry. Safe to call more than once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(Solves, SolveIterations, SolveDuration, SubtourCuts, ILPNodes)
		Registry.MustRegister(ProviderRequests, CacheLookups)
		Registry.MustRegister(HTTPRequests, HTTPDuration)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
