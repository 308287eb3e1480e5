package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service
	Registry = prometheus.NewRegistry()
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

	// SolverSolves counts backend attempts by backend and outcome (ok, error)
	SolverSolves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "solver_solves_total", Help: "QUBO solve attempts by backend and outcome."},
		[]string{"backend", "outcome"},
	)
	// SolverFallbacks counts drops to the greedy fallback by the backend that failed
	SolverFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "solver_fallbacks_total", Help: "Greedy fallbacks by failed backend."},
		[]string{"backend"},
	)
	SolverDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "solver_duration_seconds", Help: "Backend solve duration in seconds.", Buckets: []float64{.001, .01, .05, .1, .5, 1, 5, 10, 30}},
		[]string{"backend"},
	)

	// Optimizations counts completed optimization calls
	Optimizations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "optimizations_total", Help: "Completed optimizations by scenario and problem kind."},
		[]string{"scenario", "kind"},
	)
	// BrokerPublishes counts result events by broker and outcome
	BrokerPublishes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "broker_publishes_total", Help: "Result events published by broker and outcome."},
		[]string{"broker", "outcome"},
	)
	// WebhookDeliveries counts webhook attempts by outcome (delivered, retry, dropped)
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Result webhook delivery attempts by outcome."},
		[]string{"outcome"},
	)
	// Improvement tracks improvement over the nearest-neighbor baseline
	Improvement = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "optimization_improvement_percent", Help: "Improvement over baseline in percent.", Buckets: []float64{-50, -20, -10, 0, 5, 10, 20, 30, 50}},
	)
)

// RegisterDefault registers collectors to the service registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(SolverSolves)
		Registry.MustRegister(SolverFallbacks)
		Registry.MustRegister(SolverDuration)
		Registry.MustRegister(Optimizations)
		Registry.MustRegister(Improvement)
		Registry.MustRegister(BrokerPublishes)
		Registry.MustRegister(WebhookDeliveries)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
