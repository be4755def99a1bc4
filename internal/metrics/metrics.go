// Package metrics owns the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var Registry = prometheus.NewRegistry()

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	AllocationOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocation_operations_total",
			Help: "Allocation lifecycle operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	SettlementOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_tuples_total",
			Help: "End-of-day settlement tuples by outcome",
		},
		[]string{"outcome"},
	)

	UnitsSettled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_units_total",
			Help: "Units closed by end-of-day settlement, split into sold and returned",
		},
		[]string{"disposition"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequestsTotal,
		HTTPRequestDuration,
		AllocationOperations,
		SettlementOutcomes,
		UnitsSettled,
	)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func ObserveRequest(method string, path string, status string, elapsed time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(path).Observe(elapsed.Seconds())
}

// ObserveOperation counts one lifecycle operation; outcome is "ok" or the
// error kind.
func ObserveOperation(operation string, outcome string) {
	AllocationOperations.WithLabelValues(operation, outcome).Inc()
}

func ObserveSettlement(outcome string, sold int, returned int) {
	SettlementOutcomes.WithLabelValues(outcome).Inc()
	if sold > 0 {
		UnitsSettled.WithLabelValues("sold").Add(float64(sold))
	}
	if returned > 0 {
		UnitsSettled.WithLabelValues("returned").Add(float64(returned))
	}
}
