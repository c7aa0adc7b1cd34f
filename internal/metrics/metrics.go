package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tracelog_store_operation_duration_seconds",
		Help:    "Latency of trace store operations.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"operation", "collection", "status"})
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracelog_cache_lookups_total",
		Help: "Stats cache lookups by result.",
	}, []string{"operation", "result"})
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracelog_http_requests_total",
		Help: "HTTP requests served, by route and status code class.",
	}, []string{"route", "code"})
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tracelog_http_request_duration_seconds",
		Help:    "Latency of HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	decisionsServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracelog_final_decisions_total",
		Help: "Final decisions returned in trace detail responses.",
	}, []string{"decision"})
)

func ObserveStoreOperation(operation, collection string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	storeOperationDuration.WithLabelValues(operation, collection, status).Observe(d.Seconds())
}

func CacheHit(operation string) {
	cacheLookups.WithLabelValues(operation, "hit").Inc()
}

func CacheMiss(operation string) {
	cacheLookups.WithLabelValues(operation, "miss").Inc()
}

func CacheError(operation string) {
	cacheLookups.WithLabelValues(operation, "error").Inc()
}

func ObserveHTTPRequest(route, code string, d time.Duration) {
	httpRequests.WithLabelValues(route, code).Inc()
	httpRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// DecisionServed counts a final decision shown to an operator. Non-canonical decisions are
// recorded as "OTHER" to bound label cardinality.
func DecisionServed(decision string, canonical bool) {
	if !canonical {
		decision = "OTHER"
	}
	decisionsServed.WithLabelValues(decision).Inc()
}
