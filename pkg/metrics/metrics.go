package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Webhooks
	WebhooksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhooks_total",
			Help: "Provider callbacks received, by outcome",
		},
		[]string{"provider", "outcome"},
	)

	// Status resolution
	StatusUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "status_updates_total",
			Help: "Status resolutions, by lineage and outcome",
		},
		[]string{"lineage", "outcome"},
	)

	// Refunds
	RefundRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refund_requests_total",
			Help: "Refund requests, by outcome",
		},
		[]string{"outcome"}, // accepted|rejected|provider_error
	)

	// Store
	StoreRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_retries_total",
			Help: "Transaction store operations retried after a transient error",
		},
		[]string{"operation"},
	)

	// HTTP
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_requests_latency_seconds",
			Help:    "Latency of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	initOnce sync.Once
)

// Handler serves /metrics.
var Handler = promhttp.Handler

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(WebhooksTotal)
		prometheus.MustRegister(StatusUpdatesTotal)
		prometheus.MustRegister(RefundRequestsTotal)
		prometheus.MustRegister(StoreRetriesTotal)
		prometheus.MustRegister(HTTPLatency)
	})
}

// CountStoreRetry is a retry.Retrier hook.
func CountStoreRetry(operation string) {
	StoreRetriesTotal.WithLabelValues(operation).Inc()
}
