// Package metric provides Prometheus metrics for Keyforge.
//
// It exposes metrics in Prometheus format for monitoring key issuance,
// activation, sweeping, the credit ledger and HTTP traffic.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Key lifecycle metrics.
var (
	KeysIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "keyforge",
		Name:      "keys_issued_total",
		Help:      "Keys created.",
	})

	KeysActivated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "keyforge",
		Name:      "keys_activated_total",
		Help:      "Keys redeemed and hardware-locked.",
	})

	KeysSwept = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "keyforge",
		Name:      "keys_swept_total",
		Help:      "Expired keys removed by the sweeper.",
	})
)

// Ledger metrics.
var (
	CreditsDebited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "keyforge",
		Name:      "credits_debited_total",
		Help:      "Credits debited for key issuance.",
	})

	CreditsRefunded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "keyforge",
		Name:      "credits_refunded_total",
		Help:      "Credits refunded for unused keys.",
	})
)

// HTTP metrics.
var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keyforge",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route pattern and status code.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "keyforge",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
)

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
