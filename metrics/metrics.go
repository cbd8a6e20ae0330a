// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	documentOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "series_document_operations_total",
		Help: "Document store operations by operation and outcome",
	}, []string{"op", "outcome"}) // op=fetch|insert|update|delete, outcome=success|failure

	authAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "series_auth_attempts_total",
		Help: "Sign up / sign in / sign out attempts by outcome",
	}, []string{"action", "outcome"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "series_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "status"})

	activeTokens = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "series_active_tokens",
		Help: "Tokens currently held by the in-memory token store",
	})
)

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordDocumentOp counts a document store call
func RecordDocumentOp(op string, err error) {
	documentOpsTotal.WithLabelValues(op, outcome(err)).Inc()
}

// RecordAuthAttempt counts an authentication call
func RecordAuthAttempt(action string, err error) {
	authAttemptsTotal.WithLabelValues(action, outcome(err)).Inc()
}

// ObserveHTTPRequest records the latency of a finished request
func ObserveHTTPRequest(route, method, status string, seconds float64) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestDuration.WithLabelValues(route, method, status).Observe(seconds)
}

// SetActiveTokens reports the size of the in-memory token store
func SetActiveTokens(n int) {
	activeTokens.Set(float64(n))
}
