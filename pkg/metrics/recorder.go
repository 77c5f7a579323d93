// Package metrics provides Prometheus-based recording and querying for
// Momentum AI and sync operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder records Momentum operational metrics. A nil Recorder is valid
// and records nothing, so wiring stays optional in tests and the CLI.
type Recorder struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	fallbacksTotal  *prometheus.CounterVec
	responseTokens  *prometheus.CounterVec
	syncsTotal      *prometheus.CounterVec
	syncDuration    *prometheus.HistogramVec
}

// NewRecorder registers the Momentum metric families on reg. Pass
// prometheus.DefaultRegisterer for the normal process-wide registry.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "momentum_ai_requests_total",
				Help: "Total AI operation requests by operation, resolution path, and status",
			},
			[]string{"operation", "path", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "momentum_ai_request_duration_seconds",
				Help:    "Duration of AI operation requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "path", "status"},
		),
		fallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "momentum_ai_fallbacks_total",
				Help: "Total server-to-direct fallbacks by operation",
			},
			[]string{"operation"},
		),
		responseTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "momentum_ai_response_tokens_total",
				Help: "Total tokens in AI responses by operation",
			},
			[]string{"operation"},
		),
		syncsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "momentum_syncs_total",
				Help: "Total persistence sync attempts by change kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		syncDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "momentum_sync_duration_seconds",
				Help:    "Duration of persistence sync attempts in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
	}
}

// RecordRequest records one completed AI operation request.
func (r *Recorder) RecordRequest(operation, path, status string, duration time.Duration) {
	if r == nil {
		return
	}
	r.requestsTotal.WithLabelValues(operation, path, status).Inc()
	r.requestDuration.WithLabelValues(operation, path, status).Observe(duration.Seconds())
}

// RecordFallback records a server-path failure that fell through to the
// direct provider.
func (r *Recorder) RecordFallback(operation string) {
	if r == nil {
		return
	}
	r.fallbacksTotal.WithLabelValues(operation).Inc()
}

// RecordResponseTokens adds the token count of a successful AI response.
func (r *Recorder) RecordResponseTokens(operation string, tokens int) {
	if r == nil {
		return
	}
	r.responseTokens.WithLabelValues(operation).Add(float64(tokens))
}

// RecordSync records one persistence sync attempt.
func (r *Recorder) RecordSync(kind string, success bool, duration time.Duration) {
	if r == nil {
		return
	}
	outcome := "ok"
	if !success {
		outcome = "error"
	}
	r.syncsTotal.WithLabelValues(kind, outcome).Inc()
	r.syncDuration.WithLabelValues(kind).Observe(duration.Seconds())
}
