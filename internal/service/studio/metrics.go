package studio

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/alanyang/prompt-workshop/internal/domain/generation"
)

const (
	outcomeOK       = "ok"
	outcomeEmpty    = "empty"
	outcomeUpstream = "upstream_error"
)

// Metrics counts generation calls by operation and outcome. A nil *Metrics is valid and records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workshop",
			Name:      "generation_requests_total",
			Help:      "Generation service calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "workshop",
			Name:      "generation_duration_seconds",
			Help:      "Latency of generation service calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

func (m *Metrics) observe(op generation.Operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(string(op), outcome).Inc()
	m.duration.WithLabelValues(string(op)).Observe(elapsed.Seconds())
}

// Requests exposes the request counter for tests and ad hoc inspection.
func (m *Metrics) Requests() *prometheus.CounterVec { return m.requests }
