package engine

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "vision_grader"

// Metrics is safe to leave nil; every method is a no-op then.
type Metrics struct {
	calls        *prometheus.CounterVec
	attempts     *prometheus.CounterVec
	cache        *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
}

// NewMetrics registers the engine collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		calls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "calls_total",
				Help:      "Engine calls by slot and outcome",
			},
			[]string{"slot", "outcome"},
		),
		attempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "upstream_attempts_total",
				Help:      "Upstream HTTP attempts by provider and status",
			},
			[]string{"provider", "status"},
		),
		cache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "strategy_cache_events_total",
				Help:      "Strategy cache hits, misses and invalidations",
			},
			[]string{"slot", "event"},
		),
		callDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "call_duration_seconds",
				Help:      "Engine call latency in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"slot", "cached"},
		),
	}
}

func (m *Metrics) observeCall(slot, outcome string, cached bool, d time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(slot, outcome).Inc()
	m.callDuration.WithLabelValues(slot, strconv.FormatBool(cached)).Observe(d.Seconds())
}

// status 0 means no response was received.
func (m *Metrics) observeAttempt(provider string, status int) {
	if m == nil {
		return
	}
	label := "none"
	if status != 0 {
		label = strconv.Itoa(status)
	}
	m.attempts.WithLabelValues(provider, label).Inc()
}

func (m *Metrics) cacheEvent(slot, event string) {
	if m == nil {
		return
	}
	m.cache.WithLabelValues(slot, event).Inc()
}
