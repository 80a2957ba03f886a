package chat

import (
	"github.com/akeren/mehfil-api/pkg/circuitbreaker"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeSucceeded   = "succeeded"
	outcomeFallback    = "fallback"
	outcomeFailed      = "failed"
	outcomeUnavailable = "unavailable"
	outcomeRejected    = "rejected"
)

type Metrics struct {
	requests *prometheus.CounterVec
	breaker  prometheus.GaugeFunc
}

// NewMetrics reports request outcomes and the breaker state
// (0 closed, 1 open, 2 half-open).
func NewMetrics(breaker circuitbreaker.CircuitBreaker) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_requests_total",
			Help: "Chat relay requests by outcome.",
		}, []string{"outcome"}),
	}

	if breaker != nil {
		m.breaker = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "chat_completion_breaker_state",
			Help: "Completion circuit breaker state.",
		}, func() float64 {
			return float64(breaker.State())
		})
	}

	return m
}

func (m *Metrics) Collectors() []prometheus.Collector {
	if m == nil {
		return nil
	}
	if m.breaker == nil {
		return []prometheus.Collector{m.requests}
	}
	return []prometheus.Collector{m.requests, m.breaker}
}

func (m *Metrics) observe(outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
}
