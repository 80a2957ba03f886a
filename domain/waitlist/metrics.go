package waitlist

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is nil-safe so services built without it skip instrumentation.
type Metrics struct {
	registrations *prometheus.CounterVec
	rejections    *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "waitlist_registrations_total",
			Help: "Successful waitlist registrations by user type.",
		}, []string{"user_type"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "waitlist_registration_rejections_total",
			Help: "Rejected waitlist registrations by error type.",
		}, []string{"reason"}),
	}
}

func (m *Metrics) Collectors() []prometheus.Collector {
	if m == nil {
		return nil
	}
	return []prometheus.Collector{m.registrations, m.rejections}
}

func (m *Metrics) observeRegistration(userType string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(userType).Inc()
}

func (m *Metrics) observeRejection(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}
