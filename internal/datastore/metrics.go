package datastore

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	fallbacks *prometheus.CounterVec
}

// NewMetrics registers the datastore collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "requesthtml",
			Subsystem: "datastore",
			Name:      "fallback_total",
			Help:      "Operations served by the in-memory fallback store.",
		}, []string{"operation"}),
	}
	if reg != nil {
		reg.MustRegister(m.fallbacks)
	}
	return m
}

// FallbackCounter exposes the counter for tests.
func (m *Metrics) FallbackCounter() *prometheus.CounterVec {
	return m.fallbacks
}

func (m *Metrics) observeFallback(operation string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(operation).Inc()
}
